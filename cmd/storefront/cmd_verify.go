package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var verifyFlags struct {
	noTrack bool
}

var verifyCmd = &cobra.Command{
	Use:   "verify <reference>",
	Short: "Verify a payment reference against the payments API",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerify,
}

func init() {
	verifyCmd.Flags().BoolVar(&verifyFlags.noTrack, "no-track", false, "skip the payment link tracking call")
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	if verifyFlags.noTrack {
		cfg.Verify.TrackLinks = false
	}

	verifier := newVerifier(cfg, log)
	ctx, cancel := context.WithTimeout(cmd.Context(), verifier.Budget())
	defer cancel()

	res, err := verifier.Verify(ctx, args[0])
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
