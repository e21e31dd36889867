package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/nevelline/storefront/internal/domain"
	"github.com/nevelline/storefront/internal/repository"
	"github.com/spf13/cobra"
)

var attemptsFlags struct {
	session     string
	fingerprint string
	limit       int
}

var attemptsCmd = &cobra.Command{
	Use:   "attempts",
	Short: "List journaled checkout attempts",
	Long:  "attempts reads the checkout attempt journal in Postgres, by session or by cart fingerprint.",
	RunE:  runAttempts,
}

func init() {
	f := attemptsCmd.Flags()
	f.StringVar(&attemptsFlags.session, "session", "", "session id")
	f.StringVar(&attemptsFlags.fingerprint, "fingerprint", "", "cart fingerprint")
	f.IntVar(&attemptsFlags.limit, "limit", 20, "max attempts to list for a session")
	attemptsCmd.MarkFlagsMutuallyExclusive("session", "fingerprint")
	attemptsCmd.MarkFlagsOneRequired("session", "fingerprint")
}

func runAttempts(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.Journal.Database.Host == "" {
		return errors.New("DB_HOST is not set, the attempt journal is disabled")
	}
	repo, err := repository.NewRepository(credentials(cfg.Journal), log)
	if err != nil {
		return err
	}
	defer repo.Close()

	var attempts []domain.CheckoutAttempt
	if attemptsFlags.session != "" {
		attempts, err = repo.ListBySession(cmd.Context(), attemptsFlags.session, attemptsFlags.limit)
	} else {
		attempts, err = repo.ListByFingerprint(cmd.Context(), attemptsFlags.fingerprint)
	}
	if err != nil {
		return err
	}

	if len(attempts) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no attempts")
		return nil
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ATTEMPT\tSTATE\tORDER\tREFERENCE\tTOTAL\tUPDATED\tERROR")
	for _, a := range attempts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			a.ID, a.State, a.OrderNumber, a.Reference, a.Total,
			a.UpdatedAt.Format(time.RFC3339), a.Error)
	}
	return tw.Flush()
}
