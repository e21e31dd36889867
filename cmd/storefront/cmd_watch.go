package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/nevelline/storefront/internal/domain"
	"github.com/nevelline/storefront/internal/events"
	"github.com/spf13/cobra"
)

var watchFlags struct {
	group string
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Tail checkout attempt events from Kafka",
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchFlags.group, "group", "", "consumer group id, empty tails from the latest offset")
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	if len(cfg.Journal.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is not set")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	consumer := events.NewConsumer(cfg.Journal.KafkaTopic, watchFlags.group,
		func(_ context.Context, eventType string, a domain.CheckoutAttempt) error {
			_, err := fmt.Fprintf(out, "%s %s session=%s state=%s reference=%s total=%d %s\n",
				a.UpdatedAt.Format("15:04:05.000"), eventType, a.SessionID, a.State, a.Reference, a.Total, a.Error)
			return err
		}, log, cfg.Journal.KafkaBrokers...)
	defer consumer.Close()

	consumer.Run(ctx)
	return nil
}
