package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Print job events published on NATS until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		if a.nats == nil {
			return errors.New("events requires NATS_URL")
		}

		subject := a.cfg.EventSubject + ".>"
		sub, err := a.nats.SubscribeJSON(subject, func(_ context.Context, subject string, data []byte) {
			fmt.Printf("%s\t%s\n", subject, data)
		})
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		defer func() { _ = sub.Unsubscribe() }()
		a.logger.Info("listening for job events", "subject", subject)

		<-cmd.Context().Done()
		return nil
	},
}

func init() { rootCmd.AddCommand(eventsCmd) }
