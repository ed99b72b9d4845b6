// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

package main

import (
	"github.com/spf13/cobra"

	"github.com/tomtom215/attentive/internal/loadgen"
)

func newStressCmd(a *app) *cobra.Command {
	opts := loadgen.DefaultStressConfig()
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Publish a synthetic session directly to the relay",
		Long: `Publishes --count data events with increasing sequence numbers, then one
SESSION_END, to the relay channel. Use it with a running saver to check that
every event is stored in order.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.Channel = a.cfg.Relay.Channel
			pub, err := newRelayPublisher(a.cfg)
			if err != nil {
				return err
			}
			defer closePublisher(pub)

			stress, err := loadgen.NewStressPublisher(pub, opts)
			if err != nil {
				return err
			}
			res, err := stress.Run(cmd.Context())
			if perr := printJSON(cmd.OutOrStdout(), res); perr != nil && err == nil {
				err = perr
			}
			return err
		},
	}
	cmd.Flags().IntVar(&opts.Count, "count", opts.Count, "data events before SESSION_END")
	cmd.Flags().Float64Var(&opts.Rate, "rate", 0, "events per second, 0 for unlimited")
	cmd.Flags().StringVar(&opts.SessionID, "session", opts.SessionID, "session id")
	cmd.Flags().StringVar(&opts.UserID, "user", opts.UserID, "user id")
	return cmd
}
