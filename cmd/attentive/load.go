// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

package main

import (
	"github.com/spf13/cobra"

	"github.com/tomtom215/attentive/internal/loadgen"
)

func newLoadCmd(_ *app) *cobra.Command {
	opts := loadgen.DefaultWSLoadConfig()
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Drive the ingestion endpoint with virtual users",
		Long: `Opens --vus websocket connections and sends a random landmark frame on each
every --interval for --duration, then reports sent and failed frames.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := loadgen.NewWSLoadClient(opts)
			if err != nil {
				return err
			}
			res, err := client.Run(cmd.Context())
			if perr := printJSON(cmd.OutOrStdout(), res); perr != nil && err == nil {
				err = perr
			}
			return err
		},
	}
	cmd.Flags().StringVar(&opts.URL, "url", opts.URL, "ingestion endpoint websocket URL")
	cmd.Flags().IntVar(&opts.VirtualUsers, "vus", opts.VirtualUsers, "concurrent connections")
	cmd.Flags().DurationVar(&opts.Duration, "duration", opts.Duration, "run length")
	cmd.Flags().DurationVar(&opts.Interval, "interval", opts.Interval, "delay between frames per connection")
	return cmd
}
