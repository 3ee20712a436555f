// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"

	"github.com/ManuGH/rtsnap/internal/config"
	xglog "github.com/ManuGH/rtsnap/internal/log"
	"github.com/spf13/cobra"
)

func newValidateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the stream configuration file and runtime settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt := opts.runtime()
			if err := rt.Validate(); err != nil {
				return fmt.Errorf("invalid settings: %w", err)
			}
			streams, err := config.Load(rt.ConfigPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "%s: %d stream(s)\n", rt.ConfigPath, len(streams))
			for _, def := range streams {
				_, _ = fmt.Fprintf(out, "  %s\t%s\n", def.Name, xglog.RedactURL(def.URL))
			}
			return nil
		},
	}
}
