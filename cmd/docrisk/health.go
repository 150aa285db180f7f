package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"doc-risk-eval/internal/analysis"
)

func newHealthCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the analysis service is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := opts.client()
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			health, err := client.Health(ctx)
			if err != nil {
				var network *analysis.NetworkError
				if errors.As(err, &network) && network.Unreachable {
					return fmt.Errorf("analysis service at %s is unreachable: %w", client.BaseURL(), network.Err)
				}
				return fmt.Errorf("analysis service at %s: %w", client.BaseURL(), err)
			}
			status := health.Status
			if status == "" {
				status = "ok"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "analysis service at %s: %s\n", client.BaseURL(), status)
			return nil
		},
	}
}
