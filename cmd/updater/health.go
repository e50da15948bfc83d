package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/user/product-image-updater/internal/adapter/imageapi"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the Product Image API is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := setup(cmd)
			if err != nil {
				return err
			}
			defer s.logFile.Close()

			client, err := imageapi.NewClient(imageapi.Options{
				BaseURL: s.cfg.APIBaseURL,
				APIKey:  s.cfg.APIKey,
				Timeout: s.cfg.RequestTimeout,
			})
			if err != nil {
				return err
			}

			status, err := client.Health(cmd.Context())
			if err != nil {
				return err
			}
			slog.Info("API is healthy", "api_base_url", s.cfg.APIBaseURL, "status", status)
			fmt.Fprintf(cmd.OutOrStdout(), "API is healthy (HTTP %d)\n", status)
			return nil
		},
	}
}
