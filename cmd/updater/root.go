package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/user/product-image-updater/pkg/config"
	"github.com/user/product-image-updater/pkg/logger"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "updater",
		Short: "Fill in missing product images from the Product Image API",
		Long: `Updater finds products without an image, asks the Product Image API to
generate one for each, and stores the returned URL on the product.

Settings come from flags, environment variables and an optional .env file.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	config.BindFlags(cmd.PersistentFlags())

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newHealthCmd())
	cmd.AddCommand(newFailuresCmd())

	return cmd
}

// session is the state every subcommand starts from.
type session struct {
	cfg     *config.Config
	runID   string
	logFile io.Closer
}

// setup loads the configuration and installs the process logger, tagged with
// a fresh run id.
func setup(cmd *cobra.Command) (*session, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logFile, err := logger.InitWithFile(os.Stdout, logger.ParseLevel(cfg.LogLevel), cfg.LogFile)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	slog.SetDefault(slog.Default().With("run_id", runID))
	return &session{cfg: cfg, runID: runID, logFile: logFile}, nil
}
