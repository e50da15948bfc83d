package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/user/product-image-updater/internal/adapter/postgres"
	"github.com/user/product-image-updater/internal/entity"
)

func newFailuresCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "failures",
		Short: "List products whose most recent image update failed",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 1 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}
			s, err := setup(cmd)
			if err != nil {
				return err
			}
			defer s.logFile.Close()

			conn, closeDB, err := openDatabase(cmd.Context(), s.cfg)
			if err != nil {
				return err
			}
			defer closeDB()

			failed, err := postgres.NewFailedRecordRepo(conn.db).ListRecent(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("failed to list failed products: %w", err)
			}
			return printFailures(cmd, failed)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of rows to show")

	return cmd
}

func printFailures(cmd *cobra.Command, failed []*entity.FailedRecord) error {
	if len(failed) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No failed products recorded.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRODUCT\tSTATUS\tRETRIES\tLAST ATTEMPT\tREASON")
	for _, f := range failed {
		fmt.Fprintf(w, "%d\t%d\t%d\t%s\t%s\n",
			f.ProductID,
			f.HTTPStatusCode,
			f.RetryCount,
			f.LastAttemptTimestamp.Format(time.RFC3339),
			f.FailureReason,
		)
	}
	return w.Flush()
}
