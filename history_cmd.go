package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/ytup-go/internal/history"
)

const defaultHistoryLimit = 20

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent upload attempts",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runHistory(limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", defaultHistoryLimit, "number of attempts to show")

	return cmd
}

func runHistory(limit int) error {
	if !resolvedCfg.History.Enabled {
		return fmt.Errorf("history is disabled in the config file")
	}

	logger := buildLogger()

	ledger, err := history.Open(resolvedCfg.History.Database, logger)
	if err != nil {
		return fmt.Errorf("opening history database: %w", err)
	}
	defer ledger.Close()

	attempts, err := ledger.Recent(context.Background(), limit)
	if err != nil {
		return err
	}

	if len(attempts) == 0 {
		statusf("No attempts recorded yet.\n")
		return nil
	}

	rows := make([][]string, 0, len(attempts))

	for _, a := range attempts {
		detail := a.VideoID
		if a.Error != "" {
			detail = a.Error
		}

		rows = append(rows, []string{
			formatTime(a.StartedAt),
			a.Filename,
			a.Account,
			a.Status,
			detail,
		})
	}

	printTable(os.Stdout, []string{"STARTED", "FILE", "ACCOUNT", "STATUS", "DETAIL"}, rows)

	return nil
}
