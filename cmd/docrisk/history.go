package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"doc-risk-eval/internal/store"
	"doc-risk-eval/internal/view"
)

func newHistoryCmd(opts *options) *cobra.Command {
	var (
		limit    int
		status   string
		filename string
		asJSON   bool
		clearAll bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded analyses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := opts.openHistory()
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			if db == nil {
				return errors.New("analysis history is disabled; pass --history or set DOCRISK_HISTORY_PATH")
			}
			defer db.Close()

			if clearAll {
				if err := db.ClearAnalyses(cmd.Context()); err != nil {
					return fmt.Errorf("clear history: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "analysis history cleared")
				return nil
			}

			rows, total, err := db.ListAnalyses(cmd.Context(), store.HistoryQuery{
				Filename: filename,
				Status:   status,
				Limit:    limit,
			})
			if err != nil {
				return err
			}
			if asJSON {
				return view.WriteJSON(cmd.OutOrStdout(), rows)
			}
			fmt.Fprintln(cmd.OutOrStdout(), historyTable(rows))
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d analyses\n", len(rows), total)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of analyses to show")
	cmd.Flags().StringVar(&status, "status", "", "filter by status (completed, failed)")
	cmd.Flags().StringVar(&filename, "file", "", "filter by filename substring")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print rows as JSON")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "delete every recorded analysis")
	return cmd
}

func historyTable(rows []store.Analysis) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("WHEN", "FILE", "STATUS", "SCORE", "CLAUSES", "ERROR")
	for _, row := range rows {
		t.Row(
			row.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			row.Filename,
			row.Status,
			row.Score,
			strconv.Itoa(row.ClauseCount),
			row.ErrorMessage,
		)
	}
	return t.String()
}
