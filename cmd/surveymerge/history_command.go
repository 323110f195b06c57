package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"surveymerge/internal/history"
)

type historyOutputJSON struct {
	Kind   string `json:"kind"`
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

type historyRunJSON struct {
	ID            string              `json:"id"`
	Status        string              `json:"status"`
	DryRun        bool                `json:"dry_run"`
	ConfigPath    string              `json:"config_path,omitempty"`
	MemberFile    string              `json:"member_file"`
	SpouseFile    string              `json:"spouse_file"`
	MemberRows    int                 `json:"member_rows"`
	SpouseRows    int                 `json:"spouse_rows"`
	MemberDropped int                 `json:"member_dropped"`
	SpouseDropped int                 `json:"spouse_dropped"`
	MergedRows    int                 `json:"merged_rows"`
	MergedColumns int                 `json:"merged_columns"`
	Error         string              `json:"error,omitempty"`
	StartedAt     time.Time           `json:"started_at"`
	FinishedAt    *time.Time          `json:"finished_at,omitempty"`
	Outputs       []historyOutputJSON `json:"outputs"`
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs from the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg.HistoryPath())
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}

			if jsonOutput {
				items := make([]historyRunJSON, 0, len(runs))
				for _, run := range runs {
					items = append(items, historyJSON(run))
				}
				return writeJSON(cmd.OutOrStdout(), items)
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Started", "Status", "Member", "Spouse", "Merged", "Columns", "Duration"},
				historyRows(runs),
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show (0 for all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output runs as JSON")
	return cmd
}

func historyRows(runs []*history.Run) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		status := string(run.Status)
		if run.DryRun {
			status += " (dry)"
		}
		duration := "-"
		if run.FinishedAt != nil {
			duration = run.Duration().Round(time.Millisecond).String()
		}
		rows = append(rows, []string{
			shortRunID(run.ID),
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			status,
			fmt.Sprintf("%d (-%d)", run.MemberRows, run.MemberDropped),
			fmt.Sprintf("%d (-%d)", run.SpouseRows, run.SpouseDropped),
			strconv.Itoa(run.MergedRows),
			strconv.Itoa(run.MergedColumns),
			duration,
		})
	}
	return rows
}

func historyJSON(run *history.Run) historyRunJSON {
	item := historyRunJSON{
		ID:            run.ID,
		Status:        string(run.Status),
		DryRun:        run.DryRun,
		ConfigPath:    run.ConfigPath,
		MemberFile:    run.MemberFile,
		SpouseFile:    run.SpouseFile,
		MemberRows:    run.MemberRows,
		SpouseRows:    run.SpouseRows,
		MemberDropped: run.MemberDropped,
		SpouseDropped: run.SpouseDropped,
		MergedRows:    run.MergedRows,
		MergedColumns: run.MergedColumns,
		Error:         run.ErrorMessage,
		StartedAt:     run.StartedAt.UTC(),
		FinishedAt:    run.FinishedAt,
		Outputs:       make([]historyOutputJSON, 0, len(run.Outputs)),
	}
	for _, o := range run.Outputs {
		item.Outputs = append(item.Outputs, historyOutputJSON{Kind: o.Kind, Path: o.Path, Size: o.Size, SHA256: o.SHA256})
	}
	return item
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
