package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"surveymerge/internal/pipeline"
)

type runOutputJSON struct {
	Kind   string `json:"kind"`
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

type runSideJSON struct {
	File     string   `json:"file"`
	Encoding string   `json:"encoding,omitempty"`
	RowsRead int      `json:"rows_read"`
	RowsKept int      `json:"rows_kept"`
	Dropped  int      `json:"rows_dropped"`
	Columns  int      `json:"columns"`
	Deleted  []string `json:"deleted,omitempty"`
	NotFound []string `json:"not_found,omitempty"`
	Renamed  bool     `json:"renamed"`
}

type runJSON struct {
	RunID        string          `json:"run_id"`
	DryRun       bool            `json:"dry_run"`
	Member       runSideJSON     `json:"member"`
	Spouse       runSideJSON     `json:"spouse"`
	MergedRows   int             `json:"merged_rows"`
	Columns      []string        `json:"columns"`
	Unordered    []string        `json:"unordered,omitempty"`
	Widened      []string        `json:"widened,omitempty"`
	Untyped      []string        `json:"untyped,omitempty"`
	LabelsFilled int             `json:"labels_filled"`
	Outputs      []runOutputJSON `json:"outputs"`
	Warnings     []string        `json:"warnings,omitempty"`
	StartedAt    time.Time       `json:"started_at"`
	DurationMS   int64           `json:"duration_ms"`
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Clean both exports and write the merged file",
		Long: "Read the member and spouse exports, drop blank responses, remove\n" +
			"bookkeeping columns, merge the two, stamp the survey constants and write\n" +
			"the merged system file plus any configured checkpoints and exports.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cmd)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			runner := pipeline.NewRunner(cfg, logger, pipeline.Options{
				DryRun:     dryRun,
				ConfigPath: ctx.configPath,
			})
			result, err := runner.Run(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), runResultJSON(result))
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderRunSummary(result))
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Run every step but write no data files")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the run summary as JSON")
	return cmd
}

func runResultJSON(result *pipeline.Result) runJSON {
	out := runJSON{
		RunID:        result.RunID,
		DryRun:       result.DryRun,
		Member:       runSideResultJSON(result.Member),
		Spouse:       runSideResultJSON(result.Spouse),
		MergedRows:   result.MergedRows,
		Columns:      result.Columns,
		Unordered:    result.Unordered,
		Untyped:      result.Storage.Untyped,
		LabelsFilled: result.LabelsFilled,
		Outputs:      make([]runOutputJSON, 0, len(result.Outputs)),
		Warnings:     result.Warnings,
		StartedAt:    result.StartedAt.UTC(),
		DurationMS:   result.Duration.Milliseconds(),
	}
	out.Widened = append(out.Widened, result.Storage.Numeric...)
	out.Widened = append(out.Widened, result.Storage.String...)
	for _, o := range result.Outputs {
		out.Outputs = append(out.Outputs, runOutputJSON{Kind: o.Kind, Path: o.Path, Size: o.Size, SHA256: o.SHA256})
	}
	return out
}

func runSideResultJSON(side pipeline.SideResult) runSideJSON {
	return runSideJSON{
		File:     side.File,
		Encoding: side.Encoding,
		RowsRead: side.RowsRead,
		RowsKept: side.RowsKept,
		Dropped:  side.Dropped(),
		Columns:  side.Columns,
		Deleted:  side.Deleted,
		NotFound: side.NotFound,
		Renamed:  side.Renamed,
	}
}

func renderRunSummary(result *pipeline.Result) string {
	var b strings.Builder
	title := "Run " + result.RunID
	if result.DryRun {
		title += " (dry run)"
	}
	b.WriteString(title)
	b.WriteString("\n")

	sides := [][]string{
		sideRow("Member", result.Member),
		sideRow("Spouse", result.Spouse),
		{"Merged", "", "", strconv.Itoa(result.MergedRows), "", strconv.Itoa(len(result.Columns))},
	}
	b.WriteString(renderTable(
		[]string{"Side", "Read", "Dropped", "Kept", "Deleted", "Columns"},
		sides,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
	))
	b.WriteString("\n")

	if len(result.Outputs) > 0 {
		rows := make([][]string, 0, len(result.Outputs))
		for _, o := range result.Outputs {
			rows = append(rows, []string{o.Kind, o.Path, formatBytes(o.Size), shortHash(o.SHA256)})
		}
		b.WriteString(renderTable(
			[]string{"Output", "Path", "Size", "SHA-256"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
		))
		b.WriteString("\n")
	} else if result.DryRun {
		b.WriteString("No files written.\n")
	}

	widened := len(result.Storage.Numeric) + len(result.Storage.String)
	b.WriteString(renderDetails([][2]string{
		{"Storage widened", strconv.Itoa(widened)},
		{"Labels filled", strconv.Itoa(result.LabelsFilled)},
		{"Warnings", strconv.Itoa(len(result.Warnings))},
		{"Duration", result.Duration.Round(time.Millisecond).String()},
	}))
	for _, w := range result.Warnings {
		b.WriteString("\n")
		b.WriteString(renderStatusLine("Warning", statusWarn, w, false))
	}
	return b.String()
}

func sideRow(label string, side pipeline.SideResult) []string {
	return []string{
		label,
		strconv.Itoa(side.RowsRead),
		strconv.Itoa(side.Dropped()),
		strconv.Itoa(side.RowsKept),
		strconv.Itoa(len(side.Deleted)),
		strconv.Itoa(side.Columns),
	}
}

func shortHash(sum string) string {
	if len(sum) > 12 {
		return sum[:12]
	}
	return sum
}

func formatBytes(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}
