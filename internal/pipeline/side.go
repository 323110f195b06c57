package pipeline

import (
	"context"
	"fmt"

	"surveymerge/internal/dataset"
	"surveymerge/internal/logging"
	"surveymerge/internal/sav"
)

type cleanedSide struct {
	data    *dataset.Dataset
	summary SideResult
}

// cleanSide loads one export, drops unanswered rows and unneeded columns,
// writes the checkpoint, then applies the rename.
func (r *Runner) cleanSide(ctx context.Context, result *Result, side, path, cleanedPath, outputKind string) (*cleanedSide, error) {
	ctx = logging.WithSide(ctx, side)
	logger := logging.WithContext(ctx, r.logger)

	ds, info, err := sav.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s export: %w", side, err)
	}
	summary := SideResult{
		Side:     side,
		File:     path,
		Encoding: info.Encoding,
		RowsRead: ds.Table.NumRows(),
	}
	logger.Info("export loaded",
		logging.String("path", path),
		logging.Int("rows", summary.RowsRead),
		logging.Int("columns", ds.Table.NumColumns()),
		logging.String("encoding", info.Encoding),
		logging.Bool("compressed", info.Compressed),
	)

	rng := dataset.ColumnRange{Start: r.cfg.Cleaning.CheckStart, End: r.cfg.Cleaning.CheckEnd}
	checked := rng.Names(ds.Table)
	if want := rng.End - rng.Start; len(checked) < want {
		r.warn(logger, result, fmt.Sprintf("%s export has fewer answer columns than the check range", side), "check_range_clamped",
			logging.Int("expected", want),
			logging.Int("available", len(checked)),
		)
	}
	summary.RowsKept = ds.FilterMissingRows(rng, r.cfg.Cleaning.MissingSentinels)
	logger.Info("unanswered rows dropped",
		logging.Int("kept", summary.RowsKept),
		logging.Int("dropped", summary.Dropped()),
		logging.Int("checked_columns", len(checked)),
	)

	report := ds.DeleteColumns(r.cfg.Cleaning.DeleteColumns)
	summary.Deleted = report.Deleted
	summary.NotFound = report.Missing
	if len(report.Missing) > 0 {
		r.warn(logger, result, fmt.Sprintf("%s export lacks columns listed for deletion", side), "delete_missing",
			logging.Strings("columns", report.Missing),
			logging.String(logging.FieldImpact, "nothing to delete for these names"),
		)
	}
	logger.Debug("columns deleted", logging.Strings("columns", report.Deleted))

	if r.cfg.Output.WriteCleaned && !r.opts.DryRun {
		digest, err := sav.WriteFile(cleanedPath, ds, r.writeOptions())
		if err != nil {
			return nil, fmt.Errorf("write cleaned %s export: %w", side, err)
		}
		summary.CleanedFile = cleanedPath
		r.recordOutput(logger, result, outputKind, cleanedPath, digest)
	}

	if from, to := r.cfg.Cleaning.RenameFrom, r.cfg.Cleaning.RenameTo; from != "" {
		renamed, err := ds.RenameColumn(from, to)
		if err != nil {
			return nil, fmt.Errorf("rename in %s export: %w", side, err)
		}
		summary.Renamed = renamed
		if !renamed {
			r.warn(logger, result, fmt.Sprintf("%s export has no column to rename", side), "rename_missing",
				logging.String("from", from),
				logging.String("to", to),
			)
		}
	}

	summary.Columns = ds.Table.NumColumns()
	return &cleanedSide{data: ds, summary: summary}, nil
}
