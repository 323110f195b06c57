package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"surveymerge/internal/config"
	"surveymerge/internal/dataset"
	"surveymerge/internal/export"
	"surveymerge/internal/fileutil"
	"surveymerge/internal/history"
	"surveymerge/internal/logging"
	"surveymerge/internal/preflight"
	"surveymerge/internal/sav"
)

// ErrLocked reports that another run holds the state directory lock.
var ErrLocked = errors.New("another surveymerge run is in progress")

// Output kinds recorded in history.
const (
	OutputMerged        = "merged"
	OutputCleanedMember = "cleaned_member"
	OutputCleanedSpouse = "cleaned_spouse"
	OutputMetadata      = "metadata"
	OutputParquet       = "parquet"
)

// Options tune a single run.
type Options struct {
	// DryRun performs every transformation but writes no data files. The
	// run is still locked and recorded in history.
	DryRun bool
	// ConfigPath is recorded in history for reference.
	ConfigPath string
}

// Runner executes merge runs for one configuration.
type Runner struct {
	cfg    *config.Config
	logger *slog.Logger
	opts   Options
}

// NewRunner builds a runner. A nil logger discards output.
func NewRunner(cfg *config.Config, logger *slog.Logger, opts Options) *Runner {
	return &Runner{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "pipeline"),
		opts:   opts,
	}
}

// Run performs one full merge. Every failure is fatal to the run; files
// already written stay in place and the ledger records the error.
func (r *Runner) Run(ctx context.Context) (result *Result, err error) {
	if r.cfg == nil {
		return nil, errors.New("pipeline requires config")
	}
	started := time.Now()
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, r.logger)

	if err := os.MkdirAll(r.cfg.Paths.StateDir, 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	lock := flock.New(r.cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrLocked, r.cfg.LockPath())
	}
	defer func() {
		if unlockErr := lock.Unlock(); unlockErr != nil {
			logger.Warn("failed to release run lock", logging.Error(unlockErr))
		}
	}()

	if err := preflight.Err(preflight.RunAll(ctx, r.cfg)); err != nil {
		return nil, err
	}

	ledger, err := history.Open(r.cfg.HistoryPath())
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer ledger.Close()

	record := &history.Run{
		ID:         runID,
		DryRun:     r.opts.DryRun,
		ConfigPath: r.opts.ConfigPath,
		MemberFile: r.cfg.Paths.MemberFile,
		SpouseFile: r.cfg.Paths.SpouseFile,
		StartedAt:  started.UTC(),
	}
	if err := ledger.Begin(ctx, record); err != nil {
		return nil, err
	}

	result = &Result{RunID: runID, DryRun: r.opts.DryRun, StartedAt: started}
	defer func() {
		result.Duration = time.Since(started)
		record.MemberRows = result.Member.RowsRead
		record.SpouseRows = result.Spouse.RowsRead
		record.MemberDropped = result.Member.Dropped()
		record.SpouseDropped = result.Spouse.Dropped()
		record.MergedRows = result.MergedRows
		record.MergedColumns = len(result.Columns)
		record.Outputs = result.Outputs
		// Finish must land even when ctx was cancelled mid-run.
		if finishErr := ledger.Finish(context.WithoutCancel(ctx), record, err); finishErr != nil {
			logger.Warn("failed to record run in history", logging.Error(finishErr))
		}
		if err != nil {
			logger.Error("merge run failed", logging.Error(err), logging.Duration("elapsed", result.Duration))
			result = nil
			return
		}
		logger.Info("merge run complete",
			logging.Int("rows", result.MergedRows),
			logging.Int("columns", len(result.Columns)),
			logging.Int("outputs", len(result.Outputs)),
			logging.Duration("elapsed", result.Duration),
		)
	}()

	logger.Info("merge run started",
		logging.String("member_file", r.cfg.Paths.MemberFile),
		logging.String("spouse_file", r.cfg.Paths.SpouseFile),
		logging.Bool("dry_run", r.opts.DryRun),
	)

	member, err := r.cleanSide(ctx, result, SideMember, r.cfg.Paths.MemberFile, r.cfg.Paths.CleanedMemberFile, OutputCleanedMember)
	if err != nil {
		return result, err
	}
	result.Member = member.summary
	spouse, err := r.cleanSide(ctx, result, SideSpouse, r.cfg.Paths.SpouseFile, r.cfg.Paths.CleanedSpouseFile, OutputCleanedSpouse)
	if err != nil {
		return result, err
	}
	result.Spouse = spouse.summary

	merged, err := r.merge(ctx, result, member.data, spouse.data)
	if err != nil {
		return result, err
	}

	if err := r.writeOutputs(ctx, result, merged); err != nil {
		return result, err
	}
	return result, nil
}

// merge stacks the cleaned sides and shapes the merged dictionary.
func (r *Runner) merge(ctx context.Context, result *Result, member, spouse *dataset.Dataset) (*dataset.Dataset, error) {
	logger := logging.WithContext(ctx, r.logger)

	merged, err := dataset.Merge(member, spouse)
	if err != nil {
		return nil, fmt.Errorf("merge exports: %w", err)
	}

	columns, err := constantColumns(r.cfg.Survey, counts{member: result.Member.RowsKept, spouse: result.Spouse.RowsKept})
	if err != nil {
		return nil, err
	}
	if err := merged.AddColumns(columns); err != nil {
		return nil, fmt.Errorf("add constant columns: %w", err)
	}
	merged.Sync()

	result.Unordered = merged.Reorder(r.cfg.Cleaning.ColumnOrder)
	if len(result.Unordered) > 0 {
		r.warn(logger, result, "ordered columns not present in merged file", "column_order_missing",
			logging.Strings("columns", result.Unordered))
	}

	result.Storage = merged.NormalizeStorage(r.cfg.Cleaning.StorageStart)
	merged.Sync()
	logger.Info("storage formats normalized",
		logging.Int("start", r.cfg.Cleaning.StorageStart),
		logging.Int("numeric", len(result.Storage.Numeric)),
		logging.Int("string", len(result.Storage.String)),
		logging.Int("unchanged", len(result.Storage.Unchanged)),
	)
	if len(result.Storage.Untyped) > 0 {
		r.warn(logger, result, "columns without a format were not normalized", "storage_untyped",
			logging.Strings("columns", result.Storage.Untyped))
	}

	result.LabelsFilled = merged.FillDefaultLabels()
	result.MergedRows = merged.Table.NumRows()
	result.Columns = merged.Columns()
	logger.Info("exports merged",
		logging.Int("rows", result.MergedRows),
		logging.Int("columns", len(result.Columns)),
		logging.Int("labels_filled", result.LabelsFilled),
	)
	return merged, nil
}

func (r *Runner) writeOutputs(ctx context.Context, result *Result, merged *dataset.Dataset) error {
	logger := logging.WithContext(ctx, r.logger)
	if r.opts.DryRun {
		logger.Info("dry run, skipping merged outputs", logging.String("output_file", r.cfg.Paths.OutputFile))
		return nil
	}

	digest, err := sav.WriteFile(r.cfg.Paths.OutputFile, merged, r.writeOptions())
	if err != nil {
		return err
	}
	r.recordOutput(logger, result, OutputMerged, r.cfg.Paths.OutputFile, digest)

	if path := r.cfg.Paths.MetadataFile; path != "" {
		digest, err := export.WriteMetadata(path, export.NewDocument(merged, result.RunID, r.cfg.Paths.OutputFile))
		if err != nil {
			return err
		}
		r.recordOutput(logger, result, OutputMetadata, path, digest)
	}
	if path := r.cfg.Paths.ParquetFile; path != "" {
		digest, err := export.WriteParquet(path, merged)
		if err != nil {
			return err
		}
		r.recordOutput(logger, result, OutputParquet, path, digest)
	}
	return nil
}

func (r *Runner) writeOptions() sav.WriteOptions {
	return sav.WriteOptions{
		Compress: r.cfg.Output.Compress,
		Product:  r.cfg.Output.Product,
	}
}

func (r *Runner) recordOutput(logger *slog.Logger, result *Result, kind, path string, digest fileutil.Digest) {
	result.Outputs = append(result.Outputs, history.Output{Kind: kind, Path: path, Size: digest.Size, SHA256: digest.SHA256})
	logger.Info("file written",
		logging.String("kind", kind),
		logging.String("path", path),
		logging.Int64("bytes", digest.Size),
	)
}

func (r *Runner) warn(logger *slog.Logger, result *Result, msg, eventType string, attrs ...logging.Attr) {
	result.Warnings = append(result.Warnings, msg)
	logging.WarnWithContext(logger, msg, eventType, attrs...)
}
