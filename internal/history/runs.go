package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const runColumns = "id, status, dry_run, config_path, member_file, spouse_file, member_rows, spouse_rows, member_dropped, spouse_dropped, merged_rows, merged_columns, error_message, started_at, finished_at"

// Begin records run as started. An empty ID is filled with a new UUID and a
// zero StartedAt with the current time.
func (s *Store) Begin(ctx context.Context, run *Run) error {
	if run == nil {
		return errors.New("run is nil")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	run.Status = StatusRunning
	run.FinishedAt = nil

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO runs (id, status, dry_run, config_path, member_file, spouse_file, started_at)
             VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID,
			run.Status,
			boolToInt(run.DryRun),
			nullableString(run.ConfigPath),
			nullableString(run.MemberFile),
			nullableString(run.SpouseFile),
			run.StartedAt.UTC().Format(timestampLayout),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Finish stores the final counts, outputs, and status of run. A nil runErr
// marks the run succeeded; otherwise it is failed with the error text.
func (s *Store) Finish(ctx context.Context, run *Run, runErr error) error {
	if run == nil {
		return errors.New("run is nil")
	}
	now := time.Now().UTC()
	run.FinishedAt = &now
	if runErr != nil {
		run.Status = StatusFailed
		run.ErrorMessage = runErr.Error()
	} else {
		run.Status = StatusSucceeded
		run.ErrorMessage = ""
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE runs
             SET status = ?, member_rows = ?, spouse_rows = ?, member_dropped = ?, spouse_dropped = ?,
                 merged_rows = ?, merged_columns = ?, error_message = ?, finished_at = ?
             WHERE id = ?`,
			run.Status,
			run.MemberRows,
			run.SpouseRows,
			run.MemberDropped,
			run.SpouseDropped,
			run.MergedRows,
			run.MergedColumns,
			nullableString(run.ErrorMessage),
			nullableTime(run.FinishedAt),
			run.ID,
		)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("run %s not found", run.ID)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM run_outputs WHERE run_id = ?`, run.ID); err != nil {
			return err
		}
		for i, out := range run.Outputs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO run_outputs (run_id, position, kind, path, size, sha256) VALUES (?, ?, ?, ?, ?, ?)`,
				run.ID, i, out.Kind, out.Path, out.Size, nullableString(out.SHA256),
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// Get fetches a run with its outputs. A missing run returns nil, nil.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	if err := s.loadOutputs(ctx, []*Run{run}); err != nil {
		return nil, err
	}
	return run, nil
}

// Recent lists the newest runs first. A limit <= 0 lists every run.
func (s *Store) Recent(ctx context.Context, limit int) ([]*Run, error) {
	ctx = ensureContext(ctx)
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	if err := s.loadOutputs(ctx, runs); err != nil {
		return nil, err
	}
	return runs, nil
}

func (s *Store) loadOutputs(ctx context.Context, runs []*Run) error {
	for _, run := range runs {
		rows, err := s.db.QueryContext(ctx,
			`SELECT kind, path, size, sha256 FROM run_outputs WHERE run_id = ? ORDER BY position`, run.ID)
		if err != nil {
			return fmt.Errorf("list outputs: %w", err)
		}
		for rows.Next() {
			var (
				out    Output
				digest sql.NullString
			)
			if err := rows.Scan(&out.Kind, &out.Path, &out.Size, &digest); err != nil {
				rows.Close()
				return fmt.Errorf("scan output: %w", err)
			}
			out.SHA256 = digest.String
			run.Outputs = append(run.Outputs, out)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return fmt.Errorf("iterate outputs: %w", err)
		}
	}
	return nil
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run         Run
		status      string
		dryRun      int
		configPath  sql.NullString
		memberFile  sql.NullString
		spouseFile  sql.NullString
		errorMsg    sql.NullString
		startedRaw  string
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&status,
		&dryRun,
		&configPath,
		&memberFile,
		&spouseFile,
		&run.MemberRows,
		&run.SpouseRows,
		&run.MemberDropped,
		&run.SpouseDropped,
		&run.MergedRows,
		&run.MergedColumns,
		&errorMsg,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}
	run.Status = Status(status)
	run.DryRun = dryRun != 0
	run.ConfigPath = configPath.String
	run.MemberFile = memberFile.String
	run.SpouseFile = spouseFile.String
	run.ErrorMessage = errorMsg.String
	if started, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	return &run, nil
}
