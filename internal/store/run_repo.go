package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/cdcat/internal/cat"
)

// RunSummary is one row of the run listing.
type RunSummary struct {
	ID        string
	CreatedAt time.Time
	Mode      string
	Strategy  string
	Examinees int
}

// RunRepo stores and retrieves batch runs with their resolved
// configuration for provenance.
type RunRepo interface {
	// Save persists a run and all its per-examinee results.
	Save(ctx context.Context, id string, createdAt time.Time, out *cat.RunResult) error

	// List returns run summaries, most recent first.
	List(ctx context.Context) ([]RunSummary, error)

	// Load retrieves a full run by ID.
	Load(ctx context.Context, id string) (*cat.RunResult, error)
}

type runRepo struct {
	db *sql.DB
}

func (r *runRepo) Save(ctx context.Context, id string, createdAt time.Time, out *cat.RunResult) error {
	cfgJSON, err := json.Marshal(out.Config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, mode, strategy, examinees, config) VALUES (?, ?, ?, ?, ?, ?)`,
		id, createdAt.UTC().Format(time.RFC3339Nano), string(out.Config.Mode), out.Config.Strategy, len(out.Results), string(cfgJSON))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_results (run_id, examinee, items, trace, error) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare result insert: %w", err)
	}
	defer stmt.Close()

	for _, res := range out.Results {
		itemsJSON, err := json.Marshal(res.Items)
		if err != nil {
			return fmt.Errorf("marshal items for examinee %d: %w", res.Examinee, err)
		}
		traceJSON, err := json.Marshal(res.Steps)
		if err != nil {
			return fmt.Errorf("marshal trace for examinee %d: %w", res.Examinee, err)
		}
		if _, err := stmt.ExecContext(ctx, id, res.Examinee, string(itemsJSON), string(traceJSON), res.Err); err != nil {
			return fmt.Errorf("insert result for examinee %d: %w", res.Examinee, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

func (r *runRepo) List(ctx context.Context) ([]RunSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, created_at, mode, strategy, examinees FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		var created string
		if err := rows.Scan(&s.ID, &created, &s.Mode, &s.Strategy, &s.Examinees); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		s.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("parse run timestamp %q: %w", created, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *runRepo) Load(ctx context.Context, id string) (*cat.RunResult, error) {
	var cfgJSON string
	err := r.db.QueryRowContext(ctx, `SELECT config FROM runs WHERE id = ?`, id).Scan(&cfgJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}

	var out cat.RunResult
	if err := json.Unmarshal([]byte(cfgJSON), &out.Config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT examinee, items, trace, error FROM run_results WHERE run_id = ? ORDER BY examinee`, id)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var res cat.Result
		var itemsJSON, traceJSON string
		if err := rows.Scan(&res.Examinee, &itemsJSON, &traceJSON, &res.Err); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if err := json.Unmarshal([]byte(itemsJSON), &res.Items); err != nil {
			return nil, fmt.Errorf("decode items for examinee %d: %w", res.Examinee, err)
		}
		if err := json.Unmarshal([]byte(traceJSON), &res.Steps); err != nil {
			return nil, fmt.Errorf("decode trace for examinee %d: %w", res.Examinee, err)
		}
		out.Results = append(out.Results, res)
	}
	return &out, rows.Err()
}
