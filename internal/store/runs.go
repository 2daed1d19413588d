package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SaveRun stores r and returns its id. A missing id is filled with a new UUID.
func (s *SQLiteStore) SaveRun(ctx context.Context, r *Run) (string, error) {
	if r == nil || r.Result == nil {
		return "", fmt.Errorf("saving run: no result")
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.NClust = r.Result.NClust

	params, err := json.Marshal(r.Params)
	if err != nil {
		return "", fmt.Errorf("encoding run params: %w", err)
	}
	result, err := json.Marshal(r.Result)
	if err != nil {
		return "", fmt.Errorf("encoding run result: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO map_runs (id, network_id, params_json, result_json, nclust, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.NetworkID, string(params), string(result), r.NClust, now,
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}
	r.CreatedAt = now
	return r.ID, nil
}

// GetRun returns the run with its full result.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	r := &Run{}
	var params, result string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, network_id, params_json, result_json, nclust, created_at
		 FROM map_runs WHERE id = ?`, id,
	).Scan(&r.ID, &r.NetworkID, &params, &result, &r.NClust, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting run %s: %w", id, err)
	}

	if err := json.Unmarshal([]byte(params), &r.Params); err != nil {
		return nil, fmt.Errorf("decoding run params: %w", err)
	}
	if err := json.Unmarshal([]byte(result), &r.Result); err != nil {
		return nil, fmt.Errorf("decoding run result: %w", err)
	}
	return r, nil
}

// ListRuns returns the newest runs without their results.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, network_id, params_json, nclust, created_at
		 FROM map_runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []*Run
	for rows.Next() {
		r := &Run{}
		var params string
		if err := rows.Scan(&r.ID, &r.NetworkID, &params, &r.NClust, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if err := json.Unmarshal([]byte(params), &r.Params); err != nil {
			return nil, fmt.Errorf("decoding run params: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteRun removes a run. Deleting a missing run is an error.
func (s *SQLiteStore) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM map_runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting run %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("run %s not found", id)
	}
	return nil
}
