// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/relabs-tech/balance_board/internal/calibration"
	"github.com/relabs-tech/balance_board/internal/report"

	_ "modernc.org/sqlite" // SQLite driver.
)

// timeLayout has a fixed width so stored times sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// History keeps every finished calibration in SQLite.
type History struct {
	db *sql.DB
}

// OpenHistory opens or creates the database at path and applies migrations.
func OpenHistory(path string) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	h := &History{db: db}
	if err := h.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history migrate: %w", err)
	}
	return h, nil
}

// Close closes the underlying database.
func (h *History) Close() error {
	return h.db.Close()
}

func (h *History) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS calibrations (
			run_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			game_name TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			target_order TEXT NOT NULL,
			factor_left REAL NOT NULL,
			factor_right REAL NOT NULL,
			factor_top REAL NOT NULL,
			factor_bottom REAL NOT NULL,
			total_samples INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS calibration_samples (
			run_id TEXT NOT NULL,
			direction TEXT NOT NULL,
			samples INTEGER NOT NULL,
			PRIMARY KEY (run_id, direction)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_calibrations_user_ended ON calibrations(user_id, ended_at);`,
	}
	for _, stmt := range stmts {
		if _, err := h.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Save stores rec and its per-target sample counts.
func (h *History) Save(ctx context.Context, rec report.Record) (err error) {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO calibrations (run_id, user_id, game_name, started_at, ended_at, target_order,
			factor_left, factor_right, factor_top, factor_bottom, total_samples)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID,
		rec.UserID,
		rec.GameName,
		rec.StartedAt.UTC().Format(timeLayout),
		rec.EndedAt.UTC().Format(timeLayout),
		formatOrder(rec.Order),
		rec.Factors.Left,
		rec.Factors.Right,
		rec.Factors.Top,
		rec.Factors.Bottom,
		rec.TotalSamples,
	)
	if err != nil {
		return fmt.Errorf("insert calibration %s: %w", rec.RunID, err)
	}

	for d, n := range rec.SampleCounts {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO calibration_samples (run_id, direction, samples) VALUES (?, ?, ?)`,
			rec.RunID, d.String(), n,
		); err != nil {
			return fmt.Errorf("insert sample count: %w", err)
		}
	}
	return tx.Commit()
}

// ErrNoHistory is returned by Latest when the user has no record.
var ErrNoHistory = errors.New("no calibration history")

// Latest returns the most recent calibration of user.
func (h *History) Latest(ctx context.Context, user string) (report.Record, error) {
	recs, err := h.List(ctx, user, 1)
	if err != nil {
		return report.Record{}, err
	}
	if len(recs) == 0 {
		return report.Record{}, fmt.Errorf("%w for %s", ErrNoHistory, user)
	}
	return recs[0], nil
}

// List returns up to limit calibrations, newest first. An empty user lists
// every user.
func (h *History) List(ctx context.Context, user string, limit int) ([]report.Record, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := h.db.QueryContext(ctx,
		`SELECT run_id, user_id, game_name, started_at, ended_at, target_order,
			factor_left, factor_right, factor_top, factor_bottom, total_samples
		 FROM calibrations
		 WHERE (? = '' OR user_id = ?)
		 ORDER BY ended_at DESC
		 LIMIT ?`,
		user, user, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []report.Record
	for rows.Next() {
		var (
			rec            report.Record
			started, ended string
			order          string
		)
		if err := rows.Scan(&rec.RunID, &rec.UserID, &rec.GameName, &started, &ended, &order,
			&rec.Factors.Left, &rec.Factors.Right, &rec.Factors.Top, &rec.Factors.Bottom,
			&rec.TotalSamples); err != nil {
			return nil, err
		}
		if rec.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("run %s: started_at: %w", rec.RunID, err)
		}
		if rec.EndedAt, err = time.Parse(timeLayout, ended); err != nil {
			return nil, fmt.Errorf("run %s: ended_at: %w", rec.RunID, err)
		}
		if rec.Order, err = calibration.ParseOrder(order); err != nil {
			return nil, fmt.Errorf("run %s: %w", rec.RunID, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		counts, err := h.sampleCounts(ctx, out[i].RunID)
		if err != nil {
			return nil, err
		}
		out[i].SampleCounts = counts
	}
	return out, nil
}

func (h *History) sampleCounts(ctx context.Context, runID string) (map[calibration.Direction]int, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT direction, samples FROM calibration_samples WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[calibration.Direction]int)
	for rows.Next() {
		var (
			name string
			n    int
		)
		if err := rows.Scan(&name, &n); err != nil {
			return nil, err
		}
		d, err := calibration.ParseDirection(name)
		if err != nil {
			return nil, fmt.Errorf("run %s: %w", runID, err)
		}
		counts[d] = n
	}
	return counts, rows.Err()
}

func formatOrder(order []calibration.Direction) string {
	names := make([]string, len(order))
	for i, d := range order {
		names[i] = d.String()
	}
	return strings.Join(names, ",")
}
