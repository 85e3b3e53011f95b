// Package store persists finished runs and their calendars in SQLite so
// reminders can be sent when calendar dates come due.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/abutispinach/agroplan/internal/agent"
)

// fixed-width so stored timestamps sort as text
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type HistoryStore struct {
	DB *sql.DB
}

func NewHistoryStore(dbPath string) (*HistoryStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// one writer keeps concurrent gateway runs from hitting SQLITE_BUSY
	db.SetMaxOpenConns(1)

	// Create tables if not exist
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			channel TEXT,
			chat_id TEXT,
			crop TEXT,
			location TEXT,
			start_date TEXT,
			weather TEXT,
			status TEXT,
			error TEXT,
			started_at TEXT,
			finished_at TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS step_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT REFERENCES runs(run_id),
			position INTEGER,
			step_id TEXT,
			role TEXT,
			output TEXT,
			elapsed_ms INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS calendar_entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT REFERENCES runs(run_id),
			date TEXT,
			task TEXT,
			details TEXT,
			tip TEXT,
			fallback INTEGER DEFAULT 0,
			reminded INTEGER DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_calendar_due ON calendar_entries (reminded, date);`,
	}
	for _, q := range queries {
		_, err = db.Exec(q)
		if err != nil {
			db.Close()
			return nil, err
		}
	}

	return &HistoryStore{DB: db}, nil
}

func (h *HistoryStore) Close() error {
	return h.DB.Close()
}

// RecordRun stores a finished run with its step outputs and calendar.
func (h *HistoryStore) RecordRun(ctx context.Context, r *agent.Report) error {
	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	status, errText := "completed", ""
	if r.Err != nil {
		status, errText = "failed", r.Err.Error()
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, channel, chat_id, crop, location, start_date, weather, status, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Channel, r.ChatID, r.Context.Crop, r.Context.Location,
		r.Context.StartDate.Format(agent.DateLayout), r.Weather.Summary(), status, errText,
		r.StartedAt.UTC().Format(timeLayout), r.FinishedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, s := range r.Results {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO step_results (run_id, position, step_id, role, output, elapsed_ms) VALUES (?, ?, ?, ?, ?, ?)`,
			r.RunID, i, s.StepID, s.Role, s.Output, s.Elapsed.Milliseconds())
		if err != nil {
			return fmt.Errorf("insert step %s: %w", s.StepID, err)
		}
	}

	for _, e := range r.Calendar {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO calendar_entries (run_id, date, task, details, tip, fallback) VALUES (?, ?, ?, ?, ?, ?)`,
			r.RunID, e.Date, e.Task, e.Details, e.Tip, e.Fallback)
		if err != nil {
			return fmt.Errorf("insert calendar entry: %w", err)
		}
	}

	return tx.Commit()
}

// ListRuns returns the most recent runs first.
func (h *HistoryStore) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	query := `
		SELECT r.run_id, r.channel, r.chat_id, r.crop, r.location, r.start_date, r.weather,
			r.status, r.error, r.started_at, r.finished_at,
			(SELECT COUNT(*) FROM step_results s WHERE s.run_id = r.run_id),
			(SELECT COUNT(*) FROM calendar_entries c WHERE c.run_id = r.run_id),
			(SELECT COUNT(*) FROM calendar_entries c WHERE c.run_id = r.run_id AND c.fallback = 1)
		FROM runs r
		ORDER BY r.started_at DESC
		LIMIT ?`
	rows, err := h.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var s RunSummary
		var started, finished string
		if err := rows.Scan(&s.RunID, &s.Channel, &s.ChatID, &s.Crop, &s.Location, &s.StartDate, &s.Weather,
			&s.Status, &s.Error, &started, &finished, &s.Steps, &s.Entries, &s.Fallbacks); err != nil {
			return nil, err
		}
		s.StartedAt, _ = time.Parse(timeLayout, started)
		s.FinishedAt, _ = time.Parse(timeLayout, finished)
		runs = append(runs, s)
	}
	return runs, rows.Err()
}

// RunSteps returns a run's step outputs in execution order.
func (h *HistoryStore) RunSteps(ctx context.Context, runID string) ([]StepRecord, error) {
	rows, err := h.DB.QueryContext(ctx,
		`SELECT position, step_id, role, output, elapsed_ms FROM step_results WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []StepRecord
	for rows.Next() {
		var s StepRecord
		if err := rows.Scan(&s.Position, &s.StepID, &s.Role, &s.Output, &s.ElapsedMS); err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}
	return steps, rows.Err()
}

// DueReminders returns unsent, dated calendar entries on or before day for
// runs that came from a chat. Fallback entries carry no real date and are
// never reminded.
func (h *HistoryStore) DueReminders(ctx context.Context, day string) ([]agent.Reminder, error) {
	query := `
		SELECT c.id, r.channel, r.chat_id, r.crop, r.location, c.date, c.task, c.details, c.tip
		FROM calendar_entries c
		JOIN runs r ON r.run_id = c.run_id
		WHERE c.reminded = 0
		AND c.fallback = 0
		AND r.chat_id != ''
		AND c.date GLOB '[0-9][0-9][0-9][0-9]-[0-9][0-9]-[0-9][0-9]'
		AND c.date <= ?
		ORDER BY c.date, c.id`
	rows, err := h.DB.QueryContext(ctx, query, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var due []agent.Reminder
	for rows.Next() {
		var r agent.Reminder
		if err := rows.Scan(&r.ID, &r.Channel, &r.ChatID, &r.Crop, &r.Location, &r.Date, &r.Task, &r.Details, &r.Tip); err != nil {
			return nil, err
		}
		due = append(due, r)
	}
	return due, rows.Err()
}

func (h *HistoryStore) MarkReminded(ctx context.Context, id int64) error {
	_, err := h.DB.ExecContext(ctx, `UPDATE calendar_entries SET reminded = 1 WHERE id = ?`, id)
	return err
}
