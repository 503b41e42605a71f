// Package history is the structured task-history store: one SQLite row
// per completed or failed task. The lifecycle engine writes a row on
// every terminal transition; the HTTP surface reads recent rows.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Shivay00001/RemotePilot/pkg/types"
)

// Entry is one terminal task record.
type Entry struct {
	ID         string     `json:"id" db:"id"`
	Goal       string     `json:"goal" db:"goal"`
	Status     string     `json:"status" db:"status"`
	Plan       types.Plan `json:"plan" db:"plan"`
	Error      string     `json:"error,omitempty" db:"error"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	FinishedAt time.Time  `json:"finished_at" db:"finished_at"`
}

// Store wraps the SQLite task-history database.
type Store struct {
	db  *sql.DB
	log *logrus.Logger
}

// NewStore opens (creating if absent) the database at dbPath and
// applies pending migrations.
func NewStore(dbPath string, log *logrus.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db, log: log}, nil
}

// Save upserts one terminal task row.
func (s *Store) Save(ctx context.Context, entry Entry) error {
	planJSON, err := json.Marshal(entry.Plan)
	if err != nil {
		return fmt.Errorf("failed to marshal plan: %w", err)
	}

	query := `
		INSERT OR REPLACE INTO task_history (id, goal, status, plan, error, created_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query,
		entry.ID, entry.Goal, entry.Status, string(planJSON), entry.Error,
		entry.CreatedAt.UTC(), entry.FinishedAt.UTC(),
	); err != nil {
		return fmt.Errorf("failed to save task history: %w", err)
	}
	return nil
}

// Recent returns up to limit rows, most recently finished first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, goal, status, plan, error, created_at, finished_at
		FROM task_history
		ORDER BY finished_at DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query task history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var planStr, errStr sql.NullString
		if err := rows.Scan(&entry.ID, &entry.Goal, &entry.Status, &planStr, &errStr, &entry.CreatedAt, &entry.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task history row: %w", err)
		}
		if planStr.Valid && planStr.String != "" {
			if err := json.Unmarshal([]byte(planStr.String), &entry.Plan); err != nil {
				s.log.WithField("component", "history").Warnf("unreadable plan for task %s: %v", entry.ID, err)
			}
		}
		if errStr.Valid {
			entry.Error = errStr.String
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Get returns one row by task id.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	query := `
		SELECT id, goal, status, plan, error, created_at, finished_at
		FROM task_history
		WHERE id = ?
	`
	var entry Entry
	var planStr, errStr sql.NullString
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&entry.ID, &entry.Goal, &entry.Status, &planStr, &errStr, &entry.CreatedAt, &entry.FinishedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("task %s not found in history", id)
		}
		return nil, fmt.Errorf("failed to get task history: %w", err)
	}
	if planStr.Valid && planStr.String != "" {
		if err := json.Unmarshal([]byte(planStr.String), &entry.Plan); err != nil {
			s.log.WithField("component", "history").Warnf("unreadable plan for task %s: %v", entry.ID, err)
		}
	}
	if errStr.Valid {
		entry.Error = errStr.String
	}
	return &entry, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
