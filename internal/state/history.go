package state

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"segfetch/internal/events"
	"segfetch/internal/logger"
)

// Download statuses stored in the history.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Entry is one row of download history.
type Entry struct {
	ID          string
	URL         string
	DestPath    string
	Filename    string
	Status      string
	Parts       int
	TotalSize   int64
	CreatedAt   time.Time
	CompletedAt time.Time
	TimeTaken   time.Duration
}

// RecordStart inserts a running entry for a task.
func (s *Store) RecordStart(e events.Start) error {
	return s.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO downloads (id, url, dest_path, filename, status, parts, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				url=excluded.url, dest_path=excluded.dest_path, filename=excluded.filename,
				status=excluded.status, parts=excluded.parts, created_at=excluded.created_at
		`, e.FileID, e.URL, e.Destination, filepath.Base(e.Destination), StatusRunning, e.Parts, time.Now().UnixMilli())
		if err != nil {
			return fmt.Errorf("failed to record start: %w", err)
		}
		return nil
	})
}

// RecordFinish marks a task finished. Successful rows also get the final file size.
func (s *Store) RecordFinish(e events.Finish) error {
	return s.withTx(func(tx *sql.Tx) error {
		var dest string
		var createdAt int64
		err := tx.QueryRow(`SELECT dest_path, created_at FROM downloads WHERE id = ?`, e.FileID).Scan(&dest, &createdAt)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrNotFound, e.FileID)
		}
		if err != nil {
			return fmt.Errorf("failed to load download: %w", err)
		}

		status := StatusFailure
		var size int64
		if e.Status == events.StatusSuccess {
			status = StatusSuccess
			if info, statErr := os.Stat(dest); statErr == nil {
				size = info.Size()
			}
		}

		now := time.Now().UnixMilli()
		_, err = tx.Exec(`
			UPDATE downloads SET status = ?, total_size = ?, completed_at = ?, time_taken = ?
			WHERE id = ?
		`, status, size, now, now-createdAt, e.FileID)
		if err != nil {
			return fmt.Errorf("failed to record finish: %w", err)
		}
		return nil
	})
}

// Get returns the entry for id.
func (s *Store) Get(id string) (*Entry, error) {
	row := s.db.QueryRow(selectEntry+` WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, err
}

// List returns up to limit entries, newest first. limit <= 0 returns all.
func (s *Store) List(limit int) ([]Entry, error) {
	query := selectEntry + ` ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list downloads: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// Clear deletes all history rows and returns how many were removed.
func (s *Store) Clear() (int64, error) {
	var n int64
	err := s.withTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`DELETE FROM downloads`)
		if err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}
		n, _ = res.RowsAffected()
		return nil
	})
	return n, err
}

// Attach records every Start and Finish published on bus. The returned func detaches.
func (s *Store) Attach(bus *events.Bus) func() {
	unsubStart := bus.Subscribe(events.KindStart, func(e events.Event) {
		if err := s.RecordStart(e.(events.Start)); err != nil {
			logger.Warn("history: could not record start", logger.Fields{"file_id": e.ID(), "error": err})
		}
	})
	unsubFinish := bus.Subscribe(events.KindFinish, func(e events.Event) {
		if err := s.RecordFinish(e.(events.Finish)); err != nil {
			logger.Warn("history: could not record finish", logger.Fields{"file_id": e.ID(), "error": err})
		}
	})
	return func() {
		unsubStart()
		unsubFinish()
	}
}

const selectEntry = `
	SELECT id, url, dest_path, COALESCE(filename, ''), status, COALESCE(parts, 0),
	       COALESCE(total_size, 0), COALESCE(created_at, 0), COALESCE(completed_at, 0), COALESCE(time_taken, 0)
	FROM downloads`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*Entry, error) {
	var (
		e                                 Entry
		createdAt, completedAt, timeTaken int64
	)
	if err := row.Scan(&e.ID, &e.URL, &e.DestPath, &e.Filename, &e.Status, &e.Parts,
		&e.TotalSize, &createdAt, &completedAt, &timeTaken); err != nil {
		return nil, err
	}
	e.CreatedAt = time.UnixMilli(createdAt)
	if completedAt > 0 {
		e.CompletedAt = time.UnixMilli(completedAt)
	}
	e.TimeTaken = time.Duration(timeTaken) * time.Millisecond
	return &e, nil
}
