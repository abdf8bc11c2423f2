// Package sqlite stores the command log in a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sparkplay/dominion-server-go/internal/storage"
)

//go:embed schema.sql
var schema string

// Store provides SQLite-backed command log persistence.
type Store struct {
	sqlDB *sql.DB
}

var _ storage.CommandLog = (*Store)(nil)

// Open opens a SQLite store and applies the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer keeps appends strictly ordered.
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Append persists one accepted message.
func (s *Store) Append(ctx context.Context, e storage.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if err := e.Validate(); err != nil {
		return err
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO command_log (
	message_id,
	room_id,
	person_id,
	text,
	direct,
	nickname,
	created_at
) VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (message_id) DO NOTHING
`,
		e.MessageID,
		e.RoomID,
		e.PersonID,
		e.Text,
		e.Direct,
		e.Nickname,
		e.CreatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("append command: %w", err)
	}
	return nil
}

// List returns the log oldest first.
func (s *Store) List(ctx context.Context) ([]storage.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT
	id,
	message_id,
	room_id,
	person_id,
	text,
	direct,
	nickname,
	created_at
FROM command_log
ORDER BY id ASC
`)
	if err != nil {
		return nil, fmt.Errorf("list commands: %w", err)
	}
	defer rows.Close()

	var entries []storage.Entry
	for rows.Next() {
		var (
			e         storage.Entry
			createdAt int64
		)
		if err := rows.Scan(&e.ID, &e.MessageID, &e.RoomID, &e.PersonID, &e.Text, &e.Direct, &e.Nickname, &createdAt); err != nil {
			return nil, fmt.Errorf("scan command: %w", err)
		}
		e.CreatedAt = time.UnixMilli(createdAt).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commands: %w", err)
	}
	return entries, nil
}
