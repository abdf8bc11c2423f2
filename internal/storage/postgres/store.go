// Package postgres stores the command log in PostgreSQL.
package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sparkplay/dominion-server-go/internal/storage"
)

//go:embed schema.sql
var schema string

// Store is a pgx pool backed command log.
type Store struct {
	pool *pgxpool.Pool
}

var _ storage.CommandLog = (*Store)(nil)

// Open connects, pings and migrates.
func Open(ctx context.Context, url string, maxConns int32) (*Store, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("database url is required")
	}
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Pool exposes the underlying pool for maintenance tools.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

func (s *Store) Close() error {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *Store) Append(ctx context.Context, e storage.Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO command_log (message_id, room_id, person_id, text, direct, nickname, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (message_id) DO NOTHING
	`, e.MessageID, e.RoomID, e.PersonID, e.Text, e.Direct, e.Nickname, e.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("append command: %w", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]storage.Entry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, message_id, room_id, person_id, text, direct, nickname, created_at
		  FROM command_log
		 ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list commands: %w", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (storage.Entry, error) {
		var e storage.Entry
		err := row.Scan(&e.ID, &e.MessageID, &e.RoomID, &e.PersonID, &e.Text, &e.Direct, &e.Nickname, &e.CreatedAt)
		e.CreatedAt = e.CreatedAt.UTC()
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan commands: %w", err)
	}
	return entries, nil
}
