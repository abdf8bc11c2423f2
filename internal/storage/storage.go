// Package storage keeps the command log: every inbound chat message the bot
// accepted, in arrival order. Replaying the log rebuilds the in-memory games.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ErrClosed is returned by a log after Close.
var ErrClosed = errors.New("command log is closed")

// Entry is one accepted inbound message.
type Entry struct {
	ID        int64
	MessageID string
	RoomID    string
	PersonID  string
	Text      string
	Direct    bool
	// Nickname is the display name resolved when the message was accepted.
	// Replay seats players under it instead of asking the chat API again.
	Nickname  string
	CreatedAt time.Time
}

// Validate normalizes the entry and checks required fields.
func (e *Entry) Validate() error {
	e.MessageID = strings.TrimSpace(e.MessageID)
	e.RoomID = strings.TrimSpace(e.RoomID)
	e.PersonID = strings.TrimSpace(e.PersonID)
	e.Nickname = strings.TrimSpace(e.Nickname)
	if e.MessageID == "" {
		return fmt.Errorf("message id is required")
	}
	if e.RoomID == "" {
		return fmt.Errorf("room id is required")
	}
	if e.PersonID == "" {
		return fmt.Errorf("person id is required")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return nil
}

// CommandLog is an append-only message log.
type CommandLog interface {
	// Append stores an entry. Appending a message ID twice is a no-op.
	Append(ctx context.Context, e Entry) error
	// List returns every entry in append order.
	List(ctx context.Context) ([]Entry, error)
	Close() error
}

// Memory is a CommandLog that lives only as long as the process.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
	seen    map[string]struct{}
	closed  bool
}

var _ CommandLog = (*Memory)(nil)

// NewMemory creates an empty in-memory log.
func NewMemory() *Memory {
	return &Memory{seen: make(map[string]struct{})}
}

func (m *Memory) Append(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if _, ok := m.seen[e.MessageID]; ok {
		return nil
	}
	m.seen[e.MessageID] = struct{}{}
	e.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, e)
	return nil
}

func (m *Memory) List(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	return append([]Entry(nil), m.entries...), nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
