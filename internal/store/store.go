// Package store implements the SQLite-backed row store for conversations,
// characters, messages, and per-user chat settings. It uses
// modernc.org/sqlite (pure Go, no CGO) with WAL mode.
package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Role identifies the sender of a persisted message.
type Role string

// Role constants for persisted messages.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// MessageType discriminates message rows. Marker and summary rows are
// detected by this field only, never by matching message content.
type MessageType string

// MessageType constants.
const (
	TypeNormal  MessageType = "normal"
	TypeSummary MessageType = "summary"
	TypeTimeGap MessageType = "time_gap"
	TypeImage   MessageType = "image"
	TypeVoice   MessageType = "voice"
)

// Message is one row of a conversation transcript. Within a conversation,
// messages are totally ordered by (CreatedAt, ID).
type Message struct {
	ID             int64
	ConversationID string
	Role           Role
	Type           MessageType
	Content        string
	// GapHours is set only on time_gap rows.
	GapHours  float64
	CreatedAt time.Time
}

// Character is an AI persona users chat with. Memories are stored as a
// JSON blob on this row and shared across all conversations with the
// character.
type Character struct {
	ID        string
	Name      string
	Persona   string
	CreatedAt time.Time
}

// Conversation ties one user to one character.
type Conversation struct {
	ID          string
	UserID      string
	CharacterID string
	CreatedAt   time.Time
}

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// DB exposes the underlying handle for closing and tests.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// timeLayout is the persisted timestamp format. Millisecond precision,
// UTC, lexicographically sortable.
const timeLayout = "2006-01-02T15:04:05.000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("store: parse timestamp %q: %w", s, err)
	}
	return t, nil
}
