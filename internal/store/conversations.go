package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateConversation inserts a conversation between a user and a character.
func (s *Store) CreateConversation(ctx context.Context, userID, characterID string) (Conversation, error) {
	c := Conversation{
		ID:          uuid.NewString(),
		UserID:      userID,
		CharacterID: characterID,
		CreatedAt:   time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, user_id, character_id, created_at)
		VALUES (?, ?, ?, ?)`,
		c.ID, c.UserID, c.CharacterID, formatTime(c.CreatedAt),
	)
	if err != nil {
		return Conversation{}, fmt.Errorf("store: create conversation: %w", err)
	}
	return c, nil
}

// Conversation loads a conversation by ID.
func (s *Store) Conversation(ctx context.Context, id string) (Conversation, error) {
	var (
		c         Conversation
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, user_id, character_id, created_at FROM conversations WHERE id = ?", id,
	).Scan(&c.ID, &c.UserID, &c.CharacterID, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Conversation{}, fmt.Errorf("%w: conversation %s", ErrNotFound, id)
		}
		return Conversation{}, fmt.Errorf("store: load conversation: %w", err)
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return Conversation{}, err
	}
	c.CreatedAt = t
	return c, nil
}

// Conversations returns all conversations, oldest first. Used by the
// maintenance sweeps.
func (s *Store) Conversations(ctx context.Context) ([]Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, character_id, created_at FROM conversations ORDER BY created_at ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("store: query conversations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var convs []Conversation
	for rows.Next() {
		var (
			c         Conversation
			createdAt string
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.CharacterID, &createdAt); err != nil {
			return nil, fmt.Errorf("store: scan conversation: %w", err)
		}
		t, err := parseTime(createdAt)
		if err != nil {
			return nil, err
		}
		c.CreatedAt = t
		convs = append(convs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: conversation rows: %w", err)
	}
	return convs, nil
}
