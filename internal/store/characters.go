package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// CreateCharacter inserts a character and returns it with an assigned ID.
func (s *Store) CreateCharacter(ctx context.Context, name, persona string) (Character, error) {
	c := Character{
		ID:        uuid.NewString(),
		Name:      name,
		Persona:   persona,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO characters (id, name, persona, created_at)
		VALUES (?, ?, ?, ?)`,
		c.ID, c.Name, c.Persona, formatTime(c.CreatedAt),
	)
	if err != nil {
		return Character{}, fmt.Errorf("store: create character: %w", err)
	}
	return c, nil
}

// Character loads a character by ID.
func (s *Store) Character(ctx context.Context, id string) (Character, error) {
	var (
		c         Character
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, persona, created_at FROM characters WHERE id = ?", id,
	).Scan(&c.ID, &c.Name, &c.Persona, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Character{}, fmt.Errorf("%w: character %s", ErrNotFound, id)
		}
		return Character{}, fmt.Errorf("store: load character: %w", err)
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return Character{}, err
	}
	c.CreatedAt = t
	return c, nil
}

// MemoryBlob returns the character's raw memory JSON. The memory package
// owns the encoding, including the legacy flat-string format.
func (s *Store) MemoryBlob(ctx context.Context, characterID string) ([]byte, error) {
	var blob string
	err := s.db.QueryRowContext(ctx,
		"SELECT memories FROM characters WHERE id = ?", characterID,
	).Scan(&blob)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: character %s", ErrNotFound, characterID)
		}
		return nil, fmt.Errorf("store: load memories: %w", err)
	}
	return []byte(blob), nil
}

// SetMemoryBlob replaces the character's memory JSON.
func (s *Store) SetMemoryBlob(ctx context.Context, characterID string, blob []byte) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE characters SET memories = ? WHERE id = ?",
		string(blob), characterID,
	)
	if err != nil {
		return fmt.Errorf("store: save memories: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: save memories: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: character %s", ErrNotFound, characterID)
	}
	return nil
}
