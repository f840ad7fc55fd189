package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// AppendMessage inserts a message row and returns its assigned ID.
// CreatedAt must be set by the caller; the row ID is the tie-break for
// ordering, so IDs assigned later always sort after earlier ones at the
// same timestamp.
func (s *Store) AppendMessage(ctx context.Context, m Message) (int64, error) {
	if m.Type == "" {
		m.Type = TypeNormal
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (conversation_id, role, type, content, gap_hours, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.ConversationID, string(m.Role), string(m.Type), m.Content, m.GapHours, formatTime(m.CreatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("store: append message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: append message id: %w", err)
	}
	return id, nil
}

// Messages returns all messages of a conversation ordered by
// (created_at, id) ascending.
func (s *Store) Messages(ctx context.Context, conversationID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, role, type, content, gap_hours, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at ASC, id ASC`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: query messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: message rows: %w", err)
	}
	return msgs, nil
}

// DeleteMessages removes the given message rows. Missing IDs are ignored,
// which keeps a re-run of a half-applied compaction step harmless.
func (s *Store) DeleteMessages(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM messages WHERE id IN ("+placeholders+")", args...,
	); err != nil {
		return fmt.Errorf("store: delete messages: %w", err)
	}
	return nil
}

// UpdateMessage rewrites the content and gap duration of an existing row.
// Used when collapsing adjacent time-gap markers.
func (s *Store) UpdateMessage(ctx context.Context, id int64, content string, gapHours float64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE messages SET content = ?, gap_hours = ? WHERE id = ?",
		content, gapHours, id,
	)
	if err != nil {
		return fmt.Errorf("store: update message: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: update message: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("store: update message: no row with id %d", id)
	}
	return nil
}

// CountSummaries returns the number of live summary rows in a conversation.
func (s *Store) CountSummaries(ctx context.Context, conversationID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM messages WHERE conversation_id = ? AND type = ?",
		conversationID, string(TypeSummary),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("store: count summaries: %w", err)
	}
	return count, nil
}

// OldestSummary returns the ID of the oldest summary row in a
// conversation, or false if none exists.
func (s *Store) OldestSummary(ctx context.Context, conversationID string) (int64, bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM messages
		WHERE conversation_id = ? AND type = ?
		ORDER BY created_at ASC, id ASC
		LIMIT 1`,
		conversationID, string(TypeSummary),
	).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("store: oldest summary: %w", err)
	}
	return id, true, nil
}

// scanner abstracts *sql.Row and *sql.Rows for shared scan logic.
type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(sc scanner) (Message, error) {
	var (
		msg       Message
		role      string
		typ       string
		createdAt string
	)
	if err := sc.Scan(&msg.ID, &msg.ConversationID, &role, &typ, &msg.Content, &msg.GapHours, &createdAt); err != nil {
		return msg, fmt.Errorf("store: scan message: %w", err)
	}

	msg.Role = Role(role)
	msg.Type = MessageType(typ)

	t, err := parseTime(createdAt)
	if err != nil {
		return msg, err
	}
	msg.CreatedAt = t
	return msg, nil
}
