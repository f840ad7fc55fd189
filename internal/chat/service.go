// Package chat implements the chat-turn service: persisting user
// messages, producing character replies, and triggering the maintenance
// that keeps conversations inside the context window.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/compact"
	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/memory"
	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/provider"
	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/store"
	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/timegap"
)

// Service handles one chat turn end to end.
type Service struct {
	store     *store.Store
	provider  provider.Provider
	memories  *memory.Store
	detector  *timegap.Detector
	compactor *compact.Orchestrator
	logger    *slog.Logger
	now       func() time.Time
}

// NewService wires the chat-turn pipeline together.
func NewService(
	st *store.Store,
	p provider.Provider,
	memories *memory.Store,
	detector *timegap.Detector,
	compactor *compact.Orchestrator,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     st,
		provider:  p,
		memories:  memories,
		detector:  detector,
		compactor: compactor,
		logger:    logger,
		now:       time.Now,
	}
}

// SendMessage appends the user's message (inserting a session-gap marker
// first when due), asks the provider for the character's reply, persists
// it, and then runs compaction. A compaction failure does not fail the
// turn; the reply is already persisted by then.
func (s *Service) SendMessage(ctx context.Context, conversationID, userID, content string) (store.Message, error) {
	conv, err := s.store.Conversation(ctx, conversationID)
	if err != nil {
		return store.Message{}, err
	}
	char, err := s.store.Character(ctx, conv.CharacterID)
	if err != nil {
		return store.Message{}, err
	}
	settings, err := s.store.UserSettings(ctx, userID)
	if err != nil {
		return store.Message{}, err
	}

	msgs, err := s.store.Messages(ctx, conversationID)
	if err != nil {
		return store.Message{}, err
	}

	now := s.now().UTC()
	if len(msgs) > 0 {
		last := msgs[len(msgs)-1]
		if _, err := s.detector.MarkIfGap(ctx, conversationID, last.CreatedAt, now); err != nil {
			return store.Message{}, err
		}
	}

	userMsg := store.Message{
		ConversationID: conversationID,
		Role:           store.RoleUser,
		Type:           store.TypeNormal,
		Content:        content,
		CreatedAt:      now,
	}
	if userMsg.ID, err = s.store.AppendMessage(ctx, userMsg); err != nil {
		return store.Message{}, err
	}

	mems, err := s.memories.Get(ctx, char.ID)
	if err != nil {
		return store.Message{}, err
	}

	// Re-read so the prompt includes the new message and any gap marker.
	msgs, err = s.store.Messages(ctx, conversationID)
	if err != nil {
		return store.Message{}, err
	}

	resp, err := s.provider.Complete(ctx, provider.CompletionRequest{
		Messages: BuildPrompt(char, mems, settings.DisplayName, msgs),
	})
	if err != nil {
		return store.Message{}, fmt.Errorf("chat: completion: %w", err)
	}

	reply := store.Message{
		ConversationID: conversationID,
		Role:           store.RoleAssistant,
		Type:           store.TypeNormal,
		Content:        resp.Content,
		CreatedAt:      s.now().UTC(),
	}
	if reply.ID, err = s.store.AppendMessage(ctx, reply); err != nil {
		return store.Message{}, err
	}

	if _, err := s.compactor.CompactIfNeeded(ctx, conversationID, userID); err != nil {
		s.logger.Error("compaction failed",
			"conversation", conversationID,
			"error", err,
		)
	}

	return reply, nil
}
