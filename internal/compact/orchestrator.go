package compact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/block"
	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/config"
	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/notify"
	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/store"
)

// ErrCompactionFailed indicates that a compaction run aborted before
// reaching its target.
var ErrCompactionFailed = errors.New("compact: compaction failed")

const (
	// SummarySlots caps the live summary rows per conversation. Eviction
	// is FIFO, not importance-based.
	SummarySlots = 5

	// MaxPasses bounds the compaction loop if the estimator and actual
	// shrinkage disagree pathologically. Hitting it is an early stop,
	// not an error.
	MaxPasses = 10
)

// Store is the slice of the persistence layer the orchestrator needs.
// *store.Store implements it.
type Store interface {
	Messages(ctx context.Context, conversationID string) ([]store.Message, error)
	AppendMessage(ctx context.Context, m store.Message) (int64, error)
	DeleteMessages(ctx context.Context, ids ...int64) error
	CountSummaries(ctx context.Context, conversationID string) (int, error)
	OldestSummary(ctx context.Context, conversationID string) (int64, bool, error)
	Conversation(ctx context.Context, id string) (store.Conversation, error)
	Character(ctx context.Context, id string) (store.Character, error)
	UserSettings(ctx context.Context, userID string) (config.ChatSettings, error)
}

// Summarizer produces a condensed summary of one block.
type Summarizer interface {
	Summarize(ctx context.Context, msgs []store.Message, characterName, userName string) (string, error)
}

// MemoryCapturer folds a block's transcript into a character's long-term
// memory before the block is destroyed. Implementations swallow LLM
// failures; only persistence errors may propagate.
type MemoryCapturer interface {
	Capture(ctx context.Context, characterID, characterName, userName string, msgs []store.Message) error
}

// Orchestrator is the compaction control loop.
type Orchestrator struct {
	store        Store
	summarizer   Summarizer
	memories     MemoryCapturer
	estimator    TokenEstimator
	notifier     notify.Notifier
	gapThreshold time.Duration
	logger       *slog.Logger

	// Two concurrent runs on one conversation are not safe against each
	// other; the block logic alone does not serialize them. A run flag
	// per conversation makes the second trigger a no-op.
	mu     sync.Mutex
	active map[string]bool
}

// NewOrchestrator wires the compaction pipeline together.
func NewOrchestrator(
	st Store,
	summarizer Summarizer,
	memories MemoryCapturer,
	estimator TokenEstimator,
	notifier notify.Notifier,
	gapThreshold time.Duration,
	logger *slog.Logger,
) *Orchestrator {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:        st,
		summarizer:   summarizer,
		memories:     memories,
		estimator:    estimator,
		notifier:     notifier,
		gapThreshold: gapThreshold,
		logger:       logger,
		active:       make(map[string]bool),
	}
}

// event is the payload for compaction notifications.
type event struct {
	ConversationID string `json:"conversation_id"`
}

// CompactIfNeeded estimates the conversation size and, when it exceeds
// the user's threshold budget, repeatedly compacts the oldest eligible
// block until the size drops below the target budget, no compactable
// blocks remain, or MaxPasses is reached. Returns whether any block was
// processed.
//
// If a run is already active for the conversation, the call is a no-op.
// Any failure while processing a block aborts the whole run; the ended
// notification fires regardless.
func (o *Orchestrator) CompactIfNeeded(ctx context.Context, conversationID, userID string) (bool, error) {
	if !o.tryAcquire(conversationID) {
		return false, nil
	}
	defer o.release(conversationID)

	settings, err := o.store.UserSettings(ctx, userID)
	if err != nil {
		return false, err
	}

	msgs, err := o.store.Messages(ctx, conversationID)
	if err != nil {
		return false, err
	}

	startTokens := EstimateMessages(o.estimator, msgs)
	threshold := settings.ContextWindow * settings.CompactThresholdPercent / 100
	if startTokens < threshold {
		return false, nil
	}

	conv, err := o.store.Conversation(ctx, conversationID)
	if err != nil {
		return false, err
	}
	char, err := o.store.Character(ctx, conv.CharacterID)
	if err != nil {
		return false, err
	}

	o.logger.Info("compaction started",
		"conversation", conversationID,
		"tokens", startTokens,
		"threshold", threshold,
	)
	o.notifier.Emit(notify.EventCompactionStarted, event{ConversationID: conversationID})
	defer o.notifier.Emit(notify.EventCompactionEnded, event{ConversationID: conversationID})

	target := settings.ContextWindow * settings.CompactTargetPercent / 100
	processed := false
	tokens := startTokens

	for pass := 0; pass < MaxPasses; pass++ {
		blocks := block.Segment(msgs, o.gapThreshold)
		cand, ok := block.OldestCompactable(blocks, settings.KeepUncompacted)
		if !ok {
			break
		}

		if err := o.processBlock(ctx, conversationID, char, settings.DisplayName, cand); err != nil {
			runsTotal.WithLabelValues("failed").Inc()
			o.logger.Error("compaction aborted",
				"conversation", conversationID,
				"error", err,
			)
			return processed, err
		}
		processed = true

		msgs, err = o.store.Messages(ctx, conversationID)
		if err != nil {
			runsTotal.WithLabelValues("failed").Inc()
			return processed, err
		}
		tokens = EstimateMessages(o.estimator, msgs)
		if tokens < target {
			break
		}
	}

	if reclaimed := startTokens - tokens; reclaimed > 0 {
		tokensReclaimed.Add(float64(reclaimed))
	}
	runsTotal.WithLabelValues("ok").Inc()
	o.logger.Info("compaction ended",
		"conversation", conversationID,
		"tokens", tokens,
		"target", target,
		"processed", processed,
	)
	return processed, nil
}

// processBlock runs the extract-then-delete two-phase operation for one
// block. Memory extraction happens before any deletion regardless of the
// delete-vs-compact branch, so a crash between phases loses no memories;
// re-running extraction on still-present messages is idempotent by
// merge.
func (o *Orchestrator) processBlock(ctx context.Context, conversationID string, char store.Character, userName string, cand block.Candidate) error {
	if err := o.memories.Capture(ctx, char.ID, char.Name, userName, cand.Messages); err != nil {
		return err
	}

	if err := o.enforceSummaryCap(ctx, conversationID); err != nil {
		return err
	}

	switch cand.Action {
	case block.ActionDelete:
		if err := o.store.DeleteMessages(ctx, cand.IDs()...); err != nil {
			return err
		}

	case block.ActionCompact:
		summary, err := o.summarizer.Summarize(ctx, cand.Messages, char.Name, userName)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCompactionFailed, err)
		}
		if err := o.store.DeleteMessages(ctx, cand.IDs()...); err != nil {
			return err
		}
		// Stamped with the first message's original timestamp so the
		// summary keeps the block's chronological position in the log.
		_, err = o.store.AppendMessage(ctx, store.Message{
			ConversationID: conversationID,
			Role:           store.RoleSystem,
			Type:           store.TypeSummary,
			Content:        summary,
			CreatedAt:      cand.First().CreatedAt,
		})
		if err != nil {
			return err
		}
	}

	blocksTotal.WithLabelValues(string(cand.Action)).Inc()
	o.logger.Debug("block processed",
		"conversation", conversationID,
		"action", cand.Action,
		"messages", cand.Len(),
	)
	return nil
}

// enforceSummaryCap deletes the oldest summary row when the conversation
// is at capacity, so the slot count never exceeds SummarySlots.
func (o *Orchestrator) enforceSummaryCap(ctx context.Context, conversationID string) error {
	count, err := o.store.CountSummaries(ctx, conversationID)
	if err != nil {
		return err
	}
	if count < SummarySlots {
		return nil
	}
	id, ok, err := o.store.OldestSummary(ctx, conversationID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return o.store.DeleteMessages(ctx, id)
}

func (o *Orchestrator) tryAcquire(conversationID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active[conversationID] {
		return false
	}
	o.active[conversationID] = true
	return true
}

func (o *Orchestrator) release(conversationID string) {
	o.mu.Lock()
	delete(o.active, conversationID)
	o.mu.Unlock()
}
