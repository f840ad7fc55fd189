package timegap

import (
	"context"
	"log/slog"
	"time"

	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/store"
)

// Log is the slice of the message store the detector needs.
type Log interface {
	Messages(ctx context.Context, conversationID string) ([]store.Message, error)
	AppendMessage(ctx context.Context, m store.Message) (int64, error)
	DeleteMessages(ctx context.Context, ids ...int64) error
	UpdateMessage(ctx context.Context, id int64, content string, gapHours float64) error
}

// Detector inserts and maintains time_gap marker rows.
type Detector struct {
	log       Log
	threshold time.Duration
	logger    *slog.Logger
}

// NewDetector creates a Detector. A non-positive threshold falls back to
// DefaultThreshold.
func NewDetector(log Log, threshold time.Duration, logger *slog.Logger) *Detector {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{log: log, threshold: threshold, logger: logger}
}

// Threshold returns the configured session-boundary threshold.
func (d *Detector) Threshold() time.Duration { return d.threshold }

// MarkIfGap inserts a time_gap marker between two timestamps when the gap
// meets the threshold. Insertion is idempotent: if a marker already exists
// with a timestamp strictly between the pair, nothing is inserted.
// Returns whether a marker was inserted.
func (d *Detector) MarkIfGap(ctx context.Context, conversationID string, prev, curr time.Time) (bool, error) {
	hours, ok := Hours(prev, curr, d.threshold)
	if !ok {
		return false, nil
	}

	msgs, err := d.log.Messages(ctx, conversationID)
	if err != nil {
		return false, err
	}
	for _, m := range msgs {
		if m.Type != store.TypeTimeGap {
			continue
		}
		if m.CreatedAt.After(prev) && m.CreatedAt.Before(curr) {
			return false, nil
		}
	}

	// Stamp just after the previous message so the marker sorts inside
	// the gap. Any point strictly between the pair works.
	marker := store.Message{
		ConversationID: conversationID,
		Role:           store.RoleSystem,
		Type:           store.TypeTimeGap,
		Content:        FormatMarker(hours),
		GapHours:       hours,
		CreatedAt:      prev.Add(time.Second),
	}
	if _, err := d.log.AppendMessage(ctx, marker); err != nil {
		return false, err
	}

	d.logger.Debug("time gap marker inserted",
		"conversation", conversationID,
		"hours", hours,
	)
	return true, nil
}

// Collapse merges each run of consecutive time_gap markers into the
// newest marker of the run, with the durations summed. Returns the number
// of markers removed.
func (d *Detector) Collapse(ctx context.Context, conversationID string) (int, error) {
	msgs, err := d.log.Messages(ctx, conversationID)
	if err != nil {
		return 0, err
	}

	removed := 0
	var run []store.Message
	flush := func() error {
		if len(run) < 2 {
			run = nil
			return nil
		}

		total := 0.0
		ids := make([]int64, 0, len(run)-1)
		for i, m := range run {
			total += m.GapHours
			if i < len(run)-1 {
				ids = append(ids, m.ID)
			}
		}
		newest := run[len(run)-1]

		if err := d.log.UpdateMessage(ctx, newest.ID, FormatMarker(total), total); err != nil {
			return err
		}
		if err := d.log.DeleteMessages(ctx, ids...); err != nil {
			return err
		}
		removed += len(ids)
		run = nil
		return nil
	}

	for _, m := range msgs {
		if m.Type == store.TypeTimeGap {
			run = append(run, m)
			continue
		}
		if err := flush(); err != nil {
			return removed, err
		}
	}
	if err := flush(); err != nil {
		return removed, err
	}

	if removed > 0 {
		d.logger.Info("collapsed time gap markers",
			"conversation", conversationID,
			"removed", removed,
		)
	}
	return removed, nil
}
