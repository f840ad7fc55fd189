package maintenance

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/compact"
	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/store"
	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/timegap"
)

// ConversationLister is the store slice the jobs need to enumerate work.
type ConversationLister interface {
	Conversations(ctx context.Context) ([]store.Conversation, error)
}

// CollapseMarkersJob merges runs of adjacent time-gap markers left behind
// by overlapping triggers or compaction deletes.
type CollapseMarkersJob struct {
	Store    ConversationLister
	Detector *timegap.Detector
	Cron     string
	Logger   *slog.Logger
}

// Name implements Job.
func (j *CollapseMarkersJob) Name() string { return "collapse_gap_markers" }

// Schedule implements Job.
func (j *CollapseMarkersJob) Schedule() string { return j.Cron }

// Run implements Job. Each conversation is swept independently; one
// failure does not stop the sweep.
func (j *CollapseMarkersJob) Run(ctx context.Context) error {
	convs, err := j.Store.Conversations(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for _, c := range convs {
		if _, err := j.Detector.Collapse(ctx, c.ID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// IdleCompactionJob compacts conversations that grew past their budget
// but have gone quiet, so their next chat turn starts fast.
type IdleCompactionJob struct {
	Store     ConversationLister
	Compactor *compact.Orchestrator
	Cron      string
	Logger    *slog.Logger
}

// Name implements Job.
func (j *IdleCompactionJob) Name() string { return "idle_compaction" }

// Schedule implements Job.
func (j *IdleCompactionJob) Schedule() string { return j.Cron }

// Run implements Job.
func (j *IdleCompactionJob) Run(ctx context.Context) error {
	convs, err := j.Store.Conversations(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for _, c := range convs {
		if _, err := j.Compactor.CompactIfNeeded(ctx, c.ID, c.UserID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Interface guards.
var (
	_ Job = (*CollapseMarkersJob)(nil)
	_ Job = (*IdleCompactionJob)(nil)
)
