// Package block partitions a conversation transcript into session blocks
// separated by time gaps, and decides which block the compactor may take
// next.
package block

import (
	"time"

	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/store"
	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/timegap"
)

// MinSummarizeSize is the smallest block worth summarizing. Smaller
// blocks are deleted outright after memory extraction.
const MinSummarizeSize = 15

// Action is what the compactor should do with a block.
type Action string

// Action constants.
const (
	ActionDelete  Action = "delete"
	ActionCompact Action = "compact"
)

// Block is a maximal contiguous run of messages whose internal gaps are
// all below the session threshold. Derived, never persisted.
type Block struct {
	Messages []store.Message
}

// Len returns the number of messages in the block.
func (b Block) Len() int { return len(b.Messages) }

// First returns the oldest message of the block.
func (b Block) First() store.Message { return b.Messages[0] }

// Last returns the newest message of the block.
func (b Block) Last() store.Message { return b.Messages[len(b.Messages)-1] }

// IDs returns the row IDs of all messages in the block.
func (b Block) IDs() []int64 {
	ids := make([]int64, len(b.Messages))
	for i, m := range b.Messages {
		ids[i] = m.ID
	}
	return ids
}

// Candidate is a block annotated with the compactor's action for it.
type Candidate struct {
	Block
	Action Action
}

// Segment partitions messages into blocks in one linear pass. System-role
// rows (summaries, gap markers) never count toward block membership.
// Input must already be ordered by (CreatedAt, ID); blocks preserve that
// order, so concatenating them reproduces the filtered input exactly.
func Segment(msgs []store.Message, threshold time.Duration) []Block {
	if threshold <= 0 {
		threshold = timegap.DefaultThreshold
	}

	var blocks []Block
	var current []store.Message

	for _, m := range msgs {
		if m.Role == store.RoleSystem || m.Type == store.TypeTimeGap {
			continue
		}
		if len(current) > 0 {
			prev := current[len(current)-1]
			if timegap.ShouldInsertMarker(prev.CreatedAt, m.CreatedAt, threshold) {
				blocks = append(blocks, Block{Messages: current})
				current = nil
			}
		}
		current = append(current, m)
	}
	if len(current) > 0 {
		blocks = append(blocks, Block{Messages: current})
	}
	return blocks
}

// ProtectedCount returns how many trailing blocks are protected from
// compaction. Blocks are walked newest to oldest, accumulating message
// counts until at least min(keepUncompacted, total) messages are covered.
// Protection is block-granular: a block is fully protected as soon as it
// contributes to crossing the floor.
func ProtectedCount(blocks []Block, keepUncompacted int) int {
	total := 0
	for _, b := range blocks {
		total += b.Len()
	}
	floor := keepUncompacted
	if total < floor {
		floor = total
	}
	if floor <= 0 {
		return 0
	}

	covered := 0
	count := 0
	for i := len(blocks) - 1; i >= 0; i-- {
		covered += blocks[i].Len()
		count++
		if covered >= floor {
			break
		}
	}
	return count
}

// OldestCompactable returns the oldest block outside the protected
// suffix, annotated with the delete-vs-compact action. Returns false when
// every block is protected; that is the compaction loop's termination
// signal, never an error.
func OldestCompactable(blocks []Block, keepUncompacted int) (Candidate, bool) {
	protected := ProtectedCount(blocks, keepUncompacted)
	if len(blocks) <= protected {
		return Candidate{}, false
	}

	cand := Candidate{Block: blocks[0], Action: ActionCompact}
	if cand.Len() < MinSummarizeSize {
		cand.Action = ActionDelete
	}
	return cand, true
}
