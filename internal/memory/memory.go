// Package memory implements the per-character long-term memory store:
// a bounded set of short factual statements ranked by an LLM-assigned
// importance score.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/store"
)

// MaxMemories caps the number of memories kept per character. Overflow
// drops the lowest-importance entries silently.
const MaxMemories = 50

// legacyImportance is assigned to entries from the old flat-string
// format, which carried no score.
const legacyImportance = 50

// Memory is one scored, durable fact about the user or the relationship.
type Memory struct {
	Importance int    `json:"importance"`
	Text       string `json:"text"`
}

// Merge concatenates incoming onto existing, sorts descending by
// importance, and truncates to MaxMemories. The sort is stable, so ties
// keep their original relative order and the result is deterministic for
// a fixed input order.
func Merge(existing, incoming []Memory) []Memory {
	merged := make([]Memory, 0, len(existing)+len(incoming))
	merged = append(merged, existing...)
	merged = append(merged, incoming...)

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Importance > merged[j].Importance
	})

	if len(merged) > MaxMemories {
		merged = merged[:MaxMemories]
	}
	return merged
}

// Decode parses a stored memory blob. The legacy format (a flat list of
// strings with no score) is upgraded to importance 50 at read time; the
// upgrade is not persisted until the next write.
func Decode(blob []byte) ([]Memory, error) {
	trimmed := strings.TrimSpace(string(blob))
	if trimmed == "" || trimmed == "null" || trimmed == "[]" {
		return nil, nil
	}

	var memories []Memory
	if err := json.Unmarshal(blob, &memories); err == nil {
		for i := range memories {
			memories[i].Importance = clampImportance(memories[i].Importance)
		}
		return memories, nil
	}

	var legacy []string
	if err := json.Unmarshal(blob, &legacy); err != nil {
		return nil, fmt.Errorf("memory: decode blob: %w", err)
	}
	memories = make([]Memory, 0, len(legacy))
	for _, text := range legacy {
		if text == "" {
			continue
		}
		memories = append(memories, Memory{Importance: legacyImportance, Text: text})
	}
	return memories, nil
}

// Encode serialises memories for storage.
func Encode(memories []Memory) ([]byte, error) {
	if memories == nil {
		memories = []Memory{}
	}
	blob, err := json.Marshal(memories)
	if err != nil {
		return nil, fmt.Errorf("memory: encode: %w", err)
	}
	return blob, nil
}

func clampImportance(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// BlobStore is the slice of the persistence layer the memory store needs.
type BlobStore interface {
	MemoryBlob(ctx context.Context, characterID string) ([]byte, error)
	SetMemoryBlob(ctx context.Context, characterID string, blob []byte) error
}

// Store reads and writes a character's bounded memory set.
type Store struct {
	blobs  BlobStore
	logger *slog.Logger
}

// NewStore creates a Store backed by the given blob persistence.
func NewStore(blobs BlobStore, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{blobs: blobs, logger: logger}
}

// Get returns a character's memories sorted descending by importance.
// A character with no stored memories yields an empty list.
func (s *Store) Get(ctx context.Context, characterID string) ([]Memory, error) {
	blob, err := s.blobs.MemoryBlob(ctx, characterID)
	if err != nil {
		return nil, err
	}
	memories, err := Decode(blob)
	if err != nil {
		return nil, err
	}
	// Merge with nothing re-sorts and enforces the cap, covering blobs
	// written before the current limits.
	return Merge(memories, nil), nil
}

// Add merges incoming memories into the character's stored set and
// persists the result. Returns the stored set after the merge.
func (s *Store) Add(ctx context.Context, characterID string, incoming []Memory) ([]Memory, error) {
	existing, err := s.Get(ctx, characterID)
	if err != nil {
		return nil, err
	}

	merged := Merge(existing, incoming)
	blob, err := Encode(merged)
	if err != nil {
		return nil, err
	}
	if err := s.blobs.SetMemoryBlob(ctx, characterID, blob); err != nil {
		return nil, err
	}
	return merged, nil
}

// Transcript renders messages as "<Name>: <content>" lines, resolving
// names by role. Shared by the memory extractor and the summarizer.
func Transcript(msgs []store.Message, characterName, userName string) string {
	var b strings.Builder
	for _, m := range msgs {
		name := characterName
		if m.Role == store.RoleUser {
			name = userName
		}
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
