package config

import (
	"errors"
	"fmt"
)

// ChatSettings are the per-user knobs that drive compaction.
type ChatSettings struct {
	// DisplayName is how the user is addressed in prompts and transcripts.
	DisplayName string `json:"display_name"`

	// CompactThresholdPercent of the context window at which compaction starts.
	CompactThresholdPercent int `json:"compact_threshold_percent"`

	// CompactTargetPercent of the context window compaction shrinks down to.
	CompactTargetPercent int `json:"compact_target_percent"`

	// KeepUncompacted is the number of most recent messages that must
	// never be compacted.
	KeepUncompacted int `json:"keep_uncompacted_messages"`

	// ContextWindow is the model context window in tokens.
	ContextWindow int `json:"context_window"`
}

// DefaultChatSettings returns the settings applied to users who have
// never saved any.
func DefaultChatSettings() ChatSettings {
	return ChatSettings{
		DisplayName:             "User",
		CompactThresholdPercent: 90,
		CompactTargetPercent:    70,
		KeepUncompacted:         30,
		ContextWindow:           32000,
	}
}

// settingsRule is one entry in the declarative validation table.
type settingsRule struct {
	field string
	min   int
	max   int
	get   func(ChatSettings) int
}

// settingsRules is the validation table for ChatSettings. Checked before
// persistence; ranges follow the product limits, not technical ones.
var settingsRules = []settingsRule{
	{"compact_threshold_percent", 50, 100, func(s ChatSettings) int { return s.CompactThresholdPercent }},
	{"compact_target_percent", 30, 90, func(s ChatSettings) int { return s.CompactTargetPercent }},
	{"keep_uncompacted_messages", 10, 100, func(s ChatSettings) int { return s.KeepUncompacted }},
	{"context_window", 1024, 2_000_000, func(s ChatSettings) int { return s.ContextWindow }},
}

// Validate checks each field against the rules table, reporting all
// violations at once.
func (s ChatSettings) Validate() error {
	var errs []error
	for _, r := range settingsRules {
		v := r.get(s)
		if v < r.min || v > r.max {
			errs = append(errs, fmt.Errorf("settings: %s must be between %d and %d, got %d", r.field, r.min, r.max, v))
		}
	}
	if s.CompactTargetPercent >= s.CompactThresholdPercent {
		errs = append(errs, fmt.Errorf("settings: compact_target_percent (%d) must be below compact_threshold_percent (%d)",
			s.CompactTargetPercent, s.CompactThresholdPercent))
	}
	if s.DisplayName == "" {
		errs = append(errs, errors.New("settings: display_name must not be empty"))
	}
	return errors.Join(errs...)
}
