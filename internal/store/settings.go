package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/config"
)

// SettingsColumns is the explicit field-to-column mapping for ChatSettings.
// The statements below are written against this mapping; there is no
// runtime per-field SQL assembly.
var SettingsColumns = map[string]string{
	"display_name":              "display_name",
	"compact_threshold_percent": "compact_threshold_percent",
	"compact_target_percent":    "compact_target_percent",
	"keep_uncompacted_messages": "keep_uncompacted",
	"context_window":            "context_window",
}

// UserSettings loads a user's chat settings, falling back to defaults
// when the user has never saved any.
func (s *Store) UserSettings(ctx context.Context, userID string) (config.ChatSettings, error) {
	settings := config.DefaultChatSettings()
	err := s.db.QueryRowContext(ctx, `
		SELECT display_name, compact_threshold_percent, compact_target_percent,
		       keep_uncompacted, context_window
		FROM user_settings WHERE user_id = ?`,
		userID,
	).Scan(
		&settings.DisplayName,
		&settings.CompactThresholdPercent,
		&settings.CompactTargetPercent,
		&settings.KeepUncompacted,
		&settings.ContextWindow,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return config.DefaultChatSettings(), nil
		}
		return config.ChatSettings{}, fmt.Errorf("store: load settings: %w", err)
	}
	return settings, nil
}

// SaveUserSettings validates and persists a user's chat settings as one
// row, replacing any previous values.
func (s *Store) SaveUserSettings(ctx context.Context, userID string, settings config.ChatSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_settings (user_id, display_name, compact_threshold_percent,
		                           compact_target_percent, keep_uncompacted,
		                           context_window, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			display_name              = excluded.display_name,
			compact_threshold_percent = excluded.compact_threshold_percent,
			compact_target_percent    = excluded.compact_target_percent,
			keep_uncompacted          = excluded.keep_uncompacted,
			context_window            = excluded.context_window,
			updated_at                = excluded.updated_at`,
		userID,
		settings.DisplayName,
		settings.CompactThresholdPercent,
		settings.CompactTargetPercent,
		settings.KeepUncompacted,
		settings.ContextWindow,
		formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("store: save settings: %w", err)
	}
	return nil
}
