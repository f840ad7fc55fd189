package config

import (
	"errors"
	"fmt"
)

// Validate checks the structural validity of a Config. All problems are
// reported at once via errors.Join rather than failing on the first.
func Validate(cfg *Config) error {
	var errs []error

	switch cfg.Provider.Kind {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		errs = append(errs, fmt.Errorf("config: unknown provider kind %q (supported: openai, anthropic)", cfg.Provider.Kind))
	}

	if cfg.Database.Path == "" {
		errs = append(errs, errors.New("config: database.path is required"))
	}

	if cfg.Compaction.SummaryMaxTokens < 0 {
		errs = append(errs, errors.New("config: compaction.summary_max_tokens must not be negative"))
	}
	if cfg.Compaction.MemoryMaxTokens < 0 {
		errs = append(errs, errors.New("config: compaction.memory_max_tokens must not be negative"))
	}

	return errors.Join(errs...)
}
