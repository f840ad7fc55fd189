// Package config loads and validates the application configuration
// and defines the per-user chat settings model.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/provider/anthropic"
	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/provider/openai"
)

// ProviderKind selects the completion backend.
type ProviderKind string

// Supported provider kinds.
const (
	ProviderOpenAI    ProviderKind = "openai"
	ProviderAnthropic ProviderKind = "anthropic"
)

// Config is the root application configuration.
type Config struct {
	Listen      string            `yaml:"listen"`
	Database    DatabaseConfig    `yaml:"database"`
	Provider    ProviderConfig    `yaml:"provider"`
	Compaction  CompactionConfig  `yaml:"compaction"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
}

// DatabaseConfig locates the SQLite database file.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ProviderConfig selects and configures the completion backend.
type ProviderConfig struct {
	Kind      ProviderKind     `yaml:"kind"`
	OpenAI    openai.Config    `yaml:"openai"`
	Anthropic anthropic.Config `yaml:"anthropic"`
}

// CompactionConfig holds the prompt templates and token budgets used by
// the summarizer and memory extractor. Prompts are loaded once at startup
// and passed into constructors, never read from ambient global state.
type CompactionConfig struct {
	SummaryPrompt    string        `yaml:"summary_prompt"`
	MemoryPrompt     string        `yaml:"memory_prompt"`
	SummaryMaxTokens int           `yaml:"summary_max_tokens"`
	MemoryMaxTokens  int           `yaml:"memory_max_tokens"`
	LLMTimeout       time.Duration `yaml:"llm_timeout"`
}

// MaintenanceConfig schedules the background sweeps.
type MaintenanceConfig struct {
	Enabled                 bool   `yaml:"enabled"`
	CollapseMarkersSchedule string `yaml:"collapse_markers_schedule"`
	IdleCompactionSchedule  string `yaml:"idle_compaction_schedule"`
}

// Load reads and parses the YAML configuration file at path, applying
// defaults to unset fields. Validation is a separate step (Validate).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	if c.Database.Path == "" {
		c.Database.Path = "cupid.db"
	}
	if c.Provider.Kind == "" {
		c.Provider.Kind = ProviderOpenAI
	}
	if c.Compaction.SummaryMaxTokens == 0 {
		c.Compaction.SummaryMaxTokens = 400
	}
	if c.Compaction.MemoryMaxTokens == 0 {
		c.Compaction.MemoryMaxTokens = 500
	}
	if c.Compaction.LLMTimeout == 0 {
		c.Compaction.LLMTimeout = 2 * time.Minute
	}
	if c.Maintenance.CollapseMarkersSchedule == "" {
		c.Maintenance.CollapseMarkersSchedule = "30 4 * * *"
	}
	if c.Maintenance.IdleCompactionSchedule == "" {
		c.Maintenance.IdleCompactionSchedule = "0 5 * * *"
	}
}
