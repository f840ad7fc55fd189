package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// initConfig is the subset of config written by the init wizard.
type initConfig struct {
	Listen   string `yaml:"listen"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Provider struct {
		Kind   string `yaml:"kind"`
		OpenAI struct {
			BaseURL string `yaml:"base_url"`
			APIKey  string `yaml:"api_key"`
			Model   string `yaml:"model"`
		} `yaml:"openai,omitempty"`
		Anthropic struct {
			APIKey string `yaml:"api_key"`
			Model  string `yaml:"model"`
		} `yaml:"anthropic,omitempty"`
	} `yaml:"provider"`
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Interactively create a starter configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			if _, err := os.Stat(cfgPath); err == nil {
				return fmt.Errorf("%s already exists, refusing to overwrite", cfgPath)
			}

			var cfg initConfig
			cfg.Listen = ":8080"
			cfg.Database.Path = "cupid.db"
			cfg.Provider.Kind = "openai"
			cfg.Provider.OpenAI.BaseURL = "https://openrouter.ai/api/v1"

			form := huh.NewForm(
				huh.NewGroup(
					huh.NewInput().
						Title("Listen address").
						Value(&cfg.Listen),
					huh.NewInput().
						Title("Database path").
						Value(&cfg.Database.Path),
					huh.NewSelect[string]().
						Title("LLM provider").
						Options(
							huh.NewOption("OpenAI-compatible", "openai"),
							huh.NewOption("Anthropic", "anthropic"),
						).
						Value(&cfg.Provider.Kind),
				),
				huh.NewGroup(
					huh.NewInput().
						Title("Base URL").
						Value(&cfg.Provider.OpenAI.BaseURL),
					huh.NewInput().
						Title("API key").
						EchoMode(huh.EchoModePassword).
						Value(&cfg.Provider.OpenAI.APIKey),
					huh.NewInput().
						Title("Model").
						Value(&cfg.Provider.OpenAI.Model),
				).WithHideFunc(func() bool { return cfg.Provider.Kind != "openai" }),
				huh.NewGroup(
					huh.NewInput().
						Title("API key (blank to use ANTHROPIC_API_KEY)").
						EchoMode(huh.EchoModePassword).
						Value(&cfg.Provider.Anthropic.APIKey),
					huh.NewInput().
						Title("Model").
						Value(&cfg.Provider.Anthropic.Model),
				).WithHideFunc(func() bool { return cfg.Provider.Kind != "anthropic" }),
			)
			if err := form.Run(); err != nil {
				return err
			}

			data, err := yaml.Marshal(&cfg)
			if err != nil {
				return err
			}
			if err := os.WriteFile(cfgPath, data, 0o600); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", cfgPath)
			return nil
		},
	}
}
