package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/chat"
	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/compact"
	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/config"
	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/maintenance"
	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/memory"
	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/notify"
	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/provider"
	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/provider/anthropic"
	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/provider/openai"
	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/server"
	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/store"
	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/timegap"
)

// runApp loads configuration, wires all services, and blocks until a
// shutdown signal is received.
func runApp(ctx context.Context, cfgPath string, logger *slog.Logger) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	llm, err := newProvider(cfg, logger)
	if err != nil {
		return err
	}

	hub := notify.NewHub(logger)
	memories := memory.NewStore(st, logger)
	detector := timegap.NewDetector(st, timegap.DefaultThreshold, logger)
	extractor := memory.NewExtractor(llm, memories, cfg.Compaction.MemoryPrompt, cfg.Compaction.MemoryMaxTokens, logger)
	summarizer := compact.NewLLMSummarizer(llm, cfg.Compaction.SummaryPrompt, cfg.Compaction.SummaryMaxTokens)
	compactor := compact.NewOrchestrator(
		st, summarizer, extractor,
		compact.NewCharEstimator(0),
		hub, detector.Threshold(), logger,
	)
	chatSvc := chat.NewService(st, llm, memories, detector, compactor, logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Maintenance.Enabled {
		scheduler := maintenance.NewScheduler(logger)
		jobs := []maintenance.Job{
			&maintenance.CollapseMarkersJob{
				Store:    st,
				Detector: detector,
				Cron:     cfg.Maintenance.CollapseMarkersSchedule,
				Logger:   logger,
			},
			&maintenance.IdleCompactionJob{
				Store:     st,
				Compactor: compactor,
				Cron:      cfg.Maintenance.IdleCompactionSchedule,
				Logger:    logger,
			},
		}
		for _, j := range jobs {
			if err := scheduler.RegisterJob(j); err != nil {
				return err
			}
		}
		if err := scheduler.Start(); err != nil {
			return err
		}
		defer func() { _ = scheduler.Stop(context.Background()) }()
	}

	srv := server.New(cfg.Listen, st, chatSvc, memories, compactor, hub, logger)
	return srv.ListenAndServe(ctx)
}

// newProvider constructs the completion backend selected by config.
func newProvider(cfg *config.Config, logger *slog.Logger) (provider.Provider, error) {
	switch cfg.Provider.Kind {
	case config.ProviderOpenAI:
		return openai.New(cfg.Provider.OpenAI, logger)
	case config.ProviderAnthropic:
		return anthropic.New(cfg.Provider.Anthropic, logger)
	default:
		return nil, fmt.Errorf("unknown provider kind %q", cfg.Provider.Kind)
	}
}
