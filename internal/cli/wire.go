package cli

import (
	"context"

	"github.com/atim-dev/atim/internal/analysis"
	"github.com/atim-dev/atim/internal/composer"
	"github.com/atim-dev/atim/internal/config"
	"github.com/atim-dev/atim/internal/logger"
	"github.com/atim-dev/atim/internal/output"
	"github.com/atim-dev/atim/internal/report"
	"github.com/atim-dev/atim/internal/storage"
	"github.com/atim-dev/atim/internal/telegram"
	"github.com/atim-dev/atim/internal/trend"
	"github.com/atim-dev/atim/internal/trendsource"
)

func newFetcher(cfg *config.Config) *trendsource.Client {
	return trendsource.NewClient(
		cfg.Trends.BaseURL,
		cfg.Trends.Timeout,
		trendsource.ClientConfig{
			Timeframe:         cfg.Trends.Timeframe,
			Geo:               cfg.Trends.Geo,
			MaxRetries:        cfg.Trends.MaxRetries,
			RetryDelayBase:    cfg.Trends.RetryDelayBase,
			RequestsPerSecond: cfg.Trends.RequestsPerSecond,
			Burst:             cfg.Trends.Burst,
			CacheSize:         cfg.Trends.CacheSize,
			CacheTTL:          cfg.Trends.CacheTTL,
			BreakerFailures:   uint32(cfg.Trends.BreakerFailures),
			BreakerCooldown:   cfg.Trends.BreakerCooldown,
		},
	)
}

func newComposer(cfg *config.Config) composer.Composer {
	if cfg.Composer.Provider != "ollama" {
		return composer.TemplateComposer{}
	}
	llm := composer.NewOllamaComposer(cfg.Composer.BaseURL, cfg.Composer.Model, cfg.Composer.APIKey, cfg.Composer.Timeout)
	llm.Temperature = cfg.Composer.Temperature
	return composer.Fallback{Primary: llm, Secondary: composer.TemplateComposer{}}
}

// openStore returns nil when the archive is disabled.
func openStore(cfg *config.Config) (*storage.Storage, error) {
	if !cfg.Storage.Enabled {
		logger.Debug("Report archive disabled")
		return nil, nil
	}
	return storage.New(cfg.Storage.MaxReports, cfg.Storage.DBPath)
}

// newNotifier returns nil when Telegram is disabled.
func newNotifier(cfg *config.Config) (*telegram.Client, error) {
	if !cfg.Telegram.Enabled {
		logger.Debug("Telegram notifications disabled")
		return nil, nil
	}
	client, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
	if err != nil {
		return nil, err
	}
	logger.Info("Telegram client initialized successfully")
	return client, nil
}

func newPipeline(cfg *config.Config, fetcher trend.Fetcher, store *storage.Storage, notifier *telegram.Client, reportBaseURL string) (*analysis.Pipeline, error) {
	renderer, err := report.NewRenderer()
	if err != nil {
		return nil, err
	}

	deps := analysis.Deps{
		Scorer: trend.NewScorer(fetcher, trend.Config{
			Concurrency:  cfg.Trends.Concurrency,
			FetchTimeout: cfg.Trends.FetchTimeout,
		}),
		Sampler:       trend.NewSampler(nil),
		Composer:      newComposer(cfg),
		Renderer:      renderer,
		ReportBaseURL: reportBaseURL,
	}
	// Typed nil pointers must not reach the interfaces.
	if store != nil {
		deps.Store = store
	}
	if notifier != nil {
		deps.Notifier = notifier
	}
	return analysis.New(deps), nil
}

func optionsFromConfig(cfg *config.Config) analysis.Options {
	return analysis.Options{
		MaxKeywords:        cfg.Analysis.MaxKeywords,
		MinConfidence:      cfg.Analysis.MinConfidence,
		FallbackSampleSize: cfg.Analysis.FallbackSampleSize,
		AdditionalKeywords: cfg.Analysis.AdditionalKeywords,
		Season:             cfg.Context.Season,
		UpcomingEvents:     cfg.Context.UpcomingEvents,
	}
}

// progressFetcher advances a progress bar after every fetch attempt.
type progressFetcher struct {
	trend.Fetcher
	progress *output.Progress
}

func (f progressFetcher) FetchInterest(ctx context.Context, keyword string) ([]float64, error) {
	defer f.progress.Add()
	return f.Fetcher.FetchInterest(ctx, keyword)
}
