package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/ent0n29/levo/internal/completion"
	"github.com/ent0n29/levo/internal/config"
	"github.com/ent0n29/levo/internal/conversation"
	"github.com/ent0n29/levo/internal/documents"
	"github.com/ent0n29/levo/internal/httpapi"
	"github.com/ent0n29/levo/internal/links"
	"github.com/ent0n29/levo/internal/logging"
	"github.com/ent0n29/levo/internal/memory"
	"github.com/ent0n29/levo/internal/news"
	"github.com/ent0n29/levo/internal/observability"
)

type BuildResult struct {
	Config  config.Config
	API     *httpapi.Server
	Chat    *conversation.Service
	Store   memory.Store
	Metrics *observability.Metrics
	LLMMode string
	Search  string

	// Cleanup should be called on shutdown to release the memory backend.
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	memoryStore, err := memory.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("memory store init failed: %w", err)
	}

	gateway, err := completion.New(completion.Config{
		Mode:          cfg.LLMMode,
		BaseURL:       cfg.LLMBaseURL,
		APIKey:        cfg.LLMAPIKey,
		Model:         cfg.LLMModel,
		Temperature:   cfg.LLMTemperature,
		Timeout:       cfg.ProviderTimeout,
		StreamTimeout: cfg.StreamTimeout,
	})
	if err != nil {
		_ = memoryStore.Close()
		return nil, fmt.Errorf("completion gateway init failed: %w", err)
	}

	provider, err := resolveSearchProvider(cfg)
	if err != nil {
		_ = memoryStore.Close()
		return nil, err
	}
	resolver := links.NewResolver(provider, cfg.SearchTimeout).WithObserver(func(outcome string) {
		metrics.LinkLookups.WithLabelValues(outcome).Inc()
		if outcome == "ok" {
			metrics.ObserveIndicator(observability.IndicatorLinkHit)
		}
	})

	files, err := documents.NewStore(cfg.FilesDir)
	if err != nil {
		_ = memoryStore.Close()
		return nil, fmt.Errorf("documents store init failed: %w", err)
	}

	chat := conversation.NewService(conversation.Config{
		Instructions:  cfg.SystemPrompt,
		DefaultUserID: cfg.DefaultUserID,
		LinkLimit:     cfg.SearchLimit,
	}, memoryStore, resolver, gateway, metrics)

	vision, images := resolveMediaClients(cfg)
	llmMode := completion.ModeOf(gateway)

	api := httpapi.New(cfg, httpapi.Deps{
		Chat:    chat,
		Search:  resolver,
		News:    news.NewClient(cfg.NewsBaseURL, cfg.NewsAPIKey, cfg.SearchTimeout),
		Vision:  vision,
		Images:  images,
		Files:   files,
		Logger:  logging.FromCtx(ctx),
		LLMMode: llmMode,
	}, metrics)

	cleanup := func() error {
		var errs []string
		if err := memoryStore.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if len(errs) > 0 {
			return fmt.Errorf("%s", strings.Join(errs, "; "))
		}
		return nil
	}

	return &BuildResult{
		Config:  cfg,
		API:     api,
		Chat:    chat,
		Store:   memoryStore,
		Metrics: metrics,
		LLMMode: llmMode,
		Search:  provider.Name(),
		Cleanup: cleanup,
	}, nil
}
