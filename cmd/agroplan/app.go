package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/abutispinach/agroplan/internal/agent"
	"github.com/abutispinach/agroplan/internal/governance"
	"github.com/abutispinach/agroplan/internal/llm"
	"github.com/abutispinach/agroplan/internal/log"
	"github.com/abutispinach/agroplan/internal/observability"
	"github.com/abutispinach/agroplan/internal/speech"
	"github.com/abutispinach/agroplan/internal/store"
	"github.com/abutispinach/agroplan/internal/tools"
	"github.com/abutispinach/agroplan/internal/weather"
	"github.com/abutispinach/agroplan/pkg/config"
)

// app holds what every run shares. It is built once and never mutated.
type app struct {
	cfg     *config.Config
	catalog *agent.Catalog
	history *store.HistoryStore
	runner  *agent.Runner
}

type appOptions struct {
	events  io.Writer
	narrate bool
}

func newApp(ctx context.Context, configPath string, opts appOptions) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	catalog, err := agent.LoadCatalog(cfg.App.StepsFile)
	if err != nil {
		return nil, err
	}

	pName, pCfg := cfg.GetDefaultProvider()
	model, err := llm.New(ctx, pName, pCfg)
	if err != nil {
		return nil, err
	}
	log.Info("language model ready", "provider", pName, "model", pCfg.Model)

	policy, err := governance.NewPolicyFromConfig(cfg.Policy)
	if err != nil {
		return nil, err
	}

	events := observability.NewLogger(opts.events, cfg.Logs.Dir)

	registry := tools.NewRegistry()
	searchTool, err := tools.NewSearchTool()
	if err != nil {
		log.Warn("failed to initialize search tool", "error", err)
	} else {
		registry.Register(searchTool)
	}
	registry.Register(tools.NewReaderTool(30 * time.Second))

	pipeline := agent.NewPipeline(catalog, model, cfg.App.Temperature)
	pipeline.Tools = registry
	pipeline.Events = events

	if cfg.Weather.APIKey == "" {
		log.Warn("weather.api_key is empty; weather lookups will fail and runs continue without weather")
	}

	a := &app{cfg: cfg, catalog: catalog}
	a.runner = &agent.Runner{
		Policy:   policy,
		Weather:  weather.NewClient(cfg.Weather.BaseURL, cfg.Weather.APIKey, cfg.Weather.Units, cfg.Weather.Timeout()),
		Pipeline: pipeline,
		Events:   events,
	}

	if opts.narrate && cfg.Speech.Enabled {
		tts := speech.NewGoogleTTS(cfg.Speech.BaseURL, cfg.Speech.Timeout())
		a.runner.Narrator = speech.NewNarrator(tts, cfg.Speech.Language)
	}

	if cfg.Memory.Path != "" {
		history, err := store.NewHistoryStore(cfg.Memory.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open history: %w", err)
		}
		a.history = history
		a.runner.Recorder = history
	}

	return a, nil
}

func (a *app) Close() {
	if a.history != nil {
		log.CloseError("history", a.history.Close())
	}
}

func openHistory(configPath string) (*store.HistoryStore, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if cfg.Memory.Path == "" {
		return nil, fmt.Errorf("run history is disabled: set memory.path in %s", configPath)
	}
	return store.NewHistoryStore(cfg.Memory.Path)
}
