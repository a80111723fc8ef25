// Package app provides the main application bootstrap and runtime orchestration.
//
// The App type wires together all dependencies and exposes methods for the
// command line modes:
//
//   - Evaluate: run the tagging service over the labeled dataset and report metrics
//   - Tag: tag single items
//   - Serve: HTTP API plus health probes and Prometheus metrics
package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lueurxax/event-tagger/internal/api"
	"github.com/lueurxax/event-tagger/internal/core/domain"
	coreerrors "github.com/lueurxax/event-tagger/internal/core/errors"
	"github.com/lueurxax/event-tagger/internal/core/llm"
	"github.com/lueurxax/event-tagger/internal/dataset"
	"github.com/lueurxax/event-tagger/internal/evaluation"
	"github.com/lueurxax/event-tagger/internal/platform/config"
	"github.com/lueurxax/event-tagger/internal/platform/observability"
	"github.com/lueurxax/event-tagger/internal/tagging"
)

const (
	logFieldDataset = "dataset"
	logFieldTags    = "tags"
	logFieldModel   = "model"
)

// EvaluateOptions override the configured evaluation settings. Zero values
// keep the configuration.
type EvaluateOptions struct {
	Limit       int
	Concurrency int
}

// App holds the application dependencies and provides methods to run different modes.
type App struct {
	cfg    *config.Config
	logger *zerolog.Logger

	once    sync.Once
	service *tagging.Service
	initErr error
}

// New creates an application from configuration.
func New(cfg *config.Config, logger *zerolog.Logger) *App {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &App{cfg: cfg, logger: logger}
}

// Service returns the tagging service, loading the vocabulary on first use.
func (a *App) Service() (*tagging.Service, error) {
	a.once.Do(func() {
		catalog, err := dataset.LoadCatalog(a.cfg.TagRulesPath(), a.logger)
		if err != nil {
			a.initErr = fmt.Errorf("load tag vocabulary: %w", err)

			return
		}

		client := llm.New(a.cfg, a.logger)

		a.logger.Info().
			Int(logFieldTags, catalog.Len()).
			Str(logFieldModel, a.cfg.LLMModel).
			Str("provider", string(client.Provider())).
			Msg("tagging service ready")

		a.service = tagging.NewService(client, catalog, tagging.OptionsFromConfig(a.cfg), a.logger)
	})

	return a.service, a.initErr
}

// Catalog returns the loaded tag vocabulary.
func (a *App) Catalog() (*domain.Catalog, error) {
	svc, err := a.Service()
	if err != nil {
		return nil, err
	}

	return svc.Catalog(), nil
}

// Evaluator builds an evaluation driver over the configured dataset.
func (a *App) Evaluator(opts EvaluateOptions) (*evaluation.Evaluator, error) {
	svc, err := a.Service()
	if err != nil {
		return nil, err
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = a.cfg.EvalConcurrency
	}

	a.logger.Info().Str(logFieldDataset, a.cfg.EvalPath()).Int("concurrency", concurrency).Msg("evaluation configured")

	return evaluation.NewEvaluator(
		dataset.NewFileProvider(a.cfg.EvalPath(), a.logger),
		svc,
		evaluation.WithConcurrency(concurrency),
		evaluation.WithLimit(opts.Limit),
		evaluation.WithLogger(a.logger),
		evaluation.WithRecorder(observability.NewRecorder()),
		evaluation.WithModelName(a.cfg.LLMModel),
	), nil
}

// RunEvaluation runs one evaluation and returns its report.
func (a *App) RunEvaluation(ctx context.Context, opts EvaluateOptions) (*evaluation.Report, error) {
	evaluator, err := a.Evaluator(opts)
	if err != nil {
		return nil, err
	}

	return evaluator.Run(ctx)
}

// RunServer serves the API, health probes and metrics until ctx is canceled.
func (a *App) RunServer(ctx context.Context) error {
	svc, err := a.Service()
	if err != nil {
		return err
	}

	evaluator, err := a.Evaluator(EvaluateOptions{})
	if err != nil {
		return err
	}

	handler := api.NewHandler(svc, evaluator, a.cfg.EvalConcurrency, a.logger)

	ready := func(context.Context) error {
		if svc.Catalog().Len() == 0 {
			return coreerrors.ErrEmptyCatalog
		}

		return nil
	}

	srv := observability.NewServer(a.cfg.HTTPPort, ready, handler, a.logger)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("http server start: %w", err)
	}

	return nil
}
