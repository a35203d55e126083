// Package server assembles the PaisaFlow routing core: stores,
// reasoning backends, agents, the receipt chain, and the HTTP surface.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/paisaflow/paisaflow/internal/agent"
	"github.com/paisaflow/paisaflow/internal/api"
	"github.com/paisaflow/paisaflow/internal/api/handlers"
	"github.com/paisaflow/paisaflow/internal/config"
	"github.com/paisaflow/paisaflow/internal/events"
	"github.com/paisaflow/paisaflow/internal/pipeline"
	"github.com/paisaflow/paisaflow/internal/reasoning"
	"github.com/paisaflow/paisaflow/internal/routing"
	"github.com/paisaflow/paisaflow/internal/speech"
	"github.com/paisaflow/paisaflow/internal/store"
	"github.com/paisaflow/paisaflow/internal/telemetry"
	"github.com/paisaflow/paisaflow/internal/voice"
	"github.com/paisaflow/paisaflow/pkg/contracts"
)

// Server holds the assembled service and its shutdown hooks.
type Server struct {
	Handler http.Handler
	Port    int

	store      store.Store
	dispatcher *events.Dispatcher
	receipts   *pipeline.Chain
	otelStop   func(context.Context) error
}

// New wires the service from configuration.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	s := &Server{Port: cfg.Port}

	if cfg.Telemetry.Enabled {
		stop, err := telemetry.Init(cfg.Telemetry)
		if err != nil {
			return nil, fmt.Errorf("init telemetry: %w", err)
		}
		s.otelStop = stop
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s.store = st

	sinks := []contracts.EventSink{events.LogSink{}}
	if cfg.Events.WebhookURL != "" {
		sinks = append(sinks, events.NewWebhookSink(cfg.Events.WebhookURL, cfg.Events.WebhookSecret))
	}
	s.dispatcher = events.NewDispatcher(sinks...)

	reasonClient := reasoning.NewHTTPClient(providers(cfg),
		reasoning.WithRateLimit(cfg.Reasoning.RateLimit, int(cfg.Reasoning.RateLimit)+1))

	runner := agent.NewRunner(reasonClient, st, s.dispatcher)

	routerAgent := routing.New(runner)
	transcriber := speech.NewDeepgramTranscriber(cfg.Speech.APIKey, cfg.Speech.Model)
	voiceAgent := voice.New(runner, transcriber)

	s.receipts = pipeline.NewChain(
		pipeline.NewRegistry(
			pipeline.NewOCRProcessor(reasonClient),
			pipeline.NewClassifyProcessor(),
			pipeline.NewRecorderProcessor(st),
		),
		st,
		s.dispatcher,
	)

	h := handlers.New(routerAgent, voiceAgent, st, s.receipts, cfg.Version)
	s.Handler = api.NewRouter(h)

	return s, nil
}

// Shutdown drains the background work and releases resources.
func (s *Server) Shutdown(ctx context.Context) {
	s.receipts.Wait()
	s.dispatcher.Close()

	if err := s.store.Close(); err != nil {
		log.Warn().Err(err).Msg("Store close failed")
	}
	if s.otelStop != nil {
		if err := s.otelStop(ctx); err != nil {
			log.Warn().Err(err).Msg("Telemetry shutdown failed")
		}
	}
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.Database.URL == "" {
		log.Info().Msg("No database configured, using in-memory store")
		return store.NewMemoryStore(), nil
	}
	st, err := store.NewPostgresStore(ctx, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("open postgres store: %w", err)
	}
	log.Info().Msg("Connected to PostgreSQL store")
	return st, nil
}

// providers builds the ordered reasoning backends, primary first.
func providers(cfg *config.Config) []reasoning.Provider {
	out := []reasoning.Provider{{
		Name:     "primary",
		Kind:     cfg.Reasoning.Kind,
		Endpoint: cfg.Reasoning.Endpoint,
		APIKey:   cfg.Reasoning.APIKey,
		Model:    cfg.Reasoning.Model,
	}}
	if cfg.Reasoning.BackupKind != "" {
		out = append(out, reasoning.Provider{
			Name:   "backup",
			Kind:   cfg.Reasoning.BackupKind,
			APIKey: cfg.Reasoning.BackupKey,
			Model:  cfg.Reasoning.BackupModel,
		})
	}
	return out
}
