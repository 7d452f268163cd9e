package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/antoniostano/penny/internal/brain"
	"github.com/antoniostano/penny/internal/config"
	"github.com/antoniostano/penny/internal/dialog"
	"github.com/antoniostano/penny/internal/httpapi"
	"github.com/antoniostano/penny/internal/observability"
	"github.com/antoniostano/penny/internal/session"
	"github.com/antoniostano/penny/internal/settings"
	"github.com/antoniostano/penny/internal/speech"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	settingsStore, err := settings.NewStore(ctx, cfg.DatabaseURL, cfg.SettingsPath)
	if err != nil {
		log.Fatalf("settings store init failed: %v", err)
	}
	defer settingsStore.Close()
	if cfg.DatabaseURL != "" {
		log.Printf("settings store: postgres")
	} else {
		log.Printf("settings store: file (%s)", cfg.SettingsPath)
	}

	var dialogBrain brain.Brain
	brainMode := strings.ToLower(strings.TrimSpace(cfg.BrainProvider))
	if brainMode == "" {
		brainMode = "auto"
	}
	switch brainMode {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			log.Fatalf("BRAIN_PROVIDER=openai but OPENAI_API_KEY is not set")
		}
		dialogBrain = newOpenAIBrain(cfg)
		log.Printf("brain provider: openai (%s)", cfg.OpenAIModel)
	case "mock":
		dialogBrain = brain.NewMockBrain()
		log.Printf("brain provider: mock")
	case "auto":
		if cfg.OpenAIAPIKey != "" {
			dialogBrain = newOpenAIBrain(cfg)
			log.Printf("brain provider: openai (%s)", cfg.OpenAIModel)
		} else {
			dialogBrain = brain.NewMockBrain()
			log.Printf("brain provider: mock (no openai key)")
		}
	default:
		log.Fatalf("invalid BRAIN_PROVIDER: %q (expected auto|openai|mock)", cfg.BrainProvider)
	}
	dialogBrain = brain.NewRetryBrain(dialogBrain, cfg.BrainMaxAttempts)

	artifacts, err := speech.NewArtifactStore(cfg.AudioDir)
	if err != nil {
		log.Fatalf("artifact store init failed: %v", err)
	}
	synth := speech.NewSelector(
		speech.NewElevenLabsProvider(speech.ElevenLabsConfig{Timeout: cfg.SynthesisTimeout}),
		artifacts,
	)

	sessions := session.NewManager(cfg.CallInactivityTimeout)
	sessions.SetExpireHook(func(callSID string) {
		log.Printf("call %s expired after inactivity", callSID)
		metrics.CallEvents.WithLabelValues("expired").Inc()
		metrics.ActiveCalls.Set(float64(sessions.ActiveCount()))
	})

	hub := dialog.NewHub()
	pipeline := dialog.NewPipeline(sessions, dialogBrain, hub, metrics, cfg.CompletionTimeout)

	api := httpapi.New(cfg, settingsStore, sessions, pipeline, synth, hub, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	sessions.StartJanitor(runCtx, cfg.JanitorInterval)

	go func() {
		log.Printf("server listening on %s (public base %s)", cfg.BindAddr, cfg.PublicBaseURL)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}

func newOpenAIBrain(cfg config.Config) brain.Brain {
	return brain.NewOpenAIBrain(brain.OpenAIConfig{
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.OpenAIModel,
		Timeout: cfg.CompletionTimeout,
	})
}
