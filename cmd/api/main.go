package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/autosales-assistant/internal/api/router"
	"github.com/wolfman30/autosales-assistant/internal/app/bootstrap"
	appconfig "github.com/wolfman30/autosales-assistant/internal/config"
	"github.com/wolfman30/autosales-assistant/internal/conversation"
	"github.com/wolfman30/autosales-assistant/internal/observability/metrics"
	"github.com/wolfman30/autosales-assistant/pkg/logging"
)

func main() {
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting autosales-assistant API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()
	handler, cleanup, err := setupHandler(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize server", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// setupDialogueMetrics registers dialogue and process collectors on a private registry.
func setupDialogueMetrics() (http.Handler, *metrics.DialogueMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewDialogueMetrics(reg)
}

// setupHandler builds the catalog, session store, intent classifier and router.
// The cleanup func releases Redis and model provider connections.
func setupHandler(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (http.Handler, func(), error) {
	metricsHandler, dialogueMetrics := setupDialogueMetrics()

	cars, err := bootstrap.BuildCatalog(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	store, closeStore, err := bootstrap.BuildSessionStore(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	classifier, closeClassifier, err := bootstrap.BuildIntentClassifier(ctx, cfg, dialogueMetrics, logger)
	if err != nil {
		_ = closeStore()
		return nil, nil, err
	}

	orchestrator := conversation.NewOrchestrator(store, cars, classifier, logger,
		conversation.WithStoreTimeout(cfg.SessionOpTimeout),
		conversation.WithOptionLimit(cfg.OptionLimit),
		conversation.WithTurnObserver(dialogueMetrics),
	)
	conversationHandler := conversation.NewHandler(orchestrator,
		conversation.NewTemplateResponder(cfg.FinancingRate), cfg.FinancingRate, logger)

	handler := router.New(&router.Config{
		Logger:              logger,
		ConversationHandler: conversationHandler,
		MetricsHandler:      metricsHandler,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		RateLimitRPS:        cfg.RateLimitRPS,
		RateLimitBurst:      cfg.RateLimitBurst,
	})

	cleanup := func() {
		if err := closeClassifier(); err != nil {
			logger.Warn("failed to close intent provider", "error", err)
		}
		if err := closeStore(); err != nil {
			logger.Warn("failed to close session store", "error", err)
		}
	}
	return handler, cleanup, nil
}
