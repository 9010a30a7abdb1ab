// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/leadline-ai/bot-platform/internal/chat"
	"github.com/leadline-ai/bot-platform/internal/config"
	"github.com/leadline-ai/bot-platform/internal/embedding"
	"github.com/leadline-ai/bot-platform/internal/handler"
	"github.com/leadline-ai/bot-platform/internal/lead"
	"github.com/leadline-ai/bot-platform/internal/llm"
	"github.com/leadline-ai/bot-platform/internal/middleware"
	natsclient "github.com/leadline-ai/bot-platform/internal/nats"
	"github.com/leadline-ai/bot-platform/internal/notify"
	"github.com/leadline-ai/bot-platform/internal/ratelimit"
	"github.com/leadline-ai/bot-platform/internal/retrieval"
	"github.com/leadline-ai/bot-platform/internal/store"
	"github.com/leadline-ai/bot-platform/internal/usage"
	"github.com/leadline-ai/bot-platform/pkg/logger"
	"github.com/leadline-ai/bot-platform/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "bot-platform", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Connect to Postgres, the only load-bearing dependency.
	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", zap.Error(err))
		os.Exit(1)
	}
	defer db.Close()

	// Redis backs the cross-instance visitor rate limit; the service
	// degrades without it.
	limiter, err := ratelimit.New(ctx, cfg.RedisURL)
	if err != nil {
		log.Warn("failed to connect to Redis, visitor rate limiting disabled", zap.Error(err))
		limiter = nil
	} else {
		defer limiter.Close()
	}

	// NATS carries the notification queue; the dispatcher degrades to
	// direct delivery without it.
	var streamManager *natsclient.StreamManager
	natsClient, err := natsclient.Connect(ctx, natsclient.Config{
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
	}, log)
	if err != nil {
		log.Warn("failed to connect to NATS, notifications deliver in-process", zap.Error(err))
	} else {
		defer natsClient.Close()
		streamManager = natsclient.NewStreamManager(natsClient)
		if err := streamManager.EnsureStream(ctx); err != nil {
			log.Warn("failed to ensure notification stream", zap.Error(err))
			streamManager = nil
		}
	}

	// Initialize LLM client
	var llmClient llm.Client
	if cfg.AnthropicAPIKey != "" && cfg.DefaultLLM != string(llm.ProviderOpenAI) {
		llmClient, err = llm.NewAnthropicClient(cfg.AnthropicAPIKey)
	} else {
		llmClient, err = llm.NewOpenAIClient(cfg.OpenAIAPIKey)
	}
	if err != nil {
		log.Error("failed to create LLM client", zap.Error(err))
		os.Exit(1)
	}

	embedder, err := embedding.NewOpenAIClient(cfg.OpenAIAPIKey)
	if err != nil {
		log.Error("failed to create embedding client", zap.Error(err))
		os.Exit(1)
	}

	// Repositories
	bots := store.NewBotRepository(db)
	tenants := store.NewTenantRepository(db)
	conversations := store.NewConversationRepository(db)
	messages := store.NewMessageRepository(db)
	knowledge := store.NewKnowledgeRepository(db)
	leads := store.NewLeadRepository(db)
	usageEvents := store.NewUsageEventRepository(db)

	// Pipeline components
	gate := usage.NewGate(usageEvents, tenants, log)
	retriever := retrieval.New(embedder, knowledge, cfg.EmbeddingTimeout, log)
	leadSvc := lead.NewService(leads, cfg.PurchaseKeywords)

	sender := notify.NewSender(cfg.NotifyTimeout, notify.EmailConfig{
		Endpoint: cfg.EmailEndpoint,
		APIKey:   cfg.EmailAPIKey,
		From:     cfg.EmailFrom,
	}, log)
	dispatcher := notify.NewQueueDispatcher(streamManager, sender, log)

	if streamManager != nil {
		worker := notify.NewWorker(streamManager, sender, log)
		stop, err := worker.Start(ctx)
		if err != nil {
			log.Warn("failed to start notification worker", zap.Error(err))
		} else {
			defer stop()
		}
	}

	turns := chat.NewTurnService(
		bots, tenants, conversations, messages, leads, usageEvents,
		gate, retriever, leadSvc, llmClient, dispatcher,
		chat.Config{LLMTimeout: cfg.LLMTimeout, MaxTokens: cfg.LLMMaxTokens},
		log,
	)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(db, limiter, natsClient)
	chatHandler := handler.NewChatHandler(turns, log)
	botHandler := handler.NewBotHandler(bots, log)
	knowledgeHandler := handler.NewKnowledgeHandler(bots, retriever, log)
	usageHandler := handler.NewUsageHandler(gate, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Correlation-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Public turn endpoint consumed by the embed widget. Anonymous:
		// tenant identity derives from the bot id.
		r.With(middleware.VisitorRateLimit(limiter, cfg.VisitorRateLimit, cfg.VisitorRateWindow, log)).
			Post("/bots/{botID}/chat", chatHandler.Converse)

		// Dashboard API
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTSecret))
			r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

			r.Get("/bots/{botID}", botHandler.Get)
			r.Patch("/bots/{botID}", botHandler.Update)
			r.Get("/bots/{botID}/knowledge/search", knowledgeHandler.Search)
			r.Get("/tenants/me/usage", usageHandler.Current)
		})
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
