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

	"github.com/atifgpt/chat-platform/internal/config"
	"github.com/atifgpt/chat-platform/internal/handler"
	"github.com/atifgpt/chat-platform/internal/llm"
	"github.com/atifgpt/chat-platform/internal/middleware"
	natsclient "github.com/atifgpt/chat-platform/internal/nats"
	"github.com/atifgpt/chat-platform/internal/service"
	"github.com/atifgpt/chat-platform/internal/store"
	"github.com/atifgpt/chat-platform/pkg/logger"
	_ "github.com/atifgpt/chat-platform/pkg/metrics"
	"github.com/atifgpt/chat-platform/pkg/tracing"
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
		tp, err := tracing.InitTracer(ctx, "chat-platform", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Connect to NATS when configured; notifications are optional
	var notifier *natsclient.Notifier
	if cfg.NATSURL != "" {
		client, err := natsclient.Connect(natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Error("failed to connect to NATS", zap.Error(err))
			os.Exit(1)
		}
		defer client.Close()

		notifier = natsclient.NewNotifier(client)
		if err := notifier.EnsureStream(ctx); err != nil {
			log.Error("failed to ensure notifications stream", zap.Error(err))
			os.Exit(1)
		}
	}

	// Initialize LLM client
	llmClient, err := buildLLMClient(cfg)
	if err != nil {
		log.Error("failed to create LLM client", zap.Error(err))
		os.Exit(1)
	}
	log.Info("LLM client ready", zap.String("provider", llmClient.Name()))

	// Initialize services
	policy := store.Lenient
	if cfg.StrictStoreErrors {
		policy = store.Strict
	}

	var chatNotifier service.Notifier
	if notifier != nil {
		chatNotifier = notifier
	}
	chatSvc := service.NewChatService(chatNotifier, policy, log)
	messageSvc := service.NewMessageService(chatSvc, llmClient, log)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(notifier)
	chatHandler := handler.NewChatHandler(chatSvc, log)
	messageHandler := handler.NewMessageHandler(messageSvc, log)
	streamHandler := handler.NewStreamHandler(messageSvc, log)

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
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Route("/chats", func(r chi.Router) {
			r.Post("/", chatHandler.Create)
			r.Get("/", chatHandler.List)
			r.Get("/hidden", chatHandler.ListHidden)
			r.Get("/current", chatHandler.Current)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", chatHandler.Get)
				r.Delete("/", chatHandler.Delete)
				r.Put("/select", chatHandler.Select)
				r.Put("/title", chatHandler.Rename)
				r.Put("/archive", chatHandler.Archive)
				r.Put("/hide", chatHandler.Hide)
				r.Put("/unhide", chatHandler.Unhide)

				// Messages
				r.Get("/messages", messageHandler.List)
				r.Post("/messages", messageHandler.Send)

				// Streaming
				r.Post("/stream", streamHandler.Send)
			})
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

// buildLLMClient picks the completion provider: the configured default
// first, then whichever provider has a key.
func buildLLMClient(cfg *config.Config) (llm.Client, error) {
	switch llm.Provider(cfg.DefaultLLM) {
	case llm.ProviderOpenAI:
		if cfg.OpenAIAPIKey != "" {
			return llm.NewOpenAIClient(cfg.OpenAIAPIKey)
		}
	case llm.ProviderAnthropic:
		if cfg.AnthropicAPIKey != "" {
			return llm.NewAnthropicClient(cfg.AnthropicAPIKey)
		}
	}

	if cfg.GeminiAPIKey != "" {
		opts := []llm.GeminiOption{
			llm.WithModel(cfg.GeminiModel),
			llm.WithWordDelay(cfg.StreamWordDelay),
		}
		if cfg.GeminiBaseURL != "" {
			opts = append(opts, llm.WithBaseURL(cfg.GeminiBaseURL))
		}
		return llm.NewGeminiClient(cfg.GeminiAPIKey, opts...)
	}
	if cfg.OpenAIAPIKey != "" {
		return llm.NewOpenAIClient(cfg.OpenAIAPIKey)
	}
	if cfg.AnthropicAPIKey != "" {
		return llm.NewAnthropicClient(cfg.AnthropicAPIKey)
	}

	return nil, fmt.Errorf("no LLM API key configured")
}
