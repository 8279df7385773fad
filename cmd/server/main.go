package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/ct-jyjntc/ai-discussion/internal/cache"
	"github.com/ct-jyjntc/ai-discussion/internal/config"
	discussionRepo "github.com/ct-jyjntc/ai-discussion/internal/domain/repositories/discussion"
	"github.com/ct-jyjntc/ai-discussion/internal/handler"
	"github.com/ct-jyjntc/ai-discussion/internal/middleware"
	"github.com/ct-jyjntc/ai-discussion/internal/repository/postgres"
	postgresDiscussion "github.com/ct-jyjntc/ai-discussion/internal/repository/postgres/discussion"
	serviceDiscussion "github.com/ct-jyjntc/ai-discussion/internal/service/discussion"
	"github.com/ct-jyjntc/ai-discussion/internal/service/discussion/consensus"
	serviceLLM "github.com/ct-jyjntc/ai-discussion/internal/service/llm"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	logOut := io.Writer(os.Stdout)
	if cfg.LogDir != "" {
		logFile, err := config.SetupLogFile(cfg.LogDir, cfg.LogMaxFiles)
		if err != nil {
			log.Fatalf("Failed to set up log file: %v", err)
		}
		defer logFile.Close()
		logOut = io.MultiWriter(os.Stdout, logFile)
	}

	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"max_rounds", cfg.MaxRounds,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry, err := serviceLLM.SetupProviders(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to set up model providers: %v", err)
	}

	// Response cache, shared by persona turns and the consensus judge
	responseCache := cache.New(cfg.CacheMaxEntries, cfg.CacheTTL)
	responseCache.StartSweeper(ctx, config.CacheSweepInterval, logger)

	// Optional Postgres session archive
	var archive discussionRepo.SessionRepository
	if cfg.DatabaseURL != "" {
		pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to create connection pool: %v", err)
		}
		defer pool.Close()

		archive = postgresDiscussion.NewSessionRepository(&postgres.RepositoryConfig{
			Pool:   pool,
			Tables: postgres.NewTableNames(cfg.TablePrefix),
			Logger: logger,
		})
		logger.Info("session archive enabled", "table_prefix", cfg.TablePrefix)
	} else {
		logger.Warn("DATABASE_URL not set, sessions are kept in memory only")
	}

	// Persona profiles (defaults, optionally overridden from YAML)
	profiles, err := config.LoadProfiles(cfg)
	if err != nil {
		log.Fatalf("Failed to load persona profiles: %v", err)
	}

	detector := consensus.NewDetector(registry, cfg.Judge, responseCache, cfg.MaxRounds, logger)
	discussionService := serviceDiscussion.NewService(cfg, profiles, registry, detector, responseCache, archive, logger)

	discussionHandler := handler.NewDiscussionHandler(discussionService, archive, responseCache, logger)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", discussionHandler.HealthCheck)

	mux.HandleFunc("POST /api/discussions", discussionHandler.StartDiscussion)
	mux.HandleFunc("GET /api/discussions", discussionHandler.ListDiscussions)
	mux.HandleFunc("GET /api/discussions/{id}", discussionHandler.GetDiscussion)
	mux.HandleFunc("GET /api/discussions/{id}/stream", discussionHandler.StreamDiscussion) // SSE streaming endpoint
	mux.HandleFunc("POST /api/discussions/{id}/cancel", discussionHandler.CancelDiscussion)

	mux.HandleFunc("GET /api/stats/cache", discussionHandler.CacheStats)

	// Build middleware chain (applied in reverse order, they wrap each other)
	var root http.Handler = mux
	root = middleware.Recovery(logger)(root)

	// CORS - handles OPTIONS pre-flight requests before anything else
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "Last-Event-ID"},
		AllowCredentials: true,
	})
	root = corsHandler.Handler(root)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disabled to allow long-lived SSE streams
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	logger.Info("server stopped")
}
