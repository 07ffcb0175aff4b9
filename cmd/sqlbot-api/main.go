package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Blackhawkup/sql-bot/internal/api"
	"github.com/Blackhawkup/sql-bot/internal/auth"
	"github.com/Blackhawkup/sql-bot/internal/config"
	"github.com/Blackhawkup/sql-bot/internal/nl2sql"
	"github.com/Blackhawkup/sql-bot/internal/observability"
	"github.com/Blackhawkup/sql-bot/internal/query"
	"github.com/Blackhawkup/sql-bot/internal/store"
)

func main() {
	cfg, err := config.LoadFromEnv("sqlbot-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	metaDB, dialect, err := store.Open(context.Background(), store.Config{
		DSN:             cfg.Store.DSN,
		MaxOpenConns:    cfg.Store.MaxOpenConns,
		MaxIdleConns:    cfg.Store.MaxIdleConns,
		ConnMaxIdleTime: cfg.Store.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.Store.ConnMaxLifetime,
	})
	if err != nil {
		logger.Error("failed to open metadata store", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = metaDB.Close() }()

	applied, err := store.NewRunner(dialect).Up(context.Background(), metaDB, 0)
	if err != nil {
		logger.Error("failed to apply store migrations", slog.Any("error", err))
		os.Exit(1)
	}
	if applied > 0 {
		logger.Info("applied store migrations", slog.Int("count", applied), slog.String("dialect", string(dialect)))
	}

	auditLog := store.NewAuditLog(metaDB)
	usage := store.NewUsage(metaDB)
	users := store.NewUsers(metaDB)

	executor := &query.Executor{
		Resolver:     query.NewResolver(config.TargetURLSource(os.LookupEnv)),
		Audit:        auditLog,
		Logger:       logger,
		OpenTimeout:  cfg.Target.OpenTimeout,
		QueryTimeout: cfg.Target.QueryTimeout,
	}
	if !executor.Resolver.Configured() {
		logger.Warn("no target database configured; serving fallback dataset")
	}

	translator := nl2sql.NewAzureTranslator(nl2sql.AzureConfig{
		Endpoint:    cfg.AI.Endpoint,
		APIKey:      cfg.AI.APIKey,
		Deployment:  cfg.AI.Deployment,
		APIVersion:  cfg.AI.APIVersion,
		Temperature: cfg.AI.Temperature,
		MaxTokens:   cfg.AI.MaxTokens,
		Timeout:     cfg.AI.Timeout,
	})

	tokens, err := auth.NewTokens(cfg.Auth.Secret, cfg.Auth.TokenTTL)
	if err != nil {
		logger.Error("failed to initialize auth tokens", slog.Any("error", err))
		os.Exit(1)
	}

	handler := api.NewHandler(cfg, api.Dependencies{
		Logger:         logger,
		AuthMiddleware: auth.Middleware(logger, tokens),
		Tokens:         tokens,
		Users:          users,
		Audit:          auditLog,
		Usage:          usage,
		Executor:       executor,
		Translator:     translator,
		PreviewRows:    cfg.Target.PreviewRows,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
