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

	"voiceagent-platform/internal/agents"
	"voiceagent-platform/internal/calls"
	"voiceagent-platform/internal/config"
	"voiceagent-platform/internal/conversation"
	"voiceagent-platform/internal/deadletter"
	"voiceagent-platform/internal/httpapi"
	"voiceagent-platform/internal/lifecycle"
	"voiceagent-platform/internal/llm"
	"voiceagent-platform/internal/retell"
	"voiceagent-platform/internal/summary"
	"voiceagent-platform/pkg/logger"
	"voiceagent-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env, cfg.App.Debug)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Provider and model clients.
	retellClient := retell.NewClient(retell.ClientConfig{
		APIKey:       cfg.Retell.APIKey,
		BaseURL:      cfg.Retell.BaseURL,
		WebhookURL:   cfg.WebhookURL(),
		LLMSocketURL: cfg.LLMSocketURL(),
	})
	llmClient := llm.NewClient(cfg.LLM.APIKey, cfg.LLM.Model)

	// Repositories and services.
	agentRepo := agents.NewPostgresRepo(db)
	callRepo := calls.NewPostgresRepo(db)
	summaryRepo := summary.NewPostgresRepo(db)
	dlRepo := deadletter.NewPostgresRepo(db)

	agentSvc := agents.NewService(agentRepo)
	limiter := calls.NewRedisSlotLimiter(rdb, cfg.Retell.MaxConcurrentCalls, 0)
	callSvc := calls.NewService(callRepo, agentSvc, retellClient, limiter)
	processor := summary.NewProcessor(callRepo, agentRepo, summaryRepo, llmClient)
	reconciler := lifecycle.NewReconciler(callRepo, limiter, processor)
	webhook := lifecycle.NewWebhookHandler(reconciler, deadletter.NewService(dlRepo))
	turns := conversation.NewHandler(callRepo, agentRepo, llmClient)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, cfg, httpapi.Handlers{
		Agents:    agentSvc,
		Calls:     callSvc,
		Summaries: processor,
		Retell:    retellClient,
		DB:        db,
		Redis:     rdb,
	}, webhook, turns)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
