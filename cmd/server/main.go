package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hivemind-backend/api"
	"hivemind-backend/pkg/approval"
	"hivemind-backend/pkg/config"
	"hivemind-backend/pkg/database"
	"hivemind-backend/pkg/evaluator"
	"hivemind-backend/pkg/logger"
	"hivemind-backend/pkg/routing"
	"hivemind-backend/pkg/spaces"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.Environment, cfg.Debug)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zlog.Sync()

	// 存储后端在启动时一次性选定
	store, err := database.New(database.Config{
		Driver:      cfg.StorageDriver,
		PostgresDSN: cfg.PostgresDSN,
	})
	if err != nil {
		zlog.Fatal("failed to initialize storage", zap.Error(err))
	}
	defer store.Close()

	manager := spaces.NewManager(store, zlog)

	var eval evaluator.Evaluator
	switch cfg.Evaluator {
	case "model":
		provider := evaluator.NewAnthropicProvider(cfg.AnthropicAPIKey, cfg.ModelName)
		eval = evaluator.NewModelEvaluator(provider, cfg.EvalTimeout, zlog)
	default:
		eval = evaluator.NewKeywordEvaluator()
	}

	engine := routing.NewEngine(manager, eval, zlog)
	approvalSvc := approval.NewService(store, zlog)

	if cfg.SweepApprovals {
		sweeper := approvalSvc.StartSweeper()
		defer sweeper.Stop()
	}

	router := api.NewRouter(cfg, zlog, api.Deps{
		Store:           store,
		Manager:         manager,
		Engine:          engine,
		ApprovalService: approvalSvc,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		zlog.Info("server listening",
			zap.String("port", cfg.Port),
			zap.String("environment", cfg.Environment),
			zap.String("storage", cfg.StorageDriver),
			zap.String("evaluator", cfg.Evaluator))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("server failed", zap.Error(err))
		}
	}()

	// 优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		zlog.Error("graceful shutdown failed", zap.Error(err))
	}
}
