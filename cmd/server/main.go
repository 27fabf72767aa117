package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/GoPolymarket/polyrelay/internal/app"
	"github.com/GoPolymarket/polyrelay/internal/config"
	"github.com/GoPolymarket/polyrelay/internal/pkg/logger"
	"github.com/GoPolymarket/polyrelay/internal/service"
)

func main() {
	// 0. Environment (.env is optional)
	_ = godotenv.Load()

	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Initialize Logger
	logger.Init(cfg.Log.Level, &logger.FileOptions{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   true,
	})

	// 3. Upstream clients
	deps, err := app.Build(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize upstreams: %v", err)
	}

	var auditSvc *service.AuditService
	if cfg.Audit.Enabled {
		auditSvc = service.NewAuditService(service.AuditOptions{
			File:       cfg.Audit.File,
			BufferSize: cfg.Audit.BufferSize,
		})
	}

	// 4. Router
	gin.SetMode(gin.ReleaseMode)
	r := app.NewEngine(cfg, deps, auditSvc)

	// 5. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("polyrelay started",
			"port", cfg.Server.Port,
			"clob", deps.Clob.BaseURL(),
			"proxy", deps.Router.HasProxy(),
			"rpc_endpoints", deps.Ladder.Len(),
			"read_only", cfg.Server.ReadOnly,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	if auditSvc != nil {
		auditSvc.Close()
	}

	logger.Info("Server exiting")
}
