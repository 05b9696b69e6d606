package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	app "github.com/Bisw0319/HippoChat/internal/app"
	httpx "github.com/Bisw0319/HippoChat/internal/http"
	relay "github.com/Bisw0319/HippoChat/internal/relay"
	ws "github.com/Bisw0319/HippoChat/internal/ws"
)

func main() {
	// Load local .env (dev only)
	_ = godotenv.Load()

	cfg := app.LoadConfig()
	logger := app.NewLogger(cfg.Env, cfg.LogLevel)

	// Cancel on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Protocol core: rooms, registry, broadcast
	rl := relay.New(logger)

	// Optional redis bridge for cross-instance fan-out
	if cfg.RedisAddr != "" {
		bridge, err := ws.NewBridge(ctx, cfg, logger)
		if err != nil {
			logger.Error("redis connect", "err", err)
			log.Fatal(err)
		}
		defer bridge.Close()
		rl.SetForwarder(bridge)
		go bridge.Run(ctx, rl.DeliverLocal)
		logger.Info("bridge.enabled", "addr", cfg.RedisAddr)
	}

	// Empty-room reaper
	go relay.NewReaper(rl, cfg.ReapInterval, logger).Run(ctx)

	// WebSocket hub
	hub := ws.NewHub(logger, rl, cfg)

	// HTTP + WS router
	router := httpx.NewRouter(cfg, logger, hub, rl)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server
	go func() {
		logger.Info("server.listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server.crash", "err", err)
			cancel()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	logger.Info("server.shutdown.start")

	// Drain live connections first; their handlers must return before
	// srv.Shutdown can finish.
	shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer stop()
	hub.Shutdown(shutdownCtx)
	_ = srv.Shutdown(shutdownCtx)

	logger.Info("server.shutdown.complete")
	_ = os.Stdout.Sync()
}
