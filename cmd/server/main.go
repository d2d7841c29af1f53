package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spindle-chat/spindle/internal/chat"
	"github.com/spindle-chat/spindle/internal/server"
)

func main() {
	// A .env file is optional; deployed environments set variables directly.
	_ = godotenv.Load()

	cfg, err := server.LoadConfig(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()
	sugar := logger.Sugar()

	metrics := server.NewMetrics(os.Stderr, time.Minute)
	metrics.Start()

	hub := server.NewHub(sugar, metrics)
	go hub.Run()

	router := chat.NewRouter(hub, sugar)
	handler := server.NewHandler(hub, router, cfg, sugar)
	srv := server.CreateServer(cfg.Port, server.NewRoutes(handler))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.StartServer(srv)
	}()
	sugar.Infow("server listening", "addr", cfg.Port)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw("server failed", "error", err)
		}
	case sig := <-sigCh:
		sugar.Infow("shutdown signal received", "signal", sig.String())
	}

	if err := server.ShutdownServer(srv, cfg.ShutdownTimeout); err != nil {
		sugar.Warnw("http server shutdown error", "error", err)
	}
	if err := hub.Shutdown(cfg.ShutdownTimeout); err != nil {
		sugar.Warnw("hub shutdown error", "error", err)
	}
	metrics.WriteOnce()
}

func newLogger(level string) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := cfg.Build()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger setup error:", err)
		os.Exit(1)
	}
	return logger
}
