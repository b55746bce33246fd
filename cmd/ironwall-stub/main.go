package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ironwall/internal/stub"
	"ironwall/pkg/logger"
)

func main() {
	_ = godotenv.Load(".env")
	addr := flag.String("addr", ":5001", "listen address")
	flag.Parse()

	logger.Init()

	srv := &http.Server{
		Addr:         *addr,
		Handler:      stub.New().Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
	}()

	logger.Info("stub_listening", "addr", *addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("stub_serve_failed", "error", err)
		os.Exit(1)
	}
	logger.Info("stub_stopped")
}
