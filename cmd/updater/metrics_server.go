package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/user/product-image-updater/internal/delivery/http/handler"
	"github.com/user/product-image-updater/internal/delivery/http/router"
	"github.com/user/product-image-updater/internal/repository"
)

// startMetricsServer serves the side endpoints until the returned shutdown
// function is called. Binding errors are reported immediately.
func startMetricsServer(addr string, failedRepo repository.FailedRecordRepository) (func() error, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("could not listen on %s: %w", addr, err)
	}

	server := &http.Server{
		Handler:      router.New(handler.NewHandler(failedRepo)),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("Starting metrics server", "addr", ln.Addr().String())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server stopped", "addr", addr, "error", err)
		}
	}()

	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("metrics server shutdown: %w", err)
		}
		return nil
	}, nil
}
