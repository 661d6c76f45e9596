// ABOUTME: Entry point for the MCP tool server speaking JSON-RPC over stdio.
// ABOUTME: Configured by environment variables; all logging goes to stderr.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/appdeck/appdeck-gateway/internal/store"
	"github.com/appdeck/appdeck-gateway/internal/tools"
	"github.com/appdeck/appdeck-gateway/internal/toolserver"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Stdout carries protocol traffic only, so logs go to stderr
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(),
	}))
	slog.SetDefault(logger)

	driver := os.Getenv("APPDECK_DB_DRIVER")
	if driver == "" {
		driver = store.DriverSQLite
	}
	dsn := os.Getenv("APPDECK_DB_DSN")
	if dsn == "" {
		dsn = "appdeck.db"
	}

	st, err := store.NewSQLStore(driver, dsn)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	registry := tools.NewRegistry(logger)
	if err := registry.RegisterAll(tools.DashboardTools(st)); err != nil {
		return fmt.Errorf("registering tools: %w", err)
	}

	srv, err := toolserver.NewServer(toolserver.Config{
		Registry: registry,
		Logger:   logger,
		In:       os.Stdin,
		Out:      os.Stdout,
		Announce: os.Stderr,
		Name:     "appdeck-tools",
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return srv.Run(ctx)
}

func logLevel() slog.Level {
	switch os.Getenv("APPDECK_LOG_LEVEL") {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
