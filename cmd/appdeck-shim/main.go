// ABOUTME: Entry point for the appdeck-shim HTTP bridge.
// ABOUTME: Spawns the MCP tool server and fronts it with HTTP endpoints.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/appdeck/appdeck-gateway/internal/shim"
)

const banner = `
    ╭────────────────────────────────╮
    │                                │
    │        appdeck-shim            │
    │   HTTP ⇄ MCP stdio bridge      │
    │                                │
    ╰────────────────────────────────╯
`

// getConfigPath returns the path to the shim config file.
// Priority: APPDECK_SHIM_CONFIG env var > XDG_CONFIG_HOME/appdeck/shim.toml > ~/.config/appdeck/shim.toml
func getConfigPath() string {
	if envPath := os.Getenv("APPDECK_SHIM_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "shim.toml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "appdeck", "shim.toml")
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	configPath := getConfigPath()

	cfg, err := Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config from %s: %w", configPath, err)
	}

	logger := setupLogger(cfg.Logging)

	// Print startup info
	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:  %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:    %s\n", cfg.Server.Addr)
	green.Print("    ▶ ")
	fmt.Printf("Command: %v\n", cfg.MCP.Command)
	fmt.Println()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	bridge, err := shim.NewBridge(shim.Config{
		Command:     cfg.MCP.Command,
		Logger:      logger,
		CallTimeout: cfg.MCP.CallTimeout,
	})
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}

	if err := bridge.Start(ctx); err != nil {
		return fmt.Errorf("starting MCP server: %w", err)
	}
	defer bridge.Stop()

	mux := http.NewServeMux()
	shim.NewHandler(bridge, logger).RegisterRoutes(mux)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: shim.CORSMiddleware(mux),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("shim listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func setupLogger(cfg LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
