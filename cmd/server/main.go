// Package main is the entry point for the blog API server.
//
// MAIN PACKAGE IN GO:
// main() should stay minimal. Its job is to:
//  1. Read configuration (flags, config file, env vars)
//  2. Create process-wide dependencies (the logger)
//  3. Start the application
//
// Everything else lives in internal/ packages, which keeps it testable.
//
// USAGE:
//
//	EDUBLOG_AUTH_JWTSECRET=$(openssl rand -hex 32) go run ./cmd/server
//	go run ./cmd/server --config ./deploy   # reads ./deploy/config.yaml
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"github.com/sakif/edublog/internal/config"
	"github.com/sakif/edublog/internal/logging"
	"github.com/sakif/edublog/internal/server"
)

func main() {
	configDir := flag.StringP("config", "c", "", "directory containing config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		// No logger yet: its level and format come from the config.
		fmt.Fprintf(os.Stderr, "edublog: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log)

	// os.MkdirAll creates the data directory if needed (like `mkdir -p`).
	if cfg.Database.Path != ":memory:" {
		dbDir := filepath.Dir(cfg.Database.Path)
		if err := os.MkdirAll(dbDir, 0o755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
