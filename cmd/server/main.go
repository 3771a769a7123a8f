// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Thread Intelligence Service
//
// Entry point for the long-running service. It:
//  1. Loads configuration from .env, config.yaml and the environment
//  2. Opens the store (Postgres, SQLite or memory) and, if configured, Redis
//  3. Builds the model client and the thread pipeline
//  4. Starts the background summary poller when batch.interval is set
//  5. Serves the HTTP API
//  6. Handles graceful shutdown on SIGTERM/SIGINT
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bcem/threadintel/internal/api"
	"github.com/bcem/threadintel/internal/app"
	"github.com/bcem/threadintel/internal/batch"
	"github.com/bcem/threadintel/internal/config"
)

func main() {
	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Structured JSON logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("starting thread intelligence service",
		"store", cfg.StoreDriver,
		"redis", cfg.RedisURL != "",
		"batch_interval", cfg.BatchInterval,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	err = run(ctx, cfg)
	stop()
	if err != nil {
		slog.Error("service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("thread intelligence service stopped")
}

// run serves until ctx is cancelled. Services are closed on every return path.
func run(ctx context.Context, cfg *config.Config) error {
	svc, err := app.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialise services: %w", err)
	}
	defer svc.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// --- Background Poller ---
	pollerDone := make(chan struct{})
	if cfg.BatchInterval > 0 {
		poller := batch.NewPoller(svc.Runner(), cfg.BatchInterval, svc.BatchRequest())
		go func() {
			defer close(pollerDone)
			poller.Run(ctx)
		}()
	} else {
		close(pollerDone)
	}

	// --- HTTP API ---
	ready, err := api.Serve(ctx, cfg.Port, svc.Handler().Routes())
	if err != nil {
		cancel()
		<-pollerDone
		return fmt.Errorf("start api server: %w", err)
	}
	<-ready

	// --- Graceful Shutdown ---
	<-ctx.Done()
	slog.Info("received shutdown signal")
	<-pollerDone
	return nil
}
