// Copyright 2025 Kadir Pekel
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

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kadirpekel/sift/pkg/config"
	"github.com/kadirpekel/sift/pkg/intent"
	"github.com/kadirpekel/sift/pkg/logger"
	"github.com/kadirpekel/sift/pkg/observability"
	"github.com/kadirpekel/sift/pkg/rank"
	"github.com/kadirpekel/sift/pkg/search"
	"github.com/kadirpekel/sift/pkg/searxng"
	"github.com/kadirpekel/sift/pkg/server"
	"github.com/kadirpekel/sift/pkg/store"
)

// ServeCmd starts the HTTP server.
type ServeCmd struct {
	Port     int    `help:"Port to listen on (overrides PORT)." default:"0"`
	LogLevel string `name:"log-level" help:"Log level (overrides LOG_LEVEL)."`
}

func (c *ServeCmd) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("Shutting down...")
		cancel()
	}()

	if err := config.LoadEnvFiles(); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if c.Port != 0 {
		cfg.Port = c.Port
	}
	if c.LogLevel != "" {
		cfg.LogLevel = c.LogLevel
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger.Init(level, os.Stderr, cfg.Environment)

	st, err := store.New(cfg.RedisURL, time.Duration(cfg.CacheTTLHours)*time.Hour)
	if err != nil {
		return err
	}
	defer st.Close()

	classifier, err := intent.NewClassifier(cfg.AnthropicAPIKey)
	if err != nil {
		return err
	}

	backend := searxng.NewClient(cfg.SearXNGURL)

	var reranker rank.Reranker = rank.NoopReranker{}
	if cfg.CrossEncoderURL != "" {
		reranker, err = rank.NewHTTPReranker(cfg.CrossEncoderURL, cfg.RerankWorkers)
		if err != nil {
			return err
		}
	} else {
		slog.Warn("CROSS_ENCODER_URL not set, semantic re-ranking disabled")
	}

	table := rank.DefaultTable()
	if cfg.RankingConfig != "" {
		if table, err = rank.LoadTable(cfg.RankingConfig); err != nil {
			return err
		}
	}
	tables := rank.NewSource(table)
	if cfg.RankingConfig != "" {
		if err := tables.Watch(ctx, cfg.RankingConfig); err != nil {
			return fmt.Errorf("failed to watch ranking table: %w", err)
		}
	}

	metrics, err := observability.InitMetrics(ctx)
	if err != nil {
		return err
	}

	pipeline := search.NewPipeline(classifier, backend, reranker, st, tables, metrics)

	srv := server.New(server.Config{
		Port:         cfg.Port,
		DefaultLimit: cfg.MaxResults,
	}, pipeline, st, backend, reranker)

	return srv.Start(ctx)
}
