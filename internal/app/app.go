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

// Package app wires configuration into the store, Redis, the model client
// and the services built on them. Both commands start here.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/bcem/threadintel/internal/api"
	"github.com/bcem/threadintel/internal/batch"
	"github.com/bcem/threadintel/internal/config"
	"github.com/bcem/threadintel/internal/identity"
	"github.com/bcem/threadintel/internal/ingest"
	"github.com/bcem/threadintel/internal/llm"
	"github.com/bcem/threadintel/internal/lock"
	"github.com/bcem/threadintel/internal/pipeline"
	"github.com/bcem/threadintel/internal/queue"
	"github.com/bcem/threadintel/internal/store"
)

// Services holds everything built from a Config.
type Services struct {
	Config    *config.Config
	Store     store.Store
	Redis     *redis.Client    // nil without redis.url
	Publisher *queue.Publisher // nil without redis.url
	Locker    lock.Locker      // identity registration
	Threads   lock.Locker      // one pipeline run per thread
	Generator llm.Generator
	Registrar *identity.Registrar
	Pipeline  *pipeline.Pipeline

	closers []func()
}

// Open connects the store and Redis and builds the model client. Call
// Close when done.
func Open(ctx context.Context, cfg *config.Config) (*Services, error) {
	s := &Services{Config: cfg}

	st, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s.Store = st
	s.closers = append(s.closers, func() { st.Close() })

	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opt)
		s.closers = append(s.closers, func() { rdb.Close() })

		s.Redis = rdb
		s.Publisher = queue.NewPublisher(rdb, cfg.SummariesQueue)
		if err := s.Publisher.Ping(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("connect to Redis: %w", err)
		}
		s.Locker, s.Threads = redisLockers(rdb, cfg)
		slog.Info("connected to Redis", "queue", cfg.SummariesQueue, "thread_lock_ttl", cfg.ThreadLockTTL)
	} else {
		s.Locker = lock.NewKeyedMutex()
		s.Threads = lock.NewKeyedMutex()
	}

	gen, err := s.newGenerator(ctx)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Generator = gen

	s.Registrar = identity.NewRegistrar(st, identity.NewResolver(st, cfg.ReviewEmailThreshold), s.Locker)
	s.Pipeline = pipeline.New(st, gen, pipeline.Assistant{
		Principal:     cfg.Principal,
		Organisations: cfg.Organisations,
	})
	return s, nil
}

// redisLockers returns the identity locker and the thread locker. Thread
// locks are held across the model call, so their TTL never falls below
// llm.timeout.
func redisLockers(rdb *redis.Client, cfg *config.Config) (*lock.RedisLocker, *lock.RedisLocker) {
	ttl := cfg.ThreadLockTTL
	if ttl < cfg.LLMTimeout {
		ttl = cfg.LLMTimeout + time.Minute
	}
	return lock.NewRedisLocker(rdb, cfg.LockTTL), lock.NewRedisLocker(rdb, ttl)
}

// OpenStore opens the configured store backend.
func OpenStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("create Postgres pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("connect to PostgreSQL: %w", err)
		}
		st, err := store.NewPostgresStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		slog.Info("connected to PostgreSQL")
		return st, nil
	case config.DriverSQLite:
		st, err := store.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		slog.Info("opened SQLite store", "path", cfg.SQLitePath)
		return st, nil
	case config.DriverMemory:
		slog.Warn("using in-memory store, nothing will be persisted")
		return store.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// newGenerator builds the model client: Ollama, bounded by llm.timeout,
// optionally recorded to the prompt log, and rate limited.
func (s *Services) newGenerator(ctx context.Context) (llm.Generator, error) {
	cfg := s.Config
	oauth := llm.OAuthConfig{
		ClientID:     cfg.LLMOAuth.ClientID,
		ClientSecret: cfg.LLMOAuth.ClientSecret,
		TokenURL:     cfg.LLMOAuth.TokenURL,
		Scopes:       cfg.LLMOAuth.Scopes,
	}

	var gen llm.Generator = llm.NewOllamaClient(cfg.LLMBaseURL, cfg.LLMModel, oauth.HTTPClient(ctx))
	gen = llm.WithTimeout(gen, cfg.LLMTimeout)

	if cfg.LLMPromptLog != "" {
		f, err := llm.OpenPromptLogFile(cfg.LLMPromptLog)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func() { f.Close() })
		gen = llm.NewPromptLog(gen, f)
	}

	if cfg.LLMRateLimit > 0 {
		tb := llm.NewTokenBucket(cfg.LLMRateLimit)
		s.closers = append(s.closers, tb.Stop)
		gen = llm.NewRateLimited(gen, tb)
	}

	slog.Info("model client configured",
		"base_url", cfg.LLMBaseURL,
		"model", cfg.LLMModel,
		"timeout", cfg.LLMTimeout,
		"oauth", oauth.Enabled(),
	)
	return gen, nil
}

// Runner returns a batch runner over the services.
func (s *Services) Runner() *batch.Runner {
	rc := batch.RunnerConfig{
		Processor: s.Pipeline,
		Threads:   s.Store,
		Locker:    s.Threads,
	}
	if s.Publisher != nil {
		rc.Publisher = s.Publisher
	}
	return batch.NewRunner(rc)
}

// BatchRequest returns the configured label/limit selection.
func (s *Services) BatchRequest() batch.Request {
	return batch.Request{Label: s.Config.BatchLabel, Limit: s.Config.BatchLimit}
}

// Importer returns an importer that registers addresses through the
// shared registrar.
func (s *Services) Importer() *ingest.Importer {
	return ingest.NewImporter(s.Store, s.Registrar)
}

// Handler returns the HTTP API handler.
func (s *Services) Handler() *api.Handler {
	hc := api.HandlerConfig{
		Summarizer: s.Pipeline,
		Store:      s.Store,
		Locker:     s.Threads,
	}
	if s.Publisher != nil {
		hc.Publisher = s.Publisher
	}
	return api.NewHandler(hc)
}

// Close releases everything Open acquired, in reverse order.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
