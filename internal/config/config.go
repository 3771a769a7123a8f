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

// Package config loads configuration from config.yaml and environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// threadLockMargin is added to llm.timeout for the default thread lock TTL.
const threadLockMargin = time.Minute

// OAuthConfig holds optional client credentials for a model gateway.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
}

// Config holds all configuration for the thread intelligence service.
type Config struct {
	// Store
	StoreDriver string
	DatabaseURL string
	SQLitePath  string

	// Redis (optional)
	RedisURL       string
	SummariesQueue string

	// Model
	LLMBaseURL    string
	LLMModel      string
	LLMTimeout    time.Duration
	LLMRateLimit  float64
	LLMPromptLog  string
	LLMOAuth      OAuthConfig
	Principal     string
	Organisations []string

	// Identity
	ReviewEmailThreshold int
	LockTTL              time.Duration

	// Batch
	BatchLabel    string
	BatchLimit    int
	BatchInterval time.Duration
	ThreadLockTTL time.Duration

	// Server
	Port     int
	LogLevel slog.Level
}

// rawConfig mirrors the YAML structure for unmarshalling.
type rawConfig struct {
	Store struct {
		Driver      string `yaml:"driver"`
		DatabaseURL string `yaml:"database_url"`
		SQLitePath  string `yaml:"sqlite_path"`
	} `yaml:"store"`
	Redis struct {
		URL    string `yaml:"url"`
		Queues struct {
			Summaries string `yaml:"summaries"`
		} `yaml:"queues"`
	} `yaml:"redis"`
	LLM struct {
		BaseURL           string  `yaml:"base_url"`
		Model             string  `yaml:"model"`
		Timeout           string  `yaml:"timeout"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		PromptLog         string  `yaml:"prompt_log"`
		OAuth             struct {
			ClientID     string   `yaml:"client_id"`
			ClientSecret string   `yaml:"client_secret"`
			TokenURL     string   `yaml:"token_url"`
			Scopes       []string `yaml:"scopes"`
		} `yaml:"oauth"`
	} `yaml:"llm"`
	Assistant struct {
		Principal     string   `yaml:"principal"`
		Organisations []string `yaml:"organisations"`
	} `yaml:"assistant"`
	Identity struct {
		ReviewEmailThreshold *int   `yaml:"review_email_threshold"`
		LockTTL              string `yaml:"lock_ttl"`
	} `yaml:"identity"`
	Batch struct {
		Label    string `yaml:"label"`
		Limit    *int   `yaml:"limit"`
		Interval string `yaml:"interval"`
		LockTTL  string `yaml:"lock_ttl"`
	} `yaml:"batch"`
	Port int `yaml:"port"`
}

// Load reads a .env file when present, then config.yaml (with env var
// expansion) and environment variables. A missing config file is not an
// error; every setting has an environment fallback.
func Load() (*Config, error) {
	if err := godotenv.Load(envOrDefault("ENV_FILE", ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	configPath := envOrDefault("CONFIG_PATH", "config.yaml")

	var raw rawConfig
	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Debug("no config file, using environment only", "path", configPath)
	case err != nil:
		return nil, fmt.Errorf("read config file %s: %w", configPath, err)
	default:
		// Expand ${VAR} references in the YAML
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
			return nil, fmt.Errorf("parse config YAML: %w", err)
		}
	}

	return fromRaw(raw)
}

func fromRaw(raw rawConfig) (*Config, error) {
	llmTimeout, err := durationSetting("llm.timeout", raw.LLM.Timeout, "LLM_TIMEOUT", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	lockTTL, err := durationSetting("identity.lock_ttl", raw.Identity.LockTTL, "LOCK_TTL", 30*time.Second)
	if err != nil {
		return nil, err
	}
	interval, err := durationSetting("batch.interval", raw.Batch.Interval, "BATCH_INTERVAL", 0)
	if err != nil {
		return nil, err
	}
	// A thread lock is held for a whole run, so it must outlive the model call.
	threadLockTTL, err := durationSetting("batch.lock_ttl", raw.Batch.LockTTL, "THREAD_LOCK_TTL", llmTimeout+threadLockMargin)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		StoreDriver:    firstNonEmpty(raw.Store.Driver, envOrDefault("STORE_DRIVER", DriverSQLite)),
		DatabaseURL:    firstNonEmpty(raw.Store.DatabaseURL, os.Getenv("DATABASE_URL")),
		SQLitePath:     firstNonEmpty(raw.Store.SQLitePath, envOrDefault("SQLITE_PATH", "threadintel.db")),
		RedisURL:       firstNonEmpty(raw.Redis.URL, os.Getenv("REDIS_URL")),
		SummariesQueue: firstNonEmpty(raw.Redis.Queues.Summaries, envOrDefault("SUMMARIES_QUEUE", "thread_summaries")),

		LLMBaseURL:   firstNonEmpty(raw.LLM.BaseURL, envOrDefault("OLLAMA_URL", "http://localhost:11434")),
		LLMModel:     firstNonEmpty(raw.LLM.Model, envOrDefault("LLM_MODEL", "gemma3:12b-it-qat")),
		LLMTimeout:   llmTimeout,
		LLMRateLimit: raw.LLM.RequestsPerSecond,
		LLMPromptLog: firstNonEmpty(raw.LLM.PromptLog, os.Getenv("LLM_PROMPT_LOG")),
		LLMOAuth: OAuthConfig{
			ClientID:     raw.LLM.OAuth.ClientID,
			ClientSecret: raw.LLM.OAuth.ClientSecret,
			TokenURL:     raw.LLM.OAuth.TokenURL,
			Scopes:       raw.LLM.OAuth.Scopes,
		},
		Principal:     firstNonEmpty(raw.Assistant.Principal, os.Getenv("ASSISTANT_PRINCIPAL")),
		Organisations: raw.Assistant.Organisations,

		ReviewEmailThreshold: envOrDefaultInt("REVIEW_EMAIL_THRESHOLD", 0),
		LockTTL:              lockTTL,

		BatchLabel:    firstNonEmpty(raw.Batch.Label, envOrDefault("BATCH_LABEL", "CATEGORY_PERSONAL")),
		BatchLimit:    envOrDefaultInt("BATCH_LIMIT", 20),
		BatchInterval: interval,
		ThreadLockTTL: threadLockTTL,

		Port:     envOrDefaultInt("PORT", 8080),
		LogLevel: parseLevel(os.Getenv("LOG_LEVEL")),
	}

	if cfg.LLMRateLimit == 0 {
		cfg.LLMRateLimit = envOrDefaultFloat("LLM_RPS", 1)
	}
	if raw.Identity.ReviewEmailThreshold != nil {
		cfg.ReviewEmailThreshold = *raw.Identity.ReviewEmailThreshold
	}
	if raw.Batch.Limit != nil {
		cfg.BatchLimit = *raw.Batch.Limit
	}
	if raw.Port != 0 {
		cfg.Port = raw.Port
	}
	if len(cfg.Organisations) == 0 {
		if v := os.Getenv("ASSISTANT_ORGANISATIONS"); v != "" {
			for _, org := range strings.Split(v, ",") {
				if org = strings.TrimSpace(org); org != "" {
					cfg.Organisations = append(cfg.Organisations, org)
				}
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("store driver %q requires DATABASE_URL", c.StoreDriver)
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("store driver %q requires a sqlite path", c.StoreDriver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown store driver %q (want postgres, sqlite or memory)", c.StoreDriver)
	}
	if c.ReviewEmailThreshold < 0 {
		return fmt.Errorf("review_email_threshold must not be negative")
	}
	if c.LLMRateLimit < 0 {
		return fmt.Errorf("llm.requests_per_second must not be negative")
	}
	if c.RedisURL != "" && c.LLMTimeout <= 0 {
		return fmt.Errorf("llm.timeout must be set when redis.url is set")
	}
	if c.LLMTimeout > 0 && c.ThreadLockTTL < c.LLMTimeout {
		return fmt.Errorf("batch.lock_ttl (%s) must not be shorter than llm.timeout (%s)", c.ThreadLockTTL, c.LLMTimeout)
	}
	o := c.LLMOAuth
	if (o.ClientID != "" || o.ClientSecret != "") && o.TokenURL == "" {
		return fmt.Errorf("llm.oauth requires token_url")
	}
	return nil
}

func durationSetting(name, yamlValue, envKey string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(yamlValue) == "" {
		return envOrDefaultDuration(envKey, fallback), nil
	}
	d, err := time.ParseDuration(yamlValue)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	return d, nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
