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

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// isolate points the loader at files under a temp dir and unsets the
// variables the tests rely on.
func isolate(t *testing.T, yamlBody, envBody string) {
	t.Helper()
	dir := t.TempDir()
	for _, key := range []string{
		"STORE_DRIVER", "DATABASE_URL", "SQLITE_PATH", "REDIS_URL", "SUMMARIES_QUEUE",
		"OLLAMA_URL", "LLM_MODEL", "LLM_TIMEOUT", "LLM_RPS", "LLM_PROMPT_LOG",
		"ASSISTANT_PRINCIPAL", "ASSISTANT_ORGANISATIONS", "REVIEW_EMAIL_THRESHOLD",
		"LOCK_TTL", "BATCH_LABEL", "BATCH_LIMIT", "BATCH_INTERVAL", "PORT", "LOG_LEVEL",
		"THREAD_LOCK_TTL",
	} {
		// Setenv restores the original value after the test
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfgPath := filepath.Join(dir, "config.yaml")
	if yamlBody != "" {
		if err := os.WriteFile(cfgPath, []byte(yamlBody), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	envPath := filepath.Join(dir, ".env")
	if envBody != "" {
		if err := os.WriteFile(envPath, []byte(envBody), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	t.Setenv("CONFIG_PATH", cfgPath)
	t.Setenv("ENV_FILE", envPath)
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t, "", "")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.StoreDriver != DriverSQLite || cfg.SQLitePath != "threadintel.db" {
		t.Errorf("store = %q %q", cfg.StoreDriver, cfg.SQLitePath)
	}
	if cfg.LLMBaseURL != "http://localhost:11434" || cfg.LLMModel != "gemma3:12b-it-qat" || cfg.LLMTimeout != 5*time.Minute {
		t.Errorf("llm = %q %q %v", cfg.LLMBaseURL, cfg.LLMModel, cfg.LLMTimeout)
	}
	if cfg.LLMRateLimit != 1 || cfg.RedisURL != "" || cfg.SummariesQueue != "thread_summaries" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.BatchLabel != "CATEGORY_PERSONAL" || cfg.BatchLimit != 20 || cfg.BatchInterval != 0 {
		t.Errorf("batch = %q %d %v", cfg.BatchLabel, cfg.BatchLimit, cfg.BatchInterval)
	}
	if cfg.ThreadLockTTL != 6*time.Minute {
		t.Errorf("thread lock ttl = %v, want llm.timeout plus a minute", cfg.ThreadLockTTL)
	}
	if cfg.ReviewEmailThreshold != 0 || cfg.LockTTL != 30*time.Second || cfg.Port != 8080 || cfg.LogLevel != slog.LevelInfo {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_YAMLWithExpansion(t *testing.T) {
	isolate(t, `
store:
  driver: postgres
  database_url: ${TEST_DB_URL}
redis:
  url: redis://cache:6379/1
  queues:
    summaries: digests
llm:
  model: llama3
  timeout: 90s
  requests_per_second: 0.5
  oauth:
    client_id: cid
    client_secret: ${TEST_SECRET}
    token_url: https://auth.example.com/token
    scopes: [llm.invoke]
assistant:
  principal: Dana Reyes
  organisations: [Acme, Globex]
identity:
  review_email_threshold: 4
  lock_ttl: 1m
batch:
  label: INBOX
  limit: 0
  interval: 10m
port: 9090
`, "")
	t.Setenv("TEST_DB_URL", "postgres://u:p@db/threads")
	t.Setenv("TEST_SECRET", "s3cret")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.StoreDriver != DriverPostgres || cfg.DatabaseURL != "postgres://u:p@db/threads" {
		t.Errorf("store = %q %q", cfg.StoreDriver, cfg.DatabaseURL)
	}
	if cfg.RedisURL != "redis://cache:6379/1" || cfg.SummariesQueue != "digests" {
		t.Errorf("redis = %q %q", cfg.RedisURL, cfg.SummariesQueue)
	}
	if cfg.LLMModel != "llama3" || cfg.LLMTimeout != 90*time.Second || cfg.LLMRateLimit != 0.5 {
		t.Errorf("llm = %q %v %v", cfg.LLMModel, cfg.LLMTimeout, cfg.LLMRateLimit)
	}
	if cfg.LLMOAuth.ClientSecret != "s3cret" || len(cfg.LLMOAuth.Scopes) != 1 {
		t.Errorf("oauth = %+v", cfg.LLMOAuth)
	}
	if cfg.Principal != "Dana Reyes" || len(cfg.Organisations) != 2 {
		t.Errorf("assistant = %q %v", cfg.Principal, cfg.Organisations)
	}
	if cfg.ReviewEmailThreshold != 4 || cfg.LockTTL != time.Minute {
		t.Errorf("identity = %d %v", cfg.ReviewEmailThreshold, cfg.LockTTL)
	}
	if cfg.ThreadLockTTL != 150*time.Second {
		t.Errorf("thread lock ttl = %v, want 2m30s", cfg.ThreadLockTTL)
	}
	if cfg.BatchLabel != "INBOX" || cfg.BatchLimit != 0 || cfg.BatchInterval != 10*time.Minute || cfg.Port != 9090 {
		t.Errorf("batch = %q %d %v, port %d", cfg.BatchLabel, cfg.BatchLimit, cfg.BatchInterval, cfg.Port)
	}
}

func TestLoad_EnvAndDotEnv(t *testing.T) {
	isolate(t, "", "STORE_DRIVER=memory\nLLM_MODEL=from-dotenv\n")
	t.Setenv("LLM_MODEL", "from-env")
	t.Setenv("ASSISTANT_ORGANISATIONS", "Acme, ,Initech")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("BATCH_INTERVAL", "2m")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.StoreDriver != DriverMemory {
		t.Errorf("driver = %q, want memory from .env", cfg.StoreDriver)
	}
	if cfg.LLMModel != "from-env" {
		t.Errorf("model = %q, environment should win over .env", cfg.LLMModel)
	}
	if len(cfg.Organisations) != 2 || cfg.Organisations[1] != "Initech" {
		t.Errorf("organisations = %v", cfg.Organisations)
	}
	if cfg.LogLevel != slog.LevelDebug || cfg.BatchInterval != 2*time.Minute {
		t.Errorf("level %v interval %v", cfg.LogLevel, cfg.BatchInterval)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := map[string]string{
		"bad yaml":              "store: [",
		"bad duration":          "llm:\n  timeout: soon\n",
		"unknown driver":        "store:\n  driver: mongo\n",
		"postgres no url":       "store:\n  driver: postgres\n",
		"thread lock too short": "llm:\n  timeout: 5m\nbatch:\n  lock_ttl: 30s\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			isolate(t, body, "")
			if _, err := Load(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestValidate(t *testing.T) {
	ok := Config{StoreDriver: DriverMemory}
	if err := ok.Validate(); err != nil {
		t.Errorf("memory config: %v", err)
	}
	withRedis := Config{
		StoreDriver:   DriverMemory,
		RedisURL:      "redis://localhost:6379",
		LLMTimeout:    5 * time.Minute,
		ThreadLockTTL: 5 * time.Minute,
	}
	if err := withRedis.Validate(); err != nil {
		t.Errorf("redis config: %v", err)
	}
	bad := []Config{
		{StoreDriver: DriverSQLite},
		{StoreDriver: DriverMemory, ReviewEmailThreshold: -1},
		{StoreDriver: DriverMemory, LLMRateLimit: -2},
		{StoreDriver: DriverMemory, LLMOAuth: OAuthConfig{ClientID: "x"}},
		{StoreDriver: DriverMemory, LLMTimeout: 5 * time.Minute, ThreadLockTTL: 30 * time.Second},
		{StoreDriver: DriverMemory, RedisURL: "redis://localhost:6379"},
	}
	for i, c := range bad {
		if err := c.Validate(); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}
