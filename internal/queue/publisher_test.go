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

package queue

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bcem/threadintel/internal/models"
)

func TestEventFromSummary(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ev := EventFromSummary(models.ThreadSummary{
		ID: 9, ThreadID: 3, RunID: "run-1", Summary: "s", Rationale: "r",
		Action: models.ActionNeedToKnow, Timestamp: ts,
	})
	if ev.SummaryID != 9 || ev.ThreadID != 3 || ev.RunID != "run-1" || !ev.CreatedAt.Equal(ts) || ev.ID != "" {
		t.Errorf("event = %+v", ev)
	}

	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"id", "thread_id", "summary_id", "run_id", "action", "summary", "rationale", "created_at"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("event JSON missing %q", key)
		}
	}
	if fields["action"] != "NEED_TO_KNOW" {
		t.Errorf("action = %v", fields["action"])
	}
}

// TestPublisher_Redis runs against a real Redis when TEST_REDIS_URL is set.
func TestPublisher_Redis(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		t.Fatal(err)
	}
	rdb := redis.NewClient(opts)
	defer rdb.Close()

	ctx := context.Background()
	queueName := "threadintel_test_" + time.Now().Format("150405.000000")
	defer rdb.Del(ctx, queueName)

	p := NewPublisher(rdb, queueName)
	if err := p.Ping(ctx); err != nil {
		t.Fatal(err)
	}
	if err := p.PublishThreadSummary(ctx, SummaryEvent{ThreadID: 1, SummaryID: 2, Action: models.ActionIgnore}); err != nil {
		t.Fatal(err)
	}

	raw, err := rdb.RPop(ctx, queueName).Result()
	if err != nil {
		t.Fatal(err)
	}
	var got SummaryEvent
	if err := json.Unmarshal([]byte(raw), &got); err != nil {
		t.Fatal(err)
	}
	if got.ID == "" || got.CreatedAt.IsZero() || got.SummaryID != 2 {
		t.Errorf("event = %+v", got)
	}
}
