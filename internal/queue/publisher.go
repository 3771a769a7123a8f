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

// Package queue publishes thread summary events to Redis for downstream
// consumers such as notifiers and dashboards.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/bcem/threadintel/internal/models"
)

// SummaryEvent announces a newly stored thread summary.
type SummaryEvent struct {
	ID        string        `json:"id"`
	ThreadID  int64         `json:"thread_id"`
	SummaryID int64         `json:"summary_id"`
	RunID     string        `json:"run_id"`
	Action    models.Action `json:"action"`
	Summary   string        `json:"summary"`
	Rationale string        `json:"rationale"`
	CreatedAt time.Time     `json:"created_at"`
}

// EventFromSummary builds the event for a stored summary.
func EventFromSummary(s models.ThreadSummary) SummaryEvent {
	return SummaryEvent{
		ThreadID:  s.ThreadID,
		SummaryID: s.ID,
		RunID:     s.RunID,
		Action:    s.Action,
		Summary:   s.Summary,
		Rationale: s.Rationale,
		CreatedAt: s.Timestamp,
	}
}

// Publisher pushes summary events onto a Redis list.
type Publisher struct {
	rdb       *redis.Client
	queueName string
}

// NewPublisher creates a new Redis publisher targeting the specified queue.
func NewPublisher(rdb *redis.Client, queueName string) *Publisher {
	return &Publisher{
		rdb:       rdb,
		queueName: queueName,
	}
}

// PublishThreadSummary serialises event and LPUSHes it onto the queue.
// A missing id or timestamp is filled in.
func (p *Publisher) PublishThreadSummary(ctx context.Context, event SummaryEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal summary event: %w", err)
	}

	// consumers BRPOP, so LPUSH keeps the list FIFO
	if err := p.rdb.LPush(ctx, p.queueName, body).Err(); err != nil {
		return fmt.Errorf("redis LPUSH: %w", err)
	}

	slog.Info("published summary event to queue",
		"event_id", event.ID,
		"thread_id", event.ThreadID,
		"summary_id", event.SummaryID,
		"action", event.Action,
		"queue", p.queueName,
	)
	return nil
}

// Ping checks the Redis connection.
func (p *Publisher) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.rdb.Ping(ctx).Err()
}
