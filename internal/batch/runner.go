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

// Package batch summarises many threads in one run, either on demand or on
// a fixed interval.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/bcem/threadintel/internal/lock"
	"github.com/bcem/threadintel/internal/models"
	"github.com/bcem/threadintel/internal/pipeline"
	"github.com/bcem/threadintel/internal/queue"
)

// Thread statuses reported in ThreadResult.
const (
	StatusProcessed = "processed"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

// Processor runs the pipeline on one thread.
type Processor interface {
	Process(ctx context.Context, threadID int64) (*pipeline.Outcome, error)
}

// ThreadLister selects threads that still need a summary.
type ThreadLister interface {
	ListThreadsNeedingSummary(ctx context.Context, label string, limit int) ([]int64, error)
}

// Publisher announces stored summaries.
type Publisher interface {
	PublishThreadSummary(ctx context.Context, event queue.SummaryEvent) error
}

// Request defines the scope of a batch run. Explicit ThreadIDs take
// precedence over the Label/Limit selection; a negative Limit means no limit.
type Request struct {
	ThreadIDs []int64
	Label     string
	Limit     int
}

// ThreadResult tracks one thread of a run.
type ThreadResult struct {
	ThreadID  int64         `json:"thread_id"`
	Status    string        `json:"status"`
	Action    models.Action `json:"action,omitempty"`
	SummaryID int64         `json:"summary_id,omitempty"`
	Fallback  bool          `json:"fallback,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// Result summarises a completed run.
type Result struct {
	Processed int            `json:"processed"`
	Skipped   int            `json:"skipped"`
	Failed    int            `json:"failed"`
	Elapsed   time.Duration  `json:"elapsed"`
	Threads   []ThreadResult `json:"threads"`
}

// Runner summarises threads one after another.
type Runner struct {
	processor Processor
	threads   ThreadLister
	locker    lock.Locker
	publisher Publisher
}

// RunnerConfig holds dependencies for the batch runner. Publisher is optional.
type RunnerConfig struct {
	Processor Processor
	Threads   ThreadLister
	Locker    lock.Locker
	Publisher Publisher
}

// NewRunner creates a batch runner. A nil Locker uses an in-process
// lock.KeyedMutex.
func NewRunner(cfg RunnerConfig) *Runner {
	locker := cfg.Locker
	if locker == nil {
		locker = lock.NewKeyedMutex()
	}
	return &Runner{
		processor: cfg.Processor,
		threads:   cfg.Threads,
		locker:    locker,
		publisher: cfg.Publisher,
	}
}

// Run processes every selected thread. A failing thread is counted and the
// run continues; only selection errors and cancellation end it early.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	ids := req.ThreadIDs
	if len(ids) == 0 {
		var err error
		ids, err = r.threads.ListThreadsNeedingSummary(ctx, req.Label, req.Limit)
		if err != nil {
			return nil, fmt.Errorf("select threads: %w", err)
		}
	}

	slog.Info("starting batch run",
		"threads", len(ids),
		"label", req.Label,
		"limit", req.Limit,
	)

	result := &Result{Threads: make([]ThreadResult, 0, len(ids))}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			result.Elapsed = time.Since(start)
			return result, err
		}

		tr := r.runThread(ctx, id)
		switch tr.Status {
		case StatusProcessed:
			result.Processed++
		case StatusSkipped:
			result.Skipped++
		default:
			result.Failed++
		}
		result.Threads = append(result.Threads, tr)
	}

	result.Elapsed = time.Since(start)
	slog.Info("batch run complete",
		"processed", result.Processed,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"elapsed", result.Elapsed,
	)
	return result, nil
}

func (r *Runner) runThread(ctx context.Context, id int64) ThreadResult {
	tr := ThreadResult{ThreadID: id}

	release, ok, err := r.locker.TryAcquire(ctx, "thread:"+strconv.FormatInt(id, 10))
	if err != nil {
		slog.Error("thread lock failed", "thread_id", id, "error", err)
		tr.Status, tr.Error = StatusFailed, err.Error()
		return tr
	}
	if !ok {
		slog.Info("thread already being summarised, skipping", "thread_id", id)
		tr.Status = StatusSkipped
		return tr
	}
	defer release()

	out, err := r.processor.Process(ctx, id)
	if err != nil {
		slog.Error("thread summarisation failed", "thread_id", id, "error", err)
		tr.Status, tr.Error = StatusFailed, err.Error()
		return tr
	}

	tr.Status = StatusProcessed
	tr.Action = out.Result.Action
	tr.SummaryID = out.Summary.ID
	tr.Fallback = out.Fallback

	if r.publisher != nil {
		if err := r.publisher.PublishThreadSummary(ctx, queue.EventFromSummary(out.Summary)); err != nil {
			// the summary is stored; only the notification is lost
			slog.Warn("publish summary event failed", "thread_id", id, "summary_id", out.Summary.ID, "error", err)
		}
	}
	return tr
}
