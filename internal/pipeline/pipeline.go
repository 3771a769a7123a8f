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

// Package pipeline turns a stored thread into a summary, an action
// recommendation and refreshed contact knowledge. A run is linear:
// extract_thread, gather_knowledge, summarize_thread, update_knowledge.
// There are no retries and the first failing node ends the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bcem/threadintel/internal/llm"
	"github.com/bcem/threadintel/internal/models"
)

// Node names, used to wrap errors and in logs.
const (
	NodeExtract   = "extract_thread"
	NodeGather    = "gather_knowledge"
	NodeSummarize = "summarize_thread"
	NodeUpdate    = "update_knowledge"
)

// ErrEmptyThread is returned for threads without emails.
var ErrEmptyThread = errors.New("thread has no emails")

// Store is the persistence the pipeline needs.
type Store interface {
	ContactGetter
	SummaryWriter
	KnowledgeWriter
	GetThread(ctx context.Context, id int64) (*models.ThreadView, error)
}

// Outcome describes one finished run.
type Outcome struct {
	RunID    string
	ThreadID int64
	Result   models.StructuredResult
	Summary  models.ThreadSummary
	Fallback bool
	Report   ReconcileReport
	Elapsed  time.Duration
}

// Pipeline runs the four nodes against one thread.
type Pipeline struct {
	store      Store
	classifier *Classifier
	reconciler *Reconciler
	newRunID   func() string
}

// New creates a Pipeline around gen.
func New(st Store, gen llm.Generator, assistant Assistant) *Pipeline {
	return &Pipeline{
		store:      st,
		classifier: NewClassifier(gen, st, assistant),
		reconciler: NewReconciler(st),
		newRunID:   uuid.NewString,
	}
}

// Run loads a thread and processes it, returning the structured result.
func (p *Pipeline) Run(ctx context.Context, threadID int64) (*models.StructuredResult, error) {
	out, err := p.Process(ctx, threadID)
	if err != nil {
		return nil, err
	}
	return &out.Result, nil
}

// Process loads a thread and processes it.
func (p *Pipeline) Process(ctx context.Context, threadID int64) (*Outcome, error) {
	thread, err := p.store.GetThread(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("load thread %d: %w", threadID, err)
	}
	return p.RunThread(ctx, thread)
}

// RunThread processes an already loaded thread.
func (p *Pipeline) RunThread(ctx context.Context, thread *models.ThreadView) (*Outcome, error) {
	start := time.Now()
	runID := p.newRunID()
	log := slog.With("run_id", runID, "thread_id", thread.ID)

	if len(thread.Emails) == 0 {
		return nil, fmt.Errorf("%s: %w", NodeExtract, ErrEmptyThread)
	}

	log.Debug("pipeline node", "stage", NodeExtract)
	extracted := Assemble(thread)

	log.Debug("pipeline node", "stage", NodeGather)
	knowledge, err := Gather(ctx, p.store, thread)
	if err != nil {
		log.Error("pipeline node failed", "stage", NodeGather, "error", err)
		return nil, fmt.Errorf("%s: %w", NodeGather, err)
	}

	log.Debug("pipeline node", "stage", NodeSummarize)
	classified, err := p.classifier.Classify(ctx, runID, thread, extracted, knowledge)
	if err != nil {
		log.Error("pipeline node failed", "stage", NodeSummarize, "error", err)
		return nil, fmt.Errorf("%s: %w", NodeSummarize, err)
	}

	log.Debug("pipeline node", "stage", NodeUpdate)
	report, err := p.reconciler.Reconcile(ctx, knowledge.Participants.Participants(), classified.Result)
	if err != nil {
		log.Error("pipeline node failed", "stage", NodeUpdate, "error", err)
		return nil, fmt.Errorf("%s: %w", NodeUpdate, err)
	}

	_, fallback := classified.Parsed.(Fallback)
	out := &Outcome{
		RunID:    runID,
		ThreadID: thread.ID,
		Result:   classified.Result,
		Summary:  classified.Summary,
		Fallback: fallback,
		Report:   report,
		Elapsed:  time.Since(start),
	}
	log.Info("thread summarised",
		"action", out.Result.Action,
		"summary_id", out.Summary.ID,
		"fallback", fallback,
		"knowledge_updates", len(report.Updated),
		"unresolved", len(report.Unresolved),
		"elapsed", out.Elapsed,
	)
	return out, nil
}
