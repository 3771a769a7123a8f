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

// Package api exposes thread summarisation and contact review over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/bcem/threadintel/internal/lock"
	"github.com/bcem/threadintel/internal/models"
	"github.com/bcem/threadintel/internal/pipeline"
	"github.com/bcem/threadintel/internal/queue"
	"github.com/bcem/threadintel/internal/store"
)

// Summarizer runs the pipeline on one thread.
type Summarizer interface {
	Process(ctx context.Context, threadID int64) (*pipeline.Outcome, error)
}

// Store is the read side the handler needs.
type Store interface {
	LatestThreadSummary(ctx context.Context, threadID int64) (*models.ThreadSummary, error)
	ListContactsNeedingReview(ctx context.Context) ([]models.Contact, error)
	ContactEmails(ctx context.Context, contactID int64) ([]models.EmailAddress, error)
	Ping(ctx context.Context) error
}

// Publisher announces stored summaries.
type Publisher interface {
	PublishThreadSummary(ctx context.Context, event queue.SummaryEvent) error
	Ping(ctx context.Context) error
}

// Handler serves the HTTP API.
type Handler struct {
	summarizer Summarizer
	store      Store
	locker     lock.Locker
	publisher  Publisher
}

// HandlerConfig holds dependencies for the handler. Locker and Publisher
// are optional.
type HandlerConfig struct {
	Summarizer Summarizer
	Store      Store
	Locker     lock.Locker
	Publisher  Publisher
}

// NewHandler creates an API handler.
func NewHandler(cfg HandlerConfig) *Handler {
	locker := cfg.Locker
	if locker == nil {
		locker = lock.NewKeyedMutex()
	}
	return &Handler{
		summarizer: cfg.Summarizer,
		store:      cfg.Store,
		locker:     locker,
		publisher:  cfg.Publisher,
	}
}

// Routes returns the API mux.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /threads/{id}/summarize", h.ServeSummarize)
	mux.HandleFunc("GET /threads/{id}/summary", h.ServeSummary)
	mux.HandleFunc("GET /contacts/review", h.ServeReview)
	mux.HandleFunc("GET /health", h.ServeHealth)
	return mux
}

// ServeSummarize runs the pipeline synchronously and returns the result.
func (h *Handler) ServeSummarize(w http.ResponseWriter, r *http.Request) {
	id, ok := threadID(w, r)
	if !ok {
		return
	}

	release, acquired, err := h.locker.TryAcquire(r.Context(), "thread:"+strconv.FormatInt(id, 10))
	if err != nil {
		slog.Error("thread lock failed", "thread_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "lock failed")
		return
	}
	if !acquired {
		writeError(w, http.StatusConflict, "thread is already being summarised")
		return
	}
	defer release()

	out, err := h.summarizer.Process(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "thread not found")
		return
	case errors.Is(err, pipeline.ErrEmptyThread):
		writeError(w, http.StatusUnprocessableEntity, "thread has no emails")
		return
	case errors.Is(err, pipeline.ErrModel):
		slog.Error("summarize: model failure", "thread_id", id, "error", err)
		writeError(w, http.StatusBadGateway, "model call failed")
		return
	case err != nil:
		slog.Error("summarize failed", "thread_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "summarisation failed")
		return
	}

	if h.publisher != nil {
		if err := h.publisher.PublishThreadSummary(r.Context(), queue.EventFromSummary(out.Summary)); err != nil {
			slog.Warn("publish summary event failed", "thread_id", id, "error", err)
		}
	}

	w.Header().Set("X-Run-ID", out.RunID)
	writeJSON(w, http.StatusOK, out.Result)
}

// ServeSummary returns the latest stored summary of a thread.
func (h *Handler) ServeSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := threadID(w, r)
	if !ok {
		return
	}
	s, err := h.store.LatestThreadSummary(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no summary for thread")
		return
	}
	if err != nil {
		slog.Error("load summary failed", "thread_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "load summary failed")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

type reviewEntry struct {
	models.Contact
	Addresses []models.EmailAddress `json:"addresses"`
}

// ServeReview lists contacts flagged for manual review with their addresses.
func (h *Handler) ServeReview(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.store.ListContactsNeedingReview(r.Context())
	if err != nil {
		slog.Error("list review contacts failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list contacts failed")
		return
	}
	entries := make([]reviewEntry, 0, len(contacts))
	for _, c := range contacts {
		addrs, err := h.store.ContactEmails(r.Context(), c.ID)
		if err != nil {
			slog.Error("list contact addresses failed", "contact_id", c.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "list contacts failed")
			return
		}
		entries = append(entries, reviewEntry{Contact: c, Addresses: addrs})
	}
	writeJSON(w, http.StatusOK, entries)
}

// ServeHealth pings the store and, when configured, Redis.
func (h *Handler) ServeHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := map[string]string{"store": "ok"}
	code := http.StatusOK
	if err := h.store.Ping(ctx); err != nil {
		status["store"] = err.Error()
		code = http.StatusServiceUnavailable
	}
	if h.publisher != nil {
		status["redis"] = "ok"
		if err := h.publisher.Ping(ctx); err != nil {
			status["redis"] = err.Error()
			code = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, status)
}

func threadID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid thread id")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
