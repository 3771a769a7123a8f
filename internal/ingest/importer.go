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

package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/bcem/threadintel/internal/identity"
	"github.com/bcem/threadintel/internal/mailtext"
	"github.com/bcem/threadintel/internal/models"
)

// CalendarLabel is added to messages that look like calendar invites.
const CalendarLabel = "CALENDAR"

const snippetLength = 200

// Store is the persistence the importer needs.
type Store interface {
	GetOrCreateThread(ctx context.Context, remoteID string) (*models.Thread, bool, error)
	GetOrCreateLabel(ctx context.Context, remoteID, name string) (*models.Label, error)
	CreateEmail(ctx context.Context, e *models.Email) (bool, error)
}

// Registrar resolves raw header values to email strings.
type Registrar interface {
	Register(ctx context.Context, raw string) (*models.EmailString, error)
}

// Result counts what an import did.
type Result struct {
	Threads    int `json:"threads"`
	NewThreads int `json:"new_threads"`
	Created    int `json:"created"`
	Skipped    int `json:"skipped"`
}

// Importer stores exported messages, registering every address it sees.
// It is not safe for concurrent use.
type Importer struct {
	store     Store
	registrar Registrar
	labels    map[string]models.Label
}

// NewImporter creates an Importer.
func NewImporter(st Store, registrar Registrar) *Importer {
	return &Importer{store: st, registrar: registrar, labels: make(map[string]models.Label)}
}

// ImportReader parses r and imports the messages.
func (im *Importer) ImportReader(ctx context.Context, r io.Reader) (Result, error) {
	msgs, err := Parse(r)
	if err != nil {
		return Result{}, err
	}
	return im.Import(ctx, msgs)
}

// Import stores msgs. Messages already stored (by remote id) and messages
// without a usable sender are skipped; recipients without a usable address
// are dropped.
func (im *Importer) Import(ctx context.Context, msgs []Message) (Result, error) {
	var res Result
	threads := make(map[string]int64)

	for _, m := range msgs {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		threadID, ok := threads[m.ThreadID]
		if !ok {
			th, created, err := im.store.GetOrCreateThread(ctx, m.ThreadID)
			if err != nil {
				return res, fmt.Errorf("thread %s: %w", m.ThreadID, err)
			}
			threadID = th.ID
			threads[m.ThreadID] = threadID
			res.Threads++
			if created {
				res.NewThreads++
			}
		}

		email, err := im.convert(ctx, m, threadID)
		if errors.Is(err, identity.ErrInvalidAddress) {
			slog.Warn("skipping message with unusable sender", "message_id", m.ID, "from", m.From)
			res.Skipped++
			continue
		}
		if err != nil {
			return res, fmt.Errorf("message %s: %w", m.ID, err)
		}

		created, err := im.store.CreateEmail(ctx, email)
		if err != nil {
			return res, fmt.Errorf("store message %s: %w", m.ID, err)
		}
		if !created {
			res.Skipped++
			continue
		}
		res.Created++
	}

	slog.Info("import complete",
		"threads", res.Threads,
		"new_threads", res.NewThreads,
		"created", res.Created,
		"skipped", res.Skipped,
	)
	return res, nil
}

func (im *Importer) convert(ctx context.Context, m Message, threadID int64) (*models.Email, error) {
	sender, err := im.registrar.Register(ctx, strings.TrimSpace(m.From))
	if err != nil {
		return nil, err
	}
	to, err := im.registerAll(ctx, m.ID, m.To)
	if err != nil {
		return nil, err
	}
	cc, err := im.registerAll(ctx, m.ID, m.Cc)
	if err != nil {
		return nil, err
	}

	body := mailtext.NormalizeWhitespace(m.Body)
	snippet := mailtext.NormalizeWhitespace(m.Snippet)
	if snippet == "" {
		snippet = truncate(strings.Join(strings.Fields(body), " "), snippetLength)
	}

	e := &models.Email{
		RemoteMessageID: m.ID,
		ThreadID:        threadID,
		Date:            m.Date.UTC(),
		Subject:         m.Subject,
		Body:            body,
		Snippet:         snippet,
		Sender:          *sender,
		To:              to,
		Cc:              cc,
	}

	refs := append([]LabelRef(nil), m.Labels...)
	if mailtext.IsCalendarInvite(m.Subject, m.Body, m.Headers) && !hasLabel(refs, CalendarLabel) {
		refs = append(refs, LabelRef{ID: CalendarLabel, Name: CalendarLabel})
	}
	for _, ref := range refs {
		l, err := im.label(ctx, ref)
		if err != nil {
			return nil, err
		}
		e.Labels = append(e.Labels, l)
	}
	return e, nil
}

func (im *Importer) registerAll(ctx context.Context, messageID string, raws []string) ([]models.EmailString, error) {
	out := make([]models.EmailString, 0, len(raws))
	seen := make(map[string]bool, len(raws))
	for _, raw := range raws {
		raw = strings.TrimSpace(raw)
		if raw == "" || seen[raw] {
			continue
		}
		seen[raw] = true
		es, err := im.registrar.Register(ctx, raw)
		if errors.Is(err, identity.ErrInvalidAddress) {
			slog.Warn("dropping unusable recipient", "message_id", messageID, "recipient", raw)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *es)
	}
	return out, nil
}

func (im *Importer) label(ctx context.Context, ref LabelRef) (models.Label, error) {
	id := ref.ID
	if id == "" {
		id = ref.Name
	}
	if l, ok := im.labels[id]; ok {
		return l, nil
	}
	name := ref.Name
	if name == "" {
		name = id
	}
	l, err := im.store.GetOrCreateLabel(ctx, id, name)
	if err != nil {
		return models.Label{}, fmt.Errorf("label %s: %w", id, err)
	}
	im.labels[id] = *l
	return *l, nil
}

func hasLabel(refs []LabelRef, name string) bool {
	for _, r := range refs {
		if r.Name == name || r.ID == name {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
