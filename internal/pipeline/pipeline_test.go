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

package pipeline

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bcem/threadintel/internal/identity"
	"github.com/bcem/threadintel/internal/models"
	"github.com/bcem/threadintel/internal/store"
)

// fakeGenerator returns a canned reply and records prompts.
type fakeGenerator struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

func (f *fakeGenerator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type message struct {
	from    string
	to      []string
	cc      []string
	subject string
	body    string
	labels  []string
}

type fixture struct {
	st       *store.MemoryStore
	reg      *identity.Registrar
	threadID int64
}

func newFixture(t *testing.T, msgs ...message) *fixture {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemoryStore()
	reg := identity.NewRegistrar(st, identity.NewResolver(st, 0), nil)

	th, _, err := st.GetOrCreateThread(ctx, "thread-1")
	if err != nil {
		t.Fatal(err)
	}
	register := func(raws []string) []models.EmailString {
		var out []models.EmailString
		for _, raw := range raws {
			es, err := reg.Register(ctx, raw)
			if err != nil {
				t.Fatalf("Register(%q): %v", raw, err)
			}
			out = append(out, *es)
		}
		return out
	}

	base := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	for i, m := range msgs {
		e := &models.Email{
			RemoteMessageID: "msg-" + string(rune('a'+i)),
			ThreadID:        th.ID,
			Date:            base.Add(time.Duration(i) * time.Hour),
			Subject:         m.subject,
			Body:            m.body,
			Snippet:         m.body,
			Sender:          register([]string{m.from})[0],
			To:              register(m.to),
			Cc:              register(m.cc),
		}
		for _, name := range m.labels {
			l, _ := st.GetOrCreateLabel(ctx, name, name)
			e.Labels = append(e.Labels, *l)
		}
		if _, err := st.CreateEmail(ctx, e); err != nil {
			t.Fatal(err)
		}
	}
	return &fixture{st: st, reg: reg, threadID: th.ID}
}

func (f *fixture) contactID(t *testing.T, raw string) int64 {
	t.Helper()
	es, err := f.st.GetEmailString(context.Background(), raw)
	if err != nil {
		t.Fatalf("GetEmailString(%q): %v", raw, err)
	}
	return es.ContactID
}

func (f *fixture) knowledge(t *testing.T, raw string) string {
	t.Helper()
	c, err := f.st.GetContact(context.Background(), f.contactID(t, raw))
	if err != nil {
		t.Fatal(err)
	}
	return c.Knowledge
}

func budgetThread(t *testing.T) *fixture {
	return newFixture(t,
		message{
			from:    "Alice Martin <alice@acme.com>",
			to:      []string{"Bob Stone <bob@acme.com>"},
			cc:      []string{"Team <team@acme.com>"},
			subject: "Q3 budget",
			body:    "Can you approve the Q3 budget by Friday?",
			labels:  []string{"INBOX", "CATEGORY_PERSONAL"},
		},
		message{
			from:    "Bob Stone <bob@acme.com>",
			to:      []string{"Alice Martin <alice@acme.com>"},
			cc:      []string{"Ops <team@acme.com>"},
			subject: "Re: Q3 budget",
			body:    "Approved.\n\nOn Tue, May 1, 2025 Alice Martin wrote:\n> Can you approve",
			labels:  []string{"CATEGORY_PERSONAL"},
		},
	)
}

func TestPipeline_ExactIDUpdatesKnowledge(t *testing.T) {
	f := budgetThread(t)
	alice := f.contactID(t, "Alice Martin <alice@acme.com>")

	gen := &fakeGenerator{reply: `Sure, here is the analysis:
{"summary":"Alice asks Bob to approve the budget.","rationale":"Direct request","action":"NEED_TO_RESPOND",
 "participants":[{"name":"Someone","email":"x@y.z","id":` + itoa(alice) + `,"role in the thread":"requester","updated_knowledge":"Finance lead at Acme"}]}
Hope this helps.`}
	p := New(f.st, gen, Assistant{Principal: "Dana", Organisations: []string{"Acme"}})

	res, err := p.Run(context.Background(), f.threadID)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Action != models.ActionNeedToRespond || res.Summary != "Alice asks Bob to approve the budget." {
		t.Errorf("result = %+v", res)
	}
	if got := f.knowledge(t, "Alice Martin <alice@acme.com>"); got != "Finance lead at Acme" {
		t.Errorf("alice knowledge = %q", got)
	}
	if gen.calls() != 1 {
		t.Errorf("generate calls = %d, want 1", gen.calls())
	}

	summaries, _ := f.st.ListThreadSummaries(context.Background(), f.threadID)
	if len(summaries) != 1 {
		t.Fatalf("summaries = %d, want 1", len(summaries))
	}
	s := summaries[0]
	view, _ := f.st.GetThread(context.Background(), f.threadID)
	if s.EmailID != view.LastEmail().ID || s.RunID == "" || s.Action != models.ActionNeedToRespond {
		t.Errorf("summary = %+v", s)
	}
	if len(s.Participants) != 1 || s.Participants[0].Role != "requester" {
		t.Errorf("stored participants = %+v", s.Participants)
	}
}

func TestPipeline_PromptContent(t *testing.T) {
	f := budgetThread(t)
	gen := &fakeGenerator{reply: `{"summary":"s","action":"IGNORE","rationale":"","participants":[]}`}
	p := New(f.st, gen, Assistant{Principal: "Dana Reyes", Organisations: []string{"Acme", "Globex"}})

	if _, err := p.Run(context.Background(), f.threadID); err != nil {
		t.Fatal(err)
	}
	prompt := gen.prompts[0]
	for _, want := range []string{
		"Dana Reyes",
		"- Globex",
		"<START_OF_KNOWLEDGE>",
		"Contact Internal ID: " + itoa(f.contactID(t, "Bob Stone <bob@acme.com>")),
		"Appears as: Team <team@acme.com>",
		"<START_OF_EMAIL>",
		"From: Alice Martin <alice@acme.com>",
		"Email content: Approved.",
		`"role in the thread"`,
		"IGNORE | NEED_TO_KNOW | NEED_TO_RESPOND",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(prompt, "> Can you approve") {
		t.Error("prompt contains quoted reply text")
	}
}

func TestPipeline_MalformedReplyFallsBack(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"no json", "I cannot help with that."},
		{"broken json", `{"summary": "x", "action": "IGNORE"`},
		{"missing action", `{"summary":"only a summary","participants":[]}`},
		{"missing summary", `{"action":"NEED_TO_KNOW"}`},
		{"unknown action", `{"summary":"s","action":"ESCALATE","participants":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := budgetThread(t)
			p := New(f.st, &fakeGenerator{reply: tt.reply}, Assistant{})

			out, err := p.Process(context.Background(), f.threadID)
			if err != nil {
				t.Fatalf("Process: %v", err)
			}
			if !out.Fallback {
				t.Error("Fallback = false")
			}
			if out.Result.Action != models.ActionIgnore || out.Result.Summary != tt.reply || out.Result.Rationale != "" || len(out.Result.Participants) != 0 {
				t.Errorf("result = %+v", out.Result)
			}
			latest, err := f.st.LatestThreadSummary(context.Background(), f.threadID)
			if err != nil {
				t.Fatal(err)
			}
			if latest.Summary != tt.reply || latest.Action != models.ActionIgnore {
				t.Errorf("stored summary = %+v", latest)
			}
		})
	}
}

func TestPipeline_ModelErrorStoresNothing(t *testing.T) {
	f := budgetThread(t)
	p := New(f.st, &fakeGenerator{err: errors.New("connection refused")}, Assistant{})

	_, err := p.Run(context.Background(), f.threadID)
	if !errors.Is(err, ErrModel) {
		t.Fatalf("error = %v, want ErrModel", err)
	}
	if !strings.HasPrefix(err.Error(), NodeSummarize+":") {
		t.Errorf("error %q not wrapped with node name", err)
	}
	if list, _ := f.st.ListThreadSummaries(context.Background(), f.threadID); len(list) != 0 {
		t.Errorf("summaries = %d, want 0", len(list))
	}
}

func TestPipeline_UniqueEmailMatch(t *testing.T) {
	f := budgetThread(t)
	gen := &fakeGenerator{reply: `{"summary":"s","action":"NEED_TO_KNOW","rationale":"r","participants":[
		{"name":"Robert","email":"BOB@acme.com","id":"N/A","role in the thread":"approver","updated_knowledge":"Approves budgets"}]}`}

	out, err := New(f.st, gen, Assistant{}).Process(context.Background(), f.threadID)
	if err != nil {
		t.Fatal(err)
	}
	if got := f.knowledge(t, "Bob Stone <bob@acme.com>"); got != "Approves budgets" {
		t.Errorf("bob knowledge = %q", got)
	}
	if len(out.Report.Updated) != 1 || out.Report.Updated[0].Match != identity.MentionByEmail {
		t.Errorf("report = %+v", out.Report)
	}
}

func TestPipeline_SharedMailboxUnresolved(t *testing.T) {
	f := budgetThread(t)
	gen := &fakeGenerator{reply: `{"summary":"s","action":"IGNORE","rationale":"r","participants":[
		{"name":"Acme team","email":"team@acme.com","id":null,"updated_knowledge":"Shared inbox"}]}`}

	out, err := New(f.st, gen, Assistant{}).Process(context.Background(), f.threadID)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Report.Unresolved) != 1 || len(out.Report.Updated) != 0 {
		t.Errorf("report = %+v", out.Report)
	}
	for _, raw := range []string{"Team <team@acme.com>", "Ops <team@acme.com>"} {
		if got := f.knowledge(t, raw); got != "" {
			t.Errorf("%s knowledge = %q, want empty", raw, got)
		}
	}
}

func TestPipeline_BestEffortReconciliation(t *testing.T) {
	f := budgetThread(t)
	gen := &fakeGenerator{reply: `{"summary":"s","action":"IGNORE","rationale":"r","participants":[
		{"name":"Stranger","email":"nobody@else.com","id":999,"updated_knowledge":"Unknown"},
		{"name":"Alice Martin","email":"N/A","id":null,"updated_knowledge":"Runs finance"},
		{"name":"Bob Stone","email":"bob@acme.com","updated_knowledge":"   "}]}`}

	out, err := New(f.st, gen, Assistant{}).Process(context.Background(), f.threadID)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if got := f.knowledge(t, "Alice Martin <alice@acme.com>"); got != "Runs finance" {
		t.Errorf("alice knowledge = %q", got)
	}
	if got := f.knowledge(t, "Bob Stone <bob@acme.com>"); got != "" {
		t.Errorf("bob knowledge = %q, want untouched", got)
	}
	r := out.Report
	if len(r.Updated) != 1 || r.Updated[0].Match != identity.MentionByName || len(r.Unresolved) != 1 || r.NoKnowledge != 1 {
		t.Errorf("report = %+v", r)
	}
}

// failingKnowledgeStore fails every knowledge update.
type failingKnowledgeStore struct {
	*store.MemoryStore
}

func (failingKnowledgeStore) UpdateContactKnowledge(context.Context, int64, string) error {
	return errors.New("disk full")
}

func TestPipeline_PersistenceErrorAborts(t *testing.T) {
	f := budgetThread(t)
	gen := &fakeGenerator{reply: `{"summary":"s","action":"IGNORE","rationale":"r","participants":[
		{"name":"Alice Martin","email":"alice@acme.com","updated_knowledge":"x"}]}`}

	_, err := New(failingKnowledgeStore{f.st}, gen, Assistant{}).Run(context.Background(), f.threadID)
	if err == nil || !strings.HasPrefix(err.Error(), NodeUpdate+":") {
		t.Fatalf("error = %v, want %s failure", err, NodeUpdate)
	}
	// the summary written before reconciliation stays
	if list, _ := f.st.ListThreadSummaries(context.Background(), f.threadID); len(list) != 1 {
		t.Errorf("summaries = %d, want 1", len(list))
	}
}

func TestPipeline_EmptyThread(t *testing.T) {
	f := newFixture(t)
	gen := &fakeGenerator{reply: "{}"}
	_, err := New(f.st, gen, Assistant{}).Run(context.Background(), f.threadID)
	if !errors.Is(err, ErrEmptyThread) {
		t.Errorf("error = %v, want ErrEmptyThread", err)
	}
	if gen.calls() != 0 {
		t.Errorf("generate called %d times for empty thread", gen.calls())
	}
}

func TestPipeline_UnknownThread(t *testing.T) {
	st := store.NewMemoryStore()
	_, err := New(st, &fakeGenerator{}, Assistant{}).Run(context.Background(), 42)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
