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

package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bcem/threadintel/internal/models"
)

func TestMemoryStore(t *testing.T) {
	runConformance(t, func(t *testing.T) Store {
		return NewMemoryStore()
	})
}

func TestSQLiteStore(t *testing.T) {
	runConformance(t, func(t *testing.T) Store {
		s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
		if err != nil {
			t.Fatalf("OpenSQLite: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	})
}

// TestPostgresStore runs against a disposable database named by
// TEST_DATABASE_URL. Every subtest drops and recreates the schema.
func TestPostgresStore(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	runConformance(t, func(t *testing.T) Store {
		ctx := context.Background()
		pool, err := pgxpool.New(ctx, url)
		if err != nil {
			t.Fatalf("pgxpool.New: %v", err)
		}
		if _, err := pool.Exec(ctx, `DROP SCHEMA public CASCADE; CREATE SCHEMA public;`); err != nil {
			t.Fatalf("reset schema: %v", err)
		}
		s, err := NewPostgresStore(ctx, pool)
		if err != nil {
			t.Fatalf("NewPostgresStore: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func runConformance(t *testing.T, newStore func(t *testing.T) Store) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s Store)
	}{
		{"EmailAddresses", testEmailAddresses},
		{"Contacts", testContacts},
		{"EmailStrings", testEmailStrings},
		{"ThreadsAndEmails", testThreadsAndEmails},
		{"ThreadsNeedingSummary", testThreadsNeedingSummary},
		{"Summaries", testSummaries},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

// seedString creates an address, a contact and an email string for raw.
func seedString(t *testing.T, s Store, raw, name, email string) models.EmailString {
	t.Helper()
	ctx := context.Background()
	a, err := s.GetOrCreateEmailAddress(ctx, email, false)
	if err != nil {
		t.Fatalf("GetOrCreateEmailAddress: %v", err)
	}
	c, err := s.CreateContact(ctx, name, a.ID)
	if err != nil {
		t.Fatalf("CreateContact: %v", err)
	}
	es := &models.EmailString{OriginalString: raw, Name: name, Email: email, EmailAddressID: a.ID, ContactID: c.ID}
	if err := s.CreateEmailString(ctx, es); err != nil {
		t.Fatalf("CreateEmailString: %v", err)
	}
	return *es
}

func mustLabel(t *testing.T, s Store, name string) models.Label {
	t.Helper()
	l, err := s.GetOrCreateLabel(context.Background(), name, name)
	if err != nil {
		t.Fatalf("GetOrCreateLabel(%s): %v", name, err)
	}
	return *l
}

func testEmailAddresses(t *testing.T, s Store) {
	ctx := context.Background()

	a, err := s.GetOrCreateEmailAddress(ctx, "noreply@example.com", true)
	if err != nil {
		t.Fatal(err)
	}
	if !a.IsActive || !a.IsGeneric {
		t.Errorf("new address = %+v, want active and generic", a)
	}

	again, err := s.GetOrCreateEmailAddress(ctx, "noreply@example.com", false)
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != a.ID || !again.IsGeneric {
		t.Errorf("second lookup = %+v, want id %d with generic flag kept", again, a.ID)
	}
}

func testContacts(t *testing.T, s Store) {
	ctx := context.Background()

	work, _ := s.GetOrCreateEmailAddress(ctx, "john@work.com", false)
	home, _ := s.GetOrCreateEmailAddress(ctx, "john@home.com", false)

	c, err := s.CreateContact(ctx, "John Doe", work.ID)
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.GetContact(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "John Doe" || got.Knowledge != "" || got.NeedsReview {
		t.Errorf("GetContact = %+v", got)
	}

	if _, err := s.GetContact(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetContact(9999) error = %v, want ErrNotFound", err)
	}

	byName, _ := s.FindContacts(ctx, "John Doe", "")
	if len(byName) != 1 {
		t.Fatalf("FindContacts by name = %d, want 1", len(byName))
	}
	byPair, _ := s.FindContacts(ctx, "John Doe", "john@home.com")
	if len(byPair) != 0 {
		t.Errorf("FindContacts with unlinked email = %d, want 0", len(byPair))
	}
	if other, _ := s.FindContacts(ctx, "john doe", ""); len(other) != 0 {
		t.Errorf("name match must be exact, got %d", len(other))
	}

	added, err := s.AddContactEmail(ctx, c.ID, home.ID)
	if err != nil || !added {
		t.Fatalf("AddContactEmail = %v, %v; want true", added, err)
	}
	added, err = s.AddContactEmail(ctx, c.ID, home.ID)
	if err != nil || added {
		t.Fatalf("second AddContactEmail = %v, %v; want false", added, err)
	}

	byPair, _ = s.FindContacts(ctx, "John Doe", "john@home.com")
	if len(byPair) != 1 || byPair[0].ID != c.ID {
		t.Errorf("FindContacts after link = %+v", byPair)
	}

	addrs, _ := s.ContactEmails(ctx, c.ID)
	if len(addrs) != 2 {
		t.Errorf("ContactEmails = %d, want 2", len(addrs))
	}

	if err := s.UpdateContactKnowledge(ctx, c.ID, "CFO at Acme"); err != nil {
		t.Fatal(err)
	}
	got, _ = s.GetContact(ctx, c.ID)
	if got.Knowledge != "CFO at Acme" {
		t.Errorf("Knowledge = %q", got.Knowledge)
	}
	if err := s.UpdateContactKnowledge(ctx, 9999, "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateContactKnowledge(9999) error = %v, want ErrNotFound", err)
	}

	if list, _ := s.ListContactsNeedingReview(ctx); len(list) != 0 {
		t.Errorf("review list before flag = %d, want 0", len(list))
	}
	if err := s.FlagContactForReview(ctx, c.ID); err != nil {
		t.Fatal(err)
	}
	list, _ := s.ListContactsNeedingReview(ctx)
	if len(list) != 1 || list[0].ID != c.ID || !list[0].NeedsReview {
		t.Errorf("review list = %+v", list)
	}
}

func testEmailStrings(t *testing.T, s Store) {
	ctx := context.Background()

	es := seedString(t, s, `"Doe, John" <John@Example.com>`, "Doe John", "john@example.com")
	if es.ID == 0 {
		t.Fatal("CreateEmailString did not set ID")
	}

	got, err := s.GetEmailString(ctx, `"Doe, John" <John@Example.com>`)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != es.ID || got.ContactID != es.ContactID || got.Email != "john@example.com" || got.Reviewed {
		t.Errorf("GetEmailString = %+v", got)
	}

	if _, err := s.GetEmailString(ctx, "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing string error = %v, want ErrNotFound", err)
	}

	dup := &models.EmailString{
		OriginalString: es.OriginalString,
		Name:           es.Name,
		Email:          es.Email,
		EmailAddressID: es.EmailAddressID,
		ContactID:      es.ContactID,
	}
	if err := s.CreateEmailString(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate CreateEmailString error = %v, want ErrConflict", err)
	}

	second := &models.EmailString{
		OriginalString: "john@example.com",
		Name:           "John",
		Email:          "john@example.com",
		EmailAddressID: es.EmailAddressID,
		ContactID:      es.ContactID,
	}
	if err := s.CreateEmailString(ctx, second); err != nil {
		t.Fatal(err)
	}
	list, _ := s.ListEmailStringsForContact(ctx, es.ContactID)
	if len(list) != 2 {
		t.Errorf("ListEmailStringsForContact = %d, want 2", len(list))
	}
}

func testThreadsAndEmails(t *testing.T, s Store) {
	ctx := context.Background()

	alice := seedString(t, s, "Alice <alice@example.com>", "Alice", "alice@example.com")
	bob := seedString(t, s, "bob@example.com", "Bob", "bob@example.com")
	carol := seedString(t, s, "Carol <carol@example.com>", "Carol", "carol@example.com")

	th, created, err := s.GetOrCreateThread(ctx, "t-1")
	if err != nil || !created {
		t.Fatalf("GetOrCreateThread = %v, %v; want created", created, err)
	}
	again, created, err := s.GetOrCreateThread(ctx, "t-1")
	if err != nil || created || again.ID != th.ID {
		t.Fatalf("second GetOrCreateThread = %+v, %v, %v", again, created, err)
	}

	inbox := mustLabel(t, s, "INBOX")
	personal := mustLabel(t, s, "CATEGORY_PERSONAL")
	if l, _ := s.GetOrCreateLabel(ctx, "INBOX", "ignored"); l.ID != inbox.ID || l.Name != "INBOX" {
		t.Errorf("GetOrCreateLabel returned %+v, want existing INBOX", l)
	}

	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	later := &models.Email{
		RemoteMessageID: "m-2",
		ThreadID:        th.ID,
		Date:            base.Add(time.Hour),
		Subject:         "Re: Budget",
		Body:            "Sounds good.",
		Sender:          bob,
		To:              []models.EmailString{alice},
		Labels:          []models.Label{personal},
	}
	first := &models.Email{
		RemoteMessageID: "m-1",
		ThreadID:        th.ID,
		Date:            base,
		Subject:         "Budget",
		Body:            "Please review.",
		Snippet:         "Please review",
		Sender:          alice,
		To:              []models.EmailString{bob, carol},
		Cc:              []models.EmailString{carol},
		Labels:          []models.Label{inbox, personal},
	}
	for _, e := range []*models.Email{later, first} {
		ok, err := s.CreateEmail(ctx, e)
		if err != nil || !ok {
			t.Fatalf("CreateEmail(%s) = %v, %v", e.RemoteMessageID, ok, err)
		}
	}

	dup := &models.Email{RemoteMessageID: "m-1", ThreadID: th.ID, Date: base, Sender: alice}
	ok, err := s.CreateEmail(ctx, dup)
	if err != nil || ok || dup.ID != first.ID {
		t.Fatalf("duplicate CreateEmail = %v, %v, id %d; want existing id %d", ok, err, dup.ID, first.ID)
	}

	view, err := s.GetThread(ctx, th.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(view.Emails) != 2 {
		t.Fatalf("emails = %d, want 2", len(view.Emails))
	}
	e0 := view.Emails[0]
	if e0.RemoteMessageID != "m-1" || e0.Sender.OriginalString != alice.OriginalString {
		t.Errorf("first email = %s from %s", e0.RemoteMessageID, e0.Sender.OriginalString)
	}
	if len(e0.To) != 2 || e0.To[0].ID != bob.ID || e0.To[1].ID != carol.ID {
		t.Errorf("first email To = %+v", e0.To)
	}
	if len(e0.Cc) != 1 || e0.Cc[0].ID != carol.ID {
		t.Errorf("first email Cc = %+v", e0.Cc)
	}
	if len(e0.Labels) != 2 || e0.Labels[0].Name != "INBOX" {
		t.Errorf("first email labels = %+v", e0.Labels)
	}
	if !e0.Date.Equal(base) {
		t.Errorf("first email date = %v, want %v", e0.Date, base)
	}
	if view.Subject() != "Budget" {
		t.Errorf("Subject() = %q", view.Subject())
	}

	if _, err := s.GetThread(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetThread(9999) error = %v, want ErrNotFound", err)
	}
}

func testThreadsNeedingSummary(t *testing.T, s Store) {
	ctx := context.Background()

	alice := seedString(t, s, "alice@example.com", "Alice", "alice@example.com")
	personal := mustLabel(t, s, "CATEGORY_PERSONAL")
	promo := mustLabel(t, s, "CATEGORY_PROMOTIONS")
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	addEmail := func(remoteThread, remoteMsg string, at time.Time, labels ...models.Label) *models.Email {
		th, _, err := s.GetOrCreateThread(ctx, remoteThread)
		if err != nil {
			t.Fatal(err)
		}
		e := &models.Email{RemoteMessageID: remoteMsg, ThreadID: th.ID, Date: at, Sender: alice, Labels: labels}
		if _, err := s.CreateEmail(ctx, e); err != nil {
			t.Fatal(err)
		}
		return e
	}

	a := addEmail("a", "a-1", base, personal)
	addEmail("b", "b-1", base, promo)
	// thread c: personal first, promotions last
	addEmail("c", "c-1", base, personal)
	addEmail("c", "c-2", base.Add(time.Hour), promo)
	if _, _, err := s.GetOrCreateThread(ctx, "empty"); err != nil {
		t.Fatal(err)
	}

	ids, err := s.ListThreadsNeedingSummary(ctx, "CATEGORY_PERSONAL", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != a.ThreadID {
		t.Fatalf("personal threads = %v, want [%d]", ids, a.ThreadID)
	}

	all, _ := s.ListThreadsNeedingSummary(ctx, "", 0)
	if len(all) != 3 {
		t.Errorf("any-label threads = %v, want 3", all)
	}
	if limited, _ := s.ListThreadsNeedingSummary(ctx, "", 2); len(limited) != 2 {
		t.Errorf("limited = %v, want 2", limited)
	}

	if err := s.CreateThreadSummary(ctx, &models.ThreadSummary{
		ThreadID: a.ThreadID, EmailID: a.ID, Summary: "s", Action: models.ActionIgnore,
	}); err != nil {
		t.Fatal(err)
	}
	if ids, _ := s.ListThreadsNeedingSummary(ctx, "CATEGORY_PERSONAL", 0); len(ids) != 0 {
		t.Errorf("after summary = %v, want none", ids)
	}

	// a newer email makes the thread eligible again
	addEmail("a", "a-2", base.Add(2*time.Hour), personal)
	if ids, _ := s.ListThreadsNeedingSummary(ctx, "CATEGORY_PERSONAL", 0); len(ids) != 1 {
		t.Errorf("after new email = %v, want 1", ids)
	}
}

func testSummaries(t *testing.T, s Store) {
	ctx := context.Background()

	alice := seedString(t, s, "alice@example.com", "Alice", "alice@example.com")
	th, _, _ := s.GetOrCreateThread(ctx, "t")
	e := &models.Email{RemoteMessageID: "m", ThreadID: th.ID, Date: time.Now().UTC(), Sender: alice}
	if _, err := s.CreateEmail(ctx, e); err != nil {
		t.Fatal(err)
	}

	if _, err := s.LatestThreadSummary(ctx, th.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("LatestThreadSummary before insert error = %v, want ErrNotFound", err)
	}

	first := &models.ThreadSummary{
		ThreadID: th.ID,
		EmailID:  e.ID,
		RunID:    "run-1",
		Summary:  "Alice asks for budget review.",
		Action:   models.ActionNeedToRespond,
		Participants: []models.ParticipantFinding{
			{Name: "Alice", Email: "alice@example.com", ID: "1", Role: "requester", UpdatedKnowledge: "Finance lead"},
		},
	}
	if err := s.CreateThreadSummary(ctx, first); err != nil {
		t.Fatal(err)
	}
	if first.ID == 0 || first.Timestamp.IsZero() {
		t.Errorf("CreateThreadSummary did not fill id/timestamp: %+v", first)
	}
	second := &models.ThreadSummary{ThreadID: th.ID, EmailID: e.ID, RunID: "run-2", Summary: "raw", Action: models.ActionIgnore}
	if err := s.CreateThreadSummary(ctx, second); err != nil {
		t.Fatal(err)
	}

	latest, err := s.LatestThreadSummary(ctx, th.ID)
	if err != nil {
		t.Fatal(err)
	}
	if latest.ID != second.ID || latest.RunID != "run-2" || len(latest.Participants) != 0 {
		t.Errorf("latest = %+v", latest)
	}

	list, _ := s.ListThreadSummaries(ctx, th.ID)
	if len(list) != 2 {
		t.Fatalf("ListThreadSummaries = %d, want 2", len(list))
	}
	p := list[0].Participants
	if len(p) != 1 || p[0].Role != "requester" || p[0].ID != "1" || p[0].UpdatedKnowledge != "Finance lead" {
		t.Errorf("participants round trip = %+v", p)
	}
	if list[0].Action != models.ActionNeedToRespond {
		t.Errorf("action = %q", list[0].Action)
	}
}
