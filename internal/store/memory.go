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
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bcem/threadintel/internal/models"
)

// MemoryStore is an arena-backed Store. Records live in slices indexed by
// id-1 and the contact/address graph is held as explicit association
// records, so nothing points at anything else directly.
type MemoryStore struct {
	mu  sync.RWMutex
	now func() time.Time

	addresses     []models.EmailAddress
	contacts      []models.Contact
	contactEmails []contactEmail
	emailStrings  []models.EmailString
	labels        []models.Label
	threads       []models.Thread
	emails        []emailRecord
	summaries     []models.ThreadSummary

	addressByEmail   map[string]int64
	stringByOriginal map[string]int64
	labelByRemote    map[string]int64
	threadByRemote   map[string]int64
	emailByRemote    map[string]int64
}

type contactEmail struct {
	contactID int64
	addressID int64
}

type emailRecord struct {
	id       int64
	remoteID string
	threadID int64
	date     time.Time
	subject  string
	body     string
	snippet  string
	senderID int64
	toIDs    []int64
	ccIDs    []int64
	labelIDs []int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:              time.Now,
		addressByEmail:   make(map[string]int64),
		stringByOriginal: make(map[string]int64),
		labelByRemote:    make(map[string]int64),
		threadByRemote:   make(map[string]int64),
		emailByRemote:    make(map[string]int64),
	}
}

// GetOrCreateEmailAddress implements Store.
func (m *MemoryStore) GetOrCreateEmailAddress(_ context.Context, email string, generic bool) (*models.EmailAddress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.addressByEmail[email]; ok {
		a := m.addresses[id-1]
		return &a, nil
	}
	a := models.EmailAddress{
		ID:        int64(len(m.addresses) + 1),
		Email:     email,
		IsActive:  true,
		IsGeneric: generic,
	}
	m.addresses = append(m.addresses, a)
	m.addressByEmail[email] = a.ID
	return &a, nil
}

// CreateContact implements Store.
func (m *MemoryStore) CreateContact(_ context.Context, name string, addressID int64) (*models.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.validID(addressID, len(m.addresses)) {
		return nil, fmt.Errorf("email address %d: %w", addressID, ErrNotFound)
	}
	now := m.now().UTC()
	c := models.Contact{
		ID:        int64(len(m.contacts) + 1),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.contacts = append(m.contacts, c)
	m.contactEmails = append(m.contactEmails, contactEmail{contactID: c.ID, addressID: addressID})
	return &c, nil
}

// GetContact implements Store.
func (m *MemoryStore) GetContact(_ context.Context, id int64) (*models.Contact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.validID(id, len(m.contacts)) {
		return nil, fmt.Errorf("contact %d: %w", id, ErrNotFound)
	}
	c := m.contacts[id-1]
	return &c, nil
}

// FindContacts implements Store.
func (m *MemoryStore) FindContacts(_ context.Context, name, email string) ([]models.Contact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var addressID int64
	if email != "" {
		id, ok := m.addressByEmail[email]
		if !ok {
			return nil, nil
		}
		addressID = id
	}

	var out []models.Contact
	for _, c := range m.contacts {
		if c.Name != name {
			continue
		}
		if addressID != 0 && !m.linked(c.ID, addressID) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// AddContactEmail implements Store.
func (m *MemoryStore) AddContactEmail(_ context.Context, contactID, addressID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.validID(contactID, len(m.contacts)) {
		return false, fmt.Errorf("contact %d: %w", contactID, ErrNotFound)
	}
	if !m.validID(addressID, len(m.addresses)) {
		return false, fmt.Errorf("email address %d: %w", addressID, ErrNotFound)
	}
	if m.linked(contactID, addressID) {
		return false, nil
	}
	m.contactEmails = append(m.contactEmails, contactEmail{contactID: contactID, addressID: addressID})
	m.contacts[contactID-1].UpdatedAt = m.now().UTC()
	return true, nil
}

// ContactEmails implements Store.
func (m *MemoryStore) ContactEmails(_ context.Context, contactID int64) ([]models.EmailAddress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.EmailAddress
	for _, ce := range m.contactEmails {
		if ce.contactID == contactID {
			out = append(out, m.addresses[ce.addressID-1])
		}
	}
	return out, nil
}

// UpdateContactKnowledge implements Store.
func (m *MemoryStore) UpdateContactKnowledge(_ context.Context, contactID int64, knowledge string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.validID(contactID, len(m.contacts)) {
		return fmt.Errorf("contact %d: %w", contactID, ErrNotFound)
	}
	c := &m.contacts[contactID-1]
	c.Knowledge = knowledge
	c.UpdatedAt = m.now().UTC()
	return nil
}

// FlagContactForReview implements Store.
func (m *MemoryStore) FlagContactForReview(_ context.Context, contactID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.validID(contactID, len(m.contacts)) {
		return fmt.Errorf("contact %d: %w", contactID, ErrNotFound)
	}
	c := &m.contacts[contactID-1]
	c.NeedsReview = true
	c.UpdatedAt = m.now().UTC()
	return nil
}

// ListContactsNeedingReview implements Store.
func (m *MemoryStore) ListContactsNeedingReview(_ context.Context) ([]models.Contact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Contact
	for _, c := range m.contacts {
		if c.NeedsReview {
			out = append(out, c)
		}
	}
	return out, nil
}

// GetEmailString implements Store.
func (m *MemoryStore) GetEmailString(_ context.Context, original string) (*models.EmailString, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.stringByOriginal[original]
	if !ok {
		return nil, fmt.Errorf("email string %q: %w", original, ErrNotFound)
	}
	es := m.emailStrings[id-1]
	return &es, nil
}

// CreateEmailString implements Store.
func (m *MemoryStore) CreateEmailString(_ context.Context, es *models.EmailString) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.stringByOriginal[es.OriginalString]; ok {
		return fmt.Errorf("email string %q: %w", es.OriginalString, ErrConflict)
	}
	if !m.validID(es.EmailAddressID, len(m.addresses)) {
		return fmt.Errorf("email address %d: %w", es.EmailAddressID, ErrNotFound)
	}
	if !m.validID(es.ContactID, len(m.contacts)) {
		return fmt.Errorf("contact %d: %w", es.ContactID, ErrNotFound)
	}
	es.ID = int64(len(m.emailStrings) + 1)
	if es.CreatedAt.IsZero() {
		es.CreatedAt = m.now().UTC()
	}
	m.emailStrings = append(m.emailStrings, *es)
	m.stringByOriginal[es.OriginalString] = es.ID
	return nil
}

// ListEmailStringsForContact implements Store.
func (m *MemoryStore) ListEmailStringsForContact(_ context.Context, contactID int64) ([]models.EmailString, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.EmailString
	for _, es := range m.emailStrings {
		if es.ContactID == contactID {
			out = append(out, es)
		}
	}
	return out, nil
}

// GetOrCreateLabel implements Store.
func (m *MemoryStore) GetOrCreateLabel(_ context.Context, remoteID, name string) (*models.Label, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.labelByRemote[remoteID]; ok {
		l := m.labels[id-1]
		return &l, nil
	}
	l := models.Label{ID: int64(len(m.labels) + 1), RemoteLabelID: remoteID, Name: name}
	m.labels = append(m.labels, l)
	m.labelByRemote[remoteID] = l.ID
	return &l, nil
}

// GetOrCreateThread implements Store.
func (m *MemoryStore) GetOrCreateThread(_ context.Context, remoteID string) (*models.Thread, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.threadByRemote[remoteID]; ok {
		t := m.threads[id-1]
		return &t, false, nil
	}
	t := models.Thread{ID: int64(len(m.threads) + 1), RemoteThreadID: remoteID, CreatedAt: m.now().UTC()}
	m.threads = append(m.threads, t)
	m.threadByRemote[remoteID] = t.ID
	return &t, true, nil
}

// GetThread implements Store.
func (m *MemoryStore) GetThread(_ context.Context, id int64) (*models.ThreadView, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.validID(id, len(m.threads)) {
		return nil, fmt.Errorf("thread %d: %w", id, ErrNotFound)
	}
	view := &models.ThreadView{Thread: m.threads[id-1]}
	for _, rec := range m.threadEmails(id) {
		view.Emails = append(view.Emails, m.populate(rec))
	}
	return view, nil
}

// ListThreadsNeedingSummary implements Store.
func (m *MemoryStore) ListThreadsNeedingSummary(_ context.Context, label string, limit int) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summarised := make(map[int64]bool)
	for _, s := range m.summaries {
		summarised[s.EmailID] = true
	}

	var out []int64
	for _, t := range m.threads {
		recs := m.threadEmails(t.ID)
		if len(recs) == 0 {
			continue
		}
		last := recs[len(recs)-1]
		if summarised[last.id] {
			continue
		}
		if label != "" && !m.hasLabel(last, label) {
			continue
		}
		out = append(out, t.ID)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// CreateEmail implements Store.
func (m *MemoryStore) CreateEmail(_ context.Context, e *models.Email) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.emailByRemote[e.RemoteMessageID]; ok {
		e.ID = id
		return false, nil
	}
	if !m.validID(e.ThreadID, len(m.threads)) {
		return false, fmt.Errorf("thread %d: %w", e.ThreadID, ErrNotFound)
	}
	if !m.validID(e.Sender.ID, len(m.emailStrings)) {
		return false, fmt.Errorf("sender email string %d: %w", e.Sender.ID, ErrNotFound)
	}

	rec := emailRecord{
		id:       int64(len(m.emails) + 1),
		remoteID: e.RemoteMessageID,
		threadID: e.ThreadID,
		date:     e.Date,
		subject:  e.Subject,
		body:     e.Body,
		snippet:  e.Snippet,
		senderID: e.Sender.ID,
	}
	for _, es := range e.To {
		rec.toIDs = append(rec.toIDs, es.ID)
	}
	for _, es := range e.Cc {
		rec.ccIDs = append(rec.ccIDs, es.ID)
	}
	for _, l := range e.Labels {
		rec.labelIDs = append(rec.labelIDs, l.ID)
	}
	for _, id := range append(append([]int64{}, rec.toIDs...), rec.ccIDs...) {
		if !m.validID(id, len(m.emailStrings)) {
			return false, fmt.Errorf("recipient email string %d: %w", id, ErrNotFound)
		}
	}
	for _, id := range rec.labelIDs {
		if !m.validID(id, len(m.labels)) {
			return false, fmt.Errorf("label %d: %w", id, ErrNotFound)
		}
	}

	m.emails = append(m.emails, rec)
	m.emailByRemote[rec.remoteID] = rec.id
	e.ID = rec.id
	return true, nil
}

// CreateThreadSummary implements Store.
func (m *MemoryStore) CreateThreadSummary(_ context.Context, s *models.ThreadSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.validID(s.ThreadID, len(m.threads)) {
		return fmt.Errorf("thread %d: %w", s.ThreadID, ErrNotFound)
	}
	if !m.validID(s.EmailID, len(m.emails)) {
		return fmt.Errorf("email %d: %w", s.EmailID, ErrNotFound)
	}
	s.ID = int64(len(m.summaries) + 1)
	if s.Timestamp.IsZero() {
		s.Timestamp = m.now().UTC()
	}
	row := *s
	row.Participants = append([]models.ParticipantFinding(nil), s.Participants...)
	m.summaries = append(m.summaries, row)
	return nil
}

// LatestThreadSummary implements Store.
func (m *MemoryStore) LatestThreadSummary(_ context.Context, threadID int64) (*models.ThreadSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.summaries) - 1; i >= 0; i-- {
		if m.summaries[i].ThreadID == threadID {
			s := m.summaries[i]
			return &s, nil
		}
	}
	return nil, fmt.Errorf("summary for thread %d: %w", threadID, ErrNotFound)
}

// ListThreadSummaries implements Store.
func (m *MemoryStore) ListThreadSummaries(_ context.Context, threadID int64) ([]models.ThreadSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.ThreadSummary
	for _, s := range m.summaries {
		if s.ThreadID == threadID {
			out = append(out, s)
		}
	}
	return out, nil
}

// Ping implements Store.
func (m *MemoryStore) Ping(context.Context) error { return nil }

// Close implements Store.
func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) validID(id int64, n int) bool {
	return id >= 1 && id <= int64(n)
}

func (m *MemoryStore) linked(contactID, addressID int64) bool {
	for _, ce := range m.contactEmails {
		if ce.contactID == contactID && ce.addressID == addressID {
			return true
		}
	}
	return false
}

// threadEmails returns a thread's email records ordered by date then id.
func (m *MemoryStore) threadEmails(threadID int64) []emailRecord {
	var recs []emailRecord
	for _, rec := range m.emails {
		if rec.threadID == threadID {
			recs = append(recs, rec)
		}
	}
	sort.SliceStable(recs, func(i, j int) bool {
		if !recs[i].date.Equal(recs[j].date) {
			return recs[i].date.Before(recs[j].date)
		}
		return recs[i].id < recs[j].id
	})
	return recs
}

func (m *MemoryStore) hasLabel(rec emailRecord, name string) bool {
	for _, id := range rec.labelIDs {
		if m.labels[id-1].Name == name {
			return true
		}
	}
	return false
}

func (m *MemoryStore) populate(rec emailRecord) models.Email {
	e := models.Email{
		ID:              rec.id,
		RemoteMessageID: rec.remoteID,
		ThreadID:        rec.threadID,
		Date:            rec.date,
		Subject:         rec.subject,
		Body:            rec.body,
		Snippet:         rec.snippet,
		Sender:          m.emailStrings[rec.senderID-1],
	}
	for _, id := range rec.toIDs {
		e.To = append(e.To, m.emailStrings[id-1])
	}
	for _, id := range rec.ccIDs {
		e.Cc = append(e.Cc, m.emailStrings[id-1])
	}
	for _, id := range rec.labelIDs {
		e.Labels = append(e.Labels, m.labels[id-1])
	}
	return e
}

var _ Store = (*MemoryStore)(nil)
