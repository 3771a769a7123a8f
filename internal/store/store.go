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

// Package store persists the contact graph, threads, emails and thread
// summaries. Three backends implement Store: an in-memory arena used by
// tests and one-shot runs, SQLite for single-node deployments and Postgres
// for shared deployments.
package store

import (
	"context"
	"errors"

	"github.com/bcem/threadintel/internal/models"
)

var (
	// ErrNotFound is returned when a lookup matches no record.
	ErrNotFound = errors.New("store: not found")
	// ErrConflict is returned when an insert violates a uniqueness constraint.
	ErrConflict = errors.New("store: conflict")
)

// Store is the persistence boundary of the service.
type Store interface {
	// GetOrCreateEmailAddress returns the address row for email, creating it
	// with the given generic flag on first sighting.
	GetOrCreateEmailAddress(ctx context.Context, email string, generic bool) (*models.EmailAddress, error)

	// CreateContact inserts a contact linked to one address.
	CreateContact(ctx context.Context, name string, addressID int64) (*models.Contact, error)
	GetContact(ctx context.Context, id int64) (*models.Contact, error)
	// FindContacts returns contacts whose name equals name exactly. When
	// email is non-empty only contacts holding that address are returned.
	FindContacts(ctx context.Context, name, email string) ([]models.Contact, error)
	// AddContactEmail links an address to a contact. It reports false when
	// the link already existed.
	AddContactEmail(ctx context.Context, contactID, addressID int64) (bool, error)
	ContactEmails(ctx context.Context, contactID int64) ([]models.EmailAddress, error)
	UpdateContactKnowledge(ctx context.Context, contactID int64, knowledge string) error
	FlagContactForReview(ctx context.Context, contactID int64) error
	ListContactsNeedingReview(ctx context.Context) ([]models.Contact, error)

	GetEmailString(ctx context.Context, original string) (*models.EmailString, error)
	// CreateEmailString inserts es and fills its ID. It returns ErrConflict
	// when original_string already exists.
	CreateEmailString(ctx context.Context, es *models.EmailString) error
	ListEmailStringsForContact(ctx context.Context, contactID int64) ([]models.EmailString, error)

	GetOrCreateLabel(ctx context.Context, remoteID, name string) (*models.Label, error)

	// GetOrCreateThread reports whether the thread was created.
	GetOrCreateThread(ctx context.Context, remoteID string) (*models.Thread, bool, error)
	// GetThread loads a thread with its emails in chronological order, each
	// with sender, recipients and labels populated.
	GetThread(ctx context.Context, id int64) (*models.ThreadView, error)
	// ListThreadsNeedingSummary returns ids of threads whose latest email
	// carries label (any label when empty) and is not referenced by a
	// thread summary yet.
	ListThreadsNeedingSummary(ctx context.Context, label string, limit int) ([]int64, error)

	// CreateEmail stores e unless its remote message id is already known,
	// and fills e.ID either way. Sender, recipients and labels must already
	// exist.
	CreateEmail(ctx context.Context, e *models.Email) (bool, error)

	CreateThreadSummary(ctx context.Context, s *models.ThreadSummary) error
	LatestThreadSummary(ctx context.Context, threadID int64) (*models.ThreadSummary, error)
	ListThreadSummaries(ctx context.Context, threadID int64) ([]models.ThreadSummary, error)

	Ping(ctx context.Context) error
	Close() error
}
