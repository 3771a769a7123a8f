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

package identity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bcem/threadintel/internal/models"
)

// Store is the part of store.Store the identity engine uses.
type Store interface {
	GetOrCreateEmailAddress(ctx context.Context, email string, generic bool) (*models.EmailAddress, error)
	CreateContact(ctx context.Context, name string, addressID int64) (*models.Contact, error)
	FindContacts(ctx context.Context, name, email string) ([]models.Contact, error)
	AddContactEmail(ctx context.Context, contactID, addressID int64) (bool, error)
	ContactEmails(ctx context.Context, contactID int64) ([]models.EmailAddress, error)
	FlagContactForReview(ctx context.Context, contactID int64) error
	GetEmailString(ctx context.Context, original string) (*models.EmailString, error)
	CreateEmailString(ctx context.Context, es *models.EmailString) error
}

// Match records which rule selected the contact for an address.
type Match string

const (
	MatchNameEmail Match = "name_email"
	MatchName      Match = "name"
	MatchCreated   Match = "created"
)

// Resolution is the outcome of ResolveAddress.
type Resolution struct {
	Contact models.Contact
	Match   Match
}

// Resolver resolves normalised addresses to contacts.
type Resolver struct {
	store Store
	// reviewThreshold flags contacts holding more addresses than this.
	// Zero disables flagging.
	reviewThreshold int
}

// NewResolver creates a Resolver. reviewThreshold of zero disables review
// flagging.
func NewResolver(st Store, reviewThreshold int) *Resolver {
	return &Resolver{store: st, reviewThreshold: reviewThreshold}
}

// ResolveAddress finds or creates the contact for addr, whose address row
// is addressID. Tiers, first hit wins:
//
//  1. exactly one contact with this name holding this address
//  2. exactly one contact with this name; the address is linked to it
//  3. a new contact
//
// Callers must serialise calls for the same name.
func (r *Resolver) ResolveAddress(ctx context.Context, addr Address, addressID int64) (Resolution, error) {
	pair, err := r.store.FindContacts(ctx, addr.Name, addr.Email)
	if err != nil {
		return Resolution{}, fmt.Errorf("find by name and email: %w", err)
	}
	switch len(pair) {
	case 1:
		return Resolution{Contact: pair[0], Match: MatchNameEmail}, nil
	case 0:
	default:
		slog.Info("ambiguous name and email, creating new contact",
			"name", addr.Name,
			"email", addr.Email,
			"candidates", len(pair),
		)
		return r.create(ctx, addr, addressID)
	}

	named, err := r.store.FindContacts(ctx, addr.Name, "")
	if err != nil {
		return Resolution{}, fmt.Errorf("find by name: %w", err)
	}
	switch len(named) {
	case 1:
		c := named[0]
		added, err := r.store.AddContactEmail(ctx, c.ID, addressID)
		if err != nil {
			return Resolution{}, fmt.Errorf("link address to contact %d: %w", c.ID, err)
		}
		if added {
			slog.Debug("linked new address to contact", "contact_id", c.ID, "email", addr.Email)
			if err := r.checkReview(ctx, &c); err != nil {
				return Resolution{}, err
			}
		}
		return Resolution{Contact: c, Match: MatchName}, nil
	case 0:
	default:
		slog.Info("ambiguous name, creating new contact",
			"name", addr.Name,
			"email", addr.Email,
			"candidates", len(named),
		)
	}
	return r.create(ctx, addr, addressID)
}

func (r *Resolver) create(ctx context.Context, addr Address, addressID int64) (Resolution, error) {
	c, err := r.store.CreateContact(ctx, addr.Name, addressID)
	if err != nil {
		return Resolution{}, fmt.Errorf("create contact %q: %w", addr.Name, err)
	}
	slog.Debug("created contact", "contact_id", c.ID, "name", c.Name)
	return Resolution{Contact: *c, Match: MatchCreated}, nil
}

// checkReview flags c once it holds more addresses than the threshold.
func (r *Resolver) checkReview(ctx context.Context, c *models.Contact) error {
	if r.reviewThreshold <= 0 || c.NeedsReview {
		return nil
	}
	addrs, err := r.store.ContactEmails(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("count addresses of contact %d: %w", c.ID, err)
	}
	if len(addrs) <= r.reviewThreshold {
		return nil
	}
	if err := r.store.FlagContactForReview(ctx, c.ID); err != nil {
		return fmt.Errorf("flag contact %d: %w", c.ID, err)
	}
	c.NeedsReview = true
	slog.Warn("contact flagged for review",
		"contact_id", c.ID,
		"name", c.Name,
		"addresses", len(addrs),
		"threshold", r.reviewThreshold,
	)
	return nil
}
