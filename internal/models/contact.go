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

package models

import "time"

// EmailAddress is a unique, lower-cased mailbox address.
type EmailAddress struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	IsActive  bool   `json:"is_active"`
	IsGeneric bool   `json:"is_generic"` // no-reply and similar shared mailboxes
}

// Contact is a person identity. The addresses it owns are association
// records kept by the store, see store.Store.ContactEmails.
type Contact struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Knowledge   string    `json:"knowledge"`
	NeedsReview bool      `json:"needs_review"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EmailString is one literal From/To/Cc header value as it appeared on a
// message. It is resolved to a contact once, when first recorded.
type EmailString struct {
	ID             int64      `json:"id"`
	OriginalString string     `json:"original_string"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	EmailAddressID int64      `json:"email_address_id"`
	ContactID      int64      `json:"contact_id"`
	Reviewed       bool       `json:"reviewed"`
	ReviewedAt     *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
