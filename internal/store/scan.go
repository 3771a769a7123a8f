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
	"encoding/json"
	"fmt"

	"github.com/bcem/threadintel/internal/models"
)

// rowScanner is satisfied by pgx.Row, pgx.Rows, *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const (
	contactColumns     = `id, name, knowledge, needs_review, created_at, updated_at`
	emailStringColumns = `id, original_string, name, email, email_address_id, contact_id, reviewed, reviewed_at, created_at`
	summaryColumns     = `id, thread_id, email_id, run_id, summary, action, rationale, participants, created_at`
)

func scanContact(row rowScanner) (*models.Contact, error) {
	var c models.Contact
	if err := row.Scan(&c.ID, &c.Name, &c.Knowledge, &c.NeedsReview, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func scanEmailString(row rowScanner, extra ...any) (*models.EmailString, error) {
	var es models.EmailString
	dest := append(extra,
		&es.ID, &es.OriginalString, &es.Name, &es.Email, &es.EmailAddressID,
		&es.ContactID, &es.Reviewed, &es.ReviewedAt, &es.CreatedAt,
	)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &es, nil
}

func scanSummary(row rowScanner) (*models.ThreadSummary, error) {
	var (
		s      models.ThreadSummary
		action string
		raw    []byte
	)
	if err := row.Scan(&s.ID, &s.ThreadID, &s.EmailID, &s.RunID, &s.Summary, &action, &s.Rationale, &raw, &s.Timestamp); err != nil {
		return nil, err
	}
	s.Action = models.Action(action)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &s.Participants); err != nil {
			return nil, fmt.Errorf("decode participants of summary %d: %w", s.ID, err)
		}
	}
	return &s, nil
}

func encodeParticipants(p []models.ParticipantFinding) ([]byte, error) {
	if p == nil {
		p = []models.ParticipantFinding{}
	}
	return json.Marshal(p)
}

// recipient kinds stored in email_recipients.kind
const (
	kindTo = "to"
	kindCc = "cc"
)
