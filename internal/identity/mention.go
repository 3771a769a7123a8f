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
	"strings"

	"github.com/bcem/threadintel/internal/models"
)

// MentionMatch records which rule resolved a model mention.
type MentionMatch string

const (
	MentionByID    MentionMatch = "id"
	MentionByName  MentionMatch = "name"
	MentionByEmail MentionMatch = "email"
)

// Participant pairs an address string seen in a thread with its contact.
type Participant struct {
	EmailString models.EmailString
	Contact     models.Contact
}

// ResolveMention maps a participant entry from the model reply onto one of
// the thread's participants. It never creates contacts and never guesses:
// a mention is resolved by id, else by a name held by exactly one
// participating contact, else by an address carried by exactly one
// participating string. Anything else is reported as unresolved.
func ResolveMention(m models.ParticipantFinding, participants []Participant) (models.Contact, MentionMatch, bool) {
	if id, ok := m.ID.Int(); ok {
		for _, p := range participants {
			if p.Contact.ID == id {
				return p.Contact, MentionByID, true
			}
		}
	}

	if m.Name != "" {
		named := make(map[int64]models.Contact)
		for _, p := range participants {
			if p.Contact.Name == m.Name {
				named[p.Contact.ID] = p.Contact
			}
		}
		if len(named) == 1 {
			for _, c := range named {
				return c, MentionByName, true
			}
		}
	}

	email := strings.ToLower(strings.TrimSpace(m.Email))
	if email != "" && email != "n/a" {
		var (
			found models.Contact
			n     int
		)
		for _, p := range participants {
			if strings.ToLower(p.EmailString.Email) == email {
				found = p.Contact
				n++
			}
		}
		if n == 1 {
			return found, MentionByEmail, true
		}
	}

	return models.Contact{}, "", false
}
