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
	"fmt"
	"strconv"
	"strings"

	"github.com/bcem/threadintel/internal/identity"
	"github.com/bcem/threadintel/internal/models"
)

// ContactGetter loads contacts by id.
type ContactGetter interface {
	GetContact(ctx context.Context, id int64) (*models.Contact, error)
}

// ParticipantSet groups the address strings of a thread by contact, in
// order of first appearance. It lives for one run and is never stored.
type ParticipantSet struct {
	order        []int64
	contacts     map[int64]models.Contact
	appearances  map[int64][]string
	participants []identity.Participant
}

// NewParticipantSet creates an empty set.
func NewParticipantSet() *ParticipantSet {
	return &ParticipantSet{
		contacts:    make(map[int64]models.Contact),
		appearances: make(map[int64][]string),
	}
}

// Add records that es, belonging to c, appears in the thread.
func (ps *ParticipantSet) Add(es models.EmailString, c models.Contact) {
	if _, ok := ps.contacts[c.ID]; !ok {
		ps.order = append(ps.order, c.ID)
		ps.contacts[c.ID] = c
	}
	ps.appearances[c.ID] = append(ps.appearances[c.ID], es.OriginalString)
	ps.participants = append(ps.participants, identity.Participant{EmailString: es, Contact: c})
}

// Participants returns every (string, contact) pair in insertion order.
func (ps *ParticipantSet) Participants() []identity.Participant {
	return ps.participants
}

// Contacts returns the distinct contacts in order of first appearance.
func (ps *ParticipantSet) Contacts() []models.Contact {
	out := make([]models.Contact, len(ps.order))
	for i, id := range ps.order {
		out[i] = ps.contacts[id]
	}
	return out
}

// String renders one knowledge block per contact.
func (ps *ParticipantSet) String() string {
	var b strings.Builder
	for _, id := range ps.order {
		c := ps.contacts[id]
		knowledge := c.Knowledge
		if strings.TrimSpace(knowledge) == "" {
			knowledge = "none yet"
		}
		b.WriteString("<START_OF_KNOWLEDGE>\n")
		b.WriteString("Contact Internal ID: " + strconv.FormatInt(c.ID, 10) + "\n")
		b.WriteString("Name: " + c.Name + "\n")
		b.WriteString("Appears as: " + strings.Join(ps.appearances[id], "; ") + "\n")
		b.WriteString("Existing knowledge: " + knowledge + "\n")
		b.WriteString("<END_OF_KNOWLEDGE>\n")
	}
	return b.String()
}

// GatheredKnowledge is the participant context handed to the classifier.
type GatheredKnowledge struct {
	Text         string
	Participants *ParticipantSet
}

// Gather loads the contact behind every participant of thread.
func Gather(ctx context.Context, contacts ContactGetter, thread *models.ThreadView) (GatheredKnowledge, error) {
	ps := NewParticipantSet()
	loaded := make(map[int64]models.Contact)
	for _, es := range thread.Participants() {
		c, ok := loaded[es.ContactID]
		if !ok {
			got, err := contacts.GetContact(ctx, es.ContactID)
			if err != nil {
				return GatheredKnowledge{}, fmt.Errorf("contact %d for %q: %w", es.ContactID, es.OriginalString, err)
			}
			c = *got
			loaded[c.ID] = c
		}
		ps.Add(es, c)
	}
	return GatheredKnowledge{Text: ps.String(), Participants: ps}, nil
}
