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
	"log/slog"
	"strings"

	"github.com/bcem/threadintel/internal/identity"
	"github.com/bcem/threadintel/internal/models"
)

// KnowledgeWriter persists contact knowledge.
type KnowledgeWriter interface {
	UpdateContactKnowledge(ctx context.Context, contactID int64, knowledge string) error
}

// ContactUpdate records one knowledge overwrite.
type ContactUpdate struct {
	ContactID int64
	Match     identity.MentionMatch
}

// ReconcileReport summarises what the update stage did.
type ReconcileReport struct {
	Updated     []ContactUpdate
	Unresolved  []models.ParticipantFinding
	NoKnowledge int
}

// Reconciler writes the model's updated knowledge back to contacts.
type Reconciler struct {
	contacts KnowledgeWriter
}

// NewReconciler creates a Reconciler.
func NewReconciler(contacts KnowledgeWriter) *Reconciler {
	return &Reconciler{contacts: contacts}
}

// Reconcile resolves each participant finding against the thread's
// participants and overwrites the matched contact's knowledge. Unresolved
// findings are skipped; a storage error aborts.
func (r *Reconciler) Reconcile(ctx context.Context, participants []identity.Participant, result models.StructuredResult) (ReconcileReport, error) {
	var report ReconcileReport
	for _, finding := range result.Participants {
		if strings.TrimSpace(finding.UpdatedKnowledge) == "" {
			report.NoKnowledge++
			continue
		}

		contact, match, ok := identity.ResolveMention(finding, participants)
		if !ok {
			slog.Warn("unable to match participant to a contact",
				"name", finding.Name,
				"email", finding.Email,
				"id", string(finding.ID),
			)
			report.Unresolved = append(report.Unresolved, finding)
			continue
		}

		if err := r.contacts.UpdateContactKnowledge(ctx, contact.ID, finding.UpdatedKnowledge); err != nil {
			return report, fmt.Errorf("update knowledge of contact %d: %w", contact.ID, err)
		}
		slog.Debug("contact knowledge updated", "contact_id", contact.ID, "match", match)
		report.Updated = append(report.Updated, ContactUpdate{ContactID: contact.ID, Match: match})
	}
	return report, nil
}
