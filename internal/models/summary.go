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

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Action is the recommendation attached to a thread summary.
type Action string

const (
	ActionIgnore        Action = "IGNORE"
	ActionNeedToKnow    Action = "NEED_TO_KNOW"
	ActionNeedToRespond Action = "NEED_TO_RESPOND"
)

// ParseAction maps a model-produced action onto the enum. Case and
// space/underscore differences are tolerated ("Need to respond").
func ParseAction(s string) (Action, bool) {
	norm := strings.ToUpper(strings.Join(strings.Fields(s), "_"))
	switch Action(norm) {
	case ActionIgnore, ActionNeedToKnow, ActionNeedToRespond:
		return Action(norm), true
	}
	return "", false
}

// MentionID is the "id" of a participant as written by the model. It may be
// a JSON number, a string or null.
type MentionID string

// UnmarshalJSON accepts numbers, strings and null.
func (m *MentionID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*m = MentionID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*m = MentionID(n.String())
	return nil
}

// MarshalJSON writes integers as numbers, empty ids as null and anything
// else as a string.
func (m MentionID) MarshalJSON() ([]byte, error) {
	if m == "" {
		return []byte("null"), nil
	}
	if n, ok := m.Int(); ok {
		return []byte(strconv.FormatInt(n, 10)), nil
	}
	return json.Marshal(string(m))
}

// Int returns the id as an integer when it is one.
func (m MentionID) Int() (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(string(m)), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParticipantFinding is what the model reports about one participant.
type ParticipantFinding struct {
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	ID               MentionID `json:"id"`
	Role             string    `json:"role in the thread"`
	UpdatedKnowledge string    `json:"updated_knowledge"`
}

// UnmarshalJSON also accepts the older "role in thread" key.
func (p *ParticipantFinding) UnmarshalJSON(data []byte) error {
	type plain ParticipantFinding
	var aux struct {
		plain
		LegacyRole string `json:"role in thread"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*p = ParticipantFinding(aux.plain)
	if p.Role == "" {
		p.Role = aux.LegacyRole
	}
	return nil
}

// StructuredResult is the validated shape of the model reply.
type StructuredResult struct {
	Action       Action               `json:"action"`
	Summary      string               `json:"summary"`
	Rationale    string               `json:"rationale"`
	Participants []ParticipantFinding `json:"participants"`
}

// ThreadSummary is the persisted output of one pipeline run.
type ThreadSummary struct {
	ID           int64                `json:"id"`
	ThreadID     int64                `json:"thread_id"`
	EmailID      int64                `json:"email_id"` // latest email when the run started
	RunID        string               `json:"run_id"`
	Summary      string               `json:"summary"`
	Action       Action               `json:"action"`
	Rationale    string               `json:"rationale"`
	Participants []ParticipantFinding `json:"participants"`
	Timestamp    time.Time            `json:"timestamp"`
}
