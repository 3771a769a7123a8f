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
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/bcem/threadintel/internal/llm"
	"github.com/bcem/threadintel/internal/models"
)

// ErrModel marks failures of the model call itself.
var ErrModel = errors.New("model call failed")

// ParsedResult is either Valid or Fallback.
type ParsedResult interface {
	// Structured returns the result to persist and reconcile.
	Structured() models.StructuredResult
	parsed()
}

// Valid is a reply that decoded into the expected schema.
type Valid struct {
	Result models.StructuredResult
}

// Fallback is a reply that could not be decoded. Raw is kept verbatim and
// stored as the summary.
type Fallback struct {
	Raw    string
	Reason string
}

func (v Valid) Structured() models.StructuredResult { return v.Result }

func (Valid) parsed() {}

func (f Fallback) Structured() models.StructuredResult {
	return models.StructuredResult{
		Action:       models.ActionIgnore,
		Summary:      f.Raw,
		Participants: []models.ParticipantFinding{},
	}
}

func (Fallback) parsed() {}

// ExtractJSON returns the text between the first '{' and the last '}'.
func ExtractJSON(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return "", false
	}
	return text[start : end+1], true
}

var trailingComma = regexp.MustCompile(`,(\s*[}\]])`)

type replyJSON struct {
	Action       *string           `json:"action"`
	Summary      *string           `json:"summary"`
	Rationale    json.RawMessage   `json:"rationale"`
	Participants []json.RawMessage `json:"participants"`
}

// ParseReply decodes a model reply. It never fails: anything that does not
// fit the schema becomes a Fallback.
func ParseReply(raw string) ParsedResult {
	body, ok := ExtractJSON(raw)
	if !ok {
		return Fallback{Raw: raw, Reason: "no JSON object in reply"}
	}

	var reply replyJSON
	if err := json.Unmarshal([]byte(body), &reply); err != nil {
		// models often leave the trailing commas shown in the schema
		if err2 := json.Unmarshal([]byte(trailingComma.ReplaceAllString(body, "$1")), &reply); err2 != nil {
			return Fallback{Raw: raw, Reason: "invalid JSON: " + err.Error()}
		}
	}
	if reply.Action == nil || reply.Summary == nil {
		return Fallback{Raw: raw, Reason: "missing action or summary"}
	}
	action, ok := models.ParseAction(*reply.Action)
	if !ok {
		return Fallback{Raw: raw, Reason: fmt.Sprintf("unknown action %q", *reply.Action)}
	}

	result := models.StructuredResult{
		Action:       action,
		Summary:      *reply.Summary,
		Rationale:    textValue(reply.Rationale),
		Participants: []models.ParticipantFinding{},
	}
	for i, rawEntry := range reply.Participants {
		var p models.ParticipantFinding
		if err := json.Unmarshal(rawEntry, &p); err != nil {
			slog.Warn("skipping malformed participant entry", "index", i, "error", err)
			continue
		}
		result.Participants = append(result.Participants, p)
	}
	return Valid{Result: result}
}

// textValue reads a JSON string, or renders any other value as text.
func textValue(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// SummaryWriter persists thread summaries.
type SummaryWriter interface {
	CreateThreadSummary(ctx context.Context, s *models.ThreadSummary) error
}

// ClassificationResult is the output of the summarize stage.
type ClassificationResult struct {
	Parsed  ParsedResult
	Result  models.StructuredResult
	Summary models.ThreadSummary
}

// Classifier asks the model for a summary, an action and participant
// findings, and stores the outcome as a ThreadSummary.
type Classifier struct {
	gen       llm.Generator
	summaries SummaryWriter
	assistant Assistant
}

// NewClassifier creates a Classifier.
func NewClassifier(gen llm.Generator, summaries SummaryWriter, assistant Assistant) *Classifier {
	return &Classifier{gen: gen, summaries: summaries, assistant: assistant}
}

// Classify calls the model once. A model error is returned and nothing is
// stored; an unreadable reply is stored as a Fallback summary.
func (c *Classifier) Classify(ctx context.Context, runID string, thread *models.ThreadView, ec ExtractedContext, gk GatheredKnowledge) (*ClassificationResult, error) {
	last := thread.LastEmail()
	if last == nil {
		return nil, ErrEmptyThread
	}

	prompt := SummaryPrompt(c.assistant, gk.Text, ec.Conversation)
	reply, err := c.gen.Generate(llm.WithPromptName(ctx, "thread_summary"), prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModel, err)
	}

	parsed := ParseReply(reply)
	if fb, ok := parsed.(Fallback); ok {
		slog.Warn("model reply not usable, storing raw reply",
			"run_id", runID,
			"thread_id", thread.ID,
			"reason", fb.Reason,
		)
	}
	result := parsed.Structured()

	summary := models.ThreadSummary{
		ThreadID:     thread.ID,
		EmailID:      last.ID,
		RunID:        runID,
		Summary:      result.Summary,
		Action:       result.Action,
		Rationale:    result.Rationale,
		Participants: result.Participants,
	}
	if err := c.summaries.CreateThreadSummary(ctx, &summary); err != nil {
		return nil, fmt.Errorf("store thread summary: %w", err)
	}

	return &ClassificationResult{Parsed: parsed, Result: result, Summary: summary}, nil
}
