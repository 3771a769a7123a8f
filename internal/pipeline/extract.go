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
	"strings"

	"github.com/bcem/threadintel/internal/models"
)

const dateLayout = "2006-01-02 15:04:05-07:00"

// ExtractedContext is the thread rendered for the model.
type ExtractedContext struct {
	// Conversation holds every message with its quote-stripped body.
	Conversation string
	// MessageHeaders holds the same metadata with snippets instead of bodies.
	MessageHeaders string
}

// Assemble renders a thread's emails in chronological order.
func Assemble(thread *models.ThreadView) ExtractedContext {
	messages := make([]string, 0, len(thread.Emails))
	headers := make([]string, 0, len(thread.Emails))
	for _, e := range thread.Emails {
		var msg strings.Builder
		msg.WriteString("<START_OF_EMAIL>\n")
		writeHeaders(&msg, e)
		msg.WriteString("Email content: ")
		msg.WriteString(e.TruncatedBody())
		msg.WriteString("\n<END_OF_EMAIL>\n")
		messages = append(messages, msg.String())

		var hdr strings.Builder
		writeHeaders(&hdr, e)
		hdr.WriteString("Snippet: ")
		hdr.WriteString(e.Snippet)
		hdr.WriteString("\n")
		headers = append(headers, hdr.String())
	}
	return ExtractedContext{
		Conversation:   strings.Join(messages, "\n"),
		MessageHeaders: strings.Join(headers, "\n"),
	}
}

func writeHeaders(b *strings.Builder, e models.Email) {
	b.WriteString("From: " + e.Sender.OriginalString + "\n")
	b.WriteString("To: " + joinOriginal(e.To) + "\n")
	b.WriteString("Cc: " + joinOriginal(e.Cc) + "\n")
	b.WriteString("Date: " + e.Date.Format(dateLayout) + "\n")
	b.WriteString("Labels: " + joinLabels(e.Labels) + "\n")
	b.WriteString("Subject: " + e.Subject + "\n")
}

func joinOriginal(list []models.EmailString) string {
	out := make([]string, len(list))
	for i, es := range list {
		out[i] = es.OriginalString
	}
	return strings.Join(out, ", ")
}

func joinLabels(labels []models.Label) string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = l.Name
	}
	return strings.Join(out, " ")
}
