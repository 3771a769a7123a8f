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

// Package models defines the records shared by the store, the identity
// engine and the thread pipeline.
package models

import (
	"time"

	"github.com/bcem/threadintel/internal/mailtext"
)

// Label is a mailbox label attached to an email (e.g. INBOX, CATEGORY_PERSONAL).
type Label struct {
	ID            int64  `json:"id"`
	RemoteLabelID string `json:"remote_label_id"`
	Name          string `json:"name"`
}

// Email is one message of a thread with its resolved header strings.
type Email struct {
	ID              int64         `json:"id"`
	RemoteMessageID string        `json:"remote_message_id"`
	ThreadID        int64         `json:"thread_id"`
	Date            time.Time     `json:"date"`
	Subject         string        `json:"subject"`
	Body            string        `json:"body"`
	Snippet         string        `json:"snippet"`
	Sender          EmailString   `json:"sender"`
	To              []EmailString `json:"to"`
	Cc              []EmailString `json:"cc"`
	Labels          []Label       `json:"labels"`
}

// TruncatedBody returns the body without the quoted text of earlier messages.
func (e Email) TruncatedBody() string {
	return mailtext.StripQuoted(e.Body)
}

// HasLabel reports whether the email carries a label with the given name.
func (e Email) HasLabel(name string) bool {
	for _, l := range e.Labels {
		if l.Name == name {
			return true
		}
	}
	return false
}

// Thread is a conversation grouped by the remote thread id.
type Thread struct {
	ID             int64     `json:"id"`
	RemoteThreadID string    `json:"remote_thread_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// ThreadView is a thread loaded together with its emails in chronological order.
// Subject, date and participants are derived from the emails and never stored.
type ThreadView struct {
	Thread
	Emails []Email
}

// Subject returns the subject of the first email, or "" for an empty thread.
func (v ThreadView) Subject() string {
	if len(v.Emails) == 0 {
		return ""
	}
	return v.Emails[0].Subject
}

// Date returns the date of the first email, or the zero time for an empty thread.
func (v ThreadView) Date() time.Time {
	if len(v.Emails) == 0 {
		return time.Time{}
	}
	return v.Emails[0].Date
}

// LastEmail returns the most recent email, or nil for an empty thread.
func (v ThreadView) LastEmail() *Email {
	if len(v.Emails) == 0 {
		return nil
	}
	return &v.Emails[len(v.Emails)-1]
}

// Participants returns the distinct email strings seen as sender, to or cc,
// in order of first appearance.
func (v ThreadView) Participants() []EmailString {
	seen := make(map[string]bool)
	var out []EmailString
	add := func(es EmailString) {
		if es.OriginalString == "" || seen[es.OriginalString] {
			return
		}
		seen[es.OriginalString] = true
		out = append(out, es)
	}
	for _, e := range v.Emails {
		add(e.Sender)
		for _, es := range e.To {
			add(es)
		}
		for _, es := range e.Cc {
			add(es)
		}
	}
	return out
}
