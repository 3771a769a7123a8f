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

// Package ingest loads already-fetched mailbox messages into the store.
package ingest

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
)

// LabelRef is a mailbox label as exported by the mail provider.
type LabelRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Message is one exported email. From, To and Cc hold raw header values
// such as "Jane Doe <jane@example.com>".
type Message struct {
	ID       string            `json:"id"`
	ThreadID string            `json:"thread_id"`
	Date     time.Time         `json:"date"`
	From     string            `json:"from"`
	To       []string          `json:"to"`
	Cc       []string          `json:"cc"`
	Subject  string            `json:"subject"`
	Body     string            `json:"body"`
	Snippet  string            `json:"snippet"`
	Labels   []LabelRef        `json:"labels"`
	Headers  map[string]string `json:"headers,omitempty"`
}

// Parse decodes messages from r. The input is either a JSON array or a
// stream of JSON objects (one per line).
func Parse(r io.Reader) ([]Message, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read messages: %w", err)
	}

	dec := json.NewDecoder(br)
	var msgs []Message
	if first == '[' {
		if err := dec.Decode(&msgs); err != nil {
			return nil, fmt.Errorf("decode message array: %w", err)
		}
	} else {
		for {
			var m Message
			err := dec.Decode(&m)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("decode message %d: %w", len(msgs)+1, err)
			}
			msgs = append(msgs, m)
		}
	}

	for i, m := range msgs {
		if m.ID == "" || m.ThreadID == "" {
			return nil, fmt.Errorf("message %d: id and thread_id are required", i+1)
		}
	}
	return msgs, nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}
