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
	"fmt"
	"strings"
)

// Assistant describes who the summaries are written for.
type Assistant struct {
	Principal     string
	Organisations []string
}

func (a Assistant) describe() string {
	principal := a.Principal
	if principal == "" {
		principal = "the principal"
	}
	if len(a.Organisations) == 0 {
		return fmt.Sprintf("You are acting as a personal assistant for %s.", principal)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You are acting as a personal assistant for %s, who manages the following organisations:\n", principal)
	for _, org := range a.Organisations {
		fmt.Fprintf(&b, "- %s\n", org)
	}
	return strings.TrimRight(b.String(), "\n")
}

const summaryPreamble = `This is not an interactive session. The objective is to
- assess what to do based on the messages received
- maintain general knowledge about the participants that is not specific to these messages, such as the organisation they work for or their position`

const summaryTasks = `Your role is to:
- analyse the discussion
  - provide a summary of the discussion
  - recommend an action: Ignore, Need to Know or Need to Respond
  - give the reason for that recommendation
  - identify the participants in the discussion and their role
- assess whether we have gained general knowledge about these participants, that is knowledge not specific to the current thread`

const summarySchema = `Please return your answer strictly in JSON format using the following schema:
{
  "summary": "a short summary of the conversation",
  "rationale": "a short explanation of why you chose this action",
  "action": "IGNORE | NEED_TO_KNOW | NEED_TO_RESPOND",
  "participants": [
    {
      "name": "name",
      "email": "email",
      "id": "Contact internal ID (should be an int)",
      "role in the thread": "Role of that person in the thread",
      "updated_knowledge": "Updated generic knowledge of that person"
    }
  ]
}`

// SummaryPrompt renders the classification prompt.
func SummaryPrompt(a Assistant, knowledge, conversation string) string {
	var b strings.Builder
	b.WriteString(summaryPreamble)
	b.WriteString("\n\n")
	b.WriteString(a.describe())
	b.WriteString("\n\n")
	b.WriteString(summaryTasks)
	b.WriteString("\n\nHere is what we know so far about the participants:\n")
	b.WriteString(knowledge)
	b.WriteString("\n\nHere is the conversation:\n")
	b.WriteString(conversation)
	b.WriteString("\n\n")
	b.WriteString(summarySchema)
	b.WriteString("\n")
	return b.String()
}
