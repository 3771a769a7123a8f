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

package mailtext

import "strings"

var calendarHeaders = map[string]bool{
	"x-microsoft-cdo-busystatus":         true,
	"x-microsoft-cdo-intendedbusystatus": true,
	"x-microsoft-cdo-all-day-event":      true,
	"x-microsoft-cdo-instance-type":      true,
	"x-microsoft-cdo-importance":         true,
	"x-microsoft-cdo-appt-sequence":      true,
	"x-microsoft-cdo-appt-state":         true,
}

var calendarSubjectPrefixes = []string{
	"accepted", "declined", "tentative", "canceled", "cancelled", "updated",
	"rescheduled", "re-scheduled", "postponed", "moved", "changed",
}

var calendarBodyIndicators = []string{
	"calendar invitation", "calendar event", "meeting invitation",
	"meeting request", "invitation to", "invited you to",
	"invited to a meeting", "invited to the meeting", "invited to meeting",
	"has accepted this invitation", "has declined this invitation",
	"has tentatively accepted this invitation",
	"has responded to this invitation",
	"accepted:", "declined:", "tentative:", "when:", "where:", "organizer:",
	"attendees:", "calendar.ics", "calendar.ical", "calendar.vcs", "calendar.vcal",
}

// IsCalendarInvite reports whether a message looks like a calendar invite or
// an attendance response. headers may be nil.
func IsCalendarInvite(subject, body string, headers map[string]string) bool {
	for name, value := range headers {
		name = strings.ToLower(name)
		value = strings.ToLower(value)
		if calendarHeaders[name] {
			return true
		}
		if name == "content-class" && value == "urn:content-classes:calendarmessage" {
			return true
		}
		if name == "x-microsoft-cdo-message-class" && strings.Contains(value, "calendar") {
			return true
		}
	}

	subject = strings.ToLower(strings.TrimSpace(subject))
	for _, p := range calendarSubjectPrefixes {
		if strings.HasPrefix(subject, p) {
			return true
		}
	}

	body = strings.ToLower(body)
	for _, ind := range calendarBodyIndicators {
		if strings.Contains(body, ind) {
			return true
		}
	}
	return false
}
