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

import "strings"

var genericLocalParts = map[string]bool{
	"noreply":               true,
	"no-reply":              true,
	"no_reply":              true,
	"donotreply":            true,
	"do-not-reply":          true,
	"do_not_reply":          true,
	"mailer-daemon":         true,
	"postmaster":            true,
	"bounce":                true,
	"bounces":               true,
	"notification":          true,
	"notifications":         true,
	"calendar-notification": true,
}

var genericPrefixes = []string{"noreply", "no-reply", "no_reply", "donotreply", "do-not-reply", "bounce"}

// IsGenericAddress reports whether email looks like a shared automated
// mailbox rather than a person.
func IsGenericAddress(email string) bool {
	local := strings.ToLower(localPart(strings.TrimSpace(email)))
	if i := strings.Index(local, "+"); i >= 0 {
		local = local[:i]
	}
	if genericLocalParts[local] {
		return true
	}
	for _, p := range genericPrefixes {
		if strings.HasPrefix(local, p) {
			return true
		}
	}
	return false
}
