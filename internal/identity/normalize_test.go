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

import (
	"testing"

	"pgregory.net/rapid"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw       string
		wantName  string
		wantEmail string
	}{
		{`"Doe, John" <John.Doe@Example.com>`, "Doe, John", "john.doe@example.com"},
		{"john.doe@example.com", "John Doe", "john.doe@example.com"},
		{"Jos\u00e9 M\u00fcller <jm@example.de>", "Jose Muller", "jm@example.de"},
		{"<jane_smith@example.com>", "Jane Smith", "jane_smith@example.com"},
		{"O'Brien-Smith <o@example.com>", "O Brien Smith", "o@example.com"},
		{"  MARY   ann <Mary@X.com>  ", "Mary Ann", "mary@x.com"},
		{`"" <a@b.com>`, "A", "a@b.com"},
		{"support@acme.io <support@acme.io>", "Support", "support@acme.io"},
		{"\u5f20\u4f1f <zw@example.cn>", "Zw", "zw@example.cn"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := Normalize(tt.raw)
			if got.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", got.Name, tt.wantName)
			}
			if got.Email != tt.wantEmail {
				t.Errorf("Email = %q, want %q", got.Email, tt.wantEmail)
			}
		})
	}
}

func TestNormalize_NameIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		raw := rapid.String().Draw(t, "raw")
		name := Normalize(raw).Name
		if again := Normalize(name).Name; again != name {
			t.Fatalf("Normalize(%q).Name = %q, want %q", name, again, name)
		}
	})
}

func TestNormalize_Deterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		raw := rapid.String().Draw(t, "raw")
		if a, b := Normalize(raw), Normalize(raw); a != b {
			t.Fatalf("Normalize(%q) gave %+v then %+v", raw, a, b)
		}
	})
}

func TestIsGenericAddress(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"noreply@github.com", true},
		{"no-reply+abc@accounts.example.com", true},
		{"NoReply-Billing@example.com", true},
		{"mailer-daemon@googlemail.com", true},
		{"notifications@example.com", true},
		{"john@example.com", false},
		{"noreen@example.com", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsGenericAddress(tt.email); got != tt.want {
			t.Errorf("IsGenericAddress(%q) = %v, want %v", tt.email, got, tt.want)
		}
	}
}
