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

// Package identity maps raw address header values and model mentions onto
// Contacts. Resolution is deliberately conservative: a name or a name plus
// an address may select an existing contact, an address alone never does,
// and any ambiguity produces a new contact instead of a merge.
package identity

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Address is a normalised header value.
type Address struct {
	Name  string
	Email string
}

var separators = strings.NewReplacer(
	"-", " ",
	".", " ",
	"_", " ",
	"'", " ",
	"\u2019", " ",
	"\"", "",
	"@", " ",
	"<", "",
	">", "",
)

// Normalize splits a raw header value such as `"Doe, John" <jd@x.com>` into
// a canonical display name and a lower-cased address. It is pure and
// idempotent on names: Normalize(Normalize(s).Name).Name == Normalize(s).Name.
func Normalize(raw string) Address {
	var name, email string
	if i := strings.Index(raw, "<"); i >= 0 {
		name = strings.TrimSpace(raw[:i])
		email = raw[i+1:]
		if j := strings.Index(email, ">"); j >= 0 {
			email = email[:j]
		}
	} else {
		email = raw
		name = raw
	}
	email = strings.TrimSpace(email)

	if i := strings.Index(name, "@"); i >= 0 {
		name = name[:i]
	}
	name = cleanName(name)
	if name == "" {
		name = cleanName(localPart(email))
	}
	return Address{Name: name, Email: strings.ToLower(email)}
}

func localPart(email string) string {
	if i := strings.Index(email, "@"); i >= 0 {
		return email[:i]
	}
	return email
}

// cleanName turns separators into spaces, folds to ASCII, collapses
// whitespace and title-cases every word.
func cleanName(s string) string {
	s = separators.Replace(s)
	s = foldASCII(s)
	// folding can surface new separators, e.g. fullwidth punctuation
	s = separators.Replace(s)
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	return cases.Title(language.Und).String(strings.ToLower(s))
}

// foldASCII decomposes s and drops everything outside ASCII, so "José"
// becomes "Jose" and characters without an ASCII base disappear.
func foldASCII(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool {
		return r > unicode.MaxASCII || unicode.IsControl(r)
	})))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
