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

// Package mailtext holds the small stateless text filters applied to email
// bodies: quoted-reply stripping, whitespace normalisation and calendar
// invite detection.
package mailtext

import (
	"regexp"
	"strings"
)

// quotePatterns mark the start of quoted text from earlier messages.
var quotePatterns = []*regexp.Regexp{
	regexp.MustCompile(`On.*wrote:`),                                    // Gmail
	regexp.MustCompile(`From:.*\nSent:.*\nTo:.*\n(?:Cc:.*\n)?Subject:`), // Outlook header block
	regexp.MustCompile(`-----Original Message-----`),                    // Outlook
	regexp.MustCompile(`(?m)^>.*$`),                                     // quote marker
}

// StripQuoted returns the body up to the earliest quote marker, trimmed.
func StripQuoted(body string) string {
	cut := len(body)
	for _, re := range quotePatterns {
		if loc := re.FindStringIndex(body); loc != nil && loc[0] < cut {
			cut = loc[0]
		}
	}
	return strings.TrimSpace(body[:cut])
}

var (
	spaceReplacer = strings.NewReplacer(
		"\u00a0", " ", "\u1680", " ", "\u2000", " ", "\u2001", " ",
		"\u2002", " ", "\u2003", " ", "\u2004", " ", "\u2005", " ",
		"\u2006", " ", "\u2007", " ", "\u2008", " ", "\u2009", " ",
		"\u200a", " ", "\u202f", " ", "\u205f", " ", "\u3000", " ",
		"&nbsp;", " ",
		"\u2028", "\n", "\u2029", "\n\n",
		// zero-width and bidi control characters
		"\u200b", "", "\u200c", "", "\u200d", "", "\ufeff", "", "\u180e", "",
		"\u2060", "", "\u2061", "", "\u2062", "", "\u2063", "", "\u2064", "",
		"\u206a", "", "\u206b", "", "\u206c", "", "\u206d", "", "\u206e", "",
		"\u206f", "", "\u200e", "", "\u200f", "", "\u202a", "", "\u202b", "",
		"\u202c", "", "\u202d", "", "\u202e", "", "\u034f", "",
	)
	blankLines = regexp.MustCompile(`\n\s*\n`)
)

// NormalizeWhitespace replaces special Unicode spaces with plain ones, drops
// invisible characters and collapses runs of blank lines into one.
func NormalizeWhitespace(text string) string {
	text = spaceReplacer.Replace(text)
	return blankLines.ReplaceAllString(text, "\n\n")
}
