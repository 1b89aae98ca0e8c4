// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
// Package nlp holds the small text utilities of the pipeline: sentence and
// word splitting, English stop words and YAKE-style keyword extraction.
package nlp

import (
	"strings"
	"unicode"
)

var stopWords = map[string]bool{
	"a": true, "about": true, "above": true, "after": true, "again": true, "against": true,
	"all": true, "am": true, "an": true, "and": true, "any": true, "are": true, "as": true,
	"at": true, "be": true, "because": true, "been": true, "before": true, "being": true,
	"below": true, "between": true, "both": true, "but": true, "by": true, "can": true,
	"could": true, "did": true, "do": true, "does": true, "doing": true, "down": true,
	"during": true, "each": true, "few": true, "for": true, "from": true, "further": true,
	"had": true, "has": true, "have": true, "having": true, "he": true, "her": true,
	"here": true, "hers": true, "herself": true, "him": true, "himself": true, "his": true,
	"how": true, "i": true, "if": true, "in": true, "into": true, "is": true, "it": true,
	"its": true, "itself": true, "just": true, "me": true, "more": true, "most": true,
	"my": true, "myself": true, "no": true, "nor": true, "not": true, "now": true, "of": true,
	"off": true, "on": true, "once": true, "only": true, "or": true, "other": true,
	"our": true, "ours": true, "ourselves": true, "out": true, "over": true, "own": true,
	"same": true, "she": true, "should": true, "so": true, "some": true, "such": true,
	"than": true, "that": true, "the": true, "their": true, "theirs": true, "them": true,
	"themselves": true, "then": true, "there": true, "these": true, "they": true,
	"this": true, "those": true, "through": true, "to": true, "too": true, "under": true,
	"until": true, "up": true, "very": true, "was": true, "we": true, "were": true,
	"what": true, "when": true, "where": true, "which": true, "while": true, "who": true,
	"whom": true, "why": true, "will": true, "with": true, "would": true, "you": true,
	"your": true, "yours": true, "yourself": true, "yourselves": true, "also": true,
	"s": true, "t": true, "don": true, "ll": true, "re": true, "ve": true,
}

// IsStopWord reports whether w is an English stop word.
func IsStopWord(w string) bool {
	return stopWords[strings.ToLower(w)]
}

// QueryKeywords returns the lower-cased alphabetic words of a question that
// are not stop words, in order and without repeats.
func QueryKeywords(query string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, w := range strings.FieldsFunc(query, func(r rune) bool { return !unicode.IsLetter(r) && r != '\'' }) {
		lower := strings.ToLower(strings.Trim(w, "'"))
		if lower == "" || !isAlpha(lower) || IsStopWord(lower) || seen[lower] {
			continue
		}
		seen[lower] = true
		out = append(out, lower)
	}
	return out
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// SplitSentences breaks text after '.', '!' or '?' followed by whitespace or
// the end of the text. Whitespace inside a sentence is collapsed.
func SplitSentences(text string) []string {
	out := make([]string, 0)
	runes := []rune(text)
	start := 0
	flush := func(end int) {
		if s := strings.Join(strings.Fields(string(runes[start:end])), " "); s != "" {
			out = append(out, s)
		}
		start = end
	}
	for i, r := range runes {
		if (r == '.' || r == '!' || r == '?') && (i+1 == len(runes) || unicode.IsSpace(runes[i+1])) {
			flush(i + 1)
		}
	}
	flush(len(runes))
	return out
}

// Words splits a sentence into word tokens. Punctuation other than inner
// apostrophes and hyphens ends a token; a token is never empty.
func Words(sentence string) []string {
	out := make([]string, 0)
	for _, f := range strings.FieldsFunc(sentence, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' && r != '-'
	}) {
		if w := strings.Trim(f, "'-"); w != "" {
			out = append(out, w)
		}
	}
	return out
}
