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
package nlp

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// KeywordOptions tunes ExtractKeywords.
type KeywordOptions struct {
	MaxNGram int     // longest candidate phrase, in words
	Top      int     // number of keywords returned
	DedupLim float64 // candidates more similar than this to a kept keyword are dropped
}

// DefaultKeywordOptions extracts up to 20 phrases of at most three words.
var DefaultKeywordOptions = KeywordOptions{MaxNGram: 3, Top: 20, DedupLim: 0.3}

// ScoredKeyword is a key phrase and its score. Lower scores are more relevant.
type ScoredKeyword struct {
	Keyword string
	Score   float64
}

type termStats struct {
	tf        float64
	tfUpper   float64
	tfAcronym float64
	sentences map[int]bool
	positions []int
	left      map[string]bool
	right     map[string]bool
}

type candidate struct {
	terms []string
	tf    float64
	order int
}

// ExtractKeywords ranks the key phrases of text with the statistical
// features of YAKE: casing, sentence position, frequency, context diversity
// and sentence spread of each word, combined per candidate phrase.
func ExtractKeywords(text string, opts KeywordOptions) []ScoredKeyword {
	if opts.MaxNGram < 1 {
		opts.MaxNGram = 1
	}
	sentences := SplitSentences(text)
	terms := make(map[string]*termStats)
	candidates := make(map[string]*candidate)

	for si, sentence := range sentences {
		first := true
		for _, chunk := range strings.FieldsFunc(sentence, isPhraseBreak) {
			words := Words(chunk)
			keys := make([]string, len(words))
			for wi, w := range words {
				key := strings.ToLower(w)
				keys[wi] = key
				st := terms[key]
				if st == nil {
					st = &termStats{sentences: make(map[int]bool), left: make(map[string]bool), right: make(map[string]bool)}
					terms[key] = st
				}
				st.tf++
				st.sentences[si] = true
				st.positions = append(st.positions, si)
				switch {
				case isAcronym(w):
					st.tfAcronym++
				case !first && startsUpper(w):
					st.tfUpper++
				}
				first = false
				if wi > 0 {
					st.left[keys[wi-1]] = true
					terms[keys[wi-1]].right[key] = true
				}
			}
			for i := range keys {
				for n := 1; n <= opts.MaxNGram && i+n <= len(keys); n++ {
					gram := keys[i : i+n]
					if !validCandidate(gram) {
						continue
					}
					phrase := strings.Join(gram, " ")
					c := candidates[phrase]
					if c == nil {
						c = &candidate{terms: append([]string(nil), gram...), order: len(candidates)}
						candidates[phrase] = c
					}
					c.tf++
				}
			}
		}
	}
	if len(candidates) == 0 {
		return make([]ScoredKeyword, 0)
	}

	weights := termWeights(terms, len(sentences))
	type ranked struct {
		ScoredKeyword
		order int
	}
	all := make([]ranked, 0, len(candidates))
	for phrase, c := range candidates {
		prod, sum := 1.0, 0.0
		for _, t := range c.terms {
			if IsStopWord(t) {
				continue
			}
			prod *= weights[t]
			sum += weights[t]
		}
		all = append(all, ranked{ScoredKeyword{Keyword: phrase, Score: prod / (c.tf * (1 + sum))}, c.order})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Score != all[j].Score {
			return all[i].Score < all[j].Score
		}
		return all[i].order < all[j].order
	})

	out := make([]ScoredKeyword, 0, opts.Top)
	for _, r := range all {
		if len(out) == opts.Top {
			break
		}
		duplicate := false
		for _, kept := range out {
			if Similarity(kept.Keyword, r.Keyword) > opts.DedupLim {
				duplicate = true
				break
			}
		}
		if !duplicate {
			out = append(out, r.ScoredKeyword)
		}
	}
	return out
}

func termWeights(terms map[string]*termStats, sentenceCount int) map[string]float64 {
	var tfs []float64
	maxTF := 0.0
	for key, st := range terms {
		if IsStopWord(key) {
			continue
		}
		tfs = append(tfs, st.tf)
		maxTF = math.Max(maxTF, st.tf)
	}
	mean, std := meanStd(tfs)

	out := make(map[string]float64, len(terms))
	for key, st := range terms {
		if IsStopWord(key) {
			continue
		}
		tCase := math.Max(st.tfUpper, st.tfAcronym) / (1 + math.Log(st.tf))
		tPos := math.Log(math.Log(3 + median(st.positions)))
		tfNorm := st.tf / (mean + std)
		tRel := 1 + (float64(len(st.left))/st.tf+float64(len(st.right))/st.tf)*(st.tf/maxTF)
		tSent := float64(len(st.sentences)) / float64(sentenceCount)
		out[key] = (tRel * tPos) / (tCase + tfNorm/tRel + tSent/tRel)
	}
	return out
}

func validCandidate(gram []string) bool {
	if IsStopWord(gram[0]) || IsStopWord(gram[len(gram)-1]) {
		return false
	}
	for _, t := range gram {
		if !strings.ContainsFunc(t, unicode.IsLetter) || utf8.RuneCountInString(t) < 2 {
			return false
		}
	}
	return true
}

func isPhraseBreak(r rune) bool {
	switch r {
	case ',', ';', ':', '(', ')', '"', '[', ']', '{', '}', '/', '|':
		return true
	}
	return false
}

func isAcronym(w string) bool {
	letters := 0
	for _, r := range w {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters > 1
}

func startsUpper(w string) bool {
	r, _ := utf8.DecodeRuneInString(w)
	return unicode.IsUpper(r)
}

func meanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(variance / float64(len(values)))
}

func median(values []int) float64 {
	sorted := append([]int(nil), values...)
	sort.Ints(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return float64(sorted[n/2])
	}
	return float64(sorted[n/2-1]+sorted[n/2]) / 2
}

// Similarity is one minus the Levenshtein distance of a and b divided by the
// longer length, so identical strings score 1.
func Similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := max(len(ra), len(rb))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
