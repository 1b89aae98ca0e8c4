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
package services

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/model"
)

// Rating and recommendation constants.
const (
	SimilarityThreshold       = 0.8
	LikedRating               = 4
	PersonalMatchScore        = 0.8
	GenericMatchScore         = 0.7
	GenericUserID             = "generic"
	MaxGenericRecommendations = 3
)

// RatingRow is one line of the Ratings sheet. Ratings is keyed by user id; a
// missing key and 0 both mean "not rated".
type RatingRow struct {
	Text    string
	Ratings map[string]int
}

var (
	whitespaceRun   = regexp.MustCompile(`\s+`)
	dashVariants    = regexp.MustCompile(`[-–—]`)
	dayPrefix       = regexp.MustCompile(`(?i)day \d+:\s*`)
	punctuationMark = regexp.MustCompile(`[.,;:]`)
)

// NormalizeItineraryText prepares an itinerary for comparison: lower-case,
// single spaces, one dash, no "Day N:" prefixes and no .,;: punctuation.
func NormalizeItineraryText(text string) string {
	text = strings.ToLower(text)
	text = whitespaceRun.ReplaceAllString(text, " ")
	text = dashVariants.ReplaceAllString(text, "-")
	text = dayPrefix.ReplaceAllString(text, "")
	text = punctuationMark.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// ItinerarySimilarity is the Jaccard index over the words of the normalized
// texts, or 0 when their lengths differ by more than 20% of the average.
func ItinerarySimilarity(a, b string) float64 {
	na, nb := NormalizeItineraryText(a), NormalizeItineraryText(b)
	la, lb := utf8.RuneCountInString(na), utf8.RuneCountInString(nb)
	diff := la - lb
	if diff < 0 {
		diff = -diff
	}
	if float64(diff) > float64(la+lb)/2*0.2 {
		return 0
	}

	wordsA := wordSet(na)
	wordsB := wordSet(nb)
	union := make(map[string]struct{}, len(wordsA)+len(wordsB))
	matching := 0
	for w := range wordsA {
		union[w] = struct{}{}
		if _, ok := wordsB[w]; ok {
			matching++
		}
	}
	for w := range wordsB {
		union[w] = struct{}{}
	}
	return float64(matching) / float64(len(union))
}

func wordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Split(text, " ") {
		set[w] = struct{}{}
	}
	return set
}

// FindSimilarRow returns the index of the row most similar to text above
// SimilarityThreshold, or -1 and 0.
func FindSimilarRow(rows []RatingRow, text string) (int, float64) {
	index, best := -1, 0.0
	for i, row := range rows {
		s := ItinerarySimilarity(row.Text, text)
		if s > SimilarityThreshold && s > best {
			index, best = i, s
		}
	}
	return index, best
}

// orderedSet keeps first-insertion order.
type orderedSet struct {
	items []string
	seen  map[string]struct{}
}

func (s *orderedSet) add(v string) {
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}

// GenerateRecommendations pairs up users who both liked at least one row and
// recommends to each the rows the other liked that they have not rated.
func GenerateRecommendations(rows []RatingRow, users []string) map[string][]string {
	sets := make(map[string]*orderedSet, len(users))
	for _, u := range users {
		sets[u] = &orderedSet{}
	}

	for i, a := range users {
		for j, b := range users {
			if i == j {
				continue
			}
			shared := 0
			for _, row := range rows {
				if row.Ratings[a] >= LikedRating && row.Ratings[b] >= LikedRating {
					shared++
				}
			}
			if shared == 0 {
				continue
			}
			for _, row := range rows {
				ra, rb := row.Ratings[a], row.Ratings[b]
				if rb >= LikedRating && ra == 0 {
					sets[a].add(row.Text)
				}
				if ra >= LikedRating && rb == 0 {
					sets[b].add(row.Text)
				}
			}
		}
	}

	out := make(map[string][]string, len(users))
	for _, u := range users {
		out[u] = sets[u].items
	}
	return out
}

// RecommendationRows flattens the recommendations in user order and appends up
// to MaxGenericRecommendations generic rows.
func RecommendationRows(recommendations map[string][]string, users []string) []model.Recommendation {
	rows := make([]model.Recommendation, 0)
	all := &orderedSet{}
	for _, u := range users {
		for _, itinerary := range recommendations[u] {
			rows = append(rows, model.Recommendation{UserID: u, Itinerary: itinerary, MatchScore: PersonalMatchScore})
			all.add(itinerary)
		}
	}
	for i, itinerary := range all.items {
		if i == MaxGenericRecommendations {
			break
		}
		rows = append(rows, model.Recommendation{UserID: GenericUserID, Itinerary: itinerary, MatchScore: GenericMatchScore, IsGeneric: true})
	}
	return rows
}
