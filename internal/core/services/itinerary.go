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
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/cloud"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/model"
)

// Defaults of the itinerary generator.
const (
	DefaultItineraryDays      = 3
	DefaultItineraryThreshold = 0.1
	DefaultCandidateLimit     = 10
	DefaultTheme              = "Exploratory"
)

// Chooser picks an index in [0, n). *rand.Rand satisfies it.
type Chooser interface {
	Intn(n int) int
}

// Narrative holds the first relationship of a destination, with the
// placeholders used when the destination has none.
type Narrative struct {
	Subject          string
	Predicate        string
	Object           string
	RelationshipType string
}

// ItineraryService generates day-by-day plans for the destinations matching a query.
type ItineraryService struct {
	Collection     *mongo.Collection // enhanced_knowledge_base
	Embedder       cloud.Embedder
	Chooser        Chooser
	Days           int
	Threshold      float64
	CandidateLimit int64
}

// CandidateFilter matches the query, case-insensitively and literally, in the
// destination name or the attractions.
func CandidateFilter(query string) bson.M {
	pattern := literalPattern(query)
	return bson.M{"$or": bson.A{
		bson.M{"destination_name": pattern},
		bson.M{"entities.attractions": pattern},
	}}
}

func literalPattern(query string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(strings.TrimSpace(query)), "$options": "i"}
}

// MatchFields lists the lower-cased texts the query is compared against.
func MatchFields(entry *model.KnowledgeEntry) []string {
	out := make([]string, 0)
	add := func(s string) {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	add(entry.DestinationName)
	for _, a := range entry.Entities.Attractions {
		add(a)
	}
	for _, l := range entry.Entities.Landmarks {
		add(l)
	}
	for _, k := range entry.Keywords {
		add(k.Keyword)
	}
	return out
}

// NarrativeOf returns the narrative of the entry's first relationship.
func NarrativeOf(entry *model.KnowledgeEntry) Narrative {
	out := Narrative{Subject: "Travelers", Predicate: "wander", Object: entry.DestinationName, RelationshipType: DefaultTheme}
	if len(entry.Relationships) == 0 {
		return out
	}
	r := entry.Relationships[0]
	if r.Subject != "" {
		out.Subject = r.Subject
	}
	if r.Predicate != "" {
		out.Predicate = r.Predicate
	}
	if r.Object != "" {
		out.Object = r.Object
	}
	if r.RelationshipType != "" {
		out.RelationshipType = r.RelationshipType
	}
	return out
}

// DayElements returns the two sights of day (1-based), taken in order from
// attractions, then landmarks, then cultural elements.
func DayElements(entities model.Entities, day int) []string {
	all := make([]string, 0, len(entities.Attractions)+len(entities.Landmarks)+len(entities.CulturalElements))
	all = append(all, entities.Attractions...)
	all = append(all, entities.Landmarks...)
	all = append(all, entities.CulturalElements...)

	start := (day - 1) * 2
	if start >= len(all) {
		return nil
	}
	return all[start:min(start+2, len(all))]
}

func joinOr(elems []string, fallback string) string {
	if len(elems) == 0 {
		return fallback
	}
	return strings.Join(elems, ", ")
}

// NarrativeSentence renders one of the three day templates.
func NarrativeSentence(n Narrative, day int, elems []string, choice int) string {
	switch choice {
	case 0:
		return fmt.Sprintf("Day %d: %s %s through a mesmerizing journey in %s.", day, n.Subject, n.Predicate, joinOr(elems, "local wonders"))
	case 1:
		return fmt.Sprintf("Day %d: Explore the %s essence by discovering %s.", day, n.RelationshipType, joinOr(elems, "hidden gems"))
	default:
		return fmt.Sprintf("Day %d: Immerse in %s by experiencing %s", day, n.Object, joinOr(elems, "scenic locations"))
	}
}

// BuildItinerary writes the plan for one scored destination.
func BuildItinerary(entry *model.KnowledgeEntry, score float64, days int, chooser Chooser) *model.Itinerary {
	n := NarrativeOf(entry)
	out := &model.Itinerary{
		Destination: entry.DestinationName,
		Score:       score,
		Theme:       n.RelationshipType,
		Days:        make([]string, 0, days),
	}
	for d := 1; d <= days; d++ {
		out.Days = append(out.Days, NarrativeSentence(n, d, DayElements(entry.Entities, d), chooser.Intn(3)))
	}
	return out
}

// Score returns the best cosine similarity between the query vector and the field vectors.
func Score(query []float32, fields [][]float32) float64 {
	best := 0.0
	for i, f := range fields {
		if s := cloud.CosineSimilarity(query, f); i == 0 || s > best {
			best = s
		}
	}
	return best
}

func (s *ItineraryService) chooser() Chooser {
	if s.Chooser == nil {
		s.Chooser = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return s.Chooser
}

// Generate returns one itinerary per matching destination, best match first.
func (s *ItineraryService) Generate(ctx context.Context, req *model.ItineraryRequest) ([]*model.Itinerary, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidInput)
	}
	days := firstPositive(req.Days, s.Days, DefaultItineraryDays)
	threshold := s.ThresholdFor(req)
	limit := s.CandidateLimit
	if limit <= 0 {
		limit = DefaultCandidateLimit
	}

	cursor, err := s.Collection.Find(ctx, CandidateFilter(req.Query), options.Find().SetLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to find candidate destinations: %w", err)
	}
	candidates := make([]*model.KnowledgeEntry, 0)
	if err = cursor.All(ctx, &candidates); err != nil {
		return nil, fmt.Errorf("failed to decode candidate destinations: %w", err)
	}

	type scored struct {
		entry *model.KnowledgeEntry
		score float64
	}
	matches := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		fields := MatchFields(c)
		if len(fields) == 0 {
			continue
		}
		vectors, err := s.Embedder.Embed(ctx, append([]string{strings.ToLower(req.Query)}, fields...))
		if err != nil {
			return nil, fmt.Errorf("failed to embed match fields of %s: %w", c.DestinationName, err)
		}
		score := Score(vectors[0], vectors[1:])
		if score >= threshold {
			matches = append(matches, scored{entry: c, score: score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })

	out := make([]*model.Itinerary, 0, len(matches))
	for _, m := range matches {
		out = append(out, BuildItinerary(m.entry, m.score, days, s.chooser()))
	}
	return out, nil
}

// ThresholdFor returns the request's threshold when given, else the
// service's, else DefaultItineraryThreshold.
func (s *ItineraryService) ThresholdFor(req *model.ItineraryRequest) float64 {
	switch {
	case req.Threshold != nil:
		return *req.Threshold
	case s.Threshold > 0:
		return s.Threshold
	}
	return DefaultItineraryThreshold
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
