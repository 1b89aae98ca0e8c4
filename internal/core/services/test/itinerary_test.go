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
package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/model"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/services"
	test "github.com/jaycherian/gcp-go-travel-knowledge/internal/testutil"
)

// cycleChooser returns 0, 1, 2, 0, ... regardless of n.
type cycleChooser struct{ next int }

func (c *cycleChooser) Intn(n int) int {
	v := c.next % n
	c.next++
	return v
}

func jaipurEntry() *model.KnowledgeEntry {
	return &model.KnowledgeEntry{
		DestinationName: "Jaipur",
		Entities: model.Entities{
			Attractions:      []string{"Amber Fort", "Hawa Mahal", "City Palace"},
			Landmarks:        []string{"Jal Mahal"},
			CulturalElements: []string{"Block printing"},
		},
		Relationships: []model.Relationship{
			{Subject: "Amber Fort", Predicate: "overlooks", Object: "Maota Lake", RelationshipType: "location"},
			{Subject: "Jai Singh", Predicate: "founded", Object: "Jaipur", RelationshipType: "historical"},
		},
		Keywords: []model.Keyword{{Keyword: "Pink City", Score: 0.1}},
	}
}

func TestDayElements(t *testing.T) {
	entities := jaipurEntry().Entities
	assert.Equal(t, []string{"Amber Fort", "Hawa Mahal"}, services.DayElements(entities, 1))
	assert.Equal(t, []string{"City Palace", "Jal Mahal"}, services.DayElements(entities, 2))
	assert.Equal(t, []string{"Block printing"}, services.DayElements(entities, 3))
	assert.Empty(t, services.DayElements(entities, 4))
}

func TestBuildItineraryCyclesTemplates(t *testing.T) {
	itinerary := services.BuildItinerary(jaipurEntry(), 0.42, 4, &cycleChooser{})

	assert.Equal(t, "Jaipur", itinerary.Destination)
	assert.Equal(t, 0.42, itinerary.Score)
	assert.Equal(t, "location", itinerary.Theme)
	assert.Equal(t, []string{
		"Day 1: Amber Fort overlooks through a mesmerizing journey in Amber Fort, Hawa Mahal.",
		"Day 2: Explore the location essence by discovering City Palace, Jal Mahal.",
		"Day 3: Immerse in Maota Lake by experiencing Block printing",
		"Day 4: Amber Fort overlooks through a mesmerizing journey in local wonders.",
	}, itinerary.Days)
}

func TestNarrativeDefaults(t *testing.T) {
	entry := &model.KnowledgeEntry{DestinationName: "Goa"}
	n := services.NarrativeOf(entry)
	assert.Equal(t, services.Narrative{Subject: "Travelers", Predicate: "wander", Object: "Goa", RelationshipType: "Exploratory"}, n)

	assert.Equal(t, "Day 2: Explore the Exploratory essence by discovering hidden gems.", services.NarrativeSentence(n, 2, nil, 1))
	assert.Equal(t, "Day 3: Immerse in Goa by experiencing scenic locations", services.NarrativeSentence(n, 3, nil, 2))
}

func TestMatchFieldsAreLowerCased(t *testing.T) {
	assert.Equal(t,
		[]string{"jaipur", "amber fort", "hawa mahal", "city palace", "jal mahal", "pink city"},
		services.MatchFields(jaipurEntry()))
}

func TestCandidateFilterQuotesQuery(t *testing.T) {
	filter := services.CandidateFilter(" Goa (North) ")
	pattern := bson.M{"$regex": `Goa \(North\)`, "$options": "i"}
	assert.Equal(t, bson.M{"$or": bson.A{
		bson.M{"destination_name": pattern},
		bson.M{"entities.attractions": pattern},
	}}, filter)
}

func TestScoreTakesTheBestField(t *testing.T) {
	query := test.LetterVector("fort")
	fields := [][]float32{test.LetterVector("beach"), test.LetterVector("fort"), test.LetterVector("lake")}
	assert.InDelta(t, 1.0, services.Score(query, fields), 1e-9)
	assert.Zero(t, services.Score(query, nil))
}

func TestGenerateRejectsEmptyQuery(t *testing.T) {
	svc := &services.ItineraryService{Embedder: &test.FakeEmbedder{}}
	_, err := svc.Generate(context.Background(), &model.ItineraryRequest{Query: "  "})
	require.ErrorIs(t, err, services.ErrInvalidInput)
}

func TestThresholdForHonoursExplicitZero(t *testing.T) {
	svc := &services.ItineraryService{Threshold: 0.3}
	zero := 0.0
	assert.Equal(t, 0.0, svc.ThresholdFor(&model.ItineraryRequest{Query: "forts", Threshold: &zero}))
	assert.Equal(t, 0.3, svc.ThresholdFor(&model.ItineraryRequest{Query: "forts"}))
	assert.Equal(t, services.DefaultItineraryThreshold, (&services.ItineraryService{}).ThresholdFor(&model.ItineraryRequest{Query: "forts"}))
}
