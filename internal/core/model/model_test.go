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

package model_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The destination id is a UUIDv5 of the lower-cased name, so "Goa" and
// " goa " map to the same knowledge entries.
func TestDestinationID(t *testing.T) {
	want := uuid.NewSHA1(uuid.NameSpaceURL, []byte("goa")).String()
	assert.Equal(t, want, model.DestinationID("Goa"))
	assert.Equal(t, want, model.DestinationID("  goa "))
	assert.NotEqual(t, want, model.DestinationID("Agra"))
}

func TestNewKnowledgeEntry(t *testing.T) {
	refined := &model.RefinedTranscript{
		Destination:       "Hampi",
		VideoID:           "vid-1",
		Title:             "Hampi in 3 days",
		RefinedTranscript: "Hampi is a UNESCO World Heritage Site.",
	}
	entry := model.NewKnowledgeEntry(refined)

	assert.Equal(t, model.DestinationID("Hampi"), entry.DestinationID)
	assert.Equal(t, "Hampi", entry.DestinationName)
	assert.Equal(t, "vid-1", entry.VideoID)
	assert.Equal(t, len(refined.RefinedTranscript), entry.Metadata.SourceTextLength)
	assert.Equal(t, "2.0", entry.Metadata.ProcessingVersion)
	assert.WithinDuration(t, time.Now(), entry.CreatedAt, time.Second)
	assert.NotNil(t, entry.Relationships)
	assert.NotNil(t, entry.Keywords)
	assert.NotNil(t, entry.SemanticGraph.Nodes)
	assert.NotNil(t, entry.SemanticGraph.Edges)
	assert.False(t, entry.Exported)
}

func TestNewKnowledgeEmbedding(t *testing.T) {
	entry := model.NewKnowledgeEntry(&model.RefinedTranscript{Destination: "Goa", VideoID: "v"})
	entry.TextEmbedding = []float32{0.5, -0.25}

	row := model.NewKnowledgeEmbedding(entry, "text-embedding-005")
	assert.Equal(t, entry.DestinationID, row.DestinationID)
	assert.Equal(t, "Goa", row.DestinationName)
	assert.Equal(t, "text-embedding-005", row.ModelName)
	assert.Equal(t, []float64{0.5, -0.25}, row.Embeddings)
}

func TestParseScrapeRequest(t *testing.T) {
	req, err := model.ParseScrapeRequest(`{"destination":" Kerala "}`)
	require.NoError(t, err)
	assert.Equal(t, "Kerala", req.Destination)

	req, err = model.ParseScrapeRequest("Darjeeling\n")
	require.NoError(t, err)
	assert.Equal(t, "Darjeeling", req.Destination)

	_, err = model.ParseScrapeRequest(`{"destination":`)
	assert.Error(t, err)
}

func TestEntitiesTypedDeduplicates(t *testing.T) {
	e := model.Entities{
		Locations: []string{"Udaipur", "Lake Pichola"},
		Landmarks: []string{"City Palace", "Udaipur"},
		Events:    []string{""},
	}
	nodes := e.Typed()
	require.Len(t, nodes, 3)
	assert.Equal(t, model.GraphNode{ID: "Udaipur", Type: "locations"}, nodes[0])
	assert.Equal(t, model.GraphNode{ID: "City Palace", Type: "landmarks"}, nodes[2])
}

func TestDestinationKnowledgeNonEmpty(t *testing.T) {
	k := model.DestinationKnowledge{
		Destination: "Goa",
		Categories: map[string][]string{
			model.CategoryFood:      {"Try the fish curry."},
			model.CategoryLocation:  {"Goa"},
			model.CategoryLandmarks: {},
		},
	}
	assert.Equal(t, []string{model.CategoryLocation, model.CategoryFood}, k.NonEmpty())
}

func TestExamplesMatchKeyQuestions(t *testing.T) {
	for _, a := range model.GetExampleKeyInformation().Answers {
		assert.Contains(t, model.KeyQuestions, a.Question)
	}
	for _, r := range model.GetExampleRelationships().Relationships {
		assert.Contains(t, model.RelationshipTypes, r.RelationshipType)
	}
}
