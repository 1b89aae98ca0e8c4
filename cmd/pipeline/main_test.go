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
package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/model"
)

func TestRootCommandRegistersEverySubcommand(t *testing.T) {
	root := newRootCommand(&app{})
	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"scrape", "refine", "extract", "enrich", "topics", "search", "ask", "itinerary"}, names)

	extract, _, err := root.Find([]string{"extract"})
	require.NoError(t, err)
	assert.NotNil(t, extract.Flags().Lookup("reset"))

	itinerary, _, err := root.Find([]string{"itinerary"})
	require.NoError(t, err)
	assert.NotNil(t, itinerary.Flags().Lookup("days"))
	assert.NotNil(t, itinerary.Flags().Lookup("threshold"))
}

func TestDestinationFilter(t *testing.T) {
	assert.Equal(t, bson.M{}, destinationFilter("destination", ""))
	assert.Equal(t, bson.M{"destination": "Goa"}, destinationFilter("destination", "Goa"))
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "Goa/abc", transcriptLabel(&model.Transcript{Destination: "Goa", VideoID: "abc"}))
	assert.Equal(t, "Agra/xyz", refinedLabel(&model.RefinedTranscript{Destination: "Agra", VideoID: "xyz"}))
}
