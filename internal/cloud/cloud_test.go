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

package cloud_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/cloud"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"google.golang.org/genai"
)

const baseToml = `
[application]
name = "travel-knowledge"
google_project_id = "base-project"
location = "us-central1"

[mongo]
uri = "mongodb://base:27017"
database = "travel_vlogs"

[youtube]
destinations = ["Goa", "Agra"]

[agent_models.creative-flash]
model = "gemini-2.0-flash"
rate_limit = 2
`

const runtimeToml = `
[application]
google_project_id = "runtime-project"

[itinerary]
threshold = 0.25
`

func TestLoadConfigOverlaysRuntimeFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.toml"), []byte(baseToml), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.unit.toml"), []byte(runtimeToml), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".secrets.env"), []byte("MONGO_URI=mongodb://secret:27017\n"), 0o600))
	t.Setenv(cloud.EnvConfigFilePrefix, dir)
	t.Setenv(cloud.EnvConfigRuntime, "unit")
	// Registered for restore, then cleared so the secrets file can set it.
	t.Setenv(cloud.EnvMongoURI, "")
	require.NoError(t, os.Unsetenv(cloud.EnvMongoURI))

	config := cloud.NewConfig()
	cloud.LoadConfig(config)
	cloud.ApplySecrets(config)

	assert.Equal(t, "travel-knowledge", config.Application.Name)
	assert.Equal(t, "runtime-project", config.Application.GoogleProjectId)
	assert.Equal(t, "us-central1", config.Application.GoogleLocation)
	assert.Equal(t, []string{"Goa", "Agra"}, config.YouTube.Destinations)
	assert.Equal(t, 0.25, config.Itinerary.Threshold)
	assert.Equal(t, 3, config.Itinerary.Days, "default survives when not in any file")
	assert.Equal(t, "gemini-2.0-flash", config.AgentModels["creative-flash"].Model)
	assert.Equal(t, "mongodb://secret:27017", config.Mongo.URI)
}

func TestApplySecretsOnlyOverridesSetVariables(t *testing.T) {
	config := cloud.NewConfig()
	config.Neo4j.URI = "neo4j://toml:7687"
	config.Neo4j.Username = "neo4j"

	t.Setenv(cloud.EnvNeo4jURI, "neo4j+s://env:7687")
	t.Setenv(cloud.EnvNeo4jUsername, "")
	t.Setenv(cloud.EnvYouTubeAPIKey, "yt-key")
	cloud.ApplySecrets(config)

	assert.Equal(t, "neo4j+s://env:7687", config.Neo4j.URI)
	assert.Equal(t, "neo4j", config.Neo4j.Username, "empty variable keeps the TOML value")
	assert.Equal(t, "yt-key", config.YouTube.APIKey)
}

func TestCleanJSONResponse(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\":1}\n```":   `{"a":1}`,
		"```\n[1,2]\n```":           `[1,2]`,
		"  {\"plain\":true}  \n":    `{"plain":true}`,
		"Goa is a coastal state.": "Goa is a coastal state.",
	}
	for in, want := range cases {
		assert.Equal(t, want, cloud.CleanJSONResponse(in), in)
	}
}

type scriptedGenerator struct {
	failures int
	calls    int
	text     string
}

func (g *scriptedGenerator) GenerateContent(_ context.Context, _ []*genai.Content) (*genai.GenerateContentResponse, error) {
	g.calls++
	if g.calls <= g.failures {
		return nil, errors.New("quota exceeded")
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{{Text: "```json\n{\"ok\":"}, {Text: "true}\n```"}}}},
		},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{PromptTokenCount: 10, CandidatesTokenCount: 4},
	}, nil
}

func TestGenerateTextResponseRetriesThenSucceeds(t *testing.T) {
	meter := otel.Meter("cloud-test")
	in, _ := meter.Int64Counter("test.input")
	out, _ := meter.Int64Counter("test.output")
	retry, _ := meter.Int64Counter("test.retry")

	gen := &scriptedGenerator{failures: 2}
	value, err := cloud.GenerateTextResponse(context.Background(), in, out, retry, 0, gen, cloud.NewTextPart("hello"))
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, value)
	assert.Equal(t, 3, gen.calls)
}

func TestGenerateTextResponseGivesUpAfterMaxRetries(t *testing.T) {
	meter := otel.Meter("cloud-test")
	in, _ := meter.Int64Counter("test.input")
	out, _ := meter.Int64Counter("test.output")
	retry, _ := meter.Int64Counter("test.retry")

	gen := &scriptedGenerator{failures: 100}
	_, err := cloud.GenerateTextResponse(context.Background(), in, out, retry, 0, gen, cloud.NewTextPart("hello"))
	require.Error(t, err)
	assert.Equal(t, cloud.MaxRetries+1, gen.calls)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cloud.CosineSimilarity([]float32{1, 2, 3}, []float32{2, 4, 6}), 1e-9)
	assert.InDelta(t, 0.0, cloud.CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, cloud.CosineSimilarity([]float32{1, 1}, []float32{-1, -1}), 1e-9)
	assert.Zero(t, cloud.CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3}))
	assert.Zero(t, cloud.CosineSimilarity([]float32{0, 0}, []float32{1, 2}))
	assert.Zero(t, cloud.CosineSimilarity(nil, nil))
}

func TestMeanPoolIgnoresPaddingAndNormalises(t *testing.T) {
	// batch 2, seq 3, hidden 2
	data := []float32{
		1, 0, 3, 0, 100, 100, // second sequence position 2 is padding
		0, 2, 0, 2, 0, 2,
	}
	mask := []int64{
		1, 1, 0,
		1, 1, 1,
	}
	out := cloud.MeanPool(data, mask, 2, 3, 2)
	require.Len(t, out, 2)
	assert.InDeltaSlice(t, []float32{1, 0}, out[0], 1e-6)
	assert.InDeltaSlice(t, []float32{0, 1}, out[1], 1e-6)
}

func TestMeanPoolAllMaskedIsZero(t *testing.T) {
	out := cloud.MeanPool([]float32{5, 5}, []int64{0}, 1, 1, 2)
	assert.Equal(t, []float32{0, 0}, out[0])
}

func TestIsWorkbookRejectsText(t *testing.T) {
	assert.False(t, cloud.IsWorkbook([]byte("ItineraryText,user-1\n")))
	assert.False(t, cloud.IsWorkbook(nil))
}

func TestNoopSeenSet(t *testing.T) {
	var seen cloud.SeenSet = cloud.NoopSeenSet{}
	ok, err := seen.IsSeen(context.Background(), "abc")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, seen.MarkSeen(context.Background(), "abc"))
}

func TestNewWorkbookStoreWithoutBucketIsNil(t *testing.T) {
	assert.Nil(t, cloud.NewWorkbookStore(cloud.NewConfig(), nil, nil))
}
