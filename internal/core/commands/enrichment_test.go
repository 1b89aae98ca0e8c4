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
package commands_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/cloud"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/commands"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/cor"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/model"
	test "github.com/jaycherian/gcp-go-travel-knowledge/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupEntities(t *testing.T) {
	e := commands.GroupEntities(&model.EntityExtraction{
		Entities: []model.NamedEntity{
			{Text: "Jaipur", Label: "GPE"},
			{Text: "Aravalli Hills", Label: "LOC"},
			{Text: "UNESCO", Label: "ORG"},
			{Text: "Sawai Jai Singh II", Label: "PERSON"},
			{Text: "1727", Label: "DATE"},
			{Text: "Teej", Label: "EVENT"},
			{Text: "Hawa Mahal", Label: "FAC"},
			{Text: "Jaipur", Label: "GPE"},
			{Text: "blue", Label: "COLOR"},
		},
		Sentences: []model.SentenceLabel{
			{Sentence: "Amber Fort is a must.", Label: "tourist attraction", Score: 0.95},
			{Sentence: "Block printing is a local craft.", Label: "cultural element", Score: 0.81},
			{Sentence: "Jantar Mantar is an observatory.", Label: "landmark", Score: 0.9},
			{Sentence: "Diwali lights up the bazaars.", Label: "event", Score: 0.85},
			{Sentence: "Borderline sentence.", Label: "tourist attraction", Score: 0.8},
		},
	})

	assert.Equal(t, []string{"Jaipur", "Aravalli Hills"}, e.Locations)
	assert.Equal(t, []string{"UNESCO"}, e.Organizations)
	assert.Equal(t, []string{"Sawai Jai Singh II"}, e.People)
	assert.Equal(t, []string{"1727"}, e.Dates)
	assert.Equal(t, []string{"Teej", "Diwali lights up the bazaars."}, e.Events)
	assert.Equal(t, []string{"Hawa Mahal", "Jantar Mantar is an observatory."}, e.Landmarks)
	assert.Equal(t, []string{"Amber Fort is a must."}, e.Attractions)
	assert.Equal(t, []string{"Block printing is a local craft."}, e.CulturalElements)
}

func TestGroupEntitiesNeverNil(t *testing.T) {
	e := commands.GroupEntities(&model.EntityExtraction{})
	assert.NotNil(t, e.Locations)
	assert.NotNil(t, e.CulturalElements)
	assert.Empty(t, e.Typed())
}

func TestNormalizeRelationships(t *testing.T) {
	out := commands.NormalizeRelationships([]model.Relationship{
		{Subject: " Amber Fort ", Predicate: "overlooks", Object: "Maota Lake", RelationshipType: "Location", Confidence: 1.4},
		{Subject: "Jaipur", Predicate: "is", Object: "pink", RelationshipType: "colour", Confidence: -1},
		{Subject: "", Predicate: "has", Object: "forts"},
	})
	require.Len(t, out, 2)
	assert.Equal(t, "Amber Fort", out[0].Subject)
	assert.Equal(t, "location", out[0].RelationshipType)
	assert.Equal(t, 1.0, out[0].Confidence)
	assert.Equal(t, "description", out[1].RelationshipType)
	assert.Equal(t, 0.0, out[1].Confidence)
}

func TestFilterKeyInformation(t *testing.T) {
	out := commands.FilterKeyInformation([]model.QuestionAnswer{
		{Question: model.KeyQuestions[0], Answer: "Amber Fort", Score: 0.5},
		{Question: model.KeyQuestions[1], Answer: "founded 1727", Score: 0.1},
		{Question: model.KeyQuestions[2], Answer: " ", Score: 0.9},
	})
	require.Len(t, out, 1)
	assert.Equal(t, "Amber Fort", out[0].Answer)
}

func TestBuildSemanticGraph(t *testing.T) {
	entities := &model.Entities{Landmarks: []string{"Amber Fort"}, Locations: []string{"Maota Lake", "Jaipur"}}
	relationships := []model.Relationship{
		{Subject: "Amber Fort", Predicate: "overlooks", Object: "Maota Lake", RelationshipType: "location", Confidence: 0.9},
		{Subject: "Amber Fort", Predicate: "near", Object: "Nahargarh", RelationshipType: "location", Confidence: 0.7},
	}
	embeddings := map[string][]float32{
		"Amber Fort": {1, 0},
		"Maota Lake": {1, 0},
		"Jaipur":     {0, 1},
	}
	g := commands.BuildSemanticGraph(entities, relationships, embeddings)

	require.Len(t, g.Nodes, 3)
	assert.Equal(t, "Maota Lake", g.Nodes[0].ID)
	assert.Equal(t, "locations", g.Nodes[0].Type)
	assert.Equal(t, "landmarks", g.Nodes[2].Type)
	require.Len(t, g.Edges, 1, "edges need both ends to be nodes")
	assert.Equal(t, "overlooks", g.Edges[0].Relationship)
	assert.InDelta(t, 1.0, g.Edges[0].SemanticSimilarity, 1e-9)
}

func TestBuildSemanticGraphMergesRepeatedPairs(t *testing.T) {
	entities := &model.Entities{Landmarks: []string{"Amber Fort"}, Locations: []string{"Maota Lake", "Jaipur"}}
	relationships := []model.Relationship{
		{Subject: "Amber Fort", Predicate: "overlooks", Object: "Maota Lake", RelationshipType: "location", Confidence: 0.6},
		{Subject: "Amber Fort", Predicate: "in", Object: "Jaipur", RelationshipType: "location", Confidence: 0.8},
		{Subject: "Maota Lake", Predicate: "lies below", Object: "Amber Fort", RelationshipType: "description", Confidence: 0.9},
		{Subject: "Amber Fort", Predicate: "overlooks", Object: "Maota Lake", RelationshipType: "tourist", Confidence: 0.7},
	}
	g := commands.BuildSemanticGraph(entities, relationships, map[string][]float32{})

	require.Len(t, g.Edges, 2)
	assert.Equal(t, "Amber Fort", g.Edges[0].Source)
	assert.Equal(t, "Maota Lake", g.Edges[0].Target)
	assert.Equal(t, "tourist", g.Edges[0].Type, "the last relationship of a pair wins")
	assert.Equal(t, 0.7, g.Edges[0].Confidence)
	assert.Equal(t, "Jaipur", g.Edges[1].Target)
}

func TestSemanticGraphBuilderEmbedsEveryEntity(t *testing.T) {
	embedder := &test.FakeEmbedder{}
	c := newContext(map[string]interface{}{
		commands.ParamEntities: &model.Entities{Landmarks: []string{"Amber Fort"}, Locations: []string{"Jaipur"}},
		commands.ParamRelationships: &model.RelationshipExtraction{Relationships: []model.Relationship{
			{Subject: "Amber Fort", Predicate: "in", Object: "Jaipur", RelationshipType: "location", Confidence: 0.8},
		}},
	})
	commands.NewSemanticGraphBuilder("graph", embedder).Execute(c)
	require.NoError(t, c.Err())

	g := c.Get(commands.ParamSemanticGraph).(*model.SemanticGraph)
	assert.Equal(t, test.LetterVector("Jaipur"), g.Nodes[0].Embedding)
	require.Len(t, g.Edges, 1)
	expected := cloud.CosineSimilarity(test.LetterVector("Amber Fort"), test.LetterVector("Jaipur"))
	assert.InDelta(t, expected, g.Edges[0].SemanticSimilarity, 1e-9)
	assert.Equal(t, 1, embedder.Calls)
	assert.Equal(t, []string{"fake-embedder"}, c.Get(commands.ParamModelsUsed))
}

func TestTextEmbedderFailure(t *testing.T) {
	c := newContext(map[string]interface{}{commands.ParamRefined: test.GetTestRefinedTranscript()})
	commands.NewTextEmbedder("embed", &test.FakeEmbedder{Err: errors.New("quota")}).Execute(c)
	assert.Error(t, c.Err())
	assert.Nil(t, c.Get(commands.ParamTextEmbedding))
}

func TestAssembleKnowledge(t *testing.T) {
	refined := test.GetTestRefinedTranscript()
	c := newContext(map[string]interface{}{commands.ParamRefined: refined})

	c.Add(commands.ParamEntityExtraction, model.GetExampleEntityExtraction())
	commands.NewEntityGrouper("group").Execute(c)
	commands.NewKeywordExtractor("keywords").Execute(c)
	commands.NewTextEmbedder("embed", &test.FakeEmbedder{}).Execute(c)
	c.Add(commands.ParamRelationships, model.GetExampleRelationships())
	c.Add(commands.ParamKeyInfo, model.GetExampleKeyInformation())
	commands.NewSemanticGraphBuilder("graph", &test.FakeEmbedder{}).Execute(c)
	commands.NewKnowledgeAssembler("assemble").Execute(c)
	require.NoError(t, c.Err())

	entry := c.Get(commands.ParamKnowledgeEntry).(*model.KnowledgeEntry)
	assert.Equal(t, model.DestinationID("Jaipur"), entry.DestinationID)
	assert.Equal(t, "jp-001", entry.VideoID)
	assert.Equal(t, []string{"Jaipur"}, entry.Entities.Locations[:1])
	assert.Contains(t, entry.Entities.Landmarks, "Amber Fort")
	assert.Equal(t, []string{"Amber Fort overlooks Maota Lake and is best seen at sunrise."}, entry.Entities.Attractions)
	assert.Equal(t, []string{"Block printing in Sanganer is a craft passed down for generations."}, entry.Entities.CulturalElements)
	assert.Len(t, entry.Relationships, 2)
	assert.Len(t, entry.KeyInformation, 2)
	assert.NotEmpty(t, entry.Keywords)
	assert.LessOrEqual(t, len(entry.Keywords), 20)
	assert.Equal(t, test.LetterVector(refined.RefinedTranscript), entry.TextEmbedding)
	assert.NotEmpty(t, entry.SemanticGraph.Nodes)
	assert.Equal(t, len(refined.RefinedTranscript), entry.Metadata.SourceTextLength)
	assert.Equal(t, "2.0", entry.Metadata.ProcessingVersion)
	assert.Equal(t, []string{"fake-embedder"}, entry.Metadata.ModelsUsed)
	assert.False(t, entry.Exported)
}

func TestBuildTopicCorpus(t *testing.T) {
	long := strings.Repeat("x", 5000)
	corpus := commands.BuildTopicCorpus([]*model.RefinedTranscript{
		{Destination: "Goa", RefinedTranscript: "Beaches."},
		{Destination: "Agra", RefinedTranscript: long},
	})
	assert.True(t, strings.HasPrefix(corpus, "Document 1 [Goa]:\nBeaches.\n\nDocument 2 [Agra]:\n"))
	assert.Equal(t, 4000, strings.Count(corpus, "x"))
}

func TestTopicCorpusRequiresDocuments(t *testing.T) {
	c := newContext(map[string]interface{}{cor.CtxIn: []*model.RefinedTranscript{}})
	commands.NewTopicCorpus("corpus").Execute(c)
	assert.Error(t, c.Err())
}
