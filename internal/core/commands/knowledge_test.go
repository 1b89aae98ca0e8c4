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
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"text/template"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/cloud"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/commands"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/cor"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/model"
	test "github.com/jaycherian/gcp-go-travel-knowledge/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategorizeKnowledge(t *testing.T) {
	entities := []model.NamedEntity{
		{Text: "Jaipur", Label: "GPE"},
		{Text: "Aravalli Hills", Label: "LOC"},
		{Text: "Rajasthan Tourism", Label: "ORG"},
		{Text: "Albert Hall Museum", Label: "FAC"},
		{Text: "Central Park", Label: "LOC"},
		{Text: "Jaipur", Label: "GPE"},
	}
	sentences := []string{
		"We recommend an early start.",
		"A useful tip is to carry water.",
		"The local cuisine is spicy.",
		"Nothing else here.",
	}
	k := commands.CategorizeKnowledge("Jaipur", entities, sentences)

	assert.Equal(t, "Jaipur", k.Destination)
	assert.Equal(t, []string{"Jaipur", "Aravalli Hills", "Central Park"}, k.Categories[model.CategoryLocation])
	assert.Equal(t, []string{"Jaipur", "Aravalli Hills", "Rajasthan Tourism", "Central Park"}, k.Categories[model.CategoryLandmarks])
	assert.Equal(t, []string{"Albert Hall Museum", "Central Park"}, k.Categories[model.CategoryAttractions])
	assert.Equal(t, []string{"We recommend an early start."}, k.Categories[model.CategoryActivities])
	assert.Equal(t, []string{"A useful tip is to carry water."}, k.Categories[model.CategoryTravelTips])
	assert.Equal(t, []string{"The local cuisine is spicy."}, k.Categories[model.CategoryFood])
	assert.Equal(t, model.Categories, k.NonEmpty())
}

func TestCategorizeKnowledgeMatchesFoodAsWholeWords(t *testing.T) {
	k := commands.CategorizeKnowledge("Jaipur", nil, []string{
		"What a great seat by the window.",
		"Locals eat pyaaz kachori for breakfast.",
		"Every dish here is cooked in ghee.",
	})
	assert.Equal(t, []string{
		"Locals eat pyaaz kachori for breakfast.",
		"Every dish here is cooked in ghee.",
	}, k.Categories[model.CategoryFood])
}

func TestCategorizeKnowledgeEmpty(t *testing.T) {
	k := commands.CategorizeKnowledge("Goa", nil, nil)
	assert.Empty(t, k.NonEmpty())
}

func TestCategoryNames(t *testing.T) {
	assert.Equal(t, "Travel_tips", commands.CategoryLabel("travel_tips"))
	assert.Equal(t, "Attractions", commands.CategoryLabel("attractions"))
	assert.Equal(t, "TRAVEL_TIPS", commands.CategoryRelationship("travel_tips"))
	assert.Empty(t, commands.CategoryLabel(""))
}

func TestGraphStatements(t *testing.T) {
	k := &model.DestinationKnowledge{
		Destination: "Agra",
		Categories: map[string][]string{
			model.CategoryAttractions: {"Mehtab Bagh garden"},
			model.CategoryTravelTips:  {"Visit at sunrise.", "Fridays are closed."},
			model.CategoryFood:        {},
		},
	}
	statements := commands.GraphStatements(k)
	require.Len(t, statements, 4)

	assert.Contains(t, statements[0].Query, "DETACH DELETE")
	assert.Equal(t, "Agra", statements[0].Params["destination"])
	assert.Contains(t, statements[1].Query, "MERGE (d:Destination {name: $destination})")

	assert.Contains(t, statements[2].Query, "CREATE (d)-[:ATTRACTIONS]->(c:Attractions {name: $category})")
	assert.Equal(t, "attractions", statements[2].Params["category"])
	assert.Contains(t, statements[3].Query, "CREATE (d)-[:TRAVEL_TIPS]->(c:Travel_tips {name: $category})")
	assert.Contains(t, statements[3].Query, "CREATE (c)-[:HAS]->(:Item {name: item})")
	assert.Equal(t, []string{"Visit at sunrise.", "Fridays are closed."}, statements[3].Params["items"])
}

func TestNormalizeExtraction(t *testing.T) {
	doc := commands.NormalizeExtraction(&model.EntityExtraction{
		Entities:  []model.NamedEntity{{Text: "  Jaipur ", Label: "gpe"}, {Text: " ", Label: "LOC"}},
		Sentences: []model.SentenceLabel{{Sentence: " Amber Fort. ", Label: "Tourist Attraction ", Score: 0.9}, {Sentence: ""}},
	})
	assert.Equal(t, []model.NamedEntity{{Text: "Jaipur", Label: "GPE"}}, doc.Entities)
	assert.Equal(t, []model.SentenceLabel{{Sentence: "Amber Fort.", Label: "tourist attraction", Score: 0.9}}, doc.Sentences)
}

func TestParseModelJSON(t *testing.T) {
	doc, err := commands.ParseModelJSON[model.RelationshipExtraction]("Here you go:\n{\"relationships\": [{\"subject\": \"A\", \"object\": \"B\"}]}\nHope it helps")
	require.NoError(t, err)
	require.Len(t, doc.Relationships, 1)
	assert.Equal(t, "A", doc.Relationships[0].Subject)

	_, err = commands.ParseModelJSON[model.RelationshipExtraction]("no json here")
	assert.Error(t, err)
}

func mustTemplate(t *testing.T, text string) *template.Template {
	tmpl, err := template.New("prompt").Parse(text)
	require.NoError(t, err)
	return tmpl
}

func TestPromptExecutorAndJsonToStruct(t *testing.T) {
	gen := &test.FakeGenerator{Default: "```json\n{\"answers\": [{\"question\": \"What is the main attraction?\", \"answer\": \"Amber Fort\", \"score\": 0.7}]}\n```"}
	c := newContext(map[string]interface{}{commands.ParamRefined: test.GetTestRefinedTranscript()})

	chain := cor.NewBaseChain("key-info").
		AddCommand(commands.NewPromptExecutor("key-info-prompt", gen, mustTemplate(t, "Destination {{.DESTINATION}}: {{.TEXT}}"),
			commands.RefinedTextParam(nil), commands.ParamRefined, commands.ParamKeyInfoJSON)).
		AddCommand(commands.NewJsonToStruct[model.KeyInformationExtraction]("key-info-json", commands.ParamKeyInfoJSON, commands.ParamKeyInfo))
	chain.Execute(c)

	require.NoError(t, c.Err())
	info := c.Get(commands.ParamKeyInfo).(*model.KeyInformationExtraction)
	require.Len(t, info.Answers, 1)
	assert.Equal(t, "Amber Fort", info.Answers[0].Answer)
	require.Len(t, gen.Prompts, 1)
	assert.True(t, strings.HasPrefix(gen.Prompts[0], "Destination Jaipur: Jaipur, the capital"))
}

func TestPromptExecutorEmptyResponseFails(t *testing.T) {
	gen := &test.FakeGenerator{Default: "  "}
	c := newContext(map[string]interface{}{commands.ParamRefined: test.GetTestRefinedTranscript()})
	commands.NewPromptExecutor("p", gen, mustTemplate(t, "{{.TEXT}}"), commands.RefinedTextParam(nil), commands.ParamRefined, commands.ParamKeyInfoJSON).Execute(c)
	require.Error(t, c.Err())
	assert.ErrorIs(t, c.GetErrors()["p"], commands.ErrEmptyResponse)
}

func TestTranscriptParam(t *testing.T) {
	c := newContext(map[string]interface{}{commands.ParamTranscript: test.GetTestRawTranscript()})
	params, err := commands.TranscriptParam(c)
	require.NoError(t, err)
	assert.Equal(t, test.GetTestRawTranscript().Transcript, params["RAW_TRANSCRIPT"])

	_, err = commands.TranscriptParam(newContext(nil))
	assert.Error(t, err)
}

func TestEntityRecognizer(t *testing.T) {
	response, _ := json.Marshal(model.GetExampleEntityExtraction())
	gen := &test.FakeGenerator{Default: string(response)}
	recognizer := commands.NewEntityRecognizer("entities", gen, mustTemplate(t, "{{.EXAMPLE_JSON}} {{.TEXT}}"))

	c := newContext(map[string]interface{}{commands.ParamRefined: test.GetTestRefinedTranscript()})
	require.True(t, recognizer.IsExecutable(c))
	recognizer.Execute(c)
	require.NoError(t, c.Err())
	doc := c.Get(commands.ParamEntityExtraction).(*model.EntityExtraction)
	assert.Len(t, doc.Entities, len(model.GetExampleEntityExtraction().Entities))

	assert.False(t, recognizer.IsExecutable(c), "an existing extraction is reused")
	require.Len(t, gen.Prompts, 1)
	assert.Contains(t, gen.Prompts[0], `"label":"FAC"`)
}

func TestEntityRecognizerModelError(t *testing.T) {
	gen := &test.FakeGenerator{Err: errors.New("unavailable")}
	c := newContext(map[string]interface{}{commands.ParamRefined: test.GetTestRefinedTranscript()})
	commands.NewEntityRecognizer("entities", gen, mustTemplate(t, "{{.TEXT}}")).Execute(c)
	assert.Error(t, c.Err())
	assert.Nil(t, c.Get(commands.ParamEntityExtraction))
	assert.Len(t, gen.Prompts, cloud.MaxRetries+1)
}

func TestKnowledgeCategorizerCommand(t *testing.T) {
	c := newContext(map[string]interface{}{
		commands.ParamRefined:          test.GetTestRefinedTranscript(),
		commands.ParamEntityExtraction: model.GetExampleEntityExtraction(),
	})
	commands.NewKnowledgeCategorizer("categorize").Execute(c)
	k := c.Get(commands.ParamDestinationKnowledge).(*model.DestinationKnowledge)
	assert.Equal(t, "Jaipur", k.Destination)
	assert.Equal(t, []string{"Albert Hall Museum"}, k.Categories[model.CategoryAttractions])
	assert.Equal(t, []string{
		"Visitors should explore the City Palace and the Albert Hall Museum.",
		"The best time to visit is from October to March, when the Teej Festival fills the streets.",
	}, k.Categories[model.CategoryActivities])
	assert.Equal(t, []string{"A useful tip is to buy the composite ticket that covers most monuments."}, k.Categories[model.CategoryTravelTips])
}
