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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/services"
	test "github.com/jaycherian/gcp-go-travel-knowledge/internal/testutil"
)

type fakeFacts struct {
	facts    map[string][]services.Fact
	err      error
	keywords []string
}

func (f *fakeFacts) RelatedFacts(_ context.Context, keyword string, limit int) ([]services.Fact, error) {
	f.keywords = append(f.keywords, keyword)
	if f.err != nil {
		return nil, f.err
	}
	out := f.facts[keyword]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func TestFactString(t *testing.T) {
	f := services.Fact{Source: "Jaipur", Relationship: "HAS_ATTRACTION", Target: "Amber Fort"}
	assert.Equal(t, "Jaipur (HAS_ATTRACTION) Amber Fort", f.String())
}

func TestFormatKnowledge(t *testing.T) {
	assert.Equal(t, services.NoKnowledge, services.FormatKnowledge(nil))
	assert.Equal(t, "a\nb", services.FormatKnowledge([]string{"a", "b"}))
}

func TestAskGroundsTheAnswerInGraphFacts(t *testing.T) {
	shared := services.Fact{Source: "Jaipur", Relationship: "HAS_ATTRACTION", Target: "Amber Fort"}
	facts := &fakeFacts{facts: map[string][]services.Fact{
		"forts":  {shared},
		"jaipur": {shared, {Source: "Jaipur", Relationship: "HAS_TRAVEL_TIP", Target: "Visit October to March"}},
	}}
	generator := &test.FakeGenerator{Default: "  Amber Fort is the highlight.  "}

	rag, err := services.NewRAGService(facts, generator, "")
	require.NoError(t, err)

	answer, err := rag.Ask(context.Background(), "Which forts are in Jaipur?")
	require.NoError(t, err)
	assert.Equal(t, []string{"forts", "jaipur"}, facts.keywords)
	assert.Equal(t, []string{"forts", "jaipur"}, answer.Keywords)
	assert.Equal(t, []string{
		"Jaipur (HAS_ATTRACTION) Amber Fort",
		"Jaipur (HAS_TRAVEL_TIP) Visit October to March",
	}, answer.Facts)
	assert.Equal(t, "Amber Fort is the highlight.", answer.Answer)

	require.Len(t, generator.Prompts, 1)
	assert.Equal(t,
		"Question: Which forts are in Jaipur?\nKnowledge: Jaipur (HAS_ATTRACTION) Amber Fort\nJaipur (HAS_TRAVEL_TIP) Visit October to March\nAnswer:",
		generator.Prompts[0])
}

func TestAskWithoutFacts(t *testing.T) {
	generator := &test.FakeGenerator{Default: "I do not know."}
	rag, err := services.NewRAGService(&fakeFacts{}, generator, "{{.KNOWLEDGE}}")
	require.NoError(t, err)

	answer, err := rag.Ask(context.Background(), "best beaches")
	require.NoError(t, err)
	assert.Empty(t, answer.Facts)
	assert.Equal(t, services.NoKnowledge, generator.Prompts[0])
}

func TestAskPropagatesGraphErrors(t *testing.T) {
	rag, err := services.NewRAGService(&fakeFacts{err: errors.New("graph down")}, &test.FakeGenerator{}, "")
	require.NoError(t, err)
	_, err = rag.Ask(context.Background(), "Goa nightlife")
	require.ErrorContains(t, err, "graph down")
}

func TestAskWithoutAgentModel(t *testing.T) {
	facts := &fakeFacts{}
	rag, err := services.NewRAGService(facts, nil, "")
	require.NoError(t, err)

	_, err = rag.Ask(context.Background(), "Goa nightlife")
	require.ErrorIs(t, err, services.ErrNoAgentModel)
	assert.Empty(t, facts.keywords)
}

func TestNewRAGServiceRejectsBadPrompt(t *testing.T) {
	_, err := services.NewRAGService(&fakeFacts{}, &test.FakeGenerator{}, "{{.QUESTION")
	require.Error(t, err)
}
