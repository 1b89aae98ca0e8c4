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
package workflow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/commands"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/cor"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/model"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/workflow"
	test "github.com/jaycherian/gcp-go-travel-knowledge/internal/testutil"
)

func TestScrapeWorkflowSteps(t *testing.T) {
	scrape := workflow.NewScrapeWorkflowWithCaptions(config, cloudClients, &test.FakeCaptions{})
	assert.Equal(t, []string{
		"destination-trigger",
		"video-discovery",
		"seen-filter",
		"transcript-fetcher",
		"best-transcript-persist",
		"seen-marker",
	}, scrape.Steps())
}

func TestScrapeWorkflowRejectsEmptyDestination(t *testing.T) {
	traceCtx, span := tracer.Start(ctx, "scrape-empty-destination")
	defer span.End()

	scrape := workflow.NewScrapeWorkflowWithCaptions(config, cloudClients, &test.FakeCaptions{})
	chainCtx := cor.NewContextWithInput(traceCtx, `{"destination": "  "}`)
	scrape.Execute(chainCtx)

	require.True(t, chainCtx.HasErrors())
	assert.Contains(t, chainCtx.GetErrors(), "destination-trigger")
	assert.Nil(t, chainCtx.Get(commands.ParamCandidates), "discovery must not run")
}

func TestRefineWorkflow(t *testing.T) {
	refine := workflow.NewRefineWorkflowWithModel(config, cloudClients, generator)
	assert.Equal(t, []string{"refine-transcript", "refined-transcript-persist"}, refine.Steps())
	assert.Equal(t, commands.ParamTranscript, refine.GetInputParam())

	chainCtx := cor.NewContextWithInput(ctx, "unused")
	assert.False(t, refine.IsExecutable(chainCtx), "a transcript is required")
	chainCtx.Add(commands.ParamTranscript, test.GetTestRawTranscript())
	assert.True(t, refine.IsExecutable(chainCtx))
}

func TestKnowledgeGraphWorkflowSteps(t *testing.T) {
	graph := workflow.NewKnowledgeGraphWorkflowWithModel(config, cloudClients, generator)
	assert.Equal(t, []string{"entity-recognizer", "knowledge-categorizer", "graph-builder"}, graph.Steps())
	assert.Equal(t, commands.ParamRefined, graph.GetInputParam())
}

func TestSemanticEnrichmentWorkflowSteps(t *testing.T) {
	semantic := workflow.NewSemanticEnrichmentWorkflowWith(config, cloudClients, generator, embedder)
	assert.Equal(t, []string{
		"entity-recognizer",
		"entity-grouper",
		"relationship-extractor",
		"relationship-to-struct",
		"key-information-extractor",
		"key-information-to-struct",
		"keyword-extractor",
		"text-embedder",
		"semantic-graph-builder",
		"knowledge-assembler",
		"knowledge-persist",
		"embedding-export",
	}, semantic.Steps())
}

func TestEnrichWorkflowNestsTheStages(t *testing.T) {
	enrich := workflow.NewEnrichWorkflow(config, cloudClients, workflow.DefaultAgentModel, workflow.DefaultEmbeddingModel)
	assert.Equal(t, []string{
		"enrich-trigger",
		"transcript-loader",
		"refine-workflow",
		"knowledge-graph-workflow",
		"semantic-enrichment-workflow",
	}, enrich.Steps())
}

func TestEnrichWorkflowRejectsIncompleteRequest(t *testing.T) {
	enrich := workflow.NewEnrichWorkflow(config, cloudClients, workflow.DefaultAgentModel, workflow.DefaultEmbeddingModel)
	chainCtx := cor.NewContextWithInput(ctx, `{"destination": "Jaipur"}`)
	enrich.Execute(chainCtx)

	require.Error(t, chainCtx.Err())
	assert.Contains(t, chainCtx.GetErrors(), "enrich-trigger")
	assert.Len(t, chainCtx.GetErrors(), 1)
}

func TestTopicWorkflowNeedsDocuments(t *testing.T) {
	topics := workflow.NewTopicWorkflow(config, cloudClients, workflow.DefaultAgentModel)
	assert.Equal(t, []string{"topic-corpus", "topic-analysis", "topic-to-struct", "topic-persist"}, topics.Steps())

	chainCtx := cor.NewContextWithInput(ctx, []*model.RefinedTranscript{})
	topics.Execute(chainCtx)
	assert.Contains(t, chainCtx.GetErrors(), "topic-corpus")
}
