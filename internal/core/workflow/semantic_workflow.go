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
package workflow

import (
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/cloud"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/commands"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/cor"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/model"
)

// SemanticEnrichmentWorkflow turns a refined transcript (commands.ParamRefined)
// into an enhanced knowledge base entry: grouped entities, relationships, key
// information, keywords, embeddings and the semantic graph. The entry is
// upserted into enhanced_knowledge_base and its embedding exported to
// BigQuery.
type SemanticEnrichmentWorkflow struct {
	cor.BaseCommand
	chain *cor.BaseChain
}

func (s *SemanticEnrichmentWorkflow) Execute(context cor.Context) {
	s.chain.Execute(context)
}

// Steps returns the command names of the workflow in execution order.
func (s *SemanticEnrichmentWorkflow) Steps() []string {
	return stepNames(s.chain)
}

// NewSemanticEnrichmentWorkflow builds the workflow on the named agent and
// embedding models. A local embedder, when loaded, replaces the embedding model.
func NewSemanticEnrichmentWorkflow(config *cloud.Config, serviceClients *cloud.ServiceClients, agentModelName string, embeddingModelName string) *SemanticEnrichmentWorkflow {
	return NewSemanticEnrichmentWorkflowWith(config, serviceClients,
		serviceClients.AgentModels[agentModelName], serviceClients.Embedder(embeddingModelName))
}

func NewSemanticEnrichmentWorkflowWith(config *cloud.Config, serviceClients *cloud.ServiceClients, generator cloud.ContentGenerator, embedder cloud.Embedder) *SemanticEnrichmentWorkflow {
	entityTemplate := mustParse("entity-template", config.PromptTemplates.EntitiesPrompt)
	relationshipTemplate := mustParse("relationship-template", config.PromptTemplates.RelationshipsPrompt)
	keyInfoTemplate := mustParse("key-information-template", config.PromptTemplates.KeyInfoPrompt)

	out := &SemanticEnrichmentWorkflow{BaseCommand: *cor.NewBaseCommand("semantic-enrichment-workflow")}
	out.InputParamName = commands.ParamRefined

	chain := cor.NewBaseChain(out.GetName())

	// Entities, reusing an extraction left by the graph workflow.
	chain.AddCommand(commands.NewEntityRecognizer("entity-recognizer", generator, entityTemplate))
	chain.AddCommand(commands.NewEntityGrouper("entity-grouper"))

	chain.AddCommand(commands.NewPromptExecutor("relationship-extractor", generator, relationshipTemplate,
		commands.RefinedTextParam(model.GetExampleRelationships()), commands.ParamRefined, commands.ParamRelationshipsJSON))
	chain.AddCommand(commands.NewJsonToStruct[model.RelationshipExtraction]("relationship-to-struct",
		commands.ParamRelationshipsJSON, commands.ParamRelationships))

	chain.AddCommand(commands.NewPromptExecutor("key-information-extractor", generator, keyInfoTemplate,
		commands.RefinedTextParam(model.GetExampleKeyInformation()), commands.ParamRefined, commands.ParamKeyInfoJSON))
	chain.AddCommand(commands.NewJsonToStruct[model.KeyInformationExtraction]("key-information-to-struct",
		commands.ParamKeyInfoJSON, commands.ParamKeyInfo))

	chain.AddCommand(commands.NewKeywordExtractor("keyword-extractor"))
	chain.AddCommand(commands.NewTextEmbedder("text-embedder", embedder))
	chain.AddCommand(commands.NewSemanticGraphBuilder("semantic-graph-builder", embedder))
	chain.AddCommand(commands.NewKnowledgeAssembler("knowledge-assembler"))
	chain.AddCommand(commands.NewKnowledgePersist("knowledge-persist", serviceClients.MongoDatabase))
	chain.AddCommand(commands.NewEmbeddingExport("embedding-export",
		serviceClients.BigQueryClient,
		config.BigQueryDataSource.DatasetName,
		config.BigQueryDataSource.EmbeddingTable,
		embedderName(embedder),
		serviceClients.MongoDatabase))
	out.chain = chain
	return out
}

func embedderName(embedder cloud.Embedder) string {
	if embedder == nil {
		return ""
	}
	return embedder.ModelName()
}
