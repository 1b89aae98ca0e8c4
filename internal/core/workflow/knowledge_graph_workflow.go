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
)

// KnowledgeGraphWorkflow extracts entities from a refined transcript
// (commands.ParamRefined), sorts them into the destination categories and
// rebuilds the destination's subgraph in Neo4j.
type KnowledgeGraphWorkflow struct {
	cor.BaseCommand
	chain *cor.BaseChain
}

func (k *KnowledgeGraphWorkflow) Execute(context cor.Context) {
	k.chain.Execute(context)
}

// Steps returns the command names of the workflow in execution order.
func (k *KnowledgeGraphWorkflow) Steps() []string {
	return stepNames(k.chain)
}

func NewKnowledgeGraphWorkflow(config *cloud.Config, serviceClients *cloud.ServiceClients, agentModelName string) *KnowledgeGraphWorkflow {
	return NewKnowledgeGraphWorkflowWithModel(config, serviceClients, serviceClients.AgentModels[agentModelName])
}

func NewKnowledgeGraphWorkflowWithModel(config *cloud.Config, serviceClients *cloud.ServiceClients, generator cloud.ContentGenerator) *KnowledgeGraphWorkflow {
	entityTemplate := mustParse("entity-template", config.PromptTemplates.EntitiesPrompt)

	out := &KnowledgeGraphWorkflow{BaseCommand: *cor.NewBaseCommand("knowledge-graph-workflow")}
	out.InputParamName = commands.ParamRefined

	chain := cor.NewBaseChain(out.GetName())
	chain.AddCommand(commands.NewEntityRecognizer("entity-recognizer", generator, entityTemplate))
	chain.AddCommand(commands.NewKnowledgeCategorizer("knowledge-categorizer"))
	chain.AddCommand(commands.NewGraphBuilder("graph-builder", serviceClients.Neo4jDriver, config.Neo4j.Database))
	out.chain = chain
	return out
}
