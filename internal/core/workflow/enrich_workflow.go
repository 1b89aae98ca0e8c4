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

// EnrichWorkflow handles one EnrichTopic message: it loads the stored
// transcript named by {"destination":..,"video_id":..}, refines it, rebuilds
// the destination graph and writes the enhanced knowledge entry.
type EnrichWorkflow struct {
	cor.BaseCommand
	chain *cor.BaseChain
}

func (e *EnrichWorkflow) Execute(context cor.Context) {
	e.chain.Execute(context)
}

// Steps returns the command names of the workflow in execution order.
func (e *EnrichWorkflow) Steps() []string {
	return stepNames(e.chain)
}

func NewEnrichWorkflow(
	config *cloud.Config,
	serviceClients *cloud.ServiceClients,
	agentModelName string,
	embeddingModelName string) *EnrichWorkflow {

	out := &EnrichWorkflow{BaseCommand: *cor.NewBaseCommand("enrich-workflow")}

	chain := cor.NewBaseChain(out.GetName())
	chain.AddCommand(commands.NewEnrichTrigger("enrich-trigger"))
	chain.AddCommand(commands.NewTranscriptLoader("transcript-loader", serviceClients.MongoDatabase))
	chain.AddCommand(NewRefineWorkflow(config, serviceClients, agentModelName))
	chain.AddCommand(NewKnowledgeGraphWorkflow(config, serviceClients, agentModelName))
	chain.AddCommand(NewSemanticEnrichmentWorkflow(config, serviceClients, agentModelName, embeddingModelName))
	out.chain = chain
	return out
}
