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

// RefineWorkflow rewrites a raw transcript (commands.ParamTranscript) into a
// travel summary and upserts it into refined_transcripts. The stored
// *model.RefinedTranscript is left in commands.ParamRefined for the
// knowledge workflows that may follow.
type RefineWorkflow struct {
	cor.BaseCommand
	chain *cor.BaseChain
}

func (r *RefineWorkflow) Execute(context cor.Context) {
	r.chain.Execute(context)
}

// Steps returns the command names of the workflow in execution order.
func (r *RefineWorkflow) Steps() []string {
	return stepNames(r.chain)
}

// NewRefineWorkflow builds the refinement workflow on the named agent model.
func NewRefineWorkflow(config *cloud.Config, serviceClients *cloud.ServiceClients, agentModelName string) *RefineWorkflow {
	return NewRefineWorkflowWithModel(config, serviceClients, serviceClients.AgentModels[agentModelName])
}

// NewRefineWorkflowWithModel builds the refinement workflow on generator.
func NewRefineWorkflowWithModel(config *cloud.Config, serviceClients *cloud.ServiceClients, generator cloud.ContentGenerator) *RefineWorkflow {
	refineTemplate := mustParse("refine-template", config.PromptTemplates.RefinePrompt)

	out := &RefineWorkflow{BaseCommand: *cor.NewBaseCommand("refine-workflow")}
	out.InputParamName = commands.ParamTranscript

	chain := cor.NewBaseChain(out.GetName())
	chain.AddCommand(commands.NewPromptExecutor("refine-transcript", generator, refineTemplate,
		commands.TranscriptParam, commands.ParamTranscript, commands.ParamRefinedText))
	chain.AddCommand(commands.NewRefinedTranscriptPersist("refined-transcript-persist", serviceClients.MongoDatabase))
	out.chain = chain
	return out
}
