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

// TopicWorkflow asks the agent model for the themes running through a batch
// of refined transcripts (CtxIn, []*model.RefinedTranscript) and stores the
// analysis in topic_analysis.
type TopicWorkflow struct {
	cor.BaseCommand
	chain *cor.BaseChain
}

func (t *TopicWorkflow) Execute(context cor.Context) {
	t.chain.Execute(context)
}

// Steps returns the command names of the workflow in execution order.
func (t *TopicWorkflow) Steps() []string {
	return stepNames(t.chain)
}

func NewTopicWorkflow(config *cloud.Config, serviceClients *cloud.ServiceClients, agentModelName string) *TopicWorkflow {
	topicTemplate := mustParse("topic-template", config.PromptTemplates.TopicsPrompt)

	out := &TopicWorkflow{BaseCommand: *cor.NewBaseCommand("topic-workflow")}
	chain := cor.NewBaseChain(out.GetName())
	chain.AddCommand(commands.NewTopicCorpus("topic-corpus"))
	chain.AddCommand(commands.NewPromptExecutor("topic-analysis", serviceClients.AgentModels[agentModelName], topicTemplate,
		commands.TopicParams, commands.ParamTopicsCorpus, commands.ParamTopicsJSON))
	chain.AddCommand(commands.NewJsonToStruct[model.TopicAnalysis]("topic-to-struct", commands.ParamTopicsJSON, commands.ParamTopicAnalysis))
	chain.AddCommand(commands.NewTopicPersist("topic-persist", serviceClients.MongoDatabase))
	out.chain = chain
	return out
}
