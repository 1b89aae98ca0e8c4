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
package commands

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/cor"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/model"
)

// maxCorpusDocumentLength caps each document of the topic corpus, in runes.
const maxCorpusDocumentLength = 4000

// BuildTopicCorpus renders the refined transcripts as one prompt section per
// document, each headed by its destination.
func BuildTopicCorpus(docs []*model.RefinedTranscript) string {
	var b strings.Builder
	for i, d := range docs {
		text := []rune(d.RefinedTranscript)
		if len(text) > maxCorpusDocumentLength {
			text = text[:maxCorpusDocumentLength]
		}
		fmt.Fprintf(&b, "Document %d [%s]:\n%s\n\n", i+1, d.Destination, string(text))
	}
	return strings.TrimSpace(b.String())
}

// TopicCorpus turns the batch of refined transcripts into the topic prompt corpus.
type TopicCorpus struct {
	cor.BaseCommand
}

func NewTopicCorpus(name string) *TopicCorpus {
	out := &TopicCorpus{BaseCommand: *cor.NewBaseCommand(name)}
	out.OutputParamName = ParamTopicsCorpus
	return out
}

func (t *TopicCorpus) Execute(context cor.Context) {
	docs, ok := context.Get(t.GetInputParam()).([]*model.RefinedTranscript)
	if !ok || len(docs) == 0 {
		t.Fail(context, fmt.Errorf("no refined transcripts to analyse"))
		return
	}
	context.Add(ParamTopicsDocuments, len(docs))
	t.Succeed(context, BuildTopicCorpus(docs))
}

// TopicParams exposes the corpus as {{.CORPUS}} and an example answer as {{.EXAMPLE_JSON}}.
func TopicParams(context cor.Context) (map[string]interface{}, error) {
	corpus, ok := context.Get(ParamTopicsCorpus).(string)
	if !ok {
		return nil, fmt.Errorf("context parameter %s is not a string", ParamTopicsCorpus)
	}
	example, _ := json.Marshal(model.GetExampleTopicAnalysis())
	return map[string]interface{}{"CORPUS": corpus, "EXAMPLE_JSON": string(example)}, nil
}

// TopicPersist stores the topic analysis of the batch.
type TopicPersist struct {
	cor.BaseCommand
	collection *mongo.Collection
}

func NewTopicPersist(name string, db *mongo.Database) *TopicPersist {
	out := &TopicPersist{BaseCommand: *cor.NewBaseCommand(name), collection: db.Collection(CollectionTopics)}
	out.InputParamName = ParamTopicAnalysis
	return out
}

func (t *TopicPersist) Execute(context cor.Context) {
	analysis := context.Get(t.GetInputParam()).(*model.TopicAnalysis)
	if n, ok := context.Get(ParamTopicsDocuments).(int); ok {
		analysis.Documents = n
	}
	analysis.CreatedAt = time.Now()
	if _, err := t.collection.InsertOne(context.GetContext(), analysis); err != nil {
		t.Fail(context, fmt.Errorf("failed to store topic analysis: %w", err))
		return
	}
	t.Succeed(context, analysis)
}
