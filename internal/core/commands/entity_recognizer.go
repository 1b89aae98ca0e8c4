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
	"fmt"
	"strings"
	"text/template"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/cloud"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/cor"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/model"
)

// EntityRecognizer asks the model for the named entities and labelled
// sentences of the refined transcript. It does nothing when an earlier chain
// already left an extraction in the context, so the graph and enrichment
// workflows can share one model call.
type EntityRecognizer struct {
	cor.BaseCommand
	prompt *PromptExecutor
}

func NewEntityRecognizer(name string, generativeAIModel cloud.ContentGenerator, template *template.Template) *EntityRecognizer {
	out := &EntityRecognizer{
		BaseCommand: *cor.NewBaseCommand(name),
		prompt: NewPromptExecutor(name, generativeAIModel, template,
			RefinedTextParam(model.GetExampleEntityExtraction()), ParamRefined, ParamEntityExtraction),
	}
	out.InputParamName = ParamRefined
	out.OutputParamName = ParamEntityExtraction
	return out
}

func (e *EntityRecognizer) IsExecutable(context cor.Context) bool {
	return e.BaseCommand.IsExecutable(context) && context.Get(ParamEntityExtraction) == nil
}

func (e *EntityRecognizer) Execute(context cor.Context) {
	text, err := e.prompt.Generate(context)
	if err != nil {
		e.Fail(context, err)
		return
	}
	doc, err := ParseModelJSON[model.EntityExtraction](text)
	if err != nil {
		e.Fail(context, fmt.Errorf("entity extraction: %w", err))
		return
	}
	e.Succeed(context, NormalizeExtraction(doc))
}

// NormalizeExtraction trims entity texts, upper-cases labels and drops empty
// entries so that the categorisation rules can compare labels directly.
func NormalizeExtraction(doc *model.EntityExtraction) *model.EntityExtraction {
	out := &model.EntityExtraction{
		Entities:  make([]model.NamedEntity, 0, len(doc.Entities)),
		Sentences: make([]model.SentenceLabel, 0, len(doc.Sentences)),
	}
	for _, e := range doc.Entities {
		text := strings.TrimSpace(e.Text)
		if text == "" {
			continue
		}
		out.Entities = append(out.Entities, model.NamedEntity{Text: text, Label: strings.ToUpper(strings.TrimSpace(e.Label))})
	}
	for _, s := range doc.Sentences {
		sentence := strings.TrimSpace(s.Sentence)
		if sentence == "" {
			continue
		}
		out.Sentences = append(out.Sentences, model.SentenceLabel{
			Sentence: sentence,
			Label:    strings.ToLower(strings.TrimSpace(s.Label)),
			Score:    s.Score,
		})
	}
	return out
}
