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
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"go.opentelemetry.io/otel/metric"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/cloud"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/cor"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/model"
)

// ErrEmptyResponse is recorded when the model answers with no text.
var ErrEmptyResponse = errors.New("model returned an empty response")

// ParamsBuilder produces the template variables of a prompt from the chain context.
type ParamsBuilder func(context cor.Context) (map[string]interface{}, error)

// PromptExecutor renders a text/template prompt from the context, sends it to a
// generative model and writes the cleaned text response to its output param.
// Refinement, entity recognition, relationship and key-information extraction
// and topic analysis are all instances of it with different templates.
type PromptExecutor struct {
	cor.BaseCommand
	generativeAIModel        cloud.ContentGenerator
	template                 *template.Template
	params                   ParamsBuilder
	geminiInputTokenCounter  metric.Int64Counter
	geminiOutputTokenCounter metric.Int64Counter
	geminiRetryCounter       metric.Int64Counter
}

// NewPromptExecutor creates the command. inputParam is the context key that must
// be present for the command to run; outputParam receives the response text.
func NewPromptExecutor(
	name string,
	generativeAIModel cloud.ContentGenerator,
	template *template.Template,
	params ParamsBuilder,
	inputParam string,
	outputParam string) *PromptExecutor {

	out := &PromptExecutor{
		BaseCommand:       *cor.NewBaseCommand(name),
		generativeAIModel: generativeAIModel,
		template:          template,
		params:            params,
	}
	out.InputParamName = inputParam
	out.OutputParamName = outputParam

	out.geminiInputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.input", out.GetName()))
	out.geminiOutputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.output", out.GetName()))
	out.geminiRetryCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.retry", out.GetName()))
	return out
}

func (t *PromptExecutor) Execute(context cor.Context) {
	out, err := t.Generate(context)
	if err != nil {
		t.Fail(context, err)
		return
	}
	t.Succeed(context, out)
}

// Generate renders the prompt for the current context and returns the
// cleaned model response without touching the context outputs.
func (t *PromptExecutor) Generate(context cor.Context) (string, error) {
	params, err := t.params(context)
	if err != nil {
		return "", fmt.Errorf("failed to build prompt parameters: %w", err)
	}

	var buffer bytes.Buffer
	if err = t.template.Execute(&buffer, params); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}

	out, err := cloud.GenerateTextResponse(
		context.GetContext(),
		t.geminiInputTokenCounter,
		t.geminiOutputTokenCounter,
		t.geminiRetryCounter,
		0,
		t.generativeAIModel,
		cloud.NewTextPart(buffer.String()))
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	if strings.TrimSpace(out) == "" {
		return "", ErrEmptyResponse
	}

	if m, ok := t.generativeAIModel.(*cloud.QuotaAwareGenerativeAIModel); ok {
		recordModelUsed(context, m.ModelName)
	}
	return out, nil
}

// TextParam is a ParamsBuilder that exposes one string-valued context entry
// under the template variable name.
func TextParam(variable string, param string) ParamsBuilder {
	return func(context cor.Context) (map[string]interface{}, error) {
		v, ok := context.Get(param).(string)
		if !ok {
			return nil, fmt.Errorf("context parameter %s is not a string", param)
		}
		return map[string]interface{}{variable: v}, nil
	}
}

// RefinedTextParam exposes the refined transcript as {{.TEXT}}, its
// destination as {{.DESTINATION}} and example serialized as {{.EXAMPLE_JSON}}.
func RefinedTextParam(example interface{}) ParamsBuilder {
	exampleJSON := ""
	if example != nil {
		b, _ := json.Marshal(example)
		exampleJSON = string(b)
	}
	return func(context cor.Context) (map[string]interface{}, error) {
		refined, ok := context.Get(ParamRefined).(*model.RefinedTranscript)
		if !ok {
			return nil, fmt.Errorf("context parameter %s is not a refined transcript", ParamRefined)
		}
		return map[string]interface{}{
			"TEXT":         refined.RefinedTranscript,
			"DESTINATION":  refined.Destination,
			"EXAMPLE_JSON": exampleJSON,
		}, nil
	}
}
