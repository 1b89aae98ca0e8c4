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
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"text/template"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/cloud"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/model"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/nlp"
)

// NoKnowledge is sent as the knowledge section when the graph has nothing on the question.
const NoKnowledge = "No relevant knowledge found."

// DefaultAnswerPrompt is used when no answer template is configured.
const DefaultAnswerPrompt = "Question: {{.QUESTION}}\nKnowledge: {{.KNOWLEDGE}}\nAnswer:"

// ErrNoAgentModel is returned by Ask when the service has no model to phrase answers.
var ErrNoAgentModel = errors.New("no agent model is configured")

// FactFinder looks up graph facts for a keyword. GraphService implements it.
type FactFinder interface {
	RelatedFacts(ctx context.Context, keyword string, limit int) ([]Fact, error)
}

// RAGService answers travel questions from the knowledge graph: it pulls the
// facts touching each question keyword and lets the agent model phrase the answer.
type RAGService struct {
	facts        FactFinder
	model        cloud.ContentGenerator
	template     *template.Template
	inputTokens  metric.Int64Counter
	outputTokens metric.Int64Counter
	retryCounter metric.Int64Counter
}

// NewRAGService creates the agent. An empty prompt selects DefaultAnswerPrompt.
func NewRAGService(facts FactFinder, generator cloud.ContentGenerator, prompt string) (*RAGService, error) {
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultAnswerPrompt
	}
	tmpl, err := template.New("answer-template").Parse(prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse answer prompt: %w", err)
	}
	meter := otel.Meter("rag-service")
	out := &RAGService{facts: facts, model: generator, template: tmpl}
	out.inputTokens, _ = meter.Int64Counter("rag.gemini.token.input")
	out.outputTokens, _ = meter.Int64Counter("rag.gemini.token.output")
	out.retryCounter, _ = meter.Int64Counter("rag.gemini.retry")
	return out, nil
}

// RetrieveKnowledge collects the distinct facts for the question keywords, in
// keyword order.
func (s *RAGService) RetrieveKnowledge(ctx context.Context, keywords []string) ([]string, error) {
	out := make([]string, 0)
	for _, kw := range keywords {
		facts, err := s.facts.RelatedFacts(ctx, kw, DefaultFactLimit)
		if err != nil {
			return nil, err
		}
		for _, f := range facts {
			if line := f.String(); !slices.Contains(out, line) {
				out = append(out, line)
			}
		}
	}
	return out, nil
}

// FormatKnowledge joins the facts one per line, or returns NoKnowledge.
func FormatKnowledge(facts []string) string {
	if len(facts) == 0 {
		return NoKnowledge
	}
	return strings.Join(facts, "\n")
}

// Ask answers question.
func (s *RAGService) Ask(ctx context.Context, question string) (*model.RAGAnswer, error) {
	if s.model == nil {
		return nil, ErrNoAgentModel
	}
	keywords := nlp.QueryKeywords(question)
	facts, err := s.RetrieveKnowledge(ctx, keywords)
	if err != nil {
		return nil, err
	}

	var prompt bytes.Buffer
	if err := s.template.Execute(&prompt, map[string]interface{}{
		"QUESTION":  question,
		"KNOWLEDGE": FormatKnowledge(facts),
	}); err != nil {
		return nil, fmt.Errorf("failed to render answer prompt: %w", err)
	}

	answer, err := cloud.GenerateTextResponse(ctx, s.inputTokens, s.outputTokens, s.retryCounter, 0, s.model, cloud.NewTextPart(prompt.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}
	return &model.RAGAnswer{Question: question, Answer: strings.TrimSpace(answer), Keywords: keywords, Facts: facts}, nil
}
