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
// Package workflow assembles the commands into the pipeline stages: scrape,
// refine, knowledge graph, semantic enrichment and topic analysis. Each
// workflow is a cor.Command wrapping a chain, so workflows nest and can be
// driven by a Pub/Sub listener, the batch CLI or an HTTP handler alike.
package workflow

import (
	"text/template"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/cor"
)

// Names of the model configurations the workflows use by default.
const (
	DefaultAgentModel     = "creative-flash"
	DefaultEmbeddingModel = "multi-lingual"
)

// mustParse compiles a prompt template. The application cannot run without
// valid templates, so a parse failure panics at construction time.
func mustParse(name string, text string) *template.Template {
	out, err := template.New(name).Parse(text)
	if err != nil {
		panic(err)
	}
	return out
}

// stepNames lists the command names of chain in execution order.
func stepNames(chain *cor.BaseChain) []string {
	out := make([]string, 0, len(chain.Commands()))
	for _, c := range chain.Commands() {
		out = append(out, c.GetName())
	}
	return out
}
