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
	"math"
	"slices"
	"strings"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/cloud"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/cor"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/model"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/nlp"
)

// Thresholds of the enrichment stage.
const (
	SentenceLabelThreshold = 0.8 // sentence classifications must score above this
	KeyInformationMinScore = 0.1 // answers must score above this
	DefaultRelationType    = "description"
)

// GroupEntities sorts named entities and classified sentences into the entity
// lists of a knowledge entry. Every list is de-duplicated and never nil.
func GroupEntities(extraction *model.EntityExtraction) *model.Entities {
	out := &model.Entities{}
	lists := map[string]*[]string{
		"locations":         &out.Locations,
		"organizations":     &out.Organizations,
		"people":            &out.People,
		"dates":             &out.Dates,
		"events":            &out.Events,
		"landmarks":         &out.Landmarks,
		"attractions":       &out.Attractions,
		"cultural_elements": &out.CulturalElements,
	}
	for _, l := range lists {
		*l = make([]string, 0)
	}
	add := func(list, value string) {
		target := lists[list]
		if !slices.Contains(*target, value) {
			*target = append(*target, value)
		}
	}

	for _, e := range extraction.Entities {
		switch e.Label {
		case "GPE", "LOC":
			add("locations", e.Text)
		case "ORG":
			add("organizations", e.Text)
		case "PERSON":
			add("people", e.Text)
		case "DATE":
			add("dates", e.Text)
		case "EVENT":
			add("events", e.Text)
		case "FAC":
			add("landmarks", e.Text)
		}
	}
	for _, s := range extraction.Sentences {
		if s.Score <= SentenceLabelThreshold {
			continue
		}
		switch s.Label {
		case "tourist attraction":
			add("attractions", s.Sentence)
		case "cultural element":
			add("cultural_elements", s.Sentence)
		case "landmark":
			add("landmarks", s.Sentence)
		case "event":
			add("events", s.Sentence)
		}
	}
	return out
}

// NormalizeRelationships drops triples without subject or object, maps unknown
// relationship types to "description" and clamps confidences to [0, 1].
func NormalizeRelationships(in []model.Relationship) []model.Relationship {
	out := make([]model.Relationship, 0, len(in))
	for _, r := range in {
		r.Subject = strings.TrimSpace(r.Subject)
		r.Object = strings.TrimSpace(r.Object)
		r.Predicate = strings.TrimSpace(r.Predicate)
		if r.Subject == "" || r.Object == "" {
			continue
		}
		r.RelationshipType = strings.ToLower(strings.TrimSpace(r.RelationshipType))
		if !slices.Contains(model.RelationshipTypes, r.RelationshipType) {
			r.RelationshipType = DefaultRelationType
		}
		r.Confidence = math.Max(0, math.Min(1, r.Confidence))
		out = append(out, r)
	}
	return out
}

// FilterKeyInformation keeps the non-empty answers scoring above KeyInformationMinScore.
func FilterKeyInformation(in []model.QuestionAnswer) []model.QuestionAnswer {
	out := make([]model.QuestionAnswer, 0, len(in))
	for _, qa := range in {
		if strings.TrimSpace(qa.Answer) == "" || qa.Score <= KeyInformationMinScore {
			continue
		}
		out = append(out, qa)
	}
	return out
}

// KeywordsOf runs keyword extraction over text and converts the result to
// the stored form.
func KeywordsOf(text string) []model.Keyword {
	found := nlp.ExtractKeywords(text, nlp.DefaultKeywordOptions)
	out := make([]model.Keyword, 0, len(found))
	for _, k := range found {
		out = append(out, model.Keyword{Keyword: k.Keyword, Score: k.Score})
	}
	return out
}

// BuildSemanticGraph creates one node per distinct entity and an edge for
// every relationship whose subject and object are both nodes. The edge
// carries the cosine similarity of the two node embeddings.
//
// Edges are undirected: a pair is linked once, in the position of its first
// relationship, and a later relationship over the same pair replaces its
// attributes.
func BuildSemanticGraph(entities *model.Entities, relationships []model.Relationship, embeddings map[string][]float32) *model.SemanticGraph {
	nodes := entities.Typed()
	index := make(map[string]int, len(nodes))
	for i := range nodes {
		nodes[i].Embedding = embeddings[nodes[i].ID]
		index[nodes[i].ID] = i
	}

	type pair struct{ a, b string }
	edges := make([]model.GraphEdge, 0)
	position := make(map[pair]int)
	for _, r := range relationships {
		si, okS := index[r.Subject]
		oi, okO := index[r.Object]
		if !okS || !okO {
			continue
		}
		key := pair{r.Subject, r.Object}
		if key.b < key.a {
			key = pair{r.Object, r.Subject}
		}
		edge := model.GraphEdge{
			Source:             r.Subject,
			Target:             r.Object,
			Relationship:       r.Predicate,
			Type:               r.RelationshipType,
			Confidence:         r.Confidence,
			SemanticSimilarity: cloud.CosineSimilarity(nodes[si].Embedding, nodes[oi].Embedding),
		}
		if i, ok := position[key]; ok {
			edge.Source, edge.Target = edges[i].Source, edges[i].Target
			edges[i] = edge
			continue
		}
		position[key] = len(edges)
		edges = append(edges, edge)
	}
	return &model.SemanticGraph{Nodes: nodes, Edges: edges}
}

// EntityGrouper converts the entity extraction into the entry's entity lists.
type EntityGrouper struct {
	cor.BaseCommand
}

func NewEntityGrouper(name string) *EntityGrouper {
	out := &EntityGrouper{BaseCommand: *cor.NewBaseCommand(name)}
	out.InputParamName = ParamEntityExtraction
	out.OutputParamName = ParamEntities
	return out
}

func (g *EntityGrouper) Execute(context cor.Context) {
	g.Succeed(context, GroupEntities(context.Get(g.GetInputParam()).(*model.EntityExtraction)))
}

// KeywordExtractor extracts the key phrases of the refined transcript.
type KeywordExtractor struct {
	cor.BaseCommand
}

func NewKeywordExtractor(name string) *KeywordExtractor {
	out := &KeywordExtractor{BaseCommand: *cor.NewBaseCommand(name)}
	out.InputParamName = ParamRefined
	out.OutputParamName = ParamKeywords
	return out
}

func (k *KeywordExtractor) Execute(context cor.Context) {
	refined := context.Get(k.GetInputParam()).(*model.RefinedTranscript)
	k.Succeed(context, KeywordsOf(refined.RefinedTranscript))
}

// TextEmbedder embeds the whole refined transcript.
type TextEmbedder struct {
	cor.BaseCommand
	embedder cloud.Embedder
}

func NewTextEmbedder(name string, embedder cloud.Embedder) *TextEmbedder {
	out := &TextEmbedder{BaseCommand: *cor.NewBaseCommand(name), embedder: embedder}
	out.InputParamName = ParamRefined
	out.OutputParamName = ParamTextEmbedding
	return out
}

func (t *TextEmbedder) Execute(context cor.Context) {
	refined := context.Get(t.GetInputParam()).(*model.RefinedTranscript)
	vector, err := cloud.EmbedOne(context.GetContext(), t.embedder, refined.RefinedTranscript)
	if err != nil {
		t.Fail(context, fmt.Errorf("failed to embed transcript %s: %w", refined.VideoID, err))
		return
	}
	recordModelUsed(context, t.embedder.ModelName())
	t.Succeed(context, vector)
}

// SemanticGraphBuilder embeds every entity and links the entities through the
// extracted relationships.
type SemanticGraphBuilder struct {
	cor.BaseCommand
	embedder cloud.Embedder
}

func NewSemanticGraphBuilder(name string, embedder cloud.Embedder) *SemanticGraphBuilder {
	out := &SemanticGraphBuilder{BaseCommand: *cor.NewBaseCommand(name), embedder: embedder}
	out.InputParamName = ParamEntities
	out.OutputParamName = ParamSemanticGraph
	return out
}

func (s *SemanticGraphBuilder) Execute(context cor.Context) {
	entities := context.Get(s.GetInputParam()).(*model.Entities)
	relationships := make([]model.Relationship, 0)
	if r, ok := context.Get(ParamRelationships).(*model.RelationshipExtraction); ok {
		relationships = NormalizeRelationships(r.Relationships)
	}

	nodes := entities.Typed()
	embeddings := make(map[string][]float32, len(nodes))
	if len(nodes) > 0 {
		texts := make([]string, 0, len(nodes))
		for _, n := range nodes {
			texts = append(texts, n.ID)
		}
		vectors, err := s.embedder.Embed(context.GetContext(), texts)
		if err != nil {
			s.Fail(context, fmt.Errorf("failed to embed entities: %w", err))
			return
		}
		for i, v := range vectors {
			embeddings[texts[i]] = v
		}
		recordModelUsed(context, s.embedder.ModelName())
	}
	s.Succeed(context, BuildSemanticGraph(entities, relationships, embeddings))
}

// KnowledgeAssembler collects the outputs of the enrichment commands into a
// knowledge entry. Missing optional parts stay empty.
type KnowledgeAssembler struct {
	cor.BaseCommand
}

func NewKnowledgeAssembler(name string) *KnowledgeAssembler {
	out := &KnowledgeAssembler{BaseCommand: *cor.NewBaseCommand(name)}
	out.InputParamName = ParamRefined
	out.OutputParamName = ParamKnowledgeEntry
	return out
}

func (k *KnowledgeAssembler) Execute(context cor.Context) {
	entry := AssembleKnowledge(context)
	k.Succeed(context, entry)
}

// AssembleKnowledge builds the entry from whatever the context holds.
func AssembleKnowledge(context cor.Context) *model.KnowledgeEntry {
	entry := model.NewKnowledgeEntry(context.Get(ParamRefined).(*model.RefinedTranscript))
	if v, ok := context.Get(ParamEntities).(*model.Entities); ok {
		entry.Entities = *v
	}
	if v, ok := context.Get(ParamRelationships).(*model.RelationshipExtraction); ok {
		entry.Relationships = NormalizeRelationships(v.Relationships)
	}
	if v, ok := context.Get(ParamKeyInfo).(*model.KeyInformationExtraction); ok {
		entry.KeyInformation = FilterKeyInformation(v.Answers)
	}
	if v, ok := context.Get(ParamKeywords).([]model.Keyword); ok {
		entry.Keywords = v
	}
	if v, ok := context.Get(ParamTextEmbedding).([]float32); ok {
		entry.TextEmbedding = v
	}
	if v, ok := context.Get(ParamSemanticGraph).(*model.SemanticGraph); ok {
		entry.SemanticGraph = *v
	}
	if v, ok := context.Get(ParamModelsUsed).([]string); ok {
		entry.Metadata.ModelsUsed = append(entry.Metadata.ModelsUsed, v...)
	}
	return entry
}
