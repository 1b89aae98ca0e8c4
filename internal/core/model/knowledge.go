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

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ProcessingVersion is stamped on every knowledge entry.
const ProcessingVersion = "2.0"

// Knowledge categories of the destination graph, in graph build order.
const (
	CategoryLocation    = "location"
	CategoryAttractions = "attractions"
	CategoryActivities  = "activities"
	CategoryLandmarks   = "landmarks"
	CategoryFood        = "food"
	CategoryTravelTips  = "travel_tips"
)

// Categories lists the knowledge categories in a stable order.
var Categories = []string{
	CategoryLocation,
	CategoryAttractions,
	CategoryActivities,
	CategoryLandmarks,
	CategoryFood,
	CategoryTravelTips,
}

// Relationship types assigned to extracted triples.
var RelationshipTypes = []string{"location", "description", "historical", "cultural", "tourist"}

// DestinationID derives the stable id of a destination from its name.
func DestinationID(name string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(strings.ToLower(strings.TrimSpace(name)))).String()
}

// NamedEntity is a span of text tagged with an entity label (GPE, LOC, ORG,
// FAC, PERSON, DATE, EVENT).
type NamedEntity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

// SentenceLabel is a zero-shot classification of one sentence.
type SentenceLabel struct {
	Sentence string  `json:"sentence"`
	Label    string  `json:"label"`
	Score    float64 `json:"score"`
}

// EntityExtraction is the JSON document returned by the entity recognition prompt.
type EntityExtraction struct {
	Entities  []NamedEntity   `json:"entities"`
	Sentences []SentenceLabel `json:"sentences"`
}

// DestinationKnowledge maps each category to its items for one destination.
// It is what the graph builder writes.
type DestinationKnowledge struct {
	Destination string              `json:"destination"`
	Categories  map[string][]string `json:"categories"`
}

// NonEmpty returns the categories holding at least one item, in Categories order.
func (d *DestinationKnowledge) NonEmpty() []string {
	out := make([]string, 0, len(Categories))
	for _, c := range Categories {
		if len(d.Categories[c]) > 0 {
			out = append(out, c)
		}
	}
	return out
}

// Entities groups the named entities of an enhanced knowledge entry.
type Entities struct {
	Locations        []string `json:"locations" bson:"locations"`
	Organizations    []string `json:"organizations" bson:"organizations"`
	People           []string `json:"people" bson:"people"`
	Dates            []string `json:"dates" bson:"dates"`
	Events           []string `json:"events" bson:"events"`
	Landmarks        []string `json:"landmarks" bson:"landmarks"`
	Attractions      []string `json:"attractions" bson:"attractions"`
	CulturalElements []string `json:"cultural_elements" bson:"cultural_elements"`
}

// Typed returns every entity with its type name, de-duplicated by text.
func (e *Entities) Typed() []GraphNode {
	seen := make(map[string]bool)
	out := make([]GraphNode, 0)
	add := func(kind string, values []string) {
		for _, v := range values {
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, GraphNode{ID: v, Type: kind})
		}
	}
	add("locations", e.Locations)
	add("organizations", e.Organizations)
	add("people", e.People)
	add("dates", e.Dates)
	add("events", e.Events)
	add("landmarks", e.Landmarks)
	add("attractions", e.Attractions)
	add("cultural_elements", e.CulturalElements)
	return out
}

// Relationship is a subject/predicate/object triple found in the text.
type Relationship struct {
	Subject          string  `json:"subject" bson:"subject"`
	Predicate        string  `json:"predicate" bson:"predicate"`
	Object           string  `json:"object" bson:"object"`
	RelationshipType string  `json:"relationship_type" bson:"relationship_type"`
	Confidence       float64 `json:"confidence" bson:"confidence"`
	Context          string  `json:"context" bson:"context"`
}

// RelationshipExtraction is the JSON document returned by the relationship prompt.
type RelationshipExtraction struct {
	Relationships []Relationship `json:"relationships"`
}

// QuestionAnswer is an extractive answer to one of the key questions.
type QuestionAnswer struct {
	Question string  `json:"question" bson:"question"`
	Answer   string  `json:"answer" bson:"answer"`
	Score    float64 `json:"score" bson:"score"`
}

// KeyInformationExtraction is the JSON document returned by the key-information prompt.
type KeyInformationExtraction struct {
	Answers []QuestionAnswer `json:"answers"`
}

// KeyQuestions are asked of every refined transcript.
var KeyQuestions = []string{
	"What is the main attraction?",
	"What is the historical significance?",
	"What are the cultural highlights?",
	"What is the best time to visit?",
	"What are the nearby attractions?",
}

// Keyword is an extracted key phrase; a lower score is more relevant.
type Keyword struct {
	Keyword string  `json:"keyword" bson:"keyword"`
	Score   float64 `json:"score" bson:"score"`
}

// GraphNode is an entity node of the semantic graph.
type GraphNode struct {
	ID        string    `json:"id" bson:"id"`
	Type      string    `json:"type" bson:"type"`
	Embedding []float32 `json:"embedding,omitempty" bson:"embedding,omitempty"`
}

// GraphEdge links two entity nodes through an extracted relationship.
type GraphEdge struct {
	Source             string  `json:"source" bson:"source"`
	Target             string  `json:"target" bson:"target"`
	Relationship       string  `json:"relationship" bson:"relationship"`
	Type               string  `json:"type" bson:"type"`
	Confidence         float64 `json:"confidence" bson:"confidence"`
	SemanticSimilarity float64 `json:"semantic_similarity" bson:"semantic_similarity"`
}

// SemanticGraph is the per-transcript entity graph.
type SemanticGraph struct {
	Nodes []GraphNode `json:"nodes" bson:"nodes"`
	Edges []GraphEdge `json:"edges" bson:"edges"`
}

// KnowledgeMetadata describes how an entry was produced.
type KnowledgeMetadata struct {
	SourceTextLength  int      `json:"source_text_length" bson:"source_text_length"`
	ProcessingVersion string   `json:"processing_version" bson:"processing_version"`
	ModelsUsed        []string `json:"models_used" bson:"models_used"`
}

// KnowledgeEntry is one document of enhanced_knowledge_base.
type KnowledgeEntry struct {
	DestinationID   string            `json:"destination_id" bson:"destination_id"`
	DestinationName string            `json:"destination_name" bson:"destination_name"`
	VideoID         string            `json:"video_id" bson:"video_id"`
	Title           string            `json:"title" bson:"title"`
	Entities        Entities          `json:"entities" bson:"entities"`
	Relationships   []Relationship    `json:"relationships" bson:"relationships"`
	KeyInformation  []QuestionAnswer  `json:"key_information" bson:"key_information"`
	TextEmbedding   []float32         `json:"text_embedding,omitempty" bson:"text_embedding"`
	Keywords        []Keyword         `json:"keywords" bson:"keywords"`
	SemanticGraph   SemanticGraph     `json:"semantic_graph" bson:"semantic_graph"`
	CreatedAt       time.Time         `json:"created_at" bson:"created_at"`
	Metadata        KnowledgeMetadata `json:"metadata" bson:"metadata"`
	Exported        bool              `json:"-" bson:"exported"` // embedding written to BigQuery
}

// NewKnowledgeEntry creates an entry for a refined transcript with empty
// collections so that the stored document never carries nulls.
func NewKnowledgeEntry(refined *RefinedTranscript) *KnowledgeEntry {
	return &KnowledgeEntry{
		DestinationID:   DestinationID(refined.Destination),
		DestinationName: refined.Destination,
		VideoID:         refined.VideoID,
		Title:           refined.Title,
		Relationships:   make([]Relationship, 0),
		KeyInformation:  make([]QuestionAnswer, 0),
		Keywords:        make([]Keyword, 0),
		SemanticGraph:   SemanticGraph{Nodes: make([]GraphNode, 0), Edges: make([]GraphEdge, 0)},
		CreatedAt:       time.Now(),
		Metadata: KnowledgeMetadata{
			SourceTextLength:  len(refined.RefinedTranscript),
			ProcessingVersion: ProcessingVersion,
			ModelsUsed:        make([]string, 0),
		},
	}
}

// Topic is one theme found across all refined transcripts.
type Topic struct {
	Label        string   `json:"label" bson:"label"`
	Keywords     []string `json:"keywords" bson:"keywords"`
	Destinations []string `json:"destinations" bson:"destinations"`
	Weight       float64  `json:"weight" bson:"weight"`
}

// TopicAnalysis is one document of the topic_analysis collection.
type TopicAnalysis struct {
	Topics    []Topic   `json:"topics" bson:"topics"`
	Documents int       `json:"documents" bson:"documents"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// KnowledgeEmbedding is the BigQuery row used for vector search.
type KnowledgeEmbedding struct {
	DestinationID   string    `json:"destination_id" bigquery:"destination_id"`
	DestinationName string    `json:"destination_name" bigquery:"destination_name"`
	VideoID         string    `json:"video_id" bigquery:"video_id"`
	ModelName       string    `json:"model_name" bigquery:"model_name"`
	Embeddings      []float64 `json:"embeddings" bigquery:"embeddings"`
}

// NewKnowledgeEmbedding converts the entry's text embedding to a BigQuery row.
func NewKnowledgeEmbedding(entry *KnowledgeEntry, modelName string) *KnowledgeEmbedding {
	out := &KnowledgeEmbedding{
		DestinationID:   entry.DestinationID,
		DestinationName: entry.DestinationName,
		VideoID:         entry.VideoID,
		ModelName:       modelName,
		Embeddings:      make([]float64, 0, len(entry.TextEmbedding)),
	}
	for _, v := range entry.TextEmbedding {
		out.Embeddings = append(out.Embeddings, float64(v))
	}
	return out
}

// SimilarDestination is a VECTOR_SEARCH hit.
type SimilarDestination struct {
	DestinationID   string  `json:"destination_id" bigquery:"destination_id"`
	DestinationName string  `json:"destination_name" bigquery:"destination_name"`
	VideoID         string  `json:"video_id" bigquery:"video_id"`
	Distance        float64 `json:"distance" bigquery:"distance"`
}

// SearchResult is a knowledge entry ranked against a query.
type SearchResult struct {
	Entry *KnowledgeEntry `json:"entry"`
	Score float64         `json:"score"`
}
