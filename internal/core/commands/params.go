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

// Package commands holds the concrete cor.Command implementations the
// workflows are assembled from. Commands exchange data through named context
// parameters (below) so that a command further down a chain can read the
// output of any earlier one, not only of its predecessor.
package commands

import (
	"slices"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/cor"
)

// Context parameter names shared between commands.
const (
	ParamDestination          = "__DESTINATION__"           // string
	ParamCandidates           = "__VIDEO_CANDIDATES__"      // []*model.VideoCandidate
	ParamTranscripts          = "__TRANSCRIPTS__"           // []*model.Transcript
	ParamResolvedVideos       = "__RESOLVED_VIDEOS__"       // []string, fetched or without captions
	ParamBestTranscript       = "__BEST_TRANSCRIPT__"       // *model.Transcript
	ParamTranscript           = "__TRANSCRIPT__"            // *model.Transcript, input of refinement
	ParamRefinedText          = "__REFINED_TEXT__"          // string
	ParamRefined              = "__REFINED__"               // *model.RefinedTranscript
	ParamEntityExtraction     = "__ENTITY_EXTRACTION__"     // *model.EntityExtraction
	ParamDestinationKnowledge = "__DESTINATION_KNOWLEDGE__" // *model.DestinationKnowledge
	ParamEntities             = "__ENTITIES__"              // *model.Entities
	ParamRelationshipsJSON    = "__RELATIONSHIPS_JSON__"    // string
	ParamRelationships        = "__RELATIONSHIPS__"         // *model.RelationshipExtraction
	ParamKeyInfoJSON          = "__KEY_INFO_JSON__"         // string
	ParamKeyInfo              = "__KEY_INFO__"              // *model.KeyInformationExtraction
	ParamKeywords             = "__KEYWORDS__"              // []model.Keyword
	ParamTextEmbedding        = "__TEXT_EMBEDDING__"        // []float32
	ParamSemanticGraph        = "__SEMANTIC_GRAPH__"        // *model.SemanticGraph
	ParamKnowledgeEntry       = "__KNOWLEDGE_ENTRY__"       // *model.KnowledgeEntry
	ParamTopicsCorpus         = "__TOPICS_CORPUS__"         // string
	ParamTopicsDocuments      = "__TOPICS_DOCUMENTS__"      // int
	ParamTopicsJSON           = "__TOPICS_JSON__"           // string
	ParamTopicAnalysis        = "__TOPIC_ANALYSIS__"        // *model.TopicAnalysis
	ParamModelsUsed           = "__MODELS_USED__"           // []string
)

// Document store collection names.
const (
	CollectionTranscripts   = "all_transcripts"
	CollectionRefined       = "refined_transcripts"
	CollectionKnowledgeBase = "enhanced_knowledge_base"
	CollectionTopics        = "topic_analysis"
)

// recordModelUsed appends name to the models listed in the knowledge entry metadata.
func recordModelUsed(context cor.Context, name string) {
	used, _ := context.Get(ParamModelsUsed).([]string)
	if slices.Contains(used, name) {
		return
	}
	context.Add(ParamModelsUsed, append(used, name))
}
