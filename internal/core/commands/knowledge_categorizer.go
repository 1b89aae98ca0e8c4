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
	"slices"
	"strings"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/cor"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/model"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/nlp"
)

var (
	attractionWords = []string{"museum", "park", "beach", "garden"}
	activityWords   = []string{"recommend", "visit", "try", "explore"}
	tipWords        = []string{"tip", "advice", "suggestion"}
)

// foodWords are matched as whole words: "eat" must not match "great" or "seat".
var foodWords = []string{"food", "foods", "cuisine", "dish", "dishes", "eat", "eats", "eating"}

// CategorizeKnowledge sorts the entities and sentences of one transcript into
// the graph categories. Matching is a case-insensitive substring test, except
// for food which matches whole words, and every category keeps the first
// occurrence of an item only.
func CategorizeKnowledge(destination string, entities []model.NamedEntity, sentences []string) *model.DestinationKnowledge {
	out := &model.DestinationKnowledge{Destination: destination, Categories: make(map[string][]string)}
	seen := make(map[string]map[string]bool)
	add := func(category, item string) {
		if seen[category] == nil {
			seen[category] = make(map[string]bool)
		}
		if seen[category][item] {
			return
		}
		seen[category][item] = true
		out.Categories[category] = append(out.Categories[category], item)
	}

	for _, e := range entities {
		switch e.Label {
		case "GPE", "LOC":
			add(model.CategoryLocation, e.Text)
			add(model.CategoryLandmarks, e.Text)
		case "ORG":
			add(model.CategoryLandmarks, e.Text)
		}
		if containsAny(e.Text, attractionWords) {
			add(model.CategoryAttractions, e.Text)
		}
	}

	for _, s := range sentences {
		if containsAny(s, activityWords) {
			add(model.CategoryActivities, s)
		}
		if containsAny(s, tipWords) {
			add(model.CategoryTravelTips, s)
		}
		if containsWord(s, foodWords) {
			add(model.CategoryFood, s)
		}
	}
	return out
}

func containsAny(text string, words []string) bool {
	lower := strings.ToLower(text)
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func containsWord(text string, words []string) bool {
	for _, w := range nlp.Words(strings.ToLower(text)) {
		if slices.Contains(words, w) {
			return true
		}
	}
	return false
}

// KnowledgeCategorizer turns the entity extraction of a refined transcript
// into the per-category knowledge written to the graph.
type KnowledgeCategorizer struct {
	cor.BaseCommand
}

func NewKnowledgeCategorizer(name string) *KnowledgeCategorizer {
	out := &KnowledgeCategorizer{BaseCommand: *cor.NewBaseCommand(name)}
	out.InputParamName = ParamEntityExtraction
	out.OutputParamName = ParamDestinationKnowledge
	return out
}

func (k *KnowledgeCategorizer) IsExecutable(context cor.Context) bool {
	return k.BaseCommand.IsExecutable(context) && context.Get(ParamRefined) != nil
}

func (k *KnowledgeCategorizer) Execute(context cor.Context) {
	extraction := context.Get(k.GetInputParam()).(*model.EntityExtraction)
	refined := context.Get(ParamRefined).(*model.RefinedTranscript)
	k.Succeed(context, CategorizeKnowledge(refined.Destination, extraction.Entities, nlp.SplitSentences(refined.RefinedTranscript)))
}
