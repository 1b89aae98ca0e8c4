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

// The Example* functions return hardcoded instances of the extraction
// documents. They are serialized into the prompts as few-shot examples so the
// model answers with JSON of exactly this shape.

// GetExampleEntityExtraction returns a sample named-entity and sentence-label document.
func GetExampleEntityExtraction() *EntityExtraction {
	return &EntityExtraction{
		Entities: []NamedEntity{
			{Text: "Jaipur", Label: "GPE"},
			{Text: "Aravalli Hills", Label: "LOC"},
			{Text: "Amber Fort", Label: "FAC"},
			{Text: "Rajasthan Tourism", Label: "ORG"},
			{Text: "Maharaja Sawai Jai Singh II", Label: "PERSON"},
			{Text: "October to March", Label: "DATE"},
			{Text: "Teej Festival", Label: "EVENT"},
			{Text: "Albert Hall Museum", Label: "FAC"},
		},
		Sentences: []SentenceLabel{
			{Sentence: "Amber Fort overlooks Maota Lake and is best seen at sunrise.", Label: "tourist attraction", Score: 0.94},
			{Sentence: "Block printing in Sanganer is a craft passed down for generations.", Label: "cultural element", Score: 0.88},
			{Sentence: "Try the dal baati churma at a local dhaba.", Label: "cultural element", Score: 0.61},
		},
	}
}

// GetExampleRelationships returns a sample relationship document.
func GetExampleRelationships() *RelationshipExtraction {
	return &RelationshipExtraction{
		Relationships: []Relationship{
			{
				Subject:          "Amber Fort",
				Predicate:        "overlooks",
				Object:           "Maota Lake",
				RelationshipType: "location",
				Confidence:       0.9,
				Context:          "Amber Fort overlooks Maota Lake and is best seen at sunrise.",
			},
			{
				Subject:          "Maharaja Sawai Jai Singh II",
				Predicate:        "founded",
				Object:           "Jaipur",
				RelationshipType: "historical",
				Confidence:       0.85,
				Context:          "Jaipur was founded in 1727 by Maharaja Sawai Jai Singh II.",
			},
		},
	}
}

// GetExampleKeyInformation returns a sample key-information document.
func GetExampleKeyInformation() *KeyInformationExtraction {
	return &KeyInformationExtraction{
		Answers: []QuestionAnswer{
			{Question: KeyQuestions[0], Answer: "Amber Fort", Score: 0.82},
			{Question: KeyQuestions[3], Answer: "October to March", Score: 0.77},
		},
	}
}

// GetExampleTopicAnalysis returns a sample topic document.
func GetExampleTopicAnalysis() *TopicAnalysis {
	return &TopicAnalysis{
		Topics: []Topic{
			{
				Label:        "Forts and palaces",
				Keywords:     []string{"fort", "palace", "maharaja", "architecture"},
				Destinations: []string{"Jaipur", "Udaipur"},
				Weight:       0.34,
			},
			{
				Label:        "Beaches and nightlife",
				Keywords:     []string{"beach", "shack", "sunset", "party"},
				Destinations: []string{"Goa"},
				Weight:       0.21,
			},
		},
	}
}
