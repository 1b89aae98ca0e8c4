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

// These objects are built in memory by the services and returned by the API,
// but are not persisted.

// ItineraryRequest asks for day plans matching a free-text query. A nil
// Threshold uses the configured one; 0 keeps every candidate.
type ItineraryRequest struct {
	Query     string   `json:"query" binding:"required"`
	Days      int      `json:"days"`
	Threshold *float64 `json:"threshold"`
}

// Itinerary is a day-by-day plan for one matching destination.
type Itinerary struct {
	Destination string   `json:"destination"`
	Score       float64  `json:"score"`
	Theme       string   `json:"theme"`
	Days        []string `json:"itinerary"`
}

// RAGAnswer is the response of the graph-grounded question answering agent.
type RAGAnswer struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Keywords []string `json:"keywords"`
	Facts    []string `json:"facts"`
}

// RatingResult is returned after an itinerary rating was recorded.
type RatingResult struct {
	Success    bool    `json:"success"`
	Message    string  `json:"message"`
	Similarity float64 `json:"similarity"`
}

// Recommendation is one row of the Recommendations sheet.
type Recommendation struct {
	UserID     string  `json:"userId"`
	Itinerary  string  `json:"itinerary"`
	MatchScore float64 `json:"matchScore"`
	IsGeneric  bool    `json:"isGeneric"`
}

// CollectionStats counts the documents of one collection.
type CollectionStats struct {
	Collection string `json:"collection"`
	Count      int64  `json:"count"`
}
