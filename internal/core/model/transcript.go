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

// Package model holds the documents that flow through the pipeline and the
// records served by the API. Struct tags carry the document-store (bson), wire
// (json) and BigQuery (bigquery) names of every field.
package model

import (
	"encoding/json"
	"strings"
	"time"
)

// ScrapeRequest starts a scrape run for one destination.
type ScrapeRequest struct {
	Destination string `json:"destination"`
}

// ParseScrapeRequest accepts either a JSON document ({"destination":"Goa"}) or
// a bare destination name, which is what ad-hoc publishers usually send.
func ParseScrapeRequest(in string) (*ScrapeRequest, error) {
	trimmed := strings.TrimSpace(in)
	if strings.HasPrefix(trimmed, "{") {
		out := &ScrapeRequest{}
		if err := json.Unmarshal([]byte(trimmed), out); err != nil {
			return nil, err
		}
		out.Destination = strings.TrimSpace(out.Destination)
		return out, nil
	}
	return &ScrapeRequest{Destination: trimmed}, nil
}

// EnrichRequest identifies one refined transcript to push through the
// knowledge workflows.
type EnrichRequest struct {
	Destination string `json:"destination"`
	VideoID     string `json:"video_id"`
}

// VideoCandidate is a video that may carry a usable transcript.
type VideoCandidate struct {
	Destination string    `json:"destination"`
	VideoID     string    `json:"video_id"`
	Title       string    `json:"title"`
	Channel     string    `json:"channel,omitempty"`
	PublishedAt time.Time `json:"published_at,omitempty"`
	Source      string    `json:"source"` // "search" or "feed"
}

// CaptionTrack is one entry of the captionTracks array embedded in a watch page.
type CaptionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind,omitempty"` // "asr" for auto-generated tracks
	VssID        string `json:"vssId,omitempty"`
}

// Transcript is the raw caption text of a video (collection all_transcripts).
type Transcript struct {
	Destination string    `json:"destination" bson:"destination"`
	VideoID     string    `json:"video_id" bson:"video_id"`
	Title       string    `json:"title" bson:"title"`
	Transcript  string    `json:"transcript" bson:"transcript"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

// Length is the transcript length used by the best-transcript rule.
func (t *Transcript) Length() int {
	if t == nil {
		return 0
	}
	return len(t.Transcript)
}

// RefinedTranscript is the LLM-refined travel summary of a transcript
// (collection refined_transcripts).
type RefinedTranscript struct {
	Destination       string    `json:"destination" bson:"destination"`
	VideoID           string    `json:"video_id" bson:"video_id"`
	Title             string    `json:"title" bson:"title"`
	RefinedTranscript string    `json:"refined_transcript" bson:"refined_transcript"`
	CreatedAt         time.Time `json:"created_at" bson:"created_at"`
}
