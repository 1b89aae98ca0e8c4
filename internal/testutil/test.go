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
// Package test provides helpers and fixture data shared by the test suites:
// the cached test configuration, sample trigger messages, a sample watch page
// and timedtext document, and in-memory fakes of the model interfaces.
package test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/cloud"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/model"
	"google.golang.org/genai"
)

// StateManager caches the test configuration between tests.
type StateManager struct {
	config *cloud.Config
}

var state = &StateManager{}

// GetTestScrapeMessageText is a scrape trigger as published to the scrape topic.
func GetTestScrapeMessageText() string {
	return `{"destination": "Jaipur"}`
}

// GetTestEnrichMessageText is an enrich trigger for the sample transcript.
func GetTestEnrichMessageText() string {
	return `{"destination": "Jaipur", "video_id": "jp-001"}`
}

// GetTestRawTranscript is a caption transcript as the scraper stores it.
func GetTestRawTranscript() *model.Transcript {
	return &model.Transcript{
		Destination: "Jaipur",
		VideoID:     "jp-001",
		Title:       "48 hours in Jaipur",
		Transcript:  "so guys we are here at the amber fort it's huge and uh the views over maota lake are amazing you have to try the dal baati churma",
	}
}

// GetTestRefinedTranscript is the refined summary of GetTestRawTranscript.
func GetTestRefinedTranscript() *model.RefinedTranscript {
	return &model.RefinedTranscript{
		Destination: "Jaipur",
		VideoID:     "jp-001",
		Title:       "48 hours in Jaipur",
		RefinedTranscript: "Jaipur, the capital of Rajasthan, is known for the Amber Fort overlooking Maota Lake. " +
			"Visitors should explore the City Palace and the Albert Hall Museum. " +
			"A useful tip is to buy the composite ticket that covers most monuments. " +
			"Local cuisine such as dal baati churma is a must. " +
			"The best time to visit is from October to March, when the Teej Festival fills the streets.",
	}
}

// GetTestWatchPage returns a watch page whose player configuration lists an
// auto-generated and a manual English caption track under baseURL.
func GetTestWatchPage(baseURL string) string {
	return `<!DOCTYPE html><html><head><title>48 hours in Jaipur - YouTube</title></head><body>
<script>var ytInitialData = {"title": "unrelated [brackets]"};</script>
<script>var ytInitialPlayerResponse = {"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[` +
		`{"baseUrl":"` + baseURL + `/api/timedtext?v=jp-001&lang=en&kind=asr","name":{"simpleText":"English (auto-generated) [beta]"},"vssId":"a.en","languageCode":"en","kind":"asr"},` +
		`{"baseUrl":"` + baseURL + `/api/timedtext?v=jp-001&lang=en","name":{"simpleText":"English \"manual\""},"vssId":".en","languageCode":"en"}` +
		`],"audioTracks":[]}}};</script>
</body></html>`
}

// GetTestTimedText is a timedtext document with entity-escaped cues.
func GetTestTimedText() string {
	return `<?xml version="1.0" encoding="utf-8" ?><transcript>` +
		`<text start="0.5" dur="2.1">we are at the amber fort</text>` +
		`<text start="2.6" dur="1.9">it&amp;#39;s   huge</text>` +
		`<text start="4.5" dur="0.4"></text>` +
		`<text start="4.9" dur="3.0">dal baati &amp;amp; churma</text>` +
		`</transcript>`
}

// SetupOS points the configuration loader at the repository's configs
// directory and the test runtime overlay.
func SetupOS() (err error) {
	root, err := moduleRoot()
	if err != nil {
		return err
	}
	if err = os.Setenv(cloud.EnvConfigFilePrefix, filepath.Join(root, "configs")); err != nil {
		return err
	}
	return os.Setenv(cloud.EnvConfigRuntime, "test")
}

func moduleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("go.mod not found above the working directory")
		}
		dir = parent
	}
}

// GetConfig loads the test configuration once and caches it.
func GetConfig() *cloud.Config {
	if state.config == nil {
		if err := SetupOS(); err != nil {
			log.Fatalf("failed to setup environment for test: %v\n", err)
		}
		config := cloud.NewConfig()
		cloud.LoadConfig(config)
		state.config = config
	}
	return state.config
}

// FakeGenerator answers every prompt with the response registered for the
// first matching marker, or with Default. Prompts are recorded.
type FakeGenerator struct {
	mu        sync.Mutex
	Responses map[string]string // prompt substring -> response text
	Default   string
	Err       error
	Prompts   []string
}

func (f *FakeGenerator) GenerateContent(_ context.Context, contents []*genai.Content) (*genai.GenerateContentResponse, error) {
	var prompt strings.Builder
	for _, c := range contents {
		for _, p := range c.Parts {
			prompt.WriteString(p.Text)
		}
	}
	f.mu.Lock()
	f.Prompts = append(f.Prompts, prompt.String())
	f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}

	text := f.Default
	for marker, response := range f.Responses {
		if strings.Contains(prompt.String(), marker) {
			text = response
			break
		}
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: genai.NewContentFromText(text, genai.RoleModel)}},
	}, nil
}

// FakeEmbedder derives a deterministic vector from the letters of each text:
// one dimension per letter a-z counting its occurrences.
type FakeEmbedder struct {
	Err   error
	Calls int
}

func (f *FakeEmbedder) ModelName() string { return "fake-embedder" }

func (f *FakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.Calls++
	if f.Err != nil {
		return nil, f.Err
	}
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		out = append(out, LetterVector(t))
	}
	return out, nil
}

// LetterVector is the vector FakeEmbedder returns for text.
func LetterVector(text string) []float32 {
	v := make([]float32, 26)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}
	return v
}

// FakeSeenSet is an in-memory cloud.SeenSet.
type FakeSeenSet struct {
	mu  sync.Mutex
	IDs map[string]bool
	Err error
}

func NewFakeSeenSet(ids ...string) *FakeSeenSet {
	out := &FakeSeenSet{IDs: make(map[string]bool)}
	for _, id := range ids {
		out.IDs[id] = true
	}
	return out
}

func (f *FakeSeenSet) IsSeen(_ context.Context, videoID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return false, f.Err
	}
	return f.IDs[videoID], nil
}

func (f *FakeSeenSet) MarkSeen(_ context.Context, videoIDs ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	for _, id := range videoIDs {
		f.IDs[id] = true
	}
	return nil
}

// FakeCaptions is an in-memory caption source keyed by video id. Videos
// without an entry fail with Missing.
type FakeCaptions struct {
	Texts   map[string]string
	Errors  map[string]error
	Missing error
}

func (f *FakeCaptions) Fetch(_ context.Context, videoID string) (string, error) {
	if err := f.Errors[videoID]; err != nil {
		return "", err
	}
	text, ok := f.Texts[videoID]
	if !ok {
		return "", fmt.Errorf("%s: %w", videoID, f.Missing)
	}
	return text, nil
}
