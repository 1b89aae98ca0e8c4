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
	goctx "context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/model"
)

// ErrNoCaptions is returned for videos without a usable caption track.
var ErrNoCaptions = errors.New("no captions available")

// DefaultWatchURL is the watch page the caption tracks are read from.
const DefaultWatchURL = "https://www.youtube.com/watch?v=%s"

const captionTracksKey = `"captionTracks":`

// CaptionClient reads the caption track list embedded in a video's watch page
// and downloads the timedtext document of the preferred track.
type CaptionClient struct {
	HTTP     *http.Client
	WatchURL string // fmt pattern with one %s for the video id
	Language string
}

func NewCaptionClient(language string) *CaptionClient {
	return &CaptionClient{
		HTTP:     &http.Client{Timeout: 30 * time.Second},
		WatchURL: DefaultWatchURL,
		Language: language,
	}
}

// Fetch returns the plain transcript text of videoID.
func (c *CaptionClient) Fetch(ctx goctx.Context, videoID string) (string, error) {
	page, err := c.get(ctx, fmt.Sprintf(c.WatchURL, url.QueryEscape(videoID)))
	if err != nil {
		return "", err
	}
	defer page.Close()

	tracks, err := ExtractCaptionTracks(page)
	if err != nil {
		return "", err
	}
	track := PickCaptionTrack(tracks, c.Language)
	if track == nil {
		return "", ErrNoCaptions
	}

	body, err := c.get(ctx, track.BaseURL)
	if err != nil {
		return "", err
	}
	defer body.Close()
	text, err := ParseTimedText(body)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", ErrNoCaptions
	}
	return text, nil
}

func (c *CaptionClient) get(ctx goctx.Context, target string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept-Language", c.Language)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: unexpected status %s", target, resp.Status)
	}
	return resp.Body, nil
}

// ExtractCaptionTracks finds the captionTracks array in the inline player
// configuration of a watch page.
func ExtractCaptionTracks(page io.Reader) ([]model.CaptionTrack, error) {
	doc, err := goquery.NewDocumentFromReader(page)
	if err != nil {
		return nil, fmt.Errorf("failed to parse watch page: %w", err)
	}

	var raw string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		idx := strings.Index(text, captionTracksKey)
		if idx < 0 {
			return true
		}
		raw = scanJSONArray(text[idx+len(captionTracksKey):])
		return raw == ""
	})
	if raw == "" {
		return nil, ErrNoCaptions
	}

	var tracks []model.CaptionTrack
	if err := json.Unmarshal([]byte(raw), &tracks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal caption tracks: %w", err)
	}
	return tracks, nil
}

// scanJSONArray returns the balanced [...] at the start of s (after optional
// whitespace), honouring string literals, or "" when there is none.
func scanJSONArray(s string) string {
	s = strings.TrimLeft(s, " \t\r\n")
	if !strings.HasPrefix(s, "[") {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '[', '{':
			depth++
		case ']', '}':
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	return ""
}

// PickCaptionTrack prefers a manual track in language, then an auto-generated
// (asr) one, then a manual track of a regional variant (en-GB for en).
func PickCaptionTrack(tracks []model.CaptionTrack, language string) *model.CaptionTrack {
	var asr, regional *model.CaptionTrack
	for i := range tracks {
		t := &tracks[i]
		lang := strings.ToLower(t.LanguageCode)
		switch {
		case lang == language && t.Kind != "asr":
			return t
		case lang == language && asr == nil:
			asr = t
		case strings.HasPrefix(lang, language+"-") && t.Kind != "asr" && regional == nil:
			regional = t
		}
	}
	if asr != nil {
		return asr
	}
	return regional
}

// ParseTimedText joins the <text> cues of a timedtext document with single
// spaces. Cue bodies are entity-escaped twice by the server, so they are
// unescaped once more after parsing.
func ParseTimedText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to parse timedtext: %w", err)
	}
	parts := make([]string, 0)
	doc.Find("text").Each(func(_ int, s *goquery.Selection) {
		cue := strings.Join(strings.Fields(html.UnescapeString(s.Text())), " ")
		if cue != "" {
			parts = append(parts, cue)
		}
	})
	return strings.Join(parts, " "), nil
}
