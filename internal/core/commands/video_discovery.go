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
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/cor"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/model"
	"github.com/mmcdole/gofeed"
	"google.golang.org/api/youtube/v3"
)

// VideoSource finds videos that may describe a destination.
type VideoSource interface {
	Name() string
	Find(ctx goctx.Context, destination string) ([]*model.VideoCandidate, error)
}

// YouTubeSearchSource runs "<destination> <suffix>" through the Data API search.
type YouTubeSearchSource struct {
	Service    *youtube.Service
	Suffix     string
	MaxResults int64
}

func (s *YouTubeSearchSource) Name() string { return "search" }

func (s *YouTubeSearchSource) Find(ctx goctx.Context, destination string) ([]*model.VideoCandidate, error) {
	query := strings.TrimSpace(destination + " " + s.Suffix)
	resp, err := s.Service.Search.List([]string{"id", "snippet"}).
		Q(query).
		Type("video").
		MaxResults(s.MaxResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("youtube search %q: %w", query, err)
	}

	out := make([]*model.VideoCandidate, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" {
			continue
		}
		c := &model.VideoCandidate{Destination: destination, VideoID: item.Id.VideoId, Source: s.Name()}
		if item.Snippet != nil {
			c.Title = item.Snippet.Title
			c.Channel = item.Snippet.ChannelTitle
			c.PublishedAt, _ = time.Parse(time.RFC3339, item.Snippet.PublishedAt)
		}
		out = append(out, c)
	}
	return out, nil
}

// ChannelFeedSource scans the RSS feeds of known travel channels for entries
// whose title mentions the destination.
type ChannelFeedSource struct {
	Parser *gofeed.Parser
	Feeds  []string
}

func NewChannelFeedSource(feeds []string) *ChannelFeedSource {
	return &ChannelFeedSource{Parser: gofeed.NewParser(), Feeds: feeds}
}

func (s *ChannelFeedSource) Name() string { return "feed" }

func (s *ChannelFeedSource) Find(ctx goctx.Context, destination string) ([]*model.VideoCandidate, error) {
	needle := strings.ToLower(destination)
	out := make([]*model.VideoCandidate, 0)
	var errs []error
	for _, feedURL := range s.Feeds {
		feed, err := s.Parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("feed %s: %w", feedURL, err))
			continue
		}
		for _, item := range feed.Items {
			if !strings.Contains(strings.ToLower(item.Title), needle) {
				continue
			}
			id := VideoIDFromLink(item.Link)
			if id == "" {
				continue
			}
			c := &model.VideoCandidate{Destination: destination, VideoID: id, Title: item.Title, Channel: feed.Title, Source: s.Name()}
			if item.PublishedParsed != nil {
				c.PublishedAt = *item.PublishedParsed
			}
			out = append(out, c)
		}
	}
	// A partial result is still useful; only fail when every feed failed.
	if len(errs) > 0 && len(errs) == len(s.Feeds) {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// VideoIDFromLink extracts the id from watch (?v=), youtu.be and shorts links.
func VideoIDFromLink(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	if v := u.Query().Get("v"); v != "" {
		return v
	}
	path := strings.Trim(u.Path, "/")
	switch {
	case u.Host == "youtu.be":
		return path
	case strings.HasPrefix(path, "shorts/"):
		return strings.TrimPrefix(path, "shorts/")
	}
	return ""
}

// VideoDiscovery collects candidates for the destination from every source,
// de-duplicated by video id in source order.
type VideoDiscovery struct {
	cor.BaseCommand
	sources []VideoSource
}

func NewVideoDiscovery(name string, sources ...VideoSource) *VideoDiscovery {
	out := &VideoDiscovery{BaseCommand: *cor.NewBaseCommand(name), sources: sources}
	out.InputParamName = ParamDestination
	out.OutputParamName = ParamCandidates
	return out
}

func (v *VideoDiscovery) Execute(context cor.Context) {
	destination := context.Get(v.GetInputParam()).(string)

	seen := make(map[string]bool)
	candidates := make([]*model.VideoCandidate, 0)
	failures := 0
	for _, source := range v.sources {
		found, err := source.Find(context.GetContext(), destination)
		if err != nil {
			failures++
			slog.WarnContext(context.GetContext(), "video source failed", "source", source.Name(), "destination", destination, "error", err)
			continue
		}
		for _, c := range found {
			if seen[c.VideoID] {
				continue
			}
			seen[c.VideoID] = true
			candidates = append(candidates, c)
		}
	}
	if len(v.sources) > 0 && failures == len(v.sources) {
		v.Fail(context, fmt.Errorf("every video source failed for %s", destination))
		return
	}
	slog.InfoContext(context.GetContext(), "discovered videos", "destination", destination, "count", len(candidates))
	v.Succeed(context, candidates)
}
