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
package workflow

import (
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/cloud"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/commands"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/cor"
)

// ScrapeWorkflow finds travel videos for one destination, downloads their
// captions and keeps the longest transcript in all_transcripts.
//
// The input (CtxIn) is a scrape trigger: {"destination":"Goa"} or a bare
// destination name.
type ScrapeWorkflow struct {
	cor.BaseCommand
	config         *cloud.Config
	serviceClients *cloud.ServiceClients
	captions       commands.CaptionFetcher
	chain          *cor.BaseChain
}

// Execute runs the scrape chain.
func (s *ScrapeWorkflow) Execute(context cor.Context) {
	s.chain.Execute(context)
}

// Steps returns the command names of the workflow in execution order.
func (s *ScrapeWorkflow) Steps() []string {
	return stepNames(s.chain)
}

func (s *ScrapeWorkflow) sources() []commands.VideoSource {
	out := make([]commands.VideoSource, 0, 2)
	if s.serviceClients.YouTube != nil {
		out = append(out, &commands.YouTubeSearchSource{
			Service:    s.serviceClients.YouTube,
			Suffix:     s.config.YouTube.SearchSuffix,
			MaxResults: s.config.YouTube.MaxResults,
		})
	}
	if len(s.config.YouTube.ChannelFeeds) > 0 {
		out = append(out, commands.NewChannelFeedSource(s.config.YouTube.ChannelFeeds))
	}
	return out
}

func (s *ScrapeWorkflow) initializeChain(db *mongo.Database) {
	out := cor.NewBaseChain(s.GetName())
	out.AddCommand(commands.NewDestinationTrigger("destination-trigger"))
	out.AddCommand(commands.NewVideoDiscovery("video-discovery", s.sources()...))
	out.AddCommand(commands.NewSeenFilter("seen-filter", s.serviceClients.SeenSet))
	out.AddCommand(commands.NewTranscriptFetcher("transcript-fetcher", s.captions, s.config.YouTube.Workers))
	out.AddCommand(commands.NewBestTranscriptPersist("best-transcript-persist", db))
	out.AddCommand(commands.NewSeenMarker("seen-marker", s.serviceClients.SeenSet))
	s.chain = out
}

// NewScrapeWorkflow builds the scrape workflow. Search runs only when a
// YouTube client is configured; channel feeds run whenever feeds are listed.
func NewScrapeWorkflow(config *cloud.Config, serviceClients *cloud.ServiceClients) *ScrapeWorkflow {
	return NewScrapeWorkflowWithCaptions(config, serviceClients, commands.NewCaptionClient(config.YouTube.Language))
}

// NewScrapeWorkflowWithCaptions builds the scrape workflow around a specific caption source.
func NewScrapeWorkflowWithCaptions(config *cloud.Config, serviceClients *cloud.ServiceClients, captions commands.CaptionFetcher) *ScrapeWorkflow {
	out := &ScrapeWorkflow{
		BaseCommand:    *cor.NewBaseCommand("scrape-workflow"),
		config:         config,
		serviceClients: serviceClients,
		captions:       captions,
	}
	out.initializeChain(serviceClients.MongoDatabase)
	return out
}
