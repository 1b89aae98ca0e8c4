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
package main

import (
	"context"
	"log/slog"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/cloud"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/cor"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/workflow"
)

// Subscription keys of the topic_subscriptions config table.
const (
	ScrapeTopic = "ScrapeTopic"
	EnrichTopic = "EnrichTopic"
)

// SetupListeners attaches the scrape and enrich workflows to their
// subscriptions and starts receiving.
func SetupListeners(config *cloud.Config, cloudClients *cloud.ServiceClients, ctx context.Context) {
	attach := func(key string, command cor.Command) {
		listener, ok := cloudClients.PubSubListeners[key]
		if !ok {
			slog.Warn("no subscription configured", "topic", key)
			return
		}
		listener.SetCommand(command)
		listener.Listen(ctx)
	}

	// {"destination":"Goa"} or a bare name
	attach(ScrapeTopic, workflow.NewScrapeWorkflow(config, cloudClients))
	// {"destination":..,"video_id":..}
	attach(EnrichTopic, workflow.NewEnrichWorkflow(config, cloudClients, workflow.DefaultAgentModel, workflow.DefaultEmbeddingModel))
}
