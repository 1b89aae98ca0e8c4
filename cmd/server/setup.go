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
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/cloud"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/commands"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/services"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/workflow"
)

// StateManager holds everything the handlers share.
type StateManager struct {
	config *cloud.Config
	cloud  *cloud.ServiceClients

	users     *services.UserService
	feedback  *services.FeedbackService
	ratings   *services.RatingService
	itinerary *services.ItineraryService
	search    *services.SearchService
	graph     *services.GraphService
	rag       *services.RAGService
	knowledge *services.KnowledgeService

	scrape   *workflow.ScrapeWorkflow
	backfill *workflow.EmbeddingBackfillWorkflow
}

var state = &StateManager{}

// SetupOS points the config loader at configs/ with the "local" runtime,
// unless the environment already says otherwise.
func SetupOS() error {
	defaults := map[string]string{
		cloud.EnvConfigFilePrefix: "configs",
		cloud.EnvConfigRuntime:    "local",
	}
	for k, v := range defaults {
		if _, ok := os.LookupEnv(k); ok {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return err
		}
	}
	return nil
}

// GetConfig loads the configuration once.
func GetConfig() *cloud.Config {
	if state.config == nil {
		if err := SetupOS(); err != nil {
			log.Fatalf("failed to setup os: %v\n", err)
		}
		config := cloud.NewConfig()
		cloud.LoadConfig(config)
		cloud.ApplySecrets(config)
		state.config = config
	}
	return state.config
}

// NewState builds the services on top of already created clients.
func NewState(config *cloud.Config, clients *cloud.ServiceClients) *StateManager {
	db := clients.MongoDatabase
	embedder := clients.Embedder(workflow.DefaultEmbeddingModel)

	s := &StateManager{config: config, cloud: clients}
	s.users = &services.UserService{Collection: db.Collection(services.CollectionUsers)}
	s.feedback = &services.FeedbackService{
		Feedback: db.Collection(services.CollectionFeedback),
		Selected: db.Collection(services.CollectionSelected),
	}
	s.ratings = services.NewRatingService(config, s.users, clients.WorkbookStore)
	s.itinerary = &services.ItineraryService{
		Collection:     db.Collection(commands.CollectionKnowledgeBase),
		Embedder:       embedder,
		Chooser:        rand.New(rand.NewSource(time.Now().UnixNano())),
		Days:           config.Itinerary.Days,
		Threshold:      config.Itinerary.Threshold,
		CandidateLimit: config.Itinerary.CandidateLimit,
	}
	s.search = &services.SearchService{
		Collection:     db.Collection(commands.CollectionKnowledgeBase),
		Embedder:       embedder,
		BigqueryClient: clients.BigQueryClient,
		DatasetName:    config.BigQueryDataSource.DatasetName,
		EmbeddingTable: config.BigQueryDataSource.EmbeddingTable,
	}
	s.graph = &services.GraphService{Driver: clients.Neo4jDriver, Database: config.Neo4j.Database}
	s.knowledge = &services.KnowledgeService{Database: db}
	return s
}

// InitState creates the clients, services, background workflows and listeners.
func InitState(ctx context.Context) {
	config := GetConfig()

	clients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		panic(err)
	}

	s := NewState(config, clients)
	s.rag, err = services.NewRAGService(s.graph, clients.AgentModel(workflow.DefaultAgentModel), config.PromptTemplates.AnswerPrompt)
	if err != nil {
		panic(err)
	}
	if err = s.users.EnsureUserIndexes(ctx); err != nil {
		panic(err)
	}
	if err = commands.EnsureKnowledgeIndexes(ctx, clients.MongoDatabase.Collection(commands.CollectionKnowledgeBase)); err != nil {
		panic(err)
	}

	s.scrape = workflow.NewScrapeWorkflow(config, clients)

	s.backfill = workflow.NewEmbeddingBackfillWorkflow(config, clients, workflow.DefaultEmbeddingModel)
	s.backfill.StartTimer()

	SetupListeners(config, clients, ctx)
	state = s
}
