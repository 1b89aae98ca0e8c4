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
	"math/rand"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/commands"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/model"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/services"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/workflow"
)

func newSearchCommand(a *app) *cobra.Command {
	var (
		topK    int
		similar bool
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Rank knowledge base entries by semantic similarity to a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := &services.SearchService{
				Collection:     a.clients.MongoDatabase.Collection(commands.CollectionKnowledgeBase),
				Embedder:       a.clients.Embedder(workflow.DefaultEmbeddingModel),
				BigqueryClient: a.clients.BigQueryClient,
				DatasetName:    a.config.BigQueryDataSource.DatasetName,
				EmbeddingTable: a.config.BigQueryDataSource.EmbeddingTable,
			}
			query := strings.Join(args, " ")
			if similar {
				out, err := svc.FindSimilar(cmd.Context(), query, topK)
				if err != nil {
					return err
				}
				return a.printJSON(out)
			}
			out, err := svc.Search(cmd.Context(), query, topK)
			if err != nil {
				return err
			}
			return a.printJSON(out)
		},
	}
	cmd.Flags().IntVar(&topK, "top", services.DefaultTopK, "number of results")
	cmd.Flags().BoolVar(&similar, "bigquery", false, "search the exported embeddings with VECTOR_SEARCH")
	return cmd
}

func newAskCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a travel question from the knowledge graph",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			graph := &services.GraphService{Driver: a.clients.Neo4jDriver, Database: a.config.Neo4j.Database}
			rag, err := services.NewRAGService(graph, a.clients.AgentModel(workflow.DefaultAgentModel), a.config.PromptTemplates.AnswerPrompt)
			if err != nil {
				return err
			}
			answer, err := rag.Ask(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return a.printJSON(answer)
		},
	}
}

func newItineraryCommand(a *app) *cobra.Command {
	var (
		days      int
		threshold float64
		seed      int64
	)
	cmd := &cobra.Command{
		Use:   "itinerary <query>",
		Short: "Generate day plans for the destinations matching a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			svc := &services.ItineraryService{
				Collection:     a.clients.MongoDatabase.Collection(commands.CollectionKnowledgeBase),
				Embedder:       a.clients.Embedder(workflow.DefaultEmbeddingModel),
				Chooser:        rand.New(rand.NewSource(seed)),
				Days:           a.config.Itinerary.Days,
				Threshold:      a.config.Itinerary.Threshold,
				CandidateLimit: a.config.Itinerary.CandidateLimit,
			}
			req := &model.ItineraryRequest{Query: strings.Join(args, " "), Days: days}
			if cmd.Flags().Changed("threshold") {
				req.Threshold = &threshold
			}
			out, err := svc.Generate(cmd.Context(), req)
			if err != nil {
				return err
			}
			return a.printJSON(out)
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "number of days (default from config)")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "minimum similarity (default from config)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed of the day templates")
	return cmd
}
