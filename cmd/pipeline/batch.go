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
	"fmt"
	"log/slog"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/commands"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/cor"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/model"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/workflow"
)

// destinationFilter restricts a batch to one destination when set.
func destinationFilter(field, destination string) bson.M {
	if destination == "" {
		return bson.M{}
	}
	return bson.M{field: destination}
}

// runBatch counts and drains the filtered collection through b.
func runBatch[T any](ctx context.Context, a *app, collection string, filter bson.M, b *workflow.Batch[T]) error {
	coll := a.clients.MongoDatabase.Collection(collection)
	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to count %s: %w", collection, err)
	}
	cursor, err := coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", collection, err)
	}
	result, err := b.Run(ctx, cursor, total)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s: %d processed, %d failed\n", b.Name, result.Processed, result.Failed)
	return nil
}

func transcriptLabel(t *model.Transcript) string { return t.Destination + "/" + t.VideoID }

func refinedLabel(r *model.RefinedTranscript) string { return r.Destination + "/" + r.VideoID }

func newScrapeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "scrape [destinations...]",
		Short: "Find travel vlogs per destination and store their best transcript",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			destinations := args
			if len(destinations) == 0 {
				destinations = a.config.YouTube.Destinations
			}
			if len(destinations) == 0 {
				return fmt.Errorf("no destinations given and none configured")
			}

			scrape := workflow.NewScrapeWorkflow(a.config, a.clients)
			bar := progressbar.Default(int64(len(destinations)), "scrape")
			failed := 0
			for _, d := range destinations {
				chainCtx := cor.NewContextWithInput(ctx, d)
				scrape.Execute(chainCtx)
				if chainCtx.HasErrors() {
					failed++
					slog.ErrorContext(ctx, "scrape failed", "destination", d, "error", chainCtx.Err())
				}
				chainCtx.Close()
				_ = bar.Add(1)
			}
			_ = bar.Finish()
			fmt.Fprintf(a.out, "scrape: %d processed, %d failed\n", len(destinations)-failed, failed)
			return nil
		},
	}
}

func newRefineCommand(a *app) *cobra.Command {
	var destination string
	cmd := &cobra.Command{
		Use:   "refine",
		Short: "Clean every stored transcript with the agent model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBatch(cmd.Context(), a, commands.CollectionTranscripts, destinationFilter("destination", destination), &workflow.Batch[model.Transcript]{
				Name:    "refine",
				Command: workflow.NewRefineWorkflow(a.config, a.clients, workflow.DefaultAgentModel),
				Param:   commands.ParamTranscript,
				Label:   transcriptLabel,
			})
		},
	}
	cmd.Flags().StringVar(&destination, "destination", "", "only refine transcripts of this destination")
	return cmd
}

func newExtractCommand(a *app) *cobra.Command {
	var (
		destination string
		reset       bool
	)
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Build the destination knowledge graph from refined transcripts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if reset {
				if err := commands.DeleteGraph(ctx, a.clients.Neo4jDriver, a.config.Neo4j.Database); err != nil {
					return fmt.Errorf("failed to reset graph: %w", err)
				}
				slog.InfoContext(ctx, "knowledge graph cleared")
			}
			return runBatch(ctx, a, commands.CollectionRefined, destinationFilter("destination", destination), &workflow.Batch[model.RefinedTranscript]{
				Name:    "extract",
				Command: workflow.NewKnowledgeGraphWorkflow(a.config, a.clients, workflow.DefaultAgentModel),
				Param:   commands.ParamRefined,
				Label:   refinedLabel,
			})
		},
	}
	cmd.Flags().StringVar(&destination, "destination", "", "only extract this destination")
	cmd.Flags().BoolVar(&reset, "reset", false, "delete the whole graph first")
	return cmd
}

func newEnrichCommand(a *app) *cobra.Command {
	var destination string
	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Build the enhanced knowledge base entries from refined transcripts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := commands.EnsureKnowledgeIndexes(ctx, a.clients.MongoDatabase.Collection(commands.CollectionKnowledgeBase)); err != nil {
				return err
			}
			return runBatch(ctx, a, commands.CollectionRefined, destinationFilter("destination", destination), &workflow.Batch[model.RefinedTranscript]{
				Name:    "enrich",
				Command: workflow.NewSemanticEnrichmentWorkflow(a.config, a.clients, workflow.DefaultAgentModel, workflow.DefaultEmbeddingModel),
				Param:   commands.ParamRefined,
				Label:   refinedLabel,
			})
		},
	}
	cmd.Flags().StringVar(&destination, "destination", "", "only enrich this destination")
	return cmd
}

func newTopicsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "topics",
		Short: "Find the recurring themes across all refined transcripts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			docs, err := loadRefined(ctx, a.clients.MongoDatabase.Collection(commands.CollectionRefined))
			if err != nil {
				return err
			}

			chainCtx := cor.NewContextWithInput(ctx, docs)
			defer chainCtx.Close()
			workflow.NewTopicWorkflow(a.config, a.clients, workflow.DefaultAgentModel).Execute(chainCtx)
			if chainCtx.HasErrors() {
				return chainCtx.Err()
			}
			return a.printJSON(chainCtx.Get(commands.ParamTopicAnalysis))
		},
	}
}

func loadRefined(ctx context.Context, collection *mongo.Collection) ([]*model.RefinedTranscript, error) {
	cursor, err := collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to read refined transcripts: %w", err)
	}
	docs := make([]*model.RefinedTranscript, 0)
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode refined transcripts: %w", err)
	}
	return docs, nil
}
