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
	"fmt"
	"log/slog"
	"sync"

	"cloud.google.com/go/bigquery"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/cor"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/model"
)

// KnowledgeIndexes are the indexes of enhanced_knowledge_base.
var KnowledgeIndexes = []mongo.IndexModel{
	{Keys: bson.D{{Key: "destination_name", Value: "text"}}},
	{Keys: bson.D{{Key: "entities.locations", Value: 1}}},
	{Keys: bson.D{{Key: "entities.landmarks", Value: 1}}},
	{Keys: bson.D{{Key: "created_at", Value: -1}}},
}

// EnsureKnowledgeIndexes creates the knowledge base indexes. Creating an
// existing index is a no-op on the server.
func EnsureKnowledgeIndexes(ctx goctx.Context, collection *mongo.Collection) error {
	_, err := collection.Indexes().CreateMany(ctx, KnowledgeIndexes)
	return err
}

// KnowledgePersist upserts the knowledge entry keyed by destination and video.
type KnowledgePersist struct {
	cor.BaseCommand
	collection *mongo.Collection
	indexOnce  sync.Once
}

func NewKnowledgePersist(name string, db *mongo.Database) *KnowledgePersist {
	out := &KnowledgePersist{BaseCommand: *cor.NewBaseCommand(name), collection: db.Collection(CollectionKnowledgeBase)}
	out.InputParamName = ParamKnowledgeEntry
	out.OutputParamName = ParamKnowledgeEntry
	return out
}

func (k *KnowledgePersist) Execute(context cor.Context) {
	entry := context.Get(k.GetInputParam()).(*model.KnowledgeEntry)
	ctx := context.GetContext()

	k.indexOnce.Do(func() {
		if err := EnsureKnowledgeIndexes(ctx, k.collection); err != nil {
			slog.WarnContext(ctx, "failed to create knowledge base indexes", "error", err)
		}
	})

	filter := bson.M{"destination_name": entry.DestinationName, "video_id": entry.VideoID}
	if _, err := k.collection.ReplaceOne(ctx, filter, entry, options.Replace().SetUpsert(true)); err != nil {
		k.Fail(context, fmt.Errorf("failed to store knowledge for %s/%s: %w", entry.DestinationName, entry.VideoID, err))
		return
	}
	slog.InfoContext(ctx, "stored knowledge entry",
		"destination", entry.DestinationName,
		"video_id", entry.VideoID,
		"relationships", len(entry.Relationships),
		"keywords", len(entry.Keywords))
	k.Succeed(context, entry)
}

// EmbeddingExport writes the entry's text embedding to BigQuery for vector
// search and flags the entry as exported. A failed insert is logged and left
// to the periodic backfill so that it never fails the enrichment.
type EmbeddingExport struct {
	cor.BaseCommand
	client     *bigquery.Client
	dataset    string
	table      string
	modelName  string
	collection *mongo.Collection
}

func NewEmbeddingExport(name string, client *bigquery.Client, dataset string, table string, modelName string, db *mongo.Database) *EmbeddingExport {
	out := &EmbeddingExport{
		BaseCommand: *cor.NewBaseCommand(name),
		client:      client,
		dataset:     dataset,
		table:       table,
		modelName:   modelName,
		collection:  db.Collection(CollectionKnowledgeBase),
	}
	out.InputParamName = ParamKnowledgeEntry
	return out
}

func (e *EmbeddingExport) IsExecutable(context cor.Context) bool {
	if !e.BaseCommand.IsExecutable(context) {
		return false
	}
	entry, ok := context.Get(e.GetInputParam()).(*model.KnowledgeEntry)
	return ok && len(entry.TextEmbedding) > 0
}

func (e *EmbeddingExport) Execute(context cor.Context) {
	entry := context.Get(e.GetInputParam()).(*model.KnowledgeEntry)
	if err := ExportEmbeddings(context.GetContext(), e.client, e.dataset, e.table, e.collection, e.modelName, entry); err != nil {
		e.GetErrorCounter().Add(context.GetContext(), 1)
		slog.WarnContext(context.GetContext(), "embedding export deferred to backfill",
			"destination", entry.DestinationName, "video_id", entry.VideoID, "error", err)
		context.Add(cor.CtxOut, entry)
		return
	}
	e.Succeed(context, entry)
}

// ExportEmbeddings inserts the embedding rows of the entries and marks them exported.
func ExportEmbeddings(ctx goctx.Context, client *bigquery.Client, dataset, table string, collection *mongo.Collection, modelName string, entries ...*model.KnowledgeEntry) error {
	rows := make([]*model.KnowledgeEmbedding, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, model.NewKnowledgeEmbedding(entry, modelName))
	}
	if err := client.Dataset(dataset).Table(table).Inserter().Put(ctx, rows); err != nil {
		return fmt.Errorf("bigquery insert failed: %w", err)
	}
	for _, entry := range entries {
		filter := bson.M{"destination_name": entry.DestinationName, "video_id": entry.VideoID}
		if _, err := collection.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"exported": true}}); err != nil {
			return fmt.Errorf("failed to flag %s as exported: %w", entry.VideoID, err)
		}
		entry.Exported = true
	}
	return nil
}
