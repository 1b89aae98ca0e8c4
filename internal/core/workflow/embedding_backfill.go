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
	goctx "context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/bigquery"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/cloud"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/commands"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/cor"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/model"
)

// backfillBatchSize bounds the rows of one BigQuery insert.
const backfillBatchSize = 50

// PendingExportFilter selects knowledge entries whose embedding has not reached BigQuery.
var PendingExportFilter = bson.M{
	"exported":       bson.M{"$ne": true},
	"text_embedding": bson.M{"$exists": true, "$ne": bson.A{}},
}

// EmbeddingBackfillWorkflow periodically exports the text embeddings that the
// enrichment workflow could not write to BigQuery.
type EmbeddingBackfillWorkflow struct {
	cor.BaseCommand
	bigqueryClient *bigquery.Client
	collection     *mongo.Collection
	modelName      string
	dataset        string
	embeddingTable string
	interval       time.Duration
	closeTicker    chan struct{}
}

// StartTimer runs the backfill on every tick in a background goroutine until Stop.
func (m *EmbeddingBackfillWorkflow) StartTimer() {
	tracer := otel.Tracer("embedding-backfill")
	ticker := time.NewTicker(m.interval)

	go func(m *EmbeddingBackfillWorkflow) {
		for {
			select {
			case <-ticker.C:
				traceCtx, span := tracer.Start(goctx.Background(), "knowledge-embeddings")
				chainCtx := cor.NewBaseContext()
				chainCtx.SetContext(traceCtx)

				m.Execute(chainCtx)

				if chainCtx.HasErrors() {
					span.SetStatus(codes.Error, "failed to export embeddings")
					slog.ErrorContext(traceCtx, "embedding backfill failed", "error", chainCtx.Err())
				} else {
					span.SetStatus(codes.Ok, "exported embeddings")
				}
				span.End()
			case <-m.closeTicker:
				ticker.Stop()
				return
			}
		}
	}(m)
}

// Stop ends the timer goroutine.
func (m *EmbeddingBackfillWorkflow) Stop() {
	close(m.closeTicker)
}

func NewEmbeddingBackfillWorkflow(config *cloud.Config, serviceClients *cloud.ServiceClients, embeddingModelName string) *EmbeddingBackfillWorkflow {
	return &EmbeddingBackfillWorkflow{
		BaseCommand:    *cor.NewBaseCommand("embedding-backfill"),
		bigqueryClient: serviceClients.BigQueryClient,
		collection:     serviceClients.MongoDatabase.Collection(commands.CollectionKnowledgeBase),
		modelName:      embedderName(serviceClients.Embedder(embeddingModelName)),
		dataset:        config.BigQueryDataSource.DatasetName,
		embeddingTable: config.BigQueryDataSource.EmbeddingTable,
		interval:       60 * time.Second,
		closeTicker:    make(chan struct{}),
	}
}

// IsExecutable is always true: the backfill reads its own input.
func (m *EmbeddingBackfillWorkflow) IsExecutable(_ cor.Context) bool {
	return true
}

// Execute exports every pending entry in batches of backfillBatchSize.
func (m *EmbeddingBackfillWorkflow) Execute(context cor.Context) {
	ctx := context.GetContext()
	cursor, err := m.collection.Find(ctx, PendingExportFilter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		m.Fail(context, fmt.Errorf("failed to find pending embeddings: %w", err))
		return
	}
	defer cursor.Close(ctx)

	exported := 0
	pending := make([]*model.KnowledgeEntry, 0, backfillBatchSize)
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		if err := commands.ExportEmbeddings(ctx, m.bigqueryClient, m.dataset, m.embeddingTable, m.collection, m.modelName, pending...); err != nil {
			return err
		}
		exported += len(pending)
		pending = pending[:0]
		return nil
	}

	for cursor.Next(ctx) {
		entry := &model.KnowledgeEntry{}
		if err := cursor.Decode(entry); err != nil {
			m.Fail(context, fmt.Errorf("failed to decode knowledge entry: %w", err))
			return
		}
		pending = append(pending, entry)
		if len(pending) == backfillBatchSize {
			if err := flush(); err != nil {
				m.Fail(context, err)
				return
			}
		}
	}
	if err := cursor.Err(); err != nil {
		m.Fail(context, fmt.Errorf("pending embedding cursor failed: %w", err))
		return
	}
	if err := flush(); err != nil {
		m.Fail(context, err)
		return
	}
	if exported > 0 {
		slog.InfoContext(ctx, "exported pending embeddings", "count", exported)
	}
	m.Succeed(context, exported)
}
