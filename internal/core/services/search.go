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
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"cloud.google.com/go/bigquery"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"google.golang.org/api/iterator"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/cloud"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/model"
)

// DefaultTopK is the number of search results when the caller asks for none.
const DefaultTopK = 5

// ErrVectorSearchDisabled is returned by FindSimilar when no BigQuery client is set.
var ErrVectorSearchDisabled = errors.New("BigQuery vector search is not configured")

// EmbeddedEntriesFilter selects knowledge entries carrying a text embedding.
var EmbeddedEntriesFilter = bson.M{"text_embedding": bson.M{"$exists": true, "$ne": bson.A{}}}

// SearchService ranks knowledge entries against a free-text query, either in
// process over the document store or with BigQuery VECTOR_SEARCH over the
// exported embeddings.
type SearchService struct {
	Collection     *mongo.Collection // enhanced_knowledge_base
	Embedder       cloud.Embedder
	BigqueryClient *bigquery.Client
	DatasetName    string
	EmbeddingTable string
}

// Search embeds the query and returns the topK entries by cosine similarity.
func (s *SearchService) Search(ctx context.Context, query string, topK int) ([]*model.SearchResult, error) {
	vector, err := cloud.EmbedOne(ctx, s.Embedder, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	cursor, err := s.Collection.Find(ctx, EmbeddedEntriesFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge base: %w", err)
	}
	entries := make([]*model.KnowledgeEntry, 0)
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode knowledge base: %w", err)
	}
	return RankEntries(vector, entries, topK), nil
}

// RankEntries scores every entry against the query vector and returns the
// best topK, most similar first. Ties keep the input order.
func RankEntries(query []float32, entries []*model.KnowledgeEntry, topK int) []*model.SearchResult {
	if topK <= 0 {
		topK = DefaultTopK
	}
	out := make([]*model.SearchResult, 0, len(entries))
	for _, e := range entries {
		out = append(out, &model.SearchResult{Entry: e, Score: cloud.CosineSimilarity(query, e.TextEmbedding)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > topK {
		out = out[:topK]
	}
	return out
}

// VectorLiteral renders a vector as the comma separated list VECTOR_SEARCH expects.
func VectorLiteral(vector []float32) string {
	values := make([]string, 0, len(vector))
	for _, f := range vector {
		values = append(values, strconv.FormatFloat(float64(f), 'f', -1, 64))
	}
	return strings.Join(values, ",")
}

// FindSimilar runs a k-nearest neighbour search in BigQuery over the exported
// knowledge embeddings.
func (s *SearchService) FindSimilar(ctx context.Context, query string, maxResults int) ([]*model.SimilarDestination, error) {
	if maxResults <= 0 {
		maxResults = DefaultTopK
	}
	out := make([]*model.SimilarDestination, 0)
	if s.BigqueryClient == nil {
		return out, ErrVectorSearchDisabled
	}

	vector, err := cloud.EmbedOne(ctx, s.Embedder, query)
	if err != nil {
		return out, fmt.Errorf("failed to embed query: %w", err)
	}

	fqEmbeddingTable := strings.Replace(s.BigqueryClient.Dataset(s.DatasetName).Table(s.EmbeddingTable).FullyQualifiedName(), ":", ".", -1)
	queryText := fmt.Sprintf(QrySimilarDestinations, fqEmbeddingTable, VectorLiteral(vector), maxResults)

	itr, err := s.BigqueryClient.Query(queryText).Read(ctx)
	if err != nil {
		return out, fmt.Errorf("failed to read from BigQuery: %w", err)
	}
	for {
		r := &model.SimilarDestination{}
		err := itr.Next(r)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return out, fmt.Errorf("failed to iterate results: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}
