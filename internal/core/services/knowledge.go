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
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/commands"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/model"
)

// ErrEntryNotFound is returned when no knowledge base entry matches.
var ErrEntryNotFound = errors.New("knowledge entry not found")

// StatsCollections are the collections reported by Stats, in pipeline order.
var StatsCollections = []string{
	commands.CollectionTranscripts,
	commands.CollectionRefined,
	commands.CollectionKnowledgeBase,
	commands.CollectionTopics,
	CollectionUsers,
	CollectionFeedback,
	CollectionSelected,
}

// KnowledgeService reads pipeline progress and knowledge base entries.
type KnowledgeService struct {
	Database *mongo.Database
}

// Stats counts the documents of every pipeline and API collection.
func (s *KnowledgeService) Stats(ctx context.Context) ([]model.CollectionStats, error) {
	out := make([]model.CollectionStats, 0, len(StatsCollections))
	for _, name := range StatsCollections {
		count, err := s.Database.Collection(name).CountDocuments(ctx, bson.M{})
		if err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", name, err)
		}
		out = append(out, model.CollectionStats{Collection: name, Count: count})
	}
	return out, nil
}

// Entry returns the most recent knowledge base entry of a destination,
// matched case-insensitively.
func (s *KnowledgeService) Entry(ctx context.Context, destination string) (*model.KnowledgeEntry, error) {
	filter := bson.M{"destination_name": primitive.Regex{
		Pattern: "^" + regexp.QuoteMeta(destination) + "$",
		Options: "i",
	}}
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	entry := &model.KnowledgeEntry{}
	err := s.Database.Collection(commands.CollectionKnowledgeBase).FindOne(ctx, filter, opts).Decode(entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load entry: %w", err)
	}
	return entry, nil
}

// Topics returns the latest topic analysis.
func (s *KnowledgeService) Topics(ctx context.Context) (*model.TopicAnalysis, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	out := &model.TopicAnalysis{}
	err := s.Database.Collection(commands.CollectionTopics).FindOne(ctx, bson.M{}, opts).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load topics: %w", err)
	}
	return out, nil
}
