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
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/commands"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/model"
)

// DefaultFactLimit caps the facts returned per keyword.
const DefaultFactLimit = 5

// Fact is one relationship of the knowledge graph.
type Fact struct {
	Source       string `json:"source"`
	Relationship string `json:"relationship"`
	Target       string `json:"target"`
}

// String formats the fact as "Source (REL) Target".
func (f Fact) String() string {
	return fmt.Sprintf("%s (%s) %s", f.Source, f.Relationship, f.Target)
}

// GraphService answers questions about the destination knowledge graph.
type GraphService struct {
	Driver   neo4j.DriverWithContext
	Database string
}

func (s *GraphService) read(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error) {
	session := s.Driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead, DatabaseName: s.Database})
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return result.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}
	return out.([]*neo4j.Record), nil
}

// collectStrings reads a list-of-strings column from the first record.
func collectStrings(records []*neo4j.Record, key string) []string {
	out := make([]string, 0)
	if len(records) == 0 {
		return out
	}
	values, _, err := neo4j.GetRecordValue[[]any](records[0], key)
	if err != nil {
		return out
	}
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// CategoryItems returns the items of category for destination.
func (s *GraphService) CategoryItems(ctx context.Context, destination string, category string) ([]string, error) {
	query := fmt.Sprintf(CypherCategoryItems, commands.CategoryRelationship(category), commands.CategoryLabel(category))
	records, err := s.read(ctx, query, map[string]any{"destination": destination})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s of %s: %w", category, destination, err)
	}
	return collectStrings(records, "items"), nil
}

// Attractions returns the attractions of a destination.
func (s *GraphService) Attractions(ctx context.Context, destination string) ([]string, error) {
	return s.CategoryItems(ctx, destination, model.CategoryAttractions)
}

// TravelTips returns the travel tips of a destination.
func (s *GraphService) TravelTips(ctx context.Context, destination string) ([]string, error) {
	return s.CategoryItems(ctx, destination, model.CategoryTravelTips)
}

// Destination returns every category of a destination with its items.
func (s *GraphService) Destination(ctx context.Context, destination string) (*model.DestinationKnowledge, error) {
	records, err := s.read(ctx, CypherDestinationCategories, map[string]any{"destination": destination})
	if err != nil {
		return nil, fmt.Errorf("failed to read destination %s: %w", destination, err)
	}
	out := &model.DestinationKnowledge{Destination: destination, Categories: make(map[string][]string)}
	for _, r := range records {
		category, _, err := neo4j.GetRecordValue[string](r, "category")
		if err != nil {
			continue
		}
		out.Categories[category] = collectStrings([]*neo4j.Record{r}, "items")
	}
	return out, nil
}

// Destinations lists the destination names in the graph.
func (s *GraphService) Destinations(ctx context.Context) ([]string, error) {
	records, err := s.read(ctx, CypherListDestinations, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list destinations: %w", err)
	}
	out := make([]string, 0, len(records))
	for _, r := range records {
		if name, _, err := neo4j.GetRecordValue[string](r, "name"); err == nil {
			out = append(out, name)
		}
	}
	return out, nil
}

// DestinationsByLandmark returns the destinations having a landmark whose
// name contains keyword, ignoring case.
func (s *GraphService) DestinationsByLandmark(ctx context.Context, keyword string) ([]string, error) {
	records, err := s.read(ctx, CypherDestinationsByLandmark, map[string]any{"keyword": strings.ToLower(keyword)})
	if err != nil {
		return nil, fmt.Errorf("failed to find landmarks matching %q: %w", keyword, err)
	}
	return collectStrings(records, "destinations"), nil
}

// RelatedFacts returns up to limit relationships touching a node whose name
// contains keyword.
func (s *GraphService) RelatedFacts(ctx context.Context, keyword string, limit int) ([]Fact, error) {
	if limit <= 0 {
		limit = DefaultFactLimit
	}
	records, err := s.read(ctx, CypherRelatedFacts, map[string]any{"keyword": strings.ToLower(keyword), "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("failed to read facts for %q: %w", keyword, err)
	}
	out := make([]Fact, 0, len(records))
	for _, r := range records {
		f := Fact{}
		f.Source, _, _ = neo4j.GetRecordValue[string](r, "source")
		f.Relationship, _, _ = neo4j.GetRecordValue[string](r, "relationship")
		f.Target, _, _ = neo4j.GetRecordValue[string](r, "target")
		out = append(out, f)
	}
	return out, nil
}
