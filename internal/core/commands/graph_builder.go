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
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/cor"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/model"
)

// Statement is a parameterised Cypher query.
type Statement struct {
	Query  string
	Params map[string]interface{}
}

const deleteDestinationCypher = `MATCH (d:Destination {name: $destination})
OPTIONAL MATCH (d)-->(c)
OPTIONAL MATCH (c)-[:HAS]->(i:Item)
DETACH DELETE i, c, d`

// CategoryLabel is the node label of a category ("travel_tips" -> "Travel_tips").
func CategoryLabel(category string) string {
	if category == "" {
		return ""
	}
	lower := strings.ToLower(category)
	return strings.ToUpper(lower[:1]) + lower[1:]
}

// CategoryRelationship is the type of the destination -> category relationship.
func CategoryRelationship(category string) string {
	return strings.ToUpper(category)
}

// GraphStatements returns the statements that replace the destination's
// subgraph: the old one is removed, then the destination node, one node per
// non-empty category and an Item node per entry are created. Labels and
// relationship types cannot be parameters, so only the fixed category names
// are interpolated.
func GraphStatements(knowledge *model.DestinationKnowledge) []Statement {
	out := []Statement{
		{Query: deleteDestinationCypher, Params: map[string]interface{}{"destination": knowledge.Destination}},
		{Query: "MERGE (d:Destination {name: $destination})", Params: map[string]interface{}{"destination": knowledge.Destination}},
	}
	for _, category := range knowledge.NonEmpty() {
		query := fmt.Sprintf(`MATCH (d:Destination {name: $destination})
CREATE (d)-[:%s]->(c:%s {name: $category})
WITH c
UNWIND $items AS item
CREATE (c)-[:HAS]->(:Item {name: item})`, CategoryRelationship(category), CategoryLabel(category))
		out = append(out, Statement{Query: query, Params: map[string]interface{}{
			"destination": knowledge.Destination,
			"category":    category,
			"items":       knowledge.Categories[category],
		}})
	}
	return out
}

// GraphBuilder writes the categorised knowledge of a destination to Neo4j in
// one write transaction.
type GraphBuilder struct {
	cor.BaseCommand
	driver   neo4j.DriverWithContext
	database string
}

func NewGraphBuilder(name string, driver neo4j.DriverWithContext, database string) *GraphBuilder {
	out := &GraphBuilder{BaseCommand: *cor.NewBaseCommand(name), driver: driver, database: database}
	out.InputParamName = ParamDestinationKnowledge
	return out
}

func (g *GraphBuilder) Execute(context cor.Context) {
	knowledge := context.Get(g.GetInputParam()).(*model.DestinationKnowledge)
	if err := RunStatements(context.GetContext(), g.driver, g.database, GraphStatements(knowledge)); err != nil {
		g.Fail(context, fmt.Errorf("failed to build graph for %s: %w", knowledge.Destination, err))
		return
	}
	slog.InfoContext(context.GetContext(), "knowledge graph updated", "destination", knowledge.Destination, "categories", len(knowledge.NonEmpty()))
	g.Succeed(context, knowledge)
}

// RunStatements executes the statements in order inside a single write transaction.
func RunStatements(ctx goctx.Context, driver neo4j.DriverWithContext, database string, statements []Statement) error {
	session := driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite, DatabaseName: database})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		for _, st := range statements {
			result, err := tx.Run(ctx, st.Query, st.Params)
			if err != nil {
				return nil, err
			}
			if _, err = result.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

// DeleteGraph removes every node and relationship of the database.
func DeleteGraph(ctx goctx.Context, driver neo4j.DriverWithContext, database string) error {
	return RunStatements(ctx, driver, database, []Statement{{Query: "MATCH (n) DETACH DELETE n"}})
}
