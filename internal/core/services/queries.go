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
// Package services holds the read side of the application and the web API
// business logic: graph queries, question answering, semantic search,
// itinerary generation, user accounts and itinerary ratings.
//
// Queries are kept here as constants. BigQuery queries use fmt verbs for the
// table and vector; Cypher queries use driver parameters.
package services

const (
	// QrySimilarDestinations runs a k-nearest neighbour search over the exported
	// knowledge embeddings. Placeholders: table, query vector, k.
	QrySimilarDestinations = "SELECT base.destination_id, base.destination_name, base.video_id, distance FROM VECTOR_SEARCH(TABLE `%s`, 'embeddings', (SELECT [ %s ] as embed), top_k => %d, distance_type => 'COSINE') ORDER BY distance asc"

	// CypherCategoryItems returns the items of one category of a destination.
	// The relationship type cannot be a parameter, hence the %s.
	CypherCategoryItems = `
MATCH (d:Destination {name: $destination})-[:%s]->(:%s)-[:HAS]->(i:Item)
RETURN collect(DISTINCT i.name) AS items`

	// CypherDestinationCategories returns every category of a destination with its items.
	CypherDestinationCategories = `
MATCH (d:Destination {name: $destination})-[]->(c)-[:HAS]->(i:Item)
RETURN c.name AS category, collect(i.name) AS items
ORDER BY category`

	// CypherDestinationsByLandmark finds destinations owning a matching landmark item.
	CypherDestinationsByLandmark = `
MATCH (d:Destination)-[:LANDMARKS]->(:Landmarks)-[:HAS]->(i:Item)
WHERE toLower(i.name) CONTAINS $keyword
RETURN collect(DISTINCT d.name) AS destinations`

	// CypherRelatedFacts returns triples touching a node whose name contains the keyword.
	CypherRelatedFacts = `
MATCH (n)-[r]->(m)
WHERE toLower(n.name) CONTAINS $keyword OR toLower(m.name) CONTAINS $keyword
RETURN n.name AS source, type(r) AS relationship, m.name AS target
LIMIT $limit`

	// CypherListDestinations lists the destination nodes.
	CypherListDestinations = `MATCH (d:Destination) RETURN d.name AS name ORDER BY name`
)
