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
// Package workflow_test checks how the workflows are assembled and how the
// batch runner treats failing items. The service clients are created without
// contacting any server; only commands that fail before touching a store are
// executed.
package workflow_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/cloud"
	test "github.com/jaycherian/gcp-go-travel-knowledge/internal/testutil"
)

var (
	ctx          context.Context
	config       *cloud.Config
	cloudClients *cloud.ServiceClients
	generator    *test.FakeGenerator
	embedder     *test.FakeEmbedder
)

const tName = "travel-knowledge/tests/workflow"

var (
	tracer = otel.Tracer(tName)
	logger = otelslog.NewLogger(tName)
)

func TestMain(m *testing.M) {
	var cancel context.CancelFunc
	ctx, cancel = context.WithCancel(context.Background())
	defer cancel()

	config = test.GetConfig()

	// Connect does not reach the server; operations would fail fast.
	mongoClient, err := mongo.Connect(ctx, options.Client().
		ApplyURI("mongodb://127.0.0.1:1").
		SetServerSelectionTimeout(200*time.Millisecond))
	if err != nil {
		panic(err)
	}
	defer mongoClient.Disconnect(ctx)

	driver, err := neo4j.NewDriverWithContext("neo4j://127.0.0.1:1", neo4j.NoAuth())
	if err != nil {
		panic(err)
	}
	defer driver.Close(ctx)

	generator = &test.FakeGenerator{}
	embedder = &test.FakeEmbedder{}
	cloudClients = &cloud.ServiceClients{
		MongoClient:     mongoClient,
		MongoDatabase:   mongoClient.Database(config.Mongo.Database),
		Neo4jDriver:     driver,
		SeenSet:         test.NewFakeSeenSet(),
		EmbeddingModels: map[string]cloud.Embedder{"multi-lingual": embedder},
		AgentModels:     map[string]*cloud.QuotaAwareGenerativeAIModel{},
	}

	logger.Info("completed test setup")
	os.Exit(m.Run())
}
