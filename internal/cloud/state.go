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

package cloud

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/bigquery"
	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
	"google.golang.org/genai"
)

// ServiceClients holds every client to an external service. It is created
// once at startup and shared by the workflows, services and API handlers.
type ServiceClients struct {
	StorageClient   *storage.Client
	PubsubClient    *pubsub.Client
	GenAIClient     *genai.Client
	BigQueryClient  *bigquery.Client
	IAMClient       *credentials.IamCredentialsClient // Signs workbook download URLs.
	MongoClient     *mongo.Client
	MongoDatabase   *mongo.Database
	Neo4jDriver     neo4j.DriverWithContext
	SeenSet         SeenSet
	YouTube         *youtube.Service // nil without an API key; only channel feeds are used then.
	WorkbookStore   *WorkbookStore   // nil without a workbook bucket.
	LocalEmbedder   *LocalEmbedder   // nil unless local_embedding.enabled.
	PubSubListeners map[string]*PubSubListener
	EmbeddingModels map[string]Embedder
	AgentModels     map[string]*QuotaAwareGenerativeAIModel
}

// Embedder returns the local embedder when one is loaded, otherwise the named
// Vertex AI embedding model.
func (c *ServiceClients) Embedder(name string) Embedder {
	if c.LocalEmbedder != nil {
		return c.LocalEmbedder
	}
	return c.EmbeddingModels[name]
}

// AgentModel returns the named generative model, or a nil interface when it
// is not configured.
func (c *ServiceClients) AgentModel(name string) ContentGenerator {
	if m, ok := c.AgentModels[name]; ok && m != nil {
		return m
	}
	return nil
}

// Close releases every client that holds a connection.
func (c *ServiceClients) Close(ctx context.Context) {
	closeQuietly := func(name string, err error) {
		if err != nil {
			slog.Warn("failed to close client", "client", name, "error", err)
		}
	}
	if c.StorageClient != nil {
		closeQuietly("storage", c.StorageClient.Close())
	}
	if c.PubsubClient != nil {
		closeQuietly("pubsub", c.PubsubClient.Close())
	}
	if c.BigQueryClient != nil {
		closeQuietly("bigquery", c.BigQueryClient.Close())
	}
	if c.IAMClient != nil {
		closeQuietly("iam", c.IAMClient.Close())
	}
	if c.MongoClient != nil {
		closeQuietly("mongo", c.MongoClient.Disconnect(ctx))
	}
	if c.Neo4jDriver != nil {
		closeQuietly("neo4j", c.Neo4jDriver.Close(ctx))
	}
	if s, ok := c.SeenSet.(*RedisSeenSet); ok {
		closeQuietly("redis", s.Close())
	}
	if c.LocalEmbedder != nil {
		closeQuietly("onnx", c.LocalEmbedder.Close())
	}
}

// NewCloudServiceClients creates every client described by config.
//
// Inputs:
//   - ctx: The root context of the application.
//   - config: The loaded configuration, with secrets applied.
//
// Outputs:
//   - *ServiceClients: The initialized clients.
//   - error: The first client that failed to initialize.
func NewCloudServiceClients(ctx context.Context, config *Config) (cloud *ServiceClients, err error) {
	cloud = &ServiceClients{
		SeenSet:         NoopSeenSet{},
		PubSubListeners: make(map[string]*PubSubListener),
		EmbeddingModels: make(map[string]Embedder),
		AgentModels:     make(map[string]*QuotaAwareGenerativeAIModel),
	}
	// Anything created before a failure is released.
	defer func() {
		if err != nil {
			cloud.Close(ctx)
			cloud = nil
		}
	}()

	if cloud.StorageClient, err = storage.NewClient(ctx); err != nil {
		return cloud, fmt.Errorf("storage client: %w", err)
	}
	if cloud.PubsubClient, err = pubsub.NewClient(ctx, config.Application.GoogleProjectId); err != nil {
		return cloud, fmt.Errorf("pubsub client: %w", err)
	}
	if cloud.GenAIClient, err = genai.NewClient(ctx, &genai.ClientConfig{
		Project:  config.Application.GoogleProjectId,
		Location: config.Application.GoogleLocation,
		Backend:  genai.BackendVertexAI,
	}); err != nil {
		return cloud, fmt.Errorf("genai client: %w", err)
	}
	if cloud.BigQueryClient, err = bigquery.NewClient(ctx, config.Application.GoogleProjectId); err != nil {
		return cloud, fmt.Errorf("bigquery client: %w", err)
	}
	if cloud.IAMClient, err = credentials.NewIamCredentialsClient(ctx); err != nil {
		return cloud, fmt.Errorf("iam credentials client: %w", err)
	}

	if cloud.MongoClient, err = connectMongo(ctx, config.Mongo); err != nil {
		return cloud, err
	}
	cloud.MongoDatabase = cloud.MongoClient.Database(config.Mongo.Database)

	if cloud.Neo4jDriver, err = neo4j.NewDriverWithContext(
		config.Neo4j.URI,
		neo4j.BasicAuth(config.Neo4j.Username, config.Neo4j.Password, ""),
	); err != nil {
		return cloud, fmt.Errorf("neo4j driver: %w", err)
	}
	if err = cloud.Neo4jDriver.VerifyConnectivity(ctx); err != nil {
		return cloud, fmt.Errorf("neo4j connectivity: %w", err)
	}

	if config.Redis.Addr != "" {
		seen, err := NewRedisSeenSet(ctx, config.Redis.Addr, config.Redis.SeenKey)
		if err != nil {
			return cloud, fmt.Errorf("redis seen set: %w", err)
		}
		cloud.SeenSet = seen
	}

	if config.YouTube.APIKey != "" {
		if cloud.YouTube, err = youtube.NewService(ctx, option.WithAPIKey(config.YouTube.APIKey)); err != nil {
			return cloud, fmt.Errorf("youtube service: %w", err)
		}
	} else {
		slog.Warn("no YouTube API key configured; video search is disabled")
	}

	cloud.WorkbookStore = NewWorkbookStore(config, cloud.StorageClient, cloud.IAMClient)

	if config.LocalEmbedding.Enabled {
		if cloud.LocalEmbedder, err = NewLocalEmbedder(config.LocalEmbedding); err != nil {
			return cloud, fmt.Errorf("local embedder: %w", err)
		}
	}

	// Commands are attached once the workflows are built.
	for subKey, values := range config.TopicSubscriptions {
		actual, err := NewPubSubListener(cloud.PubsubClient, values.Name, nil)
		if err != nil {
			return cloud, err
		}
		cloud.PubSubListeners[subKey] = actual
	}

	for embKey, values := range config.EmbeddingModels {
		cloud.EmbeddingModels[embKey] = NewGenAIEmbedder(cloud.GenAIClient.Models, values.Model, values.MaxRequestsPerMinute)
	}

	for amKey, values := range config.AgentModels {
		model := &genai.GenerateContentConfig{
			Temperature:       genai.Ptr[float32](values.Temperature),
			TopP:              genai.Ptr[float32](values.TopP),
			TopK:              genai.Ptr[float32](values.TopK),
			MaxOutputTokens:   values.MaxTokens,
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: values.SystemInstructions}}},
			SafetySettings:    DefaultSafetySettings,
			ResponseMIMEType:  values.OutputFormat,
		}
		cloud.AgentModels[amKey] = NewQuotaAwareModel(model, values.Model, cloud.GenAIClient.Models, values.RateLimit)
	}

	return cloud, nil
}

func connectMongo(ctx context.Context, config Mongo) (*mongo.Client, error) {
	timeout := time.Duration(config.TimeoutInSeconds) * time.Second
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(config.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err = client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}
