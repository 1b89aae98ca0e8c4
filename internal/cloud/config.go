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

// Package cloud defines the application configuration, loaded from TOML files,
// and the clients for every external service the pipeline talks to: Vertex AI,
// BigQuery, Cloud Storage, Pub/Sub, MongoDB, Neo4j, Redis and the YouTube Data API.
//
// Structs:
//   - BigQueryDataSource: Dataset and tables used for embedding export and vector search.
//   - PromptTemplates: The text templates sent to the agent models.
//   - VertexAiEmbeddingModel / VertexAiLLMModel: Model settings keyed by logical name.
//   - TopicSubscription: A Pub/Sub subscription that triggers a workflow.
//   - Mongo, Neo4j, Redis, YouTube: Connection settings of the data stores and sources.
//   - LocalEmbedding: Optional on-host sentence embedding model.
//   - Itinerary, Workbooks: Defaults of the itinerary generator and rating workbooks.
//   - Config: The top-level struct that aggregates all other configuration structs.
package cloud

import "google.golang.org/genai"

// DefaultSafetySettings lets every harm category through. Transcripts are
// public travel content and refinement must not be blocked mid-batch.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
}

// BigQueryDataSource represents the configuration for a BigQuery data source.
type BigQueryDataSource struct {
	DatasetName    string `toml:"dataset"`         // The name of the BigQuery dataset.
	EmbeddingTable string `toml:"embedding_table"` // Table holding exported knowledge embeddings.
}

// PromptTemplates holds the text/template sources of every LLM prompt.
type PromptTemplates struct {
	RefinePrompt        string `toml:"refine"`        // {{.RAW_TRANSCRIPT}}
	EntitiesPrompt      string `toml:"entities"`      // {{.TEXT}} {{.EXAMPLE_JSON}}
	RelationshipsPrompt string `toml:"relationships"` // {{.TEXT}} {{.EXAMPLE_JSON}}
	KeyInfoPrompt       string `toml:"key_information"`
	TopicsPrompt        string `toml:"topics"`
	AnswerPrompt        string `toml:"answer"` // {{.QUESTION}} {{.KNOWLEDGE}}
}

// VertexAiEmbeddingModel represents the configuration for a Vertex AI embedding model.
type VertexAiEmbeddingModel struct {
	Model                string `toml:"model"`                   // The name of the Vertex AI embedding model.
	MaxRequestsPerMinute int    `toml:"max_requests_per_minute"` // The maximum number of requests allowed per minute.
}

// VertexAiLLMModel represents the configuration for a Vertex AI large language model (LLM).
type VertexAiLLMModel struct {
	Model              string  `toml:"model"`               // The name of the Vertex AI LLM.
	SystemInstructions string  `toml:"system_instructions"` // The system instructions for the LLM.
	Temperature        float32 `toml:"temperature"`         // The temperature parameter for the LLM.
	TopP               float32 `toml:"top_p"`               // The top_p parameter for the LLM.
	TopK               float32 `toml:"top_k"`               // The top_k parameter for the LLM.
	MaxTokens          int32   `toml:"max_tokens"`          // The maximum number of tokens for the LLM output.
	OutputFormat       string  `toml:"output_format"`       // The desired output format for the LLM.
	RateLimit          int     `toml:"rate_limit"`          // The rate limit for the LLM in requests per second.
}

// TopicSubscription represents the configuration for a Pub/Sub topic subscription.
type TopicSubscription struct {
	Name             string `toml:"name"`               // The name of the Pub/Sub subscription.
	DeadLetterTopic  string `toml:"dead_letter_topic"`  // The name of the dead-letter topic for the subscription.
	TimeoutInSeconds int    `toml:"timeout_in_seconds"` // The timeout for the subscription in seconds.
}

// Storage represents the configuration for storage buckets.
type Storage struct {
	WorkbookBucket string `toml:"workbook_bucket"` // Bucket mirroring the rating workbooks; empty disables the mirror.
	WorkbookPrefix string `toml:"workbook_prefix"` // Object prefix inside the bucket.
}

// Mongo holds the document store connection settings.
type Mongo struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
	// Timeout for connect and ping, in seconds.
	TimeoutInSeconds int `toml:"timeout_in_seconds"`
}

// Neo4j holds the graph database connection settings.
type Neo4j struct {
	URI      string `toml:"uri"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	Database string `toml:"database"`
}

// Redis holds the seen-set settings. An empty address disables the seen set.
type Redis struct {
	Addr    string `toml:"addr"`
	SeenKey string `toml:"seen_key"`
}

// YouTube holds the video source settings.
type YouTube struct {
	APIKey       string   `toml:"api_key"`
	MaxResults   int64    `toml:"max_results"`
	SearchSuffix string   `toml:"search_suffix"` // appended to the destination, e.g. "travel vlog"
	Language     string   `toml:"language"`
	ChannelFeeds []string `toml:"channel_feeds"` // RSS feeds of channels worth scanning for each destination.
	Destinations []string `toml:"destinations"`
	// Number of concurrent caption fetches.
	Workers int `toml:"workers"`
}

// LocalEmbedding configures the on-host ONNX sentence embedder. When Enabled is
// false the Vertex AI embedding model is used.
type LocalEmbedding struct {
	Enabled       bool   `toml:"enabled"`
	ModelPath     string `toml:"model_path"`
	TokenizerPath string `toml:"tokenizer_path"`
	LibraryPath   string `toml:"library_path"` // onnxruntime shared library
	MaxLength     int    `toml:"max_length"`
}

// Itinerary holds the defaults of the itinerary generator.
type Itinerary struct {
	Threshold      float64 `toml:"threshold"`
	Days           int     `toml:"days"`
	CandidateLimit int64   `toml:"candidate_limit"`
}

// Workbooks points at the ratings and recommendations spreadsheets.
type Workbooks struct {
	RatingsPath         string `toml:"ratings_path"`
	RecommendationsPath string `toml:"recommendations_path"`
	// Minutes a signed download URL stays valid.
	SignedURLMinutes int `toml:"signed_url_minutes"`
}

// Config represents the overall configuration for the application, loaded from TOML files.
// It acts as the root container for all other configuration structs.
type Config struct {
	// Application holds general application settings.
	Application struct {
		Name                      string `toml:"name"`                         // The name of the application.
		GoogleProjectId           string `toml:"google_project_id"`            // The Google Cloud project ID.
		GoogleLocation            string `toml:"location"`                     // The Google Cloud location.
		ThreadPoolSize            int    `toml:"thread_pool_size"`             // The size of the worker pool for parallel processing tasks.
		SignerServiceAccountEmail string `toml:"signer_service_account_email"` // The service account email used for signing GCS URLs.
	} `toml:"application"`
	Storage            Storage                           `toml:"storage"`
	Mongo              Mongo                             `toml:"mongo"`
	Neo4j              Neo4j                             `toml:"neo4j"`
	Redis              Redis                             `toml:"redis"`
	YouTube            YouTube                           `toml:"youtube"`
	BigQueryDataSource BigQueryDataSource                `toml:"big_query_data_source"`
	PromptTemplates    PromptTemplates                   `toml:"prompt_templates"`
	TopicSubscriptions map[string]TopicSubscription      `toml:"topic_subscriptions"` // Keyed by logical name, e.g. "ScrapeTopic".
	EmbeddingModels    map[string]VertexAiEmbeddingModel `toml:"embedding_models"`    // Keyed by logical name, e.g. "multi-lingual".
	AgentModels        map[string]VertexAiLLMModel       `toml:"agent_models"`        // Keyed by logical name, e.g. "creative-flash".
	LocalEmbedding     LocalEmbedding                    `toml:"local_embedding"`
	Itinerary          Itinerary                         `toml:"itinerary"`
	Workbooks          Workbooks                         `toml:"workbooks"`
}

// NewConfig returns a Config whose maps are initialized and whose scalar
// settings carry the defaults a TOML file may leave out.
func NewConfig() *Config {
	c := &Config{
		TopicSubscriptions: make(map[string]TopicSubscription),
		EmbeddingModels:    make(map[string]VertexAiEmbeddingModel),
		AgentModels:        make(map[string]VertexAiLLMModel),
	}
	c.Mongo.Database = "travel_vlogs"
	c.Mongo.TimeoutInSeconds = 10
	c.Neo4j.Database = "neo4j"
	c.Redis.SeenKey = "travel:seen_videos"
	c.YouTube.MaxResults = 5
	c.YouTube.SearchSuffix = "travel vlog"
	c.YouTube.Language = "en"
	c.YouTube.Workers = 4
	c.Itinerary.Threshold = 0.1
	c.Itinerary.Days = 3
	c.Itinerary.CandidateLimit = 10
	c.Workbooks.RatingsPath = "itinerary_ratings.xlsx"
	c.Workbooks.RecommendationsPath = "itinerary_recommendations.xlsx"
	c.Workbooks.SignedURLMinutes = 15
	c.LocalEmbedding.MaxLength = 128
	return c
}
