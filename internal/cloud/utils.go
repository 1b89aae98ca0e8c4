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
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel/metric"
	"google.golang.org/genai"
)

// Cloud Constants define key strings and values used throughout the package,
// primarily for configuration loading and API interaction policies.
const (
	ConfigFileBaseName  = ".env"              // The base name for configuration files (e.g., ".env.toml").
	ConfigFileExtension = ".toml"             // The file extension for configuration files.
	ConfigSeparator     = "."                 // The separator used in config file names (e.g., ".env.local.toml").
	EnvConfigFilePrefix = "GCP_CONFIG_PREFIX" // The environment variable for specifying the config directory.
	EnvConfigRuntime    = "GCP_RUNTIME"       // The environment variable for specifying the runtime context (e.g., "local", "test", "prod").
	SecretsFileName     = ".secrets.env"      // Optional dotenv file with credentials, next to the TOML files.
	MaxRetries          = 3                   // The maximum number of times to retry a failed API call.
)

// Environment variables that override credentials found in the TOML files.
const (
	EnvMongoURI      = "MONGO_URI"
	EnvNeo4jURI      = "NEO4J_URI"
	EnvNeo4jUsername = "NEO4J_USERNAME"
	EnvNeo4jPassword = "NEO4J_PASSWORD"
	EnvYouTubeAPIKey = "YOUTUBE_API_KEY"
	EnvRedisAddr     = "REDIS_ADDR"
)

// fileExists checks if a file or directory exists at the given path.
func fileExists(in string) bool {
	_, err := os.Stat(in)
	return !errors.Is(err, os.ErrNotExist)
}

// configPrefix returns GCP_CONFIG_PREFIX with a trailing path separator.
func configPrefix() string {
	prefix := os.Getenv(EnvConfigFilePrefix)
	if len(prefix) > 0 && !strings.HasSuffix(prefix, string(os.PathSeparator)) {
		prefix = prefix + string(os.PathSeparator)
	}
	return prefix
}

// LoadConfig provides a hierarchical configuration loading mechanism. It first loads a
// base configuration file and then merges or overwrites its values with an environment-specific
// configuration file. The paths and environment are determined by environment variables.
// The optional .secrets.env file in the same directory is loaded into the process
// environment so ApplySecrets can pick the credentials up.
//
// Inputs:
//   - baseConfig: A pointer to the target configuration struct.
func LoadConfig(baseConfig interface{}) {
	configurationFilePrefix := configPrefix()

	runtimeEnvironment := os.Getenv(EnvConfigRuntime)
	if runtimeEnvironment == "" {
		runtimeEnvironment = "test"
	}

	baseConfigFileName := configurationFilePrefix + ConfigFileBaseName + ConfigFileExtension
	envConfigFileName := configurationFilePrefix + ConfigFileBaseName + ConfigSeparator + runtimeEnvironment + ConfigFileExtension
	slog.Debug("loading configuration", "base", baseConfigFileName, "runtime", envConfigFileName)

	if fileExists(baseConfigFileName) {
		_, err := toml.DecodeFile(baseConfigFileName, baseConfig)
		if err != nil {
			log.Fatalf("failed to decode base configuration file %s with error: %s", baseConfigFileName, err)
		}
	}

	// Values in the runtime file overwrite the base values.
	if fileExists(envConfigFileName) {
		_, err := toml.DecodeFile(envConfigFileName, baseConfig)
		if err != nil {
			log.Fatalf("failed to decode environment configuration file: %s with error: %s", envConfigFileName, err)
		}
	}

	secretsFileName := configurationFilePrefix + SecretsFileName
	if fileExists(secretsFileName) {
		// godotenv.Load never overrides variables that are already set.
		if err := godotenv.Load(secretsFileName); err != nil {
			log.Fatalf("failed to load secrets file %s with error: %s", secretsFileName, err)
		}
	}
}

// ApplySecrets copies credentials from the process environment over the values
// read from TOML. Unset variables leave the TOML value untouched.
func ApplySecrets(config *Config) {
	override := func(target *string, env string) {
		if v, ok := os.LookupEnv(env); ok && v != "" {
			*target = v
		}
	}
	override(&config.Mongo.URI, EnvMongoURI)
	override(&config.Neo4j.URI, EnvNeo4jURI)
	override(&config.Neo4j.Username, EnvNeo4jUsername)
	override(&config.Neo4j.Password, EnvNeo4jPassword)
	override(&config.YouTube.APIKey, EnvYouTubeAPIKey)
	override(&config.Redis.Addr, EnvRedisAddr)
}

// ContentGenerator is the part of a generative model that commands depend on.
// QuotaAwareGenerativeAIModel implements it.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, content []*genai.Content) (*genai.GenerateContentResponse, error)
}

// GenerateTextResponse executes a request against a generative model, retrying
// up to MaxRetries times, and returns the concatenated text of every candidate
// with any markdown code fence removed.
//
// Inputs:
//   - ctx: The context for the request, which controls cancellation and tracing.
//   - inputTokenCounter: An OpenTelemetry counter for prompt tokens used.
//   - outputTokenCounter: An OpenTelemetry counter for response tokens generated.
//   - retryCounter: An OpenTelemetry counter for tracking the number of retries.
//   - tryCount: The current attempt number for this request (starts at 0).
//   - model: The model to call.
//   - content: The prompt.
//
// Outputs:
//   - string: The cleaned response text.
//   - error: An error if the request fails after all retries.
func GenerateTextResponse(
	ctx context.Context,
	inputTokenCounter metric.Int64Counter,
	outputTokenCounter metric.Int64Counter,
	retryCounter metric.Int64Counter,
	tryCount int,
	model ContentGenerator,
	content []*genai.Content) (value string, err error) {
	resp, err := model.GenerateContent(ctx, content)
	if err != nil {
		if tryCount < MaxRetries && ctx.Err() == nil {
			retryCounter.Add(ctx, 1)
			return GenerateTextResponse(ctx, inputTokenCounter, outputTokenCounter, retryCounter, tryCount+1, model, content)
		}
		return "", fmt.Errorf("generation failed after %d attempts: %w", tryCount+1, err)
	}
	if resp == nil {
		return "", errors.New("generation returned no response")
	}
	if resp.UsageMetadata != nil {
		inputTokenCounter.Add(ctx, int64(resp.UsageMetadata.PromptTokenCount))
		outputTokenCounter.Add(ctx, int64(resp.UsageMetadata.CandidatesTokenCount))
	}

	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				sb.WriteString(part.Text)
			}
		}
	}
	return CleanJSONResponse(sb.String()), nil
}

// CleanJSONResponse strips surrounding whitespace and a markdown code fence
// (```json ... ``` or ``` ... ```) from a model response.
func CleanJSONResponse(in string) string {
	out := strings.TrimSpace(in)
	if strings.HasPrefix(out, "```") {
		out = strings.TrimPrefix(out, "```json")
		out = strings.TrimPrefix(out, "```JSON")
		out = strings.TrimPrefix(out, "```")
		out = strings.TrimSuffix(strings.TrimSpace(out), "```")
	}
	return strings.TrimSpace(out)
}

// NewTextPart wraps a prompt string as user content.
func NewTextPart(in string) []*genai.Content {
	return genai.Text(in)
}
