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
	"math"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// embedBatchSize is the number of texts sent in one EmbedContent call.
const embedBatchSize = 16

// Embedder turns texts into dense vectors, one vector per text, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
}

// GenAIEmbedder embeds text with a Vertex AI embedding model.
type GenAIEmbedder struct {
	models    *genai.Models
	modelName string
	limiter   *rate.Limiter
}

// NewGenAIEmbedder creates an embedder limited to maxRequestsPerMinute calls.
func NewGenAIEmbedder(models *genai.Models, modelName string, maxRequestsPerMinute int) *GenAIEmbedder {
	limit := rate.Inf
	if maxRequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(maxRequestsPerMinute))
	}
	return &GenAIEmbedder{
		models:    models,
		modelName: modelName,
		limiter:   rate.NewLimiter(limit, 1),
	}
}

func (e *GenAIEmbedder) ModelName() string {
	return e.modelName
}

// Embed sends the texts in batches and concatenates the returned vectors.
func (e *GenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := min(start+embedBatchSize, len(texts))

		contents := make([]*genai.Content, 0, end-start)
		for _, t := range texts[start:end] {
			contents = append(contents, genai.NewContentFromText(t, genai.RoleUser))
		}
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		resp, err := e.models.EmbedContent(ctx, e.modelName, contents, nil)
		if err != nil {
			return nil, fmt.Errorf("embed content with %s: %w", e.modelName, err)
		}
		if len(resp.Embeddings) != end-start {
			return nil, fmt.Errorf("embed content with %s: expected %d embeddings, got %d", e.modelName, end-start, len(resp.Embeddings))
		}
		for _, emb := range resp.Embeddings {
			out = append(out, emb.Values)
		}
	}
	return out, nil
}

// EmbedOne is a convenience wrapper for a single text.
func EmbedOne(ctx context.Context, embedder Embedder, text string) ([]float32, error) {
	vectors, err := embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no embedding returned by %s", embedder.ModelName())
	}
	return vectors[0], nil
}

// CosineSimilarity returns the cosine of the angle between a and b. Vectors of
// different length or with zero norm have similarity 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
