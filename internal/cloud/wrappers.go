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

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// DefaultRetryBackoff is the pause before a failed generation is retried.
const DefaultRetryBackoff = 30 * time.Second

// QuotaAwareGenerativeAIModel decorates a Vertex AI model with a token-bucket
// rate limiter and a bounded retry, so that batch runs over hundreds of
// transcripts stay inside the per-project quota.
type QuotaAwareGenerativeAIModel struct {
	GenerativeContentConfig *genai.GenerateContentConfig
	ModelName               string
	ModelHandle             *genai.Models
	RateLimit               *rate.Limiter
	RetryBackoff            time.Duration
}

// NewQuotaAwareModel wraps the named model. requestsPerSecond is both the
// refill rate and the burst of the limiter.
func NewQuotaAwareModel(wrapped *genai.GenerateContentConfig, name string, modelHandle *genai.Models, requestsPerSecond int) *QuotaAwareGenerativeAIModel {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &QuotaAwareGenerativeAIModel{
		GenerativeContentConfig: wrapped,
		ModelName:               name,
		ModelHandle:             modelHandle,
		RateLimit:               rate.NewLimiter(rate.Every(time.Second/time.Duration(requestsPerSecond)), requestsPerSecond),
		RetryBackoff:            DefaultRetryBackoff,
	}
}

// GenerateContent blocks until the limiter grants a token, then calls the
// model. A failed call is retried once after RetryBackoff; the caller's own
// retry policy (GenerateTextResponse) sits on top of this.
func (q *QuotaAwareGenerativeAIModel) GenerateContent(ctx context.Context, content []*genai.Content) (*genai.GenerateContentResponse, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if err := q.RateLimit.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
		resp, err := q.ModelHandle.GenerateContent(ctx, q.ModelName, content, q.GenerativeContentConfig)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		slog.WarnContext(ctx, "generation failed", "model", q.ModelName, "attempt", attempt+1, "error", err)
		if attempt > 0 {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(q.RetryBackoff):
		}
	}
	return nil, lastErr
}
