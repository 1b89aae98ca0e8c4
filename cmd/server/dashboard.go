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
package main

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/cor"
)

type scrapeRequest struct {
	Destinations []string `json:"destinations" binding:"required"`
}

// Dashboard registers the operational routes: collection counts and an
// asynchronous scrape trigger.
func Dashboard(r *gin.RouterGroup, s *StateManager) {
	r.GET("/stats", func(c *gin.Context) {
		out, err := s.knowledge.Stats(c.Request.Context())
		if err != nil {
			respondError(c, err, "Failed to count documents")
			return
		}
		c.JSON(http.StatusOK, gin.H{"collections": out})
	})

	pipeline := r.Group("/pipeline")
	{
		pipeline.POST("/scrape", func(c *gin.Context) {
			req := &scrapeRequest{}
			if !bindJSON(c, req) {
				return
			}
			accepted := make([]string, 0, len(req.Destinations))
			for _, d := range req.Destinations {
				if d = strings.TrimSpace(d); d != "" {
					accepted = append(accepted, d)
				}
			}
			if len(accepted) == 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "No destinations given"})
				return
			}
			// The run outlives the request.
			ctx := context.WithoutCancel(c.Request.Context())
			go runScrapes(ctx, s, accepted)
			c.JSON(http.StatusAccepted, gin.H{"accepted": accepted})
		})
	}
}

func runScrapes(ctx context.Context, s *StateManager, destinations []string) {
	for _, d := range destinations {
		chainCtx := cor.NewContextWithInput(ctx, d)
		s.scrape.Execute(chainCtx)
		if chainCtx.HasErrors() {
			slog.ErrorContext(ctx, "scrape failed", "destination", d, "error", chainCtx.Err())
		} else {
			slog.InfoContext(ctx, "scrape complete", "destination", d)
		}
		chainCtx.Close()
	}
}
