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
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/services"
)

type askRequest struct {
	Question string `json:"question" binding:"required"`
}

func countParam(c *gin.Context, fallback int) int {
	count, err := strconv.Atoi(c.DefaultQuery("count", strconv.Itoa(fallback)))
	if err != nil || count <= 0 {
		return fallback
	}
	return count
}

// KnowledgeRouter registers the /knowledge routes backed by the knowledge
// base, the graph and the RAG agent.
func KnowledgeRouter(r *gin.RouterGroup, s *StateManager) {
	knowledge := r.Group("/knowledge")
	{
		// GET /knowledge/search?s=<query>&count=<n>
		knowledge.GET("/search", func(c *gin.Context) {
			query := c.Query("s")
			if query == "" {
				c.Status(http.StatusBadRequest)
				return
			}
			results, err := s.search.Search(c.Request.Context(), query, countParam(c, services.DefaultTopK))
			if err != nil {
				respondError(c, err, "Failed to search the knowledge base")
				return
			}
			c.JSON(http.StatusOK, results)
		})

		// GET /knowledge/similar?s=<query>&count=<n>
		knowledge.GET("/similar", func(c *gin.Context) {
			query := c.Query("s")
			if query == "" {
				c.Status(http.StatusBadRequest)
				return
			}
			results, err := s.search.FindSimilar(c.Request.Context(), query, countParam(c, services.DefaultTopK))
			if err != nil {
				respondError(c, err, "Failed to search exported embeddings")
				return
			}
			c.JSON(http.StatusOK, results)
		})

		knowledge.GET("/destinations", func(c *gin.Context) {
			out, err := s.graph.Destinations(c.Request.Context())
			if err != nil {
				respondError(c, err, "Failed to list destinations")
				return
			}
			c.JSON(http.StatusOK, gin.H{"destinations": out})
		})

		knowledge.GET("/destinations/:name", func(c *gin.Context) {
			out, err := s.graph.Destination(c.Request.Context(), c.Param("name"))
			if err != nil {
				respondError(c, err, "Failed to load destination")
				return
			}
			c.JSON(http.StatusOK, out)
		})

		knowledge.GET("/destinations/:name/attractions", func(c *gin.Context) {
			out, err := s.graph.Attractions(c.Request.Context(), c.Param("name"))
			if err != nil {
				respondError(c, err, "Failed to load attractions")
				return
			}
			c.JSON(http.StatusOK, gin.H{"attractions": out})
		})

		knowledge.GET("/destinations/:name/tips", func(c *gin.Context) {
			out, err := s.graph.TravelTips(c.Request.Context(), c.Param("name"))
			if err != nil {
				respondError(c, err, "Failed to load travel tips")
				return
			}
			c.JSON(http.StatusOK, gin.H{"tips": out})
		})

		knowledge.GET("/destinations/:name/entry", func(c *gin.Context) {
			out, err := s.knowledge.Entry(c.Request.Context(), c.Param("name"))
			if err != nil {
				respondError(c, err, "Failed to load knowledge entry")
				return
			}
			c.JSON(http.StatusOK, out)
		})

		knowledge.GET("/landmarks", func(c *gin.Context) {
			kw := c.Query("kw")
			if kw == "" {
				c.Status(http.StatusBadRequest)
				return
			}
			out, err := s.graph.DestinationsByLandmark(c.Request.Context(), kw)
			if err != nil {
				respondError(c, err, "Failed to search landmarks")
				return
			}
			c.JSON(http.StatusOK, gin.H{"destinations": out})
		})

		knowledge.GET("/topics", func(c *gin.Context) {
			out, err := s.knowledge.Topics(c.Request.Context())
			if err != nil {
				respondError(c, err, "Failed to load topics")
				return
			}
			c.JSON(http.StatusOK, out)
		})

		knowledge.POST("/ask", func(c *gin.Context) {
			req := &askRequest{}
			if !bindJSON(c, req) {
				return
			}
			out, err := s.rag.Ask(c.Request.Context(), req.Question)
			if err != nil {
				respondError(c, err, "Failed to answer the question")
				return
			}
			c.JSON(http.StatusOK, out)
		})
	}
}
