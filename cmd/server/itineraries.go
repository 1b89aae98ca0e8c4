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
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/model"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/services"
)

type saveItineraryRequest struct {
	UserID    string `json:"userId"`
	Itinerary string `json:"itinerary"`
}

type recommendedItinerary struct {
	Itinerary  string  `json:"itinerary"`
	MatchScore float64 `json:"matchScore"`
}

// ItineraryRouter registers the /itineraries routes.
func ItineraryRouter(r *gin.RouterGroup, s *StateManager) {
	itineraries := r.Group("/itineraries")
	{
		itineraries.POST("/generate", func(c *gin.Context) {
			req := &model.ItineraryRequest{}
			if !bindJSON(c, req) {
				return
			}
			out, err := s.itinerary.Generate(c.Request.Context(), req)
			if err != nil {
				respondError(c, err, "Failed to generate itineraries")
				return
			}
			c.JSON(http.StatusOK, gin.H{"itineraries": out})
		})

		itineraries.POST("/save", func(c *gin.Context) {
			req := &saveItineraryRequest{}
			if !bindJSON(c, req) {
				return
			}
			if req.UserID == "" || strings.TrimSpace(req.Itinerary) == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
				return
			}
			saved, err := s.users.SaveItinerary(c.Request.Context(), req.UserID, req.Itinerary)
			if err != nil {
				respondError(c, err, "Failed to save itinerary")
				return
			}
			c.JSON(http.StatusOK, gin.H{"message": "Itinerary saved successfully", "itinerary": saved})
		})

		itineraries.GET("/saved", func(c *gin.Context) {
			userID := c.Query("userId")
			if userID == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "User ID is required"})
				return
			}
			saved, err := s.users.SavedItineraries(c.Request.Context(), userID)
			if err != nil {
				respondError(c, err, "Failed to fetch itineraries")
				return
			}
			c.JSON(http.StatusOK, gin.H{"itineraries": saved})
		})

		itineraries.POST("/select", func(c *gin.Context) {
			selection := &model.SelectedItinerary{}
			if !bindJSON(c, selection) {
				return
			}
			if err := s.feedback.Select(c.Request.Context(), selection); err != nil {
				respondError(c, err, "Failed to save selection")
				return
			}
			c.JSON(http.StatusCreated, gin.H{"message": "Itinerary selected successfully", "id": selection.ID.Hex()})
		})

		itineraries.POST("/rate", func(c *gin.Context) {
			req := &services.RatingRequest{}
			if !bindJSON(c, req) {
				return
			}
			res, err := s.ratings.Rate(c.Request.Context(), req)
			if err != nil {
				respondError(c, err, "Failed to save rating")
				return
			}
			c.JSON(http.StatusOK, res)
		})

		itineraries.GET("/recommended", func(c *gin.Context) {
			userID := c.Query("userId")
			if userID == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "User ID is required"})
				return
			}
			recs, err := s.ratings.Recommended(c.Request.Context(), userID)
			if err != nil {
				respondError(c, err, "Failed to fetch recommended itineraries")
				return
			}
			out := make([]recommendedItinerary, 0, len(recs))
			for _, r := range recs {
				out = append(out, recommendedItinerary{Itinerary: r.Itinerary, MatchScore: r.MatchScore})
			}
			c.JSON(http.StatusOK, gin.H{"recommendations": out})
		})

		itineraries.GET("/recommended/export", func(c *gin.Context) {
			url, err := s.ratings.ExportURL(c.Request.Context())
			if err != nil {
				respondError(c, err, "Could not sign the recommendations workbook")
				return
			}
			c.JSON(http.StatusOK, gin.H{"url": url})
		})
	}
}

// FeedbackRouter registers POST /feedback.
func FeedbackRouter(r *gin.RouterGroup, s *StateManager) {
	r.POST("/feedback", func(c *gin.Context) {
		feedback := &model.Feedback{}
		if !bindJSON(c, feedback) {
			return
		}
		if err := s.feedback.Submit(c.Request.Context(), feedback); err != nil {
			respondError(c, err, "Failed to save feedback")
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "Feedback saved successfully"})
	})
}
