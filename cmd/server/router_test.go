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
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/cloud"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/services"
)

type staticUsers []string

func (u staticUsers) UserIDs(context.Context) ([]string, error) { return u, nil }

func newTestRouter(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)
	config := cloud.NewConfig()
	dir := t.TempDir()
	config.Workbooks.RatingsPath = filepath.Join(dir, "ratings.xlsx")
	config.Workbooks.RecommendationsPath = filepath.Join(dir, "recommendations.xlsx")
	s := &StateManager{
		config:  config,
		ratings: services.NewRatingService(config, staticUsers{"u1", "u2"}, nil),
	}
	return NewRouter(s, "test")
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{services.ErrUserExists, http.StatusBadRequest},
		{fmt.Errorf("%w: name is required", services.ErrInvalidInput), http.StatusBadRequest},
		{services.ErrInvalidCredentials, http.StatusBadRequest},
		{services.ErrUnknownRater, http.StatusBadRequest},
		{services.ErrUserNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", services.ErrEntryNotFound), http.StatusNotFound},
		{services.ErrMirrorDisabled, http.StatusNotImplemented},
		{services.ErrNoAgentModel, http.StatusServiceUnavailable},
		{services.ErrVectorSearchDisabled, http.StatusServiceUnavailable},
		{errors.New("mongo down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func TestRateRoute(t *testing.T) {
	r := newTestRouter(t)

	w := do(r, http.MethodPost, "/api/v1/itineraries/rate", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/api/v1/itineraries/rate", `{"userId":"u1","rating":4}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/api/v1/itineraries/rate", `{"itineraryText":"Day 1: Goa beaches","userId":"nobody","rating":4}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "User not found in column mapping")

	w = do(r, http.MethodPost, "/api/v1/itineraries/rate", `{"itineraryText":"Day 1: Goa beaches","userId":"u1","rating":4}`)
	require.Equal(t, http.StatusOK, w.Code)
	res := map[string]any{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, true, res["success"])
	assert.Equal(t, "New rating saved successfully", res["message"])
	assert.Equal(t, 0.0, res["similarity"])
}

func TestRecommendedRoute(t *testing.T) {
	r := newTestRouter(t)

	w := do(r, http.MethodGet, "/api/v1/itineraries/recommended", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/api/v1/itineraries/recommended?userId=u1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"recommendations":[]}`, w.Body.String())

	w = do(r, http.MethodGet, "/api/v1/itineraries/recommended/export", "")
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestKnowledgeRoutesWithoutBackends(t *testing.T) {
	gin.SetMode(gin.TestMode)
	clients := &cloud.ServiceClients{AgentModels: map[string]*cloud.QuotaAwareGenerativeAIModel{}}
	graph := &services.GraphService{}
	rag, err := services.NewRAGService(graph, clients.AgentModel("default"), "")
	require.NoError(t, err)
	s := &StateManager{
		config: cloud.NewConfig(),
		graph:  graph,
		rag:    rag,
		search: &services.SearchService{BigqueryClient: clients.BigQueryClient},
	}
	r := NewRouter(s, "test")

	w := do(r, http.MethodPost, "/api/v1/knowledge/ask", `{"question":"Which forts are in Jaipur?"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), services.ErrNoAgentModel.Error())

	w = do(r, http.MethodGet, "/api/v1/knowledge/similar?s=forts", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), services.ErrVectorSearchDisabled.Error())
}

func TestScrapeRouteNeedsDestinations(t *testing.T) {
	r := newTestRouter(t)
	w := do(r, http.MethodPost, "/api/v1/pipeline/scrape", `{"destinations":["  "]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
