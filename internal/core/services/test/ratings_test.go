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
package services_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"github.com/zeebo/assert"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/cloud"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/services"
)

type staticUsers []string

func (u staticUsers) UserIDs(context.Context) ([]string, error) { return u, nil }

func TestNormalizeItineraryText(t *testing.T) {
	got := services.NormalizeItineraryText("Day 1:  Visit Amber Fort — then\tHawa Mahal. DAY 2: Relax; eat.")
	assert.Equal(t, got, "visit amber fort - then hawa mahal relax eat")
}

func TestItinerarySimilarity(t *testing.T) {
	assert.Equal(t, services.ItinerarySimilarity("Day 1: Visit Amber Fort.", "day 1: visit amber fort"), 1.0)
	assert.Equal(t, services.ItinerarySimilarity("visit amber fort today", "visit amber fort tonight"), 0.6)
	// more than 20% apart in length
	assert.Equal(t, services.ItinerarySimilarity("goa", "goa beaches and forts"), 0.0)
}

func TestFindSimilarRow(t *testing.T) {
	rows := []services.RatingRow{
		{Text: "Relax on Baga beach"},
		{Text: "Day 1: Visit Amber Fort."},
	}
	index, similarity := services.FindSimilarRow(rows, "day 1: visit amber fort")
	assert.Equal(t, index, 1)
	assert.Equal(t, similarity, 1.0)

	index, similarity = services.FindSimilarRow(rows, "visit amber fort today")
	assert.Equal(t, index, -1)
	assert.Equal(t, similarity, 0.0)
}

func TestGenerateRecommendations(t *testing.T) {
	users := []string{"a", "b", "c"}
	rows := []services.RatingRow{
		{Text: "Goa beaches", Ratings: map[string]int{"a": 5, "b": 4, "c": 0}},
		{Text: "Agra fort", Ratings: map[string]int{"a": 0, "b": 5, "c": 0}},
		{Text: "Jaipur palaces", Ratings: map[string]int{"a": 4, "c": 0}},
		{Text: "Kerala backwaters", Ratings: map[string]int{"c": 5}},
	}
	recs := services.GenerateRecommendations(rows, users)
	assert.DeepEqual(t, recs["a"], []string{"Agra fort"})
	assert.DeepEqual(t, recs["b"], []string{"Jaipur palaces"})
	assert.Equal(t, len(recs["c"]), 0)

	out := services.RecommendationRows(recs, users)
	assert.Equal(t, len(out), 4)
	assert.Equal(t, out[0].UserID, "a")
	assert.Equal(t, out[0].MatchScore, services.PersonalMatchScore)
	assert.Equal(t, out[2].UserID, services.GenericUserID)
	assert.Equal(t, out[2].Itinerary, "Agra fort")
	assert.Equal(t, out[3].Itinerary, "Jaipur palaces")
	assert.That(t, out[3].IsGeneric)
}

func TestRecommendationRowsCapGenericRows(t *testing.T) {
	recs := map[string][]string{"a": {"one", "two", "three", "four"}}
	out := services.RecommendationRows(recs, []string{"a"})
	assert.Equal(t, len(out), 7)
	assert.Equal(t, out[6].Itinerary, "three")
	assert.Equal(t, out[6].MatchScore, services.GenericMatchScore)
}

func newRatingService(t *testing.T, users ...string) *services.RatingService {
	dir := t.TempDir()
	config := cloud.NewConfig()
	config.Workbooks.RatingsPath = filepath.Join(dir, "data", "itinerary_ratings.xlsx")
	config.Workbooks.RecommendationsPath = filepath.Join(dir, "data", "itinerary_recommendations.xlsx")
	return services.NewRatingService(config, staticUsers(users), nil)
}

func TestRateUpdatesSimilarRowsAndRecommends(t *testing.T) {
	ctx := context.Background()
	svc := newRatingService(t, "a", "b", "c")

	res, err := svc.Rate(ctx, &services.RatingRequest{
		ItineraryText: "Day 1: Visit Amber Fort. Day 2: Explore Hawa Mahal.", UserID: "a", Rating: 5,
	})
	assert.NoError(t, err)
	assert.Equal(t, res.Message, "New rating saved successfully")
	assert.Equal(t, res.Similarity, 0.0)

	res, err = svc.Rate(ctx, &services.RatingRequest{
		ItineraryText: "Day 1: visit Amber Fort; Day 2: explore Hawa Mahal", UserID: "b", Rating: 4,
	})
	assert.NoError(t, err)
	assert.Equal(t, res.Message, "Rating updated successfully")
	assert.Equal(t, res.Similarity, 1.0)

	_, err = svc.Rate(ctx, &services.RatingRequest{
		ItineraryText: "Relax on Baga beach with sunset shacks", UserID: "b", Rating: 5,
	})
	assert.NoError(t, err)

	recs, err := svc.Recommended(ctx, "a")
	assert.NoError(t, err)
	assert.Equal(t, len(recs), 1)
	assert.Equal(t, recs[0].Itinerary, "Relax on Baga beach with sunset shacks")
	assert.Equal(t, recs[0].MatchScore, 0.8)

	generic, err := svc.Recommended(ctx, services.GenericUserID)
	assert.NoError(t, err)
	assert.Equal(t, len(generic), 1)
	assert.That(t, generic[0].IsGeneric)

	none, err := svc.Recommended(ctx, "c")
	assert.NoError(t, err)
	assert.Equal(t, len(none), 0)
}

func TestRateRejectsUnknownUsersAndMissingFields(t *testing.T) {
	ctx := context.Background()
	svc := newRatingService(t, "a")

	_, err := svc.Rate(ctx, &services.RatingRequest{ItineraryText: "Goa", UserID: "zz", Rating: 3})
	assert.That(t, errors.Is(err, services.ErrUnknownRater))

	_, err = svc.Rate(ctx, &services.RatingRequest{UserID: "a", Rating: 3})
	assert.That(t, errors.Is(err, services.ErrInvalidInput))
}

func TestRecommendedWithoutWorkbookIsEmpty(t *testing.T) {
	recs, err := newRatingService(t, "a").Recommended(context.Background(), "a")
	assert.NoError(t, err)
	assert.Equal(t, len(recs), 0)
}

func TestExportURLNeedsBucket(t *testing.T) {
	_, err := newRatingService(t).ExportURL(context.Background())
	assert.That(t, errors.Is(err, services.ErrMirrorDisabled))
}

// memoryMirror is a bucket with object generations, shared by several
// services the way replicas share one GCS bucket.
type memoryMirror struct {
	mu           sync.Mutex
	objects      map[string][]byte
	generations  map[string]int64
	downloadErr  error
	beforeUpload func(name string)
	uploads      int
}

func newMemoryMirror() *memoryMirror {
	return &memoryMirror{objects: make(map[string][]byte), generations: make(map[string]int64)}
}

func (m *memoryMirror) Download(_ context.Context, name string) ([]byte, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.downloadErr != nil {
		return nil, 0, m.downloadErr
	}
	data, ok := m.objects[filepath.Base(name)]
	if !ok {
		return nil, 0, cloud.ErrObjectNotFound
	}
	return data, m.generations[filepath.Base(name)], nil
}

func (m *memoryMirror) Upload(_ context.Context, name string, data []byte, generation int64) error {
	m.mu.Lock()
	hook := m.beforeUpload
	m.beforeUpload = nil
	m.mu.Unlock()
	if hook != nil {
		hook(name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	key := filepath.Base(name)
	if generation != cloud.AnyGeneration && generation != m.generations[key] {
		return cloud.ErrGenerationMismatch
	}
	m.objects[key] = data
	m.generations[key]++
	m.uploads++
	return nil
}

func (m *memoryMirror) SignedURL(_ context.Context, name string, _ time.Duration) (string, error) {
	return "https://storage.example/" + filepath.Base(name), nil
}

func ratingTexts(t *testing.T, data []byte) []string {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	assert.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(services.SheetRatings)
	assert.NoError(t, err)
	out := make([]string, 0, len(rows))
	for _, r := range rows[1:] {
		out = append(out, r[0])
	}
	return out
}

func TestRateFailsWhenTheBucketCannotBeRead(t *testing.T) {
	ctx := context.Background()
	svc := newRatingService(t, "a")
	_, err := svc.Rate(ctx, &services.RatingRequest{ItineraryText: "Day 1: Visit Amber Fort.", UserID: "a", Rating: 4})
	assert.NoError(t, err)

	mirror := newMemoryMirror()
	mirror.downloadErr = errors.New("503 backend unavailable")
	svc.Store = mirror
	_, err = svc.Rate(ctx, &services.RatingRequest{ItineraryText: "Relax on Baga beach with sunset shacks", UserID: "a", Rating: 5})
	assert.Error(t, err)
	assert.Equal(t, mirror.uploads, 0)
}

func TestRateRetriesWhenAnotherReplicaWroteFirst(t *testing.T) {
	ctx := context.Background()
	mirror := newMemoryMirror()
	first := newRatingService(t, "a", "b")
	first.Store = mirror
	second := newRatingService(t, "a", "b")
	second.Store = mirror

	mirror.beforeUpload = func(string) {
		_, err := second.Rate(ctx, &services.RatingRequest{ItineraryText: "Relax on Baga beach with sunset shacks", UserID: "b", Rating: 5})
		assert.NoError(t, err)
	}
	res, err := first.Rate(ctx, &services.RatingRequest{ItineraryText: "Day 1: Visit Amber Fort.", UserID: "a", Rating: 4})
	assert.NoError(t, err)
	assert.Equal(t, res.Message, "New rating saved successfully")

	// The first write lost the race, so the second attempt keeps the other row.
	assert.DeepEqual(t, ratingTexts(t, mirror.objects["itinerary_ratings.xlsx"]), []string{
		"Relax on Baga beach with sunset shacks",
		"Day 1: Visit Amber Fort.",
	})
	assert.Equal(t, mirror.generations["itinerary_ratings.xlsx"], int64(2))
}

func TestRateRejectsWorkbookWithoutRatingsSheet(t *testing.T) {
	svc := newRatingService(t, "a")
	f := excelize.NewFile()
	assert.NoError(t, os.MkdirAll(filepath.Dir(svc.RatingsPath), 0o755))
	assert.NoError(t, f.SaveAs(svc.RatingsPath))
	assert.NoError(t, f.Close())
	before, err := os.ReadFile(svc.RatingsPath)
	assert.NoError(t, err)

	_, err = svc.Rate(context.Background(), &services.RatingRequest{ItineraryText: "Goa beaches", UserID: "a", Rating: 3})
	assert.Error(t, err)
	after, err := os.ReadFile(svc.RatingsPath)
	assert.NoError(t, err)
	assert.That(t, bytes.Equal(before, after))
}
