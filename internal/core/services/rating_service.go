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
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/cloud"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/model"
)

// Sheet and column names of the rating workbooks.
const (
	SheetRatings         = "Ratings"
	SheetRecommendations = "Recommendations"
	ColumnItineraryText  = "ItineraryText"
)

var recommendationHeader = []string{"userId", "itinerary", "matchScore", "isGeneric"}

var (
	ErrUnknownRater   = errors.New("User not found in column mapping")
	ErrMirrorDisabled = errors.New("workbook bucket is not configured")
)

// MaxWorkbookAttempts bounds the read-modify-write cycles of Rate when other
// replicas keep replacing the shared ratings workbook.
const MaxWorkbookAttempts = 5

// RatingRequest is the body of POST /itineraries/rate.
type RatingRequest struct {
	ItineraryText string `json:"itineraryText" validate:"required"`
	UserID        string `json:"userId" validate:"required"`
	Rating        int    `json:"rating" validate:"required,min=1,max=5"`
}

// UserLister returns every user id in a stable order.
type UserLister interface {
	UserIDs(ctx context.Context) ([]string, error)
}

// WorkbookMirror is the shared copy of the workbooks. *cloud.WorkbookStore
// implements it on GCS.
type WorkbookMirror interface {
	Download(ctx context.Context, name string) ([]byte, int64, error)
	Upload(ctx context.Context, name string, data []byte, generation int64) error
	SignedURL(ctx context.Context, name string, expires time.Duration) (string, error)
}

// RatingService keeps itinerary ratings in an xlsx workbook and derives a
// recommendations workbook from them. When Store is set the workbooks are
// read from the bucket and written back only if no other writer replaced
// them in between.
type RatingService struct {
	Users               UserLister
	Store               WorkbookMirror
	RatingsPath         string
	RecommendationsPath string
	SignedURLTTL        time.Duration

	mu sync.Mutex
}

// NewRatingService builds the service from the workbook settings.
func NewRatingService(config *cloud.Config, users UserLister, store *cloud.WorkbookStore) *RatingService {
	out := &RatingService{
		Users:               users,
		RatingsPath:         config.Workbooks.RatingsPath,
		RecommendationsPath: config.Workbooks.RecommendationsPath,
		SignedURLTTL:        time.Duration(config.Workbooks.SignedURLMinutes) * time.Minute,
	}
	if store != nil {
		out.Store = store
	}
	return out
}

// Rate records the rating on the most similar existing row or on a new row,
// then regenerates the recommendations.
func (s *RatingService) Rate(ctx context.Context, req *RatingRequest) (*model.RatingResult, error) {
	if err := ValidateStruct(req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.Users.UserIDs(ctx)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(users, req.UserID) {
		return nil, ErrUnknownRater
	}

	for attempt := 1; ; attempt++ {
		result, rows, err := s.rateOnce(ctx, users, req)
		if errors.Is(err, cloud.ErrGenerationMismatch) && attempt < MaxWorkbookAttempts {
			slog.InfoContext(ctx, "ratings workbook changed concurrently, retrying", "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, err
		}

		recommendations := RecommendationRows(GenerateRecommendations(rows, users), users)
		if err = s.saveRecommendations(ctx, recommendations); err != nil {
			slog.ErrorContext(ctx, "failed to regenerate recommendations", "error", err)
		}
		return result, nil
	}
}

// rateOnce applies one rating to a fresh read of the ratings workbook and
// writes it back, returning the rows written.
func (s *RatingService) rateOnce(ctx context.Context, users []string, req *RatingRequest) (*model.RatingResult, []RatingRow, error) {
	columns, rows, generation, err := s.loadRatings(ctx)
	if err != nil {
		return nil, nil, err
	}
	for _, u := range users {
		if !slices.Contains(columns, u) {
			columns = append(columns, u)
		}
	}

	index, similarity := FindSimilarRow(rows, req.ItineraryText)
	result := &model.RatingResult{Success: true}
	if index >= 0 {
		rows[index].Ratings[req.UserID] = req.Rating
		result.Message = "Rating updated successfully"
		result.Similarity = similarity
	} else {
		row := RatingRow{Text: req.ItineraryText, Ratings: make(map[string]int, len(users))}
		for _, u := range users {
			row.Ratings[u] = 0
		}
		row.Ratings[req.UserID] = req.Rating
		rows = append(rows, row)
		result.Message = "New rating saved successfully"
	}

	if err = s.saveRatings(ctx, columns, rows, generation); err != nil {
		return nil, nil, err
	}
	return result, rows, nil
}

// Recommended returns the recommendation rows of a user, best match first.
func (s *RatingService) Recommended(ctx context.Context, userID string) ([]model.Recommendation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.loadRecommendations(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Recommendation, 0)
	for _, r := range all {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].MatchScore > out[j].MatchScore })
	return out, nil
}

// ExportURL signs a download URL for the recommendations workbook.
func (s *RatingService) ExportURL(ctx context.Context) (string, error) {
	if s.Store == nil {
		return "", ErrMirrorDisabled
	}
	return s.Store.SignedURL(ctx, s.RecommendationsPath, s.SignedURLTTL)
}

// openWorkbook prefers the bucket copy and falls back to the local file only
// when the bucket has none. A nil file without error means neither exists
// yet. The generation is that of the bucket object, 0 when it is missing.
func (s *RatingService) openWorkbook(ctx context.Context, path string) (*excelize.File, int64, error) {
	if s.Store != nil {
		data, generation, err := s.Store.Download(ctx, path)
		switch {
		case err == nil:
			f, err := excelize.OpenReader(bytes.NewReader(data))
			if err != nil {
				return nil, 0, fmt.Errorf("opening %s from bucket: %w", path, err)
			}
			return f, generation, nil
		case !errors.Is(err, cloud.ErrObjectNotFound):
			return nil, 0, fmt.Errorf("downloading %s: %w", path, err)
		}
	}
	f, err := excelize.OpenFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("opening %s: %w", path, err)
	}
	return f, 0, nil
}

// writeWorkbook stores f locally and, with a bucket, uploads it conditioned on
// generation (cloud.AnyGeneration to overwrite).
func (s *RatingService) writeWorkbook(ctx context.Context, path string, f *excelize.File, generation int64) error {
	buf, err := f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err = os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if s.Store != nil {
		if err = s.Store.Upload(ctx, path, buf.Bytes(), generation); err != nil {
			return fmt.Errorf("uploading %s: %w", path, err)
		}
	}
	if err = os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// loadRatings returns the user columns (without ItineraryText), the rows and
// the generation they were read at.
func (s *RatingService) loadRatings(ctx context.Context) ([]string, []RatingRow, int64, error) {
	f, generation, err := s.openWorkbook(ctx, s.RatingsPath)
	if err != nil || f == nil {
		return nil, nil, generation, err
	}
	defer f.Close()

	sheet, err := f.GetRows(SheetRatings)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("reading sheet %s of %s: %w", SheetRatings, s.RatingsPath, err)
	}
	if len(sheet) == 0 {
		return nil, nil, generation, nil
	}
	header := sheet[0]
	var columns []string
	if len(header) > 1 {
		columns = append(columns, header[1:]...)
	}
	rows := make([]RatingRow, 0, len(sheet)-1)
	for _, cells := range sheet[1:] {
		if len(cells) == 0 || cells[0] == "" {
			continue
		}
		row := RatingRow{Text: cells[0], Ratings: make(map[string]int)}
		for i, cell := range cells[1:] {
			if i >= len(columns) {
				break
			}
			if v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64); err == nil {
				row.Ratings[columns[i]] = int(v)
			}
		}
		rows = append(rows, row)
	}
	return columns, rows, generation, nil
}

func (s *RatingService) saveRatings(ctx context.Context, columns []string, rows []RatingRow, generation int64) error {
	f, err := newSheetFile(SheetRatings)
	if err != nil {
		return err
	}
	defer f.Close()

	header := make([]interface{}, 0, len(columns)+1)
	header = append(header, ColumnItineraryText)
	for _, c := range columns {
		header = append(header, c)
	}
	if err = setRow(f, SheetRatings, 1, header); err != nil {
		return err
	}
	for i, row := range rows {
		values := make([]interface{}, 0, len(columns)+1)
		values = append(values, row.Text)
		for _, c := range columns {
			if v, ok := row.Ratings[c]; ok {
				values = append(values, v)
			} else {
				values = append(values, nil)
			}
		}
		if err = setRow(f, SheetRatings, i+2, values); err != nil {
			return err
		}
	}
	return s.writeWorkbook(ctx, s.RatingsPath, f, generation)
}

func (s *RatingService) saveRecommendations(ctx context.Context, recommendations []model.Recommendation) error {
	f, err := newSheetFile(SheetRecommendations)
	if err != nil {
		return err
	}
	defer f.Close()

	header := make([]interface{}, len(recommendationHeader))
	for i, h := range recommendationHeader {
		header[i] = h
	}
	if err = setRow(f, SheetRecommendations, 1, header); err != nil {
		return err
	}
	for i, r := range recommendations {
		if err = setRow(f, SheetRecommendations, i+2, []interface{}{r.UserID, r.Itinerary, r.MatchScore, r.IsGeneric}); err != nil {
			return err
		}
	}
	// Derived from the ratings just written, so the newest writer wins.
	return s.writeWorkbook(ctx, s.RecommendationsPath, f, cloud.AnyGeneration)
}

// loadRecommendations reads the first sheet, locating columns by header name.
func (s *RatingService) loadRecommendations(ctx context.Context) ([]model.Recommendation, error) {
	f, _, err := s.openWorkbook(ctx, s.RecommendationsPath)
	if err != nil || f == nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	index := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		index[name] = i
	}
	cell := func(row []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	out := make([]model.Recommendation, 0, len(rows)-1)
	for _, row := range rows[1:] {
		r := model.Recommendation{
			UserID:    cell(row, "userId"),
			Itinerary: cell(row, "itinerary"),
		}
		r.MatchScore, _ = strconv.ParseFloat(cell(row, "matchScore"), 64)
		r.IsGeneric, _ = strconv.ParseBool(strings.ToLower(cell(row, "isGeneric")))
		out = append(out, r)
	}
	return out, nil
}

func newSheetFile(sheet string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}
