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
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/model"
)

// FeedbackService stores itinerary feedback and itinerary selections.
type FeedbackService struct {
	Feedback *mongo.Collection
	Selected *mongo.Collection
}

// Submit stores a rated comment.
func (s *FeedbackService) Submit(ctx context.Context, feedback *model.Feedback) error {
	if err := ValidateStruct(feedback); err != nil {
		return err
	}
	feedback.CreatedAt = time.Now()
	res, err := s.Feedback.InsertOne(ctx, feedback)
	if err != nil {
		return fmt.Errorf("failed to save feedback: %w", err)
	}
	feedback.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// Select records the itinerary a user picked.
func (s *FeedbackService) Select(ctx context.Context, selection *model.SelectedItinerary) error {
	if err := ValidateStruct(selection); err != nil {
		return err
	}
	selection.SelectedAt = time.Now()
	res, err := s.Selected.InsertOne(ctx, selection)
	if err != nil {
		return fmt.Errorf("failed to save selection: %w", err)
	}
	selection.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}
