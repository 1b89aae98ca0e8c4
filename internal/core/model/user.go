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

package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a traveller account (collection users).
type User struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name         string             `json:"name" bson:"name" validate:"required,max=60"`
	Email        string             `json:"email" bson:"email" validate:"required,email"`
	PasswordHash string             `json:"-" bson:"password"`
	Itineraries  []SavedItinerary   `json:"itineraries" bson:"itineraries"`
	CreatedAt    time.Time          `json:"created_at" bson:"created_at"`
}

// SavedItinerary is an itinerary a user kept. Rating starts at 1.
type SavedItinerary struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id"`
	Itinerary string             `json:"itinerary" bson:"itinerary" validate:"required"`
	Rating    int                `json:"rating" bson:"rating" validate:"min=1,max=5"`
	SavedAt   time.Time          `json:"saved_at" bson:"saved_at"`
}

// Feedback is a rated comment on an itinerary (collection feedback).
type Feedback struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID      string             `json:"userId" bson:"userId" validate:"required"`
	ItineraryID string             `json:"itineraryId" bson:"itineraryId" validate:"required"`
	Rating      int                `json:"rating" bson:"rating" validate:"required,min=1,max=5"`
	Feedback    string             `json:"feedback" bson:"feedback" validate:"required"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
}

// SelectedItinerary records the itinerary a user picked (collection selected_itineraries).
type SelectedItinerary struct {
	ID               primitive.ObjectID     `json:"id" bson:"_id,omitempty"`
	UserID           string                 `json:"userId" bson:"userId" validate:"required"`
	ItineraryID      string                 `json:"itineraryId" bson:"itineraryId" validate:"required"`
	ItineraryDetails map[string]interface{} `json:"itineraryDetails" bson:"itineraryDetails"`
	SelectedAt       time.Time              `json:"selected_at" bson:"selected_at"`
}
