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
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/model"
)

// Collection names of the web API.
const (
	CollectionUsers    = "users"
	CollectionFeedback = "feedback"
	CollectionSelected = "selected_itineraries"
)

// PasswordCost is the bcrypt cost of stored password hashes.
const PasswordCost = 10

var (
	ErrUserExists         = errors.New("User already exists")
	ErrInvalidCredentials = errors.New("Invalid credentials")
	ErrUserNotFound       = errors.New("User not found")
	ErrInvalidUserID      = errors.New("Invalid user ID")
)

// SignUpRequest is the body of POST /auth/signup.
type SignUpRequest struct {
	Name     string `json:"name" validate:"required,max=60"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// SignInRequest is the body of POST /auth/signin.
type SignInRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UserService manages traveller accounts and their saved itineraries.
type UserService struct {
	Collection *mongo.Collection
}

// NormalizeEmail lower-cases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ParseUserID converts a hex id, returning ErrInvalidUserID when malformed.
func ParseUserID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return primitive.NilObjectID, ErrInvalidUserID
	}
	return oid, nil
}

// SignUp creates an account with an empty itinerary list.
func (s *UserService) SignUp(ctx context.Context, req *SignUpRequest) (*model.User, error) {
	req.Email = NormalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if err := ValidateStruct(req); err != nil {
		return nil, err
	}

	err := s.Collection.FindOne(ctx, bson.M{"email": req.Email}).Err()
	if err == nil {
		return nil, ErrUserExists
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), PasswordCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := &model.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Itineraries:  make([]model.SavedItinerary, 0),
		CreatedAt:    time.Now(),
	}
	res, err := s.Collection.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return nil, ErrUserExists
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	user.ID = res.InsertedID.(primitive.ObjectID)
	return user, nil
}

// SignIn checks the credentials. Unknown emails and wrong passwords both
// return ErrInvalidCredentials.
func (s *UserService) SignIn(ctx context.Context, req *SignInRequest) (*model.User, error) {
	if err := ValidateStruct(req); err != nil {
		return nil, err
	}
	user := &model.User{}
	err := s.Collection.FindOne(ctx, bson.M{"email": NormalizeEmail(req.Email)}).Decode(user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// SaveItinerary appends the itinerary to the user's saved list with rating 1.
func (s *UserService) SaveItinerary(ctx context.Context, userID string, itinerary string) (*model.SavedItinerary, error) {
	oid, err := ParseUserID(userID)
	if err != nil {
		return nil, err
	}
	saved := &model.SavedItinerary{ID: primitive.NewObjectID(), Itinerary: itinerary, Rating: 1, SavedAt: time.Now()}
	if err = ValidateStruct(saved); err != nil {
		return nil, err
	}
	res, err := s.Collection.UpdateByID(ctx, oid, bson.M{"$push": bson.M{"itineraries": saved}})
	if err != nil {
		return nil, fmt.Errorf("failed to save itinerary: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, ErrUserNotFound
	}
	return saved, nil
}

// SavedItineraries returns the itineraries the user saved.
func (s *UserService) SavedItineraries(ctx context.Context, userID string) ([]model.SavedItinerary, error) {
	oid, err := ParseUserID(userID)
	if err != nil {
		return nil, err
	}
	user := &model.User{}
	opts := options.FindOne().SetProjection(bson.M{"itineraries": 1})
	err = s.Collection.FindOne(ctx, bson.M{"_id": oid}, opts).Decode(user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user.Itineraries == nil {
		user.Itineraries = make([]model.SavedItinerary, 0)
	}
	return user.Itineraries, nil
}

// UserIDs lists every user id in creation order. The ratings workbook has one column per id.
func (s *UserService) UserIDs(ctx context.Context) ([]string, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1}).SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := s.Collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	var users []model.User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.ID.Hex())
	}
	return out, nil
}

// EnsureUserIndexes makes email unique.
func (s *UserService) EnsureUserIndexes(ctx context.Context) error {
	_, err := s.Collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
