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

	"github.com/gin-gonic/gin"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/core/services"
)

// AuthRouter registers /auth/signup and /auth/signin.
func AuthRouter(r *gin.RouterGroup, s *StateManager) {
	auth := r.Group("/auth")
	{
		auth.POST("/signup", func(c *gin.Context) {
			req := &services.SignUpRequest{}
			if !bindJSON(c, req) {
				return
			}
			user, err := s.users.SignUp(c.Request.Context(), req)
			if err != nil {
				respondError(c, err, "Failed to create user")
				return
			}
			c.JSON(http.StatusCreated, gin.H{
				"message": "User created successfully",
				"user":    gin.H{"id": user.ID.Hex(), "name": user.Name, "email": user.Email},
			})
		})

		auth.POST("/signin", func(c *gin.Context) {
			req := &services.SignInRequest{}
			if !bindJSON(c, req) {
				return
			}
			user, err := s.users.SignIn(c.Request.Context(), req)
			if err != nil {
				respondError(c, err, "Failed to sign in")
				return
			}
			c.JSON(http.StatusOK, gin.H{"id": user.ID.Hex(), "name": user.Name, "email": user.Email})
		})
	}
}
