package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/wellora/wellness-api/internal/auth"
	"github.com/wellora/wellness-api/internal/database"
	"github.com/wellora/wellness-api/internal/models"
)

type contextKey string

const userContextKey contextKey = "user"

// UserFromContext extracts the user from the request context
func UserFromContext(r *http.Request) *models.User {
	user, ok := r.Context().Value(userContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// Auth creates authentication middleware that validates JWT tokens
func Auth(users database.UserRepositoryInterface, verifier *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondError(w, http.StatusUnauthorized, "Missing Authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondError(w, http.StatusUnauthorized, "Invalid Authorization header format")
				return
			}

			tokenString := parts[1]
			ctx := r.Context()

			claims, err := verifier.Verify(ctx, tokenString)
			if err != nil {
				log.Printf("Token verification failed: %v", err)
				respondError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			// Get or create user
			user, err := users.GetByProviderID(ctx, claims.Sub)
			if err != nil {
				// The repository wraps sql.ErrNoRows, so errors.Is will unwrap and check
				if errors.Is(err, sql.ErrNoRows) {
					// User doesn't exist, create it
					user = &models.User{
						ID:            uuid.New(),
						Email:         claims.Email,
						ProviderID:    &claims.Sub,
						Name:          &claims.Name,
						EmailVerified: true,
					}
					if err := users.Create(ctx, user); err != nil {
						respondError(w, http.StatusInternalServerError, "Failed to create user")
						return
					}
				} else {
					// Actual database error (connection failure, timeout, etc.)
					log.Printf("Database error while fetching user: %v", err)
					respondError(w, http.StatusInternalServerError, "Database error")
					return
				}
			} else {
				// Update user info if needed
				updateNeeded := false
				if user.Email != claims.Email {
					user.Email = claims.Email
					updateNeeded = true
				}
				if (user.Name == nil && claims.Name != "") || (user.Name != nil && *user.Name != claims.Name) {
					name := claims.Name
					user.Name = &name
					updateNeeded = true
				}
				if updateNeeded {
					if err := users.Update(ctx, user); err != nil {
						log.Printf("Failed to update user info: %v", err)
					}
				}
			}

			// Add user to context
			ctx = context.WithValue(ctx, userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success": false,
		"error":   message,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Failed to encode error response: %v", err)
	}
}
