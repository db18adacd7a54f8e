package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rmazur/go-task-manager/internal/forms"
	"golang.org/x/crypto/bcrypt"
)

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		sendError(w, "Use POST method for login", http.StatusMethodNotAllowed)
		return
	}

	ip := clientIP(r)
	if h.RateLimiter != nil && !h.RateLimiter.Allow(ip) {
		h.Log.WithField("ip", ip).Warn("rate limit exceeded for login")
		sendError(w, "Too many login attempts. Please try again later.", http.StatusTooManyRequests)
		return
	}

	var form forms.Login
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		sendError(w, "Bad JSON", http.StatusBadRequest)
		return
	}
	if err := forms.Validate(&form); err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user, err := h.UserRepo.GetByEmail(ctx, form.Email)
	if err != nil {
		h.Log.WithError(err).Error("failed to look up user")
		sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	// same response whether the email is unknown or the password is wrong
	if user == nil {
		sendError(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}
	if err := bcrypt.CompareHashAndPassword(
		[]byte(user.PasswordHash), []byte(form.Password)); err != nil {
		sendError(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	tokenString, err := generateJWTToken(user.ID.Hex())
	if err != nil {
		h.Log.WithError(err).Error("failed to generate token")
		sendError(w, "Cannot create token", http.StatusInternalServerError)
		return
	}

	h.Log.WithField("email", user.Email).Info("user logged in")
	sendJSON(w, http.StatusOK, map[string]any{
		"user_id":    user.ID.Hex(),
		"user_email": user.Email,
		"token":      tokenString,
	})
}

func generateJWTToken(sub string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"jti": uuid.NewString(),
		"exp": time.Now().Add(24 * time.Hour).Unix(),
		"iat": time.Now().Unix(),
	})

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return "", fmt.Errorf("JWT_SECRET environment variable is not set")
	}

	tokenString, err := token.SignedString([]byte(jwtSecret))
	if err != nil {
		return "", fmt.Errorf("error signing token: %w", err)
	}
	return tokenString, nil
}
