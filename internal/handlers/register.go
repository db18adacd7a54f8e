package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rmazur/go-task-manager/internal/db"
	"github.com/rmazur/go-task-manager/internal/forms"
	"github.com/rmazur/go-task-manager/internal/models"
	"golang.org/x/crypto/bcrypt"
)

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		sendError(w, "Use POST method", http.StatusMethodNotAllowed)
		return
	}

	ip := clientIP(r)
	if h.RateLimiter != nil && !h.RateLimiter.Allow(ip) {
		h.Log.WithField("ip", ip).Warn("rate limit exceeded for register")
		sendError(w, "Too many register attempts. Please try again later.", http.StatusTooManyRequests)
		return
	}

	var form forms.Register
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		sendError(w, "Bad JSON", http.StatusBadRequest)
		return
	}
	if err := forms.Validate(&form); err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), bcrypt.DefaultCost)
	if err != nil {
		h.Log.WithError(err).Error("failed to hash password")
		sendError(w, "Cannot hash password", http.StatusInternalServerError)
		return
	}

	// display name defaults to the local part of the email
	name := strings.TrimSpace(form.Name)
	if name == "" {
		name = strings.SplitN(form.Email, "@", 2)[0]
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user, err := h.UserRepo.Create(ctx, &models.User{
		Email:        form.Email,
		PasswordHash: string(hash),
		Name:         name,
	})
	if err != nil {
		if err == db.ErrDuplicateEmail {
			sendError(w, "User already exists", http.StatusConflict)
			return
		}
		h.Log.WithError(err).Error("failed to save user")
		sendError(w, "Cannot save user", http.StatusInternalServerError)
		return
	}

	h.Log.WithField("email", user.Email).Info("user registered")
	sendJSON(w, http.StatusCreated, map[string]any{
		"user_id": user.ID.Hex(),
		"email":   user.Email,
		"name":    user.Name,
	})
}
