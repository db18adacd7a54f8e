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
)

/*
handles routes:
- GET /profile - the authenticated user's profile
- PUT /profile - update display name and bio
*/
func (h *Handler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.getProfile(w, r)
	case http.MethodPut:
		h.updateProfile(w, r)
	default:
		sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type profileResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Bio       string    `json:"bio"`
	CreatedAt time.Time `json:"created_at"`
}

func profileFromUser(user *models.User) profileResponse {
	return profileResponse{
		ID:        user.ID.Hex(),
		Email:     user.Email,
		Name:      user.Name,
		Bio:       user.Bio,
		CreatedAt: user.CreatedAt,
	}
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value("user_id").(string)
	if userID == "" {
		sendError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user, err := h.UserRepo.GetByID(ctx, userID)
	if err != nil {
		h.Log.WithError(err).Error("failed to load profile")
		sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if user == nil {
		sendError(w, "User not found", http.StatusNotFound)
		return
	}
	sendJSON(w, http.StatusOK, profileFromUser(user))
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value("user_id").(string)
	if userID == "" {
		sendError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if !isJSONContentType(r) {
		sendError(w, "Content-Type must be application/json", http.StatusBadRequest)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB

	var form forms.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		sendError(w, "Bad JSON", http.StatusBadRequest)
		return
	}
	if err := forms.Validate(&form); err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	patch := db.ProfilePatch{}
	// an empty name keeps the current one; bio may be cleared
	if form.Name != nil {
		if name := strings.TrimSpace(*form.Name); name != "" {
			patch.Name = &name
		}
	}
	if form.Bio != nil {
		bio := strings.TrimSpace(*form.Bio)
		patch.Bio = &bio
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user, err := h.UserRepo.UpdateProfile(ctx, userID, patch)
	if err != nil {
		h.Log.WithError(err).Error("failed to update profile")
		sendError(w, "Failed to update profile", http.StatusInternalServerError)
		return
	}
	if user == nil {
		sendError(w, "User not found", http.StatusNotFound)
		return
	}
	sendJSON(w, http.StatusOK, profileFromUser(user))
}
