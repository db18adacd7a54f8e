package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rmazur/go-task-manager/internal/db"
	"github.com/rmazur/go-task-manager/internal/service"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	Tasks       *service.TaskService
	UserRepo    db.UserRepositoryInterface
	RateLimiter *RateLimiter
	WSHub       *WSHub
	Log         *logrus.Logger
}

func NewHandler(tasks *service.TaskService, users db.UserRepositoryInterface, log *logrus.Logger) *Handler {
	return &Handler{
		Tasks:    tasks,
		UserRepo: users,
		// allow max 5 login/register attempts per 15 minutes from the same IP
		RateLimiter: NewRateLimiter(5, 15*time.Minute),
		WSHub:       NewWSHub(),
		Log:         log,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func sendError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: message})
}

func sendJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// resolveServiceError maps the service error taxonomy onto a response.
func (h *Handler) resolveServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case service.IsValidationError(err):
		sendError(w, err.Error(), http.StatusBadRequest)
	case err == service.ErrNotFound:
		sendError(w, "Task not found", http.StatusNotFound)
	default:
		h.Log.WithField("operation", op).WithError(err).Error("store operation failed")
		sendError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func isJSONContentType(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// clientIP prefers the first X-Forwarded-For hop, falling back to RemoteAddr.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i != -1 {
		host = host[:i]
	}
	return host
}

type RateLimiter struct {
	attempts map[string]int
	limit    int
	mutex    sync.Mutex
	window   time.Duration
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rateLimiter := &RateLimiter{
		attempts: make(map[string]int),
		limit:    limit,
		window:   window,
	}
	go rateLimiter.cleanup()
	return rateLimiter
}

// reset the attempts map every window duration
func (rateLimiter *RateLimiter) cleanup() {
	for range time.Tick(rateLimiter.window) {
		rateLimiter.mutex.Lock()
		rateLimiter.attempts = make(map[string]int)
		rateLimiter.mutex.Unlock()
	}
}

func (rateLimiter *RateLimiter) Allow(ip string) bool {
	rateLimiter.mutex.Lock()
	defer rateLimiter.mutex.Unlock()

	count, exists := rateLimiter.attempts[ip]
	if !exists {
		rateLimiter.attempts[ip] = 1
		return true
	}
	if count >= rateLimiter.limit {
		return false
	}
	rateLimiter.attempts[ip]++
	return true
}
