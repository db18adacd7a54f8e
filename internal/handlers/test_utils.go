package handlers

import (
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rmazur/go-task-manager/internal/db"
	"github.com/rmazur/go-task-manager/internal/service"
	"github.com/sirupsen/logrus"
)

// setupHTTP wires a Handler over in-memory stores and a mux mirroring the
// production routes.
func setupHTTP(t *testing.T) (*Handler, *http.ServeMux, string) {
	t.Helper()

	secret := strings.Repeat("a", 32)
	_ = os.Setenv("JWT_SECRET", secret)

	log := logrus.New()
	log.SetOutput(io.Discard)

	taskService := service.NewTaskService(db.NewMemoryTaskRepository())
	h := NewHandler(taskService, db.NewMemoryUserRepository(), log)

	mux := http.NewServeMux()
	mux.HandleFunc("/register", h.Register)
	mux.HandleFunc("/login", h.Login)
	mux.HandleFunc("/tasks", h.AuthMiddleware(h.HandleTasks))
	mux.HandleFunc("/tasks/", h.AuthMiddleware(h.HandleTaskByID))
	mux.HandleFunc("/profile", h.AuthMiddleware(h.HandleProfile))
	mux.HandleFunc("/ws", h.AuthMiddleware(h.HandleWebSocket))

	return h, mux, secret
}

func bearerForUser(t *testing.T, secret, userID string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(1 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign jwt: %v", err)
	}
	return "Bearer " + signed
}
