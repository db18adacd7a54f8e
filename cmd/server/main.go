package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rmazur/go-task-manager/internal/db"
	"github.com/rmazur/go-task-manager/internal/handlers"
	"github.com/rmazur/go-task-manager/internal/service"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
)

func main() {
	log := initLogger()

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			log.Fatalf("Error loading .env file: %v", err)
		}
	}

	validateEnv(log)
	database := initDB(log)

	initHandlers(database, log)
	server := initServer()
	startServer(server, log)
}

func initLogger() *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(level)
	}
	return log
}

func validateEnv(log *logrus.Logger) {
	requiredEnvVars := []string{
		"MONGO_URI", "MONGO_DB", "SERVER_PORT", "JWT_SECRET",
	}
	for _, env := range requiredEnvVars {
		if os.Getenv(env) == "" {
			log.Fatalf("Environment variable %s must be set", env)
		}
	}
	if len(os.Getenv("JWT_SECRET")) < 32 {
		log.Fatal("JWT_SECRET must be at least 32 characters")
	}
}

func initDB(log *logrus.Logger) *mongo.Database {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	database, err := db.Connect(ctx, os.Getenv("MONGO_URI"), os.Getenv("MONGO_DB"))
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	return database
}

func initHandlers(database *mongo.Database, log *logrus.Logger) *handlers.Handler {
	taskService := service.NewTaskService(db.NewTaskRepository(database, log))
	handler := handlers.NewHandler(taskService, db.NewUserRepository(database, log), log)

	http.HandleFunc("/register", handler.Register)
	http.HandleFunc("/login", handler.Login)
	http.HandleFunc("/tasks", handler.AuthMiddleware(handler.HandleTasks))
	http.HandleFunc("/tasks/", handler.AuthMiddleware(handler.HandleTaskByID))
	http.HandleFunc("/profile", handler.AuthMiddleware(handler.HandleProfile))
	http.HandleFunc("/ws", handler.AuthMiddleware(handler.HandleWebSocket))
	return handler
}

func initServer() *http.Server {
	return &http.Server{
		Addr: ":" + os.Getenv("SERVER_PORT"),
	}
}

func startServer(server *http.Server, log *logrus.Logger) {
	log.Infof("Starting server on :%s", os.Getenv("SERVER_PORT"))

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}
	log.Info("Server stopped")
}
