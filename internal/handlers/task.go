package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rmazur/go-task-manager/internal/service"
)

/*
handles routes:
- GET /tasks?search=&status=&page=&limit= - list the caller's tasks
- POST /tasks - create a new task
*/
func (h *Handler) HandleTasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listTasks(w, r)

	case http.MethodPost:
		h.createTask(w, r)

	default:
		sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) listTasks(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value("user_id").(string)
	if userID == "" {
		sendError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	query := r.URL.Query()
	// malformed page/limit values are clamped by the service, not rejected
	page, _ := strconv.Atoi(query.Get("page"))
	limit, _ := strconv.Atoi(query.Get("limit"))

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	result, err := h.Tasks.List(ctx, userID, service.ListTasksQuery{
		Search: query.Get("search"),
		Status: query.Get("status"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		h.resolveServiceError(w, "handlers.listTasks", err)
		return
	}
	sendJSON(w, http.StatusOK, result)
}

func (h *Handler) createTask(w http.ResponseWriter, r *http.Request) {
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
	var input struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Status      string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		sendError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	task, err := h.Tasks.Create(ctx, userID, service.CreateTaskInput{
		Title:       input.Title,
		Description: input.Description,
		Status:      input.Status,
	})
	if err != nil {
		h.resolveServiceError(w, "handlers.createTask", err)
		return
	}

	h.WSHub.BroadcastTaskEvent(userID, "task_created", task)
	w.Header().Set("Location", "/tasks/"+task.ID.Hex())
	sendJSON(w, http.StatusCreated, task)
}

/*
routes:
- GET /tasks/{id},
- PUT/PATCH /tasks/{id},
- DELETE /tasks/{id}
*/
func (h *Handler) HandleTaskByID(w http.ResponseWriter, r *http.Request) {
	taskID := r.URL.Path[len("/tasks/"):]
	if taskID == "" {
		sendError(w, "task id is required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getTaskByID(w, r, taskID)
	case http.MethodPut, http.MethodPatch:
		h.updateTaskByID(w, r, taskID)
	case http.MethodDelete:
		h.deleteTaskByID(w, r, taskID)
	default:
		sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) getTaskByID(w http.ResponseWriter, r *http.Request, taskID string) {
	userID, _ := r.Context().Value("user_id").(string)
	if userID == "" {
		sendError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	task, err := h.Tasks.Get(ctx, userID, taskID)
	if err != nil {
		h.resolveServiceError(w, "handlers.getTaskByID", err)
		return
	}
	sendJSON(w, http.StatusOK, task)
}

func (h *Handler) updateTaskByID(w http.ResponseWriter, r *http.Request, taskID string) {
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

	// only title/description/status are decodable; owner, id and timestamps
	// in the payload are silently dropped
	var input struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Status      *string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		sendError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	task, err := h.Tasks.Update(ctx, userID, taskID, service.TaskPatch{
		Title:       input.Title,
		Description: input.Description,
		Status:      input.Status,
	})
	if err != nil {
		h.resolveServiceError(w, "handlers.updateTaskByID", err)
		return
	}

	h.WSHub.BroadcastTaskEvent(userID, "task_updated", task)
	sendJSON(w, http.StatusOK, task)
}

func (h *Handler) deleteTaskByID(w http.ResponseWriter, r *http.Request, taskID string) {
	userID, _ := r.Context().Value("user_id").(string)
	if userID == "" {
		sendError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	task, err := h.Tasks.Delete(ctx, userID, taskID)
	if err != nil {
		h.resolveServiceError(w, "handlers.deleteTaskByID", err)
		return
	}

	h.WSHub.BroadcastTaskEvent(userID, "task_deleted", task)
	sendJSON(w, http.StatusOK, map[string]string{"message": "Task deleted successfully"})
}
