package service

import (
	"context"
	"strings"

	"github.com/rmazur/go-task-manager/internal/db"
	"github.com/rmazur/go-task-manager/internal/models"
)

// DefaultPageLimit applies when a list request does not specify a limit.
const DefaultPageLimit = 10

// TaskService enforces ownership scoping, input validation and the
// search/filter/pagination policy on top of the task repository. Every
// repository call it issues carries the caller's owner id in the filter.
type TaskService struct {
	repo db.TaskRepositoryInterface
}

func NewTaskService(repo db.TaskRepositoryInterface) *TaskService {
	return &TaskService{repo: repo}
}

type CreateTaskInput struct {
	Title       string
	Description string
	Status      string
}

type ListTasksQuery struct {
	Search string
	Status string
	Page   int
	Limit  int
}

type TaskPage struct {
	Items       []*models.Task `json:"items"`
	TotalCount  int64          `json:"total_count"`
	TotalPages  int            `json:"total_pages"`
	CurrentPage int            `json:"current_page"`
	Limit       int            `json:"limit"`
}

// TaskPatch is the subset of task fields a caller may change. Anything else
// in an update payload (owner, id, timestamps) is dropped before it gets here.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *string
}

func (s *TaskService) Create(ctx context.Context, ownerID string, input CreateTaskInput) (*models.Task, error) {
	if ownerID == "" {
		return nil, validationErrorf("owner id is required")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, validationErrorf("title is required")
	}

	// any status other than the two defined values falls back to pending
	status := models.TaskStatusPending
	if models.ValidTaskStatus(input.Status) {
		status = models.TaskStatus(input.Status)
	}

	task := &models.Task{
		OwnerID:     ownerID,
		Title:       title,
		Description: input.Description,
		Status:      status,
	}
	return s.repo.Insert(ctx, task)
}

func (s *TaskService) List(ctx context.Context, ownerID string, query ListTasksQuery) (*TaskPage, error) {
	page := query.Page
	if page < 1 {
		page = 1
	}
	limit := query.Limit
	if limit < 1 {
		limit = DefaultPageLimit
	}

	filter := db.TaskFilter{
		OwnerID: ownerID,
		Search:  strings.TrimSpace(query.Search),
	}
	if query.Status != "" && query.Status != models.TaskStatusAll {
		filter.Status = query.Status
	}

	totalCount, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.FindMany(ctx, filter, db.FindOptions{
		Skip:  int64(page-1) * int64(limit),
		Limit: int64(limit),
	})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*models.Task{}
	}

	// ceil(totalCount / limit); 0 pages when nothing matches
	totalPages := int((totalCount + int64(limit) - 1) / int64(limit))

	return &TaskPage{
		Items:       items,
		TotalCount:  totalCount,
		TotalPages:  totalPages,
		CurrentPage: page,
		Limit:       limit,
	}, nil
}

func (s *TaskService) Get(ctx context.Context, ownerID, taskID string) (*models.Task, error) {
	tasks, err := s.repo.FindMany(ctx,
		db.TaskFilter{OwnerID: ownerID, ID: taskID},
		db.FindOptions{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, ErrNotFound
	}
	return tasks[0], nil
}

func (s *TaskService) Update(ctx context.Context, ownerID, taskID string, patch TaskPatch) (*models.Task, error) {
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, validationErrorf("title cannot be empty")
		}
		patch.Title = &title
	}
	if patch.Status != nil && !models.ValidTaskStatus(*patch.Status) {
		return nil, validationErrorf("status must be 'pending' or 'done'")
	}

	// the filter carries both id and owner so a guessed id can never touch
	// another user's task
	updated, err := s.repo.FindOneAndUpdate(ctx,
		db.TaskFilter{OwnerID: ownerID, ID: taskID},
		db.TaskPatch{
			Title:       patch.Title,
			Description: patch.Description,
			Status:      patch.Status,
		})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrNotFound
	}
	return updated, nil
}

func (s *TaskService) Delete(ctx context.Context, ownerID, taskID string) (*models.Task, error) {
	removed, err := s.repo.FindOneAndDelete(ctx,
		db.TaskFilter{OwnerID: ownerID, ID: taskID})
	if err != nil {
		return nil, err
	}
	if removed == nil {
		return nil, ErrNotFound
	}
	return removed, nil
}
