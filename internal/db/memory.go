package db

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rmazur/go-task-manager/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory implementations of the repository interfaces. They mirror the
// MongoDB semantics (filter matching, fixed sort order, patch application)
// and back the test suites the way an in-memory database would.

type MemoryTaskRepository struct {
	mutex sync.Mutex
	tasks []*models.Task
}

func NewMemoryTaskRepository() *MemoryTaskRepository {
	return &MemoryTaskRepository{}
}

func (f TaskFilter) matches(task *models.Task) bool {
	if f.OwnerID != "" && task.OwnerID != f.OwnerID {
		return false
	}
	if f.ID != "" {
		objectID, err := primitive.ObjectIDFromHex(f.ID)
		if err != nil || task.ID != objectID {
			return false
		}
	}
	if f.Status != "" && string(task.Status) != f.Status {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		title := strings.ToLower(task.Title)
		desc := strings.ToLower(task.Description)
		if !strings.Contains(title, needle) && !strings.Contains(desc, needle) {
			return false
		}
	}
	return true
}

func copyTask(task *models.Task) *models.Task {
	clone := *task
	return &clone
}

// matching returns matches in the repository sort order:
// created_at descending, _id descending tie-break.
func (r *MemoryTaskRepository) matching(filter TaskFilter) []*models.Task {
	var matched []*models.Task
	for _, task := range r.tasks {
		if filter.matches(task) {
			matched = append(matched, task)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.Hex() > matched[j].ID.Hex()
	})
	return matched
}

func (r *MemoryTaskRepository) Insert(ctx context.Context, task *models.Task) (*models.Task, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	now := time.Now().UTC()
	task.ID = primitive.NewObjectID()
	task.CreatedAt = now
	task.UpdatedAt = now
	r.tasks = append(r.tasks, copyTask(task))
	return task, nil
}

func (r *MemoryTaskRepository) FindMany(ctx context.Context, filter TaskFilter, opts FindOptions) ([]*models.Task, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	matched := r.matching(filter)
	if opts.Skip > 0 {
		if opts.Skip >= int64(len(matched)) {
			return nil, nil
		}
		matched = matched[opts.Skip:]
	}
	if opts.Limit > 0 && opts.Limit < int64(len(matched)) {
		matched = matched[:opts.Limit]
	}

	result := make([]*models.Task, 0, len(matched))
	for _, task := range matched {
		result = append(result, copyTask(task))
	}
	return result, nil
}

func (r *MemoryTaskRepository) Count(ctx context.Context, filter TaskFilter) (int64, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return int64(len(r.matching(filter))), nil
}

func (r *MemoryTaskRepository) FindOneAndUpdate(ctx context.Context, filter TaskFilter, patch TaskPatch) (*models.Task, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	matched := r.matching(filter)
	if len(matched) == 0 {
		return nil, nil
	}
	task := matched[0]
	if patch.Title != nil {
		task.Title = *patch.Title
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.Status != nil {
		task.Status = models.TaskStatus(*patch.Status)
	}
	task.UpdatedAt = time.Now().UTC()
	return copyTask(task), nil
}

func (r *MemoryTaskRepository) FindOneAndDelete(ctx context.Context, filter TaskFilter) (*models.Task, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for i, task := range r.tasks {
		if filter.matches(task) {
			r.tasks = append(r.tasks[:i], r.tasks[i+1:]...)
			return copyTask(task), nil
		}
	}
	return nil, nil
}

type MemoryUserRepository struct {
	mutex sync.Mutex
	users []*models.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{}
}

func copyUser(user *models.User) *models.User {
	clone := *user
	return &clone
}

func (r *MemoryUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, existing := range r.users {
		if existing.Email == user.Email {
			return nil, ErrDuplicateEmail
		}
	}

	now := time.Now().UTC()
	user.ID = primitive.NewObjectID()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users = append(r.users, copyUser(user))
	return user, nil
}

func (r *MemoryUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, user := range r.users {
		if user.Email == email {
			return copyUser(user), nil
		}
	}
	return nil, nil
}

func (r *MemoryUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, user := range r.users {
		if user.ID.Hex() == id {
			return copyUser(user), nil
		}
	}
	return nil, nil
}

func (r *MemoryUserRepository) UpdateProfile(ctx context.Context, id string, patch ProfilePatch) (*models.User, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, user := range r.users {
		if user.ID.Hex() == id {
			if patch.Name != nil {
				user.Name = *patch.Name
			}
			if patch.Bio != nil {
				user.Bio = *patch.Bio
			}
			user.UpdatedAt = time.Now().UTC()
			return copyUser(user), nil
		}
	}
	return nil, nil
}
