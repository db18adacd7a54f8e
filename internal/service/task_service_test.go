package service

import (
	"context"
	"strconv"
	"testing"

	"github.com/rmazur/go-task-manager/internal/db"
	"github.com/rmazur/go-task-manager/internal/models"
)

func newTestService() *TaskService {
	return NewTaskService(db.NewMemoryTaskRepository())
}

func mustCreate(t *testing.T, s *TaskService, owner string, input CreateTaskInput) *models.Task {
	t.Helper()
	task, err := s.Create(context.Background(), owner, input)
	if err != nil {
		t.Fatalf("Create(%q, %+v): %v", owner, input, err)
	}
	return task
}

func TestCreate_DefaultsStatusToPending(t *testing.T) {
	s := newTestService()

	task := mustCreate(t, s, "user-a", CreateTaskInput{Title: "X"})
	if task.Status != models.TaskStatusPending {
		t.Fatalf("status = %q, want %q", task.Status, models.TaskStatusPending)
	}

	// unknown status values also fall back to pending
	task = mustCreate(t, s, "user-a", CreateTaskInput{Title: "Y", Status: "archived"})
	if task.Status != models.TaskStatusPending {
		t.Fatalf("status = %q, want %q for unknown input", task.Status, models.TaskStatusPending)
	}
}

func TestCreate_RejectsWhitespaceTitle(t *testing.T) {
	s := newTestService()

	_, err := s.Create(context.Background(), "user-a", CreateTaskInput{Title: "   "})
	if !IsValidationError(err) {
		t.Fatalf("expected ValidationError for whitespace title, got %v", err)
	}
}

func TestCreate_TrimsTitle(t *testing.T) {
	s := newTestService()

	task := mustCreate(t, s, "user-a", CreateTaskInput{Title: "  Buy milk  "})
	if task.Title != "Buy milk" {
		t.Fatalf("title = %q, want %q", task.Title, "Buy milk")
	}
}

// for users A != B, get/update/delete with B's id on A's task is NotFound
func TestOwnershipIsolation(t *testing.T) {
	s := newTestService()

	task := mustCreate(t, s, "user-a", CreateTaskInput{Title: "private"})
	id := task.ID.Hex()

	if _, err := s.Get(context.Background(), "user-b", id); err != ErrNotFound {
		t.Fatalf("Get by non-owner: got %v, want ErrNotFound", err)
	}

	title := "stolen"
	if _, err := s.Update(context.Background(), "user-b", id, TaskPatch{Title: &title}); err != ErrNotFound {
		t.Fatalf("Update by non-owner: got %v, want ErrNotFound", err)
	}

	if _, err := s.Delete(context.Background(), "user-b", id); err != ErrNotFound {
		t.Fatalf("Delete by non-owner: got %v, want ErrNotFound", err)
	}

	// the task is untouched
	got, err := s.Get(context.Background(), "user-a", id)
	if err != nil {
		t.Fatalf("Get by owner after foreign attempts: %v", err)
	}
	if got.Title != "private" {
		t.Fatalf("title = %q after foreign update attempt, want %q", got.Title, "private")
	}
}

func TestDelete_NotFoundIsIdempotent(t *testing.T) {
	s := newTestService()

	task := mustCreate(t, s, "user-a", CreateTaskInput{Title: "one-shot"})
	id := task.ID.Hex()

	if _, err := s.Delete(context.Background(), "user-a", id); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if _, err := s.Delete(context.Background(), "user-a", id); err != ErrNotFound {
		t.Fatalf("second delete: got %v, want ErrNotFound", err)
	}
	if _, err := s.Delete(context.Background(), "user-a", "not-even-hex"); err != ErrNotFound {
		t.Fatalf("delete of malformed id: got %v, want ErrNotFound", err)
	}
}

// iterating all pages yields every task exactly once, newest first
func TestList_PaginationCoversAllTasks(t *testing.T) {
	s := newTestService()

	const total = 7
	const limit = 3
	created := make([]string, 0, total)
	for i := 0; i < total; i++ {
		task := mustCreate(t, s, "user-a", CreateTaskInput{Title: "task " + strconv.Itoa(i)})
		created = append(created, task.ID.Hex())
	}

	seen := map[string]bool{}
	var ordered []string
	page := 1
	for {
		result, err := s.List(context.Background(), "user-a", ListTasksQuery{Page: page, Limit: limit})
		if err != nil {
			t.Fatalf("List page %d: %v", page, err)
		}
		if result.TotalCount != total {
			t.Fatalf("TotalCount = %d, want %d", result.TotalCount, total)
		}
		if want := 3; result.TotalPages != want {
			t.Fatalf("TotalPages = %d, want %d", result.TotalPages, want)
		}
		for _, item := range result.Items {
			id := item.ID.Hex()
			if seen[id] {
				t.Fatalf("task %s returned on more than one page", id)
			}
			seen[id] = true
			ordered = append(ordered, id)
		}
		if page >= result.TotalPages {
			break
		}
		page++
	}

	if len(ordered) != total {
		t.Fatalf("collected %d tasks across pages, want %d", len(ordered), total)
	}
	// newest first: the reverse of creation order
	for i, id := range ordered {
		if want := created[total-1-i]; id != want {
			t.Fatalf("position %d: got %s, want %s", i, id, want)
		}
	}
}

func TestList_ClampsPageAndLimit(t *testing.T) {
	s := newTestService()
	mustCreate(t, s, "user-a", CreateTaskInput{Title: "only"})

	result, err := s.List(context.Background(), "user-a", ListTasksQuery{Page: -3, Limit: 0})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if result.CurrentPage != 1 {
		t.Fatalf("CurrentPage = %d, want clamped 1", result.CurrentPage)
	}
	if result.Limit != DefaultPageLimit {
		t.Fatalf("Limit = %d, want default %d", result.Limit, DefaultPageLimit)
	}
	if len(result.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(result.Items))
	}
}

func TestList_EmptyResultHasZeroPages(t *testing.T) {
	s := newTestService()

	result, err := s.List(context.Background(), "user-a", ListTasksQuery{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if result.TotalCount != 0 || result.TotalPages != 0 || len(result.Items) != 0 {
		t.Fatalf("empty list: %+v", result)
	}
}

func TestList_SearchIsCaseInsensitiveSubstring(t *testing.T) {
	s := newTestService()

	mustCreate(t, s, "user-a", CreateTaskInput{Title: "Buy milk"})
	mustCreate(t, s, "user-a", CreateTaskInput{Title: "Walk dog"})
	mustCreate(t, s, "user-a", CreateTaskInput{Title: "Chores", Description: "buy MILK and bread"})

	for _, needle := range []string{"milk", "MILK", "Milk"} {
		result, err := s.List(context.Background(), "user-a", ListTasksQuery{Search: needle})
		if err != nil {
			t.Fatalf("List(search=%q): %v", needle, err)
		}
		// title and description are both searched
		if len(result.Items) != 2 {
			t.Fatalf("List(search=%q) returned %d items, want 2", needle, len(result.Items))
		}
	}

	result, err := s.List(context.Background(), "user-a", ListTasksQuery{Search: "walk"})
	if err != nil {
		t.Fatalf("List(search=walk): %v", err)
	}
	if len(result.Items) != 1 || result.Items[0].Title != "Walk dog" {
		t.Fatalf("List(search=walk): %+v", result.Items)
	}
}

func TestList_StatusFilterAndAllSentinel(t *testing.T) {
	s := newTestService()

	for i := 0; i < 3; i++ {
		mustCreate(t, s, "user-a", CreateTaskInput{Title: "p" + strconv.Itoa(i)})
	}
	for i := 0; i < 2; i++ {
		mustCreate(t, s, "user-a", CreateTaskInput{Title: "d" + strconv.Itoa(i), Status: "done"})
	}

	done, err := s.List(context.Background(), "user-a", ListTasksQuery{Status: "done"})
	if err != nil {
		t.Fatalf("List(status=done): %v", err)
	}
	if done.TotalCount != 2 {
		t.Fatalf("status=done TotalCount = %d, want 2", done.TotalCount)
	}

	all, err := s.List(context.Background(), "user-a", ListTasksQuery{Status: "all"})
	if err != nil {
		t.Fatalf("List(status=all): %v", err)
	}
	if all.TotalCount != 5 {
		t.Fatalf("status=all TotalCount = %d, want 5", all.TotalCount)
	}
}

func TestList_ScopedToOwner(t *testing.T) {
	s := newTestService()

	mustCreate(t, s, "user-a", CreateTaskInput{Title: "mine"})
	mustCreate(t, s, "user-b", CreateTaskInput{Title: "theirs"})

	result, err := s.List(context.Background(), "user-a", ListTasksQuery{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if result.TotalCount != 1 || result.Items[0].Title != "mine" {
		t.Fatalf("owner scoping broken: %+v", result.Items)
	}
}

func TestUpdate_PartialPatch(t *testing.T) {
	s := newTestService()

	task := mustCreate(t, s, "user-a", CreateTaskInput{Title: "orig", Description: "keep me"})

	status := "done"
	updated, err := s.Update(context.Background(), "user-a", task.ID.Hex(), TaskPatch{Status: &status})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Status != models.TaskStatusDone {
		t.Fatalf("status = %q, want done", updated.Status)
	}
	if updated.Title != "orig" || updated.Description != "keep me" {
		t.Fatalf("untouched fields changed: %+v", updated)
	}
	if updated.OwnerID != "user-a" {
		t.Fatalf("owner changed on update: %q", updated.OwnerID)
	}
	if !updated.UpdatedAt.After(task.UpdatedAt) && !updated.UpdatedAt.Equal(task.UpdatedAt) {
		t.Fatalf("UpdatedAt went backwards: %v -> %v", task.UpdatedAt, updated.UpdatedAt)
	}
}

func TestUpdate_RejectsInvalidStatus(t *testing.T) {
	s := newTestService()

	task := mustCreate(t, s, "user-a", CreateTaskInput{Title: "x"})

	status := "archived"
	_, err := s.Update(context.Background(), "user-a", task.ID.Hex(), TaskPatch{Status: &status})
	if !IsValidationError(err) {
		t.Fatalf("expected ValidationError for invalid status, got %v", err)
	}

	// the stored task is unchanged
	got, err := s.Get(context.Background(), "user-a", task.ID.Hex())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != models.TaskStatusPending {
		t.Fatalf("status = %q after rejected update, want pending", got.Status)
	}
}

func TestUpdate_RejectsEmptyTitle(t *testing.T) {
	s := newTestService()

	task := mustCreate(t, s, "user-a", CreateTaskInput{Title: "x"})

	title := "   "
	_, err := s.Update(context.Background(), "user-a", task.ID.Hex(), TaskPatch{Title: &title})
	if !IsValidationError(err) {
		t.Fatalf("expected ValidationError for empty title, got %v", err)
	}
}

func TestGet_ReturnsOwnTask(t *testing.T) {
	s := newTestService()

	task := mustCreate(t, s, "user-a", CreateTaskInput{Title: "x", Description: "d"})

	got, err := s.Get(context.Background(), "user-a", task.ID.Hex())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != task.ID || got.Description != "d" {
		t.Fatalf("Get mismatch: %+v", got)
	}
}
