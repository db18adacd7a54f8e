package db

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/rmazur/go-task-manager/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TaskFilter selects tasks by exact match on owner/id/status plus an optional
// case-insensitive substring search across title OR description. Zero values
// mean "not applied". Every query issued by the service carries OwnerID, which
// is what keeps all reads and writes scoped to the calling user.
type TaskFilter struct {
	OwnerID string
	ID      string
	Status  string
	Search  string
}

// TaskPatch is the explicit allow-list of mutable task fields. Nil pointers
// leave the stored value unchanged; owner, id and timestamps are not
// representable here and therefore can never be overwritten by a caller.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *string
}

// FindOptions carries pagination for FindMany. Sort order is fixed by the
// repository: created_at descending with _id descending as tie-break, so
// pages stay stable across requests.
type FindOptions struct {
	Skip  int64
	Limit int64
}

// defines methods for task db operations
type TaskRepositoryInterface interface {
	Insert(ctx context.Context, task *models.Task) (*models.Task, error)
	FindMany(ctx context.Context, filter TaskFilter, opts FindOptions) ([]*models.Task, error)
	Count(ctx context.Context, filter TaskFilter) (int64, error)
	// FindOneAndUpdate applies the patch to the first task matching the filter
	// and returns the post-update state, or (nil, nil) when nothing matches.
	FindOneAndUpdate(ctx context.Context, filter TaskFilter, patch TaskPatch) (*models.Task, error)
	// FindOneAndDelete removes the first task matching the filter and returns
	// the removed document, or (nil, nil) when nothing matches.
	FindOneAndDelete(ctx context.Context, filter TaskFilter) (*models.Task, error)
}

type TaskRepository struct {
	collection *mongo.Collection
	log        *logrus.Logger
}

func NewTaskRepository(database *mongo.Database, log *logrus.Logger) *TaskRepository {
	collection := database.Collection("tasks")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// owner_id + created_at backs the list query's filter and sort
	indexModel := mongo.IndexModel{
		Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}},
	}
	if _, err := collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		log.WithError(err).Warn("failed to create index on tasks")
	}

	return &TaskRepository{collection: collection, log: log}
}

// taskSortOrder is the fixed, deterministic list ordering.
var taskSortOrder = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}

// toBSON builds the mongo filter document. ok is false when the filter can
// never match anything (malformed task id), so callers can short-circuit
// instead of sending a query that is guaranteed to be empty.
func (f TaskFilter) toBSON() (bson.M, bool) {
	query := bson.M{}
	if f.OwnerID != "" {
		query["owner_id"] = f.OwnerID
	}
	if f.ID != "" {
		objectID, err := primitive.ObjectIDFromHex(f.ID)
		if err != nil {
			return nil, false
		}
		query["_id"] = objectID
	}
	if f.Status != "" {
		query["status"] = f.Status
	}
	if f.Search != "" {
		// QuoteMeta keeps this a plain substring match; user input is never
		// interpreted as a regular expression.
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		query["$or"] = bson.A{
			bson.M{"title": pattern},
			bson.M{"description": pattern},
		}
	}
	return query, true
}

func (r *TaskRepository) Insert(ctx context.Context, task *models.Task) (*models.Task, error) {
	now := time.Now().UTC()
	task.ID = primitive.NewObjectID()
	task.CreatedAt = now
	task.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, task); err != nil {
		r.log.WithError(err).Error("failed to insert task")
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return task, nil
}

func (r *TaskRepository) FindMany(ctx context.Context, filter TaskFilter, opts FindOptions) ([]*models.Task, error) {
	query, ok := filter.toBSON()
	if !ok {
		return nil, nil
	}

	findOpts := options.Find().SetSort(taskSortOrder)
	if opts.Skip > 0 {
		findOpts.SetSkip(opts.Skip)
	}
	if opts.Limit > 0 {
		findOpts.SetLimit(opts.Limit)
	}

	cursor, err := r.collection.Find(ctx, query, findOpts)
	if err != nil {
		r.log.WithError(err).Error("failed to find tasks")
		return nil, fmt.Errorf("find tasks: %w", err)
	}
	defer cursor.Close(ctx)

	var tasks []*models.Task
	if err := cursor.All(ctx, &tasks); err != nil {
		r.log.WithError(err).Error("failed to decode tasks")
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) Count(ctx context.Context, filter TaskFilter) (int64, error) {
	query, ok := filter.toBSON()
	if !ok {
		return 0, nil
	}
	count, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		r.log.WithError(err).Error("failed to count tasks")
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return count, nil
}

func (r *TaskRepository) FindOneAndUpdate(ctx context.Context, filter TaskFilter, patch TaskPatch) (*models.Task, error) {
	query, ok := filter.toBSON()
	if !ok {
		return nil, nil
	}

	set := bson.M{"updated_at": time.Now().UTC()}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}

	result := r.collection.FindOneAndUpdate(
		ctx,
		query,
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	if err := result.Err(); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		r.log.WithError(err).Error("failed to update task")
		return nil, fmt.Errorf("update task: %w", err)
	}

	var updated models.Task
	if err := result.Decode(&updated); err != nil {
		return nil, fmt.Errorf("decode updated task: %w", err)
	}
	return &updated, nil
}

func (r *TaskRepository) FindOneAndDelete(ctx context.Context, filter TaskFilter) (*models.Task, error) {
	query, ok := filter.toBSON()
	if !ok {
		return nil, nil
	}

	result := r.collection.FindOneAndDelete(ctx, query)
	if err := result.Err(); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		r.log.WithError(err).Error("failed to delete task")
		return nil, fmt.Errorf("delete task: %w", err)
	}

	var removed models.Task
	if err := result.Decode(&removed); err != nil {
		return nil, fmt.Errorf("decode removed task: %w", err)
	}
	return &removed, nil
}
