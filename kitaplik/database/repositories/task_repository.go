package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kitaplik/portal/kitaplik/database"
	"github.com/kitaplik/portal/kitaplik/database/models"
	"github.com/kitaplik/portal/kitaplik/logger"
)

type TaskRepository interface {
	GetUserTasks(ctx context.Context, userID string) ([]*models.UserTask, error)
	GetUserTask(ctx context.Context, id string) (*models.UserTask, error)
	CreateUserTask(ctx context.Context, task *models.UserTask) error
	PutUserTask(ctx context.Context, task *models.UserTask) error
	DeleteUserTask(ctx context.Context, id string) error
	HasTasks(ctx context.Context, userID string) (bool, error)
	// CompleteUserTask atomically flips a still-pending task to completed
	// and returns the updated document, or nil when the task is missing,
	// foreign or already completed. The compare-and-set lives in the store
	// so racing submissions collapse to a single winner.
	CompleteUserTask(ctx context.Context, id, userID string, completedAt time.Time) (*models.UserTask, error)
	// IncrementTaskProgress atomically advances a still-pending task's
	// progress counter and returns the updated document, or nil when no
	// pending task matches.
	IncrementTaskProgress(ctx context.Context, id, userID string, delta int) (*models.UserTask, error)
}

type taskRepository struct {
	db *database.DB
}

func NewTaskRepository(db *database.DB) TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) coll() *mongo.Collection {
	return r.db.Collection(database.CollUserTasks)
}

func (r *taskRepository) GetUserTasks(ctx context.Context, userID string) (tasks []*models.UserTask, err error) {
	start := time.Now()
	defer func() { logger.LogQuery("GetUserTasks", time.Since(start), err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cursor, err := r.coll().Find(ctx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "kind", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, &RepositoryError{Operation: "GetUserTasks", Entity: "UserTask", Err: err}
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &tasks); err != nil {
		return nil, &RepositoryError{Operation: "GetUserTasks", Entity: "UserTask", Err: err}
	}
	return tasks, nil
}

func (r *taskRepository) GetUserTask(ctx context.Context, id string) (*models.UserTask, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	task := new(models.UserTask)
	err := r.coll().FindOne(ctx, bson.M{"_id": id}).Decode(task)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{Entity: "UserTask", ID: id}
		}
		return nil, &RepositoryError{Operation: "GetUserTask", Entity: "UserTask", Err: err}
	}
	return task, nil
}

func (r *taskRepository) CreateUserTask(ctx context.Context, task *models.UserTask) (err error) {
	start := time.Now()
	defer func() { logger.LogQuery("CreateUserTask", time.Since(start), err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	task.CreatedAt = time.Now()
	task.UpdatedAt = task.CreatedAt

	if _, err := r.coll().InsertOne(ctx, task); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return &ConflictError{Entity: "UserTask", Field: "_id", Value: task.ID}
		}
		return &RepositoryError{Operation: "CreateUserTask", Entity: "UserTask", Err: err}
	}
	return nil
}

func (r *taskRepository) PutUserTask(ctx context.Context, task *models.UserTask) (err error) {
	start := time.Now()
	defer func() { logger.LogQuery("PutUserTask", time.Since(start), err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	task.UpdatedAt = time.Now()

	_, err = r.coll().ReplaceOne(ctx, bson.M{"_id": task.ID}, task,
		options.Replace().SetUpsert(true))
	if err != nil {
		return &RepositoryError{Operation: "PutUserTask", Entity: "UserTask", Err: err}
	}
	return nil
}

func (r *taskRepository) DeleteUserTask(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { logger.LogQuery("DeleteUserTask", time.Since(start), err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.coll().DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return &RepositoryError{Operation: "DeleteUserTask", Entity: "UserTask", Err: err}
	}
	return nil
}

func (r *taskRepository) HasTasks(ctx context.Context, userID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	count, err := r.coll().CountDocuments(ctx, bson.M{"user_id": userID},
		options.Count().SetLimit(1))
	if err != nil {
		return false, &RepositoryError{Operation: "HasTasks", Entity: "UserTask", Err: err}
	}
	return count > 0, nil
}

func (r *taskRepository) CompleteUserTask(ctx context.Context, id, userID string, completedAt time.Time) (task *models.UserTask, err error) {
	start := time.Now()
	defer func() { logger.LogQuery("CompleteUserTask", time.Since(start), err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{
		"_id":       id,
		"user_id":   userID,
		"completed": false,
	}
	// Pipeline update: completion fills the progress counter up to the
	// target for progressive tasks and leaves it alone otherwise.
	update := bson.A{
		bson.M{"$set": bson.M{
			"completed":    true,
			"completed_at": completedAt,
			"updated_at":   time.Now(),
			"current_progress": bson.M{"$cond": bson.A{
				bson.M{"$gt": bson.A{"$target", 0}},
				"$target",
				"$current_progress",
			}},
		}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	task = new(models.UserTask)
	err = r.coll().FindOneAndUpdate(ctx, filter, update, opts).Decode(task)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// No pending task matched: already completed or not owned.
			return nil, nil
		}
		return nil, &RepositoryError{Operation: "CompleteUserTask", Entity: "UserTask", Err: err}
	}
	return task, nil
}

func (r *taskRepository) IncrementTaskProgress(ctx context.Context, id, userID string, delta int) (task *models.UserTask, err error) {
	start := time.Now()
	defer func() { logger.LogQuery("IncrementTaskProgress", time.Since(start), err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{
		"_id":       id,
		"user_id":   userID,
		"completed": false,
	}
	update := bson.M{
		"$inc": bson.M{"current_progress": delta},
		"$set": bson.M{"updated_at": time.Now()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	task = new(models.UserTask)
	err = r.coll().FindOneAndUpdate(ctx, filter, update, opts).Decode(task)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, &RepositoryError{Operation: "IncrementTaskProgress", Entity: "UserTask", Err: err}
	}
	return task, nil
}
