package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/taskhub/task-tracker/internal/core/domain"
	"github.com/taskhub/task-tracker/internal/core/ports"
)

const collectionTasks = "tasks"

type TaskRepository struct {
	col *mongo.Collection
}

func NewTaskRepository(db *mongo.Database) *TaskRepository {
	return &TaskRepository{col: db.Collection(collectionTasks)}
}

type mongoTask struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	DueDate     time.Time          `bson:"dueDate"`
	Priority    string             `bson:"priority"`
	Status      string             `bson:"status"`
	AssignedTo  primitive.ObjectID `bson:"assignedTo"`
	CreatedBy   primitive.ObjectID `bson:"createdBy"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (mt *mongoTask) toDomain() *domain.Task {
	return &domain.Task{
		ID:          mt.ID.Hex(),
		Title:       mt.Title,
		Description: mt.Description,
		DueDate:     mt.DueDate.UTC(),
		Priority:    domain.Priority(mt.Priority),
		Status:      domain.TaskStatus(mt.Status),
		AssigneeID:  hexOrEmpty(mt.AssignedTo),
		CreatorID:   hexOrEmpty(mt.CreatedBy),
		CreatedAt:   mt.CreatedAt.UTC(),
		UpdatedAt:   mt.UpdatedAt.UTC(),
	}
}

func (r *TaskRepository) Create(ctx context.Context, t *domain.Task) (*domain.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoTask{
		ID:          primitive.NewObjectID(),
		Title:       t.Title,
		Description: t.Description,
		DueDate:     t.DueDate,
		Priority:    string(t.Priority),
		Status:      string(t.Status),
		AssignedTo:  objectIDOrZero(t.AssigneeID),
		CreatedBy:   objectIDOrZero(t.CreatorID),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id string) (*domain.Task, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrTaskNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mt mongoTask
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&mt); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("find task: %w", err)
	}
	return mt.toDomain(), nil
}

// List returns tasks matching filter, newest first.
func (r *TaskRepository) List(ctx context.Context, filter ports.ListTasksFilter) ([]*domain.Task, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	q := bson.M{}
	if filter.AssigneeID != "" {
		oid, err := primitive.ObjectIDFromHex(filter.AssigneeID)
		if err != nil {
			return []*domain.Task{}, 0, nil
		}
		q["assignedTo"] = oid
	}
	if filter.Priority != "" {
		q["priority"] = filter.Priority
	}
	if filter.Status != "" {
		q["status"] = filter.Status
	}

	total, err := r.col.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64((filter.Page - 1) * filter.Limit)).
		SetLimit(int64(filter.Limit))
	cur, err := r.col.Find(ctx, q, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find tasks: %w", err)
	}
	var docs []mongoTask
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode tasks: %w", err)
	}

	tasks := make([]*domain.Task, 0, len(docs))
	for i := range docs {
		tasks = append(tasks, docs[i].toDomain())
	}
	return tasks, total, nil
}

func (r *TaskRepository) Update(ctx context.Context, id string, upd ports.TaskUpdate) (*domain.Task, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if upd.Title != nil {
		set["title"] = *upd.Title
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.DueDate != nil {
		set["dueDate"] = *upd.DueDate
	}
	if upd.Priority != nil {
		set["priority"] = string(*upd.Priority)
	}
	if upd.AssigneeID != nil {
		set["assignedTo"] = objectIDOrZero(*upd.AssigneeID)
	}
	return r.findOneAndSet(ctx, id, "", set)
}

func (r *TaskRepository) UpdateStatus(ctx context.Context, id, assigneeID string, status domain.TaskStatus) (*domain.Task, error) {
	return r.findOneAndSet(ctx, id, assigneeID, bson.M{
		"status":    string(status),
		"updatedAt": time.Now().UTC(),
	})
}

// findOneAndSet applies set to task id in a single atomic write. A non-empty
// assigneeID narrows the match so a non-owner's write finds nothing.
func (r *TaskRepository) findOneAndSet(ctx context.Context, id, assigneeID string, set bson.M) (*domain.Task, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrTaskNotFound
	}
	filter := bson.M{"_id": oid}
	if assigneeID != "" {
		aid, err := primitive.ObjectIDFromHex(assigneeID)
		if err != nil {
			return nil, domain.ErrTaskNotFound
		}
		filter["assignedTo"] = aid
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mt mongoTask
	err = r.col.FindOneAndUpdate(ctx, filter, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&mt)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("update task: %w", err)
	}
	return mt.toDomain(), nil
}

func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrTaskNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := r.col.FindOneAndDelete(ctx, bson.M{"_id": oid}).Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.ErrTaskNotFound
		}
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

func (r *TaskRepository) CountReferencing(ctx context.Context, userID string) (int64, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, bson.M{"$or": bson.A{
		bson.M{"assignedTo": oid},
		bson.M{"createdBy": oid},
	}})
	if err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return n, nil
}

// EnsureIndexes creates the indexes backing the listing queries.
func (r *TaskRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "assignedTo", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "createdBy", Value: 1}}},
		{Keys: bson.D{{Key: "priority", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}
	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

func objectIDOrZero(id string) primitive.ObjectID {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID
	}
	return oid
}

func hexOrEmpty(oid primitive.ObjectID) string {
	if oid.IsZero() {
		return ""
	}
	return oid.Hex()
}
