package repositories

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"task-manager/backend/internal/models"
)

// TaskCollection はタスクを保存するコレクション名です。
const TaskCollection = "tasks"

// taskDocument は tasks コレクションのドキュメントです。
type taskDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Priority    string             `bson:"priority"`
	DueDate     time.Time          `bson:"dueDate"`
	Completed   bool               `bson:"completed"`
	CreatedAt   time.Time          `bson:"createdAt"`
}

func (d *taskDocument) toModel() *models.Task {
	return &models.Task{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Priority:    models.Priority(d.Priority),
		DueDate:     d.DueDate.UTC(),
		Completed:   d.Completed,
		CreatedAt:   d.CreatedAt.UTC(),
	}
}

// MongoTaskRepository はMongoDBにタスクを保存します。
type MongoTaskRepository struct {
	client       *mongo.Client
	collection   *mongo.Collection
	indexesReady atomic.Bool
}

// NewMongoTaskRepository は新しいMongoTaskRepositoryインスタンスを作成します。
func NewMongoTaskRepository(client *mongo.Client, database string) *MongoTaskRepository {
	return &MongoTaskRepository{
		client:     client,
		collection: client.Database(database).Collection(TaskCollection),
	}
}

func (r *MongoTaskRepository) Name() string { return "mongo" }

func (r *MongoTaskRepository) ValidID(id string) bool { return primitive.IsValidObjectID(id) }

// Ping は接続を確認し、初回成功時にインデックスを用意します。
func (r *MongoTaskRepository) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx, readpref.Primary()); err != nil {
		return err
	}
	if r.indexesReady.Load() {
		return nil
	}
	return r.EnsureIndexes(ctx)
}

// EnsureIndexes は一覧の並び順に使う createdAt の降順インデックスを作成します。
func (r *MongoTaskRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("could not create tasks index: %w", err)
	}
	r.indexesReady.Store(true)
	return nil
}

// Create は新しいタスクを挿入します。
func (r *MongoTaskRepository) Create(ctx context.Context, t *models.Task) (*models.Task, error) {
	doc := taskDocument{
		ID:          primitive.NewObjectID(),
		Title:       t.Title,
		Description: t.Description,
		Priority:    string(t.Priority),
		DueDate:     t.DueDate,
		Completed:   t.Completed,
		CreatedAt:   t.CreatedAt,
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		log.Printf("Failed to insert task: %v", err)
		return nil, fmt.Errorf("could not insert task: %w", err)
	}
	return doc.toModel(), nil
}

// FindAll はすべてのタスクを createdAt の降順で取得します。
func (r *MongoTaskRepository) FindAll(ctx context.Context) ([]*models.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		log.Printf("Failed to query tasks: %v", err)
		return nil, fmt.Errorf("could not query tasks: %w", err)
	}
	defer cursor.Close(ctx)

	tasks := []*models.Task{}
	for cursor.Next(ctx) {
		var doc taskDocument
		if err := cursor.Decode(&doc); err != nil {
			log.Printf("Failed to decode task: %v", err)
			return nil, fmt.Errorf("could not decode task: %w", err)
		}
		tasks = append(tasks, doc.toModel())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}

// FindByID は指定されたIDのタスクを取得します。
func (r *MongoTaskRepository) FindByID(ctx context.Context, id string) (*models.Task, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}

	var doc taskDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTaskNotFound
		}
		log.Printf("Failed to query task by ID: %v", err)
		return nil, fmt.Errorf("could not query task: %w", err)
	}
	return doc.toModel(), nil
}

// Update はパッチに含まれるフィールドだけを $set で更新します。
func (r *MongoTaskRepository) Update(ctx context.Context, id string, patch *models.TaskPatch) (*models.Task, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return r.FindByID(ctx, id)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc taskDocument
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": patchToSet(patch)}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTaskNotFound
		}
		log.Printf("Failed to update task: %v", err)
		return nil, fmt.Errorf("could not update task: %w", err)
	}
	return doc.toModel(), nil
}

// Delete は指定されたIDのタスクを削除します。
func (r *MongoTaskRepository) Delete(ctx context.Context, id string) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		log.Printf("Failed to delete task: %v", err)
		return fmt.Errorf("could not delete task: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func patchToSet(patch *models.TaskPatch) bson.M {
	set := bson.M{}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Priority != nil {
		set["priority"] = string(*patch.Priority)
	}
	if patch.DueDate != nil {
		set["dueDate"] = *patch.DueDate
	}
	if patch.Completed != nil {
		set["completed"] = *patch.Completed
	}
	return set
}

// parseObjectID は24桁の16進数以外を ErrInvalidTaskID にします。
func parseObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidTaskID
	}
	return oid, nil
}
