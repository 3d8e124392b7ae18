package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/packwrap/internal/domain/models"
)

const (
	documentsCollection = "documents"
	summariesCollection = "daily_summaries"
)

// SummaryRepository stores daily bookkeeping snapshots.
type SummaryRepository interface {
	SaveDailySummary(ctx context.Context, summary models.DailySummary) error
}

// MongoDBRepository is the cloud mirror of the KV store and the home of
// daily summaries.
type MongoDBRepository struct {
	client *mongo.Client
	dbName string
}

type document struct {
	ID        string    `bson:"_id"`
	Namespace string    `bson:"namespace"`
	Key       string    `bson:"key"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{client: client, dbName: dbName}, nil
}

func (r *MongoDBRepository) collection(name string) *mongo.Collection {
	return r.client.Database(r.dbName).Collection(name)
}

func documentID(namespace, key string) string {
	return namespace + "/" + key
}

// LoadDocument fetches the raw JSON stored for a namespaced key.
func (r *MongoDBRepository) LoadDocument(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	var doc document
	err := r.collection(documentsCollection).FindOne(ctx, bson.M{"_id": documentID(namespace, key)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load document %s: %w", documentID(namespace, key), err)
	}
	return []byte(doc.Value), true, nil
}

// SaveDocument upserts the raw JSON for a namespaced key.
func (r *MongoDBRepository) SaveDocument(ctx context.Context, namespace, key string, value []byte) error {
	id := documentID(namespace, key)
	update := bson.M{"$set": bson.M{
		"namespace":  namespace,
		"key":        key,
		"value":      string(value),
		"updated_at": time.Now().UTC(),
	}}

	_, err := r.collection(documentsCollection).UpdateOne(ctx, bson.M{"_id": id}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save document %s: %w", id, err)
	}
	return nil
}

// DeleteDocument removes the document for a namespaced key.
func (r *MongoDBRepository) DeleteDocument(ctx context.Context, namespace, key string) error {
	id := documentID(namespace, key)
	if _, err := r.collection(documentsCollection).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	return nil
}

// SaveDailySummary replaces the summary of an owner for one day.
func (r *MongoDBRepository) SaveDailySummary(ctx context.Context, summary models.DailySummary) error {
	filter := bson.M{"owner": summary.Owner, "date": summary.Date}
	_, err := r.collection(summariesCollection).ReplaceOne(ctx, filter, summary, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save daily summary: %w", err)
	}
	return nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
