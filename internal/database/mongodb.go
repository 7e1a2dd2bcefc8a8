package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"quotecast-bot/internal/database/models"
)

const (
	snapshotCollection = "snapshots"
	connectTimeout     = 10 * time.Second
)

// ConnectDB establishes a connection to MongoDB and verifies it with a ping.
// It returns the client and the named database.
func ConnectDB(ctx context.Context, uri, dbName string) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	var result bson.M
	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Decode(&result); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	log.Println("Successfully connected and pinged MongoDB!")

	return client, client.Database(dbName), nil
}

// MongoStore keeps the snapshot as a single document in MongoDB.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoStore creates a store over the snapshots collection of db.
// The client is disconnected on Close; it may be nil when the caller owns it.
func NewMongoStore(client *mongo.Client, db *mongo.Database) *MongoStore {
	return newMongoStore(client, db.Collection(snapshotCollection))
}

func newMongoStore(client *mongo.Client, collection *mongo.Collection) *MongoStore {
	return &MongoStore{client: client, collection: collection}
}

// Load fetches the snapshot document.
func (s *MongoStore) Load(ctx context.Context) (*models.Snapshot, error) {
	var snapshot models.Snapshot
	err := s.collection.FindOne(ctx, bson.M{"_id": models.SnapshotID}).Decode(&snapshot)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find snapshot: %w", ErrPersistenceIO, err)
	}
	return &snapshot, nil
}

// Save upserts the snapshot document.
func (s *MongoStore) Save(ctx context.Context, snapshot *models.Snapshot) error {
	snapshot.ID = models.SnapshotID
	opts := options.Replace().SetUpsert(true)

	if _, err := s.collection.ReplaceOne(ctx, bson.M{"_id": models.SnapshotID}, snapshot, opts); err != nil {
		return fmt.Errorf("%w: replace snapshot: %w", ErrPersistenceIO, err)
	}
	log.Printf("[MongoStore] Snapshot saved to %s", s.collection.Name())
	return nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	return nil
}
