package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoBackend keeps each document in a two-row collection keyed by the
// document name.
type MongoBackend struct {
	uri      string
	database string
	client   *mongo.Client
	coll     *mongo.Collection
}

type mongoDoc struct {
	ID        string    `bson:"_id"`
	Data      []byte    `bson:"data"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// NewMongoBackend creates a MongoDB storage backend.
func NewMongoBackend(uri, database string) *MongoBackend {
	if database == "" {
		database = "antigravity2api"
	}
	return &MongoBackend{uri: uri, database: database}
}

func (m *MongoBackend) Initialize(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(m.uri))
	if err != nil {
		return fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("ping mongodb: %w", err)
	}
	m.client = client
	m.coll = client.Database(m.database).Collection("documents")
	return nil
}

func (m *MongoBackend) Close() error {
	if m.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func (m *MongoBackend) Health(ctx context.Context) error {
	if m.client == nil {
		return fmt.Errorf("mongodb not initialized")
	}
	return m.client.Ping(ctx, readpref.Primary())
}

func (m *MongoBackend) Name() string { return "mongodb" }

func (m *MongoBackend) LoadAccounts(ctx context.Context) ([]byte, error) {
	return m.load(ctx, DocAccounts)
}

func (m *MongoBackend) SaveAccounts(ctx context.Context, data []byte) error {
	return m.save(ctx, DocAccounts, data)
}

func (m *MongoBackend) LoadQuotas(ctx context.Context) ([]byte, error) {
	return m.load(ctx, DocQuotas)
}

func (m *MongoBackend) SaveQuotas(ctx context.Context, data []byte) error {
	return m.save(ctx, DocQuotas, data)
}

func (m *MongoBackend) load(ctx context.Context, name string) ([]byte, error) {
	var doc mongoDoc
	err := m.coll.FindOne(ctx, bson.M{"_id": name}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.Data, nil
}

func (m *MongoBackend) save(ctx context.Context, name string, data []byte) error {
	_, err := m.coll.ReplaceOne(ctx,
		bson.M{"_id": name},
		mongoDoc{ID: name, Data: data, UpdatedAt: time.Now()},
		options.Replace().SetUpsert(true),
	)
	return err
}
