// Package testutil connects integration tests to a real MongoDB. Tests that
// use it are built with the "integration" tag.
package testutil

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"fleetlink/pkg/client"
	"fleetlink/pkg/config"
	"fleetlink/pkg/logger"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ConnectionTimeout = 10 * time.Second

// MongoHelper owns a throwaway database that is dropped on cleanup.
type MongoHelper struct {
	Client   *mongo.Client
	Database *mongo.Database
	DBName   string
}

// NewMongoHelper connects to MONGO_URI (a local replica set by default).
// Transactions need a replica set, so a standalone server will fail the
// commit tests.
func NewMongoHelper(t *testing.T) *MongoHelper {
	t.Helper()

	mongoURI := os.Getenv(config.EnvMongoURI)
	if mongoURI == "" {
		mongoURI = config.DefaultMongoURI
	}
	dbName := "fleetlink_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]

	ctx, cancel := context.WithTimeout(context.Background(), ConnectionTimeout)
	defer cancel()

	mc, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		t.Fatalf("failed to connect to MongoDB: %v", err)
	}
	if err := mc.Ping(ctx, nil); err != nil {
		t.Fatalf("failed to ping MongoDB: %v", err)
	}

	h := &MongoHelper{
		Client:   mc,
		Database: mc.Database(dbName),
		DBName:   dbName,
	}
	t.Cleanup(func() { h.close(t) })
	return h
}

// Config returns a service config bound to the helper's database.
func (m *MongoHelper) Config() *config.Config {
	c := client.NewClient()
	c.Mongo = m.Client
	return &config.Config{
		MongoDatabaseName:       m.DBName,
		ReadTimeout:             5 * time.Second,
		WriteTimeout:            5 * time.Second,
		BookingLockTTL:          config.DefaultBookingLockTTL,
		BookingLockWait:         config.DefaultBookingLockWait,
		MinRideDuration:         config.DefaultMinRideDuration,
		DefaultBookingEndPolicy: config.EndPolicyEndOfDay,
		BookingTimeZone:         "UTC",
		PhoneRegion:             config.DefaultPhoneRegion,
		Log:                     logger.Discard(),
		Client:                  c,
	}
}

// CleanCollection removes all documents from a collection.
func (m *MongoHelper) CleanCollection(t *testing.T, name string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := m.Database.Collection(name).DeleteMany(ctx, bson.M{}); err != nil {
		t.Fatalf("failed to clean collection %s: %v", name, err)
	}
}

func (m *MongoHelper) CountDocuments(t *testing.T, name string) int64 {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	count, err := m.Database.Collection(name).CountDocuments(ctx, bson.M{})
	if err != nil {
		t.Fatalf("failed to count documents in %s: %v", name, err)
	}
	return count
}

func (m *MongoHelper) close(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := m.Database.Drop(ctx); err != nil {
		t.Logf("warning: failed to drop %s: %v", m.DBName, err)
	}
	if err := m.Client.Disconnect(ctx); err != nil {
		t.Logf("warning: failed to disconnect from MongoDB: %v", err)
	}
}
