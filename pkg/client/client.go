package client

import (
	"context"
	"fmt"
	"time"

	"fleetlink/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// Client holds the process-wide store handles. They are acquired once at
// startup and released by GracefulShutdown.
type Client struct {
	Mongo *mongo.Client
	Redis *redis.Client
}

type MongoOptions struct {
	URI         string
	ConnTimeout time.Duration
	Retries     int
	RetryDelay  time.Duration
	MaxPoolSize uint64
}

func NewClient() *Client {
	return &Client{}
}

// SetMongo connects and pings MongoDB, retrying up to opts.Retries times.
func (c *Client) SetMongo(log *logger.Logger, opts MongoOptions) error {
	clientOpts := options.Client().
		ApplyURI(opts.URI).
		SetServerSelectionTimeout(opts.ConnTimeout).
		SetConnectTimeout(opts.ConnTimeout).
		SetMaxPoolSize(opts.MaxPoolSize).
		SetRetryWrites(true).
		SetWriteConcern(writeconcern.Majority())

	retries := max(opts.Retries, 1)
	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		log.Info("Connecting to MongoDB", "attempt", attempt, "max_attempts", retries)

		client, err := connectMongo(clientOpts, opts.ConnTimeout)
		if err == nil {
			log.Info("Successfully connected to MongoDB")
			c.Mongo = client
			return nil
		}

		lastErr = err
		log.Error("MongoDB connection attempt failed", "attempt", attempt, "error", err)
		if attempt < retries {
			log.Info("Retrying MongoDB connection", "delay", opts.RetryDelay)
			time.Sleep(opts.RetryDelay)
		}
	}

	return fmt.Errorf("mongo: giving up after %d attempts: %w", retries, lastErr)
}

func connectMongo(clientOpts *options.ClientOptions, timeout time.Duration) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping: %w", err)
	}
	return client, nil
}

func (c *Client) SetRedis(log *logger.Logger, addr, password string, db int, timeout time.Duration) error {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return fmt.Errorf("redis ping: %w", err)
	}

	log.Info("Successfully connected to Redis", "addr", addr)
	c.Redis = rdb
	return nil
}

func (c *Client) GracefulShutdown(log *logger.Logger) {
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			log.Error("Failed to close Redis client", "error", err)
		}
	}

	if c.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.Mongo.Disconnect(ctx); err != nil {
			log.Error("Failed to disconnect MongoDB", "error", err)
			return
		}
		log.Info("MongoDB connection closed")
	}
}
