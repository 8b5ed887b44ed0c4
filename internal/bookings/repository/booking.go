package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "fleetlink/internal/bookings/errors"
	vehiclesrepo "fleetlink/internal/vehicles/repository"
	"fleetlink/pkg/config"
	mongotx "fleetlink/pkg/db/mongo"
	"fleetlink/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "bookings"
)

type mongoBookingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, error)
	Count(ctx context.Context) (int64, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int64, error)
	CountStartingAfter(ctx context.Context, instant time.Time) (int64, error)
	PopularVehicles(ctx context.Context, limit int) ([]*model.PopularVehicle, error)
	UpdateStatus(ctx context.Context, id string, status string) (*model.Booking, error)
	Delete(ctx context.Context, id string) (*model.Booking, error)
	FindOverlapping(ctx context.Context, vehicleID string, start, end time.Time) (*model.Booking, error)
	ConflictingVehicleIDs(ctx context.Context, vehicleIDs []string, start, end time.Time) ([]string, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func parseID(id string) (primitive.ObjectID, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}
	return objectID, nil
}

// overlapFilter selects bookings whose half-open window intersects
// [start, end). Touching windows do not match.
func overlapFilter(start, end time.Time) bson.M {
	return bson.M{
		"start_time": bson.M{"$lt": end},
		"end_time":   bson.M{"$gt": start},
	}
}

func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	booking.ID = ""
	booking.CreatedAt = now
	booking.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, booking)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		booking.ID = oid.Hex()
	}
	return nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var booking model.Booking
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}

	return &booking, nil
}

func (r *mongoBookingRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "start_time", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := []*model.Booking{}
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}

	return bookings, nil
}

func (r *mongoBookingRepository) Count(ctx context.Context) (int64, error) {
	return r.count(ctx, bson.M{})
}

func (r *mongoBookingRepository) CountCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	return r.count(ctx, bson.M{"created_at": bson.M{"$gte": since}})
}

func (r *mongoBookingRepository) CountStartingAfter(ctx context.Context, instant time.Time) (int64, error) {
	return r.count(ctx, bson.M{"start_time": bson.M{"$gt": instant}})
}

func (r *mongoBookingRepository) count(ctx context.Context, filter bson.M) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

// PopularVehicles ranks vehicles by booking count. Bookings whose vehicle
// has since been deleted drop out of the ranking.
func (r *mongoBookingRepository) PopularVehicles(ctx context.Context, limit int) ([]*model.PopularVehicle, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$vehicle_id", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$addFields", Value: bson.M{"vehicle_oid": bson.M{"$toObjectId": "$_id"}}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         vehiclesrepo.CollectionName,
			"localField":   "vehicle_oid",
			"foreignField": "_id",
			"as":           "vehicle",
		}}},
		{{Key: "$unwind", Value: "$vehicle"}},
		{{Key: "$project", Value: bson.M{
			"_id":           0,
			"vehicle_id":    "$_id",
			"vehicle_name":  "$vehicle.name",
			"booking_count": "$count",
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate popular vehicles: %w", err)
	}
	defer cursor.Close(ctx)

	popular := []*model.PopularVehicle{}
	if err = cursor.All(ctx, &popular); err != nil {
		return nil, fmt.Errorf("failed to decode popular vehicles: %w", err)
	}
	return popular, nil
}

func (r *mongoBookingRepository) UpdateStatus(ctx context.Context, id string, status string) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	update := bson.M{
		"$set": bson.M{
			"status":     status,
			"updated_at": time.Now().UTC().Truncate(time.Millisecond),
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var booking model.Booking
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": objectID}, update, opts).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update booking status: %w", err)
	}

	return &booking, nil
}

func (r *mongoBookingRepository) Delete(ctx context.Context, id string) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var booking model.Booking
	err = r.collection.FindOneAndDelete(ctx, bson.M{"_id": objectID}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to delete booking: %w", err)
	}

	return &booking, nil
}

// FindOverlapping returns the earliest booking of vehicleID whose window
// intersects [start, end), or nil when the window is free.
func (r *mongoBookingRepository) FindOverlapping(ctx context.Context, vehicleID string, start, end time.Time) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := overlapFilter(start, end)
	filter["vehicle_id"] = vehicleID

	opts := options.FindOne().SetSort(bson.D{{Key: "start_time", Value: 1}})

	var booking model.Booking
	err := r.collection.FindOne(ctx, filter, opts).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to check overlapping bookings: %w", err)
	}

	return &booking, nil
}

func (r *mongoBookingRepository) ConflictingVehicleIDs(ctx context.Context, vehicleIDs []string, start, end time.Time) ([]string, error) {
	if len(vehicleIDs) == 0 {
		return []string{}, nil
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := overlapFilter(start, end)
	filter["vehicle_id"] = bson.M{"$in": vehicleIDs}

	values, err := r.collection.Distinct(ctx, "vehicle_id", filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find conflicting vehicles: %w", err)
	}

	ids := make([]string, 0, len(values))
	for _, v := range values {
		if id, ok := v.(string); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *mongoBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
