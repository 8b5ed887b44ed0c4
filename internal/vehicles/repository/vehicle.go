package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	vehicleserrors "fleetlink/internal/vehicles/errors"
	"fleetlink/pkg/config"
	mongotx "fleetlink/pkg/db/mongo"
	"fleetlink/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "vehicles"

	// BookingVersionField is bumped inside every booking commit so that two
	// transactions booking the same vehicle always write-conflict.
	BookingVersionField = "booking_version"
)

type mongoVehicleRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

type VehicleRepository interface {
	Create(ctx context.Context, vehicle *model.Vehicle) error
	FindByID(ctx context.Context, id string) (*model.Vehicle, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.Vehicle, error)
	FindByMinCapacity(ctx context.Context, minKg int) ([]*model.Vehicle, error)
	FindByIDs(ctx context.Context, ids []string) ([]*model.Vehicle, error)
	Exists(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id string) error
	BumpBookingVersion(ctx context.Context, id string) error
}

func NewMongoVehicleRepository(cfg *config.Config) VehicleRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoVehicleRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func parseID(id string) (primitive.ObjectID, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %s", vehicleserrors.ErrInvalidID, id)
	}
	return objectID, nil
}

func (r *mongoVehicleRepository) Create(ctx context.Context, vehicle *model.Vehicle) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	vehicle.ID = ""
	vehicle.CreatedAt = now
	vehicle.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, vehicle)
	if err != nil {
		return fmt.Errorf("failed to create vehicle: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		vehicle.ID = oid.Hex()
	}
	return nil
}

func (r *mongoVehicleRepository) FindByID(ctx context.Context, id string) (*model.Vehicle, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var vehicle model.Vehicle
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&vehicle)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, vehicleserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find vehicle: %w", err)
	}

	return &vehicle, nil
}

func (r *mongoVehicleRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Vehicle, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	return r.find(ctx, bson.M{}, opts)
}

// FindByMinCapacity returns vehicles with capacity_kg >= minKg ordered by
// capacity then id, so repeated calls see the same order.
func (r *mongoVehicleRepository) FindByMinCapacity(ctx context.Context, minKg int) ([]*model.Vehicle, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "capacity_kg", Value: 1}, {Key: "_id", Value: 1}})

	return r.find(ctx, bson.M{"capacity_kg": bson.M{"$gte": minKg}}, opts)
}

func (r *mongoVehicleRepository) FindByIDs(ctx context.Context, ids []string) ([]*model.Vehicle, error) {
	if len(ids) == 0 {
		return []*model.Vehicle{}, nil
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			objectIDs = append(objectIDs, oid)
		}
	}

	return r.find(ctx, bson.M{"_id": bson.M{"$in": objectIDs}}, options.Find())
}

func (r *mongoVehicleRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Vehicle, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find vehicles: %w", err)
	}
	defer cursor.Close(ctx)

	vehicles := []*model.Vehicle{}
	if err = cursor.All(ctx, &vehicles); err != nil {
		return nil, fmt.Errorf("failed to decode vehicles: %w", err)
	}

	return vehicles, nil
}

func (r *mongoVehicleRepository) Exists(ctx context.Context, id string) (bool, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := parseID(id)
	if err != nil {
		return false, err
	}

	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": objectID}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check vehicle existence: %w", err)
	}
	return count > 0, nil
}

func (r *mongoVehicleRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count vehicles: %w", err)
	}
	return count, nil
}

func (r *mongoVehicleRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := parseID(id)
	if err != nil {
		return err
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete vehicle: %w", err)
	}

	if result.DeletedCount == 0 {
		return vehicleserrors.ErrNotFound
	}

	return nil
}

// BumpBookingVersion must run inside the booking transaction. It fails with
// ErrNotFound when the vehicle was deleted after the existence check.
func (r *mongoVehicleRepository) BumpBookingVersion(ctx context.Context, id string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := parseID(id)
	if err != nil {
		return err
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": objectID},
		bson.M{"$inc": bson.M{BookingVersionField: 1}},
	)
	if err != nil {
		return fmt.Errorf("failed to bump vehicle booking version: %w", err)
	}

	if result.MatchedCount == 0 {
		return vehicleserrors.ErrNotFound
	}
	return nil
}
