package service

import (
	"context"
	"errors"
	"sync"

	vehicleserrors "fleetlink/internal/vehicles/errors"
	"fleetlink/internal/vehicles/repository"
	"fleetlink/internal/vehicles/validator"
	"fleetlink/pkg/cache"
	"fleetlink/pkg/config"
	mongotx "fleetlink/pkg/db/mongo"
	apperrors "fleetlink/pkg/errors"
	"fleetlink/pkg/model"
	"fleetlink/pkg/sanitizer"
)

type VehicleService interface {
	Create(ctx context.Context, vehicle *model.Vehicle) error
	GetByID(ctx context.Context, id string) (*model.Vehicle, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Vehicle, int64, error)
	Delete(ctx context.Context, id string) error

	ListByMinCapacity(ctx context.Context, minKg int) ([]*model.Vehicle, error)
	Exists(ctx context.Context, id string) error
	GetByIDs(ctx context.Context, ids []string) (map[string]*model.Vehicle, error)
	GuardBooking(ctx context.Context, id string) error
}

type vehicleService struct {
	repo      repository.VehicleRepository
	validator *validator.VehicleValidator
	cache     *cache.CatalogCache
	cfg       *config.Config
}

func NewVehicleService(
	repo repository.VehicleRepository,
	validator *validator.VehicleValidator,
	catalogCache *cache.CatalogCache,
	cfg *config.Config,
) VehicleService {
	return &vehicleService{
		repo:      repo,
		validator: validator,
		cache:     catalogCache,
		cfg:       cfg,
	}
}

func (s *vehicleService) Create(ctx context.Context, vehicle *model.Vehicle) error {
	log := s.cfg.Log.WithContext(ctx)

	vehicle.Name = sanitizer.SanitizeVehicleName(vehicle.Name)
	vehicle.ID = ""

	if err := s.validator.Validate(vehicle); err != nil {
		log.Warn("Vehicle validation failed", "name", vehicle.Name, "error", err)
		return invalidInput("Invalid vehicle", err)
	}

	if err := s.repo.Create(ctx, vehicle); err != nil {
		log.Error("Failed to create vehicle", "error", err)
		return mongotx.StoreError("Failed to create vehicle", err)
	}

	s.cache.Invalidate(ctx)

	log.Info("Vehicle created successfully",
		"id", vehicle.ID,
		"name", vehicle.Name,
		"capacity_kg", vehicle.CapacityKg,
	)
	return nil
}

func (s *vehicleService) GetByID(ctx context.Context, id string) (*model.Vehicle, error) {
	id = sanitizer.SanitizeID(id)
	if id == "" {
		return nil, apperrors.InvalidInput("Vehicle ID cannot be empty")
	}

	vehicle, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.translate(ctx, "Failed to retrieve vehicle", id, err)
	}

	return vehicle, nil
}

func (s *vehicleService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Vehicle, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var vehicles []*model.Vehicle
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.WithContext(ctx).Error("Failed to count vehicles", "error", errCount)
			errCount = mongotx.StoreError("Failed to count vehicles", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		vehicles, errFind = s.repo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.WithContext(ctx).Error("Failed to list vehicles", "error", errFind)
			errFind = mongotx.StoreError("Failed to retrieve vehicles", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return vehicles, count, nil
}

func (s *vehicleService) Delete(ctx context.Context, id string) error {
	id = sanitizer.SanitizeID(id)
	if id == "" {
		return apperrors.InvalidInput("Vehicle ID cannot be empty")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return s.translate(ctx, "Failed to delete vehicle", id, err)
	}

	s.cache.Invalidate(ctx)

	s.cfg.Log.WithContext(ctx).Info("Vehicle deleted successfully", "id", id)
	return nil
}

// ListByMinCapacity serves from the catalog snapshot when the cache is
// enabled, falling back to a filtered store query.
func (s *vehicleService) ListByMinCapacity(ctx context.Context, minKg int) ([]*model.Vehicle, error) {
	if !s.cache.Enabled() {
		vehicles, err := s.repo.FindByMinCapacity(ctx, minKg)
		if err != nil {
			s.cfg.Log.WithContext(ctx).Error("Failed to list vehicles by capacity", "min_kg", minKg, "error", err)
			return nil, mongotx.StoreError("Failed to retrieve vehicles", err)
		}
		return vehicles, nil
	}

	catalog, ok := s.cache.Get(ctx)
	if !ok {
		generation, fill := s.cache.Generation(ctx)

		var err error
		catalog, err = s.repo.FindByMinCapacity(ctx, 0)
		if err != nil {
			s.cfg.Log.WithContext(ctx).Error("Failed to load vehicle catalog", "error", err)
			return nil, mongotx.StoreError("Failed to retrieve vehicles", err)
		}
		if fill {
			s.cache.Set(ctx, generation, catalog)
		}
	}

	return filterByCapacity(catalog, minKg), nil
}

// filterByCapacity keeps the snapshot's capacity/id order.
func filterByCapacity(catalog []*model.Vehicle, minKg int) []*model.Vehicle {
	eligible := make([]*model.Vehicle, 0, len(catalog))
	for _, v := range catalog {
		if v.CapacityKg >= minKg {
			eligible = append(eligible, v)
		}
	}
	return eligible
}

func (s *vehicleService) Exists(ctx context.Context, id string) error {
	exists, err := s.repo.Exists(ctx, id)
	if err != nil {
		return s.translate(ctx, "Failed to check vehicle existence", id, err)
	}
	if !exists {
		return apperrors.NotFoundWithID("Vehicle", id)
	}
	return nil
}

func (s *vehicleService) GetByIDs(ctx context.Context, ids []string) (map[string]*model.Vehicle, error) {
	vehicles, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		s.cfg.Log.WithContext(ctx).Error("Failed to load vehicles by id", "count", len(ids), "error", err)
		return nil, mongotx.StoreError("Failed to retrieve vehicles", err)
	}

	byID := make(map[string]*model.Vehicle, len(vehicles))
	for _, v := range vehicles {
		byID[v.ID] = v
	}
	return byID, nil
}

func (s *vehicleService) GuardBooking(ctx context.Context, id string) error {
	if err := s.repo.BumpBookingVersion(ctx, id); err != nil {
		return s.translate(ctx, "Failed to lock vehicle for booking", id, err)
	}
	return nil
}

func (s *vehicleService) translate(ctx context.Context, message, id string, err error) error {
	switch {
	case errors.Is(err, vehicleserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Vehicle", id)
	case errors.Is(err, vehicleserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid vehicle ID format").
			WithDetails(map[string]any{"field": "vehicle_id", "value": id})
	case mongotx.IsTransient(err):
		s.cfg.Log.WithContext(ctx).Debug(message+", transaction will be retried", "id", id, "error", err)
		return mongotx.StoreError(message, err)
	default:
		s.cfg.Log.WithContext(ctx).Error(message, "id", id, "error", err)
		return mongotx.StoreError(message, err)
	}
}

func invalidInput(message string, err error) *apperrors.AppError {
	appErr := apperrors.InvalidInput(message)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return appErr.WithDetails(map[string]any{"fields": verrs})
	}
	return appErr.WithDetails(map[string]any{"error": err.Error()})
}
