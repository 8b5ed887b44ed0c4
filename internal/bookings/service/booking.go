package service

import (
	"context"
	"errors"
	"sync"
	"time"

	bookingserrors "fleetlink/internal/bookings/errors"
	"fleetlink/internal/bookings/duration"
	"fleetlink/internal/bookings/events"
	"fleetlink/internal/bookings/repository"
	"fleetlink/internal/bookings/validator"
	"fleetlink/pkg/config"
	mongotx "fleetlink/pkg/db/mongo"
	apperrors "fleetlink/pkg/errors"
	"fleetlink/pkg/model"
	"fleetlink/pkg/sanitizer"

	"go.mongodb.org/mongo-driver/mongo"
)

// Catalog is the slice of the vehicle catalog the ledger depends on.
type Catalog interface {
	Exists(ctx context.Context, id string) error
	ListByMinCapacity(ctx context.Context, minKg int) ([]*model.Vehicle, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]*model.Vehicle, error)
	// GuardBooking runs inside the commit transaction and makes concurrent
	// commits for the same vehicle write-conflict.
	GuardBooking(ctx context.Context, id string) error
}

type BookingService interface {
	Create(ctx context.Context, req *model.BookingRequest) (*model.Booking, error)
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error)
	Accept(ctx context.Context, id string) (*model.Booking, error)
	Complete(ctx context.Context, id string) (*model.Booking, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*model.BookingStats, error)
	Availability(ctx context.Context, query *model.AvailabilityQuery) (*model.AvailabilityResult, error)
}

type bookingService struct {
	repo      repository.BookingRepository
	lockRepo  repository.BookingLockRepository
	catalog   Catalog
	validator *validator.BookingValidator
	estimator duration.Estimator
	endPolicy duration.EndPolicy
	publisher events.Publisher
	cfg       *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	lockRepo repository.BookingLockRepository,
	catalog Catalog,
	validator *validator.BookingValidator,
	estimator duration.Estimator,
	endPolicy duration.EndPolicy,
	publisher events.Publisher,
	cfg *config.Config,
) BookingService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &bookingService{
		repo:      repo,
		lockRepo:  lockRepo,
		catalog:   catalog,
		validator: validator,
		estimator: estimator,
		endPolicy: endPolicy,
		publisher: publisher,
		cfg:       cfg,
	}
}

// Create commits a pending booking. Failures are reported in a fixed order:
// malformed request, unknown vehicle, bad window, then overlap.
func (s *bookingService) Create(ctx context.Context, req *model.BookingRequest) (*model.Booking, error) {
	log := s.cfg.Log.WithContext(ctx)

	s.sanitize(req)
	if err := s.validator.ValidateRequest(req); err != nil {
		log.Warn("Booking validation failed", "vehicle_id", req.VehicleID, "error", err)
		return nil, invalidInput("Invalid booking request", err)
	}

	start, err := parseInstant("start_time", req.StartTime)
	if err != nil {
		return nil, err
	}

	if err := s.catalog.Exists(ctx, req.VehicleID); err != nil {
		return nil, err
	}

	end, err := s.resolveEnd(start, req.EndTime)
	if err != nil {
		log.Warn("Booking window rejected", "vehicle_id", req.VehicleID, "error", err)
		return nil, err
	}

	booking := &model.Booking{
		VehicleID:     req.VehicleID,
		FromPincode:   req.FromPincode,
		ToPincode:     req.ToPincode,
		StartTime:     start,
		EndTime:       end,
		CustomerID:    req.CustomerID,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Status:        config.Pending,
	}

	release, err := s.lockVehicle(ctx, booking.VehicleID)
	if err != nil {
		return nil, err
	}
	defer release()

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.catalog.GuardBooking(sessCtx, booking.VehicleID); err != nil {
			return err
		}

		existing, err := s.repo.FindOverlapping(sessCtx, booking.VehicleID, booking.StartTime, booking.EndTime)
		if err != nil {
			return mongotx.StoreError("Failed to check existing bookings", err)
		}
		if existing != nil {
			return overlapConflict(existing)
		}

		if err := s.repo.Create(sessCtx, booking); err != nil {
			return mongotx.StoreError("Failed to create booking", err)
		}
		return nil
	})
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeConflict) || apperrors.HasCode(err, apperrors.CodeNotFound) {
			log.Warn("Booking rejected", "vehicle_id", booking.VehicleID, "error", err)
		} else {
			log.Error("Failed to create booking", "vehicle_id", booking.VehicleID, "error", err)
		}
		return nil, mongotx.StoreError("Failed to create booking", err)
	}

	log.Info("Booking created successfully",
		"id", booking.ID,
		"vehicle_id", booking.VehicleID,
		"start_time", booking.StartTime,
		"end_time", booking.EndTime,
	)

	s.publish(ctx, model.EventBookingCreated, booking)
	s.decorate(ctx, []*model.Booking{booking})
	return booking, nil
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	id = sanitizer.SanitizeID(id)
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.translate(ctx, "Failed to retrieve booking", id, err)
	}

	s.decorate(ctx, []*model.Booking{booking})
	return booking, nil
}

func (s *bookingService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.WithContext(ctx).Error("Failed to count bookings", "error", errCount)
			errCount = mongotx.StoreError("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.WithContext(ctx).Error("Failed to list bookings", "error", errFind)
			errFind = mongotx.StoreError("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	s.decorate(ctx, bookings)
	return bookings, count, nil
}

func (s *bookingService) Accept(ctx context.Context, id string) (*model.Booking, error) {
	return s.transition(ctx, id, config.Accepted, model.EventBookingAccepted)
}

func (s *bookingService) Complete(ctx context.Context, id string) (*model.Booking, error) {
	return s.transition(ctx, id, config.Completed, model.EventBookingCompleted)
}

// transition sets status unconditionally; any status may move to any other.
func (s *bookingService) transition(ctx context.Context, id, status, eventType string) (*model.Booking, error) {
	id = sanitizer.SanitizeID(id)
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, s.translate(ctx, "Failed to update booking status", id, err)
	}

	s.cfg.Log.WithContext(ctx).Info("Booking status updated", "id", id, "status", status)

	s.publish(ctx, eventType, booking)
	s.decorate(ctx, []*model.Booking{booking})
	return booking, nil
}

func (s *bookingService) Delete(ctx context.Context, id string) error {
	id = sanitizer.SanitizeID(id)
	if id == "" {
		return apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.Delete(ctx, id)
	if err != nil {
		return s.translate(ctx, "Failed to delete booking", id, err)
	}

	s.cfg.Log.WithContext(ctx).Info("Booking deleted successfully", "id", id, "vehicle_id", booking.VehicleID)

	s.publish(ctx, model.EventBookingDeleted, booking)
	return nil
}

// --- Helpers ---

func (s *bookingService) sanitize(req *model.BookingRequest) {
	req.VehicleID = sanitizer.SanitizeID(req.VehicleID)
	req.FromPincode = sanitizer.SanitizePincode(req.FromPincode)
	req.ToPincode = sanitizer.SanitizePincode(req.ToPincode)
	req.CustomerID = sanitizer.TrimAndNormalize(req.CustomerID)
	req.CustomerName = sanitizer.TrimAndNormalize(req.CustomerName)
	if req.CustomerPhone != "" {
		req.CustomerPhone = sanitizer.NormalizePhone(req.CustomerPhone, s.cfg.PhoneRegion)
	}
}

// resolveEnd applies the end policy when the caller gave no end. An explicit
// end must be strictly after start.
func (s *bookingService) resolveEnd(start time.Time, rawEnd string) (time.Time, error) {
	if rawEnd == "" {
		end := s.endPolicy(start).UTC().Truncate(time.Millisecond)
		if !end.After(start) {
			return time.Time{}, apperrors.InvalidInput("start_time leaves no room for a booking window").
				WithDetails(map[string]any{"field": "start_time"})
		}
		return end, nil
	}

	end, err := parseInstant("end_time", rawEnd)
	if err != nil {
		return time.Time{}, err
	}
	if !end.After(start) {
		return time.Time{}, apperrors.InvalidInput("end_time must be after start_time").
			WithDetails(map[string]any{"field": "end_time"})
	}
	return end, nil
}

// decorate attaches vehicle summaries. Bookings whose vehicle was deleted
// are returned without one.
func (s *bookingService) decorate(ctx context.Context, bookings []*model.Booking) {
	if len(bookings) == 0 {
		return
	}

	seen := make(map[string]struct{}, len(bookings))
	ids := make([]string, 0, len(bookings))
	for _, b := range bookings {
		if _, ok := seen[b.VehicleID]; !ok {
			seen[b.VehicleID] = struct{}{}
			ids = append(ids, b.VehicleID)
		}
	}

	vehicles, err := s.catalog.GetByIDs(ctx, ids)
	if err != nil {
		s.cfg.Log.WithContext(ctx).Warn("Failed to load vehicles for bookings", "error", err)
		return
	}

	for _, b := range bookings {
		if v, ok := vehicles[b.VehicleID]; ok {
			b.Vehicle = v.Summary()
		}
	}
}

func (s *bookingService) publish(ctx context.Context, eventType string, booking *model.Booking) {
	ctx = context.WithoutCancel(ctx)
	if err := s.publisher.Publish(ctx, model.NewBookingEvent(eventType, booking)); err != nil {
		s.cfg.Log.WithContext(ctx).Warn("Failed to publish booking event",
			"event_type", eventType,
			"booking_id", booking.ID,
			"error", err,
		)
	}
}

func (s *bookingService) translate(ctx context.Context, message, id string, err error) error {
	switch {
	case errors.Is(err, bookingserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Booking", id)
	case errors.Is(err, bookingserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid booking ID format").
			WithDetails(map[string]any{"field": "id", "value": id})
	default:
		s.cfg.Log.WithContext(ctx).Error(message, "id", id, "error", err)
		return mongotx.StoreError(message, err)
	}
}

func overlapConflict(existing *model.Booking) *apperrors.AppError {
	return apperrors.Conflict("Vehicle is already booked for the requested time slot").
		WithDetails(map[string]any{
			"conflicting_booking_id": existing.ID,
			"start_time":             existing.StartTime.UTC().Format(time.RFC3339),
			"end_time":               existing.EndTime.UTC().Format(time.RFC3339),
		})
}

func parseInstant(field, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, apperrors.InvalidInput(field + " must be an RFC 3339 timestamp").
			WithDetails(map[string]any{"field": field, "value": value})
	}
	return t.UTC().Truncate(time.Millisecond), nil
}

func invalidInput(message string, err error) *apperrors.AppError {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.InvalidInput(message).WithDetails(map[string]any{"fields": verrs})
	}
	return apperrors.InvalidInput(message).WithDetails(map[string]any{"error": err.Error()})
}
