package service

import (
	"context"
	"errors"
	"time"

	bookingserrors "fleetlink/internal/bookings/errors"
	mongotx "fleetlink/pkg/db/mongo"
	apperrors "fleetlink/pkg/errors"
	"fleetlink/pkg/model"

	"github.com/google/uuid"
)

const (
	lockPollInitial = 20 * time.Millisecond
	lockPollMax     = 250 * time.Millisecond
	lockReleaseWait = 5 * time.Second
)

// lockVehicle takes the vehicle's advisory lock, polling with backoff until
// BookingLockWait runs out. The returned release func is safe to defer.
func (s *bookingService) lockVehicle(ctx context.Context, vehicleID string) (func(), error) {
	log := s.cfg.Log.WithContext(ctx)

	lock := &model.BookingLock{
		ID:        model.VehicleLockID(vehicleID),
		VehicleID: vehicleID,
		Owner:     uuid.NewString(),
	}

	deadline := time.Now().Add(s.cfg.BookingLockWait)
	backoff := lockPollInitial
	attempts := 0

	for {
		attempts++
		lock.ExpiresAt = time.Now().UTC().Add(s.cfg.BookingLockTTL)

		err := s.lockRepo.Acquire(ctx, lock)
		if err == nil {
			log.Debug("Booking lock acquired", "lock_id", lock.ID, "owner", lock.Owner, "attempts", attempts)
			return func() { s.unlockVehicle(ctx, lock) }, nil
		}
		if !errors.Is(err, bookingserrors.ErrLockHeld) {
			log.Error("Failed to acquire booking lock", "lock_id", lock.ID, "error", err)
			return nil, mongotx.StoreError("Failed to acquire booking lock", err)
		}

		if time.Now().Add(backoff).After(deadline) {
			log.Warn("Gave up waiting for booking lock", "lock_id", lock.ID, "attempts", attempts)
			return nil, lockTimeout(vehicleID)
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, lockTimeout(vehicleID)
		case <-timer.C:
		}
		backoff = min(backoff*2, lockPollMax)
	}
}

// unlockVehicle runs even when the request context is already done; a lock
// left behind would only expire after BookingLockTTL.
func (s *bookingService) unlockVehicle(ctx context.Context, lock *model.BookingLock) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lockReleaseWait)
	defer cancel()

	if err := s.lockRepo.Release(releaseCtx, lock.ID, lock.Owner); err != nil {
		s.cfg.Log.WithContext(ctx).Warn("Failed to release booking lock", "lock_id", lock.ID, "error", err)
	}
}

func lockTimeout(vehicleID string) *apperrors.AppError {
	return apperrors.Timeout("Vehicle is busy with another booking, please retry").
		WithDetails(map[string]any{"vehicle_id": vehicleID})
}
