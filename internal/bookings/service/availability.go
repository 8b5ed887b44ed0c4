package service

import (
	"context"
	"time"

	mongotx "fleetlink/pkg/db/mongo"
	apperrors "fleetlink/pkg/errors"
	"fleetlink/pkg/model"
	"fleetlink/pkg/sanitizer"
)

// Availability lists vehicles with enough capacity and no booking in the
// requested window. The answer is advisory; nothing is reserved.
func (s *bookingService) Availability(ctx context.Context, query *model.AvailabilityQuery) (*model.AvailabilityResult, error) {
	log := s.cfg.Log.WithContext(ctx)

	query.FromPincode = sanitizer.SanitizePincode(query.FromPincode)
	query.ToPincode = sanitizer.SanitizePincode(query.ToPincode)
	if err := s.validator.ValidateAvailability(query); err != nil {
		log.Warn("Availability query validation failed", "error", err)
		return nil, invalidInput("Invalid availability query", err)
	}

	start, err := parseInstant("start_time", query.StartTime)
	if err != nil {
		return nil, err
	}

	end, ride, err := s.window(start, query)
	if err != nil {
		return nil, err
	}

	result := &model.AvailabilityResult{
		EstimatedRideDurationHours: ride.Hours(),
		StartTime:                  start,
		EndTime:                    end,
		Vehicles:                   []*model.Vehicle{},
	}

	eligible, err := s.catalog.ListByMinCapacity(ctx, query.CapacityRequired)
	if err != nil {
		return nil, err
	}
	if len(eligible) == 0 {
		return result, nil
	}

	ids := make([]string, 0, len(eligible))
	for _, v := range eligible {
		ids = append(ids, v.ID)
	}

	busy, err := s.repo.ConflictingVehicleIDs(ctx, ids, start, end)
	if err != nil {
		log.Error("Failed to find conflicting bookings", "error", err)
		return nil, mongotx.StoreError("Failed to check availability", err)
	}

	result.Vehicles = excludeBusy(eligible, busy)

	log.Debug("Availability computed",
		"capacity_required", query.CapacityRequired,
		"eligible", len(eligible),
		"available", len(result.Vehicles),
	)
	return result, nil
}

// window returns the queried end and ride duration. Without an explicit
// end the estimator decides both.
func (s *bookingService) window(start time.Time, query *model.AvailabilityQuery) (time.Time, time.Duration, error) {
	if query.EndTime != "" {
		end, err := parseInstant("end_time", query.EndTime)
		if err != nil {
			return time.Time{}, 0, err
		}
		if !end.After(start) {
			return time.Time{}, 0, apperrors.InvalidInput("end_time must be after start_time").
				WithDetails(map[string]any{"field": "end_time"})
		}
		return end, end.Sub(start), nil
	}

	ride, err := s.estimator.Estimate(query.FromPincode, query.ToPincode)
	if err != nil {
		return time.Time{}, 0, err
	}
	return start.Add(ride), ride, nil
}

// excludeBusy keeps catalog order.
func excludeBusy(eligible []*model.Vehicle, busy []string) []*model.Vehicle {
	taken := make(map[string]struct{}, len(busy))
	for _, id := range busy {
		taken[id] = struct{}{}
	}

	available := make([]*model.Vehicle, 0, len(eligible))
	for _, v := range eligible {
		if _, ok := taken[v.ID]; !ok {
			available = append(available, v)
		}
	}
	return available
}
