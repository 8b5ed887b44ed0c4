package service

import (
	"context"
	"sync"
	"time"

	mongotx "fleetlink/pkg/db/mongo"
	"fleetlink/pkg/model"
)

const popularVehiclesLimit = 5

// Stats runs its four queries concurrently. Today starts at midnight in
// the configured booking time zone.
func (s *bookingService) Stats(ctx context.Context) (*model.BookingStats, error) {
	now := time.Now()
	local := now.In(s.cfg.Location())
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())

	stats := &model.BookingStats{}
	var errs [4]error
	var wg sync.WaitGroup
	wg.Add(4)

	go func() {
		defer wg.Done()
		stats.TotalBookings, errs[0] = s.repo.Count(ctx)
	}()

	go func() {
		defer wg.Done()
		stats.TodaysBookings, errs[1] = s.repo.CountCreatedSince(ctx, midnight.UTC())
	}()

	go func() {
		defer wg.Done()
		stats.UpcomingBookings, errs[2] = s.repo.CountStartingAfter(ctx, now.UTC())
	}()

	go func() {
		defer wg.Done()
		stats.PopularVehicles, errs[3] = s.repo.PopularVehicles(ctx, popularVehiclesLimit)
	}()

	wg.Wait()
	for _, err := range errs {
		if err != nil {
			s.cfg.Log.WithContext(ctx).Error("Failed to compute booking stats", "error", err)
			return nil, mongotx.StoreError("Failed to compute booking stats", err)
		}
	}

	return stats, nil
}
