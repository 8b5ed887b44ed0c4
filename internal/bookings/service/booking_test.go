package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fleetlink/internal/bookings/duration"
	"fleetlink/internal/bookings/validator"
	"fleetlink/pkg/config"
	apperrors "fleetlink/pkg/errors"
	"fleetlink/pkg/logger"
	"fleetlink/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	smallTruck = "64f5b7e2e3e4e6a1a2a2a2a1"
	bigTruck   = "64f5b7e2e3e4e6a1a2a2a2a2"
	ghostTruck = "64f5b7e2e3e4e6a1a2a2a2ff"
)

type harness struct {
	svc       *bookingService
	repo      *fakeBookingRepo
	locks     *fakeLockRepo
	catalog   *fakeCatalog
	publisher *recordingPublisher
	cfg       *config.Config
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg := &config.Config{
		Log:                     logger.Discard(),
		ReadTimeout:             5 * time.Second,
		WriteTimeout:            5 * time.Second,
		BookingLockTTL:          10 * time.Second,
		BookingLockWait:         5 * time.Second,
		MinRideDuration:         time.Hour,
		DefaultBookingEndPolicy: config.EndPolicyEndOfDay,
		BookingTimeZone:         "UTC",
		PhoneRegion:             "IN",
	}

	h := &harness{
		repo:  newFakeBookingRepo(),
		locks: newFakeLockRepo(),
		catalog: newFakeCatalog(
			&model.Vehicle{ID: bigTruck, Name: "Eicher Pro", CapacityKg: 3000, Tyres: 6},
			&model.Vehicle{ID: smallTruck, Name: "Tata Ace", CapacityKg: 1000, Tyres: 4},
		),
		publisher: &recordingPublisher{},
		cfg:       cfg,
	}

	h.svc = NewBookingService(
		h.repo,
		h.locks,
		h.catalog,
		validator.NewBookingValidator(cfg.Log),
		duration.NewPincodeEstimator(cfg.MinRideDuration),
		duration.EndPolicyFromConfig(cfg),
		h.publisher,
		cfg,
	).(*bookingService)
	return h
}

func request(vehicleID, start, end string) *model.BookingRequest {
	return &model.BookingRequest{
		VehicleID:   vehicleID,
		FromPincode: "560001",
		ToPincode:   "560004",
		StartTime:   start,
		EndTime:     end,
		CustomerID:  "cust-1",
	}
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, code), "expected %s, got %v", code, err)
}

func TestCreate_CommitsPendingBooking(t *testing.T) {
	h := newHarness(t)

	req := request(smallTruck, "2026-03-01T10:00:00Z", "2026-03-01T11:00:00Z")
	req.CustomerName = "  Asha   Rao "
	req.CustomerPhone = "098765 43210"

	b, err := h.svc.Create(context.Background(), req)
	require.NoError(t, err)

	assert.NotEmpty(t, b.ID)
	assert.Equal(t, config.Pending, b.Status)
	assert.Equal(t, "Asha Rao", b.CustomerName)
	assert.Equal(t, "+919876543210", b.CustomerPhone)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), b.StartTime)
	require.NotNil(t, b.Vehicle)
	assert.Equal(t, "Tata Ace", b.Vehicle.Name)

	assert.Equal(t, []string{model.EventBookingCreated}, h.publisher.types())
	assert.False(t, h.locks.held(model.VehicleLockID(smallTruck)), "lock must be released")
	assert.Equal(t, 1, h.catalog.guards)
}

func TestCreate_RepeatedCommitConflicts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Create(ctx, request(smallTruck, "2026-03-01T10:00:00Z", "2026-03-01T11:00:00Z"))
	require.NoError(t, err)

	_, err = h.svc.Create(ctx, request(smallTruck, "2026-03-01T10:00:00Z", "2026-03-01T11:00:00Z"))
	requireCode(t, err, apperrors.CodeConflict)

	assert.Len(t, h.repo.all(), 1)
	assert.False(t, h.locks.held(model.VehicleLockID(smallTruck)))
}

func TestCreate_OverlapAndAdjacency(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.svc.Create(ctx, request(smallTruck, "2026-03-01T10:00:00Z", "2026-03-01T11:00:00Z"))
	require.NoError(t, err)

	_, err = h.svc.Create(ctx, request(smallTruck, "2026-03-01T10:30:00Z", "2026-03-01T11:30:00Z"))
	requireCode(t, err, apperrors.CodeConflict)
	assert.Equal(t, first.ID, apperrors.AsAppError(err).Details["conflicting_booking_id"])

	_, err = h.svc.Create(ctx, request(smallTruck, "2026-03-01T11:00:00Z", "2026-03-01T12:00:00Z"))
	require.NoError(t, err, "adjacent windows do not overlap")

	_, err = h.svc.Create(ctx, request(smallTruck, "2026-03-01T09:00:00Z", "2026-03-01T10:00:00Z"))
	require.NoError(t, err)

	_, err = h.svc.Create(ctx, request(bigTruck, "2026-03-01T10:30:00Z", "2026-03-01T11:30:00Z"))
	require.NoError(t, err, "other vehicles are independent")

	assertNoOverlaps(t, h.repo.all())
}

func TestCreate_OffsetInstantsCompareAsInstants(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Create(ctx, request(smallTruck, "2026-03-01T10:00:00Z", "2026-03-01T11:00:00Z"))
	require.NoError(t, err)

	// 15:45+05:30 is 10:15Z.
	_, err = h.svc.Create(ctx, request(smallTruck, "2026-03-01T15:45:00+05:30", "2026-03-01T16:45:00+05:30"))
	requireCode(t, err, apperrors.CodeConflict)
}

func TestCreate_ConcurrentOverlappingCommits(t *testing.T) {
	h := newHarness(t)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)

	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = h.svc.Create(context.Background(),
				request(smallTruck, "2026-03-01T10:00:00Z", "2026-03-01T11:00:00Z"))
		}(i)
	}
	close(start)
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict), "losers must see Conflict, got %v", err)
	}
	assert.Equal(t, 1, successes)
	assert.Len(t, h.repo.all(), 1)
}

func TestCreate_PreconditionOrder(t *testing.T) {
	tests := []struct {
		name     string
		req      *model.BookingRequest
		wantCode string
	}{
		{
			name:     "malformed before unknown vehicle",
			req:      request("not-an-id", "2026-03-01T10:00:00Z", "2026-03-01T11:00:00Z"),
			wantCode: apperrors.CodeInvalidInput,
		},
		{
			name:     "unknown vehicle regardless of window",
			req:      request(ghostTruck, "2026-03-01T11:00:00Z", "2026-03-01T10:00:00Z"),
			wantCode: apperrors.CodeNotFound,
		},
		{
			name:     "end before start",
			req:      request(smallTruck, "2026-03-01T11:00:00Z", "2026-03-01T10:00:00Z"),
			wantCode: apperrors.CodeInvalidInput,
		},
		{
			name:     "empty window",
			req:      request(smallTruck, "2026-03-01T10:00:00Z", "2026-03-01T10:00:00Z"),
			wantCode: apperrors.CodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			_, err := h.svc.Create(context.Background(), tt.req)
			requireCode(t, err, tt.wantCode)

			assert.Empty(t, h.repo.all())
			assert.Zero(t, h.locks.acquires, "rejected before locking")
			assert.Empty(t, h.publisher.types())
		})
	}
}

func TestCreate_ShapeErrorsSkipTheCatalog(t *testing.T) {
	h := newHarness(t)

	req := request(smallTruck, "yesterday", "")
	req.CustomerID = ""
	_, err := h.svc.Create(context.Background(), req)

	requireCode(t, err, apperrors.CodeInvalidInput)
	assert.Zero(t, h.catalog.calls)

	fields, ok := apperrors.AsAppError(err).Details["fields"].(validator.ValidationErrors)
	require.True(t, ok)
	assert.Len(t, fields, 2)
}

func TestCreate_OmittedEndUsesEndOfDay(t *testing.T) {
	h := newHarness(t)

	b, err := h.svc.Create(context.Background(), request(smallTruck, "2026-03-01T10:00:00Z", ""))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 23, 59, 59, 999_000_000, time.UTC), b.EndTime)

	_, err = h.svc.Create(context.Background(), request(smallTruck, "2026-03-01T22:00:00Z", "2026-03-01T23:00:00Z"))
	requireCode(t, err, apperrors.CodeConflict)
}

func TestCreate_OmittedEndWithFixedPolicy(t *testing.T) {
	h := newHarness(t)
	h.svc.endPolicy = duration.FixedDuration(2 * time.Hour)

	b, err := h.svc.Create(context.Background(), request(smallTruck, "2026-03-01T10:00:00Z", ""))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), b.EndTime)
}

func TestCreate_LockHeldTimesOut(t *testing.T) {
	h := newHarness(t)
	h.cfg.BookingLockWait = 80 * time.Millisecond

	other := &model.BookingLock{
		ID:        model.VehicleLockID(smallTruck),
		Owner:     "someone-else",
		ExpiresAt: time.Now().Add(time.Minute),
	}
	require.NoError(t, h.locks.Acquire(context.Background(), other))

	_, err := h.svc.Create(context.Background(), request(smallTruck, "2026-03-01T10:00:00Z", "2026-03-01T11:00:00Z"))
	requireCode(t, err, apperrors.CodeTimeout)

	assert.Empty(t, h.repo.all())
	assert.True(t, h.locks.held(other.ID), "another owner's lock must not be released")
}

func TestCreate_ReclaimsExpiredLock(t *testing.T) {
	h := newHarness(t)

	stale := &model.BookingLock{
		ID:        model.VehicleLockID(smallTruck),
		Owner:     "crashed-process",
		ExpiresAt: time.Now().Add(-time.Second),
	}
	h.locks.locks[stale.ID] = *stale

	_, err := h.svc.Create(context.Background(), request(smallTruck, "2026-03-01T10:00:00Z", "2026-03-01T11:00:00Z"))
	require.NoError(t, err)
}

func TestCreate_VehicleDeletedMidCommit(t *testing.T) {
	h := newHarness(t)
	h.catalog.guardErr = apperrors.NotFoundWithID("Vehicle", smallTruck)

	_, err := h.svc.Create(context.Background(), request(smallTruck, "2026-03-01T10:00:00Z", "2026-03-01T11:00:00Z"))
	requireCode(t, err, apperrors.CodeNotFound)
	assert.Empty(t, h.repo.all())
	assert.False(t, h.locks.held(model.VehicleLockID(smallTruck)))
}

func TestCreate_StoreFailureIsNotABusinessRejection(t *testing.T) {
	h := newHarness(t)
	h.repo.failWith = context.DeadlineExceeded

	_, err := h.svc.Create(context.Background(), request(smallTruck, "2026-03-01T10:00:00Z", "2026-03-01T11:00:00Z"))
	requireCode(t, err, apperrors.CodeTimeout)
	assert.False(t, h.locks.held(model.VehicleLockID(smallTruck)))
}

func TestCreate_PublishFailureIsNotSurfaced(t *testing.T) {
	h := newHarness(t)
	h.publisher.err = errors.New("broker unreachable")

	_, err := h.svc.Create(context.Background(), request(smallTruck, "2026-03-01T10:00:00Z", "2026-03-01T11:00:00Z"))
	require.NoError(t, err)
	assert.Len(t, h.repo.all(), 1)
}

func TestTransitions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	b, err := h.svc.Create(ctx, request(smallTruck, "2026-03-01T10:00:00Z", "2026-03-01T11:00:00Z"))
	require.NoError(t, err)

	accepted, err := h.svc.Accept(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, config.Accepted, accepted.Status)
	require.NotNil(t, accepted.Vehicle)

	completed, err := h.svc.Complete(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, config.Completed, completed.Status)

	// Permissive: a completed booking may be accepted again.
	again, err := h.svc.Accept(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, config.Accepted, again.Status)

	_, err = h.svc.Complete(ctx, "missing")
	requireCode(t, err, apperrors.CodeNotFound)

	assert.Equal(t, []string{
		model.EventBookingCreated,
		model.EventBookingAccepted,
		model.EventBookingCompleted,
		model.EventBookingAccepted,
	}, h.publisher.types())
}

func TestStatusDoesNotReleaseWindow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	b, err := h.svc.Create(ctx, request(smallTruck, "2026-03-01T10:00:00Z", "2026-03-01T11:00:00Z"))
	require.NoError(t, err)
	_, err = h.svc.Complete(ctx, b.ID)
	require.NoError(t, err)

	_, err = h.svc.Create(ctx, request(smallTruck, "2026-03-01T10:00:00Z", "2026-03-01T11:00:00Z"))
	requireCode(t, err, apperrors.CodeConflict)
}

func TestDelete(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	b, err := h.svc.Create(ctx, request(smallTruck, "2026-03-01T10:00:00Z", "2026-03-01T11:00:00Z"))
	require.NoError(t, err)

	require.NoError(t, h.svc.Delete(ctx, b.ID))
	requireCode(t, h.svc.Delete(ctx, b.ID), apperrors.CodeNotFound)
	requireCode(t, h.svc.Delete(ctx, "  "), apperrors.CodeInvalidInput)

	_, err = h.svc.Create(ctx, request(smallTruck, "2026-03-01T10:00:00Z", "2026-03-01T11:00:00Z"))
	require.NoError(t, err, "deleting frees the window")

	assert.Contains(t, h.publisher.types(), model.EventBookingDeleted)
}

func TestGetAll_NewestStartFirstAndDecorated(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Create(ctx, request(smallTruck, "2026-03-01T10:00:00Z", "2026-03-01T11:00:00Z"))
	require.NoError(t, err)
	_, err = h.svc.Create(ctx, request(bigTruck, "2026-03-02T10:00:00Z", "2026-03-02T11:00:00Z"))
	require.NoError(t, err)

	bookings, total, err := h.svc.GetAll(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, bookings, 2)
	assert.Equal(t, bigTruck, bookings[0].VehicleID)
	assert.Equal(t, 3000, bookings[0].Vehicle.CapacityKg)
	assert.Equal(t, "Tata Ace", bookings[1].Vehicle.Name)

	h.catalog.remove(smallTruck)
	bookings, _, err = h.svc.GetAll(ctx, 0, 0)
	require.NoError(t, err)
	assert.Nil(t, bookings[1].Vehicle)
}

func TestGetByID(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	b, err := h.svc.Create(ctx, request(smallTruck, "2026-03-01T10:00:00Z", "2026-03-01T11:00:00Z"))
	require.NoError(t, err)

	got, err := h.svc.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	_, err = h.svc.GetByID(ctx, "nope")
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestStats(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	future := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Hour)
	past := time.Now().UTC().Add(-48 * time.Hour).Truncate(time.Hour)

	for i, start := range []time.Time{future, future.Add(2 * time.Hour), past} {
		vehicle := smallTruck
		if i == 1 {
			vehicle = bigTruck
		}
		_, err := h.svc.Create(ctx, request(vehicle,
			start.Format(time.RFC3339), start.Add(time.Hour).Format(time.RFC3339)))
		require.NoError(t, err)
	}

	stats, err := h.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalBookings)
	assert.Equal(t, int64(3), stats.TodaysBookings, "all were created just now")
	assert.Equal(t, int64(2), stats.UpcomingBookings)
	require.NotEmpty(t, stats.PopularVehicles)
	assert.Equal(t, smallTruck, stats.PopularVehicles[0].VehicleID)
	assert.Equal(t, int64(2), stats.PopularVehicles[0].BookingCount)
}

func TestStats_StoreFailure(t *testing.T) {
	h := newHarness(t)
	h.repo.failWith = errors.New("boom")

	_, err := h.svc.Stats(context.Background())
	requireCode(t, err, apperrors.CodeInternal)
}

func assertNoOverlaps(t *testing.T, bookings []*model.Booking) {
	t.Helper()
	for i, a := range bookings {
		for _, b := range bookings[i+1:] {
			if a.VehicleID == b.VehicleID && model.Overlaps(a.StartTime, a.EndTime, b.StartTime, b.EndTime) {
				t.Errorf("bookings %s and %s overlap", a.ID, b.ID)
			}
		}
	}
}

func TestParseInstant(t *testing.T) {
	got, err := parseInstant("start_time", "2026-03-01T15:30:00.123456+05:30")
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2026, 3, 1, 10, 0, 0, 123000000, time.UTC)), "got %s", got)
	assert.Equal(t, time.UTC, got.Location())

	_, err = parseInstant("end_time", "tomorrow")
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.CodeInvalidInput, appErr.Code)
	assert.Equal(t, "end_time", appErr.Details["field"])
}
