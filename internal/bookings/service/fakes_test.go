package service

import (
	"context"
	"sort"
	"sync"
	"time"

	bookingserrors "fleetlink/internal/bookings/errors"
	mongotx "fleetlink/pkg/db/mongo"
	apperrors "fleetlink/pkg/errors"
	"fleetlink/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

// fakeBookingRepo keeps bookings in memory. ExecuteTransaction holds txMu
// for the whole callback, which gives the same all-or-nothing outcome as a
// Mongo transaction for these tests.
type fakeBookingRepo struct {
	mu       sync.Mutex
	txMu     sync.Mutex
	bookings map[string]*model.Booking

	conflictQueries int
	failWith        error
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{bookings: map[string]*model.Booking{}}
}

func (r *fakeBookingRepo) all() []*model.Booking {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Booking, 0, len(r.bookings))
	for _, b := range r.bookings {
		cp := *b
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out
}

func (r *fakeBookingRepo) Create(_ context.Context, booking *model.Booking) error {
	if r.failWith != nil {
		return r.failWith
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	booking.ID = uuid.NewString()
	booking.CreatedAt = now
	booking.UpdatedAt = now
	cp := *booking
	r.bookings[booking.ID] = &cp
	return nil
}

func (r *fakeBookingRepo) FindByID(_ context.Context, id string) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *fakeBookingRepo) FindAll(_ context.Context, limit int, offset int64) ([]*model.Booking, error) {
	all := r.all()
	if offset >= int64(len(all)) {
		return []*model.Booking{}, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *fakeBookingRepo) Count(context.Context) (int64, error) {
	if r.failWith != nil {
		return 0, r.failWith
	}
	return int64(len(r.all())), nil
}

func (r *fakeBookingRepo) CountCreatedSince(_ context.Context, since time.Time) (int64, error) {
	var n int64
	for _, b := range r.all() {
		if !b.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *fakeBookingRepo) CountStartingAfter(_ context.Context, instant time.Time) (int64, error) {
	var n int64
	for _, b := range r.all() {
		if b.StartTime.After(instant) {
			n++
		}
	}
	return n, nil
}

func (r *fakeBookingRepo) PopularVehicles(_ context.Context, limit int) ([]*model.PopularVehicle, error) {
	counts := map[string]int64{}
	for _, b := range r.all() {
		counts[b.VehicleID]++
	}
	popular := make([]*model.PopularVehicle, 0, len(counts))
	for id, n := range counts {
		popular = append(popular, &model.PopularVehicle{VehicleID: id, BookingCount: n})
	}
	sort.Slice(popular, func(i, j int) bool {
		if popular[i].BookingCount != popular[j].BookingCount {
			return popular[i].BookingCount > popular[j].BookingCount
		}
		return popular[i].VehicleID < popular[j].VehicleID
	})
	if len(popular) > limit {
		popular = popular[:limit]
	}
	return popular, nil
}

func (r *fakeBookingRepo) UpdateStatus(_ context.Context, id string, status string) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	b.Status = status
	b.UpdatedAt = time.Now().UTC()
	cp := *b
	return &cp, nil
}

func (r *fakeBookingRepo) Delete(_ context.Context, id string) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	delete(r.bookings, id)
	return b, nil
}

func (r *fakeBookingRepo) FindOverlapping(_ context.Context, vehicleID string, start, end time.Time) (*model.Booking, error) {
	for _, b := range r.all() {
		if b.VehicleID == vehicleID && model.Overlaps(b.StartTime, b.EndTime, start, end) {
			return b, nil
		}
	}
	return nil, nil
}

func (r *fakeBookingRepo) ConflictingVehicleIDs(_ context.Context, vehicleIDs []string, start, end time.Time) ([]string, error) {
	r.mu.Lock()
	r.conflictQueries++
	r.mu.Unlock()

	wanted := map[string]bool{}
	for _, id := range vehicleIDs {
		wanted[id] = true
	}
	seen := map[string]bool{}
	var busy []string
	for _, b := range r.all() {
		if wanted[b.VehicleID] && !seen[b.VehicleID] && model.Overlaps(b.StartTime, b.EndTime, start, end) {
			seen[b.VehicleID] = true
			busy = append(busy, b.VehicleID)
		}
	}
	return busy, nil
}

func (r *fakeBookingRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()
	return fn(mongo.NewSessionContext(ctx, nil))
}

type fakeLockRepo struct {
	mu       sync.Mutex
	locks    map[string]model.BookingLock
	acquires int
	released []string
}

func newFakeLockRepo() *fakeLockRepo {
	return &fakeLockRepo{locks: map[string]model.BookingLock{}}
}

func (r *fakeLockRepo) Acquire(_ context.Context, lock *model.BookingLock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.acquires++
	if held, ok := r.locks[lock.ID]; ok && held.ExpiresAt.After(time.Now()) {
		return bookingserrors.ErrLockHeld
	}
	r.locks[lock.ID] = *lock
	return nil
}

func (r *fakeLockRepo) Release(_ context.Context, lockID, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if held, ok := r.locks[lockID]; ok && held.Owner == owner {
		delete(r.locks, lockID)
		r.released = append(r.released, lockID)
	}
	return nil
}

func (r *fakeLockRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, l := range r.locks {
		if !l.ExpiresAt.After(now) {
			delete(r.locks, id)
			n++
		}
	}
	return n, nil
}

func (r *fakeLockRepo) held(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.locks[id]
	return ok
}

// fakeCatalog serves a fixed fleet ordered by capacity then id.
type fakeCatalog struct {
	mu       sync.Mutex
	vehicles map[string]*model.Vehicle
	calls    int
	guards   int
	guardErr error
}

func newFakeCatalog(vehicles ...*model.Vehicle) *fakeCatalog {
	c := &fakeCatalog{vehicles: map[string]*model.Vehicle{}}
	for _, v := range vehicles {
		c.vehicles[v.ID] = v
	}
	return c
}

func (c *fakeCatalog) Exists(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if _, ok := c.vehicles[id]; !ok {
		return apperrors.NotFoundWithID("Vehicle", id)
	}
	return nil
}

func (c *fakeCatalog) ListByMinCapacity(_ context.Context, minKg int) ([]*model.Vehicle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	var out []*model.Vehicle
	for _, v := range c.vehicles {
		if v.CapacityKg >= minKg {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CapacityKg != out[j].CapacityKg {
			return out[i].CapacityKg < out[j].CapacityKg
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (c *fakeCatalog) GetByIDs(_ context.Context, ids []string) (map[string]*model.Vehicle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := map[string]*model.Vehicle{}
	for _, id := range ids {
		if v, ok := c.vehicles[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

func (c *fakeCatalog) GuardBooking(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.guards++
	if c.guardErr != nil {
		return c.guardErr
	}
	if _, ok := c.vehicles[id]; !ok {
		return apperrors.NotFoundWithID("Vehicle", id)
	}
	return nil
}

func (c *fakeCatalog) remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.vehicles, id)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.BookingEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event model.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}
