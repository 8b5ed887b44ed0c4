package worker

import (
	"context"
	"fmt"
	"time"

	"fleetlink/internal/bookings/repository"
	"fleetlink/pkg/logger"

	"github.com/robfig/cron/v3"
)

// LockSweeper removes booking locks whose holder died before releasing
// them. The TTL index on expires_at does the same eventually; the sweeper
// bounds how long that takes.
type LockSweeper struct {
	locks   repository.BookingLockRepository
	cron    *cron.Cron
	timeout time.Duration
	log     *logger.Logger
}

func NewLockSweeper(locks repository.BookingLockRepository, schedule string, timeout time.Duration, log *logger.Logger) (*LockSweeper, error) {
	s := &LockSweeper{
		locks:   locks,
		cron:    cron.New(),
		timeout: timeout,
		log:     log,
	}

	if _, err := s.cron.AddFunc(schedule, s.Sweep); err != nil {
		return nil, fmt.Errorf("invalid lock sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *LockSweeper) Start() {
	s.cron.Start()
	s.log.Info("Booking lock sweeper started")
}

// Stop waits for a running sweep to finish.
func (s *LockSweeper) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("Booking lock sweeper stopped")
}

func (s *LockSweeper) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	removed, err := s.locks.DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		s.log.Error("Failed to sweep expired booking locks", "error", err)
		return
	}
	if removed > 0 {
		s.log.Info("Swept expired booking locks", "removed", removed)
	}
}
