// Package duration decides how long a booking window lasts when the caller
// does not say: Estimator guesses ride time from pincodes for availability
// queries, EndPolicy closes an open-ended booking commit.
package duration

import (
	"strconv"
	"time"

	"fleetlink/pkg/config"
	apperrors "fleetlink/pkg/errors"
)

type Estimator interface {
	Estimate(fromPincode, toPincode string) (time.Duration, error)
}

// PincodeEstimator is a placeholder heuristic: |to - from| mod 24 hours.
type PincodeEstimator struct {
	Min time.Duration
}

func NewPincodeEstimator(minimum time.Duration) *PincodeEstimator {
	return &PincodeEstimator{Min: minimum}
}

// Estimate never returns less than Min so that a zero-hour estimate still
// yields a non-empty window.
func (e *PincodeEstimator) Estimate(fromPincode, toPincode string) (time.Duration, error) {
	from, err := parsePincode("from_pincode", fromPincode)
	if err != nil {
		return 0, err
	}
	to, err := parsePincode("to_pincode", toPincode)
	if err != nil {
		return 0, err
	}

	diff := to - from
	if diff < 0 {
		diff = -diff
	}
	estimate := time.Duration(diff%24) * time.Hour

	return max(estimate, e.Min), nil
}

func parsePincode(field, value string) (int64, error) {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, apperrors.InvalidInput(field + " must be numeric").
			WithDetails(map[string]any{"field": field, "value": value})
	}
	return n, nil
}

// EndPolicy computes the end of a booking committed without an end time.
type EndPolicy func(start time.Time) time.Time

// EndOfDay ends the booking at 23:59:59.999 on the start's calendar day in loc.
func EndOfDay(loc *time.Location) EndPolicy {
	return func(start time.Time) time.Time {
		y, m, d := start.In(loc).Date()
		return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), loc)
	}
}

func FixedDuration(d time.Duration) EndPolicy {
	return func(start time.Time) time.Time {
		return start.Add(d)
	}
}

func EndPolicyFromConfig(cfg *config.Config) EndPolicy {
	if cfg.DefaultBookingEndPolicy == config.EndPolicyFixed {
		return FixedDuration(cfg.DefaultBookingDuration)
	}
	return EndOfDay(cfg.Location())
}
