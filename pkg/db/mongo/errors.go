package mongo

import (
	"context"
	"errors"

	apperrors "fleetlink/pkg/errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/x/mongo/driver"
)

// StoreError translates a store failure into an AppError so that timeouts
// and an unreachable database stay distinguishable from business rejections.
// AppErrors raised inside a transaction pass through untouched. The cause is
// always kept so driver error labels survive for WithTransaction retries.
func StoreError(message string, err error) *apperrors.AppError {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var translated *apperrors.AppError
	switch {
	case errors.Is(err, context.DeadlineExceeded), mongo.IsTimeout(err):
		translated = apperrors.Timeout(message + ": store did not respond in time")
	case errors.Is(err, context.Canceled):
		translated = apperrors.Timeout(message + ": request cancelled")
	case mongo.IsNetworkError(err), errors.Is(err, mongo.ErrClientDisconnected):
		translated = apperrors.Unavailable("Database")
	default:
		return apperrors.Internal(message, err)
	}
	translated.Err = err
	return translated
}

// IsTransient reports whether err carries the TransientTransactionError
// label. WithTransaction retries such errors, so they are expected under
// contention.
func IsTransient(err error) bool {
	var serverErr mongo.ServerError
	return errors.As(err, &serverErr) && serverErr.HasErrorLabel(driver.TransientTransactionError)
}
