package booking

import (
	"context"
	"errors"
	"fmt"
)

// Rejections a caller can act on. They are expected business outcomes and
// leave the venue unchanged.
var (
	ErrInvalidRequest        = errors.New("invalid request")
	ErrDuplicateHold         = errors.New("customer already holds seats for this event")
	ErrDuplicateReservation  = errors.New("customer already has a reservation for this event")
	ErrHoldNotFound          = errors.New("no matching seat hold")
	ErrReservationNotFound   = errors.New("reservation not found")
	ErrInsufficientInventory = errors.New("not enough seats available")
)

// ErrTransient marks a storage or lock failure. The operation did not take
// effect and may be retried.
var ErrTransient = errors.New("temporary failure")

func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient)
}

var businessErrors = []error{
	ErrInvalidRequest,
	ErrDuplicateHold,
	ErrDuplicateReservation,
	ErrHoldNotFound,
	ErrReservationNotFound,
	ErrInsufficientInventory,
}

// classify passes business rejections and context errors through and wraps
// everything else as transient.
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, target := range businessErrors {
		if errors.Is(err, target) {
			return err
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}
