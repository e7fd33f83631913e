package database

import "errors"

var (
	ErrUnauthenticated = errors.New("user is not authenticated")
	ErrValidation      = errors.New("validation failed")
	ErrPastDate        = errors.New("check-in date is in the past")
	ErrInvertedRange   = errors.New("check-out date must be after check-in date")
	ErrDateTooFar      = errors.New("check-in date is too far in the future")
	ErrOverlap         = errors.New("dates overlap an existing booking")
	ErrMaintenance     = errors.New("room is under maintenance")

	ErrRoomNotFound    = errors.New("room not found")
	ErrBookingNotFound = errors.New("booking not found")
	ErrOrderNotFound   = errors.New("reservation order not found")

	ErrPaymentFailed    = errors.New("payment was not completed")
	ErrPaymentCancelled = errors.New("payment was cancelled")

	// ErrReconciliation marks a booking whose payment was captured but whose
	// commit failed an authoritative re-check. Requires manual follow-up;
	// the service never refunds automatically.
	ErrReconciliation = errors.New("payment captured but reservation could not be committed")

	ErrConcurrentModification = errors.New("record was modified concurrently")
	ErrDuplicateRating        = errors.New("booking has already been rated")
	ErrRateLimited            = errors.New("too many booking attempts")
)
