package models

import "time"

const (
	BookingStatusPending   = "Pending Approval"
	BookingStatusApproved  = "Approved"
	BookingStatusCompleted = "Completed"
	BookingStatusCancelled = "Cancelled"
)

const (
	RoomStatusAvailable   = "Available"
	RoomStatusUnavailable = "Unavailable"
	RoomStatusMaintenance = "Maintenance"
)

const (
	PaymentStatusPaid   = "Paid"
	PaymentStatusUnpaid = "Unpaid"
)

const (
	DraftStepAwaitingPayment = "awaiting_payment"
)

// DateLayout is the storage format for calendar dates. Bookings operate on
// whole days; time-of-day never participates in comparisons.
const DateLayout = "2006-01-02"

const (
	// DefaultDraftTTL время жизни черновика бронирования до оплаты
	DefaultDraftTTL = 30 * time.Minute

	// WorkerQueueSize размер очереди воркера уведомлений
	WorkerQueueSize = 128

	// RateLimitAttempts количество попыток бронирования в окне
	RateLimitAttempts = 10

	// RateLimitWindow окно ограничения частоты попыток в секундах
	RateLimitWindow = 60

	// MaxAdvanceDays максимальный горизонт бронирования
	MaxAdvanceDays = 365
)

// ActiveBookingStatuses lists the statuses that consume a capacity slot.
func ActiveBookingStatuses() []string {
	return []string{BookingStatusPending, BookingStatusApproved}
}

// IsActiveBookingStatus reports whether a booking in this status counts
// against the room's currentBookings.
func IsActiveBookingStatus(status string) bool {
	return status == BookingStatusPending || status == BookingStatusApproved
}
