package domain

import (
	"context"
	"time"

	"stayd/internal/models"
)

type Store interface {
	CreateRoom(ctx context.Context, room *models.Room) error
	GetRoom(ctx context.Context, id int64) (*models.Room, error)
	GetRoomByName(ctx context.Context, name string) (*models.Room, error)
	ListRooms(ctx context.Context) ([]models.Room, error)
	UpdateRoom(ctx context.Context, room *models.Room) error
	DeleteRoom(ctx context.Context, id int64) error
	SeedRooms(ctx context.Context, rooms []models.Room) error

	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	GetBookingByPaymentID(ctx context.Context, paymentID string) (*models.Booking, error)
	GetActiveBookings(ctx context.Context, roomID int64) ([]models.Booking, error)
	QueryBookings(ctx context.Context, roomID int64, statuses []string) ([]models.Booking, error)
	GetUserBookings(ctx context.Context, userID string) ([]models.Booking, error)
	CommitReservation(ctx context.Context, booking *models.Booking) (*models.Booking, error)
	ApproveBooking(ctx context.Context, id, fromVersion int64) error
	ReleaseBooking(ctx context.Context, id, fromVersion int64, newStatus string) error

	CreateRating(ctx context.Context, rating *models.Rating) (*models.Room, error)
	GetRoomRatings(ctx context.Context, roomID int64) ([]models.Rating, error)
}

// StateRepository keeps short-lived reservation drafts keyed by payment
// order id, plus the per-user booking rate limiter.
type StateRepository interface {
	GetDraft(ctx context.Context, orderID string) (*models.ReservationDraft, error)
	SetDraft(ctx context.Context, draft *models.ReservationDraft, ttl time.Duration) error
	ClearDraft(ctx context.Context, orderID string) error
	CheckRateLimit(ctx context.Context, userID string, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// PaymentGateway fronts the payment provider. CreateOrder returns the
// provider order id; CaptureOrder settles it.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amount float64, currency, description string) (string, error)
	CaptureOrder(ctx context.Context, orderID string) (*models.CaptureResult, error)
}

// NotifyWorker enqueues post-commit jobs. Enqueue failures are logged by the
// caller and never fail the booking.
type NotifyWorker interface {
	EnqueueReceipt(ctx context.Context, booking *models.Booking) error
	EnqueueMirror(ctx context.Context, booking *models.Booking) error
	EnqueueMirrorStatus(ctx context.Context, bookingID int64, status string) error
}

type SheetsWriter interface {
	AppendBooking(ctx context.Context, booking *models.Booking) error
	UpsertBooking(ctx context.Context, booking *models.Booking) error
	UpdateBookingStatus(ctx context.Context, bookingID int64, status string) error
	ReplaceBookingsSheet(ctx context.Context, bookings []models.Booking) error
}

type ReceiptWriter interface {
	WriteReceipt(ctx context.Context, booking *models.Booking) (string, error)
}
