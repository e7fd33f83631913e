// Package capacity implements the booking-slot ledger for rooms. It computes
// intended counter mutations; applying them atomically is the store's job.
package capacity

import (
	"errors"

	"stayd/internal/models"
)

var ErrCapacityExceeded = errors.New("room capacity exceeded")

// Intent describes a single counter mutation computed from a room snapshot.
// FromBookings is the expected current value and serves as the
// compare-and-swap guard when the intent is applied.
type Intent struct {
	RoomID       int64
	FromBookings int
	ToBookings   int
	Status       string
}

// ReserveSlot computes the intent to consume one capacity slot.
// Fails when the room is already at capacity.
func ReserveSlot(room *models.Room) (Intent, error) {
	if room.CurrentBookings >= room.MaxBookings {
		return Intent{}, ErrCapacityExceeded
	}

	intent := Intent{
		RoomID:       room.ID,
		FromBookings: room.CurrentBookings,
		ToBookings:   room.CurrentBookings + 1,
		Status:       room.Status,
	}
	if intent.ToBookings == room.MaxBookings && room.Status != models.RoomStatusMaintenance {
		intent.Status = models.RoomStatusUnavailable
	}
	return intent, nil
}

// ReleaseSlot computes the intent to return one capacity slot. The counter
// floors at zero. A room that was Unavailable because of capacity becomes
// Available again; Maintenance is never left automatically.
func ReleaseSlot(room *models.Room) Intent {
	to := room.CurrentBookings - 1
	if to < 0 {
		to = 0
	}

	intent := Intent{
		RoomID:       room.ID,
		FromBookings: room.CurrentBookings,
		ToBookings:   to,
		Status:       room.Status,
	}
	if room.Status == models.RoomStatusUnavailable && to < room.MaxBookings {
		intent.Status = models.RoomStatusAvailable
	}
	return intent
}
