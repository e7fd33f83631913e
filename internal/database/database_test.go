package database

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"stayd/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	logger := zerolog.New(io.Discard)
	db, err := NewDB(path, &logger)
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testRoom(name string, maxBookings int) *models.Room {
	return &models.Room{
		Name:        name,
		Type:        "Deluxe",
		BedType:     "King",
		View:        "Sea",
		Floor:       1,
		Capacity:    2,
		Price:       180,
		Amenities:   []string{"wifi", "minibar"},
		MaxBookings: maxBookings,
		Status:      models.RoomStatusAvailable,
	}
}

func mustCreateRoom(t *testing.T, db *DB, name string, maxBookings int) *models.Room {
	t.Helper()
	room := testRoom(name, maxBookings)
	require.NoError(t, db.CreateRoom(context.Background(), room))
	return room
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func paidBooking(roomID int64, paymentID string, checkIn, checkOut time.Time) *models.Booking {
	return &models.Booking{
		UserID:        "user-1",
		RoomID:        roomID,
		RoomName:      "Deluxe King 101",
		FullName:      "Test Guest",
		Email:         "guest@example.com",
		ContactNumber: "+100",
		CheckIn:       checkIn,
		CheckOut:      checkOut,
		Status:        models.BookingStatusPending,
		PaymentStatus: models.PaymentStatusPaid,
		PaymentID:     paymentID,
		TotalAmount:   360,
	}
}
