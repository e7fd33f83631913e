package database

import (
	"context"
	"fmt"
	"testing"

	"stayd/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// completedBooking commits a reservation and moves it to Completed so it can
// be rated.
func completedBooking(t *testing.T, db *DB, roomID int64, userID, paymentID string) *models.Booking {
	t.Helper()
	ctx := context.Background()

	b := paidBooking(roomID, paymentID, date(2099, 5, 1), date(2099, 5, 3))
	b.UserID = userID
	committed, err := db.CommitReservation(ctx, b)
	require.NoError(t, err)

	require.NoError(t, db.ReleaseBooking(ctx, committed.ID, committed.Version, models.BookingStatusCompleted))

	got, err := db.GetBooking(ctx, committed.ID)
	require.NoError(t, err)
	return got
}

func TestCreateRating(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	room := mustCreateRoom(t, db, "Deluxe King 101", 1)
	booking := completedBooking(t, db, room.ID, "alice", "PAY-1")

	rating := &models.Rating{UserID: "alice", BookingID: booking.ID, Rating: 4}
	updated, err := db.CreateRating(ctx, rating)
	require.NoError(t, err)

	assert.NotZero(t, rating.ID)
	assert.Equal(t, room.ID, rating.RoomID)
	assert.Equal(t, 4.0, updated.AverageRating)
	assert.Equal(t, 1, updated.NumberOfRatings)
}

func TestCreateRatingAggregateRecompute(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	room := mustCreateRoom(t, db, "Deluxe King 101", 3)

	values := []int{5, 4, 3}
	for i, v := range values {
		booking := completedBooking(t, db, room.ID, fmt.Sprintf("user-%d", i), fmt.Sprintf("PAY-%d", i))
		updated, err := db.CreateRating(ctx, &models.Rating{
			UserID: booking.UserID, BookingID: booking.ID, Rating: v,
		})
		require.NoError(t, err)
		assert.Equal(t, i+1, updated.NumberOfRatings)
	}

	got, err := db.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.0, got.AverageRating)
	assert.Equal(t, 3, got.NumberOfRatings)
}

func TestCreateRatingDuplicate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	room := mustCreateRoom(t, db, "Deluxe King 101", 1)
	booking := completedBooking(t, db, room.ID, "alice", "PAY-1")

	_, err := db.CreateRating(ctx, &models.Rating{UserID: "alice", BookingID: booking.ID, Rating: 5})
	require.NoError(t, err)

	_, err = db.CreateRating(ctx, &models.Rating{UserID: "alice", BookingID: booking.ID, Rating: 1})
	assert.ErrorIs(t, err, ErrDuplicateRating)

	// The failed duplicate must not skew the aggregate.
	got, err := db.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, 5.0, got.AverageRating)
	assert.Equal(t, 1, got.NumberOfRatings)
}

func TestCreateRatingRejections(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	room := mustCreateRoom(t, db, "Deluxe King 101", 2)

	t.Run("BookingNotFound", func(t *testing.T) {
		_, err := db.CreateRating(ctx, &models.Rating{UserID: "alice", BookingID: 9999, Rating: 3})
		assert.ErrorIs(t, err, ErrBookingNotFound)
	})

	t.Run("MissingBookingID", func(t *testing.T) {
		_, err := db.CreateRating(ctx, &models.Rating{UserID: "alice", Rating: 3})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("NotCompleted", func(t *testing.T) {
		b := paidBooking(room.ID, "PAY-PENDING", date(2099, 6, 1), date(2099, 6, 3))
		b.UserID = "alice"
		committed, err := db.CommitReservation(ctx, b)
		require.NoError(t, err)

		_, err = db.CreateRating(ctx, &models.Rating{UserID: "alice", BookingID: committed.ID, Rating: 3})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("WrongUser", func(t *testing.T) {
		booking := completedBooking(t, db, room.ID, "alice", "PAY-OWNED")

		_, err := db.CreateRating(ctx, &models.Rating{UserID: "mallory", BookingID: booking.ID, Rating: 3})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("ValueOutOfRange", func(t *testing.T) {
		booking := completedBooking(t, db, room.ID, "bob", "PAY-RANGE")

		_, err := db.CreateRating(ctx, &models.Rating{UserID: "bob", BookingID: booking.ID, Rating: 6})
		assert.ErrorIs(t, err, ErrValidation)

		_, err = db.CreateRating(ctx, &models.Rating{UserID: "bob", BookingID: booking.ID, Rating: 0})
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestGetRoomRatings(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	room := mustCreateRoom(t, db, "Deluxe King 101", 2)

	first := completedBooking(t, db, room.ID, "alice", "PAY-1")
	second := completedBooking(t, db, room.ID, "bob", "PAY-2")

	_, err := db.CreateRating(ctx, &models.Rating{UserID: "alice", BookingID: first.ID, Rating: 5})
	require.NoError(t, err)
	_, err = db.CreateRating(ctx, &models.Rating{UserID: "bob", BookingID: second.ID, Rating: 3})
	require.NoError(t, err)

	ratings, err := db.GetRoomRatings(ctx, room.ID)
	require.NoError(t, err)
	assert.Len(t, ratings, 2)

	empty, err := db.GetRoomRatings(ctx, 9999)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
