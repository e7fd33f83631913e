package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"stayd/internal/models"
)

// CreateRating stores a rating for a completed booking and recomputes the
// room aggregate from the ratings table inside the same transaction. The
// aggregate is never adjusted incrementally, so a lost or replayed write can
// not skew it.
func (db *DB) CreateRating(ctx context.Context, rating *models.Rating) (*models.Room, error) {
	if rating.BookingID == 0 {
		return nil, fmt.Errorf("%w: rating booking_id is required", ErrValidation)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	booking, err := scanBooking(tx.QueryRow(
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, rating.BookingID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking in tx: %w", err)
	}
	if booking.UserID != rating.UserID {
		return nil, fmt.Errorf("%w: booking %d belongs to another user", ErrValidation, rating.BookingID)
	}
	if booking.Status != models.BookingStatusCompleted {
		return nil, fmt.Errorf("%w: only completed stays can be rated", ErrValidation)
	}
	rating.RoomID = booking.RoomID

	if err := rating.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	var existing int
	err = tx.QueryRow(`SELECT COUNT(*) FROM ratings WHERE booking_id = ?`, rating.BookingID).Scan(&existing)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing rating: %w", err)
	}
	if existing > 0 {
		return nil, ErrDuplicateRating
	}

	now := time.Now()
	result, err := tx.Exec(
		`INSERT INTO ratings (user_id, room_id, booking_id, rating, created_at) VALUES (?, ?, ?, ?, ?)`,
		rating.UserID, rating.RoomID, rating.BookingID, rating.Rating, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert rating: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	var count int
	var avg sql.NullFloat64
	err = tx.QueryRow(
		`SELECT COUNT(*), AVG(rating) FROM ratings WHERE room_id = ?`, rating.RoomID,
	).Scan(&count, &avg)
	if err != nil {
		return nil, fmt.Errorf("failed to recompute rating aggregate: %w", err)
	}

	_, err = tx.Exec(
		`UPDATE rooms SET average_rating = ?, number_of_ratings = ?, updated_at = ? WHERE id = ?`,
		avg.Float64, count, now, rating.RoomID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update room aggregate: %w", err)
	}

	room, err := db.getRoomTx(tx, rating.RoomID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit rating: %w", err)
	}

	rating.ID = id
	rating.CreatedAt = now
	return room, nil
}

// GetRoomRatings returns the individual ratings for a room, newest first.
func (db *DB) GetRoomRatings(ctx context.Context, roomID int64) ([]models.Rating, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, user_id, room_id, booking_id, rating, created_at
		 FROM ratings WHERE room_id = ? ORDER BY created_at DESC`, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ratings: %w", err)
	}
	defer rows.Close()

	var ratings []models.Rating
	for rows.Next() {
		var r models.Rating
		if err := rows.Scan(&r.ID, &r.UserID, &r.RoomID, &r.BookingID, &r.Rating, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		ratings = append(ratings, r)
	}
	return ratings, rows.Err()
}
