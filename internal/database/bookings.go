package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"stayd/internal/capacity"
	"stayd/internal/models"
)

const bookingColumns = `id, user_id, room_id, room_name, room_image, full_name, email,
                        address, contact_number, special_requests, check_in, check_out,
                        status, payment_status, payment_id, total_amount,
                        created_at, updated_at, version`

func scanBooking(row roomScanner) (*models.Booking, error) {
	var b models.Booking
	var checkIn, checkOut string
	var paymentID sql.NullString
	err := row.Scan(
		&b.ID, &b.UserID, &b.RoomID, &b.RoomName, &b.RoomImage, &b.FullName, &b.Email,
		&b.Address, &b.ContactNumber, &b.SpecialRequests, &checkIn, &checkOut,
		&b.Status, &b.PaymentStatus, &paymentID, &b.TotalAmount,
		&b.CreatedAt, &b.UpdatedAt, &b.Version,
	)
	if err != nil {
		return nil, err
	}

	b.PaymentID = paymentID.String
	if b.CheckIn, err = time.Parse(models.DateLayout, checkIn); err != nil {
		return nil, fmt.Errorf("malformed check_in %q for booking %d: %w", checkIn, b.ID, err)
	}
	if b.CheckOut, err = time.Parse(models.DateLayout, checkOut); err != nil {
		return nil, fmt.Errorf("malformed check_out %q for booking %d: %w", checkOut, b.ID, err)
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("malformed booking record %d: %w", b.ID, err)
	}
	return &b, nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	b, err := scanBooking(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return b, nil
}

func (db *DB) GetBookingByPaymentID(ctx context.Context, paymentID string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE payment_id = ?`
	b, err := scanBooking(db.QueryRowContext(ctx, query, paymentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking by payment id: %w", err)
	}
	return b, nil
}

// GetActiveBookings returns the bookings that consume capacity slots for the
// room: status Pending Approval or Approved.
func (db *DB) GetActiveBookings(ctx context.Context, roomID int64) ([]models.Booking, error) {
	return db.QueryBookings(ctx, roomID, models.ActiveBookingStatuses())
}

// QueryBookings returns bookings for a room filtered by status. An empty
// status list means all statuses. roomID 0 means all rooms.
func (db *DB) QueryBookings(ctx context.Context, roomID int64, statuses []string) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings`
	var conds []string
	var args []interface{}

	if roomID != 0 {
		conds = append(conds, "room_id = ?")
		args = append(args, roomID)
	}
	if len(statuses) > 0 {
		placeholders := strings.Repeat("?, ", len(statuses))
		conds = append(conds, "status IN ("+placeholders[:len(placeholders)-2]+")")
		for _, s := range statuses {
			args = append(args, s)
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY check_in, created_at"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func (db *DB) GetUserBookings(ctx context.Context, userID string) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = ? ORDER BY created_at DESC`
	rows, err := db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user bookings: %w", err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func countOverlapping(tx *sql.Tx, roomID int64, checkIn, checkOut time.Time) (int, error) {
	// Half-open intervals: [check_in, check_out). ISO date strings compare
	// correctly as text.
	query := `SELECT COUNT(*) FROM bookings
	          WHERE room_id = ? AND status IN (?, ?)
	          AND check_in < ? AND ? < check_out`
	var count int
	err := tx.QueryRow(query, roomID,
		models.BookingStatusPending, models.BookingStatusApproved,
		checkOut.Format(models.DateLayout), checkIn.Format(models.DateLayout),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count overlapping bookings: %w", err)
	}
	return count, nil
}

// CommitReservation is the single serialization point of the booking flow.
// Inside one transaction it re-checks the payment id for idempotency, re-runs
// the overlap check against authoritative data, reserves a capacity slot via
// compare-and-swap and inserts the booking. Either everything lands or
// nothing does.
func (db *DB) CommitReservation(ctx context.Context, booking *models.Booking) (*models.Booking, error) {
	if booking.PaymentID == "" || booking.PaymentStatus != models.PaymentStatusPaid {
		return nil, fmt.Errorf("%w: reservation commit requires a captured payment", ErrValidation)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Replayed confirmation: the booking already landed, return it unchanged.
	existing, err := scanBooking(tx.QueryRow(
		`SELECT `+bookingColumns+` FROM bookings WHERE payment_id = ?`, booking.PaymentID))
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to check payment id in tx: %w", err)
	}

	room, err := db.getRoomTx(tx, booking.RoomID)
	if err != nil {
		return nil, err
	}
	if room.Status == models.RoomStatusMaintenance {
		return nil, ErrMaintenance
	}

	overlapping, err := countOverlapping(tx, booking.RoomID, booking.CheckIn, booking.CheckOut)
	if err != nil {
		return nil, err
	}
	if overlapping > 0 {
		return nil, ErrOverlap
	}

	intent, err := capacity.ReserveSlot(room)
	if err != nil {
		return nil, err
	}
	if err := applyCapacityIntent(tx, intent); err != nil {
		return nil, err
	}

	now := time.Now()
	query := `INSERT INTO bookings (
				user_id, room_id, room_name, room_image, full_name, email, address,
				contact_number, special_requests, check_in, check_out, status,
				payment_status, payment_id, total_amount, created_at, updated_at, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.Exec(query,
		booking.UserID, booking.RoomID, booking.RoomName, booking.RoomImage,
		booking.FullName, booking.Email, booking.Address, booking.ContactNumber,
		booking.SpecialRequests,
		booking.CheckIn.Format(models.DateLayout), booking.CheckOut.Format(models.DateLayout),
		booking.Status, booking.PaymentStatus, booking.PaymentID, booking.TotalAmount,
		now, now, 1,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert booking in tx: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id in tx: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit reservation: %w", err)
	}

	committed := *booking
	committed.ID = id
	committed.CreatedAt = now
	committed.UpdatedAt = now
	committed.Version = 1
	return &committed, nil
}

// ApproveBooking moves a Pending Approval booking to Approved. Both statuses
// are active, so capacity counters are untouched.
func (db *DB) ApproveBooking(ctx context.Context, id, fromVersion int64) error {
	query := `UPDATE bookings SET status = ?, version = version + 1, updated_at = ?
	          WHERE id = ? AND version = ? AND status = ?`
	result, err := db.ExecContext(ctx, query,
		models.BookingStatusApproved, time.Now(), id, fromVersion, models.BookingStatusPending)
	if err != nil {
		return fmt.Errorf("failed to approve booking: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}
	return nil
}

// ReleaseBooking moves an active booking to Cancelled or Completed and gives
// its capacity slot back, both inside one transaction.
func (db *DB) ReleaseBooking(ctx context.Context, id, fromVersion int64, newStatus string) error {
	if newStatus != models.BookingStatusCancelled && newStatus != models.BookingStatusCompleted {
		return fmt.Errorf("%w: release target status must be Cancelled or Completed, got %q", ErrValidation, newStatus)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	booking, err := scanBooking(tx.QueryRow(`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return ErrBookingNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get booking in tx: %w", err)
	}
	if !booking.IsActive() {
		return fmt.Errorf("%w: booking %d is %s, not active", ErrValidation, id, booking.Status)
	}

	query := `UPDATE bookings SET status = ?, version = version + 1, updated_at = ?
	          WHERE id = ? AND version = ?`
	result, err := tx.Exec(query, newStatus, time.Now(), id, fromVersion)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}

	room, err := db.getRoomTx(tx, booking.RoomID)
	if err != nil {
		// The room may have been deleted; the booking keeps its snapshot.
		if errors.Is(err, ErrRoomNotFound) {
			return tx.Commit()
		}
		return err
	}

	if err := applyCapacityIntent(tx, capacity.ReleaseSlot(room)); err != nil {
		return err
	}

	return tx.Commit()
}
