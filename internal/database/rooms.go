package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"stayd/internal/capacity"
	"stayd/internal/models"
)

const roomColumns = `id, name, type, bed_type, view, floor, capacity, price, amenities,
                     description, image_url, max_bookings, current_bookings, status,
                     average_rating, number_of_ratings, created_at, updated_at`

type roomScanner interface {
	Scan(dest ...interface{}) error
}

func scanRoom(row roomScanner) (*models.Room, error) {
	var room models.Room
	var amenitiesRaw string
	err := row.Scan(
		&room.ID, &room.Name, &room.Type, &room.BedType, &room.View, &room.Floor,
		&room.Capacity, &room.Price, &amenitiesRaw, &room.Description, &room.ImageURL,
		&room.MaxBookings, &room.CurrentBookings, &room.Status,
		&room.AverageRating, &room.NumberOfRatings, &room.CreatedAt, &room.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(amenitiesRaw), &room.Amenities); err != nil {
		return nil, fmt.Errorf("malformed amenities for room %d: %w", room.ID, err)
	}
	// Malformed documents are rejected here, not silently defaulted.
	if err := room.Validate(); err != nil {
		return nil, fmt.Errorf("malformed room record %d: %w", room.ID, err)
	}
	return &room, nil
}

func (db *DB) CreateRoom(ctx context.Context, room *models.Room) error {
	if room.Status == "" {
		room.Status = models.RoomStatusAvailable
	}
	if err := room.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	amenities, err := json.Marshal(room.Amenities)
	if err != nil {
		return fmt.Errorf("failed to encode amenities: %w", err)
	}
	if room.Amenities == nil {
		amenities = []byte("[]")
	}

	query := `INSERT INTO rooms (
				name, type, bed_type, view, floor, capacity, price, amenities,
				description, image_url, max_bookings, current_bookings, status,
				average_rating, number_of_ratings, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		room.Name, room.Type, room.BedType, room.View, room.Floor,
		room.Capacity, room.Price, string(amenities), room.Description, room.ImageURL,
		room.MaxBookings, room.CurrentBookings, room.Status,
		room.AverageRating, room.NumberOfRatings, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	room.ID = id
	room.CreatedAt = now
	room.UpdatedAt = now
	return nil
}

func (db *DB) GetRoom(ctx context.Context, id int64) (*models.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE id = ?`
	room, err := scanRoom(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return room, nil
}

func (db *DB) getRoomTx(tx *sql.Tx, id int64) (*models.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE id = ?`
	room, err := scanRoom(tx.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room in tx: %w", err)
	}
	return room, nil
}

func (db *DB) GetRoomByName(ctx context.Context, name string) (*models.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE name = ?`
	room, err := scanRoom(db.QueryRowContext(ctx, query, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room by name: %w", err)
	}
	return room, nil
}

func (db *DB) ListRooms(ctx context.Context) ([]models.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms ORDER BY floor, name`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer rows.Close()

	var rooms []models.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, *room)
	}
	return rooms, rows.Err()
}

// UpdateRoom rewrites the administrative fields of a room. Capacity counters
// are deliberately excluded; they change only through reservation commits and
// releases.
func (db *DB) UpdateRoom(ctx context.Context, room *models.Room) error {
	amenities, err := json.Marshal(room.Amenities)
	if err != nil {
		return fmt.Errorf("failed to encode amenities: %w", err)
	}

	query := `UPDATE rooms SET name = ?, type = ?, bed_type = ?, view = ?, floor = ?,
	                           capacity = ?, price = ?, amenities = ?, description = ?,
	                           image_url = ?, max_bookings = ?, status = ?, updated_at = ?
	          WHERE id = ?`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		room.Name, room.Type, room.BedType, room.View, room.Floor,
		room.Capacity, room.Price, string(amenities), room.Description,
		room.ImageURL, room.MaxBookings, room.Status, now, room.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update room: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrRoomNotFound
	}
	room.UpdatedAt = now
	return nil
}

// DeleteRoom removes a room. Bookings are left in place on purpose: they
// carry a denormalized room name and image snapshot.
func (db *DB) DeleteRoom(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// SeedRooms inserts catalog entries that do not exist yet, matching by name.
// Existing rooms are never overwritten: their counters are live state.
func (db *DB) SeedRooms(ctx context.Context, rooms []models.Room) error {
	for i := range rooms {
		room := rooms[i]
		_, err := db.GetRoomByName(ctx, room.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrRoomNotFound) {
			return err
		}
		if err := db.CreateRoom(ctx, &room); err != nil {
			return fmt.Errorf("failed to seed room %q: %w", room.Name, err)
		}
	}
	return nil
}

// applyCapacityIntent performs the compare-and-swap on current_bookings that
// serializes concurrent reservations. RowsAffected == 0 means another writer
// got there first.
func applyCapacityIntent(tx *sql.Tx, intent capacity.Intent) error {
	query := `UPDATE rooms SET current_bookings = ?, status = ?, updated_at = ?
	          WHERE id = ? AND current_bookings = ?`
	result, err := tx.Exec(query, intent.ToBookings, intent.Status, time.Now(), intent.RoomID, intent.FromBookings)
	if err != nil {
		return fmt.Errorf("failed to apply capacity intent: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return ErrConcurrentModification
	}
	return nil
}
