package models

import (
	"fmt"
	"time"
)

type Room struct {
	ID              int64     `json:"id" yaml:"id"`
	Name            string    `json:"name" yaml:"name"`
	Type            string    `json:"type" yaml:"type"`
	BedType         string    `json:"bed_type" yaml:"bed_type"`
	View            string    `json:"view" yaml:"view"`
	Floor           int       `json:"floor" yaml:"floor"`
	Capacity        int       `json:"capacity" yaml:"capacity"`
	Price           float64   `json:"price" yaml:"price"`
	Amenities       []string  `json:"amenities" yaml:"amenities"`
	Description     string    `json:"description" yaml:"description"`
	ImageURL        string    `json:"image_url" yaml:"image_url"`
	MaxBookings     int       `json:"max_bookings" yaml:"max_bookings"`
	CurrentBookings int       `json:"current_bookings" yaml:"current_bookings"`
	Status          string    `json:"status" yaml:"status"`
	AverageRating   float64   `json:"average_rating" yaml:"-"`
	NumberOfRatings int       `json:"number_of_ratings" yaml:"-"`
	CreatedAt       time.Time `json:"created_at" yaml:"-"`
	UpdatedAt       time.Time `json:"updated_at" yaml:"-"`
}

// Validate rejects malformed room records at the store boundary. Documents
// that would previously have been patched up with fallback defaults are
// treated as errors instead.
func (r *Room) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("room name is required")
	}
	if r.Price < 0 {
		return fmt.Errorf("room price must not be negative, got %v", r.Price)
	}
	if r.MaxBookings < 0 {
		return fmt.Errorf("max_bookings must not be negative, got %d", r.MaxBookings)
	}
	if r.CurrentBookings < 0 || r.CurrentBookings > r.MaxBookings {
		return fmt.Errorf("current_bookings %d out of range [0, %d]", r.CurrentBookings, r.MaxBookings)
	}
	switch r.Status {
	case RoomStatusAvailable, RoomStatusUnavailable, RoomStatusMaintenance:
	default:
		return fmt.Errorf("unknown room status %q", r.Status)
	}
	if r.Status == RoomStatusAvailable && r.MaxBookings > 0 && r.CurrentBookings == r.MaxBookings {
		return fmt.Errorf("room at full capacity must not be %q", RoomStatusAvailable)
	}
	if r.NumberOfRatings < 0 {
		return fmt.Errorf("number_of_ratings must not be negative, got %d", r.NumberOfRatings)
	}
	return nil
}

// FreeSlots returns the number of unconsumed capacity slots.
func (r *Room) FreeSlots() int {
	free := r.MaxBookings - r.CurrentBookings
	if free < 0 {
		return 0
	}
	return free
}
