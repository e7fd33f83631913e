package models

import (
	"fmt"
	"time"
)

type Rating struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	RoomID    int64     `json:"room_id"`
	BookingID int64     `json:"booking_id"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
}

func (r *Rating) Validate() error {
	if r.UserID == "" {
		return fmt.Errorf("rating user_id is required")
	}
	if r.RoomID == 0 {
		return fmt.Errorf("rating room_id is required")
	}
	if r.BookingID == 0 {
		return fmt.Errorf("rating booking_id is required")
	}
	if r.Rating < 1 || r.Rating > 5 {
		return fmt.Errorf("rating must be between 1 and 5, got %d", r.Rating)
	}
	return nil
}
