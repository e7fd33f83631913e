package models

import (
	"fmt"
	"time"
)

type Booking struct {
	ID              int64     `json:"id"`
	UserID          string    `json:"user_id"`
	RoomID          int64     `json:"room_id"`
	RoomName        string    `json:"room_name"`
	RoomImage       string    `json:"room_image"`
	FullName        string    `json:"full_name"`
	Email           string    `json:"email"`
	Address         string    `json:"address"`
	ContactNumber   string    `json:"contact_number"`
	SpecialRequests string    `json:"special_requests"`
	CheckIn         time.Time `json:"check_in"`
	CheckOut        time.Time `json:"check_out"`
	Status          string    `json:"status"`
	PaymentStatus   string    `json:"payment_status"`
	PaymentID       string    `json:"payment_id"`
	TotalAmount     float64   `json:"total_amount"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Version         int64     `json:"version"`
}

// Validate rejects malformed booking records at the store boundary.
func (b *Booking) Validate() error {
	if b.UserID == "" {
		return fmt.Errorf("booking user_id is required")
	}
	if b.RoomID == 0 {
		return fmt.Errorf("booking room_id is required")
	}
	if !b.CheckOut.After(b.CheckIn) {
		return fmt.Errorf("check_out %s must be after check_in %s",
			b.CheckOut.Format(DateLayout), b.CheckIn.Format(DateLayout))
	}
	switch b.Status {
	case BookingStatusPending, BookingStatusApproved, BookingStatusCompleted, BookingStatusCancelled:
	default:
		return fmt.Errorf("unknown booking status %q", b.Status)
	}
	switch b.PaymentStatus {
	case PaymentStatusPaid:
		if b.PaymentID == "" {
			return fmt.Errorf("paid booking requires payment_id")
		}
	case PaymentStatusUnpaid:
		if b.PaymentID != "" {
			return fmt.Errorf("unpaid booking must not carry payment_id %q", b.PaymentID)
		}
	default:
		return fmt.Errorf("unknown payment status %q", b.PaymentStatus)
	}
	if b.TotalAmount < 0 {
		return fmt.Errorf("total_amount must not be negative, got %v", b.TotalAmount)
	}
	return nil
}

// IsActive reports whether the booking consumes a capacity slot.
func (b *Booking) IsActive() bool {
	return IsActiveBookingStatus(b.Status)
}
