package models

import "time"

// ReservationDraft is the workflow state of a reservation between the moment
// the guest submits the form and the moment payment capture is confirmed.
// Nothing is written to the authoritative store while a draft exists.
type ReservationDraft struct {
	OrderID         string    `json:"order_id"`
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
	Amount          float64   `json:"amount"`
	Step            string    `json:"step"`
	CreatedAt       time.Time `json:"created_at"`
}

// CaptureResult is the terminal outcome reported by the payment gateway for
// an order. Status is the gateway's raw status string; only a completed
// capture may commit a reservation.
type CaptureResult struct {
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
}
