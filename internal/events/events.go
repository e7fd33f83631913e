package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventBookingCommitted     = "booking_committed"
	EventBookingApproved      = "booking_approved"
	EventBookingCancelled     = "booking_cancelled"
	EventBookingCompleted     = "booking_completed"
	EventRatingSubmitted      = "rating_submitted"
	EventReconciliationFailed = "reservation_reconciliation_failed"
)

// BookingEventPayload describes the minimal booking snapshot for event consumers.
type BookingEventPayload struct {
	BookingID int64     `json:"booking_id"`
	UserID    string    `json:"user_id"`
	RoomID    int64     `json:"room_id"`
	RoomName  string    `json:"room_name"`
	Status    string    `json:"status"`
	CheckIn   time.Time `json:"check_in"`
	CheckOut  time.Time `json:"check_out"`
	PaymentID string    `json:"payment_id,omitempty"`
	Amount    float64   `json:"amount,omitempty"`
	ChangedBy string    `json:"changed_by,omitempty"`
}

// ReconciliationPayload marks a captured payment whose reservation could not
// be committed. Consumers route it to manual follow-up.
type ReconciliationPayload struct {
	PaymentID string  `json:"payment_id"`
	UserID    string  `json:"user_id"`
	RoomID    int64   `json:"room_id"`
	Amount    float64 `json:"amount"`
	Reason    string  `json:"reason"`
}

// RatingEventPayload describes a submitted rating and the refreshed aggregate.
type RatingEventPayload struct {
	RoomID        int64   `json:"room_id"`
	BookingID     int64   `json:"booking_id"`
	Rating        int     `json:"rating"`
	AverageRating float64 `json:"average_rating"`
	RatingCount   int     `json:"rating_count"`
}

// Event represents a lightweight domain event.
type Event struct {
	ID        int64
	Type      string
	Payload   []byte
	CreatedAt time.Time
	Processed bool
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}

// NewJSONEvent builds an Event with JSON payload for manual publishing.
func NewJSONEvent(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{Type: eventType, Payload: raw, CreatedAt: time.Now()}, nil
}
