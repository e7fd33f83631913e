// Package reservation drives the booking flow: Start validates the request
// and opens a payment order, Confirm captures the payment and commits the
// reservation atomically.
package reservation

import (
	"context"
	"fmt"
	"time"

	"stayd/internal/availability"
	"stayd/internal/capacity"
	"stayd/internal/database"
	"stayd/internal/domain"
	"stayd/internal/events"
	"stayd/internal/metrics"
	"stayd/internal/models"

	"github.com/rs/zerolog"
)

type Config struct {
	MaxAdvanceDays    int
	DraftTTL          time.Duration
	RateLimitAttempts int
	RateLimitWindow   time.Duration
	Currency          string
}

type Workflow struct {
	store    domain.Store
	states   domain.StateRepository
	gateway  domain.PaymentGateway
	eventBus domain.EventPublisher
	notify   domain.NotifyWorker
	cfg      Config
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewWorkflow(store domain.Store, states domain.StateRepository, gateway domain.PaymentGateway, eventBus domain.EventPublisher, notify domain.NotifyWorker, cfg Config, logger *zerolog.Logger) *Workflow {
	if cfg.MaxAdvanceDays <= 0 {
		cfg.MaxAdvanceDays = models.MaxAdvanceDays
	}
	if cfg.DraftTTL <= 0 {
		cfg.DraftTTL = models.DefaultDraftTTL
	}
	if cfg.RateLimitAttempts <= 0 {
		cfg.RateLimitAttempts = models.RateLimitAttempts
	}
	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = models.RateLimitWindow * time.Second
	}
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	return &Workflow{
		store:    store,
		states:   states,
		gateway:  gateway,
		eventBus: eventBus,
		notify:   notify,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// StartRequest is the guest-facing booking form.
type StartRequest struct {
	UserID          string
	RoomID          int64
	FullName        string
	Email           string
	Address         string
	ContactNumber   string
	SpecialRequests string
	CheckIn         time.Time
	CheckOut        time.Time
}

// StartResult carries the payment order the guest must approve.
type StartResult struct {
	OrderID string
	Amount  float64
}

func (r StartRequest) validate() error {
	if r.UserID == "" {
		return database.ErrUnauthenticated
	}
	if r.RoomID == 0 {
		return fmt.Errorf("%w: room id is required", database.ErrValidation)
	}
	if r.FullName == "" {
		return fmt.Errorf("%w: full name is required", database.ErrValidation)
	}
	if r.ContactNumber == "" {
		return fmt.Errorf("%w: contact number is required", database.ErrValidation)
	}
	return nil
}

// Start validates the booking request against the current booking set and
// opens a payment order. The availability verdict here is advisory; the
// binding check happens again inside CommitReservation.
func (w *Workflow) Start(ctx context.Context, req StartRequest) (*StartResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	allowed, err := w.states.CheckRateLimit(ctx, req.UserID, w.cfg.RateLimitAttempts, w.cfg.RateLimitWindow)
	if err != nil {
		w.logger.Error().Err(err).Str("user_id", req.UserID).Msg("rate limit check failed")
	} else if !allowed {
		metrics.IncReservationRejected("rate_limited")
		return nil, database.ErrRateLimited
	}

	today := availability.Normalize(w.now())
	checkIn := availability.Normalize(req.CheckIn)
	checkOut := availability.Normalize(req.CheckOut)

	switch availability.CheckDates(today, checkIn, checkOut) {
	case availability.ReasonPastDate:
		metrics.IncReservationRejected("past_date")
		return nil, database.ErrPastDate
	case availability.ReasonInvertedRange:
		metrics.IncReservationRejected("inverted_range")
		return nil, database.ErrInvertedRange
	}
	if checkIn.After(today.AddDate(0, 0, w.cfg.MaxAdvanceDays)) {
		metrics.IncReservationRejected("date_too_far")
		return nil, database.ErrDateTooFar
	}

	room, err := w.store.GetRoom(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}
	if room.Status == models.RoomStatusMaintenance {
		metrics.IncReservationRejected("maintenance")
		return nil, database.ErrMaintenance
	}
	if room.FreeSlots() <= 0 {
		metrics.IncReservationRejected("capacity")
		return nil, capacity.ErrCapacityExceeded
	}

	active, err := w.store.GetActiveBookings(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}
	if availability.Conflicts(checkIn, checkOut, active) == availability.ReasonOverlap {
		metrics.IncReservationRejected("overlap")
		return nil, database.ErrOverlap
	}

	amount := availability.TotalAmount(checkIn, checkOut, room.Price)
	description := fmt.Sprintf("%s, %s to %s", room.Name, checkIn.Format(models.DateLayout), checkOut.Format(models.DateLayout))

	orderID, err := w.gateway.CreateOrder(ctx, amount, w.cfg.Currency, description)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", database.ErrPaymentFailed, err)
	}

	draft := &models.ReservationDraft{
		OrderID:         orderID,
		UserID:          req.UserID,
		RoomID:          room.ID,
		RoomName:        room.Name,
		RoomImage:       room.ImageURL,
		FullName:        req.FullName,
		Email:           req.Email,
		Address:         req.Address,
		ContactNumber:   req.ContactNumber,
		SpecialRequests: req.SpecialRequests,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		Amount:          amount,
		Step:            models.DraftStepAwaitingPayment,
		CreatedAt:       w.now(),
	}
	if err := w.states.SetDraft(ctx, draft, w.cfg.DraftTTL); err != nil {
		return nil, fmt.Errorf("failed to store reservation draft: %w", err)
	}

	w.logger.Info().
		Str("order_id", orderID).
		Str("user_id", req.UserID).
		Int64("room_id", room.ID).
		Float64("amount", amount).
		Msg("Reservation started")

	return &StartResult{OrderID: orderID, Amount: amount}, nil
}

// Confirm captures the payment order and commits the reservation. Replays of
// the same order id return the already committed booking.
func (w *Workflow) Confirm(ctx context.Context, orderID string) (*models.Booking, error) {
	if orderID == "" {
		return nil, fmt.Errorf("%w: order id is required", database.ErrValidation)
	}

	draft, err := w.states.GetDraft(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if draft == nil {
		// The draft may have expired after a successful commit; a replayed
		// confirmation is still answered from the authoritative store.
		if booking, err := w.store.GetBookingByPaymentID(ctx, orderID); err == nil {
			return booking, nil
		}
		return nil, database.ErrOrderNotFound
	}

	// A draft can also outlive a successful commit when clearing it failed.
	// The order cannot be captured a second time, so replays are answered
	// from the store before the gateway is touched again.
	if booking, err := w.store.GetBookingByPaymentID(ctx, orderID); err == nil {
		_ = w.states.ClearDraft(ctx, orderID)
		return booking, nil
	}

	result, err := w.gateway.CaptureOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", database.ErrPaymentFailed, err)
	}
	metrics.IncPaymentCaptured(result.Status)
	if result.Status != "COMPLETED" {
		_ = w.states.ClearDraft(ctx, orderID)
		w.logger.Warn().Str("order_id", orderID).Str("status", result.Status).Msg("Payment capture not completed")
		return nil, database.ErrPaymentFailed
	}

	booking := &models.Booking{
		UserID:          draft.UserID,
		RoomID:          draft.RoomID,
		RoomName:        draft.RoomName,
		RoomImage:       draft.RoomImage,
		FullName:        draft.FullName,
		Email:           draft.Email,
		Address:         draft.Address,
		ContactNumber:   draft.ContactNumber,
		SpecialRequests: draft.SpecialRequests,
		CheckIn:         draft.CheckIn,
		CheckOut:        draft.CheckOut,
		Status:          models.BookingStatusPending,
		PaymentStatus:   models.PaymentStatusPaid,
		PaymentID:       orderID,
		TotalAmount:     draft.Amount,
	}

	committed, err := w.store.CommitReservation(ctx, booking)
	if err != nil {
		return nil, w.reconcile(ctx, draft, orderID, err)
	}

	_ = w.states.ClearDraft(ctx, orderID)
	metrics.IncBookingCommitted()

	w.publishBookingEvent(events.EventBookingCommitted, committed, "guest")

	if w.notify != nil {
		if err := w.notify.EnqueueReceipt(ctx, committed); err != nil {
			w.logger.Error().Err(err).Int64("booking_id", committed.ID).Msg("receipt enqueue error")
		}
		if err := w.notify.EnqueueMirror(ctx, committed); err != nil {
			w.logger.Error().Err(err).Int64("booking_id", committed.ID).Msg("mirror enqueue error")
		}
	}

	w.logger.Info().
		Int64("booking_id", committed.ID).
		Str("order_id", orderID).
		Msg("Reservation committed")
	return committed, nil
}

// reconcile handles the window where money moved but the commit failed. The
// captured order cannot be captured again on a retry, so every commit failure
// at this point needs manual follow-up: the payment is kept, the failure is
// surfaced, and no refund is issued here.
func (w *Workflow) reconcile(ctx context.Context, draft *models.ReservationDraft, orderID string, cause error) error {
	metrics.IncReconciliationFailure()

	w.logger.Error().
		Err(cause).
		Str("order_id", orderID).
		Str("user_id", draft.UserID).
		Int64("room_id", draft.RoomID).
		Float64("amount", draft.Amount).
		Msg("Payment captured but reservation could not be committed")

	if w.eventBus != nil {
		payload := events.ReconciliationPayload{
			PaymentID: orderID,
			UserID:    draft.UserID,
			RoomID:    draft.RoomID,
			Amount:    draft.Amount,
			Reason:    cause.Error(),
		}
		if err := w.eventBus.PublishJSON(events.EventReconciliationFailed, payload); err != nil {
			w.logger.Error().Err(err).Str("order_id", orderID).Msg("publish event error")
		}
	}

	_ = w.states.ClearDraft(ctx, orderID)
	return fmt.Errorf("%w: %v", database.ErrReconciliation, cause)
}

// Approve moves a pending booking to Approved.
func (w *Workflow) Approve(ctx context.Context, bookingID, version int64, changedBy string) error {
	if err := w.store.ApproveBooking(ctx, bookingID, version); err != nil {
		return err
	}

	booking, err := w.store.GetBooking(ctx, bookingID)
	if err == nil {
		w.publishBookingEvent(events.EventBookingApproved, booking, changedBy)
		w.enqueueStatusMirror(ctx, booking)
	}
	return nil
}

// Cancel releases an active booking's capacity slot and marks it Cancelled.
func (w *Workflow) Cancel(ctx context.Context, bookingID, version int64, changedBy string) error {
	if err := w.store.ReleaseBooking(ctx, bookingID, version, models.BookingStatusCancelled); err != nil {
		return err
	}

	booking, err := w.store.GetBooking(ctx, bookingID)
	if err == nil {
		w.publishBookingEvent(events.EventBookingCancelled, booking, changedBy)
		w.enqueueStatusMirror(ctx, booking)
	}
	return nil
}

// Complete marks a finished stay Completed and releases its capacity slot,
// making the booking eligible for rating.
func (w *Workflow) Complete(ctx context.Context, bookingID, version int64, changedBy string) error {
	if err := w.store.ReleaseBooking(ctx, bookingID, version, models.BookingStatusCompleted); err != nil {
		return err
	}

	booking, err := w.store.GetBooking(ctx, bookingID)
	if err == nil {
		w.publishBookingEvent(events.EventBookingCompleted, booking, changedBy)
		w.enqueueStatusMirror(ctx, booking)
	}
	return nil
}

// CheckAvailability answers the advisory read-path query for one room.
func (w *Workflow) CheckAvailability(ctx context.Context, roomID int64, checkIn, checkOut time.Time) (availability.Reason, error) {
	room, err := w.store.GetRoom(ctx, roomID)
	if err != nil {
		return "", err
	}
	if room.Status == models.RoomStatusMaintenance || room.FreeSlots() <= 0 {
		return availability.ReasonOverlap, nil
	}

	active, err := w.store.GetActiveBookings(ctx, roomID)
	if err != nil {
		return "", err
	}
	return availability.Check(w.now(), checkIn, checkOut, active), nil
}

func (w *Workflow) publishBookingEvent(eventType string, booking *models.Booking, changedBy string) {
	if w.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID: booking.ID,
		UserID:    booking.UserID,
		RoomID:    booking.RoomID,
		RoomName:  booking.RoomName,
		Status:    booking.Status,
		CheckIn:   booking.CheckIn,
		CheckOut:  booking.CheckOut,
		PaymentID: booking.PaymentID,
		Amount:    booking.TotalAmount,
		ChangedBy: changedBy,
	}

	if err := w.eventBus.PublishJSON(eventType, payload); err != nil {
		w.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}

func (w *Workflow) enqueueStatusMirror(ctx context.Context, booking *models.Booking) {
	if w.notify == nil {
		return
	}
	if err := w.notify.EnqueueMirrorStatus(ctx, booking.ID, booking.Status); err != nil {
		w.logger.Error().Err(err).Int64("booking_id", booking.ID).Msg("mirror enqueue error")
	}
}
