package reservation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"testing"
	"time"

	"stayd/internal/availability"
	"stayd/internal/capacity"
	"stayd/internal/database"
	"stayd/internal/events"
	"stayd/internal/models"
	"stayd/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	orders        int
	createErr     error
	captureErr    error
	captureStatus string
	captured      []string
}

func (g *fakeGateway) CreateOrder(ctx context.Context, amount float64, currency, description string) (string, error) {
	if g.createErr != nil {
		return "", g.createErr
	}
	g.orders++
	return fmt.Sprintf("ORDER-%d", g.orders), nil
}

func (g *fakeGateway) CaptureOrder(ctx context.Context, orderID string) (*models.CaptureResult, error) {
	if g.captureErr != nil {
		return nil, g.captureErr
	}
	g.captured = append(g.captured, orderID)
	status := g.captureStatus
	if status == "" {
		status = "COMPLETED"
	}
	return &models.CaptureResult{Status: status, TransactionID: "TXN-" + orderID}, nil
}

type fakeNotify struct {
	receipts int
	mirrors  int
	statuses []string
}

func (n *fakeNotify) EnqueueReceipt(ctx context.Context, booking *models.Booking) error {
	n.receipts++
	return nil
}

func (n *fakeNotify) EnqueueMirror(ctx context.Context, booking *models.Booking) error {
	n.mirrors++
	return nil
}

func (n *fakeNotify) EnqueueMirrorStatus(ctx context.Context, bookingID int64, status string) error {
	n.statuses = append(n.statuses, status)
	return nil
}

type testEnv struct {
	workflow *Workflow
	db       *database.DB
	states   *repository.MemoryStateRepository
	gateway  *fakeGateway
	notify   *fakeNotify
	bus      *events.EventBus
	today    time.Time
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()
	logger := zerolog.New(io.Discard)
	path := filepath.Join(t.TempDir(), "reservation.db")
	db, err := database.NewDB(path, &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	env := &testEnv{
		db:      db,
		states:  repository.NewMemoryStateRepository(time.Hour),
		gateway: &fakeGateway{},
		notify:  &fakeNotify{},
		bus:     events.NewEventBus(),
		today:   time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	env.workflow = NewWorkflow(db, env.states, env.gateway, env.bus, env.notify, cfg, &logger)
	env.workflow.now = func() time.Time { return env.today }
	return env
}

func (e *testEnv) createRoom(t *testing.T, name string, maxBookings int) *models.Room {
	t.Helper()
	room := &models.Room{
		Name:        name,
		Price:       180,
		MaxBookings: maxBookings,
		Status:      models.RoomStatusAvailable,
	}
	require.NoError(t, e.db.CreateRoom(context.Background(), room))
	return room
}

func validRequest(roomID int64) StartRequest {
	return StartRequest{
		UserID:        "user-1",
		RoomID:        roomID,
		FullName:      "Test Guest",
		Email:         "guest@example.com",
		ContactNumber: "+100",
		CheckIn:       time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC),
		CheckOut:      time.Date(2026, 6, 12, 0, 0, 0, 0, time.UTC),
	}
}

func TestStartValidation(t *testing.T) {
	env := newTestEnv(t, Config{})
	room := env.createRoom(t, "Deluxe King 101", 2)
	ctx := context.Background()

	t.Run("MissingUser", func(t *testing.T) {
		req := validRequest(room.ID)
		req.UserID = ""
		_, err := env.workflow.Start(ctx, req)
		assert.ErrorIs(t, err, database.ErrUnauthenticated)
	})

	t.Run("MissingRoom", func(t *testing.T) {
		req := validRequest(room.ID)
		req.RoomID = 0
		_, err := env.workflow.Start(ctx, req)
		assert.ErrorIs(t, err, database.ErrValidation)
	})

	t.Run("MissingFullName", func(t *testing.T) {
		req := validRequest(room.ID)
		req.FullName = ""
		_, err := env.workflow.Start(ctx, req)
		assert.ErrorIs(t, err, database.ErrValidation)
	})

	t.Run("MissingContact", func(t *testing.T) {
		req := validRequest(room.ID)
		req.ContactNumber = ""
		_, err := env.workflow.Start(ctx, req)
		assert.ErrorIs(t, err, database.ErrValidation)
	})
}

func TestStartDateChecks(t *testing.T) {
	env := newTestEnv(t, Config{MaxAdvanceDays: 30})
	room := env.createRoom(t, "Deluxe King 101", 2)
	ctx := context.Background()

	t.Run("PastDate", func(t *testing.T) {
		req := validRequest(room.ID)
		req.CheckIn = env.today.AddDate(0, 0, -1)
		_, err := env.workflow.Start(ctx, req)
		assert.ErrorIs(t, err, database.ErrPastDate)
	})

	t.Run("InvertedRange", func(t *testing.T) {
		req := validRequest(room.ID)
		req.CheckIn = env.today.AddDate(0, 0, 5)
		req.CheckOut = env.today.AddDate(0, 0, 3)
		_, err := env.workflow.Start(ctx, req)
		assert.ErrorIs(t, err, database.ErrInvertedRange)
	})

	t.Run("TooFarAhead", func(t *testing.T) {
		req := validRequest(room.ID)
		req.CheckIn = env.today.AddDate(0, 0, 31)
		req.CheckOut = env.today.AddDate(0, 0, 33)
		_, err := env.workflow.Start(ctx, req)
		assert.ErrorIs(t, err, database.ErrDateTooFar)
	})
}

func TestStartRoomChecks(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()

	t.Run("RoomNotFound", func(t *testing.T) {
		_, err := env.workflow.Start(ctx, validRequest(9999))
		assert.ErrorIs(t, err, database.ErrRoomNotFound)
	})

	t.Run("Maintenance", func(t *testing.T) {
		room := env.createRoom(t, "Workshop", 2)
		room.Status = models.RoomStatusMaintenance
		require.NoError(t, env.db.UpdateRoom(ctx, room))

		_, err := env.workflow.Start(ctx, validRequest(room.ID))
		assert.ErrorIs(t, err, database.ErrMaintenance)
	})

	t.Run("NoFreeSlots", func(t *testing.T) {
		room := env.createRoom(t, "Tiny", 1)
		res, err := env.workflow.Start(ctx, validRequest(room.ID))
		require.NoError(t, err)
		_, err = env.workflow.Confirm(ctx, res.OrderID)
		require.NoError(t, err)

		req := validRequest(room.ID)
		req.CheckIn = env.today.AddDate(0, 0, 20)
		req.CheckOut = env.today.AddDate(0, 0, 22)
		_, err = env.workflow.Start(ctx, req)
		assert.ErrorIs(t, err, capacity.ErrCapacityExceeded)
	})

	t.Run("Overlap", func(t *testing.T) {
		room := env.createRoom(t, "Busy", 2)
		res, err := env.workflow.Start(ctx, validRequest(room.ID))
		require.NoError(t, err)
		_, err = env.workflow.Confirm(ctx, res.OrderID)
		require.NoError(t, err)

		_, err = env.workflow.Start(ctx, validRequest(room.ID))
		assert.ErrorIs(t, err, database.ErrOverlap)
	})
}

func TestStartRateLimited(t *testing.T) {
	env := newTestEnv(t, Config{RateLimitAttempts: 1, RateLimitWindow: time.Minute})
	room := env.createRoom(t, "Deluxe King 101", 2)
	ctx := context.Background()

	_, err := env.workflow.Start(ctx, validRequest(room.ID))
	require.NoError(t, err)

	_, err = env.workflow.Start(ctx, validRequest(room.ID))
	assert.ErrorIs(t, err, database.ErrRateLimited)
}

func TestStartPaymentFailure(t *testing.T) {
	env := newTestEnv(t, Config{})
	room := env.createRoom(t, "Deluxe King 101", 2)
	env.gateway.createErr = errors.New("gateway down")

	_, err := env.workflow.Start(context.Background(), validRequest(room.ID))
	assert.ErrorIs(t, err, database.ErrPaymentFailed)
}

func TestStartCreatesDraft(t *testing.T) {
	env := newTestEnv(t, Config{})
	room := env.createRoom(t, "Deluxe King 101", 2)
	ctx := context.Background()

	res, err := env.workflow.Start(ctx, validRequest(room.ID))
	require.NoError(t, err)
	assert.Equal(t, "ORDER-1", res.OrderID)
	assert.Equal(t, 360.0, res.Amount) // 2 nights at 180

	draft, err := env.states.GetDraft(ctx, res.OrderID)
	require.NoError(t, err)
	require.NotNil(t, draft)
	assert.Equal(t, "user-1", draft.UserID)
	assert.Equal(t, room.ID, draft.RoomID)
	assert.Equal(t, models.DraftStepAwaitingPayment, draft.Step)
}

func TestConfirm(t *testing.T) {
	env := newTestEnv(t, Config{})
	room := env.createRoom(t, "Deluxe King 101", 2)
	ctx := context.Background()

	var committedEvents int
	env.bus.Subscribe(events.EventBookingCommitted, func(_ *events.Event) error {
		committedEvents++
		return nil
	})

	res, err := env.workflow.Start(ctx, validRequest(room.ID))
	require.NoError(t, err)

	booking, err := env.workflow.Confirm(ctx, res.OrderID)
	require.NoError(t, err)
	assert.NotZero(t, booking.ID)
	assert.Equal(t, models.BookingStatusPending, booking.Status)
	assert.Equal(t, models.PaymentStatusPaid, booking.PaymentStatus)
	assert.Equal(t, res.OrderID, booking.PaymentID)
	assert.Equal(t, 360.0, booking.TotalAmount)

	assert.Equal(t, 1, committedEvents)
	assert.Equal(t, 1, env.notify.receipts)
	assert.Equal(t, 1, env.notify.mirrors)

	// The draft is consumed on success.
	draft, err := env.states.GetDraft(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Nil(t, draft)

	updated, err := env.db.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.CurrentBookings)
}

func TestConfirmUnknownOrder(t *testing.T) {
	env := newTestEnv(t, Config{})

	_, err := env.workflow.Confirm(context.Background(), "ORDER-MISSING")
	assert.ErrorIs(t, err, database.ErrOrderNotFound)
}

func TestConfirmEmptyOrder(t *testing.T) {
	env := newTestEnv(t, Config{})

	_, err := env.workflow.Confirm(context.Background(), "")
	assert.ErrorIs(t, err, database.ErrValidation)
}

func TestConfirmReplayedAfterCommit(t *testing.T) {
	env := newTestEnv(t, Config{})
	room := env.createRoom(t, "Deluxe King 101", 2)
	ctx := context.Background()

	res, err := env.workflow.Start(ctx, validRequest(room.ID))
	require.NoError(t, err)

	first, err := env.workflow.Confirm(ctx, res.OrderID)
	require.NoError(t, err)

	// The draft is gone; the replay is answered from the store.
	second, err := env.workflow.Confirm(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// No double slot consumption, no double notifications.
	updated, err := env.db.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.CurrentBookings)
	assert.Equal(t, 1, env.notify.receipts)
}

func TestConfirmReplayedWithLiveDraft(t *testing.T) {
	env := newTestEnv(t, Config{})
	room := env.createRoom(t, "Deluxe King 101", 2)
	ctx := context.Background()

	res, err := env.workflow.Start(ctx, validRequest(room.ID))
	require.NoError(t, err)

	draft, err := env.states.GetDraft(ctx, res.OrderID)
	require.NoError(t, err)
	require.NotNil(t, draft)

	first, err := env.workflow.Confirm(ctx, res.OrderID)
	require.NoError(t, err)

	// Put the draft back, as if clearing it after the commit had failed. The
	// replay must be answered from the store; a captured order cannot be
	// captured twice.
	require.NoError(t, env.states.SetDraft(ctx, draft, time.Hour))

	second, err := env.workflow.Confirm(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, []string{res.OrderID}, env.gateway.captured)

	// The stale draft is cleaned up and no slot is consumed twice.
	stale, err := env.states.GetDraft(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Nil(t, stale)

	updated, err := env.db.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.CurrentBookings)
}

func TestConfirmStoreFailureReconciled(t *testing.T) {
	env := newTestEnv(t, Config{})
	room := env.createRoom(t, "Deluxe King 101", 2)
	ctx := context.Background()

	var reconciliations []events.ReconciliationPayload
	env.bus.Subscribe(events.EventReconciliationFailed, func(e *events.Event) error {
		var p events.ReconciliationPayload
		require.NoError(t, json.Unmarshal(e.Payload, &p))
		reconciliations = append(reconciliations, p)
		return nil
	})

	res, err := env.workflow.Start(ctx, validRequest(room.ID))
	require.NoError(t, err)

	// The store dies between capture and commit. The capture went through, so
	// the failure must land in the reconciliation channel rather than leave
	// the paid order retrying against an already-captured payment.
	require.NoError(t, env.db.Close())

	_, err = env.workflow.Confirm(ctx, res.OrderID)
	assert.ErrorIs(t, err, database.ErrReconciliation)
	assert.Equal(t, []string{res.OrderID}, env.gateway.captured)

	require.Len(t, reconciliations, 1)
	assert.Equal(t, res.OrderID, reconciliations[0].PaymentID)

	draft, err := env.states.GetDraft(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Nil(t, draft)
}

func TestConfirmCaptureNotCompleted(t *testing.T) {
	env := newTestEnv(t, Config{})
	room := env.createRoom(t, "Deluxe King 101", 2)
	ctx := context.Background()

	res, err := env.workflow.Start(ctx, validRequest(room.ID))
	require.NoError(t, err)

	env.gateway.captureStatus = "DECLINED"
	_, err = env.workflow.Confirm(ctx, res.OrderID)
	assert.ErrorIs(t, err, database.ErrPaymentFailed)

	// No booking landed and the draft is discarded.
	draft, err := env.states.GetDraft(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Nil(t, draft)

	updated, err := env.db.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.CurrentBookings)
}

func TestConfirmReconciliation(t *testing.T) {
	env := newTestEnv(t, Config{})
	room := env.createRoom(t, "Tiny", 1)
	ctx := context.Background()

	var reconciliations []events.ReconciliationPayload
	env.bus.Subscribe(events.EventReconciliationFailed, func(e *events.Event) error {
		var p events.ReconciliationPayload
		require.NoError(t, json.Unmarshal(e.Payload, &p))
		reconciliations = append(reconciliations, p)
		return nil
	})

	// Two guests pass the advisory check for the same dates before either pays.
	first, err := env.workflow.Start(ctx, validRequest(room.ID))
	require.NoError(t, err)

	secondReq := validRequest(room.ID)
	secondReq.UserID = "user-2"
	second, err := env.workflow.Start(ctx, secondReq)
	require.NoError(t, err)

	_, err = env.workflow.Confirm(ctx, first.OrderID)
	require.NoError(t, err)

	// The loser's payment is captured, but the commit finds the dates taken.
	_, err = env.workflow.Confirm(ctx, second.OrderID)
	assert.ErrorIs(t, err, database.ErrReconciliation)

	require.Len(t, reconciliations, 1)
	assert.Equal(t, second.OrderID, reconciliations[0].PaymentID)
	assert.Equal(t, "user-2", reconciliations[0].UserID)

	// The loser's draft is cleared so the confirmation cannot loop.
	draft, err := env.states.GetDraft(ctx, second.OrderID)
	require.NoError(t, err)
	assert.Nil(t, draft)
}

func TestApproveCancelComplete(t *testing.T) {
	env := newTestEnv(t, Config{})
	room := env.createRoom(t, "Deluxe King 101", 2)
	ctx := context.Background()

	res, err := env.workflow.Start(ctx, validRequest(room.ID))
	require.NoError(t, err)
	booking, err := env.workflow.Confirm(ctx, res.OrderID)
	require.NoError(t, err)

	require.NoError(t, env.workflow.Approve(ctx, booking.ID, booking.Version, "admin"))

	got, err := env.db.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusApproved, got.Status)

	require.NoError(t, env.workflow.Complete(ctx, booking.ID, got.Version, "admin"))

	got, err = env.db.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCompleted, got.Status)

	assert.Equal(t, []string{models.BookingStatusApproved, models.BookingStatusCompleted}, env.notify.statuses)

	t.Run("CancelReleased", func(t *testing.T) {
		res, err := env.workflow.Start(ctx, validRequest(room.ID))
		require.NoError(t, err)
		booking, err := env.workflow.Confirm(ctx, res.OrderID)
		require.NoError(t, err)

		require.NoError(t, env.workflow.Cancel(ctx, booking.ID, booking.Version, "guest"))

		updated, err := env.db.GetRoom(ctx, room.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, updated.CurrentBookings)
	})
}

func TestCheckAvailability(t *testing.T) {
	env := newTestEnv(t, Config{})
	room := env.createRoom(t, "Deluxe King 101", 2)
	ctx := context.Background()

	checkIn := env.today.AddDate(0, 0, 9)
	checkOut := env.today.AddDate(0, 0, 11)

	t.Run("Free", func(t *testing.T) {
		reason, err := env.workflow.CheckAvailability(ctx, room.ID, checkIn, checkOut)
		require.NoError(t, err)
		assert.Equal(t, availability.ReasonOK, reason)
	})

	t.Run("Booked", func(t *testing.T) {
		res, err := env.workflow.Start(ctx, validRequest(room.ID))
		require.NoError(t, err)
		_, err = env.workflow.Confirm(ctx, res.OrderID)
		require.NoError(t, err)

		reason, err := env.workflow.CheckAvailability(ctx, room.ID, checkIn, checkOut)
		require.NoError(t, err)
		assert.Equal(t, availability.ReasonOverlap, reason)
	})

	t.Run("Maintenance", func(t *testing.T) {
		other := env.createRoom(t, "Workshop", 2)
		other.Status = models.RoomStatusMaintenance
		require.NoError(t, env.db.UpdateRoom(ctx, other))

		reason, err := env.workflow.CheckAvailability(ctx, other.ID, checkIn, checkOut)
		require.NoError(t, err)
		assert.Equal(t, availability.ReasonOverlap, reason)
	})

	t.Run("RoomNotFound", func(t *testing.T) {
		_, err := env.workflow.CheckAvailability(ctx, 9999, checkIn, checkOut)
		assert.ErrorIs(t, err, database.ErrRoomNotFound)
	})
}
