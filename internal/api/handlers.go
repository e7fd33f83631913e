package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"stayd/internal/availability"
	"stayd/internal/capacity"
	"stayd/internal/database"
	"stayd/internal/models"
	"stayd/internal/reservation"
)

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleRooms(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rooms, err := s.store.ListRooms(r.Context())
		if err != nil {
			s.writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
	case http.MethodPost:
		var room models.Room
		if err := decodeBody(r, &room); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := s.store.CreateRoom(r.Context(), &room); err != nil {
			s.writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, room)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleRoomByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/rooms/")
	if sub, ok := strings.CutSuffix(rest, "/ratings"); ok {
		s.handleRoomRatings(w, r, sub)
		return
	}

	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		room, err := s.store.GetRoom(r.Context(), id)
		if err != nil {
			s.writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, room)
	case http.MethodPut:
		var room models.Room
		if err := decodeBody(r, &room); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		room.ID = id
		if err := s.store.UpdateRoom(r.Context(), &room); err != nil {
			s.writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, room)
	case http.MethodDelete:
		if err := s.store.DeleteRoom(r.Context(), id); err != nil {
			s.writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleRoomRatings(w http.ResponseWriter, r *http.Request, rawID string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}
	ratings, err := s.ratings.RoomRatings(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ratings": ratings})
}

func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rawID := strings.TrimPrefix(r.URL.Path, "/api/v1/availability/")
	roomID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}

	checkIn, err := parseDateParam(r, "check_in")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	checkOut, err := parseDateParam(r, "check_out")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reason, err := s.workflow.CheckAvailability(r.Context(), roomID, checkIn, checkOut)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"available": reason == availability.ReasonOK,
		"reason":    string(reason),
	})
}

func (s *HTTPServer) handleStartReservation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		UserID          string `json:"user_id"`
		RoomID          int64  `json:"room_id"`
		FullName        string `json:"full_name"`
		Email           string `json:"email"`
		Address         string `json:"address"`
		ContactNumber   string `json:"contact_number"`
		SpecialRequests string `json:"special_requests"`
		CheckIn         string `json:"check_in"`
		CheckOut        string `json:"check_out"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	checkIn, err := time.Parse(models.DateLayout, body.CheckIn)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid check_in; expected YYYY-MM-DD")
		return
	}
	checkOut, err := time.Parse(models.DateLayout, body.CheckOut)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid check_out; expected YYYY-MM-DD")
		return
	}

	result, err := s.workflow.Start(r.Context(), reservation.StartRequest{
		UserID:          body.UserID,
		RoomID:          body.RoomID,
		FullName:        body.FullName,
		Email:           body.Email,
		Address:         body.Address,
		ContactNumber:   body.ContactNumber,
		SpecialRequests: body.SpecialRequests,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
	})
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"order_id": result.OrderID,
		"amount":   result.Amount,
	})
}

func (s *HTTPServer) handleConfirmReservation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/reservations/")
	orderID, ok := strings.CutSuffix(rest, "/confirm")
	if !ok || orderID == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	booking, err := s.workflow.Confirm(r.Context(), orderID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var roomID int64
	if raw := strings.TrimSpace(r.URL.Query().Get("room_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid room_id")
			return
		}
		roomID = id
	}

	var statuses []string
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		statuses = strings.Split(raw, ",")
	}

	bookings, err := s.store.QueryBookings(r.Context(), roomID, statuses)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (s *HTTPServer) handleBookingByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/bookings/")

	for _, action := range []string{"approve", "cancel", "complete"} {
		if rawID, ok := strings.CutSuffix(rest, "/"+action); ok {
			s.handleBookingAction(w, r, rawID, action)
			return
		}
	}

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}
	booking, err := s.store.GetBooking(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleBookingAction(w http.ResponseWriter, r *http.Request, rawID, action string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	var body struct {
		Version   int64  `json:"version"`
		ChangedBy string `json:"changed_by"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.ChangedBy == "" {
		body.ChangedBy = "admin"
	}

	switch action {
	case "approve":
		err = s.workflow.Approve(r.Context(), id, body.Version, body.ChangedBy)
	case "cancel":
		err = s.workflow.Cancel(r.Context(), id, body.Version, body.ChangedBy)
	case "complete":
		err = s.workflow.Complete(r.Context(), id, body.Version, body.ChangedBy)
	}
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	booking, err := s.store.GetBooking(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleUserBookings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/users/")
	userID, ok := strings.CutSuffix(rest, "/bookings")
	if !ok || userID == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	bookings, err := s.store.GetUserBookings(r.Context(), userID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (s *HTTPServer) handleSubmitRating(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		UserID    string `json:"user_id"`
		BookingID int64  `json:"booking_id"`
		Rating    int    `json:"rating"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.UserID == "" {
		writeError(w, http.StatusUnauthorized, database.ErrUnauthenticated.Error())
		return
	}

	room, err := s.ratings.Submit(r.Context(), body.UserID, body.BookingID, body.Rating)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"average_rating":    room.AverageRating,
		"number_of_ratings": room.NumberOfRatings,
	})
}

func (s *HTTPServer) handleExportBookings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.exporter == nil {
		writeError(w, http.StatusNotImplemented, "exports are not configured")
		return
	}

	bookings, err := s.store.QueryBookings(r.Context(), 0, nil)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	path, err := s.exporter.ExportBookings(r.Context(), bookings)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"file": path})
}

func (s *HTTPServer) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, database.ErrRoomNotFound),
		errors.Is(err, database.ErrBookingNotFound),
		errors.Is(err, database.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrOverlap),
		errors.Is(err, database.ErrMaintenance),
		errors.Is(err, database.ErrDuplicateRating),
		errors.Is(err, database.ErrConcurrentModification),
		errors.Is(err, capacity.ErrCapacityExceeded):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, database.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, database.ErrPaymentFailed),
		errors.Is(err, database.ErrPaymentCancelled):
		writeError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, database.ErrReconciliation):
		// The money moved but the booking did not; the client must not retry
		// blindly.
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, database.ErrValidation),
		errors.Is(err, database.ErrPastDate),
		errors.Is(err, database.ErrInvertedRange),
		errors.Is(err, database.ErrDateTooFar):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error().Err(err).Msg("internal error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

var errInvalidJSON = errors.New("invalid JSON body")

func decodeBody(r *http.Request, out any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return errInvalidJSON
	}
	return nil
}

func parseDateParam(r *http.Request, name string) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return time.Time{}, errors.New(name + " is required")
	}
	date, err := time.Parse(models.DateLayout, raw)
	if err != nil {
		return time.Time{}, errors.New("invalid " + name + "; expected YYYY-MM-DD")
	}
	return date, nil
}
