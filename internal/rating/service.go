// Package rating accepts guest ratings for completed stays and exposes the
// per-room aggregate maintained by the store.
package rating

import (
	"context"

	"stayd/internal/domain"
	"stayd/internal/events"
	"stayd/internal/metrics"
	"stayd/internal/models"

	"github.com/rs/zerolog"
)

type Service struct {
	store    domain.Store
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

func NewService(store domain.Store, eventBus domain.EventPublisher, logger *zerolog.Logger) *Service {
	return &Service{
		store:    store,
		eventBus: eventBus,
		logger:   logger,
	}
}

// Submit stores the rating and returns the room with its refreshed aggregate.
// One rating per booking; the store enforces the completed-stay rule.
func (s *Service) Submit(ctx context.Context, userID string, bookingID int64, value int) (*models.Room, error) {
	rating := &models.Rating{
		UserID:    userID,
		BookingID: bookingID,
		Rating:    value,
	}

	room, err := s.store.CreateRating(ctx, rating)
	if err != nil {
		return nil, err
	}

	metrics.IncRatingSubmitted()

	if s.eventBus != nil {
		payload := events.RatingEventPayload{
			RoomID:        room.ID,
			BookingID:     bookingID,
			Rating:        value,
			AverageRating: room.AverageRating,
			RatingCount:   room.NumberOfRatings,
		}
		if err := s.eventBus.PublishJSON(events.EventRatingSubmitted, payload); err != nil {
			s.logger.Error().Err(err).Int64("booking_id", bookingID).Msg("publish event error")
		}
	}

	s.logger.Info().
		Int64("room_id", room.ID).
		Int64("booking_id", bookingID).
		Int("rating", value).
		Float64("average", room.AverageRating).
		Msg("Rating submitted")
	return room, nil
}

// RoomRatings returns the individual ratings for a room.
func (s *Service) RoomRatings(ctx context.Context, roomID int64) ([]models.Rating, error) {
	return s.store.GetRoomRatings(ctx, roomID)
}
