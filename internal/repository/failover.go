package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"stayd/internal/domain"
	"stayd/internal/models"

	"github.com/rs/zerolog"
)

type FailoverStateRepository struct {
	primary  domain.StateRepository
	fallback domain.StateRepository
	logger   *zerolog.Logger
	isDown   atomic.Bool

	mu        sync.Mutex
	lastCheck time.Time
}

func NewFailoverStateRepository(primary, fallback domain.StateRepository, logger *zerolog.Logger) *FailoverStateRepository {
	return &FailoverStateRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverStateRepository) markDown() {
	r.isDown.Store(true)
	r.mu.Lock()
	r.lastCheck = time.Now()
	r.mu.Unlock()
}

// shouldProbe reports whether enough time passed to retry the primary and, if
// so, claims the probe slot so concurrent requests do not all hammer it.
func (r *FailoverStateRepository) shouldProbe() bool {
	if !r.isDown.Load() {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if time.Since(r.lastCheck) <= time.Minute {
		return false
	}
	r.lastCheck = time.Now()
	return true
}

func (r *FailoverStateRepository) GetDraft(ctx context.Context, orderID string) (*models.ReservationDraft, error) {
	if !r.isDown.Load() {
		draft, err := r.primary.GetDraft(ctx, orderID)
		if err == nil {
			return draft, nil
		}
		r.logger.Error().Err(err).Msg("Primary state repository failed, falling back to memory")
		r.markDown()
	}

	// Try to recover after 1 minute
	if r.shouldProbe() {
		draft, err := r.primary.GetDraft(ctx, orderID)
		if err == nil {
			r.isDown.Store(false)
			return draft, nil
		}
	}

	return r.fallback.GetDraft(ctx, orderID)
}

func (r *FailoverStateRepository) SetDraft(ctx context.Context, draft *models.ReservationDraft, ttl time.Duration) error {
	if !r.isDown.Load() {
		err := r.primary.SetDraft(ctx, draft, ttl)
		if err == nil {
			return nil
		}
		r.logger.Error().Err(err).Msg("Primary state repository failed, falling back to memory")
		r.markDown()
	}

	return r.fallback.SetDraft(ctx, draft, ttl)
}

func (r *FailoverStateRepository) ClearDraft(ctx context.Context, orderID string) error {
	if !r.isDown.Load() {
		err := r.primary.ClearDraft(ctx, orderID)
		if err == nil {
			return nil
		}
		r.logger.Error().Err(err).Msg("Primary state repository failed, falling back to memory")
		r.markDown()
	}

	return r.fallback.ClearDraft(ctx, orderID)
}

func (r *FailoverStateRepository) CheckRateLimit(ctx context.Context, userID string, limit int, window time.Duration) (bool, error) {
	if !r.isDown.Load() {
		allowed, err := r.primary.CheckRateLimit(ctx, userID, limit, window)
		if err == nil {
			return allowed, nil
		}
		r.logger.Error().Err(err).Msg("Primary state repository failed, falling back to memory")
		r.markDown()
	}

	return r.fallback.CheckRateLimit(ctx, userID, limit, window)
}
