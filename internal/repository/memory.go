package repository

import (
	"context"
	"sync"
	"time"

	"stayd/internal/models"
)

type MemoryStateRepository struct {
	drafts     sync.Map
	rateLimits sync.Map
	ttl        time.Duration
}

func NewMemoryStateRepository(ttl time.Duration) *MemoryStateRepository {
	return &MemoryStateRepository{
		ttl: ttl,
	}
}

type draftEntry struct {
	draft     *models.ReservationDraft
	expiresAt time.Time
}

func (r *MemoryStateRepository) GetDraft(ctx context.Context, orderID string) (*models.ReservationDraft, error) {
	val, ok := r.drafts.Load(orderID)
	if !ok {
		return nil, nil
	}
	entry := val.(*draftEntry)
	if time.Now().After(entry.expiresAt) {
		r.drafts.Delete(orderID)
		return nil, nil
	}
	return entry.draft, nil
}

func (r *MemoryStateRepository) SetDraft(ctx context.Context, draft *models.ReservationDraft, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = r.ttl
	}
	r.drafts.Store(draft.OrderID, &draftEntry{draft: draft, expiresAt: time.Now().Add(ttl)})
	return nil
}

func (r *MemoryStateRepository) ClearDraft(ctx context.Context, orderID string) error {
	r.drafts.Delete(orderID)
	return nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemoryStateRepository) CheckRateLimit(ctx context.Context, userID string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	val, ok := r.rateLimits.Load(userID)

	var entry *rateLimitEntry
	if !ok {
		entry = &rateLimitEntry{
			count:     1,
			expiresAt: now.Add(window),
		}
	} else {
		entry = val.(*rateLimitEntry)
		if now.After(entry.expiresAt) {
			entry.count = 1
			entry.expiresAt = now.Add(window)
		} else {
			entry.count++
		}
	}

	r.rateLimits.Store(userID, entry)
	return entry.count <= limit, nil
}
