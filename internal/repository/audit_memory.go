package repository

import (
	"context"
	"sync"

	"github.com/kpidashboards/consultslt-backend/internal/domain"
)

type memoryAuditRepository struct {
	mu      sync.RWMutex
	entries []domain.AuditEntry
}

func NewMemoryAuditRepository() *memoryAuditRepository {
	return &memoryAuditRepository{}
}

func (r *memoryAuditRepository) Create(_ context.Context, entry domain.AuditEntry) (*domain.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, entry)
	saved := entry
	return &saved, nil
}

func (r *memoryAuditRepository) List(_ context.Context, limit, offset int) ([]domain.AuditEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// newest first
	var entries []domain.AuditEntry
	for i := len(r.entries) - 1; i >= 0; i-- {
		entries = append(entries, r.entries[i])
	}

	if offset > 0 {
		if offset >= len(entries) {
			return nil, nil
		}
		entries = entries[offset:]
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	return entries, nil
}

func (r *memoryAuditRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return int64(len(r.entries)), nil
}
