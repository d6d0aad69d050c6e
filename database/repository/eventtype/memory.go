package eventtypeRepo

import (
	"context"
	"sync"
	"time"

	"schedly/models"
)

// MemoryEventTypeRepo is an in-memory Repository for tests.
type MemoryEventTypeRepo struct {
	mu    sync.RWMutex
	types map[string]models.EventType
}

// NewMemoryEventTypeRepo returns an empty in-memory event-type store.
func NewMemoryEventTypeRepo() *MemoryEventTypeRepo {
	return &MemoryEventTypeRepo{types: map[string]models.EventType{}}
}

func (r *MemoryEventTypeRepo) Create(_ context.Context, et *models.EventType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.types {
		if existing.HostID == et.HostID && existing.Slug == et.Slug {
			return ErrDuplicateSlug
		}
	}
	r.types[et.ID] = *et
	return nil
}

func (r *MemoryEventTypeRepo) GetByID(_ context.Context, id string) (*models.EventType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	et, ok := r.types[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &et, nil
}

func (r *MemoryEventTypeRepo) GetBySlug(_ context.Context, hostID, slug string) (*models.EventType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, et := range r.types {
		if et.HostID == hostID && et.Slug == slug {
			out := et
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryEventTypeRepo) ListByHost(_ context.Context, hostID string) ([]models.EventType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.EventType
	for _, et := range r.types {
		if et.HostID == hostID {
			out = append(out, et)
		}
	}
	return out, nil
}

func (r *MemoryEventTypeRepo) Update(_ context.Context, et *models.EventType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.types[et.ID]; !ok {
		return ErrNotFound
	}
	for id, existing := range r.types {
		if id != et.ID && existing.HostID == et.HostID && existing.Slug == et.Slug {
			return ErrDuplicateSlug
		}
	}
	et.UpdatedAt = time.Now().UTC()
	r.types[et.ID] = *et
	return nil
}

func (r *MemoryEventTypeRepo) Deactivate(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	et, ok := r.types[id]
	if !ok {
		return ErrNotFound
	}
	et.Active = false
	r.types[id] = et
	return nil
}
