package hostRepo

import (
	"context"
	"sync"

	"schedly/models"
)

// MemoryHostRepo is an in-memory Repository for tests.
type MemoryHostRepo struct {
	mu    sync.RWMutex
	hosts map[string]models.Host
}

// NewMemoryHostRepo returns an empty in-memory host store.
func NewMemoryHostRepo() *MemoryHostRepo {
	return &MemoryHostRepo{hosts: map[string]models.Host{}}
}

func (r *MemoryHostRepo) Create(_ context.Context, h *models.Host) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hosts[h.ID] = *h
	return nil
}

func (r *MemoryHostRepo) GetHostByID(_ context.Context, id string) (*models.Host, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.hosts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &h, nil
}

func (r *MemoryHostRepo) GetHostByEmail(_ context.Context, email string) (*models.Host, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, h := range r.hosts {
		if h.Email == email {
			out := h
			return &out, nil
		}
	}
	return nil, ErrNotFound
}
