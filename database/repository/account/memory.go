package accountRepo

import (
	"context"
	"sync"
	"time"

	"schedly/models"
)

// MemoryAccountRepo is an in-memory Repository for tests.
type MemoryAccountRepo struct {
	mu        sync.RWMutex
	accounts  map[string]models.ConnectedAccount
	calendars map[string]models.Calendar
}

// NewMemoryAccountRepo returns an empty in-memory account store.
func NewMemoryAccountRepo() *MemoryAccountRepo {
	return &MemoryAccountRepo{
		accounts:  map[string]models.ConnectedAccount{},
		calendars: map[string]models.Calendar{},
	}
}

func (r *MemoryAccountRepo) UpsertAccount(_ context.Context, a *models.ConnectedAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, existing := range r.accounts {
		if existing.HostID == a.HostID && existing.ExternalIdentity == a.ExternalIdentity {
			a.ID = id
			r.accounts[id] = *a
			return nil
		}
	}
	r.accounts[a.ID] = *a
	return nil
}

func (r *MemoryAccountRepo) GetAccount(_ context.Context, id string) (*models.ConnectedAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (r *MemoryAccountRepo) ListValidAccounts(_ context.Context, hostID string) ([]models.ConnectedAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.ConnectedAccount
	for _, a := range r.accounts {
		if a.HostID == hostID && a.Valid {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *MemoryAccountRepo) SaveTokens(_ context.Context, accountID string, accessEnc, refreshEnc []byte, expiry time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[accountID]
	if !ok {
		return ErrNotFound
	}
	a.AccessTokenEnc = accessEnc
	if len(refreshEnc) > 0 {
		a.RefreshTokenEnc = refreshEnc
	}
	a.TokenExpiry = expiry
	r.accounts[accountID] = a
	return nil
}

func (r *MemoryAccountRepo) MarkInvalid(_ context.Context, accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[accountID]
	if !ok {
		return ErrNotFound
	}
	a.Valid = false
	r.accounts[accountID] = a
	return nil
}

func (r *MemoryAccountRepo) TouchSync(_ context.Context, accountID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[accountID]
	if !ok {
		return ErrNotFound
	}
	a.LastSyncAt = at
	r.accounts[accountID] = a
	return nil
}

func (r *MemoryAccountRepo) UpsertCalendar(_ context.Context, c *models.Calendar) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, existing := range r.calendars {
		if existing.AccountID == c.AccountID && existing.ExternalCalendarID == c.ExternalCalendarID {
			existing.Summary = c.Summary
			existing.Writable = c.Writable
			existing.HostID = c.HostID
			r.calendars[id] = existing
			return nil
		}
	}
	r.calendars[c.ID] = *c
	return nil
}

func (r *MemoryAccountRepo) GetCalendar(_ context.Context, id string) (*models.Calendar, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.calendars[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (r *MemoryAccountRepo) ListCalendars(_ context.Context, hostID string) ([]models.Calendar, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Calendar
	for _, c := range r.calendars {
		if c.HostID == hostID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *MemoryAccountRepo) ListCalendarsByIDs(_ context.Context, ids []string) ([]models.Calendar, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Calendar
	for _, id := range ids {
		if c, ok := r.calendars[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *MemoryAccountRepo) SetCalendarSelected(_ context.Context, id string, selected bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calendars[id]
	if !ok {
		return ErrNotFound
	}
	c.SelectedForBusy = selected
	r.calendars[id] = c
	return nil
}
