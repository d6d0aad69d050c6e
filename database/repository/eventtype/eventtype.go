package eventtypeRepo

import (
	"context"
	"errors"

	"schedly/models"
)

// Sentinel errors shared by all implementations.
var (
	ErrNotFound      = errors.New("event type not found")
	ErrDuplicateSlug = errors.New("slug already in use for this host")
)

// Repository stores event-type configuration. Slug is unique per host.
type Repository interface {
	Create(ctx context.Context, et *models.EventType) error
	GetByID(ctx context.Context, id string) (*models.EventType, error)
	GetBySlug(ctx context.Context, hostID, slug string) (*models.EventType, error)
	ListByHost(ctx context.Context, hostID string) ([]models.EventType, error)
	Update(ctx context.Context, et *models.EventType) error
	// Deactivate soft-deletes the event type so it stops accepting bookings.
	Deactivate(ctx context.Context, id string) error
}
