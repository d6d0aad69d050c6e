package hostRepo

import (
	"context"
	"errors"

	"schedly/models"
)

// ErrNotFound means no host matched.
var ErrNotFound = errors.New("host not found")

// Repository stores hosts.
type Repository interface {
	Create(ctx context.Context, h *models.Host) error
	GetHostByID(ctx context.Context, id string) (*models.Host, error)
	GetHostByEmail(ctx context.Context, email string) (*models.Host, error)
}
