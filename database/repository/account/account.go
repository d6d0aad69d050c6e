package accountRepo

import (
	"context"
	"errors"
	"time"

	"schedly/models"
)

// Sentinel errors shared by all implementations.
var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicateCalendar = errors.New("calendar already registered for this account")
)

// Repository stores connected calendar accounts and their calendars.
// Accounts flipped invalid are excluded from busy composition until the host
// re-consents.
type Repository interface {
	UpsertAccount(ctx context.Context, a *models.ConnectedAccount) error
	GetAccount(ctx context.Context, id string) (*models.ConnectedAccount, error)
	ListValidAccounts(ctx context.Context, hostID string) ([]models.ConnectedAccount, error)
	// SaveTokens persists freshly refreshed ciphertext before any request
	// uses the new token.
	SaveTokens(ctx context.Context, accountID string, accessEnc, refreshEnc []byte, expiry time.Time) error
	MarkInvalid(ctx context.Context, accountID string) error
	TouchSync(ctx context.Context, accountID string, at time.Time) error

	UpsertCalendar(ctx context.Context, c *models.Calendar) error
	GetCalendar(ctx context.Context, id string) (*models.Calendar, error)
	ListCalendars(ctx context.Context, hostID string) ([]models.Calendar, error)
	// ListCalendarsByIDs resolves calendar records for busy composition.
	ListCalendarsByIDs(ctx context.Context, ids []string) ([]models.Calendar, error)
	SetCalendarSelected(ctx context.Context, id string, selected bool) error
}
