package calendar

import (
	"context"
	"fmt"

	accountRepo "schedly/database/repository/account"
	"schedly/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Reconciler keeps the local calendar records in step with the provider's
// calendar list. Selection flags are host-controlled and survive reconciles.
type Reconciler struct {
	Accounts accountRepo.Repository
	Tokens   *TokenManager
	Client   *Client
	Logger   *zap.Logger
}

// NewReconciler wires a calendar reconciler.
func NewReconciler(accounts accountRepo.Repository, tokens *TokenManager, client *Client, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{Accounts: accounts, Tokens: tokens, Client: client, Logger: logger}
}

// Sync fetches the account's calendar list and upserts one local record per
// remote calendar. New calendars default to unselected.
func (r *Reconciler) Sync(ctx context.Context, account *models.ConnectedAccount) ([]models.Calendar, error) {
	token, err := r.Tokens.AccessToken(ctx, account)
	if err != nil {
		return nil, err
	}
	remote, err := r.Client.ListCalendars(ctx, account.ID, token)
	if err != nil {
		return nil, fmt.Errorf("error listing calendars for account %s: %w", account.ID, err)
	}

	for _, rc := range remote {
		cal := &models.Calendar{
			ID:                 uuid.NewString(),
			AccountID:          account.ID,
			HostID:             account.HostID,
			ExternalCalendarID: rc.ID,
			Summary:            rc.Summary,
			Writable:           rc.AccessRole == "owner" || rc.AccessRole == "writer",
		}
		if err := r.Accounts.UpsertCalendar(ctx, cal); err != nil {
			r.Logger.Warn("calendar upsert failed during reconcile",
				zap.String("accountId", account.ID),
				zap.String("externalCalendarId", rc.ID),
				zap.Error(err))
		}
	}

	cals, err := r.Accounts.ListCalendars(ctx, account.HostID)
	if err != nil {
		return nil, err
	}
	out := cals[:0]
	for _, c := range cals {
		if c.AccountID == account.ID {
			out = append(out, c)
		}
	}
	return out, nil
}
