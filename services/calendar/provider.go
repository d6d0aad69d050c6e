package calendar

import (
	"context"
	"sync"
	"time"

	accountRepo "schedly/database/repository/account"
	"schedly/models"
	"schedly/services/availability"

	"go.uber.org/zap"
)

// DefaultBusyProvider composes external free/busy data for the engine.
// Distinct accounts are queried concurrently with per-account failure
// isolation; calendars under the same account coalesce into one request.
type DefaultBusyProvider struct {
	Accounts accountRepo.Repository
	Tokens   *TokenManager
	Client   *Client
	Logger   *zap.Logger
}

// NewBusyProvider wires a busy provider.
func NewBusyProvider(accounts accountRepo.Repository, tokens *TokenManager, client *Client, logger *zap.Logger) *DefaultBusyProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultBusyProvider{Accounts: accounts, Tokens: tokens, Client: client, Logger: logger}
}

type accountBatch struct {
	account     *models.ConnectedAccount
	calendarIDs []string // external calendar ids
}

// FreeBusy implements availability.BusyFetcher.
func (p *DefaultBusyProvider) FreeBusy(ctx context.Context, req availability.BusyRequest) (availability.BusyResult, error) {
	cals, err := p.Accounts.ListCalendarsByIDs(ctx, req.CalendarIDs)
	if err != nil {
		return availability.BusyResult{}, err
	}

	// Coalesce calendars per account; unselected calendars are ignored.
	batches := map[string]*accountBatch{}
	for _, cal := range cals {
		if !cal.SelectedForBusy {
			continue
		}
		batch, ok := batches[cal.AccountID]
		if !ok {
			account, err := p.Accounts.GetAccount(ctx, cal.AccountID)
			if err != nil || !account.Valid {
				// Invalid accounts are excluded entirely, not failures.
				continue
			}
			batch = &accountBatch{account: account}
			batches[cal.AccountID] = batch
		}
		batch.calendarIDs = append(batch.calendarIDs, cal.ExternalCalendarID)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		blocks   []models.BusyBlock
		failures []availability.AccountFailure
	)
	for _, batch := range batches {
		wg.Add(1)
		go func(b *accountBatch) {
			defer wg.Done()
			got, err := p.fetchAccount(ctx, b, req)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// A failed account contributes an empty list and a failure
				// record; it never aborts the whole composition.
				failures = append(failures, availability.AccountFailure{
					AccountID: b.account.ID,
					Err:       err,
				})
				return
			}
			blocks = append(blocks, got...)
		}(batch)
	}
	wg.Wait()

	return availability.BusyResult{
		Blocks:   availability.ClipToWindow(blocks, req.TimeMin, req.TimeMax),
		Failures: failures,
	}, nil
}

func (p *DefaultBusyProvider) fetchAccount(ctx context.Context, batch *accountBatch, req availability.BusyRequest) ([]models.BusyBlock, error) {
	token, err := p.Tokens.AccessToken(ctx, batch.account)
	if err != nil {
		return nil, err
	}
	periods, err := p.Client.FreeBusy(ctx, batch.account.ID, token, batch.calendarIDs, req.TimeMin, req.TimeMax)
	if err != nil {
		return nil, err
	}
	if err := p.Accounts.TouchSync(ctx, batch.account.ID, time.Now().UTC()); err != nil {
		p.Logger.Warn("failed to record account sync time",
			zap.String("accountId", batch.account.ID), zap.Error(err))
	}

	var blocks []models.BusyBlock
	for calID, list := range periods {
		for _, period := range list {
			if period.Status == "tentative" && !req.IncludeTentative {
				continue
			}
			start, end := period.Start, period.End
			if period.AllDay {
				if !req.ExpandAllDay {
					continue
				}
				start, end = expandAllDay(period, req.HostZone)
			}
			if !start.Before(end) {
				continue
			}
			blocks = append(blocks, models.BusyBlock{
				Start:            start,
				End:              end,
				SourceCalendarID: calID,
			})
		}
	}
	return blocks, nil
}

// expandAllDay widens an all-day period to whole local days in the host
// timezone: [localMidnight, nextLocalMidnight) for every day it touches.
func expandAllDay(period BusyPeriod, hostZone *time.Location) (time.Time, time.Time) {
	if hostZone == nil {
		hostZone = time.UTC
	}
	y, m, d := period.Start.In(hostZone).Date()
	start := availability.LocalMidnight(y, m, d, hostZone)

	endLocal := period.End.In(hostZone)
	ey, em, ed := endLocal.Date()
	end := availability.LocalMidnight(ey, em, ed, hostZone)
	if end.Before(period.End) {
		// The period runs past local midnight; cover that day too.
		next := time.Date(ey, em, ed, 12, 0, 0, 0, hostZone).AddDate(0, 0, 1)
		ny, nm, nd := next.Date()
		end = availability.LocalMidnight(ny, nm, nd, hostZone)
	}
	return start, end
}
