package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Client talks to the external calendar service's REST API. Requests are
// throttled per account so one busy host cannot exhaust the provider quota.
type Client struct {
	HTTP    *http.Client
	BaseURL string

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewClient builds a calendar API client.
func NewClient(baseURL string) *Client {
	return &Client{
		HTTP:     &http.Client{Timeout: 15 * time.Second},
		BaseURL:  baseURL,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (c *Client) limiter(accountID string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.limiters[accountID]
	if !ok {
		// 10 requests/second sustained, short bursts allowed.
		l = rate.NewLimiter(rate.Limit(10), 5)
		c.limiters[accountID] = l
	}
	return l
}

// BusyPeriod is one busy interval as reported by the provider.
type BusyPeriod struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Status string    `json:"status,omitempty"` // "confirmed" or "tentative"
	AllDay bool      `json:"allDay,omitempty"`
}

// RemoteCalendar is one calendar in the provider's calendar list.
type RemoteCalendar struct {
	ID         string `json:"id"`
	Summary    string `json:"summary"`
	AccessRole string `json:"accessRole"` // "owner", "writer" or "reader"
}

// EventInput is the payload for creating or updating an external event.
type EventInput struct {
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	GuestEmail  string    `json:"guestEmail,omitempty"`
	GuestName   string    `json:"guestName,omitempty"`
	// RequestMeetingLink asks the provider to attach a conference link.
	RequestMeetingLink bool `json:"requestMeetingLink,omitempty"`
}

// EventRef identifies a created event and its optional meeting link.
type EventRef struct {
	ID         string `json:"id"`
	MeetingURL string `json:"meetingUrl,omitempty"`
}

func (c *Client) do(ctx context.Context, accountID, token, method, path string, body, out interface{}) error {
	if err := c.limiter(accountID).Wait(ctx); err != nil {
		return fmt.Errorf("throttle wait: %w", err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("calendar api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("calendar api %s %s: status %d: %s", method, path, resp.StatusCode, string(data))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// FreeBusy fetches busy periods for a set of calendars under one account in
// a single request.
func (c *Client) FreeBusy(ctx context.Context, accountID, token string, calendarIDs []string, timeMin, timeMax time.Time) (map[string][]BusyPeriod, error) {
	items := make([]map[string]string, 0, len(calendarIDs))
	for _, id := range calendarIDs {
		items = append(items, map[string]string{"id": id})
	}
	reqBody := map[string]interface{}{
		"timeMin": timeMin.UTC().Format(time.RFC3339),
		"timeMax": timeMax.UTC().Format(time.RFC3339),
		"items":   items,
	}
	var resp struct {
		Calendars map[string]struct {
			Busy []BusyPeriod `json:"busy"`
		} `json:"calendars"`
	}
	if err := c.do(ctx, accountID, token, http.MethodPost, "/freeBusy", reqBody, &resp); err != nil {
		return nil, err
	}
	out := make(map[string][]BusyPeriod, len(resp.Calendars))
	for id, cal := range resp.Calendars {
		out[id] = cal.Busy
	}
	return out, nil
}

// UserInfo is the provider's identity record for the authorized account.
type UserInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// UserInfo fetches the identity of the account behind a token.
func (c *Client) UserInfo(ctx context.Context, accountID, token string) (*UserInfo, error) {
	var info UserInfo
	if err := c.do(ctx, accountID, token, http.MethodGet, "/users/me", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ListCalendars fetches the account's calendar list.
func (c *Client) ListCalendars(ctx context.Context, accountID, token string) ([]RemoteCalendar, error) {
	var resp struct {
		Items []RemoteCalendar `json:"items"`
	}
	if err := c.do(ctx, accountID, token, http.MethodGet, "/users/me/calendarList", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// CreateEvent writes an event to a calendar.
func (c *Client) CreateEvent(ctx context.Context, accountID, token, calendarID string, ev EventInput) (*EventRef, error) {
	var ref EventRef
	path := fmt.Sprintf("/calendars/%s/events", url.PathEscape(calendarID))
	if err := c.do(ctx, accountID, token, http.MethodPost, path, ev, &ref); err != nil {
		return nil, err
	}
	return &ref, nil
}

// UpdateEvent rewrites an existing event.
func (c *Client) UpdateEvent(ctx context.Context, accountID, token, calendarID, eventID string, ev EventInput) error {
	path := fmt.Sprintf("/calendars/%s/events/%s", url.PathEscape(calendarID), url.PathEscape(eventID))
	return c.do(ctx, accountID, token, http.MethodPut, path, ev, nil)
}

// DeleteEvent removes an event.
func (c *Client) DeleteEvent(ctx context.Context, accountID, token, calendarID, eventID string) error {
	path := fmt.Sprintf("/calendars/%s/events/%s", url.PathEscape(calendarID), url.PathEscape(eventID))
	return c.do(ctx, accountID, token, http.MethodDelete, path, nil, nil)
}
