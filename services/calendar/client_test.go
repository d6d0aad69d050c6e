package calendar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientFreeBusy(t *testing.T) {
	var gotAuth string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/freeBusy", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"calendars": map[string]interface{}{
				"work": map[string]interface{}{
					"busy": []map[string]interface{}{
						{"start": "2026-09-14T14:00:00Z", "end": "2026-09-14T15:00:00Z", "status": "confirmed"},
						{"start": "2026-09-14T00:00:00Z", "end": "2026-09-15T00:00:00Z", "allDay": true},
					},
				},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	periods, err := c.FreeBusy(context.Background(), "acc-1", "tok-123",
		[]string{"work", "personal"},
		time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 9, 21, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-123", gotAuth)
	items, ok := gotBody["items"].([]interface{})
	require.True(t, ok)
	assert.Len(t, items, 2)

	require.Len(t, periods["work"], 2)
	assert.Equal(t, "confirmed", periods["work"][0].Status)
	assert.True(t, periods["work"][1].AllDay)
}

func TestClientListCalendars(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users/me/calendarList", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"items": []map[string]string{
				{"id": "work", "summary": "Work", "accessRole": "owner"},
				{"id": "team", "summary": "Team", "accessRole": "reader"},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	cals, err := c.ListCalendars(context.Background(), "acc-1", "tok")
	require.NoError(t, err)
	require.Len(t, cals, 2)
	assert.Equal(t, "owner", cals[0].AccessRole)
}

func TestClientErrorStatusSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "token expired", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.ListCalendars(context.Background(), "acc-1", "stale")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestExpandAllDayCoversLocalDays(t *testing.T) {
	zone, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// Provider reports the day as UTC midnight..midnight; the host's local
	// day runs 04:00..04:00 UTC in September.
	p := BusyPeriod{
		Start:  time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC),
		End:    time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC),
		AllDay: true,
	}
	start, end := expandAllDay(p, zone)

	assert.Equal(t, time.Date(2026, 9, 13, 4, 0, 0, 0, time.UTC), start.UTC())
	assert.Equal(t, time.Date(2026, 9, 15, 4, 0, 0, 0, time.UTC), end.UTC())
}
