package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	bookingRepo "schedly/database/repository/booking"
	eventtypeRepo "schedly/database/repository/eventtype"
	hostRepo "schedly/database/repository/host"
	"schedly/models"
	"schedly/services/availability"
	"schedly/services/booking"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type emptyBusy struct{}

func (emptyBusy) FreeBusy(_ context.Context, _ availability.BusyRequest) (availability.BusyResult, error) {
	return availability.BusyResult{}, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, time.Time) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	zone, err := availability.LoadZone("America/New_York")
	require.NoError(t, err)
	now := time.Date(2026, time.September, 14, 8, 0, 0, 0, zone)

	hosts := hostRepo.NewMemoryHostRepo()
	require.NoError(t, hosts.Create(context.Background(), &models.Host{
		ID: "host-1", Email: "host@example.com", Name: "Avery",
		Timezone: "America/New_York",
	}))
	eventTypes := eventtypeRepo.NewMemoryEventTypeRepo()
	require.NoError(t, eventTypes.Create(context.Background(), &models.EventType{
		ID: "et-1", HostID: "host-1", Slug: "intro-call", Name: "Intro Call",
		DurationMin: 30, SlotIntervalMin: 30,
		MinimumNoticeMin: 60, SchedulingWindowDays: 14,
		LocationKind: models.LocationVideo,
		WorkingHours: []models.WorkingHours{{DayOfWeek: 1, Start: "09:00", End: "17:00"}},
		Active:       true,
	}))
	bookings := bookingRepo.NewMemoryBookingRepo()

	clock := availability.FixedClock{At: now}
	engine := availability.NewEngine(eventTypes, hosts, emptyBusy{}, bookings, clock, zap.NewNop())
	svc := booking.NewService(bookings, eventTypes, hosts, engine, nil, nil, nil, clock, zap.NewNop())

	r := gin.New()
	ah := &AvailabilityHandler{Engine: engine}
	bh := &BookingHandler{Service: svc}
	r.GET("/api/availability", ah.GetAvailability)
	r.POST("/api/bookings", bh.CreateBooking)
	r.GET("/api/bookings/:uid", bh.GetBooking)
	r.DELETE("/api/bookings/:uid", bh.CancelBooking)
	r.PATCH("/api/bookings/:uid", bh.RescheduleBooking)
	return r, now
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAvailabilityEndpoint(t *testing.T) {
	r, now := newTestRouter(t)

	path := fmt.Sprintf("/api/availability?eventTypeId=et-1&startDate=%s&endDate=%s&timezone=America/New_York",
		now.UTC().Format(time.RFC3339), now.Add(24*time.Hour).UTC().Format(time.RFC3339))
	rec := doJSON(t, r, http.MethodGet, path, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var out models.Availability
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.NotEmpty(t, out.Slots["2026-09-14"])

	rec = doJSON(t, r, http.MethodGet, "/api/availability", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/api/availability?eventTypeId=nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAvailabilityEndpointPlainDates(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodGet,
		"/api/availability?eventTypeId=et-1&startDate=2026-09-14&endDate=2026-09-14&timezone=America/New_York", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out models.Availability
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.NotEmpty(t, out.Slots["2026-09-14"], "a bare endDate includes the named day")

	rec = doJSON(t, r, http.MethodGet,
		"/api/availability?eventTypeId=et-1&startDate=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// bookingEnvelope mirrors the response shape of the booking endpoints.
type bookingEnvelope struct {
	Success bool               `json:"success"`
	Booking booking.PublicView `json:"booking"`
}

func TestBookingLifecycleOverHTTP(t *testing.T) {
	r, _ := newTestRouter(t)

	payload := gin.H{
		"eventTypeId": "et-1",
		"startTime":   "2026-09-14T14:00:00Z", // 10:00 New York
		"guest":       gin.H{"name": "Robin", "email": "robin@example.com"},
		"timezone":    "Europe/Berlin",
	}

	rec := doJSON(t, r, http.MethodPost, "/api/bookings", payload)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created bookingEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "confirmed", created.Booking.Status)
	assert.Equal(t, "2026-09-14T14:00:00Z", created.Booking.Start)
	assert.Equal(t, "2026-09-14T14:30:00Z", created.Booking.End)
	require.NotEmpty(t, created.Booking.UID)

	// Same slot again: conflict.
	second := gin.H{
		"eventTypeId": "et-1",
		"startTime":   "2026-09-14T14:00:00Z",
		"guest":       gin.H{"name": "Sam", "email": "sam@example.com"},
		"timezone":    "UTC",
	}
	rec = doJSON(t, r, http.MethodPost, "/api/bookings", second)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Fetch it back.
	rec = doJSON(t, r, http.MethodGet, "/api/bookings/"+created.Booking.UID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Wrong email cannot cancel; the right one can.
	rec = doJSON(t, r, http.MethodDelete, "/api/bookings/"+created.Booking.UID,
		gin.H{"email": "mallory@example.com"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, r, http.MethodDelete, "/api/bookings/"+created.Booking.UID,
		gin.H{"email": "robin@example.com", "reason": "plans changed"})
	require.Equal(t, http.StatusOK, rec.Code)
	var cancelled bookingEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cancelled))
	assert.True(t, cancelled.Success)
	assert.Equal(t, "cancelled", cancelled.Booking.Status)

	// The slot is open again.
	rec = doJSON(t, r, http.MethodPost, "/api/bookings", second)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestRescheduleOverHTTP(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/bookings", gin.H{
		"eventTypeId": "et-1",
		"startTime":   "2026-09-14T14:00:00Z",
		"guest":       gin.H{"name": "Robin", "email": "robin@example.com"},
		"timezone":    "UTC",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created bookingEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, r, http.MethodPatch, "/api/bookings/"+created.Booking.UID, gin.H{
		"newStartTime": "2026-09-14T18:00:00Z", // 14:00 New York
		"timezone":     "UTC",
		"email":        "robin@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var moved bookingEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &moved))
	assert.Equal(t, "2026-09-14T18:00:00Z", moved.Booking.Start)
	assert.NotEqual(t, created.Booking.UID, moved.Booking.UID)

	rec = doJSON(t, r, http.MethodPatch, "/api/bookings/"+moved.Booking.UID,
		gin.H{"email": "robin@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "newStartTime is required")
}

func TestBookingIdempotencyHeader(t *testing.T) {
	r, _ := newTestRouter(t)

	payload := gin.H{
		"eventTypeId": "et-1",
		"startTime":   "2026-09-14T15:00:00Z",
		"guest":       gin.H{"name": "Robin", "email": "robin@example.com"},
		"timezone":    "UTC",
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/bookings", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", "retry-key-7")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	first := send()
	require.Equal(t, http.StatusCreated, first.Code)
	second := send()
	require.Equal(t, http.StatusOK, second.Code, "replay returns the prior booking")

	var a, b bookingEnvelope
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &a))
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &b))
	assert.Equal(t, a.Booking.UID, b.Booking.UID)
}
