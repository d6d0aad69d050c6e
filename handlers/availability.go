package handlers

import (
	"net/http"
	"time"

	"schedly/services/availability"
	"schedly/utils"

	"github.com/gin-gonic/gin"
)

// AvailabilityHandler serves the public slot listing.
type AvailabilityHandler struct {
	Engine *availability.Engine
}

// parseRangeBound accepts an RFC 3339 instant or a bare YYYY-MM-DD date.
// Bare dates resolve to UTC midnight; endOfDay shifts a bare end date to the
// following midnight so the named day is included.
func parseRangeBound(s string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1)
	}
	return t, nil
}

// GetAvailability returns bookable slots for an event type.
//
// GET /api/availability?eventTypeId=...&startDate=...&endDate=...&timezone=...
// startDate and endDate are RFC 3339 instants or plain dates; when omitted
// the event type's own scheduling window applies.
func (h *AvailabilityHandler) GetAvailability(c *gin.Context) {
	eventTypeID := c.Query("eventTypeId")
	if eventTypeID == "" {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", "eventTypeId is required")
		return
	}
	timezone := c.DefaultQuery("timezone", "UTC")

	now := time.Now().UTC()
	rangeStart := now
	rangeEnd := now.AddDate(0, 0, 90)
	if s := c.Query("startDate"); s != "" {
		t, err := parseRangeBound(s, false)
		if err != nil {
			utils.JSONError(c, http.StatusBadRequest, "invalid input", "startDate must be RFC 3339 or YYYY-MM-DD")
			return
		}
		rangeStart = t
	}
	if s := c.Query("endDate"); s != "" {
		t, err := parseRangeBound(s, true)
		if err != nil {
			utils.JSONError(c, http.StatusBadRequest, "invalid input", "endDate must be RFC 3339 or YYYY-MM-DD")
			return
		}
		rangeEnd = t
	}
	if !rangeStart.Before(rangeEnd) {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", "startDate must be before endDate")
		return
	}

	result, err := h.Engine.ListSlots(c.Request.Context(), eventTypeID, rangeStart, rangeEnd, timezone)
	if err != nil {
		utils.JSONAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
