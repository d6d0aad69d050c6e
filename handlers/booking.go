package handlers

import (
	"net/http"
	"time"

	"schedly/services/booking"
	"schedly/utils"

	"github.com/gin-gonic/gin"
)

// BookingHandler serves the public booking lifecycle endpoints.
type BookingHandler struct {
	Service *booking.Service
}

// CreateBooking commits a slot.
//
// POST /api/bookings
// Responds 201 on a fresh commit, 200 on an idempotent replay.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req booking.CommitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	if key := c.GetHeader("Idempotency-Key"); key != "" {
		req.IdempotencyKey = key
	}

	result, err := h.Service.Commit(c.Request.Context(), &req)
	if err != nil {
		utils.JSONAppError(c, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"booking": booking.Public(result.Booking)})
}

// GetBooking returns the guest-facing view of one booking.
//
// GET /api/bookings/:uid
func (h *BookingHandler) GetBooking(c *gin.Context) {
	b, err := h.Service.GetByUID(c.Request.Context(), c.Param("uid"))
	if err != nil {
		utils.JSONAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking.Public(b)})
}

// CancelBooking releases the booking's slot. Guests authenticate with the
// email the booking was made under; hosts via their session.
//
// DELETE /api/bookings/:uid
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	var req struct {
		Email  string `json:"email"`
		Reason string `json:"reason"`
	}
	// Body is optional for host-initiated cancels.
	_ = c.ShouldBindJSON(&req)

	actor := booking.Actor{
		HostID:     c.GetString("hostID"),
		GuestEmail: req.Email,
	}
	b, err := h.Service.Cancel(c.Request.Context(), c.Param("uid"), actor, req.Reason)
	if err != nil {
		utils.JSONAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "booking": booking.Public(b)})
}

// RescheduleBooking moves the booking to a new slot under a new uid.
//
// PATCH /api/bookings/:uid
func (h *BookingHandler) RescheduleBooking(c *gin.Context) {
	var req struct {
		NewStart time.Time `json:"newStartTime"`
		Timezone string    `json:"timezone"`
		Email    string    `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	if req.NewStart.IsZero() {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", "newStartTime is required")
		return
	}

	actor := booking.Actor{
		HostID:     c.GetString("hostID"),
		GuestEmail: req.Email,
	}
	b, err := h.Service.Reschedule(c.Request.Context(), c.Param("uid"), actor, req.NewStart)
	if err != nil {
		utils.JSONAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking.Public(b)})
}

// ListHostBookings returns the authenticated host's bookings.
//
// GET /api/host/bookings?from=...&to=...
func (h *BookingHandler) ListHostBookings(c *gin.Context) {
	hostID := c.GetString("hostID")

	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
	to := now.AddDate(0, 0, 90)
	if s := c.Query("from"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			utils.JSONError(c, http.StatusBadRequest, "invalid input", "from must be RFC 3339")
			return
		}
		from = t
	}
	if s := c.Query("to"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			utils.JSONError(c, http.StatusBadRequest, "invalid input", "to must be RFC 3339")
			return
		}
		to = t
	}

	list, err := h.Service.ListForHost(c.Request.Context(), hostID, from, to)
	if err != nil {
		utils.JSONAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": list})
}
