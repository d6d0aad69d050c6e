package handlers

import (
	"errors"
	"net/http"

	accountRepo "schedly/database/repository/account"
	"schedly/utils"

	"github.com/gin-gonic/gin"
)

// CalendarHandler serves the host's connected calendar management.
type CalendarHandler struct {
	Accounts accountRepo.Repository
}

// ListCalendars returns all calendars across the host's connected accounts.
//
// GET /api/host/calendars
func (h *CalendarHandler) ListCalendars(c *gin.Context) {
	cals, err := h.Accounts.ListCalendars(c.Request.Context(), c.GetString("hostID"))
	if err != nil {
		utils.JSONAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"calendars": cals})
}

// SetCalendarSelection flips whether a calendar counts toward busy time.
//
// PATCH /api/host/calendars/:id/selection
func (h *CalendarHandler) SetCalendarSelection(c *gin.Context) {
	var req struct {
		Selected *bool `json:"selected"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Selected == nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", "selected is required")
		return
	}

	ctx := c.Request.Context()
	cal, err := h.Accounts.GetCalendar(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, accountRepo.ErrNotFound) {
			utils.JSONError(c, http.StatusNotFound, "calendar not found", c.Param("id"))
			return
		}
		utils.JSONAppError(c, err)
		return
	}
	if cal.HostID != c.GetString("hostID") {
		utils.JSONError(c, http.StatusNotFound, "calendar not found", c.Param("id"))
		return
	}

	if err := h.Accounts.SetCalendarSelected(ctx, cal.ID, *req.Selected); err != nil {
		utils.JSONAppError(c, err)
		return
	}
	cal.SelectedForBusy = *req.Selected
	c.JSON(http.StatusOK, cal)
}
