package handlers

import (
	"errors"
	"net/http"
	"time"

	eventtypeRepo "schedly/database/repository/eventtype"
	"schedly/models"
	"schedly/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// EventTypeHandler serves the host's event-type configuration.
type EventTypeHandler struct {
	EventTypes eventtypeRepo.Repository
}

// CreateEventType registers a new bookable meeting kind for the host.
//
// POST /api/host/event-types
func (h *EventTypeHandler) CreateEventType(c *gin.Context) {
	var et models.EventType
	if err := c.ShouldBindJSON(&et); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	et.ID = uuid.NewString()
	et.HostID = c.GetString("hostID")
	et.Active = true
	now := time.Now().UTC()
	et.CreatedAt = now
	et.UpdatedAt = now
	for i := range et.CustomQuestions {
		if et.CustomQuestions[i].ID == "" {
			et.CustomQuestions[i].ID = uuid.NewString()
		}
	}

	if err := et.Validate(); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	if err := h.EventTypes.Create(c.Request.Context(), &et); err != nil {
		if errors.Is(err, eventtypeRepo.ErrDuplicateSlug) {
			utils.JSONError(c, http.StatusConflict, "slug already in use", et.Slug)
			return
		}
		utils.JSONAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, et)
}

// ListEventTypes returns the host's event types.
//
// GET /api/host/event-types
func (h *EventTypeHandler) ListEventTypes(c *gin.Context) {
	list, err := h.EventTypes.ListByHost(c.Request.Context(), c.GetString("hostID"))
	if err != nil {
		utils.JSONAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"eventTypes": list})
}

// GetEventType returns one of the host's event types.
//
// GET /api/host/event-types/:id
func (h *EventTypeHandler) GetEventType(c *gin.Context) {
	et, err := h.loadOwned(c)
	if err != nil {
		return
	}
	c.JSON(http.StatusOK, et)
}

// UpdateEventType replaces the configuration of an event type. Existing
// bookings keep the terms they were made under.
//
// PUT /api/host/event-types/:id
func (h *EventTypeHandler) UpdateEventType(c *gin.Context) {
	existing, err := h.loadOwned(c)
	if err != nil {
		return
	}

	var et models.EventType
	if err := c.ShouldBindJSON(&et); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	et.ID = existing.ID
	et.HostID = existing.HostID
	et.CreatedAt = existing.CreatedAt
	et.UpdatedAt = time.Now().UTC()
	for i := range et.CustomQuestions {
		if et.CustomQuestions[i].ID == "" {
			et.CustomQuestions[i].ID = uuid.NewString()
		}
	}

	if err := et.Validate(); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	if err := h.EventTypes.Update(c.Request.Context(), &et); err != nil {
		if errors.Is(err, eventtypeRepo.ErrDuplicateSlug) {
			utils.JSONError(c, http.StatusConflict, "slug already in use", et.Slug)
			return
		}
		utils.JSONAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, et)
}

// DeactivateEventType stops an event type from accepting new bookings.
//
// DELETE /api/host/event-types/:id
func (h *EventTypeHandler) DeactivateEventType(c *gin.Context) {
	et, err := h.loadOwned(c)
	if err != nil {
		return
	}
	if err := h.EventTypes.Deactivate(c.Request.Context(), et.ID); err != nil {
		utils.JSONAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": et.ID, "active": false})
}

// loadOwned fetches the event type and checks host ownership. On failure the
// response is already written and a non-nil error is returned as a signal.
func (h *EventTypeHandler) loadOwned(c *gin.Context) (*models.EventType, error) {
	et, err := h.EventTypes.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.JSONError(c, http.StatusNotFound, "event type not found", c.Param("id"))
		return nil, err
	}
	if et.HostID != c.GetString("hostID") {
		utils.JSONError(c, http.StatusNotFound, "event type not found", c.Param("id"))
		return nil, errors.New("ownership mismatch")
	}
	return et, nil
}
