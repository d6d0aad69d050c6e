package handlers

import (
	hostRepo "schedly/database/repository/host"
)

// HandlerBundle groups the wired handlers so route registration takes one
// argument.
type HandlerBundle struct {
	Availability *AvailabilityHandler
	Booking      *BookingHandler
	EventTypes   *EventTypeHandler
	Calendars    *CalendarHandler
	OAuth        *OAuthHandler
	Hosts        *HostHandler

	// HostRepo backs the host auth middleware.
	HostRepo hostRepo.Repository
}
