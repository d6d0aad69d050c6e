package models

import (
	"fmt"
	"time"
)

// Location kinds supported for a meeting.
const (
	LocationVideo    = "video"
	LocationPhone    = "phone"
	LocationInPerson = "in_person"
)

// Custom question kinds.
const (
	QuestionText     = "text"
	QuestionTextarea = "textarea"
	QuestionSelect   = "select"
)

// WorkingHours is one bookable window on a weekday, interpreted in the host
// timezone. Times are "HH:MM" wall clock.
type WorkingHours struct {
	DayOfWeek int    `bson:"day_of_week" json:"dayOfWeek"` // 0 = Sunday .. 6 = Saturday
	Start     string `bson:"start" json:"start"`
	End       string `bson:"end" json:"end"`
}

// Validate checks the working-hours invariants.
func (w WorkingHours) Validate() error {
	if w.DayOfWeek < 0 || w.DayOfWeek > 6 {
		return fmt.Errorf("dayOfWeek must be in 0..6, got %d", w.DayOfWeek)
	}
	sh, sm, err := ParseWallTime(w.Start)
	if err != nil {
		return fmt.Errorf("invalid start %q: %w", w.Start, err)
	}
	eh, em, err := ParseWallTime(w.End)
	if err != nil {
		return fmt.Errorf("invalid end %q: %w", w.End, err)
	}
	if sh*60+sm >= eh*60+em {
		return fmt.Errorf("working hours start %s must be before end %s", w.Start, w.End)
	}
	return nil
}

// ParseWallTime parses an "HH:MM" wall-clock string.
func ParseWallTime(s string) (hour, minute int, err error) {
	if _, err = fmt.Sscanf(s, "%02d:%02d", &hour, &minute); err != nil {
		return 0, 0, fmt.Errorf("expected HH:MM: %w", err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("out of range: %s", s)
	}
	return hour, minute, nil
}

// CustomQuestion is an extra question shown to the guest at booking time.
// Kind is one of text, textarea or select; Options is only meaningful for
// select questions.
type CustomQuestion struct {
	ID       string   `bson:"id" json:"id"`
	Label    string   `bson:"label" json:"label"`
	Kind     string   `bson:"kind" json:"kind"`
	Options  []string `bson:"options,omitempty" json:"options,omitempty"`
	Required bool     `bson:"required" json:"required"`
}

// Validate checks the question shape.
func (q CustomQuestion) Validate() error {
	switch q.Kind {
	case QuestionText, QuestionTextarea:
		if len(q.Options) > 0 {
			return fmt.Errorf("question %q: options are only valid for select questions", q.Label)
		}
	case QuestionSelect:
		if len(q.Options) == 0 {
			return fmt.Errorf("question %q: select question requires options", q.Label)
		}
	default:
		return fmt.Errorf("question %q: unknown kind %q", q.Label, q.Kind)
	}
	if q.Label == "" {
		return fmt.Errorf("question label is required")
	}
	return nil
}

// EventType describes one bookable meeting kind owned by a host.
type EventType struct {
	ID                   string           `bson:"id" json:"id"`
	HostID               string           `bson:"host_id" json:"host_id"`
	Slug                 string           `bson:"slug" json:"slug"`
	Name                 string           `bson:"name" json:"name"`
	Description          string           `bson:"description,omitempty" json:"description,omitempty"`
	DurationMin          int              `bson:"duration_min" json:"durationMin"`
	BufferBeforeMin      int              `bson:"buffer_before_min" json:"bufferBeforeMin"`
	BufferAfterMin       int              `bson:"buffer_after_min" json:"bufferAfterMin"`
	MinimumNoticeMin     int              `bson:"minimum_notice_min" json:"minimumNoticeMin"`
	SchedulingWindowDays int              `bson:"scheduling_window_days" json:"schedulingWindowDays"`
	SlotIntervalMin      int              `bson:"slot_interval_min" json:"slotIntervalMin"`
	WorkingHours         []WorkingHours   `bson:"working_hours" json:"workingHours"`
	ParticipatingCalIDs  []string         `bson:"participating_calendar_ids" json:"participatingCalendarIds"`
	DestinationCalID     string           `bson:"destination_calendar_id" json:"destinationCalendarId"`
	LocationKind         string           `bson:"location_kind" json:"locationKind"`
	RequiresConfirmation bool             `bson:"requires_confirmation" json:"requiresConfirmation"`
	IncludeTentative     bool             `bson:"include_tentative" json:"includeTentative"`
	BlockAllDayEvents    bool             `bson:"block_all_day_events" json:"blockAllDayEvents"`
	CustomQuestions      []CustomQuestion `bson:"custom_questions,omitempty" json:"customQuestions,omitempty"`
	Active               bool             `bson:"active" json:"active"`
	CreatedAt            time.Time        `bson:"created_at" json:"created_at"`
	UpdatedAt            time.Time        `bson:"updated_at" json:"updated_at"`
}

// Duration returns the meeting length.
func (et *EventType) Duration() time.Duration {
	return time.Duration(et.DurationMin) * time.Minute
}

// BufferBefore returns the pre-meeting buffer.
func (et *EventType) BufferBefore() time.Duration {
	return time.Duration(et.BufferBeforeMin) * time.Minute
}

// BufferAfter returns the post-meeting buffer.
func (et *EventType) BufferAfter() time.Duration {
	return time.Duration(et.BufferAfterMin) * time.Minute
}

// MinimumNotice returns the minimum lead time before a slot may start.
func (et *EventType) MinimumNotice() time.Duration {
	return time.Duration(et.MinimumNoticeMin) * time.Minute
}

// SchedulingWindow returns how far into the future slots are offered.
func (et *EventType) SchedulingWindow() time.Duration {
	return time.Duration(et.SchedulingWindowDays) * 24 * time.Hour
}

// Validate checks the event-type invariants.
func (et *EventType) Validate() error {
	if et.Slug == "" {
		return fmt.Errorf("slug is required")
	}
	if et.Name == "" {
		return fmt.Errorf("name is required")
	}
	if et.DurationMin < 5 || et.DurationMin > 480 {
		return fmt.Errorf("durationMin must be in 5..480, got %d", et.DurationMin)
	}
	if et.SlotIntervalMin < 5 || et.SlotIntervalMin > 60 {
		return fmt.Errorf("slotIntervalMin must be in 5..60, got %d", et.SlotIntervalMin)
	}
	if et.BufferBeforeMin < 0 || et.BufferAfterMin < 0 {
		return fmt.Errorf("buffers must not be negative")
	}
	if et.MinimumNoticeMin < 0 {
		return fmt.Errorf("minimumNoticeMin must not be negative")
	}
	if et.SchedulingWindowDays <= 0 {
		return fmt.Errorf("schedulingWindowDays must be positive")
	}
	switch et.LocationKind {
	case LocationVideo, LocationPhone, LocationInPerson:
	default:
		return fmt.Errorf("unknown locationKind %q", et.LocationKind)
	}
	if len(et.WorkingHours) == 0 {
		return fmt.Errorf("at least one working-hours window is required")
	}
	for _, wh := range et.WorkingHours {
		if err := wh.Validate(); err != nil {
			return err
		}
	}
	if et.DestinationCalID != "" {
		found := false
		for _, id := range et.ParticipatingCalIDs {
			if id == et.DestinationCalID {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("destination calendar must be one of the participating calendars")
		}
	}
	for _, q := range et.CustomQuestions {
		if err := q.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// HoursForDay returns the working-hours windows for a weekday.
func (et *EventType) HoursForDay(weekday time.Weekday) []WorkingHours {
	var out []WorkingHours
	for _, wh := range et.WorkingHours {
		if wh.DayOfWeek == int(weekday) {
			out = append(out, wh)
		}
	}
	return out
}
