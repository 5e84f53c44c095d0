package models

import (
	"time"
)

// TimeBlock is a scheduled block of time on a user's planner. When the block
// has been pushed to the linked calendar, CalendarEventID holds the provider
// event id.
type TimeBlock struct {
	ID              string    `json:"id" db:"id"`
	UserID          string    `json:"user_id" db:"user_id"`
	Title           string    `json:"title" db:"title"`
	Notes           string    `json:"notes,omitempty" db:"notes"`
	StartsAt        time.Time `json:"starts_at" db:"starts_at"`
	EndsAt          time.Time `json:"ends_at" db:"ends_at"`
	CalendarEventID *string   `json:"calendar_event_id,omitempty" db:"calendar_event_id"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}
