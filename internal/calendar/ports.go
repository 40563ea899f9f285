package calendar

import (
	"context"
	"time"
)

// Event is a calendar entry considered for lesson suggestions.
type Event struct {
	ID    string
	Title string
	Start time.Time
}

// EventSource lists calendar events in a time window.
type EventSource interface {
	Events(ctx context.Context, from, to time.Time) ([]Event, error)
}
