package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	goption "google.golang.org/api/option"

	ports "tutorledger/internal/calendar"
)

// Client reads lesson events from a Google Calendar.
type Client struct {
	svc        *gcal.Service
	calendarID string
}

var _ ports.EventSource = (*Client)(nil)

// NewFromEnv creates a Calendar client using environment variables.
// Required: GOOGLE_CALENDAR_ID (or "primary" is assumed when unset).
// Auth: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Client, error) {
	calendarID := strings.TrimSpace(os.Getenv("GOOGLE_CALENDAR_ID"))
	if calendarID == "" {
		calendarID = "primary"
	}

	svc, err := newCalendarService(ctx)
	if err != nil {
		return nil, fmt.Errorf("calendar service: %w", err)
	}

	return &Client{svc: svc, calendarID: calendarID}, nil
}

func newCalendarService(ctx context.Context) (*gcal.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))

	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing Google credentials: set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS")
	}

	svc, err := gcal.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gcal.CalendarReadonlyScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return svc, nil
}

// Events lists single events in [from, to), expanding recurring series.
func (c *Client) Events(ctx context.Context, from, to time.Time) ([]ports.Event, error) {
	call := c.svc.Events.List(c.calendarID).
		Context(ctx).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(250)

	var out []ports.Event
	err := call.Pages(ctx, func(page *gcal.Events) error {
		for _, item := range page.Items {
			if item.Status == "cancelled" || item.Summary == "" {
				continue
			}
			start, err := parseEventStart(item.Start)
			if err != nil {
				slog.WarnContext(ctx, "skipping event with unparsable start",
					"event", item.Id, "error", err)
				continue
			}
			out = append(out, ports.Event{
				ID:    item.Id,
				Title: item.Summary,
				Start: start,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list calendar events: %w", err)
	}
	return out, nil
}

// parseEventStart handles both timed events (DateTime) and all-day
// events (Date).
func parseEventStart(start *gcal.EventDateTime) (time.Time, error) {
	if start == nil {
		return time.Time{}, errors.New("no start time")
	}
	if start.DateTime != "" {
		return time.Parse(time.RFC3339, start.DateTime)
	}
	if start.Date != "" {
		return time.Parse("2006-01-02", start.Date)
	}
	return time.Time{}, errors.New("no start time")
}
