package calendar

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/jonathan/hiring-orchestrator/internal/types"
)

// InterviewLookup resolves the interview an event is created for.
type InterviewLookup interface {
	GetInterview(ctx context.Context, id uuid.UUID) (*types.Interview, error)
}

// defaultEventDuration is used when an interview has no explicit end time.
const defaultEventDuration = time.Hour

// GoogleProvider implements Provider on the Google Calendar API. The caller
// supplies an already-authenticated HTTP client; token acquisition is outside
// this package.
type GoogleProvider struct {
	service    *gcal.Service
	interviews InterviewLookup

	// CalendarID maps a recruiter to their calendar. Defaults to "primary".
	CalendarID func(recruiterID uuid.UUID) string
}

// NewGoogleProvider creates a provider backed by the Google Calendar API.
func NewGoogleProvider(ctx context.Context, client *http.Client, interviews InterviewLookup) (*GoogleProvider, error) {
	service, err := gcal.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return &GoogleProvider{
		service:    service,
		interviews: interviews,
		CalendarID: func(uuid.UUID) string { return "primary" },
	}, nil
}

// GetAvailableSlots queries free/busy for the recruiter's calendar and
// inverts the busy intervals into open slots within [start, end].
func (p *GoogleProvider) GetAvailableSlots(ctx context.Context, recruiterID uuid.UUID, start, end time.Time) ([]Slot, error) {
	calendarID := p.CalendarID(recruiterID)
	req := &gcal.FreeBusyRequest{
		TimeMin: start.Format(time.RFC3339),
		TimeMax: end.Format(time.RFC3339),
		Items:   []*gcal.FreeBusyRequestItem{{Id: calendarID}},
	}

	resp, err := p.service.Freebusy.Query(req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("freebusy query failed: %w", err)
	}

	cal, ok := resp.Calendars[calendarID]
	if !ok {
		return []Slot{{Start: start, End: end}}, nil
	}

	busy := make([]Slot, 0, len(cal.Busy))
	for _, b := range cal.Busy {
		bs, err := time.Parse(time.RFC3339, b.Start)
		if err != nil {
			return nil, fmt.Errorf("failed to parse busy start: %w", err)
		}
		be, err := time.Parse(time.RFC3339, b.End)
		if err != nil {
			return nil, fmt.Errorf("failed to parse busy end: %w", err)
		}
		busy = append(busy, Slot{Start: bs, End: be})
	}

	return invertBusy(start, end, busy), nil
}

// invertBusy turns busy intervals into the free slots between them.
func invertBusy(start, end time.Time, busy []Slot) []Slot {
	free := []Slot{}
	cursor := start
	for _, b := range busy {
		if b.Start.After(cursor) {
			free = append(free, Slot{Start: cursor, End: b.Start})
		}
		if b.End.After(cursor) {
			cursor = b.End
		}
	}
	if cursor.Before(end) {
		free = append(free, Slot{Start: cursor, End: end})
	}
	return free
}

// CreateEvent inserts a calendar event for the interview's scheduled time.
func (p *GoogleProvider) CreateEvent(ctx context.Context, interviewID uuid.UUID) (*EventResult, error) {
	iv, err := p.interviews.GetInterview(ctx, interviewID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up interview: %w", err)
	}
	if iv == nil || iv.ScheduledTime == nil {
		return nil, fmt.Errorf("interview %s has no scheduled time", interviewID)
	}

	start := *iv.ScheduledTime
	event := &gcal.Event{
		Summary:     "Interview",
		Description: fmt.Sprintf("Interview %s for job %s", iv.ID, iv.JobID),
		Start:       &gcal.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:         &gcal.EventDateTime{DateTime: start.Add(defaultEventDuration).Format(time.RFC3339)},
	}

	created, err := p.service.Events.Insert(p.CalendarID(iv.RecruiterID), event).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("event insert failed: %w", err)
	}

	return &EventResult{Success: true, EventID: created.Id, Method: string(types.SyncAPI)}, nil
}
