// Package booking resolves booking requests against calendar availability
// and confirms meetings.
package booking

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/resilience"
)

// Calendar is the availability and event collaborator.
type Calendar interface {
	FindSlots(ctx context.Context, window model.WindowSpec) ([]model.TimeSlot, error)
	CreateEvent(ctx context.Context, slot model.TimeSlot, details model.EventDetails) (model.EventRef, error)
}

// Coordinator books meetings.
type Coordinator struct {
	cal   Calendar
	guard *resilience.Guard
	title string
	now   func() time.Time
}

// NewCoordinator creates a Coordinator. title prefixes every event title.
func NewCoordinator(cal Calendar, title string, guard *resilience.Guard) *Coordinator {
	if title == "" {
		title = "Discovery Call"
	}
	return &Coordinator{cal: cal, guard: guard, title: title, now: time.Now}
}

// Book picks the earliest available slot in the request window and creates
// the calendar event. When the calendar has no slot in the window it returns
// *model.NoAvailabilityError.
func (c *Coordinator) Book(ctx context.Context, req model.BookingRequest) (model.Meeting, error) {
	slots, err := resilience.GuardVal(ctx, c.guard, "calendar", "find_slots", func(ctx context.Context) ([]model.TimeSlot, error) {
		return c.cal.FindSlots(ctx, req.Window)
	})
	if err != nil {
		return model.Meeting{}, err
	}

	slot, ok := Earliest(slots, req.Window)
	if !ok {
		return model.Meeting{}, &model.NoAvailabilityError{Window: req.Window}
	}

	details := model.EventDetails{
		Title:       fmt.Sprintf("%s with %s", c.title, req.AttendeeName),
		Description: description(req),
		Timezone:    req.Window.Timezone,
		Attendees:   []string{req.AttendeeEmail},
	}
	ref, err := resilience.GuardVal(ctx, c.guard, "calendar", "create_event", func(ctx context.Context) (model.EventRef, error) {
		return c.cal.CreateEvent(ctx, slot, details)
	})
	if err != nil {
		return model.Meeting{}, err
	}

	m := model.Meeting{
		ID:         uuid.NewString(),
		CampaignID: req.CampaignID,
		LeadID:     req.LeadID,
		RequestID:  req.ID,
		Slot:       slot,
		Title:      details.Title,
		Timezone:   req.Window.Timezone,
		Attendees:  details.Attendees,
		Event:      ref,
		Status:     model.MeetingConfirmed,
		BookedAt:   c.now().UTC(),
	}
	zap.L().Info("meeting booked",
		zap.String("lead_id", req.LeadID),
		zap.String("meeting_id", m.ID),
		zap.Time("start", slot.Start),
	)
	return m, nil
}

// Earliest returns the earliest slot that lies inside the window and is long
// enough for the meeting.
func Earliest(slots []model.TimeSlot, w model.WindowSpec) (model.TimeSlot, bool) {
	sorted := append([]model.TimeSlot(nil), slots...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	need := time.Duration(w.DurationMinutes) * time.Minute
	for _, s := range sorted {
		if !w.Start.IsZero() && s.Start.Before(w.Start) {
			continue
		}
		if !w.End.IsZero() && s.End.After(w.End) {
			continue
		}
		if s.End.Sub(s.Start) < need {
			continue
		}
		return s, true
	}
	return model.TimeSlot{}, false
}

func description(req model.BookingRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s", req.AttendeeName)
	if req.Title != "" {
		fmt.Fprintf(&b, ", %s", req.Title)
	}
	if req.Company != "" {
		fmt.Fprintf(&b, " at %s", req.Company)
	}
	if req.Notes != "" {
		b.WriteString("\n\n")
		b.WriteString(req.Notes)
	}
	return b.String()
}

// Confirmation renders the email sent to the prospect once a meeting is booked.
func Confirmation(m model.Meeting, attendeeName string) (subject, body string) {
	loc, err := time.LoadLocation(m.Timezone)
	if err != nil {
		loc = time.UTC
	}
	start := m.Slot.Start.In(loc)
	minutes := int(m.Slot.End.Sub(m.Slot.Start).Minutes())

	subject = fmt.Sprintf("Confirmed: %s on %s", m.Title, start.Format("Mon Jan 2"))
	body = fmt.Sprintf(`Dear %s,

Thank you for scheduling a meeting with us! We're excited to connect.

Meeting Details:
- Date & Time: %s
- Duration: %d minutes
- Type: %s

Calendar Link: %s

If you need to reschedule, please let us know as soon as possible.

Looking forward to our conversation!`,
		attendeeName, start.Format("Monday, January 2, 2006 at 3:04 PM MST"), minutes, m.Title, m.Event.Link)
	return subject, body
}
