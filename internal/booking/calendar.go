package booking

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/model"
)

// WorkingHoursCalendar offers fixed afternoon slots on configured weekdays
// and remembers what it has booked. Event links open a prefilled Google
// Calendar event.
type WorkingHoursCalendar struct {
	loc      *time.Location
	hour     int
	duration time.Duration
	weekdays map[time.Weekday]bool

	mu     sync.Mutex
	booked map[int64]bool
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

// NewWorkingHoursCalendar builds a calendar from the booking config.
func NewWorkingHoursCalendar(cfg config.BookingConfig) (*WorkingHoursCalendar, error) {
	tz := cfg.Timezone
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, eris.Wrapf(err, "booking: load timezone %q", tz)
	}

	days := make(map[time.Weekday]bool)
	for _, d := range cfg.Weekdays {
		wd, ok := parseWeekday(d)
		if !ok {
			return nil, eris.Errorf("booking: unknown weekday %q", d)
		}
		days[wd] = true
	}
	if len(days) == 0 {
		days = map[time.Weekday]bool{time.Tuesday: true, time.Wednesday: true, time.Thursday: true}
	}

	minutes := cfg.MeetingMinutes
	if minutes <= 0 {
		minutes = 30
	}
	return &WorkingHoursCalendar{
		loc:      loc,
		hour:     cfg.SlotHour,
		duration: time.Duration(minutes) * time.Minute,
		weekdays: days,
		booked:   make(map[int64]bool),
	}, nil
}

func parseWeekday(s string) (time.Weekday, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) > 3 {
		s = s[:3]
	}
	wd, ok := weekdayNames[s]
	return wd, ok
}

// FindSlots returns the open slots inside the window: one at the slot hour
// and one an hour later on each allowed weekday.
func (c *WorkingHoursCalendar) FindSlots(ctx context.Context, w model.WindowSpec) ([]model.TimeSlot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []model.TimeSlot
	start := w.Start.In(c.loc)
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, c.loc)
	for ; day.Before(w.End); day = day.AddDate(0, 0, 1) {
		if !c.weekdays[day.Weekday()] {
			continue
		}
		for _, h := range []int{c.hour, c.hour + 1} {
			s := time.Date(day.Year(), day.Month(), day.Day(), h, 0, 0, 0, c.loc)
			slot := model.TimeSlot{Start: s.UTC(), End: s.Add(c.duration).UTC()}
			if slot.Start.Before(w.Start) || slot.End.After(w.End) || c.booked[slot.Start.Unix()] {
				continue
			}
			out = append(out, slot)
		}
	}
	return out, nil
}

// CreateEvent books the slot.
func (c *WorkingHoursCalendar) CreateEvent(ctx context.Context, slot model.TimeSlot, d model.EventDetails) (model.EventRef, error) {
	if err := ctx.Err(); err != nil {
		return model.EventRef{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	key := slot.Start.Unix()
	if c.booked[key] {
		return model.EventRef{}, eris.Errorf("booking: slot %s already booked", slot.Start.Format(time.RFC3339))
	}
	c.booked[key] = true
	return model.EventRef{ID: uuid.NewString(), Link: EventLink(slot, d)}, nil
}

// EventLink builds a Google Calendar template link for an event.
func EventLink(slot model.TimeSlot, d model.EventDetails) string {
	const layout = "20060102T150405Z"
	q := url.Values{}
	q.Set("action", "TEMPLATE")
	q.Set("text", d.Title)
	q.Set("dates", slot.Start.UTC().Format(layout)+"/"+slot.End.UTC().Format(layout))
	if d.Description != "" {
		q.Set("details", d.Description)
	}
	if d.Timezone != "" {
		q.Set("ctz", d.Timezone)
	}
	if len(d.Attendees) > 0 {
		q.Set("add", strings.Join(d.Attendees, ","))
	}
	return "https://calendar.google.com/calendar/render?" + q.Encode()
}
