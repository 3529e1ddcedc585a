// Package crm syncs qualified leads and their meetings to a CRM.
package crm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/model"
)

// StageQualified is the CRM pipeline stage for leads with a booked meeting.
const StageQualified = "Qualified"

// RecordRef identifies a record in the CRM.
type RecordRef struct {
	ID      string `json:"id"`
	System  string `json:"system"`
	Created bool   `json:"created"`
}

// LeadRecord is the data upserted for a lead.
type LeadRecord struct {
	Lead    model.Lead     `json:"lead"`
	Stage   string         `json:"stage"`
	Summary string         `json:"summary,omitempty"`
	Meeting *model.Meeting `json:"meeting,omitempty"`
}

// Activity is a logged interaction against a CRM record.
type Activity struct {
	RecordID    string    `json:"record_id"`
	Type        string    `json:"type"`
	Subject     string    `json:"subject"`
	Description string    `json:"description"`
	At          time.Time `json:"at"`
}

// Sync upserts leads and logs activities.
type Sync interface {
	UpsertLead(ctx context.Context, rec LeadRecord) (RecordRef, error)
	LogActivity(ctx context.Context, act Activity) error
}

// MeetingActivity builds the activity logged after a meeting is booked.
func MeetingActivity(ref RecordRef, m model.Meeting, summary string) Activity {
	desc := fmt.Sprintf("Meeting scheduled for %s (%s).\nCalendar: %s",
		m.Slot.Start.Format("Mon Jan 2 2006 15:04 MST"), m.Timezone, m.Event.Link)
	if summary != "" {
		desc += "\n\n" + summary
	}
	return Activity{
		RecordID:    ref.ID,
		Type:        "Meeting",
		Subject:     m.Title,
		Description: desc,
		At:          m.BookedAt,
	}
}

// Memory is an in-process Sync keyed by email.
type Memory struct {
	mu         sync.Mutex
	byEmail    map[string]string
	records    map[string]LeadRecord
	activities []Activity
}

// NewMemory creates an empty in-memory CRM.
func NewMemory() *Memory {
	return &Memory{
		byEmail: make(map[string]string),
		records: make(map[string]LeadRecord),
	}
}

// UpsertLead stores the record, reusing the ID of an earlier record with the
// same email.
func (m *Memory) UpsertLead(ctx context.Context, rec LeadRecord) (RecordRef, error) {
	if err := ctx.Err(); err != nil {
		return RecordRef{}, eris.Wrap(err, "crm: upsert lead")
	}
	email := rec.Lead.Contact.Email
	if email == "" {
		return RecordRef{}, eris.New("crm: lead email is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEmail[email]
	if !ok {
		id = uuid.NewString()
		m.byEmail[email] = id
	}
	m.records[id] = rec
	return RecordRef{ID: id, System: "memory", Created: !ok}, nil
}

// LogActivity appends the activity. The record must exist.
func (m *Memory) LogActivity(ctx context.Context, act Activity) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "crm: log activity")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[act.RecordID]; !ok {
		return eris.Errorf("crm: unknown record %q", act.RecordID)
	}
	m.activities = append(m.activities, act)
	return nil
}

// Record returns a stored record.
func (m *Memory) Record(id string) (LeadRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	return rec, ok
}

// Activities returns a copy of the logged activities.
func (m *Memory) Activities() []Activity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Activity(nil), m.activities...)
}
