package model

import "time"

// MeetingStatus is the state of a booked meeting.
type MeetingStatus string

const (
	MeetingConfirmed MeetingStatus = "confirmed"
	MeetingCompleted MeetingStatus = "completed"
	MeetingCancelled MeetingStatus = "cancelled"
	MeetingNoShow    MeetingStatus = "no_show"
)

// TimeSlot is a bookable calendar interval.
type TimeSlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// EventRef identifies an event created in an external calendar.
type EventRef struct {
	ID   string `json:"id"`
	Link string `json:"link"`
}

// EventDetails describes the calendar event to create.
type EventDetails struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Timezone    string   `json:"timezone"`
	Attendees   []string `json:"attendees"`
}

// Meeting is a confirmed booking. Fields other than Status are fixed once
// confirmed; Status changes are owned by calendar sync.
type Meeting struct {
	ID         string        `json:"id"`
	CampaignID string        `json:"campaign_id"`
	LeadID     string        `json:"lead_id"`
	RequestID  string        `json:"request_id"`
	Slot       TimeSlot      `json:"slot"`
	Title      string        `json:"title"`
	Timezone   string        `json:"timezone"`
	Attendees  []string      `json:"attendees"`
	Event      EventRef      `json:"event"`
	Status     MeetingStatus `json:"status"`
	BookedAt   time.Time     `json:"booked_at"`
}
