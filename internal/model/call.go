package model

import "time"

// CallStatus is the state of a qualification call.
type CallStatus string

const (
	CallScheduled  CallStatus = "scheduled"
	CallInProgress CallStatus = "in_progress"
	CallCompleted  CallStatus = "completed"
	CallFailed     CallStatus = "failed"
	CallNoAnswer   CallStatus = "no_answer"
)

// Terminal reports whether the call can no longer change state.
func (s CallStatus) Terminal() bool {
	return s == CallCompleted || s == CallFailed || s == CallNoAnswer
}

// InterestLevel is the outcome of a BANT qualification pass.
type InterestLevel string

const (
	InterestHigh          InterestLevel = "high"
	InterestMedium        InterestLevel = "medium"
	InterestLow           InterestLevel = "low"
	InterestNotInterested InterestLevel = "not_interested"
)

// BANTAnswer is the prospect's answer to one BANT question.
type BANTAnswer struct {
	Qualified bool   `json:"qualified"`
	Notes     string `json:"notes,omitempty"`
}

// BANT holds budget, authority, need and timeline answers.
type BANT struct {
	Budget    BANTAnswer `json:"budget"`
	Authority BANTAnswer `json:"authority"`
	Need      BANTAnswer `json:"need"`
	Timeline  BANTAnswer `json:"timeline"`
}

// Met returns how many of the four criteria were qualified.
func (b BANT) Met() int {
	n := 0
	for _, a := range []BANTAnswer{b.Budget, b.Authority, b.Need, b.Timeline} {
		if a.Qualified {
			n++
		}
	}
	return n
}

// WindowSpec is a preferred meeting window.
type WindowSpec struct {
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	Timezone        string    `json:"timezone"`
	DurationMinutes int       `json:"duration_minutes"`
}

// BookingRequest is emitted by a completed, highly interested call.
type BookingRequest struct {
	ID            string     `json:"id"`
	CampaignID    string     `json:"campaign_id"`
	LeadID        string     `json:"lead_id"`
	CallID        string     `json:"call_id"`
	AttendeeName  string     `json:"attendee_name"`
	AttendeeEmail string     `json:"attendee_email"`
	Company       string     `json:"company"`
	Title         string     `json:"title"`
	Notes         string     `json:"notes,omitempty"`
	Window        WindowSpec `json:"window"`
}

// QualificationCall is a single phone qualification interaction.
type QualificationCall struct {
	ID            string          `json:"id"`
	CampaignID    string          `json:"campaign_id"`
	LeadID        string          `json:"lead_id"`
	ReplyID       string          `json:"reply_id,omitempty"`
	Phone         string          `json:"phone"`
	Status        CallStatus      `json:"status"`
	BANT          *BANT           `json:"bant,omitempty"`
	Interest      InterestLevel   `json:"interest,omitempty"`
	Summary       string          `json:"summary,omitempty"`
	Booking       *BookingRequest `json:"booking,omitempty"`
	FailureReason string          `json:"failure_reason,omitempty"`
	ScheduledAt   time.Time       `json:"scheduled_at"`
	StartedAt     time.Time       `json:"started_at,omitempty"`
	EndedAt       time.Time       `json:"ended_at,omitempty"`
}
