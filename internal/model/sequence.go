package model

import "time"

// Channel identifies an outbound or inbound messaging channel.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelLinkedIn Channel = "linkedin"
	ChannelSMS      Channel = "sms"
	ChannelPhone    Channel = "phone"
)

// SequenceStatus is the state of an outbound sequence.
type SequenceStatus string

const (
	SequenceActive    SequenceStatus = "active"
	SequencePaused    SequenceStatus = "paused"
	SequenceCompleted SequenceStatus = "completed"
	SequenceStopped   SequenceStatus = "stopped"
)

// SequenceStep is one touch in an outbound sequence.
type SequenceStep struct {
	StepNumber int     `json:"step_number"`
	Channel    Channel `json:"channel"`
	DelayDays  int     `json:"delay_days"`
	Subject    string  `json:"subject,omitempty"`
	Template   string  `json:"template"`
}

// StepAttempt records the outcome of executing one step.
type StepAttempt struct {
	StepNumber int       `json:"step_number"`
	Channel    Channel   `json:"channel"`
	MessageID  string    `json:"message_id,omitempty"`
	Delivered  bool      `json:"delivered"`
	Error      string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
}

// PausedByOperator marks a sequence paused through the control API.
const PausedByOperator = "operator"

// OutboundSequence is a per-lead multi-channel touch sequence. CurrentStep is
// a 1-based cursor that only increases. PausedBy holds the reply ID or
// PausedByOperator that paused it.
type OutboundSequence struct {
	ID          string         `json:"id"`
	CampaignID  string         `json:"campaign_id"`
	LeadID      string         `json:"lead_id"`
	Steps       []SequenceStep `json:"steps"`
	CurrentStep int            `json:"current_step"`
	Status      SequenceStatus `json:"status"`
	PausedBy    string         `json:"paused_by,omitempty"`
	History     []StepAttempt  `json:"history,omitempty"`
	StartedAt   time.Time      `json:"started_at"`
	LastSentAt  time.Time      `json:"last_sent_at,omitempty"`
}

// ValidCursor reports whether CurrentStep is at or after the first step.
func (s *OutboundSequence) ValidCursor() bool {
	return s.CurrentStep >= 1
}

// Done reports whether the cursor has passed the last step.
func (s *OutboundSequence) Done() bool {
	return s.CurrentStep > len(s.Steps)
}

// DeliveryResult is the acknowledgement from a channel sender.
type DeliveryResult struct {
	MessageID  string    `json:"message_id"`
	Channel    Channel   `json:"channel"`
	AcceptedAt time.Time `json:"accepted_at"`
}
