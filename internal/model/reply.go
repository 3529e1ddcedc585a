package model

import "time"

// ReplyStatus tracks an inbound reply through classification and routing.
type ReplyStatus string

const (
	ReplyNew        ReplyStatus = "new"
	ReplyClassified ReplyStatus = "classified"
	ReplyRouted     ReplyStatus = "routed"
	ReplyResponded  ReplyStatus = "responded"
	ReplyEscalated  ReplyStatus = "escalated"
	ReplyArchived   ReplyStatus = "archived"
	ReplyFailed     ReplyStatus = "failed"
)

// Terminal reports whether the reply has finished processing.
func (s ReplyStatus) Terminal() bool {
	switch s {
	case ReplyResponded, ReplyEscalated, ReplyArchived, ReplyFailed:
		return true
	}
	return false
}

// Intent is the classified purpose of an inbound reply.
type Intent string

const (
	IntentPositive      Intent = "positive"
	IntentNeutral       Intent = "neutral"
	IntentObjection     Intent = "objection"
	IntentNotInterested Intent = "not_interested"
	IntentOutOfOffice   Intent = "out_of_office"
)

// AllIntents lists every intent.
func AllIntents() []Intent {
	return []Intent{IntentPositive, IntentNeutral, IntentObjection, IntentNotInterested, IntentOutOfOffice}
}

// NextAction is what should happen after a reply is classified.
type NextAction string

const (
	ActionTriggerQualificationCall NextAction = "trigger_qualification_call"
	ActionSendFollowup             NextAction = "send_followup"
	ActionHandleObjection          NextAction = "handle_objection"
	ActionCloseLoop                NextAction = "close_loop"
	ActionArchive                  NextAction = "archive"
)

// InboundReply is a message received from a lead.
type InboundReply struct {
	ID             string                `json:"id"`
	CampaignID     string                `json:"campaign_id" validate:"required"`
	LeadID         string                `json:"lead_id" validate:"required"`
	Channel        Channel               `json:"channel" validate:"required,oneof=email linkedin sms phone"`
	Text           string                `json:"text"`
	ReceivedAt     time.Time             `json:"received_at"`
	Status         ReplyStatus           `json:"status"`
	Classification *ClassificationResult `json:"classification,omitempty"`
	Error          string                `json:"error,omitempty"`
}

// ClassificationResult is the immutable output of the intent classifier.
type ClassificationResult struct {
	Intent            Intent     `json:"intent"`
	Confidence        int        `json:"confidence"` // 0-100
	Reasoning         string     `json:"reasoning"`
	NextAction        NextAction `json:"next_action"`
	SuggestedResponse string     `json:"suggested_response,omitempty"`
	Markers           []string   `json:"markers,omitempty"`
	Ambiguous         bool       `json:"ambiguous,omitempty"`
}
