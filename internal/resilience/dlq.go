package resilience

import (
	"time"

	"github.com/google/uuid"

	"github.com/sells-group/outreach-cli/internal/model"
)

// DLQ reasons.
const (
	DLQReasonFailed    = "failed"
	DLQReasonAbandoned = "abandoned"
)

// DLQEntry records a reply whose processing failed or was abandoned on
// shutdown, so it can be replayed later.
type DLQEntry struct {
	ID           string      `json:"id"`
	CampaignID   string      `json:"campaign_id"`
	LeadID       string      `json:"lead_id"`
	ReplyID      string      `json:"reply_id"`
	Stage        model.Stage `json:"stage,omitempty"`
	Reason       string      `json:"reason"`
	Error        string      `json:"error"`
	ErrorType    string      `json:"error_type"` // "transient" or "permanent"
	RetryCount   int         `json:"retry_count"`
	MaxRetries   int         `json:"max_retries"`
	NextRetryAt  time.Time   `json:"next_retry_at"`
	CreatedAt    time.Time   `json:"created_at"`
	LastFailedAt time.Time   `json:"last_failed_at"`
}

// DLQFilter selects dead-letter entries.
type DLQFilter struct {
	ErrorType string `json:"error_type,omitempty"` // "transient", "permanent", or "" for all
	Reason    string `json:"reason,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// Matches reports whether the entry passes the filter, ignoring Limit.
func (f DLQFilter) Matches(e DLQEntry) bool {
	if f.ErrorType != "" && e.ErrorType != f.ErrorType {
		return false
	}
	if f.Reason != "" && e.Reason != f.Reason {
		return false
	}
	return true
}

// NewDLQEntry builds an entry for a reply. Abandoned entries are always
// classified transient since the work never ran to completion.
func NewDLQEntry(reply model.InboundReply, stage model.Stage, reason string, err error, now time.Time) DLQEntry {
	e := DLQEntry{
		ID:           uuid.NewString(),
		CampaignID:   reply.CampaignID,
		LeadID:       reply.LeadID,
		ReplyID:      reply.ID,
		Stage:        stage,
		Reason:       reason,
		ErrorType:    ClassifyError(err),
		MaxRetries:   3,
		NextRetryAt:  now.Add(time.Minute),
		CreatedAt:    now,
		LastFailedAt: now,
	}
	if err != nil {
		e.Error = err.Error()
	}
	if reason == DLQReasonAbandoned {
		e.ErrorType = "transient"
	}
	return e
}

// CanRetry reports whether the entry has retries left.
func (e *DLQEntry) CanRetry() bool {
	return e.RetryCount < e.MaxRetries
}

// ClassifyError categorizes an error as "transient" or "permanent".
func ClassifyError(err error) string {
	if IsTransient(err) {
		return "transient"
	}
	return "permanent"
}
