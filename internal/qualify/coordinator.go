// Package qualify drives phone qualification calls through their state
// machine and turns a highly interested prospect into a booking request.
package qualify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/internal/validate"
)

// Outcome is what the dialer learned on the call.
type Outcome struct {
	Answered bool
	Declined bool
	BANT     model.BANT
	Notes    string
	Duration time.Duration
}

// Dialer places a call and runs the qualification conversation.
type Dialer interface {
	Dial(ctx context.Context, call model.QualificationCall, lead model.Lead) (Outcome, error)
}

// Coordinator schedules and runs qualification calls.
type Coordinator struct {
	dialer  Dialer
	guard   *resilience.Guard
	region  string
	booking config.BookingConfig
	now     func() time.Time
	log     *zap.Logger
}

// NewCoordinator creates a Coordinator. Dials go through guard's circuit
// breaker but are attempted once; a failed call is the orchestrator's to
// handle.
func NewCoordinator(dialer Dialer, qcfg config.QualificationConfig, bcfg config.BookingConfig, guard *resilience.Guard) *Coordinator {
	return &Coordinator{
		dialer:  dialer,
		guard:   guard.WithoutRetry(),
		region:  qcfg.DefaultRegion,
		booking: bcfg,
		now:     time.Now,
		log:     zap.L().With(zap.String("component", "qualify")),
	}
}

var transitions = map[model.CallStatus][]model.CallStatus{
	model.CallScheduled:  {model.CallInProgress, model.CallFailed},
	model.CallInProgress: {model.CallCompleted, model.CallFailed, model.CallNoAnswer},
}

// CanTransition reports whether a call may move from one status to another.
func CanTransition(from, to model.CallStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func transition(call *model.QualificationCall, to model.CallStatus) error {
	if !CanTransition(call.Status, to) {
		return eris.Errorf("qualify: invalid call transition %s -> %s", call.Status, to)
	}
	call.Status = to
	return nil
}

// Schedule creates a call for a lead. A lead without a dialable phone
// produces a call that has already failed.
func (c *Coordinator) Schedule(campaignID, replyID string, lead model.Lead) model.QualificationCall {
	call := model.QualificationCall{
		ID:          uuid.NewString(),
		CampaignID:  campaignID,
		LeadID:      lead.ID,
		ReplyID:     replyID,
		Status:      model.CallScheduled,
		ScheduledAt: c.now().UTC(),
	}

	phone, err := validate.NormalizeE164(lead.Contact.Phone, c.region)
	if err != nil {
		call.Status = model.CallFailed
		call.FailureReason = err.Error()
		call.EndedAt = call.ScheduledAt
		return call
	}
	call.Phone = phone
	return call
}

// Run executes a scheduled call. Failed and NoAnswer are terminal and never
// retried here. A dialer error is returned after the call is marked failed.
func (c *Coordinator) Run(ctx context.Context, call model.QualificationCall, lead model.Lead) (model.QualificationCall, error) {
	if call.Status.Terminal() {
		return call, nil
	}
	if err := transition(&call, model.CallInProgress); err != nil {
		return call, err
	}
	call.StartedAt = c.now().UTC()

	out, err := resilience.GuardVal(ctx, c.guard, "dialer", "dial", func(ctx context.Context) (Outcome, error) {
		return c.dialer.Dial(ctx, call, lead)
	})
	if err != nil {
		_ = transition(&call, model.CallFailed)
		call.FailureReason = err.Error()
		call.EndedAt = c.now().UTC()
		return call, err
	}

	if !out.Answered {
		_ = transition(&call, model.CallNoAnswer)
		call.EndedAt = c.now().UTC()
		c.log.Info("call not answered", zap.String("lead_id", lead.ID), zap.String("call_id", call.ID))
		return call, nil
	}

	_ = transition(&call, model.CallCompleted)
	call.EndedAt = call.StartedAt.Add(out.Duration)
	bant := out.BANT
	call.BANT = &bant
	call.Interest = Assess(out.BANT, out.Declined)
	call.Summary = Summary(call, lead, out)
	if call.Interest == model.InterestHigh {
		req := c.bookingRequest(call, lead)
		call.Booking = &req
	}

	c.log.Info("qualification call completed",
		zap.String("lead_id", lead.ID),
		zap.String("call_id", call.ID),
		zap.String("interest", string(call.Interest)),
		zap.Int("bant_met", out.BANT.Met()),
	)
	return call, nil
}

// Assess maps a BANT pass to an interest level: all four criteria is High,
// two or three is Medium, fewer is Low. A declining prospect is
// NotInterested regardless of BANT.
func Assess(b model.BANT, declined bool) model.InterestLevel {
	if declined {
		return model.InterestNotInterested
	}
	switch met := b.Met(); {
	case met == 4:
		return model.InterestHigh
	case met >= 2:
		return model.InterestMedium
	default:
		return model.InterestLow
	}
}

func (c *Coordinator) bookingRequest(call model.QualificationCall, lead model.Lead) model.BookingRequest {
	tz := c.booking.Timezone
	if tz == "" {
		tz = "UTC"
	}
	days := c.booking.LookaheadDays
	if days <= 0 {
		days = 5
	}
	start := call.EndedAt
	if start.IsZero() {
		start = c.now().UTC()
	}
	return model.BookingRequest{
		ID:            uuid.NewString(),
		CampaignID:    call.CampaignID,
		LeadID:        lead.ID,
		CallID:        call.ID,
		AttendeeName:  lead.Contact.FullName(),
		AttendeeEmail: lead.Contact.Email,
		Company:       lead.Contact.Company,
		Title:         lead.Contact.Title,
		Notes:         call.Summary,
		Window: model.WindowSpec{
			Start:           start,
			End:             start.AddDate(0, 0, days),
			Timezone:        tz,
			DurationMinutes: c.booking.MeetingMinutes,
		},
	}
}

// Summary renders the call notes kept as the CRM activity description.
func Summary(call model.QualificationCall, lead model.Lead, out Outcome) string {
	yesNo := func(a model.BANTAnswer, yes, no string) string {
		s := no
		if a.Qualified {
			s = yes
		}
		if a.Notes != "" {
			s += " (" + a.Notes + ")"
		}
		return s
	}

	var b strings.Builder
	b.WriteString("Call Summary:\n")
	fmt.Fprintf(&b, "- Prospect: %s, %s\n", lead.Contact.FullName(), lead.Contact.Company)
	fmt.Fprintf(&b, "- Duration: %d minutes\n", int(out.Duration.Minutes()))
	fmt.Fprintf(&b, "- Interest Level: %s\n", call.Interest)
	fmt.Fprintf(&b, "- Budget: %s\n", yesNo(out.BANT.Budget, "Allocated", "Not allocated"))
	fmt.Fprintf(&b, "- Authority: %s\n", yesNo(out.BANT.Authority, "Decision maker", "Needs approval"))
	fmt.Fprintf(&b, "- Need: %s\n", yesNo(out.BANT.Need, "Confirmed", "Unclear"))
	fmt.Fprintf(&b, "- Timeline: %s\n", yesNo(out.BANT.Timeline, "Within the quarter", "Undefined"))
	if out.Notes != "" {
		fmt.Fprintf(&b, "- Notes: %s\n", out.Notes)
	}
	next := "Nurture"
	if call.Interest == model.InterestHigh {
		next = "Book discovery call"
	}
	fmt.Fprintf(&b, "- Next Step: %s", next)
	return b.String()
}
