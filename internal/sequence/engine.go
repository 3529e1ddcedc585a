// Package sequence advances per-lead outbound touch sequences one step at a
// time.
package sequence

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/channel"
	"github.com/sells-group/outreach-cli/internal/drafting"
	"github.com/sells-group/outreach-cli/internal/model"
)

// Recipient is what a step needs to address and personalise a message.
type Recipient struct {
	Lead     model.Lead
	Playbook model.Playbook
}

// Engine executes sequence steps through a channel sender.
type Engine struct {
	sender channel.Sender
	day    time.Duration
	now    func() time.Time
	log    *zap.Logger
}

// NewEngine creates an Engine. day is the length of one sequence day, which
// is shortened in tests and demos.
func NewEngine(sender channel.Sender, day time.Duration) *Engine {
	if day <= 0 {
		day = 24 * time.Hour
	}
	return &Engine{
		sender: sender,
		day:    day,
		now:    time.Now,
		log:    zap.L().With(zap.String("component", "sequence")),
	}
}

// Start creates an active sequence for a lead positioned at step 1.
func (e *Engine) Start(campaignID, leadID string, steps []model.SequenceStep) model.OutboundSequence {
	seq := model.OutboundSequence{
		ID:          uuid.NewString(),
		CampaignID:  campaignID,
		LeadID:      leadID,
		Steps:       append([]model.SequenceStep(nil), steps...),
		CurrentStep: 1,
		Status:      model.SequenceActive,
		StartedAt:   e.now().UTC(),
	}
	if seq.Done() {
		seq.Status = model.SequenceCompleted
	}
	return seq
}

// Advance executes the step at the cursor and moves the cursor forward
// whether or not delivery succeeded. Completed, stopped and paused sequences
// are returned unchanged. Delivery failures are recorded in the history and
// logged, never returned. A cancelled context or a cursor before step 1 is
// an error, and the sequence is returned unchanged.
func (e *Engine) Advance(ctx context.Context, seq model.OutboundSequence, r Recipient) (model.OutboundSequence, error) {
	if seq.Status != model.SequenceActive {
		return seq, nil
	}
	if !seq.ValidCursor() {
		return seq, eris.Errorf("sequence: lead %s has invalid step cursor %d", seq.LeadID, seq.CurrentStep)
	}
	if seq.Done() {
		seq.Status = model.SequenceCompleted
		return seq, nil
	}
	if err := ctx.Err(); err != nil {
		return seq, err
	}

	next := clone(seq)
	step := next.Steps[next.CurrentStep-1]
	now := e.now().UTC()

	vars := drafting.LeadVars(r.Lead, r.Playbook)
	msg := channel.Message{
		LeadID:     next.LeadID,
		Channel:    step.Channel,
		To:         Address(r.Lead.Contact, step.Channel),
		ToName:     r.Lead.Contact.FullName(),
		Subject:    drafting.Render(step.Subject, vars),
		Body:       drafting.Render(step.Template, vars),
		TemplateID: templateID(step),
	}

	attempt := model.StepAttempt{StepNumber: step.StepNumber, Channel: step.Channel, At: now}
	res, err := e.sender.Send(ctx, msg)
	if err != nil {
		attempt.Error = err.Error()
		e.log.Warn("step delivery failed",
			zap.String("lead_id", next.LeadID),
			zap.Int("step", step.StepNumber),
			zap.String("channel", string(step.Channel)),
			zap.Error(err),
		)
	} else {
		attempt.Delivered = true
		attempt.MessageID = res.MessageID
	}

	next.History = append(next.History, attempt)
	next.CurrentStep++
	next.LastSentAt = now
	if next.Done() {
		next.Status = model.SequenceCompleted
		e.log.Info("sequence completed",
			zap.String("lead_id", next.LeadID),
			zap.Int("steps", len(next.Steps)),
		)
	}
	return next, nil
}

// Due reports whether the step at the cursor is ready to run at now. A
// sequence with an invalid cursor is never due.
func (e *Engine) Due(seq model.OutboundSequence, now time.Time) bool {
	if seq.Status != model.SequenceActive || !seq.ValidCursor() || seq.Done() {
		return false
	}
	ref := seq.StartedAt
	if !seq.LastSentAt.IsZero() {
		ref = seq.LastSentAt
	}
	delay := time.Duration(seq.Steps[seq.CurrentStep-1].DelayDays) * e.day
	return !now.Before(ref.Add(delay))
}

// Pause freezes an active sequence on behalf of by. The cursor is untouched
// and an already paused sequence keeps its original owner.
func Pause(seq model.OutboundSequence, by string) model.OutboundSequence {
	if seq.Status == model.SequenceActive {
		seq.Status = model.SequencePaused
		seq.PausedBy = by
	}
	return seq
}

// Resume unfreezes a paused sequence.
func Resume(seq model.OutboundSequence) model.OutboundSequence {
	if seq.Status == model.SequencePaused {
		seq.Status = model.SequenceActive
		seq.PausedBy = ""
		if seq.Done() {
			seq.Status = model.SequenceCompleted
		}
	}
	return seq
}

// Stop ends a sequence permanently unless it already completed.
func Stop(seq model.OutboundSequence) model.OutboundSequence {
	if seq.Status != model.SequenceCompleted {
		seq.Status = model.SequenceStopped
	}
	return seq
}

func clone(seq model.OutboundSequence) model.OutboundSequence {
	seq.Steps = append([]model.SequenceStep(nil), seq.Steps...)
	seq.History = append([]model.StepAttempt(nil), seq.History...)
	return seq
}

// Address returns the contact handle used on a channel.
func Address(c model.Contact, ch model.Channel) string {
	switch ch {
	case model.ChannelLinkedIn:
		return c.LinkedInURL
	case model.ChannelSMS, model.ChannelPhone:
		return c.Phone
	default:
		return c.Email
	}
}

func templateID(step model.SequenceStep) string {
	return string(step.Channel) + "-" + strconv.Itoa(step.StepNumber)
}
