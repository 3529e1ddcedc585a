package pipeline

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/booking"
	"github.com/sells-group/outreach-cli/internal/channel"
	"github.com/sells-group/outreach-cli/internal/crm"
	"github.com/sells-group/outreach-cli/internal/drafting"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/sequence"
)

// handlers performs the routed side effects for one campaign. Every method
// runs under the reply's lead lock.
type handlers struct {
	o        *Orchestrator
	campaign model.Campaign
}

func (h *handlers) lead(ctx context.Context, reply model.InboundReply) (model.Lead, error) {
	l, err := h.o.deps.Repo.GetLead(ctx, reply.CampaignID, reply.LeadID)
	if err != nil {
		return l, eris.Wrapf(err, "pipeline: load lead %s", reply.LeadID)
	}
	return l, nil
}

func (h *handlers) moveLead(ctx context.Context, l *model.Lead, to model.LeadStatus) error {
	if err := l.Transition(to, h.o.now().UTC()); err != nil {
		return err
	}
	return eris.Wrap(h.o.deps.Repo.PutLead(ctx, *l), "pipeline: save lead")
}

// TriggerQualificationCall runs the qualification call and, for a highly
// interested prospect, books the meeting and syncs it to the CRM.
func (h *handlers) TriggerQualificationCall(ctx context.Context, reply model.InboundReply) error {
	o := h.o
	l, err := h.lead(ctx, reply)
	if err != nil {
		return err
	}
	if err := h.moveLead(ctx, &l, model.LeadStatusQualifying); err != nil {
		return err
	}
	o.emit(ctx, model.MilestoneEvent{
		CampaignID: reply.CampaignID,
		Kind:       model.MilestonePositiveReply,
		Title:      "Positive reply",
		Message:    fmt.Sprintf("%s at %s replied with interest", l.Contact.FullName(), l.Contact.Company),
		LeadID:     l.ID,
		Fields: map[string]string{
			"Channel":    string(reply.Channel),
			"Confidence": fmt.Sprintf("%d%%", reply.Classification.Confidence),
			"Reply":      truncate(reply.Text, 200),
		},
	})

	call := o.deps.Qualifier.Schedule(reply.CampaignID, reply.ID, l)
	call, err = o.deps.Qualifier.Run(ctx, call, l)
	if perr := o.deps.Repo.PutCall(context.WithoutCancel(ctx), call); perr != nil {
		o.log.Error("pipeline: save call", zap.String("call_id", call.ID), zap.Error(perr))
	}
	if err != nil {
		return atStage(model.StageQualification, err)
	}
	_ = o.updateState(ctx, reply.CampaignID, func(st *model.WorkflowState) {
		st.Advance(model.StageQualification, o.now().UTC())
	})

	if call.Status != model.CallCompleted {
		o.log.Info("pipeline: qualification call ended without a conversation",
			zap.String("lead_id", l.ID),
			zap.String("call_status", string(call.Status)),
			zap.String("reason", call.FailureReason),
		)
		return nil
	}
	o.emit(ctx, model.MilestoneEvent{
		CampaignID: reply.CampaignID,
		Kind:       model.MilestoneCallCompleted,
		Title:      "Qualification call completed",
		Message:    call.Summary,
		LeadID:     l.ID,
		Fields: map[string]string{
			"Interest": string(call.Interest),
			"BANT met": fmt.Sprintf("%d/4", call.BANT.Met()),
		},
	})

	switch call.Interest {
	case model.InterestHigh:
		return h.book(ctx, l, call)
	case model.InterestMedium:
		return nil
	default:
		if err := h.moveLead(ctx, &l, model.LeadStatusClosed); err != nil {
			return err
		}
		return h.o.setSequence(ctx, l.CampaignID, l.ID, stopSeq)
	}
}

func (h *handlers) book(ctx context.Context, l model.Lead, call model.QualificationCall) error {
	o := h.o
	if call.Booking == nil {
		return atStage(model.StageBooking, eris.Errorf("pipeline: call %s has no booking request", call.ID))
	}
	m, err := o.deps.Booker.Book(ctx, *call.Booking)
	if err != nil {
		return atStage(model.StageBooking, err)
	}
	if err := o.deps.Repo.PutMeeting(ctx, m); err != nil {
		return atStage(model.StageBooking, eris.Wrap(err, "pipeline: save meeting"))
	}
	_ = o.updateState(ctx, l.CampaignID, func(st *model.WorkflowState) {
		st.Advance(model.StageBooking, o.now().UTC())
	})

	subject, body := booking.Confirmation(m, l.Contact.FullName())
	if _, err := o.deps.Sender.Send(ctx, channel.Message{
		LeadID:     l.ID,
		Channel:    model.ChannelEmail,
		To:         l.Contact.Email,
		ToName:     l.Contact.FullName(),
		Subject:    subject,
		Body:       body,
		TemplateID: "meeting-confirmation",
	}); err != nil {
		o.log.Warn("pipeline: meeting confirmation not sent",
			zap.String("lead_id", l.ID),
			zap.String("meeting_id", m.ID),
			zap.Error(err),
		)
	}

	h.syncCRM(ctx, &l, m, call.Summary)

	if err := h.moveLead(ctx, &l, model.LeadStatusQualified); err != nil {
		return err
	}
	if err := o.setSequence(ctx, l.CampaignID, l.ID, stopSeq); err != nil {
		return err
	}

	o.emit(ctx, model.MilestoneEvent{
		CampaignID: l.CampaignID,
		Kind:       model.MilestoneMeetingBooked,
		Title:      "Meeting booked",
		Message:    fmt.Sprintf("%s with %s", m.Title, l.Contact.Company),
		LeadID:     l.ID,
		Fields: map[string]string{
			"When":  m.Slot.Start.Format("Mon Jan 2 15:04 MST"),
			"Score": fmt.Sprintf("%d", l.Score),
			"Link":  m.Event.Link,
		},
	})
	return nil
}

// syncCRM upserts the qualified lead and logs the meeting. The meeting is
// already booked, so CRM failures are recorded without failing the reply.
func (h *handlers) syncCRM(ctx context.Context, l *model.Lead, m model.Meeting, summary string) {
	o := h.o
	ref, err := o.deps.CRM.UpsertLead(ctx, crm.LeadRecord{
		Lead:    *l,
		Stage:   crm.StageQualified,
		Summary: summary,
		Meeting: &m,
	})
	if err == nil {
		l.CRMRef = ref.ID
		err = o.deps.CRM.LogActivity(ctx, crm.MeetingActivity(ref, m, summary))
	}
	if err != nil {
		o.log.Error("pipeline: crm sync failed", zap.String("lead_id", l.ID), zap.Error(err))
		o.recordError(ctx, l.CampaignID, model.StageError{
			Stage:   model.StageCRMSync,
			LeadID:  l.ID,
			Message: err.Error(),
		})
		o.emit(ctx, model.MilestoneEvent{
			CampaignID: l.CampaignID,
			Kind:       model.MilestoneSystemError,
			Title:      "CRM sync failed",
			Message:    err.Error(),
			LeadID:     l.ID,
			Fields:     map[string]string{"Stage": string(model.StageCRMSync)},
		})
		return
	}
	_ = o.updateState(ctx, l.CampaignID, func(st *model.WorkflowState) {
		st.Advance(model.StageCRMSync, o.now().UTC())
	})
}

// SendFollowup answers a neutral reply or question.
func (h *handlers) SendFollowup(ctx context.Context, reply model.InboundReply) error {
	return h.respond(ctx, reply, "followup")
}

// HandleObjection answers an objection from the playbook.
func (h *handlers) HandleObjection(ctx context.Context, reply model.InboundReply) error {
	return h.respond(ctx, reply, "objection")
}

func (h *handlers) respond(ctx context.Context, reply model.InboundReply, kind string) error {
	o := h.o
	l, err := h.lead(ctx, reply)
	if err != nil {
		return err
	}
	body, err := o.deps.Drafter.Draft(ctx, drafting.Request{
		Lead:           l,
		Playbook:       h.campaign.Playbook,
		ReplyText:      reply.Text,
		Classification: *reply.Classification,
	})
	if err != nil {
		return err
	}

	ch := reply.Channel
	if sequence.Address(l.Contact, ch) == "" {
		ch = model.ChannelEmail
	}
	subject := ""
	if ch == model.ChannelEmail {
		subject = "Re: " + l.Contact.Company
	}
	_, err = o.deps.Sender.Send(ctx, channel.Message{
		LeadID:     l.ID,
		Channel:    ch,
		To:         sequence.Address(l.Contact, ch),
		ToName:     l.Contact.FullName(),
		Subject:    subject,
		Body:       body,
		TemplateID: kind,
	})
	return atStage(model.StageReplyHandling, err)
}

// CloseLoop ends outreach to a lead that opted out.
func (h *handlers) CloseLoop(ctx context.Context, reply model.InboundReply) error {
	l, err := h.lead(ctx, reply)
	if err != nil {
		return err
	}
	if err := h.o.setSequence(ctx, l.CampaignID, l.ID, stopSeq); err != nil {
		return err
	}
	return h.moveLead(ctx, &l, model.LeadStatusClosed)
}

// Archive files the reply. An out-of-office reply resumes the sequence only
// when this reply paused it; operator and objection pauses stay.
func (h *handlers) Archive(ctx context.Context, reply model.InboundReply) error {
	if reply.Classification.Intent != model.IntentOutOfOffice {
		return nil
	}
	return h.o.setSequence(ctx, reply.CampaignID, reply.LeadID, resumeIfPausedBy(reply.ID))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
