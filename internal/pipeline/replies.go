package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/internal/router"
	"github.com/sells-group/outreach-cli/internal/store"
)

// EnqueueReply validates a reply and appends it to the campaign inbox. Lead
// state is never touched here; the poll loop consumes the inbox.
func (o *Orchestrator) EnqueueReply(ctx context.Context, reply model.InboundReply) (string, error) {
	if err := o.deps.Validator.Reply(reply); err != nil {
		return "", err
	}
	if _, err := o.deps.Repo.GetCampaign(ctx, reply.CampaignID); err != nil {
		if store.IsNotFound(err) {
			return "", &model.ValidationError{Entity: "reply", Fields: []model.FieldError{{Field: "campaign_id", Reason: "unknown campaign"}}}
		}
		return "", eris.Wrap(err, "pipeline: load campaign")
	}
	if _, err := o.deps.Repo.GetLead(ctx, reply.CampaignID, reply.LeadID); err != nil {
		if store.IsNotFound(err) {
			return "", &model.ValidationError{Entity: "reply", Fields: []model.FieldError{{Field: "lead_id", Reason: "unknown lead"}}}
		}
		return "", eris.Wrap(err, "pipeline: load lead")
	}

	rp, _, err := o.deps.Repo.Enqueue(ctx, reply)
	if err != nil {
		return "", eris.Wrap(err, "pipeline: enqueue reply")
	}
	o.log.Debug("pipeline: reply enqueued",
		zap.String("campaign_id", rp.CampaignID),
		zap.String("lead_id", rp.LeadID),
		zap.String("reply_id", rp.ID),
	)
	return rp.ID, nil
}

// Tick runs one poll iteration for a running campaign: new replies are
// classified and routed in per-lead lanes, then due sequence steps are sent.
// Replies behind the cursor that never finished are picked up again. A
// failing reply is recorded and never stops the others.
func (o *Orchestrator) Tick(ctx context.Context, campaignID string) error {
	c, err := o.deps.Repo.GetCampaign(ctx, campaignID)
	if err != nil {
		return eris.Wrapf(err, "pipeline: load campaign %s", campaignID)
	}
	if c.Status != model.CampaignRunning {
		return nil
	}

	items, err := o.deps.Repo.FetchPending(ctx, c.ID, c.ReplyCursor)
	if err != nil {
		return atStage(model.StageReplyHandling, eris.Wrap(err, "pipeline: fetch replies"))
	}

	if len(items) > 0 {
		if err := o.handleReplies(ctx, c, items); err != nil {
			return err
		}
		fresh, err := o.deps.Repo.GetCampaign(ctx, c.ID)
		if err != nil {
			return eris.Wrap(err, "pipeline: reload campaign")
		}
		if last := items[len(items)-1].Cursor; last > fresh.ReplyCursor {
			fresh.ReplyCursor = last
			if err := o.deps.Repo.PutCampaign(ctx, fresh); err != nil {
				return eris.Wrap(err, "pipeline: save reply cursor")
			}
		}
		c = fresh
	}

	return o.advanceDue(ctx, c)
}

func (o *Orchestrator) handleReplies(ctx context.Context, c model.Campaign, items []store.InboxItem) error {
	var pending []model.InboundReply
	for _, it := range items {
		rp := it.Reply
		if saved, err := o.deps.Repo.GetReply(ctx, c.ID, rp.ID); err == nil {
			rp = saved
		}
		if rp.Status.Terminal() {
			continue
		}
		pending = append(pending, rp)
	}
	if len(pending) == 0 {
		return nil
	}
	// Inbox order is write order; lanes follow receipt time.
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].ReceivedAt.Before(pending[j].ReceivedAt)
	})

	o.track(pending...)
	r := router.New(&handlers{o: o, campaign: c})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, o.cfg.Orchestrator.MaxConcurrentLeads))
	for _, lane := range router.Partition(pending) {
		g.Go(func() error {
			unlock := o.lockLead(c.ID, lane[0].LeadID)
			defer unlock()
			for _, rp := range lane {
				if err := gctx.Err(); err != nil {
					return err
				}
				o.processReply(gctx, r, rp)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "pipeline: reply lanes")
	}
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "pipeline: reply lanes")
	}

	if err := o.updateState(ctx, c.ID, func(st *model.WorkflowState) {
		st.Advance(model.StageReplyHandling, o.now().UTC())
	}); err != nil {
		o.log.Warn("pipeline: update state", zap.String("campaign_id", c.ID), zap.Error(err))
	}
	return nil
}

// processReply classifies and routes one reply. Panics and errors are
// contained here. Work interrupted by cancellation is left in flight.
func (o *Orchestrator) processReply(ctx context.Context, r *router.Router, rp model.InboundReply) {
	log := o.log.With(
		zap.String("campaign_id", rp.CampaignID),
		zap.String("lead_id", rp.LeadID),
		zap.String("reply_id", rp.ID),
	)

	out, err := o.runReply(ctx, r, rp)
	if err != nil {
		if ctx.Err() != nil {
			log.Warn("pipeline: reply interrupted", zap.Error(err))
			return
		}
		// out is empty when the reply panicked.
		if out.ID == "" {
			out = rp
		}
		o.failReply(ctx, out, err)
		o.untrack(rp.ID)
		return
	}

	if err := o.deps.Repo.PutReply(ctx, out); err != nil {
		log.Error("pipeline: save reply", zap.Error(err))
	}
	o.untrack(rp.ID)

	intent := ""
	if out.Classification != nil {
		intent = string(out.Classification.Intent)
	}
	log.Info("pipeline: reply handled",
		zap.String("intent", intent),
		zap.String("status", string(out.Status)),
	)
}

func (o *Orchestrator) runReply(ctx context.Context, r *router.Router, rp model.InboundReply) (out model.InboundReply, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = eris.Errorf("pipeline: reply %s panicked: %v", rp.ID, p)
		}
	}()

	res := o.deps.Classifier(rp.Text)
	rp.Classification = &res
	rp.Status = model.ReplyClassified
	if res.Ambiguous {
		o.log.Debug("pipeline: defaulting to neutral",
			zap.String("reply_id", rp.ID),
			zap.Error(model.ErrClassificationAmbiguous),
		)
	}
	if err := o.deps.Repo.PutReply(ctx, rp); err != nil {
		return rp, eris.Wrap(err, "pipeline: save classified reply")
	}

	lead, err := o.deps.Repo.GetLead(ctx, rp.CampaignID, rp.LeadID)
	if err != nil {
		return rp, eris.Wrapf(err, "pipeline: load lead %s", rp.LeadID)
	}
	if lead.Status.Terminal() {
		rp.Status = model.ReplyArchived
		o.log.Info("pipeline: reply from finished lead archived",
			zap.String("reply_id", rp.ID),
			zap.String("lead_status", string(lead.Status)),
		)
		return rp, nil
	}

	if lead.Status.Rank() < model.LeadStatusReplied.Rank() {
		if err := lead.Transition(model.LeadStatusReplied, o.now().UTC()); err != nil {
			return rp, err
		}
		if err := o.deps.Repo.PutLead(ctx, lead); err != nil {
			return rp, eris.Wrap(err, "pipeline: save lead")
		}
	}
	if err := o.setSequence(ctx, rp.CampaignID, rp.LeadID, pauseBy(rp.ID)); err != nil && !store.IsNotFound(err) {
		return rp, err
	}

	return r.Route(ctx, rp)
}

func (o *Orchestrator) failReply(ctx context.Context, rp model.InboundReply, cause error) {
	ctx = context.WithoutCancel(ctx)
	stage := stageOf(cause, model.StageReplyHandling)

	rp.Status = model.ReplyFailed
	rp.Error = cause.Error()
	if err := o.deps.Repo.PutReply(ctx, rp); err != nil {
		o.log.Error("pipeline: save failed reply", zap.String("reply_id", rp.ID), zap.Error(err))
	}

	o.log.Error("pipeline: reply failed",
		zap.String("campaign_id", rp.CampaignID),
		zap.String("lead_id", rp.LeadID),
		zap.String("reply_id", rp.ID),
		zap.String("stage", string(stage)),
		zap.Error(cause),
	)
	o.recordError(ctx, rp.CampaignID, model.StageError{
		Stage:   stage,
		LeadID:  rp.LeadID,
		ReplyID: rp.ID,
		Message: cause.Error(),
	})

	entry := resilience.NewDLQEntry(rp, stage, resilience.DLQReasonFailed, cause, o.now().UTC())
	if err := o.deps.Repo.PutDLQ(ctx, entry); err != nil {
		o.log.Error("pipeline: save dead letter", zap.String("reply_id", rp.ID), zap.Error(err))
	}

	o.emit(ctx, model.MilestoneEvent{
		CampaignID: rp.CampaignID,
		Kind:       model.MilestoneSystemError,
		Title:      "Reply processing failed",
		Message:    fmt.Sprintf("Reply %s failed at %s: %v", rp.ID, stage, cause),
		LeadID:     rp.LeadID,
		Fields:     map[string]string{"Stage": string(stage)},
	})
}

func (o *Orchestrator) track(replies ...model.InboundReply) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, rp := range replies {
		o.inflight[rp.ID] = rp
	}
}

func (o *Orchestrator) untrack(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inflight, id)
}

// takeInflight returns and clears the replies still in flight.
func (o *Orchestrator) takeInflight() []model.InboundReply {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]model.InboundReply, 0, len(o.inflight))
	for _, rp := range o.inflight {
		out = append(out, rp)
	}
	o.inflight = make(map[string]model.InboundReply)
	return out
}
