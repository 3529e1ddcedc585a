package pipeline

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/resilience"
)

// Run starts the reply poll loop over every running campaign. It returns
// once the loop is scheduled. The loop keeps ctx's values but not its
// cancellation: only Stop ends it, so in-flight replies get the stop
// deadline to finish.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sched != nil {
		return eris.New("pipeline: already running")
	}

	interval := time.Duration(o.cfg.Orchestrator.PollIntervalSecs) * time.Second
	s := NewScheduler(interval, o.pollAll)
	if err := s.Start(context.WithoutCancel(ctx)); err != nil {
		return err
	}
	o.sched = s
	o.log.Info("pipeline: poll loop started", zap.Duration("interval", interval))
	return nil
}

func (o *Orchestrator) pollAll(ctx context.Context) {
	campaigns, err := o.deps.Repo.ListCampaigns(ctx)
	if err != nil {
		o.log.Error("pipeline: list campaigns", zap.Error(err))
		return
	}
	for _, c := range campaigns {
		if c.Status != model.CampaignRunning {
			continue
		}
		if ctx.Err() != nil {
			return
		}
		if err := o.Tick(ctx, c.ID); err != nil {
			o.log.Error("pipeline: tick failed", zap.String("campaign_id", c.ID), zap.Error(err))
		}
	}
}

// Stop ends the poll loop, letting in-flight replies finish. When ctx
// expires first, the remaining replies are cancelled, dead-lettered as
// abandoned and reported in an *AbandonedError. Replies left in flight by a
// loop that ended on its own are reported the same way.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.mu.Lock()
	s := o.sched
	o.sched = nil
	o.mu.Unlock()
	if s == nil {
		return nil
	}

	stopErr := s.Stop(ctx)
	abandoned := o.takeInflight()
	if len(abandoned) == 0 {
		if stopErr == nil {
			o.log.Info("pipeline: poll loop stopped")
		}
		return stopErr
	}
	cause := stopErr
	if cause == nil {
		cause = eris.Wrap(context.Canceled, "pipeline: poll loop ended with replies in flight")
	}
	sort.Slice(abandoned, func(i, j int) bool {
		if !abandoned[i].ReceivedAt.Equal(abandoned[j].ReceivedAt) {
			return abandoned[i].ReceivedAt.Before(abandoned[j].ReceivedAt)
		}
		return abandoned[i].ID < abandoned[j].ID
	})

	dlqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	ids := make([]string, 0, len(abandoned))
	now := o.now().UTC()
	for _, rp := range abandoned {
		ids = append(ids, rp.ID)
		entry := resilience.NewDLQEntry(rp, model.StageReplyHandling, resilience.DLQReasonAbandoned, cause, now)
		if err := o.deps.Repo.PutDLQ(dlqCtx, entry); err != nil {
			o.log.Error("pipeline: save dead letter", zap.String("reply_id", rp.ID), zap.Error(err))
		}
	}
	o.log.Warn("pipeline: stop abandoned in-flight replies", zap.Strings("reply_ids", ids))
	return &AbandonedError{ReplyIDs: ids}
}
