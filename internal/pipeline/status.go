package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/outreach-cli/internal/metrics"
	"github.com/sells-group/outreach-cli/internal/model"
)

// GetStatus returns the campaign's workflow state, including recorded
// partial failures.
func (o *Orchestrator) GetStatus(ctx context.Context, campaignID string) (model.WorkflowState, error) {
	st, err := o.deps.Repo.GetState(ctx, campaignID)
	if err != nil {
		return st, eris.Wrapf(err, "pipeline: status for campaign %s", campaignID)
	}
	return st, nil
}

// Metrics recomputes the campaign report from stored state.
func (o *Orchestrator) Metrics(ctx context.Context, campaignID string) (metrics.Report, error) {
	repo := o.deps.Repo
	in := metrics.Input{CampaignID: campaignID}

	st, err := o.GetStatus(ctx, campaignID)
	if err != nil {
		return metrics.Report{}, err
	}
	in.Errors = len(st.Errors)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		in.Leads, err = repo.ListLeads(gctx, campaignID)
		return eris.Wrap(err, "pipeline: list leads")
	})
	g.Go(func() (err error) {
		in.Sequences, err = repo.ListSequences(gctx, campaignID)
		return eris.Wrap(err, "pipeline: list sequences")
	})
	g.Go(func() (err error) {
		in.Replies, err = repo.ListReplies(gctx, campaignID)
		return eris.Wrap(err, "pipeline: list replies")
	})
	g.Go(func() (err error) {
		in.Calls, err = repo.ListCalls(gctx, campaignID)
		return eris.Wrap(err, "pipeline: list calls")
	})
	g.Go(func() (err error) {
		in.Meetings, err = repo.ListMeetings(gctx, campaignID)
		return eris.Wrap(err, "pipeline: list meetings")
	})
	if err := g.Wait(); err != nil {
		return metrics.Report{}, err
	}

	return metrics.Aggregate(in, o.now()), nil
}
