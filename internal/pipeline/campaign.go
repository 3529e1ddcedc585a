package pipeline

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/enrich"
	"github.com/sells-group/outreach-cli/internal/icp"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/scoring"
	"github.com/sells-group/outreach-cli/internal/sequence"
	"github.com/sells-group/outreach-cli/internal/source"
	"github.com/sells-group/outreach-cli/internal/store"
)

// StartCampaign runs the one-shot stages for a new campaign: playbook,
// sourcing, enrichment and scoring, and sequence launch for eligible tiers.
// Any failure in these stages fails the campaign and is returned. An invalid
// profile is rejected before a campaign is created; later failures return
// the campaign ID alongside the error so the failed state can be queried.
func (o *Orchestrator) StartCampaign(ctx context.Context, clientID string, profile model.TargetProfile) (string, error) {
	if len(profile.Channels) == 0 {
		for _, ch := range o.cfg.Campaign.Channels {
			profile.Channels = append(profile.Channels, model.Channel(ch))
		}
	}
	pb, err := icp.Build(o.deps.Validator, profile)
	if err != nil {
		return "", err
	}

	now := o.now().UTC()
	c := model.Campaign{
		ID:        uuid.NewString(),
		ClientID:  clientID,
		Profile:   profile,
		Playbook:  pb,
		Status:    model.CampaignInitializing,
		CreatedAt: now,
	}
	st := model.WorkflowState{
		CampaignID: c.ID,
		Status:     model.CampaignInitializing,
		Stage:      model.StageICPDefinition,
		Progress:   model.StageProgress(model.StageICPDefinition),
		Errors:     []model.StageError{},
		UpdatedAt:  now,
	}
	if err := o.deps.Repo.PutCampaign(ctx, c); err != nil {
		return "", eris.Wrap(err, "pipeline: save campaign")
	}
	if err := o.deps.Repo.PutState(ctx, st); err != nil {
		return "", eris.Wrap(err, "pipeline: save workflow state")
	}

	log := o.log.With(zap.String("campaign_id", c.ID), zap.String("client_id", clientID))
	log.Info("pipeline: campaign started",
		zap.Strings("industries", pb.Industries),
		zap.Strings("company_sizes", pb.CompanySizes),
		zap.Int("sequence_length", pb.SequenceLength),
	)

	if err := o.initialize(ctx, &c); err != nil {
		o.failCampaign(ctx, &c, err)
		return c.ID, err
	}
	return c.ID, nil
}

func (o *Orchestrator) initialize(ctx context.Context, c *model.Campaign) error {
	leads, err := o.sourceLeads(ctx, c)
	if err != nil {
		return err
	}

	scored, err := o.enrichAndScore(ctx, c, leads)
	if err != nil {
		return err
	}

	return o.launch(ctx, c, scored)
}

func (o *Orchestrator) sourceLeads(ctx context.Context, c *model.Campaign) ([]model.Lead, error) {
	src := o.deps.Source
	contacts, err := src.Fetch(ctx, c.Playbook)
	if err != nil {
		return nil, atStage(model.StageLeadSourcing, eris.Wrapf(err, "pipeline: source leads from %s", src.Name()))
	}

	valid, rejected := source.Prepare(o.deps.Validator, contacts)
	for _, rj := range rejected {
		o.recordError(ctx, c.ID, model.StageError{
			Stage:   model.StageLeadSourcing,
			Message: fmt.Sprintf("%s: %v", rj.Contact.Email, rj.Err),
		})
	}
	if len(valid) == 0 {
		return nil, atStage(model.StageLeadSourcing, eris.Errorf("pipeline: no valid leads from %s (%d rejected)", src.Name(), len(rejected)))
	}

	now := o.now().UTC()
	leads := make([]model.Lead, 0, len(valid))
	for _, ct := range valid {
		l := model.Lead{
			ID:         uuid.NewString(),
			CampaignID: c.ID,
			Contact:    ct,
			Source:     src.Name(),
			Status:     model.LeadStatusNew,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := o.deps.Repo.PutLead(ctx, l); err != nil {
			return nil, eris.Wrap(err, "pipeline: save lead")
		}
		leads = append(leads, l)
	}

	if err := o.updateState(ctx, c.ID, func(st *model.WorkflowState) {
		st.Advance(model.StageLeadSourcing, now)
		st.CurrentLeadCount = len(leads)
	}); err != nil {
		return nil, eris.Wrap(err, "pipeline: update state")
	}
	o.emit(ctx, model.MilestoneEvent{
		CampaignID: c.ID,
		Kind:       model.MilestoneCampaignProgress,
		Title:      "Leads sourced",
		Message:    fmt.Sprintf("Sourced %d leads from %s", len(leads), src.Name()),
		Fields: map[string]string{
			"Sourced":  strconv.Itoa(len(leads)),
			"Rejected": strconv.Itoa(len(rejected)),
		},
	})
	return leads, nil
}

func (o *Orchestrator) enrichAndScore(ctx context.Context, c *model.Campaign, leads []model.Lead) ([]model.ScoredLead, error) {
	now := o.now().UTC()
	for i := range leads {
		if err := leads[i].Transition(model.LeadStatusEnriching, now); err != nil {
			return nil, err
		}
		if err := o.deps.Repo.PutLead(ctx, leads[i]); err != nil {
			return nil, eris.Wrap(err, "pipeline: save lead")
		}
	}

	enriched, failures, err := enrich.All(ctx, o.deps.Enricher, leads, o.cfg.Orchestrator.EnrichConcurrency)
	if err != nil {
		return nil, atStage(model.StageEnrichment, eris.Wrap(err, "pipeline: enrich leads"))
	}
	for _, f := range failures {
		o.recordError(ctx, c.ID, model.StageError{
			Stage:   model.StageEnrichment,
			LeadID:  f.Lead.ID,
			Message: f.Err.Error(),
		})
		l := f.Lead
		if err := l.Transition(model.LeadStatusClosed, o.now().UTC()); err == nil {
			_ = o.deps.Repo.PutLead(ctx, l)
		}
	}
	if len(enriched) == 0 {
		return nil, atStage(model.StageEnrichment, eris.Errorf("pipeline: enrichment failed for all %d leads", len(leads)))
	}

	engine := scoring.NewEngine(o.cfg.Scoring, scoring.TargetsFromPlaybook(c.Playbook, o.cfg.Scoring))
	scored := engine.ScoreAll(enriched)

	now = o.now().UTC()
	for i := range scored {
		sl := &scored[i]
		data := sl.Enrichment
		l := sl.Lead
		l.Enrichment = &data
		if err := l.Transition(model.LeadStatusEnriched, now); err != nil {
			return nil, err
		}
		l.Score, l.Tier = sl.Score, sl.Tier
		if err := l.Transition(model.LeadStatusScored, now); err != nil {
			return nil, err
		}
		if err := o.deps.Repo.PutLead(ctx, l); err != nil {
			return nil, eris.Wrap(err, "pipeline: save lead")
		}
		sl.Lead = l

		if sl.Tier == model.Tier1 {
			o.emit(ctx, model.MilestoneEvent{
				CampaignID: c.ID,
				Kind:       model.MilestoneHighValueLead,
				Title:      "High value lead",
				Message:    fmt.Sprintf("%s at %s scored %d", l.Contact.FullName(), l.Contact.Company, sl.Score),
				LeadID:     l.ID,
				Fields: map[string]string{
					"Score":    strconv.Itoa(sl.Score),
					"Title":    l.Contact.Title,
					"Industry": data.Company.Industry,
				},
			})
		}
	}

	segments := scoring.Segment(scored)
	o.log.Info("pipeline: leads scored",
		zap.String("campaign_id", c.ID),
		zap.Int("enriched", len(enriched)),
		zap.Int("tier1", len(segments[model.Tier1])),
		zap.Int("tier2", len(segments[model.Tier2])),
		zap.Int("tier3", len(segments[model.Tier3])),
		zap.Int("tier4", len(segments[model.Tier4])),
	)
	if err := o.updateState(ctx, c.ID, func(st *model.WorkflowState) {
		st.Advance(model.StageEnrichment, now)
	}); err != nil {
		return nil, eris.Wrap(err, "pipeline: update state")
	}
	return scored, nil
}

func (o *Orchestrator) eligible(t model.Tier) bool {
	tiers := o.cfg.Campaign.EligibleTiers
	if len(tiers) == 0 {
		tiers = []int{int(model.Tier1), int(model.Tier2)}
	}
	for _, e := range tiers {
		if model.Tier(e) == t {
			return true
		}
	}
	return false
}

func (o *Orchestrator) launch(ctx context.Context, c *model.Campaign, scored []model.ScoredLead) error {
	steps := sequence.DefaultSteps(c.Playbook.Channels)
	launched := 0
	for _, sl := range scored {
		if !o.eligible(sl.Tier) {
			continue
		}
		seq := o.seq.Start(c.ID, sl.Lead.ID, steps)
		if err := o.deps.Repo.PutSequence(ctx, seq); err != nil {
			return eris.Wrap(err, "pipeline: save sequence")
		}
		if err := o.advanceSequence(ctx, *c, seq); err != nil {
			return atStage(model.StageOutbound, err)
		}
		launched++
	}

	now := o.now().UTC()
	c.Status = model.CampaignRunning
	c.LaunchedAt = now
	if err := o.deps.Repo.PutCampaign(ctx, *c); err != nil {
		return eris.Wrap(err, "pipeline: save campaign")
	}
	if err := o.updateState(ctx, c.ID, func(st *model.WorkflowState) {
		st.Advance(model.StageOutbound, now)
		st.Status = model.CampaignRunning
	}); err != nil {
		return eris.Wrap(err, "pipeline: update state")
	}

	o.log.Info("pipeline: campaign launched",
		zap.String("campaign_id", c.ID),
		zap.Int("launched", launched),
		zap.Int("scored", len(scored)),
	)
	o.emit(ctx, model.MilestoneEvent{
		CampaignID: c.ID,
		Kind:       model.MilestoneCampaignProgress,
		Title:      "Campaign launched",
		Message:    fmt.Sprintf("Launched outbound sequences for %d of %d scored leads", launched, len(scored)),
		Fields: map[string]string{
			"Launched": strconv.Itoa(launched),
			"Scored":   strconv.Itoa(len(scored)),
			"Steps":    strconv.Itoa(len(steps)),
		},
	})
	return nil
}

// advanceSequence runs the sequence's next step if it is due and moves the
// lead to Outreached on its first touch. The caller holds the lead lock or
// owns the lead exclusively.
func (o *Orchestrator) advanceSequence(ctx context.Context, c model.Campaign, seq model.OutboundSequence) error {
	if !o.seq.Due(seq, o.now()) {
		return nil
	}
	lead, err := o.deps.Repo.GetLead(ctx, c.ID, seq.LeadID)
	if err != nil {
		return eris.Wrapf(err, "pipeline: load lead %s", seq.LeadID)
	}

	next, err := o.seq.Advance(ctx, seq, sequence.Recipient{Lead: lead, Playbook: c.Playbook})
	if err != nil {
		return eris.Wrapf(err, "pipeline: advance sequence for lead %s", seq.LeadID)
	}
	if err := o.deps.Repo.PutSequence(ctx, next); err != nil {
		return eris.Wrap(err, "pipeline: save sequence")
	}

	if lead.Status.Rank() < model.LeadStatusOutreached.Rank() {
		if err := lead.Transition(model.LeadStatusOutreached, o.now().UTC()); err != nil {
			return err
		}
		if err := o.deps.Repo.PutLead(ctx, lead); err != nil {
			return eris.Wrap(err, "pipeline: save lead")
		}
	}
	return nil
}

func (o *Orchestrator) failCampaign(ctx context.Context, c *model.Campaign, cause error) {
	ctx = context.WithoutCancel(ctx)
	c.Status = model.CampaignFailed
	if err := o.deps.Repo.PutCampaign(ctx, *c); err != nil {
		o.log.Error("pipeline: save failed campaign", zap.String("campaign_id", c.ID), zap.Error(err))
	}

	stage := stageOf(cause, model.StageICPDefinition)
	err := o.updateState(ctx, c.ID, func(st *model.WorkflowState) {
		st.Status = model.CampaignFailed
		st.Errors = append(st.Errors, model.StageError{Stage: stage, Message: cause.Error(), At: o.now().UTC()})
	})
	if err != nil && !store.IsNotFound(err) {
		o.log.Error("pipeline: save failed state", zap.String("campaign_id", c.ID), zap.Error(err))
	}

	o.log.Error("pipeline: campaign failed",
		zap.String("campaign_id", c.ID),
		zap.String("stage", string(stage)),
		zap.Error(cause),
	)
	o.emit(ctx, model.MilestoneEvent{
		CampaignID: c.ID,
		Kind:       model.MilestoneSystemError,
		Title:      "Campaign failed",
		Message:    cause.Error(),
		Fields:     map[string]string{"Stage": string(stage)},
	})
}
