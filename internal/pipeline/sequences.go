package pipeline

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/sequence"
	"github.com/sells-group/outreach-cli/internal/store"
)

type seqOp func(model.OutboundSequence) model.OutboundSequence

var (
	resumeSeq seqOp = sequence.Resume
	stopSeq   seqOp = sequence.Stop
)

func pauseBy(by string) seqOp {
	return func(seq model.OutboundSequence) model.OutboundSequence {
		return sequence.Pause(seq, by)
	}
}

// resumeIfPausedBy resumes only a pause that by itself made.
func resumeIfPausedBy(by string) seqOp {
	return func(seq model.OutboundSequence) model.OutboundSequence {
		if seq.Status != model.SequencePaused || seq.PausedBy != by {
			return seq
		}
		return sequence.Resume(seq)
	}
}

// setSequence applies op to the lead's sequence if it has one. The caller
// holds the lead lock.
func (o *Orchestrator) setSequence(ctx context.Context, campaignID, leadID string, op seqOp) error {
	seq, err := o.deps.Repo.GetSequence(ctx, campaignID, leadID)
	if store.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return eris.Wrapf(err, "pipeline: load sequence for lead %s", leadID)
	}
	next := op(seq)
	if next.Status == seq.Status {
		return nil
	}
	return eris.Wrap(o.deps.Repo.PutSequence(ctx, next), "pipeline: save sequence")
}

// PauseSequence freezes a lead's sequence without moving its cursor.
func (o *Orchestrator) PauseSequence(ctx context.Context, campaignID, leadID string) (model.OutboundSequence, error) {
	return o.controlSequence(ctx, campaignID, leadID, pauseBy(model.PausedByOperator))
}

// ResumeSequence unfreezes a paused sequence.
func (o *Orchestrator) ResumeSequence(ctx context.Context, campaignID, leadID string) (model.OutboundSequence, error) {
	return o.controlSequence(ctx, campaignID, leadID, resumeSeq)
}

func (o *Orchestrator) controlSequence(ctx context.Context, campaignID, leadID string, op seqOp) (model.OutboundSequence, error) {
	unlock := o.lockLead(campaignID, leadID)
	defer unlock()

	seq, err := o.deps.Repo.GetSequence(ctx, campaignID, leadID)
	if err != nil {
		return seq, eris.Wrapf(err, "pipeline: load sequence for lead %s", leadID)
	}
	next := op(seq)
	if err := o.deps.Repo.PutSequence(ctx, next); err != nil {
		return seq, eris.Wrap(err, "pipeline: save sequence")
	}
	o.log.Info("pipeline: sequence control",
		zap.String("campaign_id", campaignID),
		zap.String("lead_id", leadID),
		zap.String("status", string(next.Status)),
	)
	return next, nil
}

// advanceDue sends every due sequence step. A failing lead is recorded and
// skipped. Once every sequence has finished the campaign moves to the
// reporting stage.
func (o *Orchestrator) advanceDue(ctx context.Context, c model.Campaign) error {
	seqs, err := o.deps.Repo.ListSequences(ctx, c.ID)
	if err != nil {
		return atStage(model.StageOutbound, eris.Wrap(err, "pipeline: list sequences"))
	}

	finished := 0
	for _, s := range seqs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.Status == model.SequenceActive && o.seq.Due(s, o.now()) {
			s, err = o.advanceLocked(ctx, c, s.LeadID)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				o.log.Error("pipeline: sequence step failed",
					zap.String("campaign_id", c.ID),
					zap.String("lead_id", s.LeadID),
					zap.Error(err),
				)
				o.recordError(ctx, c.ID, model.StageError{Stage: model.StageOutbound, LeadID: s.LeadID, Message: err.Error()})
				continue
			}
		}
		if s.Status == model.SequenceCompleted || s.Status == model.SequenceStopped {
			finished++
		}
	}

	if len(seqs) == 0 || finished < len(seqs) {
		return nil
	}
	var advanced bool
	if err := o.updateState(ctx, c.ID, func(st *model.WorkflowState) {
		advanced = st.Advance(model.StageReporting, o.now().UTC())
	}); err != nil {
		return eris.Wrap(err, "pipeline: update state")
	}
	if advanced {
		o.emit(ctx, model.MilestoneEvent{
			CampaignID: c.ID,
			Kind:       model.MilestoneCampaignProgress,
			Title:      "Outbound complete",
			Message:    fmt.Sprintf("All %d sequences have finished", len(seqs)),
			Fields:     map[string]string{"Sequences": strconv.Itoa(len(seqs))},
		})
	}
	return nil
}

func (o *Orchestrator) advanceLocked(ctx context.Context, c model.Campaign, leadID string) (model.OutboundSequence, error) {
	unlock := o.lockLead(c.ID, leadID)
	defer unlock()

	seq, err := o.deps.Repo.GetSequence(ctx, c.ID, leadID)
	if err != nil {
		return model.OutboundSequence{LeadID: leadID}, eris.Wrapf(err, "pipeline: load sequence for lead %s", leadID)
	}
	if err := o.advanceSequence(ctx, c, seq); err != nil {
		return seq, err
	}
	return o.deps.Repo.GetSequence(ctx, c.ID, leadID)
}
