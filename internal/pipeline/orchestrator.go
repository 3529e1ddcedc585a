// Package pipeline drives campaigns through the outreach stages: targeting,
// sourcing, enrichment and scoring, and outbound launch once per campaign,
// then a recurring reply poll that classifies, routes, qualifies and books.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/booking"
	"github.com/sells-group/outreach-cli/internal/channel"
	"github.com/sells-group/outreach-cli/internal/classify"
	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/crm"
	"github.com/sells-group/outreach-cli/internal/drafting"
	"github.com/sells-group/outreach-cli/internal/enrich"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/notify"
	"github.com/sells-group/outreach-cli/internal/qualify"
	"github.com/sells-group/outreach-cli/internal/sequence"
	"github.com/sells-group/outreach-cli/internal/source"
	"github.com/sells-group/outreach-cli/internal/store"
	"github.com/sells-group/outreach-cli/internal/validate"
)

// Classifier maps reply text to a classification.
type Classifier func(text string) model.ClassificationResult

// Deps are the collaborators an Orchestrator drives. Repo, Source, Sender,
// Qualifier and Booker are required; the rest have defaults.
type Deps struct {
	Repo       *store.Repository
	Source     source.Source
	Enricher   enrich.Provider
	Sender     channel.Sender
	Qualifier  *qualify.Coordinator
	Booker     *booking.Coordinator
	CRM        crm.Sync
	Drafter    drafting.Drafter
	Notifier   notify.Sink
	Validator  *validate.Validator
	Classifier Classifier
}

// Orchestrator is the single writer of lead, sequence and reply state.
type Orchestrator struct {
	cfg  *config.Config
	deps Deps
	seq  *sequence.Engine
	now  func() time.Time
	log  *zap.Logger

	// leadLocks serialises all work on one lead.
	leadLocks sync.Map
	// stateMu guards read-modify-write of workflow state.
	stateMu sync.Mutex

	mu       sync.Mutex
	inflight map[string]model.InboundReply
	sched    *Scheduler
}

// New creates an Orchestrator.
func New(cfg *config.Config, deps Deps) *Orchestrator {
	if deps.Enricher == nil {
		deps.Enricher = enrich.NewSynthetic()
	}
	if deps.CRM == nil {
		deps.CRM = crm.NewMemory()
	}
	if deps.Drafter == nil {
		deps.Drafter = drafting.TemplateDrafter{}
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.LogSink{}
	}
	if deps.Validator == nil {
		deps.Validator = validate.New()
	}
	if deps.Classifier == nil {
		deps.Classifier = classify.Classify
	}

	day := time.Duration(cfg.Orchestrator.SequenceDaySecs) * time.Second
	return &Orchestrator{
		cfg:      cfg,
		deps:     deps,
		seq:      sequence.NewEngine(deps.Sender, day),
		now:      time.Now,
		log:      zap.L().With(zap.String("component", "pipeline")),
		inflight: make(map[string]model.InboundReply),
	}
}

func (o *Orchestrator) lockLead(campaignID, leadID string) func() {
	v, _ := o.leadLocks.LoadOrStore(campaignID+"/"+leadID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// updateState applies fn to the campaign's workflow state and saves it.
func (o *Orchestrator) updateState(ctx context.Context, campaignID string, fn func(*model.WorkflowState)) error {
	o.stateMu.Lock()
	defer o.stateMu.Unlock()

	st, err := o.deps.Repo.GetState(ctx, campaignID)
	if err != nil {
		return err
	}
	fn(&st)
	st.UpdatedAt = o.now().UTC()
	return o.deps.Repo.PutState(ctx, st)
}

// recordError appends a stage error to the workflow state. Failures to
// record are logged, never returned.
func (o *Orchestrator) recordError(ctx context.Context, campaignID string, se model.StageError) {
	if se.At.IsZero() {
		se.At = o.now().UTC()
	}
	err := o.updateState(context.WithoutCancel(ctx), campaignID, func(st *model.WorkflowState) {
		st.Errors = append(st.Errors, se)
	})
	if err != nil {
		o.log.Error("pipeline: record stage error",
			zap.String("campaign_id", campaignID),
			zap.String("stage", string(se.Stage)),
			zap.Error(err),
		)
	}
}

// emit stores a milestone and hands it to the notifier. Notification
// failures never affect pipeline progress.
func (o *Orchestrator) emit(ctx context.Context, ev model.MilestoneEvent) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.At.IsZero() {
		ev.At = o.now().UTC()
	}
	ctx = context.WithoutCancel(ctx)
	if err := o.deps.Repo.AppendEvent(ctx, ev); err != nil {
		o.log.Warn("pipeline: store milestone", zap.String("kind", string(ev.Kind)), zap.Error(err))
	}
	if err := o.deps.Notifier.Publish(ctx, ev); err != nil {
		o.log.Warn("pipeline: publish milestone", zap.String("kind", string(ev.Kind)), zap.Error(err))
	}
}
