package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/booking"
	"github.com/sells-group/outreach-cli/internal/channel"
	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/crm"
	"github.com/sells-group/outreach-cli/internal/drafting"
	"github.com/sells-group/outreach-cli/internal/enrich"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/notify"
	"github.com/sells-group/outreach-cli/internal/pipeline"
	"github.com/sells-group/outreach-cli/internal/qualify"
	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/internal/source"
	"github.com/sells-group/outreach-cli/internal/store"
	anthropicpkg "github.com/sells-group/outreach-cli/pkg/anthropic"
	"github.com/sells-group/outreach-cli/pkg/enrichment"
	"github.com/sells-group/outreach-cli/pkg/notion"
	sfpkg "github.com/sells-group/outreach-cli/pkg/salesforce"
)

// outreachEnv holds the store and the orchestrator wired with every
// collaborator the campaign/reply/serve commands need.
type outreachEnv struct {
	KV           store.KV
	Repo         *store.Repository
	Orchestrator *pipeline.Orchestrator
	Dispatcher   *notify.Dispatcher // nil without a webhook
}

// Close flushes pending notifications and releases the store.
func (e *outreachEnv) Close(ctx context.Context) {
	if e.Dispatcher != nil {
		if err := e.Dispatcher.Close(ctx); err != nil {
			zap.L().Warn("notify dispatcher did not drain", zap.Error(err))
		}
		sent, failed, dropped := e.Dispatcher.Stats()
		zap.L().Debug("notify dispatcher closed",
			zap.Int64("sent", sent),
			zap.Int64("failed", failed),
			zap.Int64("dropped", dropped),
		)
	}
	if e.KV != nil {
		_ = e.KV.Close()
	}
}

// openRepo validates the config for mode and opens the state store.
func openRepo(ctx context.Context, mode string) (store.KV, *store.Repository, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, nil, err
	}
	kv, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, nil, eris.Wrap(err, "open store")
	}
	return kv, store.NewRepository(kv), nil
}

// initEnv opens the store and builds the orchestrator. Callers should
// defer env.Close().
func initEnv(ctx context.Context, mode string) (*outreachEnv, error) {
	kv, repo, err := openRepo(ctx, mode)
	if err != nil {
		return nil, err
	}

	env, err := buildEnv(cfg, repo)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}
	env.KV = kv
	return env, nil
}

// buildEnv wires collaborators from config. Each external service falls back
// to a local implementation when its credentials are absent.
func buildEnv(cfg *config.Config, repo *store.Repository) (*outreachEnv, error) {
	guard := resilience.NewGuard(
		resilience.FromRetryConfig(cfg.Retry),
		resilience.FromCircuitConfig(cfg.Circuit),
	)

	env := &outreachEnv{Repo: repo}

	mux := channel.NewMultiplexer(cfg.Channels.RatePerSec, cfg.Channels.Burst, guard)
	if cfg.SMTP.Host != "" {
		mux.Register(model.ChannelEmail, channel.NewSMTPSender(cfg.SMTP))
		zap.L().Info("smtp email delivery enabled", zap.String("host", cfg.SMTP.Host))
	} else {
		mux.Register(model.ChannelEmail, channel.NewOutbox(model.ChannelEmail))
		zap.L().Debug("OUTREACH_SMTP_HOST not set, email goes to the local outbox")
	}
	mux.Register(model.ChannelLinkedIn, channel.NewOutbox(model.ChannelLinkedIn))
	mux.Register(model.ChannelSMS, channel.NewOutbox(model.ChannelSMS))
	mux.Register(model.ChannelPhone, channel.NewOutbox(model.ChannelPhone))

	var crmSync crm.Sync = crm.NewMemory()
	if cfg.Salesforce.ClientID != "" {
		sf, err := sfpkg.Connect(cfg.Salesforce)
		if err != nil {
			return nil, eris.Wrap(err, "connect salesforce")
		}
		crmSync = crm.NewSalesforceSync(sf, guard)
		zap.L().Info("salesforce crm sync enabled")
	} else {
		zap.L().Debug("OUTREACH_SALESFORCE_CLIENT_ID not set, crm sync is in-memory")
	}

	var src source.Source = source.File{Path: cfg.Campaign.SourceCSV}
	if cfg.Campaign.Source == "notion" || (cfg.Notion.Token != "" && cfg.Campaign.SourceCSV == "") {
		if cfg.Notion.Token == "" {
			return nil, eris.New("campaign.source is notion but notion.token is not set")
		}
		src = source.NewNotion(notion.New(cfg.Notion.Token, cfg.Notion.LeadDB), guard)
	}
	zap.L().Info("lead source selected", zap.String("source", src.Name()))

	var enricher enrich.Provider = enrich.NewSynthetic()
	if cfg.Enrichment.BaseURL != "" {
		client := enrichment.NewClient(cfg.Enrichment.Key,
			enrichment.WithBaseURL(cfg.Enrichment.BaseURL),
			enrichment.WithTimeout(time.Duration(cfg.Enrichment.TimeoutSecs)*time.Second),
		)
		enricher = enrich.NewHTTPProvider(client, guard)
		zap.L().Info("http enrichment enabled", zap.String("base_url", cfg.Enrichment.BaseURL))
	}

	var drafter drafting.Drafter = drafting.TemplateDrafter{}
	if cfg.Anthropic.Key != "" {
		drafter = drafting.NewClaudeDrafter(anthropicpkg.NewClient(cfg.Anthropic.Key), cfg.Anthropic, guard)
		zap.L().Info("claude reply drafting enabled", zap.String("model", cfg.Anthropic.Model))
	}

	var sink notify.Sink = notify.LogSink{}
	if cfg.Notify.WebhookURL != "" {
		env.Dispatcher = notify.NewDispatcher(notify.NewWebhookSink(cfg.Notify.WebhookURL, ""), cfg.Notify.BufferSize, guard)
		sink = env.Dispatcher
	}

	cal, err := booking.NewWorkingHoursCalendar(cfg.Booking)
	if err != nil {
		return nil, eris.Wrap(err, "calendar")
	}

	env.Orchestrator = pipeline.New(cfg, pipeline.Deps{
		Repo:      repo,
		Source:    src,
		Enricher:  enricher,
		Sender:    mux,
		Qualifier: qualify.NewCoordinator(qualify.SimulatedDialer{}, cfg.Qualification, cfg.Booking, guard),
		Booker:    booking.NewCoordinator(cal, cfg.Booking.Title, guard),
		CRM:       crmSync,
		Drafter:   drafter,
		Notifier:  sink,
	})
	return env, nil
}

// shutdownTimeout is the drain deadline for the poll loop.
func shutdownTimeout() time.Duration {
	secs := cfg.Orchestrator.ShutdownTimeoutSecs
	if secs <= 0 {
		secs = 15
	}
	return time.Duration(secs) * time.Second
}
