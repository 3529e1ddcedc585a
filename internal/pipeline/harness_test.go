package pipeline

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/booking"
	"github.com/sells-group/outreach-cli/internal/channel"
	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/crm"
	"github.com/sells-group/outreach-cli/internal/enrich"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/qualify"
	"github.com/sells-group/outreach-cli/internal/scoring"
	"github.com/sells-group/outreach-cli/internal/source"
	"github.com/sells-group/outreach-cli/internal/store"
)

// firmographics returns enrichment that scores tier 1 for "strong" contacts
// and tier 4 for everyone else.
type firmographics struct{}

func (firmographics) Enrich(ctx context.Context, l model.Lead) (model.EnrichmentData, error) {
	if err := ctx.Err(); err != nil {
		return model.EnrichmentData{}, err
	}
	if strings.HasPrefix(l.Contact.Email, "strong") {
		return model.EnrichmentData{
			Company:      model.CompanyInfo{Name: l.Contact.Company, Industry: "Technology", Revenue: 50_000_000, Employees: 400},
			Social:       model.SocialSignals{LinkedInFollowers: 20_000, Awards: []string{"Best Places to Work"}},
			BrandQuality: 80,
			Provider:     "test",
		}, nil
	}
	return model.EnrichmentData{
		Company:      model.CompanyInfo{Name: l.Contact.Company, Industry: "Retail"},
		BrandQuality: 10,
		Provider:     "test",
	}, nil
}

// stubCalendar offers one slot an hour after the window opens.
type stubCalendar struct{}

func (stubCalendar) FindSlots(_ context.Context, w model.WindowSpec) ([]model.TimeSlot, error) {
	start := w.Start.Add(time.Hour)
	return []model.TimeSlot{{Start: start, End: start.Add(time.Duration(w.DurationMinutes) * time.Minute)}}, nil
}

func (stubCalendar) CreateEvent(_ context.Context, slot model.TimeSlot, _ model.EventDetails) (model.EventRef, error) {
	return model.EventRef{ID: "evt-1", Link: "https://calendar.test/evt-1"}, nil
}

// recordingSink keeps published milestones.
type recordingSink struct {
	mu     sync.Mutex
	events []model.MilestoneEvent
}

func (s *recordingSink) Publish(_ context.Context, ev model.MilestoneEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *recordingSink) kinds() []model.MilestoneKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.MilestoneKind, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev.Kind)
	}
	return out
}

var allMet = model.BANT{
	Budget:    model.BANTAnswer{Qualified: true},
	Authority: model.BANTAnswer{Qualified: true},
	Need:      model.BANTAnswer{Qualified: true},
	Timeline:  model.BANTAnswer{Qualified: true},
}

type harness struct {
	o        *Orchestrator
	repo     *store.Repository
	email    *channel.Outbox
	linkedin *channel.Outbox
	crm      *crm.Memory
	sink     *recordingSink
}

type harnessOpts struct {
	contacts   []model.Contact
	source     source.Source
	enricher   enrich.Provider
	dialer     qualify.Dialer
	classifier Classifier
	crm        crm.Sync
}

func testConfig() *config.Config {
	return &config.Config{
		Orchestrator: config.OrchestratorConfig{
			PollIntervalSecs:    1,
			ShutdownTimeoutSecs: 1,
			MaxConcurrentLeads:  4,
			EnrichConcurrency:   2,
			SequenceDaySecs:     3600,
		},
		Campaign: config.CampaignConfig{
			EligibleTiers: []int{1, 2},
			Channels:      []string{"email", "linkedin"},
		},
		Scoring:       scoring.DefaultConfig(),
		Qualification: config.QualificationConfig{DefaultRegion: "US", CallMinutes: 15},
		Booking:       config.BookingConfig{MeetingMinutes: 30, Timezone: "America/New_York", LookaheadDays: 5},
	}
}

func strongContact(name string) model.Contact {
	return model.Contact{
		FirstName:   name,
		LastName:    "Doe",
		Email:       "strong." + strings.ToLower(name) + "@acme.com",
		Phone:       "(650) 253-0000",
		Title:       "VP of Sales",
		Company:     name + " Corp",
		LinkedInURL: "https://www.linkedin.com/in/" + strings.ToLower(name),
	}
}

func weakContact(name string) model.Contact {
	return model.Contact{
		FirstName: name,
		Email:     "weak." + strings.ToLower(name) + "@shop.com",
		Title:     "Intern",
		Company:   name + " Shop",
	}
}

func testProfile() model.TargetProfile {
	return model.TargetProfile{
		Name:          "Tech sales leaders",
		Industries:    []string{"Technology"},
		CompanySize:   model.Range{Min: 50, Max: 1000},
		Revenue:       model.Range{Min: 1_000_000, Max: 500_000_000},
		BuyerPersonas: []model.BuyerPersona{{Title: "VP of Sales", Seniority: "VP"}},
	}
}

func newHarness(t *testing.T, opts harnessOpts) *harness {
	t.Helper()

	h := &harness{
		repo:     store.NewRepository(store.NewMemory()),
		email:    channel.NewOutbox(model.ChannelEmail),
		linkedin: channel.NewOutbox(model.ChannelLinkedIn),
		crm:      crm.NewMemory(),
		sink:     &recordingSink{},
	}
	mux := channel.NewMultiplexer(0, 1, nil)
	mux.Register(model.ChannelEmail, h.email)
	mux.Register(model.ChannelLinkedIn, h.linkedin)

	cfg := testConfig()
	src := opts.source
	if src == nil {
		contacts := opts.contacts
		if contacts == nil {
			contacts = []model.Contact{strongContact("Jane"), weakContact("Walt")}
		}
		src = source.Static{Contacts: contacts}
	}
	dialer := opts.dialer
	if dialer == nil {
		dialer = qualify.ScriptedDialer{Default: qualify.Outcome{Answered: true, Duration: 15 * time.Minute, BANT: allMet}}
	}
	var enricher enrich.Provider = firmographics{}
	if opts.enricher != nil {
		enricher = opts.enricher
	}
	var crmSync crm.Sync = h.crm
	if opts.crm != nil {
		crmSync = opts.crm
	}

	h.o = New(cfg, Deps{
		Repo:       h.repo,
		Source:     src,
		Enricher:   enricher,
		Sender:     mux,
		Qualifier:  qualify.NewCoordinator(dialer, cfg.Qualification, cfg.Booking, nil),
		Booker:     booking.NewCoordinator(stubCalendar{}, "", nil),
		CRM:        crmSync,
		Notifier:   h.sink,
		Classifier: opts.classifier,
	})
	return h
}

// start launches a campaign and returns its ID and leads keyed by email.
func (h *harness) start(t *testing.T) (string, map[string]model.Lead) {
	t.Helper()
	ctx := context.Background()
	id, err := h.o.StartCampaign(ctx, "client-1", testProfile())
	require.NoError(t, err)

	leads, err := h.repo.ListLeads(ctx, id)
	require.NoError(t, err)
	byEmail := make(map[string]model.Lead, len(leads))
	for _, l := range leads {
		byEmail[l.Contact.Email] = l
	}
	return id, byEmail
}

func (h *harness) reply(t *testing.T, campaignID string, l model.Lead, text string, at time.Time) string {
	t.Helper()
	id, err := h.o.EnqueueReply(context.Background(), model.InboundReply{
		CampaignID: campaignID,
		LeadID:     l.ID,
		Channel:    model.ChannelEmail,
		Text:       text,
		ReceivedAt: at,
	})
	require.NoError(t, err)
	return id
}

func (h *harness) lead(t *testing.T, campaignID, leadID string) model.Lead {
	t.Helper()
	l, err := h.repo.GetLead(context.Background(), campaignID, leadID)
	require.NoError(t, err)
	return l
}

func (h *harness) sequence(t *testing.T, campaignID, leadID string) model.OutboundSequence {
	t.Helper()
	s, err := h.repo.GetSequence(context.Background(), campaignID, leadID)
	require.NoError(t, err)
	return s
}
