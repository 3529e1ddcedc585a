package model

import "time"

// Range is an inclusive numeric range.
type Range struct {
	Min float64 `json:"min" yaml:"min" mapstructure:"min" validate:"gte=0"`
	Max float64 `json:"max" yaml:"max" mapstructure:"max" validate:"gtefield=Min"`
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// BuyerPersona describes a person the campaign targets.
type BuyerPersona struct {
	Title      string   `json:"title" yaml:"title" validate:"required"`
	Department string   `json:"department,omitempty" yaml:"department"`
	Seniority  string   `json:"seniority,omitempty" yaml:"seniority" validate:"omitempty,oneof=C-Level VP Director Manager 'Individual Contributor'"`
	PainPoints []string `json:"pain_points,omitempty" yaml:"pain_points"`
}

// TargetProfile is the ideal customer profile a campaign is started with.
type TargetProfile struct {
	Name               string         `json:"name" yaml:"name"`
	Industries         []string       `json:"industries" yaml:"industries" validate:"required,min=1,dive,required"`
	Geographies        []string       `json:"geographies,omitempty" yaml:"geographies"`
	ExcludedIndustries []string       `json:"excluded_industries,omitempty" yaml:"excluded_industries"`
	CompanySize        Range          `json:"company_size" yaml:"company_size"`
	Revenue            Range          `json:"revenue" yaml:"revenue"`
	BuyerPersonas      []BuyerPersona `json:"buyer_personas" yaml:"buyer_personas" validate:"required,min=1,dive"`
	ValuePropositions  []string       `json:"value_propositions,omitempty" yaml:"value_propositions"`
	Channels           []Channel      `json:"channels,omitempty" yaml:"channels" validate:"dive,oneof=email linkedin sms phone"`
}

// Playbook is the targeting strategy derived from a TargetProfile.
type Playbook struct {
	Industries        []string  `json:"industries"`
	Geographies       []string  `json:"geographies"`
	Exclusions        []string  `json:"exclusions"`
	CompanySizes      []string  `json:"company_sizes"`
	Revenue           Range     `json:"revenue"`
	TargetTitles      []string  `json:"target_titles"`
	ValuePropositions []string  `json:"value_propositions,omitempty"`
	Channels          []Channel `json:"channels"`
	SequenceLength    int       `json:"sequence_length"`
}

// CampaignStatus is the coarse state of a campaign.
type CampaignStatus string

const (
	CampaignInitializing CampaignStatus = "initializing"
	CampaignRunning      CampaignStatus = "running"
	CampaignCompleted    CampaignStatus = "completed"
	CampaignFailed       CampaignStatus = "failed"
)

// Campaign is a single outreach campaign for a client.
type Campaign struct {
	ID          string         `json:"id"`
	ClientID    string         `json:"client_id"`
	Profile     TargetProfile  `json:"profile"`
	Playbook    Playbook       `json:"playbook"`
	Status      CampaignStatus `json:"status"`
	ReplyCursor string         `json:"reply_cursor,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	LaunchedAt  time.Time      `json:"launched_at,omitempty"`
}

// Stage is one of the nine pipeline stages.
type Stage string

const (
	StageICPDefinition Stage = "icp_definition"
	StageLeadSourcing  Stage = "lead_sourcing"
	StageEnrichment    Stage = "enrichment" // includes scoring and tiering
	StageOutbound      Stage = "outbound"
	StageReplyHandling Stage = "reply_handling"
	StageQualification Stage = "qualification"
	StageBooking       Stage = "booking"
	StageCRMSync       Stage = "crm_sync"
	StageReporting     Stage = "reporting"
)

// Stages returns the pipeline stages in order.
func Stages() []Stage {
	return []Stage{
		StageICPDefinition,
		StageLeadSourcing,
		StageEnrichment,
		StageOutbound,
		StageReplyHandling,
		StageQualification,
		StageBooking,
		StageCRMSync,
		StageReporting,
	}
}

// Index returns the zero-based position of the stage, or -1.
func (s Stage) Index() int {
	for i, st := range Stages() {
		if st == s {
			return i
		}
	}
	return -1
}

// StageError records a per-lead, per-reply or stage-level failure.
type StageError struct {
	Stage   Stage     `json:"stage"`
	LeadID  string    `json:"lead_id,omitempty"`
	ReplyID string    `json:"reply_id,omitempty"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// WorkflowState is the status view a polling client sees.
type WorkflowState struct {
	CampaignID       string         `json:"campaign_id"`
	Status           CampaignStatus `json:"status"`
	Stage            Stage          `json:"stage"`
	Progress         int            `json:"progress"`
	CurrentLeadCount int            `json:"current_lead_count"`
	Errors           []StageError   `json:"errors"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// Advance moves the workflow to stage if it is further along than the
// current stage. Progress follows the stage position.
func (w *WorkflowState) Advance(stage Stage, at time.Time) bool {
	if stage.Index() <= w.Stage.Index() {
		return false
	}
	w.Stage = stage
	w.Progress = StageProgress(stage)
	w.UpdatedAt = at
	return true
}

// StageProgress maps a stage to a 0-100 completion percentage.
func StageProgress(stage Stage) int {
	i := stage.Index()
	if i < 0 {
		return 0
	}
	return (i + 1) * 100 / len(Stages())
}

// MilestoneKind categorises a milestone event.
type MilestoneKind string

const (
	MilestonePositiveReply    MilestoneKind = "positive_reply"
	MilestoneCallCompleted    MilestoneKind = "qualification_call_completed"
	MilestoneMeetingBooked    MilestoneKind = "meeting_booked"
	MilestoneHighValueLead    MilestoneKind = "high_value_lead"
	MilestoneSystemError      MilestoneKind = "system_error"
	MilestoneCampaignProgress MilestoneKind = "campaign_milestone"
)

// MilestoneEvent is a notable pipeline transition published for observability.
type MilestoneEvent struct {
	ID         string            `json:"id"`
	CampaignID string            `json:"campaign_id"`
	Kind       MilestoneKind     `json:"kind"`
	Title      string            `json:"title"`
	Message    string            `json:"message"`
	LeadID     string            `json:"lead_id,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
	At         time.Time         `json:"at"`
}
