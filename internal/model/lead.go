package model

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
)

// LeadStatus is the lifecycle position of a lead within a campaign.
type LeadStatus string

const (
	LeadStatusNew        LeadStatus = "new"
	LeadStatusEnriching  LeadStatus = "enriching"
	LeadStatusEnriched   LeadStatus = "enriched"
	LeadStatusScored     LeadStatus = "scored"
	LeadStatusOutreached LeadStatus = "outreached"
	LeadStatusReplied    LeadStatus = "replied"
	LeadStatusQualifying LeadStatus = "qualifying"
	LeadStatusQualified  LeadStatus = "qualified"
	LeadStatusClosed     LeadStatus = "closed"
)

var leadStatusRank = map[LeadStatus]int{
	LeadStatusNew:        0,
	LeadStatusEnriching:  1,
	LeadStatusEnriched:   2,
	LeadStatusScored:     3,
	LeadStatusOutreached: 4,
	LeadStatusReplied:    5,
	LeadStatusQualifying: 6,
	LeadStatusQualified:  7,
	LeadStatusClosed:     7,
}

// Rank returns the ordinal position of the status, or -1 when unknown.
func (s LeadStatus) Rank() int {
	r, ok := leadStatusRank[s]
	if !ok {
		return -1
	}
	return r
}

// Terminal reports whether no further transitions are allowed.
func (s LeadStatus) Terminal() bool {
	return s == LeadStatusQualified || s == LeadStatusClosed
}

// CanTransition reports whether a lead may move from one status to another.
// Transitions only move forward; Closed is reachable from any non-terminal
// status. Staying in the same status is allowed.
func CanTransition(from, to LeadStatus) bool {
	if from.Rank() < 0 || to.Rank() < 0 {
		return false
	}
	if from == to {
		return true
	}
	if from.Terminal() {
		return false
	}
	if to == LeadStatusClosed {
		return true
	}
	return to.Rank() > from.Rank()
}

// Transition moves the lead to the given status or returns an error if the
// move would regress.
func (l *Lead) Transition(to LeadStatus, at time.Time) error {
	if !CanTransition(l.Status, to) {
		return eris.Errorf("model: lead %s: invalid transition %s -> %s", l.ID, l.Status, to)
	}
	l.Status = to
	l.UpdatedAt = at
	return nil
}

// Contact holds the person-level fields of a lead.
type Contact struct {
	FirstName   string `json:"first_name" validate:"required"`
	LastName    string `json:"last_name"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone,omitempty"`
	Title       string `json:"title"`
	Company     string `json:"company" validate:"required"`
	Domain      string `json:"domain,omitempty"`
	LinkedInURL string `json:"linkedin_url,omitempty" validate:"omitempty,url"`
	Location    string `json:"location,omitempty"`
}

// FullName returns the display name of the contact.
func (c Contact) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// Lead is the mutable campaign record owned by the orchestrator.
type Lead struct {
	ID         string          `json:"id"`
	CampaignID string          `json:"campaign_id"`
	Contact    Contact         `json:"contact"`
	Source     string          `json:"source"`
	Status     LeadStatus      `json:"status"`
	Enrichment *EnrichmentData `json:"enrichment,omitempty"`
	Score      int             `json:"score"`
	Tier       Tier            `json:"tier,omitempty"`
	CRMRef     string          `json:"crm_ref,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// CompanyInfo is firmographic data returned by enrichment.
type CompanyInfo struct {
	Name        string  `json:"name"`
	Domain      string  `json:"domain,omitempty"`
	Industry    string  `json:"industry"`
	Employees   int     `json:"employees"`
	Revenue     float64 `json:"revenue"`
	Location    string  `json:"location,omitempty"`
	Description string  `json:"description,omitempty"`
}

// SocialSignals holds social-proof indicators.
type SocialSignals struct {
	LinkedInFollowers int      `json:"linkedin_followers"`
	Awards            []string `json:"awards,omitempty"`
	PressMentions     int      `json:"press_mentions"`
}

// EnrichmentData is what the enrichment collaborator returns for a lead.
type EnrichmentData struct {
	Company      CompanyInfo   `json:"company"`
	Social       SocialSignals `json:"social"`
	BrandQuality int           `json:"brand_quality"` // 0-100
	Technologies []string      `json:"technologies,omitempty"`
	Provider     string        `json:"provider"`
	EnrichedAt   time.Time     `json:"enriched_at"`
}

// EnrichedLead pairs a lead with its enrichment data. Never mutated once built.
type EnrichedLead struct {
	Lead       Lead           `json:"lead"`
	Enrichment EnrichmentData `json:"enrichment"`
}

// Tier is a discrete priority bucket derived from the alignment score.
type Tier int

const (
	Tier1 Tier = 1
	Tier2 Tier = 2
	Tier3 Tier = 3
	Tier4 Tier = 4
)

// AllTiers lists every tier in priority order.
func AllTiers() []Tier { return []Tier{Tier1, Tier2, Tier3, Tier4} }

func (t Tier) String() string {
	switch t {
	case Tier1:
		return "Tier 1 - High Priority"
	case Tier2:
		return "Tier 2 - Medium Priority"
	case Tier3:
		return "Tier 3 - Low Priority"
	case Tier4:
		return "Tier 4 - Nurture"
	default:
		return fmt.Sprintf("Tier(%d)", int(t))
	}
}

// ScoreBreakdown records the points each sub-criterion contributed.
type ScoreBreakdown struct {
	Revenue  int `json:"revenue"`
	Industry int `json:"industry"`
	Title    int `json:"title"`
	Social   int `json:"social"`
	Brand    int `json:"brand"`
}

// Total sums all sub-criteria before clamping.
func (b ScoreBreakdown) Total() int {
	return b.Revenue + b.Industry + b.Title + b.Social + b.Brand
}

// ScoredLead is an EnrichedLead with its alignment score and tier.
type ScoredLead struct {
	EnrichedLead
	Score     int            `json:"score"`
	Tier      Tier           `json:"tier"`
	Breakdown ScoreBreakdown `json:"breakdown"`
}
