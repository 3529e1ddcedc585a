package scoring

import (
	"math"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/model"
)

// Tier cut points. Every score maps to exactly one tier.
const (
	Tier1Min = 80
	Tier2Min = 60
	Tier3Min = 40
)

// Engine scores enriched leads. It has no side effects and is safe for
// concurrent use.
type Engine struct {
	cfg     config.ScoringConfig
	targets Targets
}

// NewEngine creates an Engine. Validate cfg with ValidateConfig first.
func NewEngine(cfg config.ScoringConfig, targets Targets) *Engine {
	return &Engine{cfg: cfg, targets: targets}
}

// Score computes the alignment score and tier for a lead.
func (e *Engine) Score(lead model.EnrichedLead) model.ScoredLead {
	en := lead.Enrichment
	// Casers are stateful; one per call.
	fold := cases.Fold()
	b := model.ScoreBreakdown{
		Revenue:  points(scoreRevenue(en.Company.Revenue, e.targets.Revenue), e.cfg.RevenueWeight),
		Industry: points(e.scoreIndustry(fold, en.Company.Industry), e.cfg.IndustryWeight),
		Title:    points(e.scoreTitle(fold, lead.Lead.Contact.Title), e.cfg.TitleWeight),
		Social:   points(scoreSocial(en.Social, e.cfg.FollowersHigh, e.cfg.FollowersLow), e.cfg.SocialWeight),
		Brand:    points(scoreBrand(en.BrandQuality), e.cfg.BrandWeight),
	}

	score := b.Total()
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	return model.ScoredLead{
		EnrichedLead: lead,
		Score:        score,
		Tier:         TierFor(score),
		Breakdown:    b,
	}
}

// ScoreAll scores every lead and returns them sorted by score descending.
// Ties keep input order.
func (e *Engine) ScoreAll(leads []model.EnrichedLead) []model.ScoredLead {
	out := make([]model.ScoredLead, 0, len(leads))
	for _, l := range leads {
		out = append(out, e.Score(l))
	}
	SortByScore(out)
	return out
}

// TierFor maps a score to its tier.
func TierFor(score int) model.Tier {
	switch {
	case score >= Tier1Min:
		return model.Tier1
	case score >= Tier2Min:
		return model.Tier2
	case score >= Tier3Min:
		return model.Tier3
	default:
		return model.Tier4
	}
}

// Segment partitions scored leads by tier, preserving order within a tier.
// Every tier key is present, possibly with an empty slice.
func Segment(leads []model.ScoredLead) map[model.Tier][]model.ScoredLead {
	seg := make(map[model.Tier][]model.ScoredLead, 4)
	for _, t := range model.AllTiers() {
		seg[t] = []model.ScoredLead{}
	}
	for _, l := range leads {
		seg[l.Tier] = append(seg[l.Tier], l)
	}
	return seg
}

// SortByScore sorts descending by score. The sort is stable.
func SortByScore(leads []model.ScoredLead) {
	sort.SliceStable(leads, func(i, j int) bool {
		return leads[i].Score > leads[j].Score
	})
}

func points(component float64, weight int) int {
	return int(math.Round(component * float64(weight)))
}

// scoreRevenue returns 0.0-1.0 based on how well revenue fits the bracket.
func scoreRevenue(revenue float64, target model.Range) float64 {
	if revenue <= 0 {
		return 0
	}
	if target.Max <= 0 {
		if revenue >= target.Min {
			return 1.0
		}
		return revenue / target.Min
	}
	if target.Contains(revenue) {
		return 1.0
	}
	// Partial credit below the bracket.
	if revenue < target.Min {
		return math.Max(0, revenue/target.Min)
	}
	// Above max: gentle decay.
	return math.Max(0, target.Max/revenue)
}

// scoreIndustry returns 0.0-1.0 based on the industry target list.
func (e *Engine) scoreIndustry(fold cases.Caser, industry string) float64 {
	ind := fold.String(strings.TrimSpace(industry))
	if ind == "" {
		return 0
	}
	for _, ex := range e.targets.Exclusions {
		if fold.String(ex) == ind {
			return 0
		}
	}
	if len(e.targets.Industries) == 0 {
		return 0.5 // neutral when no preference
	}

	best := 0.0
	for _, t := range e.targets.Industries {
		ft := fold.String(strings.TrimSpace(t))
		switch {
		case ft == ind:
			return 1.0
		case ft != "" && (strings.Contains(ind, ft) || strings.Contains(ft, ind)):
			best = 0.7
		}
	}
	return best
}

var seniorityLevels = []struct {
	markers []string
	value   float64
}{
	{[]string{"chief", "ceo", "cfo", "coo", "cmo", "cro", "cto", "founder", "owner", "president", "partner"}, 1.0},
	{[]string{"vp", "head of", "svp", "evp"}, 0.9},
	{[]string{"director"}, 0.7},
	{[]string{"manager", "lead"}, 0.4},
}

// scoreTitle returns 0.0-1.0 from title match and seniority.
func (e *Engine) scoreTitle(fold cases.Caser, title string) float64 {
	ft := fold.String(strings.TrimSpace(title))
	if ft == "" {
		return 0
	}
	for _, t := range e.targets.Titles {
		if fold.String(strings.TrimSpace(t)) == ft {
			return 1.0
		}
	}

	words := strings.NewReplacer(",", " ", ".", " ", "-", " ", "/", " ", "&", " ").Replace(ft)
	words = " " + strings.ReplaceAll(strings.Join(strings.Fields(words), " "), "vice president", "vp") + " "
	for _, lvl := range seniorityLevels {
		for _, m := range lvl.markers {
			if strings.Contains(words, " "+m+" ") {
				return lvl.value
			}
		}
	}
	return 0.1
}

// scoreSocial returns 0.0-1.0 from follower thresholds plus awards and press.
func scoreSocial(s model.SocialSignals, high, low int) float64 {
	var v float64
	switch {
	case high > 0 && s.LinkedInFollowers >= high:
		v = 1.0
	case low > 0 && s.LinkedInFollowers >= low:
		v = 0.6
	}
	v += 0.1 * float64(len(s.Awards)+s.PressMentions)
	return math.Min(v, 1.0)
}

// scoreBrand returns 0.0-1.0 from the 0-100 brand quality sub-score.
func scoreBrand(q int) float64 {
	if q <= 0 {
		return 0
	}
	return math.Min(float64(q)/100, 1.0)
}
