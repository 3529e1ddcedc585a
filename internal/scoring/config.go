// Package scoring computes ICP alignment scores for enriched leads and
// partitions them into priority tiers.
package scoring

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/model"
)

// DefaultConfig returns a config.ScoringConfig with sensible defaults.
// Weights sum to 100.
func DefaultConfig() config.ScoringConfig {
	return config.ScoringConfig{
		// Weights (sum = 100).
		RevenueWeight:  30,
		IndustryWeight: 20,
		TitleWeight:    20,
		SocialWeight:   15,
		BrandWeight:    15,

		// Target revenue bracket.
		MinRevenue: 1_000_000,   // $1M
		MaxRevenue: 500_000_000, // $500M

		// Social proof thresholds.
		FollowersHigh: 10_000,
		FollowersLow:  1_000,
	}
}

// WeightSum returns the sum of all component weights.
func WeightSum(c config.ScoringConfig) int {
	return c.RevenueWeight + c.IndustryWeight + c.TitleWeight + c.SocialWeight + c.BrandWeight
}

// ValidateConfig checks that a ScoringConfig is internally consistent.
func ValidateConfig(c config.ScoringConfig) error {
	var errs []string

	weights := []struct {
		name string
		w    int
	}{
		{"revenue_weight", c.RevenueWeight},
		{"industry_weight", c.IndustryWeight},
		{"title_weight", c.TitleWeight},
		{"social_weight", c.SocialWeight},
		{"brand_weight", c.BrandWeight},
	}
	for _, w := range weights {
		if w.w < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", w.name))
		}
	}

	if sum := WeightSum(c); sum != 100 {
		errs = append(errs, fmt.Sprintf("weights should sum to 100, got %d", sum))
	}

	if c.MinRevenue < 0 {
		errs = append(errs, "min_revenue must be >= 0")
	}
	if c.MaxRevenue > 0 && c.MaxRevenue < c.MinRevenue {
		errs = append(errs, "max_revenue must be >= min_revenue")
	}
	if c.FollowersLow < 0 || c.FollowersHigh < c.FollowersLow {
		errs = append(errs, "followers_high must be >= followers_low >= 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("scoring: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Targets are the campaign-specific criteria leads are scored against. They
// come from the campaign playbook and fall back to the scoring config.
type Targets struct {
	Industries []string
	Exclusions []string
	Titles     []string
	Revenue    model.Range
}

// TargetsFromPlaybook builds Targets from a playbook, filling gaps from cfg.
func TargetsFromPlaybook(pb model.Playbook, cfg config.ScoringConfig) Targets {
	t := Targets{
		Industries: pb.Industries,
		Exclusions: pb.Exclusions,
		Titles:     pb.TargetTitles,
		Revenue:    pb.Revenue,
	}
	if len(t.Industries) == 0 {
		t.Industries = cfg.Industries
	}
	if len(t.Titles) == 0 {
		t.Titles = cfg.Titles
	}
	if t.Revenue.Max <= 0 {
		t.Revenue = model.Range{Min: cfg.MinRevenue, Max: cfg.MaxRevenue}
	}
	return t
}
