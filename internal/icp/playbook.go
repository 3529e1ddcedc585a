// Package icp turns a target profile into the playbook every later stage
// works from.
package icp

import (
	"strings"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/sequence"
	"github.com/sells-group/outreach-cli/internal/validate"
)

// DefaultChannels are used when a profile names none.
var DefaultChannels = []model.Channel{model.ChannelEmail, model.ChannelLinkedIn}

// Build validates the profile and derives its playbook.
func Build(v *validate.Validator, p model.TargetProfile) (model.Playbook, error) {
	if err := v.Profile(p); err != nil {
		return model.Playbook{}, err
	}

	channels := p.Channels
	if len(channels) == 0 {
		channels = DefaultChannels
	}

	return model.Playbook{
		Industries:        dedupe(p.Industries),
		Geographies:       dedupe(p.Geographies),
		Exclusions:        dedupe(p.ExcludedIndustries),
		CompanySizes:      SizeBands(p.CompanySize),
		Revenue:           p.Revenue,
		TargetTitles:      TargetTitles(p.BuyerPersonas),
		ValuePropositions: p.ValuePropositions,
		Channels:          channels,
		SequenceLength:    len(sequence.DefaultSteps(channels)),
	}, nil
}

// SizeBands labels the employee-count bands the range overlaps.
func SizeBands(r model.Range) []string {
	var bands []string
	if r.Min <= 50 && r.Max >= 50 {
		bands = append(bands, "Startup (1-50)")
	}
	if r.Min <= 500 && r.Max >= 100 {
		bands = append(bands, "Small (50-500)")
	}
	if r.Min <= 5000 && r.Max >= 500 {
		bands = append(bands, "Mid-Market (500-5K)")
	}
	if r.Max >= 5000 {
		bands = append(bands, "Enterprise (5K+)")
	}
	if len(bands) == 0 {
		return []string{"All Sizes"}
	}
	return bands
}

// TargetTitles returns persona titles in first-seen order without duplicates.
func TargetTitles(personas []model.BuyerPersona) []string {
	titles := make([]string, 0, len(personas))
	for _, p := range personas {
		titles = append(titles, p.Title)
	}
	return dedupe(titles)
}

// dedupe drops blanks and case-insensitive repeats, keeping first spelling.
func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
