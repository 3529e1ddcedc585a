package enrich

import (
	"context"
	"hash/fnv"
	"strings"
	"time"

	"github.com/sells-group/outreach-cli/internal/model"
)

var syntheticIndustries = []string{
	"Technology",
	"Software",
	"Financial Services",
	"Healthcare",
	"Retail",
	"Manufacturing",
}

var syntheticAwards = []string{"Industry Excellence Award", "Best in Class"}

// Synthetic derives stable, plausible enrichment data from the lead itself.
// It is used when no enrichment API is configured.
type Synthetic struct {
	now func() time.Time
}

// NewSynthetic creates a Synthetic provider.
func NewSynthetic() *Synthetic {
	return &Synthetic{now: time.Now}
}

// Enrich implements Provider. The same lead always yields the same data.
func (s *Synthetic) Enrich(ctx context.Context, lead model.Lead) (model.EnrichmentData, error) {
	if err := ctx.Err(); err != nil {
		return model.EnrichmentData{}, err
	}

	c := lead.Contact
	h := seed(strings.ToLower(c.Email) + "|" + strings.ToLower(c.Company))
	pick := func(salt, n uint64) uint64 { return (h ^ salt*0x9e3779b97f4a7c15) % n }

	data := model.EnrichmentData{
		Company: model.CompanyInfo{
			Name:        c.Company,
			Domain:      c.Domain,
			Industry:    syntheticIndustries[pick(1, uint64(len(syntheticIndustries)))],
			Employees:   int(pick(2, 5000)) + 10,
			Revenue:     float64(pick(3, 500)+1) * 1_000_000,
			Location:    c.Location,
			Description: c.Company + " is a leading provider of premium solutions",
		},
		Social: model.SocialSignals{
			LinkedInFollowers: int(pick(4, 100_000)),
			PressMentions:     int(pick(5, 5)),
		},
		BrandQuality: int(pick(6, 101)),
		Provider:     "synthetic",
		EnrichedAt:   s.now().UTC(),
	}
	if data.BrandQuality >= 70 {
		data.Social.Awards = append([]string(nil), syntheticAwards...)
	}
	return data, nil
}

func seed(s string) uint64 {
	f := fnv.New64a()
	_, _ = f.Write([]byte(s))
	return f.Sum64()
}
