// Package enrich attaches company and social data to sourced leads.
package enrich

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/pkg/enrichment"
)

// Provider returns enrichment data for a lead.
type Provider interface {
	Enrich(ctx context.Context, lead model.Lead) (model.EnrichmentData, error)
}

// HTTPProvider enriches leads through the enrichment API.
type HTTPProvider struct {
	client enrichment.Client
	guard  *resilience.Guard
	now    func() time.Time
}

// NewHTTPProvider creates an HTTPProvider.
func NewHTTPProvider(client enrichment.Client, guard *resilience.Guard) *HTTPProvider {
	return &HTTPProvider{client: client, guard: guard, now: time.Now}
}

// Enrich implements Provider.
func (p *HTTPProvider) Enrich(ctx context.Context, lead model.Lead) (model.EnrichmentData, error) {
	c := lead.Contact
	resp, err := resilience.GuardVal(ctx, p.guard, "enrichment", "enrich_person", func(ctx context.Context) (*enrichment.PersonResponse, error) {
		return p.client.EnrichPerson(ctx, enrichment.PersonRequest{
			Email:     c.Email,
			FirstName: c.FirstName,
			LastName:  c.LastName,
			Company:   c.Company,
			Domain:    c.Domain,
		})
	})
	if err != nil {
		return model.EnrichmentData{}, err
	}

	name := resp.Company.Name
	if name == "" {
		name = c.Company
	}
	return model.EnrichmentData{
		Company: model.CompanyInfo{
			Name:        name,
			Domain:      resp.Company.Domain,
			Industry:    resp.Company.Industry,
			Employees:   resp.Company.Employees,
			Revenue:     resp.Company.AnnualRevenue,
			Location:    resp.Company.Location,
			Description: resp.Company.Description,
		},
		Social: model.SocialSignals{
			LinkedInFollowers: resp.Social.LinkedInFollowers,
			Awards:            resp.Social.Awards,
			PressMentions:     resp.Social.PressMentions,
		},
		BrandQuality: clampPercent(resp.BrandQuality),
		Technologies: resp.Company.Technologies,
		Provider:     "http",
		EnrichedAt:   p.now().UTC(),
	}, nil
}

// Failure is a lead that could not be enriched.
type Failure struct {
	Lead model.Lead
	Err  error
}

// All enriches leads concurrently, at most limit at a time. Results keep the
// input order. A lead whose enrichment fails is reported in failures and
// left out of the results; only a cancelled context aborts the batch.
func All(ctx context.Context, p Provider, leads []model.Lead, limit int) ([]model.EnrichedLead, []Failure, error) {
	if limit <= 0 {
		limit = 5
	}

	out := make([]*model.EnrichedLead, len(leads))
	var (
		mu       sync.Mutex
		failures []Failure
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, lead := range leads {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := p.Enrich(gctx, lead)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				zap.L().Warn("enrich: lead failed",
					zap.String("lead_id", lead.ID),
					zap.String("email", lead.Contact.Email),
					zap.Error(err),
				)
				mu.Lock()
				failures = append(failures, Failure{Lead: lead, Err: err})
				mu.Unlock()
				return nil
			}
			out[i] = &model.EnrichedLead{Lead: lead, Enrichment: data}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	enriched := make([]model.EnrichedLead, 0, len(leads))
	for _, e := range out {
		if e != nil {
			enriched = append(enriched, *e)
		}
	}
	return enriched, failures, nil
}

func clampPercent(v int) int {
	return max(0, min(v, 100))
}
