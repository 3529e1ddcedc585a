package crm

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/resilience"
	sfpkg "github.com/sells-group/outreach-cli/pkg/salesforce"
)

// SalesforceSync upserts leads as Salesforce Lead records and logs
// activities as Tasks.
type SalesforceSync struct {
	client sfpkg.Client
	guard  *resilience.Guard
	source string
}

// NewSalesforceSync creates a Salesforce-backed Sync.
func NewSalesforceSync(client sfpkg.Client, guard *resilience.Guard) *SalesforceSync {
	return &SalesforceSync{client: client, guard: guard, source: "Outbound Campaign"}
}

// UpsertLead finds the lead by email and updates it, or creates it.
func (s *SalesforceSync) UpsertLead(ctx context.Context, rec LeadRecord) (RecordRef, error) {
	c := rec.Lead.Contact
	if c.Email == "" {
		return RecordRef{}, eris.New("crm: lead email is required")
	}
	fields := leadFields(rec, s.source)

	existing, err := resilience.GuardVal(ctx, s.guard, "salesforce", "find_lead", func(ctx context.Context) (*sfpkg.Lead, error) {
		return sfpkg.FindLeadByEmail(ctx, s.client, c.Email)
	})
	if err != nil {
		return RecordRef{}, err
	}

	if existing != nil {
		err := s.guard.Do(ctx, "salesforce", "update_lead", func(ctx context.Context) error {
			return sfpkg.UpdateLead(ctx, s.client, existing.ID, fields)
		})
		if err != nil {
			return RecordRef{}, err
		}
		zap.L().Debug("crm: updated salesforce lead",
			zap.String("lead_id", rec.Lead.ID),
			zap.String("sf_id", existing.ID),
		)
		return RecordRef{ID: existing.ID, System: "salesforce"}, nil
	}

	id, err := resilience.GuardVal(ctx, s.guard, "salesforce", "create_lead", func(ctx context.Context) (string, error) {
		return sfpkg.CreateLead(ctx, s.client, fields)
	})
	if err != nil {
		return RecordRef{}, err
	}
	zap.L().Debug("crm: created salesforce lead",
		zap.String("lead_id", rec.Lead.ID),
		zap.String("sf_id", id),
	)
	return RecordRef{ID: id, System: "salesforce", Created: true}, nil
}

// LogActivity records a completed Task against the lead.
func (s *SalesforceSync) LogActivity(ctx context.Context, act Activity) error {
	fields := map[string]any{
		"Subject":      act.Subject,
		"Description":  act.Description,
		"Status":       "Completed",
		"Type":         act.Type,
		"ActivityDate": act.At.Format("2006-01-02"),
	}
	_, err := resilience.GuardVal(ctx, s.guard, "salesforce", "log_activity", func(ctx context.Context) (string, error) {
		return sfpkg.CreateTask(ctx, s.client, act.RecordID, fields)
	})
	return err
}

func leadFields(rec LeadRecord, source string) map[string]any {
	c := rec.Lead.Contact
	last := c.LastName
	if last == "" {
		last = c.FirstName
	}
	fields := map[string]any{
		"FirstName":  c.FirstName,
		"LastName":   last,
		"Email":      c.Email,
		"Company":    c.Company,
		"Title":      c.Title,
		"LeadSource": source,
		"Status":     rec.Stage,
		"Rating":     rating(rec.Lead.Tier),
	}
	if c.Phone != "" {
		fields["Phone"] = c.Phone
	}
	if e := rec.Lead.Enrichment; e != nil {
		if e.Company.Industry != "" {
			fields["Industry"] = e.Company.Industry
		}
		if e.Company.Revenue > 0 {
			fields["AnnualRevenue"] = e.Company.Revenue
		}
		if e.Company.Employees > 0 {
			fields["NumberOfEmployees"] = e.Company.Employees
		}
	}
	desc := fmt.Sprintf("ICP score %d (%s)", rec.Lead.Score, rec.Lead.Tier)
	if rec.Summary != "" {
		desc += "\n\n" + rec.Summary
	}
	fields["Description"] = desc
	return fields
}

func rating(t model.Tier) string {
	switch t {
	case model.Tier1:
		return "Hot"
	case model.Tier2:
		return "Warm"
	default:
		return "Cold"
	}
}
