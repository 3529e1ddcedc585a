package salesforce

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Lead represents a Salesforce Lead record.
type Lead struct {
	ID            string  `json:"Id" salesforce:"Id"`
	FirstName     string  `json:"FirstName" salesforce:"FirstName"`
	LastName      string  `json:"LastName" salesforce:"LastName"`
	Email         string  `json:"Email" salesforce:"Email"`
	Company       string  `json:"Company" salesforce:"Company"`
	Title         string  `json:"Title" salesforce:"Title"`
	Status        string  `json:"Status" salesforce:"Status"`
	Industry      string  `json:"Industry" salesforce:"Industry"`
	AnnualRevenue float64 `json:"AnnualRevenue" salesforce:"AnnualRevenue"`
}

// leadFields are the SOQL fields selected for Lead queries.
var leadFields = []string{
	"Id", "FirstName", "LastName", "Email", "Company",
	"Title", "Status", "Industry", "AnnualRevenue",
}

// FindLeadByEmail queries Salesforce for a Lead with the given email.
// Returns nil if no lead is found.
func FindLeadByEmail(ctx context.Context, c Client, email string) (*Lead, error) {
	soql := fmt.Sprintf(
		"SELECT %s FROM Lead WHERE Email = '%s' LIMIT 1",
		strings.Join(leadFields, ", "),
		escapeSoql(email),
	)

	var leads []Lead
	if err := c.Query(ctx, soql, &leads); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("sf: find lead by email %s", email))
	}
	if len(leads) == 0 {
		return nil, nil
	}
	return &leads[0], nil
}

// escapeSoql escapes single quotes in SOQL string literals to prevent injection.
func escapeSoql(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}
