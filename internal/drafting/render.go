// Package drafting renders outreach copy: sequence step templates and the
// replies sent for follow-ups and objections.
package drafting

import (
	"regexp"
	"strings"

	"github.com/sells-group/outreach-cli/internal/model"
)

// Vars maps personalisation token names to values.
type Vars map[string]string

var tokenRe = regexp.MustCompile(`\{\{\s*(\w+)\s*\}\}`)

// Render replaces {{token}} placeholders with vars. Unknown tokens render
// as empty strings.
func Render(tmpl string, vars Vars) string {
	return tokenRe.ReplaceAllStringFunc(tmpl, func(m string) string {
		name := tokenRe.FindStringSubmatch(m)[1]
		return vars[name]
	})
}

// LeadVars builds the personalisation tokens for a lead.
func LeadVars(lead model.Lead, pb model.Playbook) Vars {
	v := Vars{
		"firstName":        lead.Contact.FirstName,
		"lastName":         lead.Contact.LastName,
		"fullName":         lead.Contact.FullName(),
		"company":          lead.Contact.Company,
		"title":            lead.Contact.Title,
		"industry":         "your industry",
		"valueProposition": "We help teams like yours grow pipeline without adding headcount.",
		"opportunity":      "a growth partnership",
		"recentNews":       "your market",
		"painPoint":        "growth goals",
		"solution":         "our approach",
		"goal":             "growth plans",
	}
	if lead.Enrichment != nil {
		if ind := lead.Enrichment.Company.Industry; ind != "" {
			v["industry"] = ind
			v["recentNews"] = strings.ToLower(ind)
		}
	}
	if len(pb.ValuePropositions) > 0 {
		v["valueProposition"] = pb.ValuePropositions[0]
	}
	return v
}
