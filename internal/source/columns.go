package source

import (
	"strings"

	"github.com/sells-group/outreach-cli/internal/model"
)

var columnAliases = map[string]string{
	"firstname":       "first",
	"first":           "first",
	"givenname":       "first",
	"lastname":        "last",
	"last":            "last",
	"surname":         "last",
	"name":            "name",
	"fullname":        "name",
	"contactname":     "name",
	"email":           "email",
	"emailaddress":    "email",
	"workemail":       "email",
	"phone":           "phone",
	"phonenumber":     "phone",
	"mobile":          "phone",
	"title":           "title",
	"jobtitle":        "title",
	"company":         "company",
	"companyname":     "company",
	"organization":    "company",
	"account":         "company",
	"domain":          "domain",
	"website":         "domain",
	"companywebsite":  "domain",
	"linkedin":        "linkedin",
	"linkedinurl":     "linkedin",
	"linkedinprofile": "linkedin",
	"location":        "location",
	"city":            "location",
}

// columnKey maps a header cell to a contact field key, or "".
func columnKey(header string) string {
	h := strings.ToLower(strings.TrimSpace(header))
	h = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(h)
	return columnAliases[h]
}

// rowMapper converts rows to contacts using a header row.
type rowMapper struct {
	keys []string
}

func newRowMapper(header []string) rowMapper {
	keys := make([]string, len(header))
	for i, h := range header {
		keys[i] = columnKey(h)
	}
	return rowMapper{keys: keys}
}

// contact maps a row. Missing trailing cells are treated as empty.
func (m rowMapper) contact(row []string) model.Contact {
	vals := make(map[string]string, len(m.keys))
	for i, k := range m.keys {
		if k == "" || i >= len(row) {
			continue
		}
		if _, set := vals[k]; !set {
			vals[k] = strings.TrimSpace(row[i])
		}
	}
	return fromValues(vals)
}

// fromValues builds a contact, splitting a full name when first/last are absent.
func fromValues(vals map[string]string) model.Contact {
	c := model.Contact{
		FirstName:   vals["first"],
		LastName:    vals["last"],
		Email:       vals["email"],
		Phone:       vals["phone"],
		Title:       vals["title"],
		Company:     vals["company"],
		Domain:      domainOf(vals["domain"]),
		LinkedInURL: vals["linkedin"],
		Location:    vals["location"],
	}
	if c.FirstName == "" && c.LastName == "" && vals["name"] != "" {
		first, last, _ := strings.Cut(strings.TrimSpace(vals["name"]), " ")
		c.FirstName, c.LastName = first, strings.TrimSpace(last)
	}
	return c
}

// domainOf strips scheme, "www." and any path from a website.
func domainOf(website string) string {
	d := strings.TrimSpace(website)
	if i := strings.Index(d, "://"); i >= 0 {
		d = d[i+3:]
	}
	d = strings.TrimPrefix(d, "www.")
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	return strings.ToLower(d)
}
