// Package source loads raw contacts for a campaign and screens them before
// they become leads.
package source

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/validate"
)

// Source produces raw contacts for a playbook.
type Source interface {
	Name() string
	Fetch(ctx context.Context, pb model.Playbook) ([]model.Contact, error)
}

// Rejection is a contact that failed validation.
type Rejection struct {
	Contact model.Contact
	Err     error
}

// Prepare normalises contacts, rejects invalid ones and drops repeated
// emails, keeping the first occurrence.
func Prepare(v *validate.Validator, contacts []model.Contact) ([]model.Contact, []Rejection) {
	seen := make(map[string]struct{}, len(contacts))
	valid := make([]model.Contact, 0, len(contacts))
	var rejected []Rejection

	for _, c := range contacts {
		c = Normalize(c)
		if err := v.Contact(c); err != nil {
			rejected = append(rejected, Rejection{Contact: c, Err: err})
			continue
		}
		if _, dup := seen[c.Email]; dup {
			zap.L().Debug("source: dropping duplicate contact", zap.String("email", c.Email))
			continue
		}
		seen[c.Email] = struct{}{}
		valid = append(valid, c)
	}
	return valid, rejected
}

// Normalize trims every field and lowercases the email and domain.
func Normalize(c model.Contact) model.Contact {
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.Phone = strings.TrimSpace(c.Phone)
	c.Title = strings.TrimSpace(c.Title)
	c.Company = strings.TrimSpace(c.Company)
	c.Domain = strings.ToLower(strings.TrimSpace(c.Domain))
	c.LinkedInURL = strings.TrimSpace(c.LinkedInURL)
	c.Location = strings.TrimSpace(c.Location)
	return c
}

// Static serves a fixed contact list.
type Static struct {
	Contacts []model.Contact
}

// Name implements Source.
func (s Static) Name() string { return "static" }

// Fetch returns a copy of the contacts.
func (s Static) Fetch(ctx context.Context, _ model.Playbook) ([]model.Contact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]model.Contact(nil), s.Contacts...), nil
}
