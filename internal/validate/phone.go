package validate

import (
	"strings"

	"github.com/nyaruka/phonenumbers"

	"github.com/sells-group/outreach-cli/internal/model"
)

// NormalizeE164 formats a phone number to E.164, parsing national numbers in
// region. Unparseable or invalid numbers return a ValidationError.
func NormalizeE164(input, region string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", &model.ValidationError{Entity: "phone", Fields: []model.FieldError{{Field: "phone", Reason: "is required"}}}
	}
	if region == "" {
		region = "US"
	}

	number, err := phonenumbers.Parse(trimmed, strings.ToUpper(region))
	if err != nil || !phonenumbers.IsValidNumber(number) {
		return "", &model.ValidationError{Entity: "phone", Fields: []model.FieldError{{Field: "phone", Reason: "is not a valid number"}}}
	}
	return phonenumbers.Format(number, phonenumbers.E164), nil
}
