package notion

import (
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
)

func rich(s string) []notionapi.RichText {
	return []notionapi.RichText{{PlainText: s}}
}

func TestText(t *testing.T) {
	t.Parallel()

	page := notionapi.Page{
		Properties: notionapi.Properties{
			"Name":     &notionapi.TitleProperty{Title: rich("Jane Doe")},
			"Company":  &notionapi.RichTextProperty{RichText: []notionapi.RichText{{Text: &notionapi.Text{Content: " Acme "}}}},
			"Email":    &notionapi.EmailProperty{Email: "jane@acme.com"},
			"Phone":    &notionapi.PhoneNumberProperty{PhoneNumber: "+1 650 253 0000"},
			"LinkedIn": &notionapi.URLProperty{URL: "https://linkedin.com/in/jane"},
			"Segment":  &notionapi.SelectProperty{Select: notionapi.Option{Name: "Luxury"}},
			"Status":   &notionapi.StatusProperty{Status: notionapi.Status{Name: "Queued"}},
			"Count":    &notionapi.NumberProperty{Number: 3},
		},
	}

	tests := []struct {
		prop string
		want string
	}{
		{"Name", "Jane Doe"},
		{"Company", "Acme"},
		{"Email", "jane@acme.com"},
		{"Phone", "+1 650 253 0000"},
		{"LinkedIn", "https://linkedin.com/in/jane"},
		{"Segment", "Luxury"},
		{"Status", "Queued"},
		{"Count", ""},
		{"Missing", ""},
	}
	for _, tt := range tests {
		t.Run(tt.prop, func(t *testing.T) {
			assert.Equal(t, tt.want, Text(page, tt.prop))
		})
	}
}
