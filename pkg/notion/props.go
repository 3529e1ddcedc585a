package notion

import (
	"strings"

	"github.com/jomei/notionapi"
)

// Text returns the plain-text value of a page property. Title, rich text,
// email, phone, URL, select and status properties are supported; anything
// else yields "".
func Text(p notionapi.Page, name string) string {
	prop, ok := p.Properties[name]
	if !ok {
		return ""
	}
	switch v := prop.(type) {
	case *notionapi.TitleProperty:
		return plainText(v.Title)
	case *notionapi.RichTextProperty:
		return plainText(v.RichText)
	case *notionapi.EmailProperty:
		return strings.TrimSpace(v.Email)
	case *notionapi.PhoneNumberProperty:
		return strings.TrimSpace(v.PhoneNumber)
	case *notionapi.URLProperty:
		return strings.TrimSpace(v.URL)
	case *notionapi.SelectProperty:
		return v.Select.Name
	case *notionapi.StatusProperty:
		return v.Status.Name
	default:
		return ""
	}
}

func plainText(rts []notionapi.RichText) string {
	var b strings.Builder
	for _, rt := range rts {
		if rt.PlainText != "" {
			b.WriteString(rt.PlainText)
		} else if rt.Text != nil {
			b.WriteString(rt.Text.Content)
		}
	}
	return strings.TrimSpace(b.String())
}
