// Package classify maps free-text replies to an intent, confidence and next
// action using ordered marker-phrase rules.
package classify

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/sells-group/outreach-cli/internal/model"
)

var apostrophes = strings.NewReplacer("’", "'", "‘", "'", "`", "'")

// Classify returns the classification for a reply text. It is deterministic
// and has no side effects. Texts that match no markers are Neutral with
// Ambiguous set.
func Classify(text string) model.ClassificationResult {
	norm := normalize(text)

	var (
		intent  = model.IntentNeutral
		matched []string
	)
	for _, f := range families {
		hits := matchMarkers(norm, f.markers)
		if len(hits) > 0 {
			intent = f.intent
			matched = hits
			break
		}
	}

	res := model.ClassificationResult{
		Intent:            intent,
		Confidence:        Confidence(text, intent),
		Reasoning:         reasons[intent],
		NextAction:        ActionFor(intent),
		SuggestedResponse: suggestedResponse(intent, matched),
		Markers:           matched,
		Ambiguous:         len(matched) == 0,
	}
	return res
}

// Confidence is a monotonic function of word count: 5 points per word capped
// at 95, plus 10 (capped at 100) for Positive and NotInterested.
func Confidence(text string, intent model.Intent) int {
	words := len(strings.Fields(text))
	c := min(words*5, 95)
	if intent == model.IntentPositive || intent == model.IntentNotInterested {
		c = min(c+10, 100)
	}
	return c
}

func normalize(text string) string {
	s := cases.Fold().String(apostrophes.Replace(text))
	return strings.Join(strings.Fields(s), " ")
}

func matchMarkers(text string, markers []string) []string {
	var hits []string
	for _, m := range markers {
		if strings.Contains(text, m) {
			hits = append(hits, m)
		}
	}
	return hits
}

func suggestedResponse(intent model.Intent, markers []string) string {
	if intent == model.IntentObjection && len(markers) > 0 {
		if r, ok := objectionPlaybook[markers[0]]; ok {
			return r
		}
		return strings.ReplaceAll(responses[intent], "{{objection}}", markers[0])
	}
	return responses[intent]
}
