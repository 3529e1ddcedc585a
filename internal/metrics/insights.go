package metrics

import (
	"fmt"

	"github.com/sells-group/outreach-cli/internal/model"
)

// Rate targets used to flag improvement areas.
const (
	TargetDeliveryRate      = 95.0
	TargetReplyRate         = 20.0
	TargetQualificationRate = 50.0
	TargetBookingRate       = 70.0
	TargetNoShowRate        = 10.0
)

// Insights derives improvement areas and recommendations from a report.
// Nothing is flagged until the relevant denominator has data.
func Insights(r Report) (areas, recs []string) {
	if r.MessagesSent > 0 && r.DeliveryRate < TargetDeliveryRate {
		areas = append(areas, fmt.Sprintf("Increase delivery rate from %.1f%% to %.0f%%", r.DeliveryRate, TargetDeliveryRate))
		recs = append(recs, "Verify contact emails and LinkedIn profiles before launch")
	}
	if r.LeadsOutreached > 0 && r.ReplyRate < TargetReplyRate {
		areas = append(areas, fmt.Sprintf("Improve reply rate from %.1f%% to %.0f%%", r.ReplyRate, TargetReplyRate))
		recs = append(recs,
			"A/B test subject lines to improve open rates",
			"Personalize email body with company-specific insights",
			"Follow up with non-responders after 7 days",
		)
	}
	if r.CallsCompleted > 0 && r.QualificationRate < TargetQualificationRate {
		areas = append(areas, fmt.Sprintf("Raise qualification rate from %.1f%% to %.0f%%", r.QualificationRate, TargetQualificationRate))
		recs = append(recs, "Tighten targeting toward the best performing tier")
	}
	if r.QualifiedLeads > 0 && r.MeetingBookingRate < TargetBookingRate {
		areas = append(areas, fmt.Sprintf("Improve meeting booking rate from %.1f%% to %.0f%%", r.MeetingBookingRate, TargetBookingRate))
		recs = append(recs, "Offer more meeting slots in the booking window")
	}
	if r.MeetingsCompleted+r.MeetingNoShows > 0 && r.NoShowRate > TargetNoShowRate {
		areas = append(areas, fmt.Sprintf("Reduce meeting no-show rate from %.1f%% to %.0f%%", r.NoShowRate, TargetNoShowRate))
		recs = append(recs, "Send a reminder the day before each meeting")
	}
	if r.PositiveReplies > r.CallsPlaced {
		recs = append(recs, "Schedule qualification calls within 24 hours of positive reply")
	}

	if email, li, ok := effectiveness(r, model.ChannelEmail, model.ChannelLinkedIn); ok && li < email {
		recs = append(recs, "Use LinkedIn for warm introductions before email")
	}
	if r.BestTier != 0 {
		recs = append(recs, fmt.Sprintf("Prioritise %s leads in the next campaign", r.BestTier))
	}
	if r.BestChannel != "" {
		recs = append(recs, fmt.Sprintf("Lead with %s, the most effective channel", r.BestChannel))
	}
	return areas, recs
}

func effectiveness(r Report, a, b model.Channel) (float64, float64, bool) {
	var ea, eb float64
	var hasA, hasB bool
	for _, cs := range r.Channels {
		if cs.Sent == 0 {
			continue
		}
		switch cs.Channel {
		case a:
			ea, hasA = cs.Effectiveness, true
		case b:
			eb, hasB = cs.Effectiveness, true
		}
	}
	return ea, eb, hasA && hasB
}
