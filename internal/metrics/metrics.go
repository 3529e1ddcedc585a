// Package metrics rolls campaign state up into KPIs and derived insights.
// Reports are always recomputed from stored entities and never persisted.
package metrics

import (
	"math"
	"time"

	"github.com/sells-group/outreach-cli/internal/model"
)

// Input is the campaign state a report is computed from.
type Input struct {
	CampaignID string
	Leads      []model.Lead
	Sequences  []model.OutboundSequence
	Replies    []model.InboundReply
	Calls      []model.QualificationCall
	Meetings   []model.Meeting
	Errors     int
}

// TierStats is the funnel for one tier.
type TierStats struct {
	Tier         model.Tier `json:"tier"`
	Leads        int        `json:"leads"`
	Outreached   int        `json:"outreached"`
	Replies      int        `json:"replies"`
	Positive     int        `json:"positive"`
	Meetings     int        `json:"meetings"`
	PositiveRate float64    `json:"positive_rate"`
}

// ChannelStats is delivery and response for one channel.
type ChannelStats struct {
	Channel       model.Channel `json:"channel"`
	Sent          int           `json:"sent"`
	Delivered     int           `json:"delivered"`
	Failed        int           `json:"failed"`
	Replies       int           `json:"replies"`
	Positive      int           `json:"positive"`
	Effectiveness float64       `json:"effectiveness"`
}

// Report is the campaign KPI rollup.
type Report struct {
	CampaignID  string    `json:"campaign_id"`
	GeneratedAt time.Time `json:"generated_at"`

	TotalLeads      int `json:"total_leads"`
	LeadsEnriched   int `json:"leads_enriched"`
	LeadsOutreached int `json:"leads_outreached"`
	LeadsClosed     int `json:"leads_closed"`

	MessagesSent      int     `json:"messages_sent"`
	MessagesDelivered int     `json:"messages_delivered"`
	MessagesFailed    int     `json:"messages_failed"`
	DeliveryRate      float64 `json:"delivery_rate"`

	RepliesReceived int     `json:"replies_received"`
	LeadsReplied    int     `json:"leads_replied"`
	ReplyRate       float64 `json:"reply_rate"`
	PositiveReplies int     `json:"positive_replies"`
	NeutralReplies  int     `json:"neutral_replies"`
	Objections      int     `json:"objections"`
	NotInterested   int     `json:"not_interested"`
	OutOfOffice     int     `json:"out_of_office"`
	FailedReplies   int     `json:"failed_replies"`

	CallsPlaced       int     `json:"calls_placed"`
	CallsCompleted    int     `json:"calls_completed"`
	QualifiedLeads    int     `json:"qualified_leads"`
	QualificationRate float64 `json:"qualification_rate"`

	MeetingsBooked     int     `json:"meetings_booked"`
	MeetingsCompleted  int     `json:"meetings_completed"`
	MeetingNoShows     int     `json:"meeting_no_shows"`
	MeetingBookingRate float64 `json:"meeting_booking_rate"`
	NoShowRate         float64 `json:"no_show_rate"`
	DaysToFirstMeeting float64 `json:"days_to_first_meeting"`

	Errors int `json:"errors"`

	Tiers       []TierStats    `json:"tiers"`
	Channels    []ChannelStats `json:"channels"`
	BestTier    model.Tier     `json:"best_tier,omitempty"`
	BestChannel model.Channel  `json:"best_channel,omitempty"`

	ImprovementAreas []string `json:"improvement_areas"`
	Recommendations  []string `json:"recommendations"`
}

var channelOrder = []model.Channel{model.ChannelEmail, model.ChannelLinkedIn, model.ChannelSMS, model.ChannelPhone}

// Aggregate computes the report for in.
func Aggregate(in Input, now time.Time) Report {
	r := Report{
		CampaignID:  in.CampaignID,
		GeneratedAt: now.UTC(),
		TotalLeads:  len(in.Leads),
		Errors:      in.Errors,
	}

	leads := make(map[string]model.Lead, len(in.Leads))
	tiers := make(map[model.Tier]*TierStats)
	for _, t := range model.AllTiers() {
		tiers[t] = &TierStats{Tier: t}
	}
	for _, l := range in.Leads {
		leads[l.ID] = l
		if l.Status.Rank() >= model.LeadStatusEnriched.Rank() && l.Enrichment != nil {
			r.LeadsEnriched++
		}
		if l.Status == model.LeadStatusClosed {
			r.LeadsClosed++
		}
		if ts, ok := tiers[l.Tier]; ok {
			ts.Leads++
		}
	}

	channels := make(map[model.Channel]*ChannelStats)
	chStats := func(ch model.Channel) *ChannelStats {
		cs, ok := channels[ch]
		if !ok {
			cs = &ChannelStats{Channel: ch}
			channels[ch] = cs
		}
		return cs
	}

	var firstStart time.Time
	for _, s := range in.Sequences {
		if len(s.History) > 0 {
			r.LeadsOutreached++
			if ts, ok := tiers[leads[s.LeadID].Tier]; ok {
				ts.Outreached++
			}
		}
		if firstStart.IsZero() || s.StartedAt.Before(firstStart) {
			firstStart = s.StartedAt
		}
		for _, a := range s.History {
			cs := chStats(a.Channel)
			cs.Sent++
			r.MessagesSent++
			if a.Delivered {
				cs.Delivered++
				r.MessagesDelivered++
			} else {
				cs.Failed++
				r.MessagesFailed++
			}
		}
	}

	replied := make(map[string]bool)
	for _, rp := range in.Replies {
		r.RepliesReceived++
		replied[rp.LeadID] = true
		if rp.Status == model.ReplyFailed {
			r.FailedReplies++
		}
		cs := chStats(rp.Channel)
		cs.Replies++
		ts := tiers[leads[rp.LeadID].Tier]
		if ts != nil {
			ts.Replies++
		}
		if rp.Classification == nil {
			continue
		}
		switch rp.Classification.Intent {
		case model.IntentPositive:
			r.PositiveReplies++
			cs.Positive++
			if ts != nil {
				ts.Positive++
			}
		case model.IntentNeutral:
			r.NeutralReplies++
		case model.IntentObjection:
			r.Objections++
		case model.IntentNotInterested:
			r.NotInterested++
		case model.IntentOutOfOffice:
			r.OutOfOffice++
		}
	}
	r.LeadsReplied = len(replied)

	for _, c := range in.Calls {
		if c.Phone != "" {
			r.CallsPlaced++
		}
		if c.Status == model.CallCompleted {
			r.CallsCompleted++
			if c.Interest == model.InterestHigh {
				r.QualifiedLeads++
			}
		}
	}

	var firstMeeting time.Time
	for _, m := range in.Meetings {
		r.MeetingsBooked++
		switch m.Status {
		case model.MeetingCompleted:
			r.MeetingsCompleted++
		case model.MeetingNoShow:
			r.MeetingNoShows++
		}
		if ts, ok := tiers[leads[m.LeadID].Tier]; ok {
			ts.Meetings++
		}
		if firstMeeting.IsZero() || m.BookedAt.Before(firstMeeting) {
			firstMeeting = m.BookedAt
		}
	}

	r.DeliveryRate = Percent(r.MessagesDelivered, r.MessagesSent)
	r.ReplyRate = Percent(r.LeadsReplied, r.LeadsOutreached)
	r.QualificationRate = Percent(r.QualifiedLeads, r.CallsCompleted)
	r.MeetingBookingRate = Percent(r.MeetingsBooked, r.QualifiedLeads)
	r.NoShowRate = Percent(r.MeetingNoShows, r.MeetingsCompleted+r.MeetingNoShows)
	if !firstMeeting.IsZero() && !firstStart.IsZero() && firstMeeting.After(firstStart) {
		r.DaysToFirstMeeting = round1(firstMeeting.Sub(firstStart).Hours() / 24)
	}

	for _, t := range model.AllTiers() {
		ts := tiers[t]
		ts.PositiveRate = Percent(ts.Positive, ts.Outreached)
		r.Tiers = append(r.Tiers, *ts)
		if ts.Outreached > 0 && (r.BestTier == 0 || ts.PositiveRate > tiers[r.BestTier].PositiveRate) {
			r.BestTier = t
		}
	}

	var best *ChannelStats
	for _, ch := range channelOrder {
		cs, ok := channels[ch]
		if !ok {
			continue
		}
		cs.Effectiveness = Percent(cs.Positive, cs.Sent)
		r.Channels = append(r.Channels, *cs)
		if cs.Sent > 0 && (best == nil || cs.Effectiveness > best.Effectiveness) {
			best = cs
		}
	}
	if best != nil {
		r.BestChannel = best.Channel
	}

	r.ImprovementAreas, r.Recommendations = Insights(r)
	return r
}

// Percent returns n/d as a percentage rounded to one decimal. A zero
// denominator yields 0.
func Percent(n, d int) float64 {
	if d <= 0 {
		return 0
	}
	return round1(float64(n) * 100 / float64(d))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
