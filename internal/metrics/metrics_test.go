package metrics

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/outreach-cli/internal/model"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func leadWith(id string, tier model.Tier, status model.LeadStatus) model.Lead {
	return model.Lead{
		ID:         id,
		CampaignID: "c1",
		Status:     status,
		Tier:       tier,
		Enrichment: &model.EnrichmentData{Provider: "synthetic"},
	}
}

func seqWith(leadID string, attempts ...model.StepAttempt) model.OutboundSequence {
	return model.OutboundSequence{LeadID: leadID, StartedAt: t0, History: attempts}
}

func sent(ch model.Channel, ok bool) model.StepAttempt {
	return model.StepAttempt{Channel: ch, Delivered: ok, At: t0}
}

func reply(leadID string, ch model.Channel, intent model.Intent) model.InboundReply {
	return model.InboundReply{
		LeadID:         leadID,
		Channel:        ch,
		Status:         model.ReplyRouted,
		Classification: &model.ClassificationResult{Intent: intent},
	}
}

func fixture() Input {
	return Input{
		CampaignID: "c1",
		Leads: []model.Lead{
			leadWith("l1", model.Tier1, model.LeadStatusQualified),
			leadWith("l2", model.Tier1, model.LeadStatusReplied),
			leadWith("l3", model.Tier2, model.LeadStatusClosed),
			leadWith("l4", model.Tier2, model.LeadStatusOutreached),
			leadWith("l5", model.Tier3, model.LeadStatusScored),
		},
		Sequences: []model.OutboundSequence{
			seqWith("l1", sent(model.ChannelEmail, true), sent(model.ChannelLinkedIn, true)),
			seqWith("l2", sent(model.ChannelEmail, true), sent(model.ChannelLinkedIn, false)),
			seqWith("l3", sent(model.ChannelEmail, true)),
			seqWith("l4", sent(model.ChannelEmail, true)),
		},
		Replies: []model.InboundReply{
			reply("l1", model.ChannelEmail, model.IntentPositive),
			reply("l2", model.ChannelEmail, model.IntentNeutral),
			reply("l2", model.ChannelEmail, model.IntentOutOfOffice),
			reply("l3", model.ChannelLinkedIn, model.IntentNotInterested),
		},
		Calls: []model.QualificationCall{
			{LeadID: "l1", Phone: "+14155550100", Status: model.CallCompleted, Interest: model.InterestHigh},
		},
		Meetings: []model.Meeting{
			{LeadID: "l1", Status: model.MeetingConfirmed, BookedAt: t0.Add(72 * time.Hour)},
		},
		Errors: 1,
	}
}

func TestAggregate(t *testing.T) {
	r := Aggregate(fixture(), t0)

	assert.Equal(t, "c1", r.CampaignID)
	assert.Equal(t, 5, r.TotalLeads)
	assert.Equal(t, 5, r.LeadsEnriched)
	assert.Equal(t, 4, r.LeadsOutreached)
	assert.Equal(t, 1, r.LeadsClosed)

	assert.Equal(t, 6, r.MessagesSent)
	assert.Equal(t, 5, r.MessagesDelivered)
	assert.Equal(t, 1, r.MessagesFailed)
	assert.Equal(t, 83.3, r.DeliveryRate)

	assert.Equal(t, 4, r.RepliesReceived)
	assert.Equal(t, 3, r.LeadsReplied)
	assert.Equal(t, 75.0, r.ReplyRate)
	assert.Equal(t, 1, r.PositiveReplies)
	assert.Equal(t, 1, r.NeutralReplies)
	assert.Equal(t, 1, r.NotInterested)
	assert.Equal(t, 1, r.OutOfOffice)

	assert.Equal(t, 1, r.CallsPlaced)
	assert.Equal(t, 1, r.QualifiedLeads)
	assert.Equal(t, 100.0, r.QualificationRate)
	assert.Equal(t, 1, r.MeetingsBooked)
	assert.Equal(t, 100.0, r.MeetingBookingRate)
	assert.Equal(t, 3.0, r.DaysToFirstMeeting)
	assert.Equal(t, 1, r.Errors)

	require.Len(t, r.Tiers, 4)
	assert.Equal(t, TierStats{Tier: model.Tier1, Leads: 2, Outreached: 2, Replies: 3, Positive: 1, Meetings: 1, PositiveRate: 50}, r.Tiers[0])
	assert.Equal(t, model.Tier1, r.BestTier)

	require.Len(t, r.Channels, 2)
	assert.Equal(t, model.ChannelEmail, r.Channels[0].Channel)
	assert.Equal(t, 4, r.Channels[0].Sent)
	assert.Equal(t, 25.0, r.Channels[0].Effectiveness)
	assert.Equal(t, model.ChannelEmail, r.BestChannel)
}

func TestAggregate_Empty(t *testing.T) {
	r := Aggregate(Input{CampaignID: "c1"}, t0)

	assert.Zero(t, r.ReplyRate)
	assert.Zero(t, r.DeliveryRate)
	assert.Zero(t, r.BestTier)
	assert.Empty(t, r.BestChannel)
	assert.Empty(t, r.ImprovementAreas)
	assert.Len(t, r.Tiers, 4)
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0.0, Percent(3, 0))
	assert.Equal(t, 33.3, Percent(1, 3))
	assert.Equal(t, 66.7, Percent(2, 3))
	assert.Equal(t, 100.0, Percent(4, 4))
}

func TestInsights(t *testing.T) {
	r := Report{
		MessagesSent:    10,
		DeliveryRate:    80,
		LeadsOutreached: 10,
		ReplyRate:       10,
		PositiveReplies: 2,
		Channels: []ChannelStats{
			{Channel: model.ChannelEmail, Sent: 5, Effectiveness: 40},
			{Channel: model.ChannelLinkedIn, Sent: 5, Effectiveness: 0},
		},
		BestChannel: model.ChannelEmail,
	}
	areas, recs := Insights(r)

	assert.Equal(t, []string{
		"Increase delivery rate from 80.0% to 95%",
		"Improve reply rate from 10.0% to 20%",
	}, areas)
	assert.Contains(t, recs, "A/B test subject lines to improve open rates")
	assert.Contains(t, recs, "Schedule qualification calls within 24 hours of positive reply")
	assert.Contains(t, recs, "Use LinkedIn for warm introductions before email")
	assert.Contains(t, recs, "Lead with email, the most effective channel")
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	r := Aggregate(fixture(), t0)
	require.NoError(t, WriteCSV(&buf, r))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"metric", "value"}, rows[0])
	assert.Equal(t, []string{"Total Leads", "5"}, rows[1])
	assert.Len(t, rows, len(Summary(r))+1)
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, Aggregate(fixture(), t0)))

	out := buf.String()
	assert.Regexp(t, `CAMPAIGN\s+c1`, out)
	assert.Contains(t, out, "Reply Rate")
	assert.Contains(t, out, "75.0%")
	assert.Contains(t, out, "CHANNEL")
	assert.True(t, strings.Contains(out, "! ") || strings.Contains(out, "- "))
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	r := Aggregate(fixture(), t0)
	require.NoError(t, WriteXLSX(&buf, r))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, f.Sheets, 4)
	assert.Equal(t, "Summary", f.Sheets[0].Name)
	assert.Equal(t, "Total Leads", f.Sheets[0].Rows[1].Cells[0].String())
	assert.Equal(t, "5", f.Sheets[0].Rows[1].Cells[1].String())
	assert.Len(t, f.Sheets[1].Rows, 5)
	assert.Equal(t, "Insights", f.Sheets[3].Name)
}
