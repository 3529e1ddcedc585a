package metrics

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Row is one labelled KPI.
type Row struct {
	Metric string
	Value  string
}

// Summary flattens the headline KPIs in display order.
func Summary(r Report) []Row {
	n := strconv.Itoa
	pct := func(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) + "%" }
	rows := []Row{
		{"Total Leads", n(r.TotalLeads)},
		{"Leads Enriched", n(r.LeadsEnriched)},
		{"Leads Outreached", n(r.LeadsOutreached)},
		{"Leads Closed", n(r.LeadsClosed)},
		{"Messages Sent", n(r.MessagesSent)},
		{"Messages Delivered", n(r.MessagesDelivered)},
		{"Delivery Rate", pct(r.DeliveryRate)},
		{"Replies Received", n(r.RepliesReceived)},
		{"Reply Rate", pct(r.ReplyRate)},
		{"Positive Replies", n(r.PositiveReplies)},
		{"Neutral Replies", n(r.NeutralReplies)},
		{"Objections", n(r.Objections)},
		{"Not Interested", n(r.NotInterested)},
		{"Out of Office", n(r.OutOfOffice)},
		{"Failed Replies", n(r.FailedReplies)},
		{"Calls Placed", n(r.CallsPlaced)},
		{"Calls Completed", n(r.CallsCompleted)},
		{"Qualified Leads", n(r.QualifiedLeads)},
		{"Qualification Rate", pct(r.QualificationRate)},
		{"Meetings Booked", n(r.MeetingsBooked)},
		{"Meeting Booking Rate", pct(r.MeetingBookingRate)},
		{"Meetings Completed", n(r.MeetingsCompleted)},
		{"Meeting No-Shows", n(r.MeetingNoShows)},
		{"Days to First Meeting", strconv.FormatFloat(r.DaysToFirstMeeting, 'f', 1, 64)},
		{"Errors", n(r.Errors)},
	}
	if r.BestTier != 0 {
		rows = append(rows, Row{"Best Performing Tier", r.BestTier.String()})
	}
	if r.BestChannel != "" {
		rows = append(rows, Row{"Best Performing Channel", string(r.BestChannel)})
	}
	return rows
}

// WriteTable writes the report as aligned text.
func WriteTable(w io.Writer, r Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "CAMPAIGN\t%s\n", r.CampaignID)
	for _, row := range Summary(r) {
		fmt.Fprintf(tw, "%s\t%s\n", row.Metric, row.Value)
	}

	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "TIER\tLEADS\tOUTREACHED\tREPLIES\tPOSITIVE\tMEETINGS\tPOSITIVE RATE")
	for _, t := range r.Tiers {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\t%d\t%.1f%%\n",
			int(t.Tier), t.Leads, t.Outreached, t.Replies, t.Positive, t.Meetings, t.PositiveRate)
	}

	if len(r.Channels) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "CHANNEL\tSENT\tDELIVERED\tFAILED\tREPLIES\tPOSITIVE\tEFFECTIVENESS")
		for _, c := range r.Channels {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%.1f%%\n",
				c.Channel, c.Sent, c.Delivered, c.Failed, c.Replies, c.Positive, c.Effectiveness)
		}
	}
	if err := tw.Flush(); err != nil {
		return eris.Wrap(err, "metrics: write table")
	}

	for _, a := range r.ImprovementAreas {
		if _, err := fmt.Fprintf(w, "! %s\n", a); err != nil {
			return eris.Wrap(err, "metrics: write table")
		}
	}
	for _, rec := range r.Recommendations {
		if _, err := fmt.Fprintf(w, "- %s\n", rec); err != nil {
			return eris.Wrap(err, "metrics: write table")
		}
	}
	return nil
}

// WriteCSV writes the headline KPIs as metric,value rows.
func WriteCSV(w io.Writer, r Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"metric", "value"}); err != nil {
		return eris.Wrap(err, "metrics: write csv header")
	}
	for _, row := range Summary(r) {
		if err := cw.Write([]string{row.Metric, row.Value}); err != nil {
			return eris.Wrap(err, "metrics: write csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "metrics: flush csv")
}

// WriteXLSX writes a workbook with Summary, Tiers, Channels and Insights
// sheets.
func WriteXLSX(w io.Writer, r Report) error {
	f := xlsx.NewFile()

	summary, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "metrics: add summary sheet")
	}
	addRow(summary, "Metric", "Value")
	for _, row := range Summary(r) {
		addRow(summary, row.Metric, row.Value)
	}

	tiers, err := f.AddSheet("Tiers")
	if err != nil {
		return eris.Wrap(err, "metrics: add tiers sheet")
	}
	addRow(tiers, "Tier", "Leads", "Outreached", "Replies", "Positive", "Meetings", "Positive Rate")
	for _, t := range r.Tiers {
		row := tiers.AddRow()
		row.AddCell().SetString(t.Tier.String())
		for _, v := range []int{t.Leads, t.Outreached, t.Replies, t.Positive, t.Meetings} {
			row.AddCell().SetInt(v)
		}
		row.AddCell().SetFloat(t.PositiveRate)
	}

	channels, err := f.AddSheet("Channels")
	if err != nil {
		return eris.Wrap(err, "metrics: add channels sheet")
	}
	addRow(channels, "Channel", "Sent", "Delivered", "Failed", "Replies", "Positive", "Effectiveness")
	for _, c := range r.Channels {
		row := channels.AddRow()
		row.AddCell().SetString(string(c.Channel))
		for _, v := range []int{c.Sent, c.Delivered, c.Failed, c.Replies, c.Positive} {
			row.AddCell().SetInt(v)
		}
		row.AddCell().SetFloat(c.Effectiveness)
	}

	insights, err := f.AddSheet("Insights")
	if err != nil {
		return eris.Wrap(err, "metrics: add insights sheet")
	}
	addRow(insights, "Type", "Text")
	for _, a := range r.ImprovementAreas {
		addRow(insights, "Improvement Area", a)
	}
	for _, rec := range r.Recommendations {
		addRow(insights, "Recommendation", rec)
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "metrics: write xlsx")
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, cells ...string) {
	row := sheet.AddRow()
	for _, c := range cells {
		row.AddCell().SetString(c)
	}
}
