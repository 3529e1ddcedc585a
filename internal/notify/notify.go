// Package notify publishes campaign milestone events to chat webhooks.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
)

// Sink receives milestone events.
type Sink interface {
	Publish(ctx context.Context, ev model.MilestoneEvent) error
}

// Colors maps each milestone kind to its attachment color.
var Colors = map[model.MilestoneKind]string{
	model.MilestonePositiveReply:    "#36a64f",
	model.MilestoneCallCompleted:    "#0099ff",
	model.MilestoneMeetingBooked:    "#ff6b6b",
	model.MilestoneHighValueLead:    "#ffd700",
	model.MilestoneSystemError:      "#ff0000",
	model.MilestoneCampaignProgress: "#9c27b0",
}

const footer = "Outreach Pipeline"

// Payload is a Slack-style incoming webhook message.
type Payload struct {
	Channel     string       `json:"channel,omitempty"`
	Attachments []Attachment `json:"attachments"`
}

// Attachment is one colored block of a webhook message.
type Attachment struct {
	Color  string  `json:"color"`
	Title  string  `json:"title"`
	Text   string  `json:"text"`
	Fields []Field `json:"fields,omitempty"`
	Footer string  `json:"footer"`
	TS     int64   `json:"ts"`
}

// Field is a short key/value pair rendered inside an attachment.
type Field struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// Format builds the webhook payload for an event. Fields are sorted by name.
func Format(ev model.MilestoneEvent, channel string) Payload {
	color, ok := Colors[ev.Kind]
	if !ok {
		color = "#cccccc"
	}

	names := make([]string, 0, len(ev.Fields))
	for k := range ev.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	fields := make([]Field, 0, len(names))
	for _, k := range names {
		fields = append(fields, Field{Title: k, Value: ev.Fields[k], Short: true})
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	return Payload{
		Channel: channel,
		Attachments: []Attachment{{
			Color:  color,
			Title:  ev.Title,
			Text:   ev.Message,
			Fields: fields,
			Footer: footer,
			TS:     at.Unix(),
		}},
	}
}

// WebhookSink posts events to an incoming webhook URL.
type WebhookSink struct {
	url     string
	channel string
	client  *http.Client
}

// NewWebhookSink creates a webhook sink.
func NewWebhookSink(url, channel string) *WebhookSink {
	return &WebhookSink{
		url:     url,
		channel: channel,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Publish posts a single event.
func (s *WebhookSink) Publish(ctx context.Context, ev model.MilestoneEvent) error {
	payload, err := json.Marshal(Format(ev, s.channel))
	if err != nil {
		return eris.Wrap(err, "notify: marshal event")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "notify: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "notify: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("notify: webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// LogSink writes events to the global logger.
type LogSink struct{}

// Publish logs the event.
func (LogSink) Publish(_ context.Context, ev model.MilestoneEvent) error {
	zap.L().Info("notify: milestone",
		zap.String("campaign_id", ev.CampaignID),
		zap.String("kind", string(ev.Kind)),
		zap.String("title", ev.Title),
		zap.String("lead_id", ev.LeadID),
	)
	return nil
}
