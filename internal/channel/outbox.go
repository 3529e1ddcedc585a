package channel

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
)

// Outbox is a Sender for channels without a delivery API. It logs and
// records each message so an operator or export can pick them up.
type Outbox struct {
	channel model.Channel
	mu      sync.Mutex
	sent    []Message
	now     func() time.Time
}

// NewOutbox creates an Outbox for ch.
func NewOutbox(ch model.Channel) *Outbox {
	return &Outbox{channel: ch, now: time.Now}
}

// Send implements Sender.
func (o *Outbox) Send(ctx context.Context, msg Message) (model.DeliveryResult, error) {
	if err := ctx.Err(); err != nil {
		return model.DeliveryResult{}, err
	}

	o.mu.Lock()
	o.sent = append(o.sent, msg)
	o.mu.Unlock()

	zap.L().Info("outbox: queued message",
		zap.String("channel", string(o.channel)),
		zap.String("lead_id", msg.LeadID),
		zap.String("to", msg.To),
		zap.String("template_id", msg.TemplateID),
	)

	return model.DeliveryResult{
		MessageID:  uuid.NewString(),
		Channel:    o.channel,
		AcceptedAt: o.now().UTC(),
	}, nil
}

// Sent returns a copy of the recorded messages.
func (o *Outbox) Sent() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Message, len(o.sent))
	copy(out, o.sent)
	return out
}
