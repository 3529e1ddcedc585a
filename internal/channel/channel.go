// Package channel delivers outbound sequence messages over email, LinkedIn
// and SMS, throttled per channel.
package channel

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/resilience"
)

// Message is one outbound touch.
type Message struct {
	LeadID     string        `json:"lead_id"`
	Channel    model.Channel `json:"channel"`
	To         string        `json:"to"`
	ToName     string        `json:"to_name,omitempty"`
	Subject    string        `json:"subject,omitempty"`
	Body       string        `json:"body"`
	TemplateID string        `json:"template_id,omitempty"`
}

// Sender delivers a message on a single channel.
type Sender interface {
	Send(ctx context.Context, msg Message) (model.DeliveryResult, error)
}

// Multiplexer routes messages to the sender registered for their channel,
// waiting on that channel's rate limiter first.
type Multiplexer struct {
	mu       sync.RWMutex
	senders  map[model.Channel]Sender
	limiters map[model.Channel]*rate.Limiter
	rps      float64
	burst    int
	guard    *resilience.Guard
}

// NewMultiplexer creates a Multiplexer. rps <= 0 disables throttling.
func NewMultiplexer(rps float64, burst int, guard *resilience.Guard) *Multiplexer {
	if burst <= 0 {
		burst = 1
	}
	return &Multiplexer{
		senders:  make(map[model.Channel]Sender),
		limiters: make(map[model.Channel]*rate.Limiter),
		rps:      rps,
		burst:    burst,
		guard:    guard,
	}
}

// Register sets the sender for a channel, replacing any existing one.
func (m *Multiplexer) Register(ch model.Channel, s Sender) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.senders[ch] = s
	if m.rps > 0 {
		m.limiters[ch] = rate.NewLimiter(rate.Limit(m.rps), m.burst)
	}
}

// Channels returns the channels that have a sender.
func (m *Multiplexer) Channels() []model.Channel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Channel, 0, len(m.senders))
	for _, ch := range []model.Channel{model.ChannelEmail, model.ChannelLinkedIn, model.ChannelSMS, model.ChannelPhone} {
		if _, ok := m.senders[ch]; ok {
			out = append(out, ch)
		}
	}
	return out
}

// Send delivers msg on its channel.
func (m *Multiplexer) Send(ctx context.Context, msg Message) (model.DeliveryResult, error) {
	m.mu.RLock()
	s, ok := m.senders[msg.Channel]
	lim := m.limiters[msg.Channel]
	m.mu.RUnlock()

	if !ok {
		return model.DeliveryResult{}, eris.Errorf("channel: no sender for %q", msg.Channel)
	}
	if lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return model.DeliveryResult{}, eris.Wrap(err, "channel: rate limit wait")
		}
	}

	res, err := resilience.GuardVal(ctx, m.guard, "channel."+string(msg.Channel), "send", func(ctx context.Context) (model.DeliveryResult, error) {
		return s.Send(ctx, msg)
	})
	if err != nil {
		return model.DeliveryResult{}, err
	}

	zap.L().Debug("channel: message sent",
		zap.String("lead_id", msg.LeadID),
		zap.String("channel", string(msg.Channel)),
		zap.String("message_id", res.MessageID),
	)
	return res, nil
}
