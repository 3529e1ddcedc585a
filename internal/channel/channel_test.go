package channel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/resilience"
)

type flakySender struct {
	calls atomic.Int32
	fail  int32
}

func (f *flakySender) Send(_ context.Context, msg Message) (model.DeliveryResult, error) {
	n := f.calls.Add(1)
	if n <= f.fail {
		return model.DeliveryResult{}, resilience.NewTransientError(errors.New("503"), 503)
	}
	return model.DeliveryResult{MessageID: "m-1", Channel: msg.Channel}, nil
}

func testGuard() *resilience.Guard {
	return resilience.NewGuard(
		resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond},
		resilience.CircuitBreakerConfig{FailureThreshold: 10, ResetTimeout: time.Minute},
	)
}

func TestMultiplexer_RoutesByChannel(t *testing.T) {
	t.Parallel()

	m := NewMultiplexer(0, 0, nil)
	email := NewOutbox(model.ChannelEmail)
	li := NewOutbox(model.ChannelLinkedIn)
	m.Register(model.ChannelEmail, email)
	m.Register(model.ChannelLinkedIn, li)

	res, err := m.Send(context.Background(), Message{LeadID: "l1", Channel: model.ChannelLinkedIn, To: "https://linkedin.com/in/x", Body: "hi"})
	require.NoError(t, err)
	assert.Equal(t, model.ChannelLinkedIn, res.Channel)
	assert.NotEmpty(t, res.MessageID)
	assert.Len(t, li.Sent(), 1)
	assert.Empty(t, email.Sent())
	assert.Equal(t, []model.Channel{model.ChannelEmail, model.ChannelLinkedIn}, m.Channels())
}

func TestMultiplexer_UnknownChannel(t *testing.T) {
	t.Parallel()

	m := NewMultiplexer(0, 0, nil)
	_, err := m.Send(context.Background(), Message{Channel: model.ChannelSMS})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no sender")
}

func TestMultiplexer_RetriesTransientFailures(t *testing.T) {
	t.Parallel()

	m := NewMultiplexer(0, 0, testGuard())
	s := &flakySender{fail: 2}
	m.Register(model.ChannelEmail, s)

	res, err := m.Send(context.Background(), Message{Channel: model.ChannelEmail})
	require.NoError(t, err)
	assert.Equal(t, "m-1", res.MessageID)
	assert.Equal(t, int32(3), s.calls.Load())
}

func TestMultiplexer_ExhaustedRetriesIsCollaboratorError(t *testing.T) {
	t.Parallel()

	m := NewMultiplexer(0, 0, testGuard())
	m.Register(model.ChannelEmail, &flakySender{fail: 10})

	_, err := m.Send(context.Background(), Message{Channel: model.ChannelEmail})
	require.Error(t, err)
	assert.True(t, model.IsCollaborator(err))
}

func TestMultiplexer_RateLimitHonoursContext(t *testing.T) {
	t.Parallel()

	m := NewMultiplexer(0.001, 1, nil)
	m.Register(model.ChannelEmail, NewOutbox(model.ChannelEmail))

	_, err := m.Send(context.Background(), Message{Channel: model.ChannelEmail})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = m.Send(ctx, Message{Channel: model.ChannelEmail})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}

func TestOutbox_CancelledContext(t *testing.T) {
	t.Parallel()

	o := NewOutbox(model.ChannelSMS)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Send(ctx, Message{Channel: model.ChannelSMS})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, o.Sent())
}

func TestSMTPSender_InvalidRecipient(t *testing.T) {
	t.Parallel()

	s := NewSMTPSender(config.SMTPConfig{Host: "127.0.0.1", Port: 1, From: "sdr@example.com", FromName: "SDR"})
	_, err := s.Send(context.Background(), Message{Channel: model.ChannelEmail, To: "not-an-email", Subject: "hi", Body: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp: to")
}

func TestSMTPSender_BuildMsg(t *testing.T) {
	t.Parallel()

	s := NewSMTPSender(config.SMTPConfig{From: "sdr@example.com", FromName: "SDR"})
	m, err := s.buildMsg(Message{To: "jane@acme.com", ToName: "Jane Doe", Subject: "Quick question", Body: "Hello"})
	require.NoError(t, err)
	assert.NotEmpty(t, m.GetMessageID())
	assert.Equal(t, []string{"Quick question"}, m.GetGenHeader("Subject"))
}
