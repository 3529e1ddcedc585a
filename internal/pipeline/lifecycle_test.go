package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/qualify"
	"github.com/sells-group/outreach-cli/internal/resilience"
)

// blockingDialer holds every call open until its context ends.
type blockingDialer struct {
	started chan struct{}
	once    sync.Once
}

func (d *blockingDialer) Dial(ctx context.Context, _ model.QualificationCall, _ model.Lead) (qualify.Outcome, error) {
	d.once.Do(func() { close(d.started) })
	<-ctx.Done()
	return qualify.Outcome{}, ctx.Err()
}

// gatedDialer holds the first call until release is closed.
type gatedDialer struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (d *gatedDialer) Dial(ctx context.Context, _ model.QualificationCall, _ model.Lead) (qualify.Outcome, error) {
	d.once.Do(func() { close(d.started) })
	select {
	case <-d.release:
		return qualify.Outcome{Answered: true, Duration: 15 * time.Minute, BANT: allMet}, nil
	case <-ctx.Done():
		return qualify.Outcome{}, ctx.Err()
	}
}

func waitStarted(t *testing.T, started <-chan struct{}) {
	t.Helper()
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("qualification call never started")
	}
}

func TestScheduler_RunsUntilStopped(t *testing.T) {
	var runs atomic.Int32
	s := NewScheduler(10*time.Millisecond, func(context.Context) { runs.Add(1) })

	require.NoError(t, s.Start(context.Background()))
	require.Error(t, s.Start(context.Background()), "second start")
	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Stop(context.Background()))
	after := runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, runs.Load())

	assert.NoError(t, s.Stop(context.Background()), "stop is idempotent")
}

func TestScheduler_RunsNeverOverlap(t *testing.T) {
	var active, peak atomic.Int32
	var runs atomic.Int32
	s := NewScheduler(time.Millisecond, func(context.Context) {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)
		runs.Add(1)
	})

	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return runs.Load() >= 4 }, time.Second, time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, int32(1), peak.Load())
}

func TestScheduler_StopDeadlineCancelsTask(t *testing.T) {
	started := make(chan struct{})
	var cancelled atomic.Bool
	s := NewScheduler(time.Hour, func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		cancelled.Store(true)
	})
	require.NoError(t, s.Start(context.Background()))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.Stop(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, cancelled.Load())
}

func TestRun_PollsRunningCampaigns(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	id, leads := h.start(t)
	jane := leads["strong.jane@acme.com"]
	h.reply(t, id, jane, "Not interested, thanks", time.Time{})

	require.NoError(t, h.o.Run(context.Background()))
	require.Error(t, h.o.Run(context.Background()), "already running")

	require.Eventually(t, func() bool {
		l, err := h.repo.GetLead(context.Background(), id, jane.ID)
		return err == nil && l.Status == model.LeadStatusClosed
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, h.o.Stop(context.Background()))
	assert.NoError(t, h.o.Stop(context.Background()), "stop without run")
}

func TestStop_AbandonsInFlightReplies(t *testing.T) {
	dialer := &blockingDialer{started: make(chan struct{})}
	h := newHarness(t, harnessOpts{dialer: dialer})
	id, leads := h.start(t)
	jane := leads["strong.jane@acme.com"]
	rid := h.reply(t, id, jane, "Sounds good, I'm interested", time.Time{})

	require.NoError(t, h.o.Run(context.Background()))
	waitStarted(t, dialer.started)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := h.o.Stop(ctx)
	require.Error(t, err)
	require.True(t, IsAbandoned(err))

	var ae *AbandonedError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, []string{rid}, ae.ReplyIDs)

	bg := context.Background()
	dlq, err := h.repo.ListDLQ(bg, id, resilience.DLQFilter{Reason: resilience.DLQReasonAbandoned})
	require.NoError(t, err)
	require.Len(t, dlq, 1)
	assert.Equal(t, rid, dlq[0].ReplyID)
	assert.Equal(t, "transient", dlq[0].ErrorType)

	// The reply was neither failed nor consumed, so the next run sees it again.
	rp, err := h.repo.GetReply(bg, id, rid)
	require.NoError(t, err)
	assert.False(t, rp.Status.Terminal())
	c, err := h.repo.GetCampaign(bg, id)
	require.NoError(t, err)
	assert.Empty(t, c.ReplyCursor)
}

func TestRun_SignalLetsInFlightRepliesFinish(t *testing.T) {
	dialer := &gatedDialer{started: make(chan struct{}), release: make(chan struct{})}
	h := newHarness(t, harnessOpts{dialer: dialer})
	id, leads := h.start(t)
	jane := leads["strong.jane@acme.com"]
	rid := h.reply(t, id, jane, "Sounds good, I'm interested", time.Time{})

	sigCtx, sig := context.WithCancel(context.Background())
	require.NoError(t, h.o.Run(sigCtx))
	waitStarted(t, dialer.started)

	// The signal context ends first; the call is still allowed to complete.
	sig()
	time.Sleep(20 * time.Millisecond)
	close(dialer.release)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, h.o.Stop(ctx))

	bg := context.Background()
	rp, err := h.repo.GetReply(bg, id, rid)
	require.NoError(t, err)
	assert.Equal(t, model.ReplyEscalated, rp.Status)
	assert.Equal(t, model.LeadStatusQualified, h.lead(t, id, jane.ID).Status)

	dlq, err := h.repo.ListDLQ(bg, id, resilience.DLQFilter{})
	require.NoError(t, err)
	assert.Empty(t, dlq)
}

func TestRun_SignalThenStopDeadlineAbandons(t *testing.T) {
	dialer := &blockingDialer{started: make(chan struct{})}
	h := newHarness(t, harnessOpts{dialer: dialer})
	id, leads := h.start(t)
	jane := leads["strong.jane@acme.com"]
	rid := h.reply(t, id, jane, "Sounds good, I'm interested", time.Time{})

	sigCtx, sig := context.WithCancel(context.Background())
	require.NoError(t, h.o.Run(sigCtx))
	waitStarted(t, dialer.started)
	sig()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := h.o.Stop(ctx)
	var ae *AbandonedError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, []string{rid}, ae.ReplyIDs)

	bg := context.Background()
	dlq, err := h.repo.ListDLQ(bg, id, resilience.DLQFilter{Reason: resilience.DLQReasonAbandoned})
	require.NoError(t, err)
	require.Len(t, dlq, 1)
	assert.Equal(t, rid, dlq[0].ReplyID)

	rp, err := h.repo.GetReply(bg, id, rid)
	require.NoError(t, err)
	assert.False(t, rp.Status.Terminal())
}

func TestStop_ReportsRepliesLeftInFlight(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	id, leads := h.start(t)
	jane := leads["strong.jane@acme.com"]

	require.NoError(t, h.o.Run(context.Background()))
	// A reply the loop stopped tracking without finishing it.
	h.o.track(model.InboundReply{ID: "r-stale", CampaignID: id, LeadID: jane.ID})

	err := h.o.Stop(context.Background())
	var ae *AbandonedError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, []string{"r-stale"}, ae.ReplyIDs)

	dlq, err := h.repo.ListDLQ(context.Background(), id, resilience.DLQFilter{Reason: resilience.DLQReasonAbandoned})
	require.NoError(t, err)
	require.Len(t, dlq, 1)
	assert.Equal(t, "r-stale", dlq[0].ReplyID)
}

func TestPauseResumeSequence(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	id, leads := h.start(t)
	jane := leads["strong.jane@acme.com"]
	ctx := context.Background()

	seq, err := h.o.PauseSequence(ctx, id, jane.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SequencePaused, seq.Status)
	assert.Equal(t, 2, seq.CurrentStep)

	// A paused sequence is not advanced by the poll loop.
	require.NoError(t, h.o.Tick(ctx, id))
	assert.Empty(t, h.linkedin.Sent())
	assert.Equal(t, model.SequencePaused, h.sequence(t, id, jane.ID).Status)

	seq, err = h.o.ResumeSequence(ctx, id, jane.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SequenceActive, seq.Status)
	assert.Equal(t, 2, seq.CurrentStep)

	require.NoError(t, h.o.Tick(ctx, id))
	assert.Len(t, h.linkedin.Sent(), 1)
	assert.Equal(t, 3, h.sequence(t, id, jane.ID).CurrentStep)

	_, err = h.o.PauseSequence(ctx, id, "missing")
	assert.Error(t, err)
}

func TestMetrics_ReflectsStoredState(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	id, leads := h.start(t)
	jane := leads["strong.jane@acme.com"]
	ctx := context.Background()

	h.reply(t, id, jane, "Interested, let's talk", time.Time{})
	require.NoError(t, h.o.Tick(ctx, id))

	r, err := h.o.Metrics(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, r.CampaignID)
	assert.Equal(t, 2, r.TotalLeads)
	assert.Equal(t, 1, r.MessagesSent)
	assert.Equal(t, 1, r.MessagesDelivered)
	assert.Equal(t, 100.0, r.DeliveryRate)
	assert.Equal(t, 1, r.RepliesReceived)
	assert.Equal(t, 1, r.PositiveReplies)
	assert.Equal(t, 1, r.CallsPlaced)
	assert.Equal(t, 1, r.CallsCompleted)
	assert.Equal(t, 1, r.QualifiedLeads)
	assert.Equal(t, 1, r.MeetingsBooked)
	assert.Equal(t, 0, r.Errors)

	// Reading metrics changes nothing.
	again, err := h.o.Metrics(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, r.MeetingsBooked, again.MeetingsBooked)
	assert.Equal(t, r.RepliesReceived, again.RepliesReceived)

	_, err = h.o.Metrics(ctx, "missing")
	assert.Error(t, err)
}
