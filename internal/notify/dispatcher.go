package notify

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/resilience"
)

// Dispatcher delivers events to a sink from a background goroutine.
// Publish never blocks: when the buffer is full the event is dropped.
type Dispatcher struct {
	sink  Sink
	guard *resilience.Guard
	queue chan model.MilestoneEvent
	log   *zap.Logger

	mu      sync.RWMutex
	closed  bool
	done    chan struct{}
	dropped atomic.Int64
	failed  atomic.Int64
	sent    atomic.Int64
}

// NewDispatcher creates a dispatcher and starts its delivery loop.
func NewDispatcher(sink Sink, bufferSize int, guard *resilience.Guard) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	d := &Dispatcher{
		sink:  sink,
		guard: guard,
		queue: make(chan model.MilestoneEvent, bufferSize),
		log:   zap.L().With(zap.String("component", "notify.dispatcher")),
		done:  make(chan struct{}),
	}
	go d.loop()
	return d
}

// Publish queues an event. It always returns nil.
func (d *Dispatcher) Publish(_ context.Context, ev model.MilestoneEvent) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.dropped.Add(1)
		return nil
	}
	select {
	case d.queue <- ev:
	default:
		d.dropped.Add(1)
		d.log.Warn("notify: buffer full, dropping event",
			zap.String("kind", string(ev.Kind)),
			zap.String("campaign_id", ev.CampaignID),
		)
	}
	return nil
}

func (d *Dispatcher) loop() {
	defer close(d.done)
	for ev := range d.queue {
		err := d.guard.Do(context.Background(), "notify", "publish", func(ctx context.Context) error {
			return d.sink.Publish(ctx, ev)
		})
		if err != nil {
			d.failed.Add(1)
			d.log.Error("notify: failed to publish event",
				zap.String("kind", string(ev.Kind)),
				zap.Error(err),
			)
			continue
		}
		d.sent.Add(1)
	}
}

// Close stops accepting events and waits for queued ones to be delivered.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "notify: close")
	}
}

// Stats reports delivered, failed and dropped counts.
func (d *Dispatcher) Stats() (sent, failed, dropped int64) {
	return d.sent.Load(), d.failed.Load(), d.dropped.Load()
}
