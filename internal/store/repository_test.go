package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/resilience"
)

func TestRepository_LeadsAndSequences(t *testing.T) {
	t.Parallel()

	r := NewRepository(NewMemory())
	ctx := context.Background()

	require.NoError(t, r.PutLead(ctx, model.Lead{ID: "l2", CampaignID: "c1", Status: model.LeadStatusNew}))
	require.NoError(t, r.PutLead(ctx, model.Lead{ID: "l1", CampaignID: "c1", Status: model.LeadStatusScored, Score: 83}))
	require.NoError(t, r.PutLead(ctx, model.Lead{ID: "l9", CampaignID: "c2"}))

	leads, err := r.ListLeads(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.Equal(t, "l1", leads[0].ID)
	assert.Equal(t, 83, leads[0].Score)

	_, err = r.GetLead(ctx, "c1", "nope")
	assert.True(t, IsNotFound(err))

	require.NoError(t, r.PutSequence(ctx, model.OutboundSequence{ID: "s1", CampaignID: "c1", LeadID: "l1", CurrentStep: 2}))
	seq, err := r.GetSequence(ctx, "c1", "l1")
	require.NoError(t, err)
	assert.Equal(t, 2, seq.CurrentStep)
}

func TestRepository_InboxWriteOrder(t *testing.T) {
	t.Parallel()

	r := NewRepository(newTestSQLite(t))
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	_, c2, err := r.Enqueue(ctx, model.InboundReply{ID: "r2", CampaignID: "c1", LeadID: "a", ReceivedAt: base.Add(2 * time.Second)})
	require.NoError(t, err)
	// Received earlier but written later: it still lands after r2.
	_, c1, err := r.Enqueue(ctx, model.InboundReply{ID: "r1", CampaignID: "c1", LeadID: "a", ReceivedAt: base.Add(time.Second)})
	require.NoError(t, err)
	assert.Greater(t, c1, c2)
	rp3, c3, err := r.Enqueue(ctx, model.InboundReply{CampaignID: "c1", LeadID: "b", ReceivedAt: base.Add(3 * time.Second)})
	require.NoError(t, err)
	assert.NotEmpty(t, rp3.ID)
	assert.Equal(t, model.ReplyNew, rp3.Status)
	assert.Greater(t, c3, c1)

	items, err := r.FetchSince(ctx, "c1", "")
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "r2", items[0].Reply.ID)
	assert.Equal(t, "r1", items[1].Reply.ID)
	assert.Equal(t, rp3.ID, items[2].Reply.ID)
	assert.Equal(t, c2, items[0].Cursor)
	assert.Equal(t, base.Add(time.Second), items[1].Reply.ReceivedAt)

	items, err = r.FetchSince(ctx, "c1", c1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, rp3.ID, items[0].Reply.ID)

	stored, err := r.GetReply(ctx, "c1", "r1")
	require.NoError(t, err)
	assert.Equal(t, "a", stored.LeadID)
}

func TestRepository_FetchPending(t *testing.T) {
	t.Parallel()

	r := NewRepository(NewMemory())
	ctx := context.Background()

	done, _, err := r.Enqueue(ctx, model.InboundReply{ID: "done", CampaignID: "c1", LeadID: "a"})
	require.NoError(t, err)
	_, _, err = r.Enqueue(ctx, model.InboundReply{ID: "stuck", CampaignID: "c1", LeadID: "a"})
	require.NoError(t, err)
	_, cursor, err := r.Enqueue(ctx, model.InboundReply{ID: "handled", CampaignID: "c1", LeadID: "b"})
	require.NoError(t, err)
	_, _, err = r.Enqueue(ctx, model.InboundReply{ID: "fresh", CampaignID: "c1", LeadID: "b"})
	require.NoError(t, err)

	done.Status = model.ReplyArchived
	require.NoError(t, r.PutReply(ctx, done))
	require.NoError(t, r.PutReply(ctx, model.InboundReply{ID: "handled", CampaignID: "c1", LeadID: "b", Status: model.ReplyEscalated}))
	require.NoError(t, r.PutReply(ctx, model.InboundReply{ID: "stuck", CampaignID: "c1", LeadID: "a", Status: model.ReplyClassified}))

	items, err := r.FetchPending(ctx, "c1", cursor)
	require.NoError(t, err)
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.Reply.ID)
	}
	assert.Equal(t, []string{"stuck", "fresh"}, ids)

	since, err := r.FetchSince(ctx, "c1", cursor)
	require.NoError(t, err)
	require.Len(t, since, 1)
	assert.Equal(t, "fresh", since[0].Reply.ID)
}

func TestRepository_EnqueueConcurrentCursorsUnique(t *testing.T) {
	t.Parallel()

	r := NewRepository(NewMemory())
	ctx := context.Background()
	at := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	cursors := make([]string, 20)
	for i := range cursors {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, c, err := r.Enqueue(ctx, model.InboundReply{CampaignID: "c1", LeadID: "a", ReceivedAt: at})
			assert.NoError(t, err)
			cursors[i] = c
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, c := range cursors {
		seen[c[:20]] = true
	}
	assert.Len(t, seen, len(cursors), "every write gets its own sequence")
}

func TestRepository_DLQ(t *testing.T) {
	t.Parallel()

	r := NewRepository(NewMemory())
	ctx := context.Background()
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	first := resilience.NewDLQEntry(model.InboundReply{ID: "r1", CampaignID: "c1"}, model.StageReplyHandling, resilience.DLQReasonFailed, assert.AnError, now)
	second := resilience.NewDLQEntry(model.InboundReply{ID: "r2", CampaignID: "c1"}, model.StageReplyHandling, resilience.DLQReasonAbandoned, nil, now.Add(time.Minute))
	require.NoError(t, r.PutDLQ(ctx, second))
	require.NoError(t, r.PutDLQ(ctx, first))

	all, err := r.ListDLQ(ctx, "c1", resilience.DLQFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "r1", all[0].ReplyID)

	abandoned, err := r.ListDLQ(ctx, "c1", resilience.DLQFilter{Reason: resilience.DLQReasonAbandoned})
	require.NoError(t, err)
	require.Len(t, abandoned, 1)
	assert.Equal(t, "r2", abandoned[0].ReplyID)

	limited, err := r.ListDLQ(ctx, "c1", resilience.DLQFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRepository_Events(t *testing.T) {
	t.Parallel()

	r := NewRepository(NewMemory())
	ctx := context.Background()
	at := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, r.AppendEvent(ctx, model.MilestoneEvent{ID: "e2", CampaignID: "c1", At: at.Add(time.Second)}))
	require.NoError(t, r.AppendEvent(ctx, model.MilestoneEvent{ID: "e1", CampaignID: "c1", At: at}))

	evs, err := r.ListEvents(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, evs, 2)
	assert.Equal(t, "e1", evs[0].ID)
}

func TestOpen(t *testing.T) {
	t.Parallel()

	kv, err := Open(context.Background(), config.StoreConfig{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryKV{}, kv)

	_, err = Open(context.Background(), config.StoreConfig{Driver: "mongo"})
	assert.Error(t, err)
}
