package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/resilience"
)

// Repository stores campaign entities as JSON values under typed keys:
//
//	campaign/{cid}
//	state/{cid}
//	lead/{cid}/{lid}
//	sequence/{cid}/{lid}
//	reply/{cid}/{rid}
//	inbox/{cid}/{seq}-{rid}
//	call/{cid}/{callID}
//	meeting/{cid}/{mid}
//	dlq/{cid}/{id}
//	event/{cid}/{atUnixNano}-{id}
type Repository struct {
	kv KV

	// inboxMu orders inbox writes; lastSeq is the last inbox sequence handed out.
	inboxMu sync.Mutex
	lastSeq int64
}

// NewRepository wraps a KV.
func NewRepository(kv KV) *Repository {
	return &Repository{kv: kv}
}

// KV returns the underlying store.
func (r *Repository) KV() KV { return r.kv }

// IsNotFound reports whether err is a missing key.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func key(parts ...string) string {
	return strings.Join(parts, "/")
}

func receiptKey(t time.Time, id string) string {
	return fmt.Sprintf("%020d-%s", t.UTC().UnixNano(), id)
}

func put(ctx context.Context, kv KV, k string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return eris.Wrapf(err, "store: marshal %s", k)
	}
	return kv.Put(ctx, k, b)
}

func get[T any](ctx context.Context, kv KV, k string) (T, error) {
	var v T
	b, err := kv.Get(ctx, k)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return v, eris.Wrapf(err, "store: unmarshal %s", k)
	}
	return v, nil
}

func list[T any](ctx context.Context, kv KV, prefix string) ([]T, error) {
	entries, err := kv.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(entries))
	for _, e := range entries {
		var v T
		if err := json.Unmarshal(e.Value, &v); err != nil {
			return nil, eris.Wrapf(err, "store: unmarshal %s", e.Key)
		}
		out = append(out, v)
	}
	return out, nil
}

// Campaigns

func (r *Repository) PutCampaign(ctx context.Context, c model.Campaign) error {
	return put(ctx, r.kv, key("campaign", c.ID), c)
}

func (r *Repository) GetCampaign(ctx context.Context, id string) (model.Campaign, error) {
	return get[model.Campaign](ctx, r.kv, key("campaign", id))
}

func (r *Repository) ListCampaigns(ctx context.Context) ([]model.Campaign, error) {
	return list[model.Campaign](ctx, r.kv, "campaign/")
}

// Workflow state

func (r *Repository) PutState(ctx context.Context, s model.WorkflowState) error {
	return put(ctx, r.kv, key("state", s.CampaignID), s)
}

func (r *Repository) GetState(ctx context.Context, campaignID string) (model.WorkflowState, error) {
	return get[model.WorkflowState](ctx, r.kv, key("state", campaignID))
}

// Leads

func (r *Repository) PutLead(ctx context.Context, l model.Lead) error {
	return put(ctx, r.kv, key("lead", l.CampaignID, l.ID), l)
}

func (r *Repository) GetLead(ctx context.Context, campaignID, leadID string) (model.Lead, error) {
	return get[model.Lead](ctx, r.kv, key("lead", campaignID, leadID))
}

func (r *Repository) ListLeads(ctx context.Context, campaignID string) ([]model.Lead, error) {
	return list[model.Lead](ctx, r.kv, key("lead", campaignID)+"/")
}

// Sequences are keyed by lead; a lead has at most one.

func (r *Repository) PutSequence(ctx context.Context, s model.OutboundSequence) error {
	return put(ctx, r.kv, key("sequence", s.CampaignID, s.LeadID), s)
}

func (r *Repository) GetSequence(ctx context.Context, campaignID, leadID string) (model.OutboundSequence, error) {
	return get[model.OutboundSequence](ctx, r.kv, key("sequence", campaignID, leadID))
}

func (r *Repository) ListSequences(ctx context.Context, campaignID string) ([]model.OutboundSequence, error) {
	return list[model.OutboundSequence](ctx, r.kv, key("sequence", campaignID)+"/")
}

// Replies

func (r *Repository) PutReply(ctx context.Context, rp model.InboundReply) error {
	return put(ctx, r.kv, key("reply", rp.CampaignID, rp.ID), rp)
}

func (r *Repository) GetReply(ctx context.Context, campaignID, replyID string) (model.InboundReply, error) {
	return get[model.InboundReply](ctx, r.kv, key("reply", campaignID, replyID))
}

func (r *Repository) ListReplies(ctx context.Context, campaignID string) ([]model.InboundReply, error) {
	return list[model.InboundReply](ctx, r.kv, key("reply", campaignID)+"/")
}

// Enqueue appends a new reply to the campaign inbox and records it. It
// assigns an ID and receipt time when missing and returns the inbox cursor
// of the entry. Cursors come from a sequence owned by the store, so a
// caller-supplied ReceivedAt never places an entry behind one already
// written.
func (r *Repository) Enqueue(ctx context.Context, rp model.InboundReply) (model.InboundReply, string, error) {
	if rp.ID == "" {
		rp.ID = uuid.NewString()
	}
	if rp.ReceivedAt.IsZero() {
		rp.ReceivedAt = time.Now().UTC()
	}
	rp.Status = model.ReplyNew

	r.inboxMu.Lock()
	defer r.inboxMu.Unlock()

	cursor := fmt.Sprintf("%020d-%s", r.nextSeq(), rp.ID)
	if err := put(ctx, r.kv, key("inbox", rp.CampaignID, cursor), rp); err != nil {
		return rp, "", err
	}
	if err := r.PutReply(ctx, rp); err != nil {
		return rp, "", err
	}
	return rp, cursor, nil
}

// nextSeq returns a strictly increasing inbox sequence. It tracks the wall
// clock so sequences from separate processes sharing a store interleave
// sensibly. Callers hold inboxMu.
func (r *Repository) nextSeq() int64 {
	n := time.Now().UnixNano()
	if n <= r.lastSeq {
		n = r.lastSeq + 1
	}
	r.lastSeq = n
	return n
}

// InboxItem is a reply with its inbox cursor.
type InboxItem struct {
	Cursor string
	Reply  model.InboundReply
}

// FetchSince returns inbox replies written after cursor, in inbox order.
// An empty cursor returns the whole inbox.
func (r *Repository) FetchSince(ctx context.Context, campaignID, cursor string) ([]InboxItem, error) {
	return r.fetchInbox(ctx, campaignID, func(c string, _ model.InboundReply) bool {
		return c > cursor
	})
}

// FetchPending returns inbox replies written after cursor plus any earlier
// entries whose stored reply has not reached a terminal status, in inbox
// order. The second set catches writes that landed behind a cursor that
// had already moved on, and work interrupted before it finished.
func (r *Repository) FetchPending(ctx context.Context, campaignID, cursor string) ([]InboxItem, error) {
	replies, err := r.ListReplies(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	status := make(map[string]model.ReplyStatus, len(replies))
	for _, rp := range replies {
		status[rp.ID] = rp.Status
	}
	return r.fetchInbox(ctx, campaignID, func(c string, rp model.InboundReply) bool {
		if c > cursor {
			return true
		}
		st, ok := status[rp.ID]
		if !ok {
			st = rp.Status
		}
		return !st.Terminal()
	})
}

func (r *Repository) fetchInbox(ctx context.Context, campaignID string, keep func(cursor string, rp model.InboundReply) bool) ([]InboxItem, error) {
	prefix := key("inbox", campaignID) + "/"
	entries, err := r.kv.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	var out []InboxItem
	for _, e := range entries {
		c := strings.TrimPrefix(e.Key, prefix)
		var rp model.InboundReply
		if err := json.Unmarshal(e.Value, &rp); err != nil {
			return nil, eris.Wrapf(err, "store: unmarshal %s", e.Key)
		}
		if !keep(c, rp) {
			continue
		}
		out = append(out, InboxItem{Cursor: c, Reply: rp})
	}
	return out, nil
}

// Calls

func (r *Repository) PutCall(ctx context.Context, c model.QualificationCall) error {
	return put(ctx, r.kv, key("call", c.CampaignID, c.ID), c)
}

func (r *Repository) ListCalls(ctx context.Context, campaignID string) ([]model.QualificationCall, error) {
	return list[model.QualificationCall](ctx, r.kv, key("call", campaignID)+"/")
}

// Meetings

func (r *Repository) PutMeeting(ctx context.Context, m model.Meeting) error {
	return put(ctx, r.kv, key("meeting", m.CampaignID, m.ID), m)
}

func (r *Repository) ListMeetings(ctx context.Context, campaignID string) ([]model.Meeting, error) {
	return list[model.Meeting](ctx, r.kv, key("meeting", campaignID)+"/")
}

// Dead letters

func (r *Repository) PutDLQ(ctx context.Context, e resilience.DLQEntry) error {
	return put(ctx, r.kv, key("dlq", e.CampaignID, e.ID), e)
}

// ListDLQ returns dead-letter entries matching the filter, oldest first.
func (r *Repository) ListDLQ(ctx context.Context, campaignID string, f resilience.DLQFilter) ([]resilience.DLQEntry, error) {
	all, err := list[resilience.DLQEntry](ctx, r.kv, key("dlq", campaignID)+"/")
	if err != nil {
		return nil, err
	}
	var out []resilience.DLQEntry
	for _, e := range all {
		if !f.Matches(e) {
			continue
		}
		out = append(out, e)
	}
	sortByCreated(out)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// Milestone events

func (r *Repository) AppendEvent(ctx context.Context, ev model.MilestoneEvent) error {
	return put(ctx, r.kv, key("event", ev.CampaignID, receiptKey(ev.At, ev.ID)), ev)
}

func (r *Repository) ListEvents(ctx context.Context, campaignID string) ([]model.MilestoneEvent, error) {
	return list[model.MilestoneEvent](ctx, r.kv, key("event", campaignID)+"/")
}

func sortByCreated(es []resilience.DLQEntry) {
	sort.SliceStable(es, func(i, j int) bool { return es[i].CreatedAt.Before(es[j].CreatedAt) })
}
