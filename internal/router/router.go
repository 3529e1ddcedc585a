// Package router dispatches classified replies to the handler for their
// next action and keeps replies from one lead in receipt order.
package router

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
)

// Handlers performs the side effects for each next action.
type Handlers interface {
	TriggerQualificationCall(ctx context.Context, reply model.InboundReply) error
	SendFollowup(ctx context.Context, reply model.InboundReply) error
	HandleObjection(ctx context.Context, reply model.InboundReply) error
	CloseLoop(ctx context.Context, reply model.InboundReply) error
	Archive(ctx context.Context, reply model.InboundReply) error
}

type handlerFunc func(ctx context.Context, reply model.InboundReply) error

// terminal is the reply status after each action succeeds.
var terminal = map[model.NextAction]model.ReplyStatus{
	model.ActionTriggerQualificationCall: model.ReplyEscalated,
	model.ActionSendFollowup:             model.ReplyResponded,
	model.ActionHandleObjection:          model.ReplyResponded,
	model.ActionCloseLoop:                model.ReplyArchived,
	model.ActionArchive:                  model.ReplyArchived,
}

// TerminalStatus returns the reply status reached once action completes.
func TerminalStatus(action model.NextAction) (model.ReplyStatus, bool) {
	s, ok := terminal[action]
	return s, ok
}

// Router is a dispatch table from next action to handler.
type Router struct {
	table map[model.NextAction]handlerFunc
	log   *zap.Logger
}

// New creates a Router over h.
func New(h Handlers) *Router {
	return &Router{
		table: map[model.NextAction]handlerFunc{
			model.ActionTriggerQualificationCall: h.TriggerQualificationCall,
			model.ActionSendFollowup:             h.SendFollowup,
			model.ActionHandleObjection:          h.HandleObjection,
			model.ActionCloseLoop:                h.CloseLoop,
			model.ActionArchive:                  h.Archive,
		},
		log: zap.L().With(zap.String("component", "router")),
	}
}

// Route runs the handler for a classified reply and returns the reply in
// its terminal status. A handler failure marks the reply failed and is
// returned.
func (r *Router) Route(ctx context.Context, reply model.InboundReply) (model.InboundReply, error) {
	if reply.Classification == nil {
		return reply, eris.Errorf("router: reply %s is not classified", reply.ID)
	}
	action := reply.Classification.NextAction
	fn, ok := r.table[action]
	if !ok {
		return reply, eris.Errorf("router: no handler for action %q", action)
	}

	reply.Status = model.ReplyRouted
	r.log.Debug("routing reply",
		zap.String("reply_id", reply.ID),
		zap.String("lead_id", reply.LeadID),
		zap.String("intent", string(reply.Classification.Intent)),
		zap.String("action", string(action)),
	)

	if err := fn(ctx, reply); err != nil {
		reply.Status = model.ReplyFailed
		reply.Error = err.Error()
		return reply, eris.Wrapf(err, "router: %s", action)
	}

	reply.Status = terminal[action]
	return reply, nil
}

// Partition groups replies into per-lead lanes. Each lane keeps receipt
// order; lanes are ordered by their first reply.
func Partition(replies []model.InboundReply) [][]model.InboundReply {
	idx := make(map[string]int)
	var lanes [][]model.InboundReply
	for _, rp := range replies {
		i, ok := idx[rp.LeadID]
		if !ok {
			i = len(lanes)
			idx[rp.LeadID] = i
			lanes = append(lanes, nil)
		}
		lanes[i] = append(lanes[i], rp)
	}
	return lanes
}
