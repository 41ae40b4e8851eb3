package uibridge

import (
	"log/slog"

	"github.com/vk/nodeweave/internal/ctxlog"
	"github.com/vk/nodeweave/internal/graph"
	"github.com/vk/nodeweave/internal/node"
	"github.com/vk/nodeweave/internal/scheduler"
)

// EmitFunc sends one event to the UI.
type EmitFunc func(event string, payload any)

// Publisher forwards change notifications of a graph and its scheduler.
type Publisher struct {
	emit   EmitFunc
	logger *slog.Logger

	graph     *graph.Graph
	graphSubs []string
	sched     *scheduler.Scheduler
	schedSub  string
}

// NewPublisher starts forwarding. sched may be nil.
func NewPublisher(g *graph.Graph, sched *scheduler.Scheduler, emit EmitFunc, logger *slog.Logger) *Publisher {
	p := &Publisher{emit: emit, logger: ctxlog.OrDefault(logger), graph: g, sched: sched}
	p.graphSubs = []string{
		g.OnNodesChanged(func(d graph.NodeDelta) { p.send(EventNodesChanged, NewNodesPayload(d)) }),
		g.OnEdgesChanged(func(d graph.EdgeDelta) { p.send(EventEdgesChanged, NewEdgesPayload(d)) }),
		g.OnDelta(func(d graph.Delta) { p.send(EventDelta, NewDeltaPayload(d)) }),
	}
	if sched != nil {
		p.schedSub = sched.OnCurrentNodeChanged(func(n *node.Node) {
			p.send(EventCurrentNode, NewCurrentNodePayload(n))
		})
	}
	return p
}

func (p *Publisher) send(event string, payload any) {
	p.logger.Debug("Publishing UI event.", "event", event)
	p.emit(event, payload)
}

// Close stops forwarding.
func (p *Publisher) Close() {
	for _, id := range p.graphSubs {
		p.graph.Unsubscribe(id)
	}
	p.graphSubs = nil
	if p.sched != nil && p.schedSub != "" {
		p.sched.Unsubscribe(p.schedSub)
		p.schedSub = ""
	}
}
