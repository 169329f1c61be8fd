// Package stackwalk turns the tracer's serial event stream into the method
// graph: it creates nodes through the registry, links caller/callee edges,
// tracks re-entrance, and accumulates per-edge call and weight accounting.
// One walker owns one execution context's call stack; contexts sharing a
// registry synchronize only through node creation.
package stackwalk

import (
	"fmt"

	"github.com/methodgraph/methodgraph/internal/errorutil"
	"github.com/methodgraph/methodgraph/internal/methodinfo"
	"github.com/methodgraph/methodgraph/internal/typeref"
)

// EventKind discriminates the four events a tracer reports.
type EventKind string

const (
	EventCall    EventKind = "call"
	EventCCall   EventKind = "ccall"
	EventReturn  EventKind = "return"
	EventCReturn EventKind = "creturn"
)

// Event is one observation from the instrumentation layer. Weight is the
// tracer's monotonic measurement at the time of the event; the walker only
// computes deltas and attaches no unit to them.
type Event struct {
	Kind     EventKind           `json:"kind"`
	Owner    typeref.Handle      `json:"owner,omitempty"`
	MethodID methodinfo.MethodID `json:"method_id,omitempty"`
	File     string              `json:"file,omitempty"`
	Line     int                 `json:"line,omitempty"`
	Weight   uint64              `json:"weight"`
}

type frame struct {
	node        *methodinfo.Node
	edge        *methodinfo.Edge
	startWeight uint64
	childWeight uint64
}

// Walker replays one context's events against a registry.
type Walker struct {
	registry *methodinfo.Registry
	frames   []frame
}

// New builds a walker for one execution context.
func New(registry *methodinfo.Registry) *Walker {
	return &Walker{registry: registry}
}

// Exclude seeds the graph with a hidden anchor for a method that must exist
// for traversal but never surface in reports.
func (w *Walker) Exclude(owner typeref.Handle, method methodinfo.MethodID) {
	w.registry.CreateExcluded(owner, method)
}

// Record consumes one event. Events must arrive in stack order for this
// context; a return with no matching call is ignored, since a run may
// attach in the middle of an active stack.
func (w *Walker) Record(e Event) error {
	switch e.Kind {
	case EventCall, EventCCall:
		w.push(e)
		return nil
	case EventReturn, EventCReturn:
		w.pop(e)
		return nil
	default:
		return fmt.Errorf("%w: unknown event kind %q", errorutil.ErrDataIntegrity, e.Kind)
	}
}

func (w *Walker) push(e Event) {
	key := w.registry.KeyFor(e.Owner, e.MethodID)
	node := w.registry.GetOrCreate(key, e.File, e.Line, e.Kind == EventCCall)

	var caller *methodinfo.Node
	if top := w.top(); top != nil {
		caller = top.node
	} else {
		node.SetRoot()
	}

	edge := methodinfo.Link(caller, node, e.Line)
	edge.AddCall()

	if node.Visits() > 0 {
		node.SetRecursive()
	}
	node.Enter()

	w.frames = append(w.frames, frame{
		node:        node,
		edge:        edge,
		startWeight: e.Weight,
	})
}

func (w *Walker) pop(e Event) {
	top := w.top()
	if top == nil {
		return
	}
	w.frames = w.frames[:len(w.frames)-1]

	total := e.Weight - top.startWeight
	self := total - top.childWeight
	top.edge.AddWeight(total, self)
	top.node.Leave()

	if parent := w.top(); parent != nil {
		parent.childWeight += total
	}
}

func (w *Walker) top() *frame {
	if len(w.frames) == 0 {
		return nil
	}
	return &w.frames[len(w.frames)-1]
}

// Depth returns the number of currently active frames.
func (w *Walker) Depth() int {
	return len(w.frames)
}
