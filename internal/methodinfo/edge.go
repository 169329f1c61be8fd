package methodinfo

// Edge is a directed "caller invoked callee" relationship. At most one edge
// exists per ordered pair of nodes: both endpoints store the same *Edge in
// their tables, keyed by the other endpoint's key, and repeated calls
// increment its counters instead of creating duplicates. A root node's
// incoming edge carries BlankKey as its caller.
type Edge struct {
	Caller Key
	Callee Key

	// Line is the call-site line in the caller, first observation wins.
	Line int

	Calls       uint64
	TotalWeight uint64
	SelfWeight  uint64
}

// Link returns the edge from caller to callee, creating and registering it
// on both endpoints' tables on first sight. A nil caller links a root
// invocation: the edge is stored on the callee only, under BlankKey.
func Link(caller, callee *Node, line int) *Edge {
	callerKey := BlankKey
	if caller != nil {
		caller.live()
		callerKey = caller.key
	}
	callee.live()

	if e, ok := callee.callers[callerKey]; ok {
		return e
	}
	e := &Edge{
		Caller: callerKey,
		Callee: callee.key,
		Line:   line,
	}
	callee.callers[callerKey] = e
	if caller != nil {
		caller.callees[callee.key] = e
	}
	return e
}

// AddCall records one invocation across the edge.
func (e *Edge) AddCall() {
	e.Calls++
}

// AddWeight accumulates measured total and self weight for one completed
// invocation. The measurement unit is whatever the tracer sampled; this
// package only carries the numbers.
func (e *Edge) AddWeight(total, self uint64) {
	e.TotalWeight += total
	e.SelfWeight += self
}
