package methodinfo

import (
	"errors"
	"sort"

	"github.com/methodgraph/methodgraph/internal/typeref"
)

// ErrNodeFreed is the panic value raised when a node is accessed after its
// registry was destroyed. Holding on to nodes across DestroyAll is a caller
// bug; the panic makes it loud instead of serving stale graph data.
var ErrNodeFreed = errors.New("methodinfo: node has already been freed, likely because its registry was destroyed")

// NativeSourceFile is the source-file marker for methods that originate
// outside interpretable source, e.g. builtins implemented by the runtime.
const NativeSourceFile = "[native]"

// Node is the deduplicated record for one (owner, method) pair observed in
// a profiling run. One node exists per distinct key; repeated invocations
// mutate the node instead of creating new ones. Nodes are exclusively owned
// by their registry and become invalid when it is destroyed.
type Node struct {
	key        Key
	sourceFile string
	line       int

	root      bool
	excluded  bool
	recursive bool
	visits    int

	callers map[Key]*Edge
	callees map[Key]*Edge

	sourceOwner typeref.Handle
	relation    typeref.Relation
	resolved    bool

	freed bool
}

func newNode(key Key) *Node {
	return &Node{
		key:     key,
		callers: make(map[Key]*Edge),
		callees: make(map[Key]*Edge),
	}
}

func (n *Node) live() {
	if n.freed {
		panic(ErrNodeFreed)
	}
}

// Key returns the node's identity.
func (n *Node) Key() Key {
	n.live()
	return n.key
}

// Owner returns the owning type as observed at call time, before any
// source-owner resolution.
func (n *Node) Owner() typeref.Handle {
	n.live()
	return n.key.Owner
}

// Method returns the method identifier.
func (n *Node) Method() MethodID {
	n.live()
	return n.key.Method
}

// SourceFile returns the first-observed defining file, or NativeSourceFile
// when the method has no interpretable source.
func (n *Node) SourceFile() string {
	n.live()
	if n.sourceFile == "" {
		return NativeSourceFile
	}
	return n.sourceFile
}

// HasSource reports whether the node carries real source info.
func (n *Node) HasSource() bool {
	n.live()
	return n.sourceFile != ""
}

// Line returns the first-observed defining line, 0 without source info.
func (n *Node) Line() int {
	n.live()
	return n.line
}

func (n *Node) setSourceInfo(file string, line int) {
	if file == "" {
		n.sourceFile = ""
		n.line = 0
		return
	}
	n.sourceFile = file
	n.line = line
}

// Root reports whether this node was ever the outermost frame of a stack.
func (n *Node) Root() bool {
	n.live()
	return n.root
}

// SetRoot marks the node as a call-stack root.
func (n *Node) SetRoot() {
	n.live()
	n.root = true
}

// Excluded reports whether the node was synthesized as a hidden traversal
// anchor. Excluded nodes stay in the graph but are never surfaced in
// reports.
func (n *Node) Excluded() bool {
	n.live()
	return n.excluded
}

// Recursive reports whether the node ever called itself, directly or
// through a cycle.
func (n *Node) Recursive() bool {
	n.live()
	return n.recursive
}

// SetRecursive marks the node as recursive. The flag never resets.
func (n *Node) SetRecursive() {
	n.live()
	n.recursive = true
}

// Visits returns how many frames of this node are currently active. The
// stack walker uses a non-zero count at call time to detect re-entrance.
func (n *Node) Visits() int {
	n.live()
	return n.visits
}

// Enter records one more active frame for the node.
func (n *Node) Enter() {
	n.live()
	n.visits++
}

// Leave records that an active frame of the node returned.
func (n *Node) Leave() {
	n.live()
	if n.visits > 0 {
		n.visits--
	}
}

// CallerEdge returns the incoming edge stored under the caller's key.
func (n *Node) CallerEdge(caller Key) (*Edge, bool) {
	n.live()
	e, ok := n.callers[caller]
	return e, ok
}

// CalleeEdge returns the outgoing edge stored under the callee's key.
func (n *Node) CalleeEdge(callee Key) (*Edge, bool) {
	n.live()
	e, ok := n.callees[callee]
	return e, ok
}

// AddCallerEdge stores an incoming edge under its caller key, replacing any
// existing edge for that caller.
func (n *Node) AddCallerEdge(e *Edge) {
	n.live()
	n.callers[e.Caller] = e
}

// AddCalleeEdge stores an outgoing edge under its callee key.
func (n *Node) AddCalleeEdge(e *Edge) {
	n.live()
	n.callees[e.Callee] = e
}

// CallerEdges returns the incoming edges ordered by caller key.
func (n *Node) CallerEdges() []*Edge {
	n.live()
	return sortedEdges(n.callers, func(e *Edge) Key { return e.Caller })
}

// CalleeEdges returns the outgoing edges ordered by callee key.
func (n *Node) CalleeEdges() []*Edge {
	n.live()
	return sortedEdges(n.callees, func(e *Edge) Key { return e.Callee })
}

func sortedEdges(m map[Key]*Edge, by func(*Edge) Key) []*Edge {
	edges := make([]*Edge, 0, len(m))
	for _, e := range m {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool {
		return by(edges[i]).less(by(edges[j]))
	})
	return edges
}

// Resolution returns the cached source-owner resolution. ok is false until
// the identity resolver has run on this node.
func (n *Node) Resolution() (typeref.Handle, typeref.Relation, bool) {
	n.live()
	return n.sourceOwner, n.relation, n.resolved
}

// SetResolution caches a source-owner resolution. The cache lives until the
// node is destroyed.
func (n *Node) SetResolution(owner typeref.Handle, relation typeref.Relation) {
	n.live()
	n.sourceOwner = owner
	n.relation = relation
	n.resolved = true
}

// free releases the node's edge tables and marks it invalid. Only the
// registry calls this, during DestroyAll.
func (n *Node) free() {
	n.callers = nil
	n.callees = nil
	n.freed = true
}
