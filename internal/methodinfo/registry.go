package methodinfo

import (
	"errors"
	"sort"
	"sync"

	"github.com/methodgraph/methodgraph/internal/typeref"
)

// ErrRegistryDestroyed is the panic value raised when a registry operation
// runs after DestroyAll.
var ErrRegistryDestroyed = errors.New("methodinfo: registry has already been destroyed")

// Registry owns every node of one profiling run, keyed by method identity.
// Node creation is the sole synchronization point: GetOrCreate and
// CreateExcluded are safe to call from concurrent execution contexts
// sharing one registry, while a node's own edge tables must stay owned by
// the single context building that call stack. DestroyAll is terminal and
// exclusive.
type Registry struct {
	mu        sync.Mutex
	reflector typeref.Reflector
	nodes     map[Key]*Node
	destroyed bool
}

// NewRegistry builds an empty registry resolving owners through r.
func NewRegistry(r typeref.Reflector) *Registry {
	return &Registry{
		reflector: r,
		nodes:     make(map[Key]*Node),
	}
}

// KeyFor normalizes a raw owner into a registry key. Inclusion proxies are
// substituted by their underlying module so call sites through different
// inclusion paths collapse to one key; every other owner passes through
// unchanged.
func (r *Registry) KeyFor(owner typeref.Handle, method MethodID) Key {
	if r.reflector.KindOf(owner) == typeref.InclusionProxy {
		owner = r.reflector.UnderlyingModule(owner)
	}
	return NewKey(owner, method)
}

// GetOrCreate returns the node for key, allocating it on first sight with
// clear flags, empty edge tables, and the given source info. Native calls
// never carry file or line.
func (r *Registry) GetOrCreate(key Key, sourceFile string, line int, native bool) *Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.liveLocked()

	if node, ok := r.nodes[key]; ok {
		return node
	}
	node := newNode(key)
	if !native {
		node.setSourceInfo(sourceFile, line)
	}
	r.nodes[key] = node
	return node
}

// CreateExcluded allocates a node flagged as excluded, bypassing source-info
// capture. Excluded nodes seed the graph as traversal anchors for methods
// that must never appear in output.
func (r *Registry) CreateExcluded(owner typeref.Handle, method MethodID) *Node {
	key := r.KeyFor(owner, method)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.liveLocked()

	if node, ok := r.nodes[key]; ok {
		return node
	}
	node := newNode(key)
	node.excluded = true
	r.nodes[key] = node
	return node
}

// Lookup returns the node for key if one was ever created. Pure read.
func (r *Registry) Lookup(key Key) (*Node, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.liveLocked()

	node, ok := r.nodes[key]
	return node, ok
}

// Len returns the number of registered nodes.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.liveLocked()
	return len(r.nodes)
}

// Nodes returns every node, ordered by key for deterministic output.
func (r *Registry) Nodes() []*Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.liveLocked()

	nodes := make([]*Node, 0, len(r.nodes))
	for _, node := range r.nodes {
		nodes = append(nodes, node)
	}
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].key.less(nodes[j].key)
	})
	return nodes
}

// DestroyAll releases every node's edge tables, then every node, then the
// index. Exactly once per registry; any node reference held across this
// call panics with ErrNodeFreed on its next use. Not safe to run
// concurrently with any other registry operation.
func (r *Registry) DestroyAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.liveLocked()

	for _, node := range r.nodes {
		node.free()
	}
	r.nodes = nil
	r.destroyed = true
}

func (r *Registry) liveLocked() {
	if r.destroyed {
		panic(ErrRegistryDestroyed)
	}
}
