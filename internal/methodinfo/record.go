package methodinfo

import (
	"fmt"

	"github.com/methodgraph/methodgraph/internal/errorutil"
	"github.com/methodgraph/methodgraph/internal/typeref"
)

type (
	// NodeRecord is the flat persisted shape of one node and its edge
	// tables. MethodID and Line are pointers so a record missing them is
	// detectable as malformed instead of silently defaulting; SourceFile is
	// nil for nodes without source info, never the empty string.
	NodeRecord struct {
		Owner      typeref.Handle `json:"owner"`
		MethodID   *MethodID      `json:"method_id"`
		Recursive  bool           `json:"recursive"`
		SourceFile *string        `json:"source_file"`
		Line       *int           `json:"line"`
		Root       bool           `json:"root,omitempty"`
		Excluded   bool           `json:"excluded,omitempty"`
		Callers    []EdgeRecord   `json:"callers"`
		Callees    []EdgeRecord   `json:"callees"`
	}

	// EdgeRecord is the persisted shape of one call edge. A callers entry
	// with no caller owner and no caller method reconstructs under
	// BlankKey.
	EdgeRecord struct {
		CallerOwner  typeref.Handle `json:"caller_owner,omitempty"`
		CallerMethod MethodID       `json:"caller_method,omitempty"`
		CalleeOwner  typeref.Handle `json:"callee_owner,omitempty"`
		CalleeMethod MethodID       `json:"callee_method,omitempty"`
		Line         int            `json:"line,omitempty"`
		Calls        *uint64        `json:"calls"`
		TotalWeight  uint64         `json:"total_weight"`
		SelfWeight   uint64         `json:"self_weight"`
	}
)

// DumpNode flattens a node and its edge tables for persistence. Edge lists
// are ordered by the other endpoint's key so output is deterministic.
func DumpNode(n *Node) NodeRecord {
	n.live()

	method := n.key.Method
	line := n.line
	rec := NodeRecord{
		Owner:     n.key.Owner,
		MethodID:  &method,
		Recursive: n.recursive,
		Line:      &line,
		Root:      n.root,
		Excluded:  n.excluded,
		Callers:   make([]EdgeRecord, 0, len(n.callers)),
		Callees:   make([]EdgeRecord, 0, len(n.callees)),
	}
	if n.sourceFile != "" {
		file := n.sourceFile
		rec.SourceFile = &file
	}
	for _, e := range n.CallerEdges() {
		rec.Callers = append(rec.Callers, dumpEdge(e))
	}
	for _, e := range n.CalleeEdges() {
		rec.Callees = append(rec.Callees, dumpEdge(e))
	}
	return rec
}

func dumpEdge(e *Edge) EdgeRecord {
	calls := e.Calls
	return EdgeRecord{
		CallerOwner:  e.Caller.Owner,
		CallerMethod: e.Caller.Method,
		CalleeOwner:  e.Callee.Owner,
		CalleeMethod: e.Callee.Method,
		Line:         e.Line,
		Calls:        &calls,
		TotalWeight:  e.TotalWeight,
		SelfWeight:   e.SelfWeight,
	}
}

// LoadNode reconstructs a node from its record: the key goes through KeyFor,
// source info follows the creation defaulting (nil file means none), and
// each edge is rebuilt and inserted under the proper endpoint key. Empty
// caller and callee lists are fine; missing required fields are not.
func (r *Registry) LoadNode(rec NodeRecord) (*Node, error) {
	if rec.MethodID == nil {
		return nil, fmt.Errorf("%w: method record is missing method_id", errorutil.ErrDataIntegrity)
	}
	if rec.Line == nil {
		return nil, fmt.Errorf("%w: method record %q is missing line", errorutil.ErrDataIntegrity, *rec.MethodID)
	}

	key := r.KeyFor(rec.Owner, *rec.MethodID)
	sourceFile := ""
	if rec.SourceFile != nil {
		sourceFile = *rec.SourceFile
	}
	node := r.GetOrCreate(key, sourceFile, *rec.Line, sourceFile == "")
	if rec.Excluded {
		node.excluded = true
	}
	if rec.Root {
		node.root = true
	}
	node.recursive = rec.Recursive

	for _, er := range rec.Callers {
		e, err := r.loadEdge(er)
		if err != nil {
			return nil, err
		}
		node.AddCallerEdge(e)
	}
	for _, er := range rec.Callees {
		e, err := r.loadEdge(er)
		if err != nil {
			return nil, err
		}
		node.AddCalleeEdge(e)
	}
	return node, nil
}

func (r *Registry) loadEdge(rec EdgeRecord) (*Edge, error) {
	if rec.Calls == nil {
		return nil, fmt.Errorf("%w: edge record is missing calls", errorutil.ErrDataIntegrity)
	}
	caller := BlankKey
	if rec.CallerOwner != typeref.None || rec.CallerMethod != "" {
		caller = r.KeyFor(rec.CallerOwner, rec.CallerMethod)
	}
	return &Edge{
		Caller:      caller,
		Callee:      r.KeyFor(rec.CalleeOwner, rec.CalleeMethod),
		Line:        rec.Line,
		Calls:       *rec.Calls,
		TotalWeight: rec.TotalWeight,
		SelfWeight:  rec.SelfWeight,
	}, nil
}
