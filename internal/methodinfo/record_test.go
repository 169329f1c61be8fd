package methodinfo

import (
	"errors"
	"testing"

	gojson "github.com/goccy/go-json"

	"github.com/methodgraph/methodgraph/internal/errorutil"
)

func edgeKeys(edges []*Edge, by func(*Edge) Key) []Key {
	keys := make([]Key, 0, len(edges))
	for _, e := range edges {
		keys = append(keys, by(e))
	}
	return keys
}

func TestDumpLoadRoundTrip(t *testing.T) {
	r := NewRegistry(newTestTable())

	parent := r.GetOrCreate(r.KeyFor(classFoo, "outer"), "foo.rb", 1, false)
	node := r.GetOrCreate(r.KeyFor(classFoo, "inner"), "foo.rb", 10, false)
	child := r.GetOrCreate(r.KeyFor(moduleM, "leaf"), "m.rb", 4, false)
	node.SetRecursive()
	node.SetRoot()

	rootEdge := Link(nil, node, 0)
	rootEdge.AddCall()
	in := Link(parent, node, 3)
	in.AddCall()
	in.AddWeight(120, 40)
	out := Link(node, child, 11)
	out.AddCall()
	out.AddCall()
	out.AddWeight(80, 80)

	rec := DumpNode(node)

	// Round-trip through JSON the way the persistence layer would.
	raw, err := gojson.Marshal(rec)
	if err != nil {
		t.Fatalf("we should be able to marshal the record: %v", err)
	}
	var decoded NodeRecord
	if err := gojson.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("we should be able to unmarshal the record: %v", err)
	}

	fresh := NewRegistry(newTestTable())
	loaded, err := fresh.LoadNode(decoded)
	if err != nil {
		t.Fatalf("we should be able to load the record: %v", err)
	}

	if loaded.Key() != node.Key() {
		t.Fatalf("key mismatch: %#v != %#v", loaded.Key(), node.Key())
	}
	if !loaded.Recursive() || !loaded.Root() {
		t.Fatal("flags should survive the round trip")
	}
	if loaded.SourceFile() != "foo.rb" || loaded.Line() != 10 {
		t.Fatalf("source info should survive, got %s:%d", loaded.SourceFile(), loaded.Line())
	}

	wantCallers := edgeKeys(node.CallerEdges(), func(e *Edge) Key { return e.Caller })
	gotCallers := edgeKeys(loaded.CallerEdges(), func(e *Edge) Key { return e.Caller })
	if len(gotCallers) != len(wantCallers) {
		t.Fatalf("caller edge count mismatch: %d != %d", len(gotCallers), len(wantCallers))
	}
	for i := range wantCallers {
		if gotCallers[i] != wantCallers[i] {
			t.Fatalf("caller key set mismatch at %d: %#v != %#v", i, gotCallers[i], wantCallers[i])
		}
	}

	wantCallees := edgeKeys(node.CalleeEdges(), func(e *Edge) Key { return e.Callee })
	gotCallees := edgeKeys(loaded.CalleeEdges(), func(e *Edge) Key { return e.Callee })
	if len(gotCallees) != 1 || gotCallees[0] != wantCallees[0] {
		t.Fatalf("callee key set mismatch: %#v != %#v", gotCallees, wantCallees)
	}

	reloadedOut, ok := loaded.CalleeEdge(wantCallees[0])
	if !ok {
		t.Fatal("callee edge should be reachable by key")
	}
	if reloadedOut.Calls != 2 || reloadedOut.TotalWeight != 80 || reloadedOut.SelfWeight != 80 {
		t.Fatalf("edge accounting should survive: %+v", reloadedOut)
	}
}

func TestDumpLoadNoSourceInfo(t *testing.T) {
	r := NewRegistry(newTestTable())
	node := r.GetOrCreate(r.KeyFor(classFoo, "sort"), "", 0, true)

	rec := DumpNode(node)
	if rec.SourceFile != nil {
		t.Fatalf(`a node without source info should dump a nil file, got %q`, *rec.SourceFile)
	}

	fresh := NewRegistry(newTestTable())
	loaded, err := fresh.LoadNode(rec)
	if err != nil {
		t.Fatalf("we should be able to load the record: %v", err)
	}
	if loaded.HasSource() {
		t.Fatal("no source info should round-trip to no source info")
	}
	if loaded.SourceFile() != NativeSourceFile {
		t.Fatalf("expected the native marker, got %q", loaded.SourceFile())
	}
}

func TestLoadBlankParentKey(t *testing.T) {
	calls := uint64(1)
	method := MethodID("main")
	line := 1
	rec := NodeRecord{
		Owner:    classFoo,
		MethodID: &method,
		Line:     &line,
		Callers: []EdgeRecord{
			{CalleeOwner: classFoo, CalleeMethod: "main", Calls: &calls},
		},
	}

	r := NewRegistry(newTestTable())
	node, err := r.LoadNode(rec)
	if err != nil {
		t.Fatalf("we should be able to load the record: %v", err)
	}
	if _, ok := node.CallerEdge(BlankKey); !ok {
		t.Fatal("an edge without a parent should be keyed by the blank key")
	}
}

func TestLoadMalformedRecords(t *testing.T) {
	method := MethodID("bar")
	line := 3

	tests := []struct {
		name string
		rec  NodeRecord
	}{
		{
			name: "missing method id",
			rec:  NodeRecord{Owner: classFoo, Line: &line},
		},
		{
			name: "missing line",
			rec:  NodeRecord{Owner: classFoo, MethodID: &method},
		},
		{
			name: "edge missing calls",
			rec: NodeRecord{
				Owner:    classFoo,
				MethodID: &method,
				Line:     &line,
				Callees:  []EdgeRecord{{CalleeOwner: moduleM, CalleeMethod: "leaf"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(newTestTable())
			if _, err := r.LoadNode(tt.rec); !errors.Is(err, errorutil.ErrDataIntegrity) {
				t.Fatalf("expected a data integrity error, got %v", err)
			}
		})
	}
}
