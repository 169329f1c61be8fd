package identity

import (
	"testing"

	"github.com/methodgraph/methodgraph/internal/methodinfo"
	"github.com/methodgraph/methodgraph/internal/typeref"
)

const (
	classFoo          typeref.Handle = 1
	moduleBar         typeref.Handle = 2
	classBaz          typeref.Handle = 3
	bazInstance       typeref.Handle = 4
	fooMetaclass      typeref.Handle = 5
	barMetaclass      typeref.Handle = 6
	instanceSingleton typeref.Handle = 7
	moduleAB          typeref.Handle = 8
	inclusionProxy    typeref.Handle = 9
	weirdValue        typeref.Handle = 10
	weirdSingleton    typeref.Handle = 11
)

func newHierarchy() *typeref.Table {
	table := typeref.NewTable()
	table.Register(typeref.Record{Handle: classFoo, Kind: typeref.ClassLike, Name: "Foo"})
	table.Register(typeref.Record{Handle: moduleBar, Kind: typeref.ModuleLike, Name: "Bar"})
	table.Register(typeref.Record{Handle: classBaz, Kind: typeref.ClassLike, Name: "Baz"})
	table.Register(typeref.Record{Handle: bazInstance, Kind: typeref.ObjectInstance})
	table.Register(typeref.Record{Handle: fooMetaclass, Kind: typeref.Singleton, Attached: classFoo})
	table.Register(typeref.Record{Handle: barMetaclass, Kind: typeref.Singleton, Attached: moduleBar})
	table.Register(typeref.Record{Handle: instanceSingleton, Kind: typeref.Singleton, Attached: bazInstance, Superclass: classBaz})
	table.Register(typeref.Record{Handle: moduleAB, Kind: typeref.ModuleLike, Name: "A::B"})
	table.Register(typeref.Record{Handle: inclusionProxy, Kind: typeref.InclusionProxy, Module: moduleAB})
	table.Register(typeref.Record{Handle: weirdValue, Kind: typeref.Other, Display: "#<Array:0x7f>"})
	table.Register(typeref.Record{Handle: weirdSingleton, Kind: typeref.Singleton, Attached: weirdValue, Superclass: classBaz, Display: "#<Class:#<Array:0x7f>>"})
	return table
}

func newNode(t *testing.T, table *typeref.Table, owner typeref.Handle, method methodinfo.MethodID) *methodinfo.Node {
	t.Helper()
	r := methodinfo.NewRegistry(table)
	return r.GetOrCreate(r.KeyFor(owner, method), "test.rb", 1, false)
}

func TestNameOf(t *testing.T) {
	rs := NewResolver(newHierarchy())

	tests := []struct {
		name   string
		handle typeref.Handle
		want   string
	}{
		{"absent owner", typeref.None, "[global]"},
		{"ordinary class", classFoo, "Foo"},
		{"module", moduleBar, "Bar"},
		{"metaclass of a class", fooMetaclass, "<Class::Foo>"},
		{"metaclass of a module", barMetaclass, "<Module::Bar>"},
		{"singleton of an instance", instanceSingleton, "<Object::Baz>"},
		{"singleton of a builtin value", weirdSingleton, "#<Class:#<Array:0x7f>>"},
		{"unrecognized value", weirdValue, "#<Array:0x7f>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rs.NameOf(tt.handle); got != tt.want {
				t.Fatalf("NameOf(%d) = %q, want %q", tt.handle, got, tt.want)
			}
		})
	}
}

func TestFullName(t *testing.T) {
	table := newHierarchy()
	rs := NewResolver(table)

	tests := []struct {
		name   string
		owner  typeref.Handle
		method methodinfo.MethodID
		want   string
	}{
		{"class method pair", classFoo, "bar", "Foo#bar"},
		{"global method", typeref.None, "main", "[global]#main"},
		{"absent method id", classFoo, "", "Foo#[no method]"},
		{"singleton owner stays raw", fooMetaclass, "create", "<Class::Foo>#create"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := newNode(t, table, tt.owner, tt.method)
			if got := rs.FullName(n); got != tt.want {
				t.Fatalf("FullName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveSourceOwner(t *testing.T) {
	table := newHierarchy()

	tests := []struct {
		name         string
		owner        typeref.Handle
		wantOwner    typeref.Handle
		wantRelation typeref.Relation
	}{
		{"ordinary class stops immediately", classFoo, classFoo, 0},
		{"absent owner stays absent", typeref.None, typeref.None, 0},
		{"metaclass of a class", fooMetaclass, classFoo, typeref.ModuleSingleton},
		{"metaclass of a module", barMetaclass, moduleBar, typeref.ModuleSingleton},
		{"singleton of an instance", instanceSingleton, classBaz, typeref.ObjectSingleton},
		{"singleton of a builtin value", weirdSingleton, classBaz, typeref.ObjectSingleton},
		{"unrecognized owner stops", weirdValue, weirdValue, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := NewResolver(table)
			n := newNode(t, table, tt.owner, "run")
			owner, relation := rs.ResolveSourceOwner(n)
			if owner != tt.wantOwner {
				t.Fatalf("resolved owner = %d, want %d", owner, tt.wantOwner)
			}
			if relation != tt.wantRelation {
				t.Fatalf("relation = %b, want %b", relation, tt.wantRelation)
			}
		})
	}
}

func TestResolveInclusionProxyCollapsesToModule(t *testing.T) {
	table := newHierarchy()
	rs := NewResolver(table)

	// The registry already collapses proxies at key construction; resolve
	// the raw proxy directly to exercise the resolver's own step.
	r := methodinfo.NewRegistry(typeref.NewTable())
	n := r.GetOrCreate(methodinfo.NewKey(inclusionProxy, "run"), "test.rb", 1, false)

	owner, relation := rs.ResolveSourceOwner(n)
	if owner != moduleAB {
		t.Fatalf("resolved owner = %d, want the underlying module %d", owner, moduleAB)
	}
	if !relation.Has(typeref.ModuleIncludee) {
		t.Fatal("ModuleIncludee should be set")
	}
}

type countingReflector struct {
	*typeref.Table
	kindCalls int
}

func (c *countingReflector) KindOf(h typeref.Handle) typeref.Kind {
	c.kindCalls++
	return c.Table.KindOf(h)
}

func TestResolutionIsMemoized(t *testing.T) {
	table := newHierarchy()
	counting := &countingReflector{Table: table}
	rs := NewResolver(counting)

	n := newNode(t, table, fooMetaclass, "create")
	if _, _, resolved := n.Resolution(); resolved {
		t.Fatal("nodes should start unresolved")
	}

	owner1, rel1 := rs.ResolveSourceOwner(n)
	if _, _, resolved := n.Resolution(); !resolved {
		t.Fatal("resolution should be cached after the first walk")
	}
	walkCalls := counting.kindCalls
	if walkCalls == 0 {
		t.Fatal("the first resolution should query the reflector")
	}

	owner2, rel2 := rs.ResolveSourceOwner(n)
	if counting.kindCalls != walkCalls {
		t.Fatalf("the second resolution should not walk again: %d != %d", counting.kindCalls, walkCalls)
	}
	if owner1 != owner2 || rel1 != rel2 {
		t.Fatal("memoized results should match the first walk")
	}
}

func TestCalltreeName(t *testing.T) {
	table := newHierarchy()
	// A metaclass on a namespaced module: resolves to A::B with the
	// module-singleton marker.
	abMetaclass := typeref.Handle(20)
	table.Register(typeref.Record{Handle: abMetaclass, Kind: typeref.Singleton, Attached: moduleAB})
	rs := NewResolver(table)

	tests := []struct {
		name   string
		owner  typeref.Handle
		method methodinfo.MethodID
		want   string
	}{
		{"plain class", classFoo, "bar", "Foo::bar"},
		{"namespace becomes a path", moduleAB, "run", "A/B::run"},
		{"module singleton marker", abMetaclass, "run", "A/B::^run"},
		{"object singleton marker", instanceSingleton, "poke", "Baz::*poke"},
		{"global", typeref.None, "main", "[global]::main"},
		{"absent method id", classFoo, "", "Foo::[no method]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := newNode(t, table, tt.owner, tt.method)
			if got := rs.CalltreeName(n); got != tt.want {
				t.Fatalf("CalltreeName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCalltreeNameUsesResolvedOwner(t *testing.T) {
	table := newHierarchy()
	rs := NewResolver(table)
	n := newNode(t, table, fooMetaclass, "create")

	if got := rs.FullName(n); got != "<Class::Foo>#create" {
		t.Fatalf("full name should use the raw owner, got %q", got)
	}
	if got := rs.CalltreeName(n); got != "Foo::^create" {
		t.Fatalf("calltree name should use the resolved owner, got %q", got)
	}
}
