// Package identity maps raw owning types, as captured at call time, to
// renderable names and to the class or module that actually authored each
// method. Runtime-only artifacts (metaclasses, module-inclusion proxies)
// collapse onto their source-level definition, and the kind of indirection
// traversed is recorded for downstream naming.
package identity

import (
	"strings"

	"github.com/methodgraph/methodgraph/internal/methodinfo"
	"github.com/methodgraph/methodgraph/internal/typeref"
)

const (
	// GlobalName renders the absent owner.
	GlobalName = "[global]"
	// NoMethodName renders an absent method identifier.
	NoMethodName = "[no method]"
)

// Resolver answers naming and source-owner queries against one host type
// model. All queries are pure: naming a type can never trigger further
// instrumentation events and never fails, it degrades to a generic string
// conversion instead.
type Resolver struct {
	r typeref.Reflector
}

// NewResolver builds a resolver over the given reflection capability.
func NewResolver(r typeref.Reflector) *Resolver {
	return &Resolver{r: r}
}

// NameOf returns the display name of a raw owning type.
func (rs *Resolver) NameOf(h typeref.Handle) string {
	switch rs.r.KindOf(h) {
	case typeref.Absent:
		return GlobalName
	case typeref.ModuleLike, typeref.ClassLike:
		return rs.r.QualifiedName(h)
	case typeref.Singleton:
		return rs.singletonName(h)
	default:
		return rs.r.DisplayString(h)
	}
}

// singletonName names a metaclass after the entity it is attached to.
func (rs *Resolver) singletonName(singleton typeref.Handle) string {
	attached := rs.r.Attached(singleton)
	switch rs.r.KindOf(attached) {
	case typeref.ClassLike:
		return "<Class::" + rs.r.QualifiedName(attached) + ">"
	case typeref.ModuleLike:
		return "<Module::" + rs.r.QualifiedName(attached) + ">"
	case typeref.ObjectInstance:
		// Name the object's superclass, not the singleton itself, so the
		// metaclass artifact never leaks into reports.
		return "<Object::" + rs.r.QualifiedName(rs.r.Superclass(singleton)) + ">"
	default:
		// A singleton of some builtin value. It happens.
		return rs.r.DisplayString(singleton)
	}
}

// MethodName renders a method identifier, falling back to NoMethodName for
// the absent identifier.
func MethodName(id methodinfo.MethodID) string {
	if id == "" {
		return NoMethodName
	}
	return string(id)
}

// FullName renders "owner#method" from the raw, unresolved owner. This is
// the direct-identification name; CalltreeName is the one that aggregates
// across runs by source definition.
func (rs *Resolver) FullName(n *methodinfo.Node) string {
	return rs.NameOf(n.Owner()) + "#" + MethodName(n.Method())
}

// ResolveSourceOwner walks a node's raw owner back to the class or module
// that authored the method, accumulating the relation flags for every
// indirection traversed. The walk runs at most once per node: the result is
// memoized on the node until it is destroyed.
func (rs *Resolver) ResolveSourceOwner(n *methodinfo.Node) (typeref.Handle, typeref.Relation) {
	if owner, relation, ok := n.Resolution(); ok {
		return owner, relation
	}

	h := n.Owner()
	var relation typeref.Relation
walk:
	for {
		switch rs.r.KindOf(h) {
		case typeref.Absent:
			break walk
		case typeref.Singleton:
			attached := rs.r.Attached(h)
			switch rs.r.KindOf(attached) {
			case typeref.ClassLike, typeref.ModuleLike:
				relation = relation.With(typeref.ModuleSingleton)
				h = attached
			default:
				relation = relation.With(typeref.ObjectSingleton)
				h = rs.r.Superclass(h)
			}
		case typeref.InclusionProxy:
			relation = relation.With(typeref.ModuleIncludee)
			h = rs.r.UnderlyingModule(h)
		default:
			// Ordinary class or module, or something unrecognized. No
			// transformation applies.
			break walk
		}
	}

	n.SetResolution(h, relation)
	return h, relation
}

// CalltreeName renders a node in calltree format: the resolved source
// owner's qualified name as a /-separated path, "::", the traversal markers
// ("*" for object singletons, "^" for module singletons), then the method
// name.
func (rs *Resolver) CalltreeName(n *methodinfo.Node) string {
	owner, relation := rs.ResolveSourceOwner(n)

	var b strings.Builder
	if owner == typeref.None {
		b.WriteString(GlobalName)
	} else {
		b.WriteString(strings.ReplaceAll(rs.r.QualifiedName(owner), "::", "/"))
	}
	b.WriteString("::")
	if relation.Has(typeref.ObjectSingleton) {
		b.WriteString("*")
	}
	if relation.Has(typeref.ModuleSingleton) {
		b.WriteString("^")
	}
	b.WriteString(MethodName(n.Method()))
	return b.String()
}
