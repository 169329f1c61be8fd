package typeref

// Handle references a type or object in the profiled runtime. Handles are
// assigned by the tracer and are only meaningful within a single profiling
// run. The zero Handle means "no owning type" (top-level or unknown context).
type Handle uint64

// None is the absent owner: methods invoked outside any class or module.
const None Handle = 0

// Kind classifies a handle as observed by the host runtime.
type Kind string

const (
	// Absent is the kind of the None handle.
	Absent Kind = "absent"
	// ClassLike is an ordinary class.
	ClassLike Kind = "class"
	// ModuleLike is a module (a method container that is not a class).
	ModuleLike Kind = "module"
	// Singleton is a metaclass holding methods defined on one specific
	// object, class or module.
	Singleton Kind = "singleton"
	// InclusionProxy is the synthetic type a runtime injects into a class's
	// method-resolution chain when a module is included into it.
	InclusionProxy Kind = "inclusion_proxy"
	// ObjectInstance is a plain object. Owning types never have this kind;
	// it only shows up as the attachment of a Singleton.
	ObjectInstance Kind = "object"
	// Other covers builtin runtime values that fit none of the categories
	// above. They render through DisplayString and never fail.
	Other Kind = "other"
)

// Relation records which indirections were traversed while walking an
// observed owner back to its source-level definition.
type Relation uint8

const (
	// ObjectSingleton marks a method reached through the singleton of a
	// plain object.
	ObjectSingleton Relation = 1 << iota
	// ModuleSingleton marks a method reached through the metaclass of a
	// class or module.
	ModuleSingleton
	// ModuleIncludee marks a method reached through a module-inclusion
	// proxy.
	ModuleIncludee
)

// Has reports whether all flags in f are set.
func (r Relation) Has(f Relation) bool {
	return r&f == f
}

// With returns r with the flags in f added.
func (r Relation) With(f Relation) Relation {
	return r | f
}

// Reflector answers pure structural queries about runtime types. It is the
// capability the identity resolver and the method registry are injected
// with; implementations must not trigger instrumentation events and must
// never fail on unknown handles.
type Reflector interface {
	// KindOf classifies a handle. Unknown handles are Other, None is Absent.
	KindOf(h Handle) Kind
	// QualifiedName returns the fully qualified name of a class or module,
	// using the host's namespace separator.
	QualifiedName(h Handle) string
	// DisplayString is the generic string conversion used when no better
	// name exists.
	DisplayString(h Handle) string
	// Attached returns the entity a singleton is attached to.
	Attached(singleton Handle) Handle
	// Superclass returns the superclass of a class-like handle.
	Superclass(h Handle) Handle
	// UnderlyingModule returns the module an inclusion proxy stands in for.
	UnderlyingModule(proxy Handle) Handle
}
