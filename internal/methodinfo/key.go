package methodinfo

import (
	"encoding/binary"
	"hash/fnv"

	"github.com/methodgraph/methodgraph/internal/typeref"
)

// MethodID identifies a method name within its owner. The empty MethodID
// means "no method" (used by the blank parent key).
type MethodID string

// Key is the identity of a method within a registry: the owning type as
// observed at call time plus the method identifier. Two keys are equal iff
// both fields are equal. Keys must be built through NewKey or
// Registry.KeyFor so their hash is populated.
type Key struct {
	Owner  typeref.Handle
	Method MethodID
	hash   uint64
}

// NewKey builds a key from a raw owner and method identifier. The hash mixes
// both fields through fnv-64 and is stable for the key's lifetime.
func NewKey(owner typeref.Handle, method MethodID) Key {
	h := fnv.New64a()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(owner))
	_, _ = h.Write(buf[:])
	_, _ = h.Write([]byte(method))
	return Key{Owner: owner, Method: method, hash: h.Sum64()}
}

// BlankKey is the "no parent" sentinel under which a root node's incoming
// edge is stored.
var BlankKey = NewKey(typeref.None, "")

// Hash returns the combined hash of both key fields.
func (k Key) Hash() uint64 {
	return k.hash
}

// IsBlank reports whether k is the blank sentinel key.
func (k Key) IsBlank() bool {
	return k == BlankKey
}

// less orders keys deterministically for stable serialization output.
func (k Key) less(other Key) bool {
	if k.Owner != other.Owner {
		return k.Owner < other.Owner
	}
	return k.Method < other.Method
}
