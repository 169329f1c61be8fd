package typeref

import (
	"fmt"
	"sort"
)

type (
	// Record is the wire shape of one type-table entry. The tracer ships a
	// record per type referenced by a run's events; a run's table is
	// persisted with the run so reports stay renderable after reload.
	Record struct {
		Handle     Handle `json:"handle"`
		Kind       Kind   `json:"kind"`
		Name       string `json:"name,omitempty"`
		Display    string `json:"display,omitempty"`
		Attached   Handle `json:"attached,omitempty"`
		Superclass Handle `json:"superclass,omitempty"`
		Module     Handle `json:"module,omitempty"`
	}

	// Table is a Reflector backed by the type metadata delivered with a
	// profiling run. Lookups on handles the tracer never described degrade
	// to Other rather than failing.
	Table struct {
		records map[Handle]Record
	}
)

// NewTable returns an empty type table.
func NewTable() *Table {
	return &Table{records: make(map[Handle]Record)}
}

// Register adds or replaces the record for a handle. Records for the None
// handle are ignored.
func (t *Table) Register(r Record) {
	if r.Handle == None {
		return
	}
	t.records[r.Handle] = r
}

// Records returns every registered record, ordered by handle.
func (t *Table) Records() []Record {
	records := make([]Record, 0, len(t.records))
	for _, r := range t.records {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Handle < records[j].Handle
	})
	return records
}

func (t *Table) KindOf(h Handle) Kind {
	if h == None {
		return Absent
	}
	r, ok := t.records[h]
	if !ok {
		return Other
	}
	return r.Kind
}

func (t *Table) QualifiedName(h Handle) string {
	return t.records[h].Name
}

func (t *Table) DisplayString(h Handle) string {
	r, ok := t.records[h]
	if !ok {
		return fmt.Sprintf("#<0x%016x>", uint64(h))
	}
	if r.Display != "" {
		return r.Display
	}
	if r.Name != "" {
		return r.Name
	}
	return fmt.Sprintf("#<%s:0x%016x>", r.Kind, uint64(h))
}

func (t *Table) Attached(singleton Handle) Handle {
	return t.records[singleton].Attached
}

func (t *Table) Superclass(h Handle) Handle {
	return t.records[h].Superclass
}

func (t *Table) UnderlyingModule(proxy Handle) Handle {
	return t.records[proxy].Module
}
