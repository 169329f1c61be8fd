package profile

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/methodgraph/methodgraph/internal/errorutil"
	"github.com/methodgraph/methodgraph/internal/identity"
	"github.com/methodgraph/methodgraph/internal/methodinfo"
	"github.com/methodgraph/methodgraph/internal/stackwalk"
	"github.com/methodgraph/methodgraph/internal/typeref"
)

// FormatVersion is the persisted envelope version.
const FormatVersion = 1

type (
	// Metadata describes the profiled program.
	Metadata struct {
		Program        string    `json:"program,omitempty"`
		Runtime        string    `json:"runtime,omitempty"`
		RuntimeVersion string    `json:"runtime_version,omitempty"`
		Timestamp      time.Time `json:"timestamp"`
	}

	// ExcludedMethod names a method the tracer wants anchored but hidden.
	ExcludedMethod struct {
		Owner    typeref.Handle      `json:"owner"`
		MethodID methodinfo.MethodID `json:"method_id"`
	}

	// IngestPayload is what the tracer posts for one run: the type table
	// for every handle its events reference, plus the serial event stream.
	IngestPayload struct {
		Metadata Metadata          `json:"metadata"`
		Types    []typeref.Record  `json:"types"`
		Excluded []ExcludedMethod  `json:"excluded,omitempty"`
		Events   []stackwalk.Event `json:"events"`
	}

	// Envelope is the persisted shape of a whole run.
	Envelope struct {
		Version  int                     `json:"version"`
		ID       string                  `json:"profile_id"`
		Metadata Metadata                `json:"metadata"`
		Types    []typeref.Record        `json:"types"`
		Methods  []methodinfo.NodeRecord `json:"methods"`
	}

	// Profile is one profiling run: its type table, its method registry,
	// and the walker building the graph. Release must run before the
	// profile is discarded.
	Profile struct {
		id       string
		meta     Metadata
		table    *typeref.Table
		registry *methodinfo.Registry
		walker   *stackwalk.Walker
		resolver *identity.Resolver
	}
)

// New builds an empty profile with a fresh ID.
func New(meta Metadata) *Profile {
	p := &Profile{
		id:    uuid.New().String(),
		meta:  meta,
		table: typeref.NewTable(),
	}
	p.registry = methodinfo.NewRegistry(p.table)
	p.walker = stackwalk.New(p.registry)
	p.resolver = identity.NewResolver(p.table)
	return p
}

func (p *Profile) ID() string { return p.id }

func (p *Profile) Metadata() Metadata { return p.meta }

func (p *Profile) Table() *typeref.Table { return p.table }

func (p *Profile) Registry() *methodinfo.Registry { return p.registry }

func (p *Profile) Resolver() *identity.Resolver { return p.resolver }

// StoragePath is the object name the run persists under.
func (p *Profile) StoragePath() string {
	return fmt.Sprintf("profiles/%s", p.id)
}

// Ingest registers the payload's type table, seeds exclusions, and replays
// the event stream through the walker.
func (p *Profile) Ingest(payload IngestPayload) error {
	p.meta = payload.Metadata
	for _, r := range payload.Types {
		p.table.Register(r)
	}
	for _, x := range payload.Excluded {
		p.walker.Exclude(x.Owner, x.MethodID)
	}
	for i, e := range payload.Events {
		if err := p.walker.Record(e); err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
	}
	return nil
}

// Dump flattens the run for persistence.
func (p *Profile) Dump() Envelope {
	nodes := p.registry.Nodes()
	e := Envelope{
		Version:  FormatVersion,
		ID:       p.id,
		Metadata: p.meta,
		Types:    p.table.Records(),
		Methods:  make([]methodinfo.NodeRecord, 0, len(nodes)),
	}
	for _, n := range nodes {
		e.Methods = append(e.Methods, methodinfo.DumpNode(n))
	}
	return e
}

// Load rebuilds a run from its envelope. Malformed records surface as
// errors wrapping errorutil.ErrDataIntegrity; nothing is partially
// recovered.
func Load(e Envelope) (*Profile, error) {
	if e.Version != FormatVersion {
		return nil, fmt.Errorf("%w: unsupported profile version %d", errorutil.ErrDataIntegrity, e.Version)
	}
	p := New(e.Metadata)
	if e.ID != "" {
		p.id = e.ID
	}
	for _, r := range e.Types {
		p.table.Register(r)
	}
	for _, rec := range e.Methods {
		if _, err := p.registry.LoadNode(rec); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Release destroys the run's registry. The profile and any node reference
// obtained from it are invalid afterwards.
func (p *Profile) Release() {
	p.registry.DestroyAll()
}
