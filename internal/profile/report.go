package profile

import "sort"

type (
	// MethodReport is one rendered row of the flat method report.
	MethodReport struct {
		Name         string   `json:"name"`
		CalltreeName string   `json:"calltree_name"`
		SourceFile   string   `json:"source_file"`
		Line         int      `json:"line"`
		Root         bool     `json:"root,omitempty"`
		Recursive    bool     `json:"recursive,omitempty"`
		Calls        uint64   `json:"calls"`
		TotalWeight  uint64   `json:"total_weight"`
		SelfWeight   uint64   `json:"self_weight"`
		Callers      []string `json:"callers,omitempty"`
		Callees      []string `json:"callees,omitempty"`
	}

	// CalltreeFunction is the aggregation row published per ingested run,
	// keyed by the calltree name so runs aggregate by source definition.
	CalltreeFunction struct {
		Name        string `json:"name"`
		Calls       uint64 `json:"calls"`
		TotalWeight uint64 `json:"total_weight"`
		SelfWeight  uint64 `json:"self_weight"`
	}
)

// MethodReports renders every visible node, heaviest first. Excluded nodes
// stay out of the report even though they anchor the graph.
func (p *Profile) MethodReports() []MethodReport {
	reports := make([]MethodReport, 0, p.registry.Len())
	for _, n := range p.registry.Nodes() {
		if n.Excluded() {
			continue
		}
		r := MethodReport{
			Name:         p.resolver.FullName(n),
			CalltreeName: p.resolver.CalltreeName(n),
			SourceFile:   n.SourceFile(),
			Line:         n.Line(),
			Root:         n.Root(),
			Recursive:    n.Recursive(),
		}
		for _, e := range n.CallerEdges() {
			r.Calls += e.Calls
			r.TotalWeight += e.TotalWeight
			r.SelfWeight += e.SelfWeight
			if !e.Caller.IsBlank() {
				if caller, ok := p.registry.Lookup(e.Caller); ok && !caller.Excluded() {
					r.Callers = append(r.Callers, p.resolver.FullName(caller))
				}
			}
		}
		for _, e := range n.CalleeEdges() {
			if callee, ok := p.registry.Lookup(e.Callee); ok && !callee.Excluded() {
				r.Callees = append(r.Callees, p.resolver.FullName(callee))
			}
		}
		reports = append(reports, r)
	}
	sort.SliceStable(reports, func(i, j int) bool {
		if reports[i].TotalWeight != reports[j].TotalWeight {
			return reports[i].TotalWeight > reports[j].TotalWeight
		}
		return reports[i].Name < reports[j].Name
	})
	return reports
}

// CalltreeFunctions aggregates visible nodes by calltree name.
func (p *Profile) CalltreeFunctions() []CalltreeFunction {
	byName := make(map[string]*CalltreeFunction)
	for _, n := range p.registry.Nodes() {
		if n.Excluded() {
			continue
		}
		name := p.resolver.CalltreeName(n)
		fn, ok := byName[name]
		if !ok {
			fn = &CalltreeFunction{Name: name}
			byName[name] = fn
		}
		for _, e := range n.CallerEdges() {
			fn.Calls += e.Calls
			fn.TotalWeight += e.TotalWeight
			fn.SelfWeight += e.SelfWeight
		}
	}
	functions := make([]CalltreeFunction, 0, len(byName))
	for _, fn := range byName {
		functions = append(functions, *fn)
	}
	sort.Slice(functions, func(i, j int) bool {
		if functions[i].SelfWeight != functions[j].SelfWeight {
			return functions[i].SelfWeight > functions[j].SelfWeight
		}
		return functions[i].Name < functions[j].Name
	})
	return functions
}
