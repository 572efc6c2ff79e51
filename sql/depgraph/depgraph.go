// Package depgraph links parsed statements by the objects they
// reference and produces a deterministic topological order. The
// adjacency-list-plus-cycle-detection shape is grounded in the
// teacher's sql/internal/sqlx.sortMap/dependencies (ariga.io/atlas):
// build a name-keyed adjacency list from each change's foreign-key/type
// references, then walk it looking for a loop. Where the teacher uses
// a recursive DFS with a "currently visiting" set (sortMap), this
// package uses Kahn's algorithm with a deterministic tie-break, as
// spec.md §4.E requires a stable (schema, name)-ordered output rather
// than whatever order map iteration happens to visit nodes.
package depgraph

import (
	"fmt"
	"sort"

	"github.com/nanopg/nanopg/sql/ident"
	"github.com/nanopg/nanopg/sql/sqlparse"
)

// TopologicalSet is an ordered sequence of statements such that for
// every edge a->b (a depends on b), b precedes a.
type TopologicalSet struct {
	stmts []*sqlparse.Statement
}

// Statements returns the set's statements in forward (dependency-first)
// order.
func (t *TopologicalSet) Statements() []*sqlparse.Statement { return t.stmts }

// Len, used by callers iterating without copying the slice.
func (t *TopologicalSet) Len() int { return len(t.stmts) }

// CycleWarning is returned (non-fatally, via the warnings slice of
// Link) when a cycle among views or routines had to be broken.
type CycleWarning struct {
	Broken ident.Id // the statement whose back-edge was dropped
	Via    ident.Id
}

func (w CycleWarning) String() string {
	return fmt.Sprintf("dependency cycle broken: dropped edge %s -> %s", w.Broken, w.Via)
}

// Link builds a by-qualified-name index of stmts, annotates each
// statement's DepsOut/DepsIn, and returns a TopologicalSet in
// dependency-first order. Per spec.md §4.E, edges unresolved to a known
// statement (e.g. a reference to a Postgres builtin type) are not an
// error: they simply do not constrain ordering.
func Link(stmts []*sqlparse.Statement) (*TopologicalSet, []CycleWarning, error) {
	byName := make(map[string]*sqlparse.Statement, len(stmts))
	for _, s := range stmts {
		byName[s.ID.String()] = s
	}

	for _, s := range stmts {
		s.DepsOut = nil
		s.DepsIn = nil
	}
	for _, s := range stmts {
		for _, ref := range outRefs(s) {
			if target, ok := byName[ref.String()]; ok && target != s {
				s.DepsOut = append(s.DepsOut, target.ID)
				target.DepsIn = append(target.DepsIn, s.ID)
			}
		}
	}

	order, warnings := kahn(stmts, byName)
	return &TopologicalSet{stmts: order}, warnings, nil
}

// outRefs enumerates the Ids a statement's own payload references,
// per the edge-emission rules of spec.md §4.E.
func outRefs(s *sqlparse.Statement) []ident.Id {
	var refs []ident.Id
	switch s.Kind {
	case sqlparse.KindRoutine:
		for _, p := range s.Routine.InParams {
			refs = append(refs, p.Type.Id)
		}
		for _, oc := range s.Routine.OutParams {
			refs = append(refs, oc.Type.Id)
		}
		if s.Routine.ReturnType != nil {
			refs = append(refs, s.Routine.ReturnType.Id)
		}
	case sqlparse.KindTable:
		for _, c := range s.Table.Columns {
			refs = append(refs, c.Type.Id)
			refs = append(refs, c.Refs...)
		}
	case sqlparse.KindCompositeType:
		for _, c := range s.Composite.Columns {
			refs = append(refs, c.Type.Id)
		}
	case sqlparse.KindView:
		refs = append(refs, s.View.Refs...)
	}
	return refs
}

// kahn runs Kahn's algorithm over stmts' DepsOut/DepsIn edges, breaking
// ties by (schema, name) ascending and breaking cycles at the
// highest-indexed back-edge, logging a CycleWarning for each break.
func kahn(stmts []*sqlparse.Statement, byName map[string]*sqlparse.Statement) ([]*sqlparse.Statement, []CycleWarning) {
	indeg := make(map[string]int, len(stmts))
	// adjacency from a dependency to the statements that depend on it,
	// i.e. the edge direction Kahn's algorithm peels from the front.
	adj := make(map[string][]string, len(stmts))
	for _, s := range stmts {
		key := s.ID.String()
		if _, ok := indeg[key]; !ok {
			indeg[key] = 0
		}
		for _, dep := range s.DepsOut {
			depKey := dep.String()
			adj[depKey] = append(adj[depKey], key)
			indeg[key]++
		}
	}

	var ready []string
	for key, n := range indeg {
		if n == 0 {
			ready = append(ready, key)
		}
	}

	var (
		order    []*sqlparse.Statement
		warnings []CycleWarning
	)
	remaining := len(stmts)
	for remaining > 0 {
		sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })
		if len(ready) == 0 {
			// Cycle: break it at the highest-indexed (schema,name) node still
			// pending, dropping its back-edges so progress can resume.
			key, warning := breakCycle(stmts, indeg, byName)
			warnings = append(warnings, warning)
			ready = append(ready, key)
			continue
		}
		key := ready[0]
		ready = ready[1:]
		order = append(order, byName[key])
		remaining--
		next := adj[key]
		sort.Strings(next)
		for _, n := range next {
			indeg[n]--
			if indeg[n] == 0 {
				ready = append(ready, n)
			}
		}
	}
	return order, warnings
}

// breakCycle finds the highest-indexed (schema, name) statement among
// those still blocked (indegree > 0) and zeroes its indegree, treating
// all its remaining incoming edges as broken.
func breakCycle(stmts []*sqlparse.Statement, indeg map[string]int, byName map[string]*sqlparse.Statement) (string, CycleWarning) {
	var pending []string
	for key, n := range indeg {
		if n > 0 {
			pending = append(pending, key)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(pending)))
	key := pending[0]
	s := byName[key]
	var via ident.Id
	if len(s.DepsOut) > 0 {
		via = s.DepsOut[len(s.DepsOut)-1]
	}
	indeg[key] = 0
	return key, CycleWarning{Broken: s.ID, Via: via}
}
