// SPDX-License-Identifier: MPL-2.0

package control

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/ironhull/modkit/internal/dag"
	"github.com/ironhull/modkit/pkg/content"
)

// ErrCycle is returned when control groups depend on each other in a loop.
var ErrCycle = errors.New("control group dependency cycle")

type (
	// Set is the compiled set of control groups of one load.
	Set struct {
		conds map[string]Condition
		// evalOrder lists group ids dependencies first.
		evalOrder []string
	}

	// CycleError reports a loop in group-on-group conditions.
	CycleError struct {
		Cycle []string
	}

	// Inputs is a State whose inputs are a fixed set and whose groups are
	// resolved through a Set.
	Inputs struct {
		set     *Set
		pressed map[string]bool
		memo    map[string]bool
	}
)

// Error implements the error interface for CycleError.
func (e *CycleError) Error() string {
	return fmt.Sprintf("control group dependency cycle: %s", strings.Join(e.Cycle, " -> "))
}

// Unwrap returns ErrCycle for errors.Is() compatibility.
func (e *CycleError) Unwrap() error { return ErrCycle }

// CompileSet compiles every group's condition and rejects dependency cycles.
// Compile errors are collected per group rather than stopping at the first.
func CompileSet(specs map[string]*content.ControlGroupSpec) (*Set, []error) {
	s := &Set{conds: make(map[string]Condition, len(specs))}
	var errs []error
	for _, id := range slices.Sorted(maps.Keys(specs)) {
		c, err := Compile(specs[id].Condition)
		if err != nil {
			errs = append(errs, fmt.Errorf("control_groups.%s: %w", id, err))
			continue
		}
		s.conds[id] = c
	}
	if err := s.order(); err != nil {
		errs = append(errs, err)
	}
	return s, errs
}

// Condition returns the compiled condition of a group.
func (s *Set) Condition(id string) (Condition, bool) {
	c, ok := s.conds[id]
	return c, ok
}

// Order returns the compiled group ids with every group after the groups
// its condition references.
func (s *Set) Order() []string { return slices.Clone(s.evalOrder) }

// Len returns the number of compiled groups.
func (s *Set) Len() int { return len(s.conds) }

// Evaluate returns the activation state of every group for the given
// pressed inputs.
func (s *Set) Evaluate(pressed ...string) map[string]bool {
	in := s.Inputs(pressed...)
	out := make(map[string]bool, len(s.conds))
	for _, id := range s.evalOrder {
		out[id] = in.GroupActive(id)
	}
	return out
}

// Inputs returns a State for the given pressed inputs.
func (s *Set) Inputs(pressed ...string) *Inputs {
	in := &Inputs{set: s, pressed: make(map[string]bool, len(pressed)), memo: make(map[string]bool)}
	for _, p := range pressed {
		in.pressed[p] = true
	}
	return in
}

// InputActive implements State.
func (in *Inputs) InputActive(name string) bool { return in.pressed[name] }

// GroupActive implements State. Unknown groups are inactive.
func (in *Inputs) GroupActive(id string) bool {
	if v, ok := in.memo[id]; ok {
		return v
	}
	c, ok := in.set.conds[id]
	if !ok {
		return false
	}
	// Cycles are rejected at compile time; the provisional entry only
	// guards against a Set built without CompileSet.
	in.memo[id] = false
	v := c.Eval(in)
	in.memo[id] = v
	return v
}

// order builds the evaluation order of the compiled groups. Edges point
// from a referenced group to the group whose condition references it;
// references to unknown groups are skipped since those are never active.
func (s *Set) order() error {
	ids := slices.Sorted(maps.Keys(s.conds))
	g := dag.New()
	for _, id := range ids {
		g.AddNode(id)
	}
	for _, id := range ids {
		for _, dep := range Groups(s.conds[id]) {
			if _, ok := s.conds[dep]; ok {
				g.AddEdge(dep, id)
			}
		}
	}

	order, err := g.TopologicalSort()
	var ce *dag.CycleError
	if errors.As(err, &ce) {
		s.evalOrder = ids
		// The graph walks dependencies backwards; report the loop in
		// "depends on" order.
		cycle := slices.Clone(ce.Cycle)
		slices.Reverse(cycle)
		return &CycleError{Cycle: cycle}
	}
	s.evalOrder = order
	return err
}
