// SPDX-License-Identifier: MPL-2.0

// Package control compiles control-group activation conditions into
// evaluable expression trees.
package control

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ironhull/modkit/pkg/content"
)

// ErrInvalidCondition is returned when a condition spec cannot be compiled.
var ErrInvalidCondition = errors.New("invalid condition")

type (
	// State answers the leaf questions of a condition.
	State interface {
		InputActive(name string) bool
		GroupActive(id string) bool
	}

	// Condition is a compiled expression. Eval has no side effects.
	Condition interface {
		Eval(s State) bool
		String() string
	}

	// CompileError reports the first problem found while compiling.
	CompileError struct {
		Path   string
		Reason string
	}

	and      []Condition
	or       []Condition
	not      struct{ term Condition }
	input    string
	group    string
	constant bool
)

// Error implements the error interface for CompileError.
func (e *CompileError) Error() string {
	if e.Path == "" {
		return "condition: " + e.Reason
	}
	return fmt.Sprintf("condition %s: %s", e.Path, e.Reason)
}

// Unwrap returns ErrInvalidCondition for errors.Is() compatibility.
func (e *CompileError) Unwrap() error { return ErrInvalidCondition }

// Compile turns a validated spec into a Condition.
func Compile(spec content.ConditionSpec) (Condition, error) {
	return compile(spec, "")
}

func compile(spec content.ConditionSpec, path string) (Condition, error) {
	terms := func() ([]Condition, error) {
		out := make([]Condition, len(spec.Terms))
		for i, t := range spec.Terms {
			c, err := compile(t, fmt.Sprintf("%sterms[%d]", prefix(path), i))
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	}
	fail := func(format string, args ...any) (Condition, error) {
		return nil, &CompileError{Path: path, Reason: fmt.Sprintf(format, args...)}
	}

	switch spec.Op {
	case content.OpAnd, content.OpOr:
		if len(spec.Terms) == 0 {
			return fail("%q needs at least one term", spec.Op)
		}
		ts, err := terms()
		if err != nil {
			return nil, err
		}
		if spec.Op == content.OpAnd {
			return and(ts), nil
		}
		return or(ts), nil
	case content.OpNot:
		if len(spec.Terms) != 1 {
			return fail("%q needs exactly one term (got %d)", spec.Op, len(spec.Terms))
		}
		ts, err := terms()
		if err != nil {
			return nil, err
		}
		return not{term: ts[0]}, nil
	case content.OpInput:
		if spec.Input == "" {
			return fail("%q needs an input name", spec.Op)
		}
		return input(spec.Input), nil
	case content.OpGroup:
		if spec.Group == "" {
			return fail("%q needs a control group id", spec.Op)
		}
		return group(spec.Group), nil
	case content.OpTrue:
		return constant(true), nil
	case content.OpFalse:
		return constant(false), nil
	default:
		return fail("unknown operator %q", spec.Op)
	}
}

func prefix(path string) string {
	if path == "" {
		return ""
	}
	return path + "."
}

func (c and) Eval(s State) bool {
	for _, t := range c {
		if !t.Eval(s) {
			return false
		}
	}
	return true
}

func (c or) Eval(s State) bool {
	for _, t := range c {
		if t.Eval(s) {
			return true
		}
	}
	return false
}

func (c not) Eval(s State) bool    { return !c.term.Eval(s) }
func (c input) Eval(s State) bool  { return s.InputActive(string(c)) }
func (c group) Eval(s State) bool  { return s.GroupActive(string(c)) }
func (c constant) Eval(State) bool { return bool(c) }
func (c not) String() string       { return "!" + c.term.String() }
func (c input) String() string     { return "input(" + string(c) + ")" }
func (c group) String() string     { return "group(" + string(c) + ")" }
func (c constant) String() string  { return fmt.Sprint(bool(c)) }
func (c and) String() string       { return join(c, " && ") }
func (c or) String() string        { return join(c, " || ") }

func join(cs []Condition, sep string) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.String()
	}
	return "(" + strings.Join(parts, sep) + ")"
}

// Groups returns the control group ids a condition depends on, in
// first-use order.
func Groups(c Condition) []string {
	var ids []string
	seen := make(map[string]bool)
	var visit func(Condition)
	visit = func(c Condition) {
		switch x := c.(type) {
		case and:
			for _, t := range x {
				visit(t)
			}
		case or:
			for _, t := range x {
				visit(t)
			}
		case not:
			visit(x.term)
		case group:
			if !seen[string(x)] {
				seen[string(x)] = true
				ids = append(ids, string(x))
			}
		}
	}
	visit(c)
	return ids
}
