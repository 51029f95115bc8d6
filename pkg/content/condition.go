// SPDX-License-Identifier: MPL-2.0

package content

import (
	"slices"

	"github.com/ironhull/modkit/pkg/walker"
)

// Condition operators.
const (
	OpAnd   = "and"
	OpOr    = "or"
	OpNot   = "not"
	OpInput = "input"
	OpGroup = "group"
	OpTrue  = "true"
	OpFalse = "false"
)

var conditionOps = []string{OpAnd, OpOr, OpNot, OpInput, OpGroup, OpTrue, OpFalse}

// ConditionSpec is a boolean expression over player inputs and other
// control groups, compiled by the control package.
//
//	condition: {op: "and", terms: [
//	    {op: "input", input: "fire"},
//	    {op: "not", terms: [{op: "group", group: "brakes"}]},
//	]}
type ConditionSpec struct {
	Op    string          `mapstructure:"op" spec:"nonnull" desc:"and, or, not, input, group, true or false"`
	Terms []ConditionSpec `mapstructure:"terms"`
	Input string          `mapstructure:"input"`
	Group string          `mapstructure:"group" spec:"ref=control_groups"`
}

// ConditionOps returns the recognized operators.
func ConditionOps() []string { return slices.Clone(conditionOps) }

// ValidateSpec checks operator arity and operands, then validates the
// fields (and through them every nested term) generically.
func (c *ConditionSpec) ValidateSpec(vc *walker.ValidationContext, path walker.Path) {
	switch c.Op {
	case OpAnd, OpOr:
		if len(c.Terms) == 0 {
			vc.Errorf(path.Field("terms"), "%q needs at least one term", c.Op)
		}
	case OpNot:
		if len(c.Terms) != 1 {
			vc.Errorf(path.Field("terms"), "%q needs exactly one term (got %d)", c.Op, len(c.Terms))
		}
	case OpInput:
		if c.Input == "" {
			vc.Errorf(path.Field("input"), "%q needs an input name", c.Op)
		}
	case OpGroup:
		if c.Group == "" {
			vc.Errorf(path.Field("group"), "%q needs a control group id", c.Op)
		}
	case OpTrue, OpFalse:
	case "":
		// reported by the nonnull check below
	default:
		vc.Errorf(path.Field("op"), "unknown operator %q (valid: %v)", c.Op, conditionOps)
	}

	switch c.Op {
	case OpInput, OpGroup, OpTrue, OpFalse:
		if len(c.Terms) > 0 {
			vc.Errorf(path.Field("terms"), "%q takes no terms", c.Op)
		}
	}
	vc.ValidateFields(c, path)
}
