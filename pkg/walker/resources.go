// SPDX-License-Identifier: MPL-2.0

package walker

import "reflect"

// resourceKeyPattern matches any non-empty key; the set of valid keys is only
// known at load time, so the schema documents it through x-reference.
const resourceKeyPattern = "^.+$"

// checkResources enforces the resource-dictionary rule: every key references a
// known id of category and every amount is non-negative.
func checkResources(vc *ValidationContext, category string, v reflect.Value, path Path) {
	if v.Kind() != reflect.Map {
		return
	}
	for _, e := range sortedEntries(v) {
		p := path.Key(e.key)
		if !vc.Known(category, e.key) {
			vc.Errorf(p, "references unknown %s id %q", category, e.key)
		}
		val := e.val
		for val.Kind() == reflect.Pointer {
			if val.IsNil() {
				break
			}
			val = val.Elem()
		}
		if num, ok := numeric(val); ok && num < 0 {
			vc.Errorf(p, "must be >= 0 (got %s)", formatNum(num))
		}
	}
}

// documentResources decorates a dictionary schema with the resource rule.
func documentResources(s *Schema, category string) {
	value := &Schema{Type: "number"}
	for _, v := range s.PatternProperties {
		copied := *v
		value = &copied
	}
	zero := 0.0
	value.Minimum = &zero
	s.PatternProperties = map[string]*Schema{resourceKeyPattern: value}
	s.PropertyNames = &Schema{Reference: category}
	if s.Description == "" {
		s.Description = "Amounts keyed by " + category + " id; amounts must be >= 0"
	}
}
