// SPDX-License-Identifier: MPL-2.0

package walker

import (
	"strconv"
	"strings"
)

// Path is the location of a node inside a spec instance. Segments are stored
// pre-formatted: field and dictionary keys as plain names, collection indices
// as "[i]". Every derivation returns a new slice, so a Path handed to a hook
// can never alias the caller's.
type Path []string

// NewPath builds a path from plain segments, e.g. NewPath("blocks", "armor").
func NewPath(segments ...string) Path {
	return append(Path(nil), segments...)
}

// Field returns p extended by a field or dictionary key.
func (p Path) Field(name string) Path {
	return append(p[:len(p):len(p)], name)
}

// Key returns p extended by a dictionary key.
func (p Path) Key(key string) Path {
	return p.Field(key)
}

// Index returns p extended by a collection index.
func (p Path) Index(i int) Path {
	return append(p[:len(p):len(p)], "["+strconv.Itoa(i)+"]")
}

// Clone returns an independent copy of p.
func (p Path) Clone() Path {
	return append(Path(nil), p...)
}

// String renders the dotted form, e.g. "blocks.armor.hardpoints[0].offset".
func (p Path) String() string {
	var sb strings.Builder
	for i, seg := range p {
		if i > 0 && !strings.HasPrefix(seg, "[") {
			sb.WriteByte('.')
		}
		sb.WriteString(seg)
	}
	return sb.String()
}
