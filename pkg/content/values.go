// SPDX-License-Identifier: MPL-2.0

package content

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ironhull/modkit/pkg/walker"
)

const (
	// ShapeCube is a full unit cube.
	ShapeCube BlockShape = iota
	// ShapeWedge is a half-cube cut along one diagonal.
	ShapeWedge
	// ShapeCorner is a tetrahedral corner piece.
	ShapeCorner
	// ShapeSlope is a shallow two-unit ramp.
	ShapeSlope
	// ShapeCylinder is an upright cylinder.
	ShapeCylinder
)

var (
	// ErrInvalidShape is returned when a block shape name is not recognized.
	ErrInvalidShape = errors.New("invalid block shape")
	// ErrInvalidColor is returned when a color is not "#rrggbb" or "#rrggbbaa".
	ErrInvalidColor = errors.New("invalid color")
	// ErrInvalidVector is returned when a vector has the wrong number of components.
	ErrInvalidVector = errors.New("invalid vector")

	shapeNames = []string{"cube", "wedge", "corner", "slope", "cylinder"}
)

type (
	// Vec3 is a position, size or direction in block units.
	Vec3 struct {
		X float64 `mapstructure:"x"`
		Y float64 `mapstructure:"y"`
		Z float64 `mapstructure:"z"`
	}

	// BlockShape is the collision shape of a block.
	BlockShape int

	// Color is an sRGB color with alpha. Documents write it as "#rrggbb" or
	// "#rrggbbaa".
	Color struct {
		R, G, B, A uint8
	}

	// ComponentSetter is implemented by vector types that can be bound from a
	// document sequence such as [1, 0, 0].
	ComponentSetter interface {
		SetComponents(c []float64) error
	}
)

// Components implements walker.Vector.
func (v Vec3) Components() []float64 { return []float64{v.X, v.Y, v.Z} }

// SetComponents implements ComponentSetter.
func (v *Vec3) SetComponents(c []float64) error {
	if len(c) != 3 {
		return fmt.Errorf("%w: expected 3 components, got %d", ErrInvalidVector, len(c))
	}
	v.X, v.Y, v.Z = c[0], c[1], c[2]
	return nil
}

// EnumNames implements walker.Enum.
func (BlockShape) EnumNames() []string { return shapeNames }

// String returns the shape name.
func (s BlockShape) String() string {
	if s < 0 || int(s) >= len(shapeNames) {
		return fmt.Sprintf("shape(%d)", int(s))
	}
	return shapeNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s BlockShape) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(shapeNames) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidShape, int(s))
	}
	return []byte(shapeNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *BlockShape) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	for i, n := range shapeNames {
		if n == name {
			*s = BlockShape(i)
			return nil
		}
	}
	return fmt.Errorf("%w %q (valid: %s)", ErrInvalidShape, text, strings.Join(shapeNames, ", "))
}

// String renders the color as "#rrggbbaa".
func (c Color) String() string {
	return "#" + hex.EncodeToString([]byte{c.R, c.G, c.B, c.A})
}

// UnmarshalText implements encoding.TextUnmarshaler. Alpha defaults to ff.
func (c *Color) UnmarshalText(text []byte) error {
	s := strings.TrimPrefix(strings.TrimSpace(string(text)), "#")
	if len(s) != 6 && len(s) != 8 {
		return fmt.Errorf("%w %q: expected #rrggbb or #rrggbbaa", ErrInvalidColor, text)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidColor, text, err)
	}
	c.R, c.G, c.B, c.A = b[0], b[1], b[2], 0xff
	if len(b) == 4 {
		c.A = b[3]
	}
	return nil
}

// SpecChecksum packs the four channels; colors are cosmetic and identical
// at every level.
func (c Color) SpecChecksum(walker.Level) uint32 {
	return uint32(c.R)<<24 | uint32(c.G)<<16 | uint32(c.B)<<8 | uint32(c.A)
}

// SpecSchema documents the textual form instead of the four channels.
func (Color) SpecSchema() *walker.Schema {
	return &walker.Schema{
		Type:        "string",
		Pattern:     "^#?([0-9a-fA-F]{6}|[0-9a-fA-F]{8})$",
		Description: "sRGB color as #rrggbb or #rrggbbaa",
	}
}
