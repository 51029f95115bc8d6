// SPDX-License-Identifier: MPL-2.0

package walker

import (
	"math"
	"reflect"
)

// sequenceFactor is the multiplier of the order-sensitive combiner.
const sequenceFactor = 31

type checksumOp struct {
	w     *Walker
	level Level
}

// Checksum reduces v to a 32-bit value at the given level. Structurally
// equal values of the same type always yield the same result, in any process.
//
// Combiners: composite fields add, dictionary entries XOR, collection elements
// combine sequentially. Fields tagged above level are not walked.
func (w *Walker) Checksum(v any, level Level) (uint32, error) {
	if err := level.Validate(); err != nil {
		return 0, err
	}
	t, rv, err := w.root(v)
	if err != nil {
		return 0, err
	}
	return w.walk(&checksumOp{w: w, level: level}, t, rv, nil).Sum, nil
}

func (op *checksumOp) null(node) Result { return Result{} }

func (op *checksumOp) primitive(n node) Result {
	return Result{Sum: PrimitiveChecksum(n.val)}
}

func (op *checksumOp) vector(n node) Result {
	comps := n.iface().(Vector).Components()
	var acc uint32
	for _, c := range comps {
		acc = Sequence(acc, ByteSum(math.Float64bits(c)))
	}
	return Result{Sum: acc}
}

func (op *checksumOp) custom(n node) (Result, bool) {
	if !n.info.Hooks.Has(HookChecksum) {
		return Result{}, false
	}
	return Result{Sum: n.iface().(Checksummer).SpecChecksum(op.level)}, true
}

func (op *checksumOp) dictionary(n node) Result {
	t := n.info.Type
	var acc uint32
	iter := n.val.MapRange()
	for iter.Next() {
		k := op.w.walk(op, t.Key(), iter.Key(), nil).Sum
		v := op.w.walk(op, t.Elem(), iter.Value(), nil).Sum
		acc ^= Pair(k, v)
	}
	return Result{Sum: acc}
}

func (op *checksumOp) collection(n node) Result {
	elem := n.info.Type.Elem()
	length := n.val.Len()
	acc := uint32(length)
	for i := range length {
		acc = Sequence(acc, op.w.walk(op, elem, n.val.Index(i), nil).Sum)
	}
	return Result{Sum: acc}
}

func (op *checksumOp) enum(n node) Result {
	return Result{Sum: PrimitiveChecksum(n.val)}
}

func (op *checksumOp) composite(n node) Result {
	var acc uint32
	for _, f := range n.info.Fields {
		if f.Tags.Level > op.level {
			continue
		}
		sum := op.w.walk(op, f.Type, n.field(f), nil).Sum
		acc += Pair(StringChecksum(f.Name), sum)
	}
	return Result{Sum: acc}
}

// ByteSum adds the eight little-endian bytes of u.
func ByteSum(u uint64) uint32 {
	var s uint32
	for range 8 {
		s += uint32(u & 0xff)
		u >>= 8
	}
	return s
}

// Sequence is the order-sensitive combiner used for collections and strings.
func Sequence(acc, next uint32) uint32 {
	return acc*sequenceFactor + next
}

// Pair combines a key (or field name) checksum with its value checksum.
func Pair(key, value uint32) uint32 {
	return Sequence(Sequence(0, key), value)
}

// StringChecksum combines the UTF-8 bytes of s sequentially.
func StringChecksum(s string) uint32 {
	var acc uint32
	for i := 0; i < len(s); i++ {
		acc = Sequence(acc, uint32(s[i]))
	}
	return acc
}

// PrimitiveChecksum derives a checksum from the raw bits of a bool, integer,
// float or string value. Integers widen to 64 bits and floats to float64
// before summing, so the declared width does not change the result.
func PrimitiveChecksum(v reflect.Value) uint32 {
	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			return 1
		}
		return 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return ByteSum(uint64(v.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return ByteSum(v.Uint())
	case reflect.Float32, reflect.Float64:
		return ByteSum(math.Float64bits(v.Float()))
	case reflect.String:
		return StringChecksum(v.String())
	default:
		return 0
	}
}
