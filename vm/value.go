package vm

import (
	"math"
	"strconv"
)

// Value represents a Lox value using NaN-boxing.
//
// All values are represented as 64-bit IEEE 754 doubles. Non-number values
// are encoded in the NaN (Not-a-Number) space using the quiet NaN prefix
// and tag bits to distinguish types.
//
// Encoding scheme:
//   - Number: Native IEEE 754 double (if not a tagged NaN, it's a number)
//   - Special: Quiet NaN + tagSpecial + special value ID (nil/true/false)
//   - String: Quiet NaN + tagString + 32-bit interned string ID
type Value uint64

// NaN-boxing constants
const (
	// Quiet NaN prefix: exponent all 1s, quiet bit set, sign bit 0
	// 0x7FF8_0000_0000_0000
	nanBits uint64 = 0x7FF8000000000000

	// Tag mask: 3 bits within the NaN mantissa space
	tagMask uint64 = 0x0007000000000000

	// Payload mask: 48 bits for the string ID or special value ID
	payloadMask uint64 = 0x0000FFFFFFFFFFFF

	// Tag values (shifted into position)
	tagSpecial uint64 = 0x0001000000000000 // nil, true, false
	tagString  uint64 = 0x0002000000000000 // interned string ID
)

// Special value payloads
const (
	specialNil   uint64 = 0
	specialTrue  uint64 = 1
	specialFalse uint64 = 2
)

// Pre-defined special values
const (
	Nil   Value = Value(nanBits | tagSpecial | specialNil)
	True  Value = Value(nanBits | tagSpecial | specialTrue)
	False Value = Value(nanBits | tagSpecial | specialFalse)
)

// ---------------------------------------------------------------------------
// Type checking
// ---------------------------------------------------------------------------

// IsNumber returns true if v represents a float64 number.
// A value is a number if it's not one of our tagged NaN values.
// This includes regular numbers, infinities, and "real" NaN values.
func (v Value) IsNumber() bool {
	bits := uint64(v)

	if (bits & 0x7FF0000000000000) != 0x7FF0000000000000 {
		// Exponent is not all 1s, so it's a regular number
		return true
	}

	// Exponent is all 1s. Infinity has mantissa == 0 (ignoring sign bit).
	mantissa := bits & 0x000FFFFFFFFFFFFF
	if mantissa == 0 {
		return true
	}

	// It's a NaN. Our tagged values have the quiet bit plus a non-zero tag.
	if (bits & nanBits) != nanBits {
		// Signaling NaN, treat as number
		return true
	}

	tag := bits & tagMask
	if tag == 0 {
		// A "real" quiet NaN, treat as number
		return true
	}

	return false
}

// IsString returns true if v represents an interned string handle.
func (v Value) IsString() bool {
	return (uint64(v) & (nanBits | tagMask)) == (nanBits | tagString)
}

// IsNil returns true if v is the nil value.
func (v Value) IsNil() bool {
	return v == Nil
}

// IsBool returns true if v is true or false.
func (v Value) IsBool() bool {
	return v == True || v == False
}

// ---------------------------------------------------------------------------
// Constructors and accessors
// ---------------------------------------------------------------------------

// Number returns v as a float64.
// Panics if v is not a number; callers must check IsNumber first.
func (v Value) Number() float64 {
	if !v.IsNumber() {
		panic("Value.Number: not a number")
	}
	return math.Float64frombits(uint64(v))
}

// FromNumber creates a Value from a float64.
func FromNumber(f float64) Value {
	return Value(math.Float64bits(f))
}

// Bool returns v as a bool.
// Panics if v is not true or false.
func (v Value) Bool() bool {
	switch v {
	case True:
		return true
	case False:
		return false
	default:
		panic("Value.Bool: not a boolean")
	}
}

// FromBool creates a Value from a bool.
func FromBool(b bool) Value {
	if b {
		return True
	}
	return False
}

// StringID returns the interned string ID encoded in v.
// Panics if v is not a string.
func (v Value) StringID() StringID {
	if !v.IsString() {
		panic("Value.StringID: not a string")
	}
	return StringID(uint64(v) & payloadMask)
}

// FromStringID creates a Value from an interned string ID.
func FromStringID(id StringID) Value {
	return Value(nanBits | tagString | uint64(id))
}

// ---------------------------------------------------------------------------
// Truthiness and equality
// ---------------------------------------------------------------------------

// IsFalsy returns true if v is considered "falsy" in conditionals.
// Only false and nil are falsy; everything else (including 0) is truthy.
func (v Value) IsFalsy() bool {
	return v == False || v == Nil
}

// ValuesEqual reports whether two values are equal.
//
// Numbers compare numerically (so NaN != NaN, per IEEE 754). Everything
// else compares by bit identity: specials are singletons, and strings are
// interned so equal content always has the same handle.
func ValuesEqual(a, b Value) bool {
	if a.IsNumber() && b.IsNumber() {
		return a.Number() == b.Number()
	}
	return a == b
}

// Format renders the display form of v, resolving string handles
// through the given table.
func (v Value) Format(strings *StringTable) string {
	switch {
	case v == Nil:
		return "nil"
	case v == True:
		return "true"
	case v == False:
		return "false"
	case v.IsString():
		return strings.Contents(v.StringID())
	default:
		return strconv.FormatFloat(v.Number(), 'g', -1, 64)
	}
}
