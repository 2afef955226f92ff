// Package fixedpoint implements the fixed-point value type used by the shader
// ISA's FX family of instructions (FXMUL, FXMAD, FXMAD2).
//
// A Value carries its own precision (integer bits, fractional bits) along with
// NaN/infinite/overflow/underflow tags, mirroring the source simulator's
// FixedPoint class: operations on a tagged value stay finite and the tag
// propagates, rather than panicking or returning a Go error.
package fixedpoint

import "math"

// MaxIntBits and MaxFracBits bound the representable precision, matching the
// source's 64/63-bit ceiling (one bit is reserved for sign bookkeeping).
const (
	MaxIntBits  = 64
	MaxFracBits = 63
)

// Value is a signed fixed-point number with configurable int.frac precision.
type Value struct {
	intBits, fracBits uint32
	raw               int64 // scaled by 2^fracBits; New saturates it, arithmetic on overflow keeps the unsaturated value and sets the overflow tag
	nan               bool
	infinite          bool
	overflow          bool
	underflow         bool
}

// New builds a Value from a float64 at the given precision. intBits must be
// <= MaxIntBits and fracBits <= MaxFracBits.
func New(f float64, intBits, fracBits uint32) Value {
	v := Value{intBits: intBits, fracBits: fracBits}

	switch {
	case math.IsNaN(f):
		v.nan = true
		return v
	case math.IsInf(f, 0):
		v.infinite = true
		v.raw = signOf(f) * math.MaxInt64
		return v
	}

	scale := math.Ldexp(1, int(fracBits))
	scaled := f * scale

	limit := math.Ldexp(1, int(intBits+fracBits)-1)
	if scaled >= limit {
		v.overflow = true
		v.raw = int64(limit) - 1
		return v
	}
	if scaled <= -limit {
		v.overflow = true
		v.raw = -int64(limit)
		return v
	}
	if f != 0 && scaled > -1 && scaled < 1 {
		// Non-zero value collapsed entirely into bits this precision doesn't carry.
		v.underflow = true
		v.raw = 0
		return v
	}

	v.raw = int64(math.Round(scaled))
	return v
}

func signOf(f float64) int64 {
	if f < 0 {
		return -1
	}
	return 1
}

// IntBits and FracBits report the value's configured precision.
func (v Value) IntBits() uint32  { return v.intBits }
func (v Value) FracBits() uint32 { return v.fracBits }

// IsNaN, IsInf, Overflowed, Underflowed report the tags set at construction or
// inherited from an operand during arithmetic.
func (v Value) IsNaN() bool       { return v.nan }
func (v Value) IsInf() bool       { return v.infinite }
func (v Value) Overflowed() bool  { return v.overflow }
func (v Value) Underflowed() bool { return v.underflow }

// ToFloat32 converts back to float32. Per the source's documented conversion
// behaviour: overflow/underflow/infinite produce +/-Inf, NaN produces NaN.
func (v Value) ToFloat32() float32 {
	if v.nan {
		return float32(math.NaN())
	}
	if v.infinite || v.overflow || v.underflow {
		if v.raw < 0 {
			return float32(math.Inf(-1))
		}
		return float32(math.Inf(1))
	}
	scale := math.Ldexp(1, -int(v.fracBits))
	return float32(float64(v.raw) * scale)
}

// ToFloat64 mirrors ToFloat32 at double precision, for internal math that
// needs it (e.g. feeding a fixed-point result back into the f64 edge-equation
// pipeline).
func (v Value) ToFloat64() float64 {
	if v.nan {
		return math.NaN()
	}
	if v.infinite || v.overflow || v.underflow {
		if v.raw < 0 {
			return math.Inf(-1)
		}
		return math.Inf(1)
	}
	scale := math.Ldexp(1, -int(v.fracBits))
	return float64(v.raw) * scale
}

// taggedResult propagates NaN/Inf/overflow/underflow tags from two operands
// onto a result still expressed as a raw scaled integer.
func taggedResult(a, b Value, raw int64, overflow bool) Value {
	r := Value{intBits: a.intBits, fracBits: a.fracBits, raw: raw}
	r.nan = a.nan || b.nan
	r.infinite = a.infinite || b.infinite
	r.overflow = overflow || a.overflow || b.overflow
	if r.nan || r.infinite || r.overflow {
		return r
	}
	r.underflow = a.underflow || b.underflow
	return r
}

func (v Value) limit() int64 {
	return int64(math.Ldexp(1, int(v.intBits+v.fracBits)-1))
}

// Add returns a+b. Both operands must share precision; the result uses a's.
func (a Value) Add(b Value) Value {
	sum := a.raw + b.raw
	limit := a.limit()
	return taggedResult(a, b, sum, sum >= limit || sum < -limit)
}

// Sub returns a-b.
func (a Value) Sub(b Value) Value {
	diff := a.raw - b.raw
	limit := a.limit()
	return taggedResult(a, b, diff, diff >= limit || diff < -limit)
}

// Mul returns a*b, rescaled back to a's fractional precision.
func (a Value) Mul(b Value) Value {
	product := mulShift(a.raw, b.raw, int(b.fracBits))
	limit := a.limit()
	return taggedResult(a, b, product, product >= limit || product < -limit)
}

// mulShift computes (x*y) >> shift, rounded, always through a float64
// intermediate, so the product cannot overflow int64 but is exact only while
// it fits float64's 53-bit mantissa; the source simulator
// keeps an explicit wide accumulator, this is the Go-idiomatic equivalent for
// the precisions the shader ISA actually uses (<=32 total bits).
func mulShift(x, y int64, shift int) int64 {
	product := float64(x) * float64(y)
	return int64(math.Round(product / math.Ldexp(1, shift)))
}

// MulAdd implements the FXMAD semantics: a*b+c, all at a's precision.
func (a Value) MulAdd(b, c Value) Value {
	return a.Mul(b).Add(c)
}

// Neg returns -v, preserving tags.
func (v Value) Neg() Value {
	r := v
	r.raw = -v.raw
	return r
}
