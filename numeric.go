package miditoolkit

import "math/big"

// This file implements the numeric delta domain (spec.md section 3.1 / 4.L).
//
// The original Rust crate (midi-toolkit/src/num.rs) gets this via a
// MIDINum trait implemented by macro for six numeric types. Go's generics
// give us the same thing directly: a type-set constraint plus a handful of
// free functions, since operators (+, -, *, /, <) already work on any type
// parameter whose constraint is a union of types that all support them.

// Numeric is the set of delta/time representations the library supports:
// signed and unsigned 32- and 64-bit integers, and 32- and 64-bit floats.
type Numeric interface {
	~int32 | ~uint32 | ~int64 | ~uint64 | ~float32 | ~float64
}

// Zero returns the zero value of a Numeric type.
func Zero[T Numeric]() T {
	return T(0)
}

// FromU32 losslessly constructs a Numeric value from a u32, as required by
// spec.md section 3.1 ("lossless construction from a u32").
func FromU32[T Numeric](v uint32) T {
	return T(v)
}

// ToU64 converts a Numeric value to u64 by truncation-or-rounding per the
// natural Go cast, used when encoding a delta as a VLQ, when recasting a
// delta, and by scaleTicksPPQ.
func ToU64[T Numeric](v T) uint64 {
	return uint64(v)
}

// FromU64 constructs a Numeric value from a u64 by the natural Go cast,
// used when recasting a delta between Numeric domains (CastEventDelta) and
// by scaleTicksPPQ. The conversion is exact when v fits the target type;
// values that do not fit are truncated or rounded by the cast.
func FromU64[T Numeric](v uint64) T {
	return T(v)
}

// ToF64 converts a Numeric value to f64, used by the duration calculation
// in the statistics engine (spec.md section 4.J).
func ToF64[T Numeric](v T) float64 {
	return float64(v)
}

// FromF64 constructs a Numeric value from an f64.
func FromF64[T Numeric](v float64) T {
	return T(v)
}

// SaturatingAdd adds b to a, saturating at the numeric type's maximum
// instead of wrapping or panicking on overflow. Spec.md section 4.L
// requires this for the merger's absolute-time accumulator so that a
// malformed file with absurd deltas cannot panic; the resulting saturated
// value is still compared correctly (it simply stops advancing) and the
// underlying corrupt input surfaces as a parse error from the producing
// stream instead.
func SaturatingAdd[T Numeric](a, b T) T {
	sum := a + b
	// Integer overflow wraps in Go; floats overflow to +Inf on their own,
	// so only the integer cases need an explicit saturation check.
	switch any(a).(type) {
	case int32, uint32, int64, uint64:
		if b > 0 && sum < a {
			return maxOf[T]()
		}
		if b < 0 && sum > a {
			return minOf[T]()
		}
	}
	return sum
}

func maxOf[T Numeric]() T {
	var zero T
	switch any(zero).(type) {
	case int32:
		return T(int32(1<<31 - 1))
	case uint32:
		return T(uint32(1<<32 - 1))
	case int64:
		return T(int64(1<<63 - 1))
	case uint64:
		var m uint64 = 1<<64 - 1
		return T(m)
	case float32:
		return T(float32(3.402823e+38))
	case float64:
		return T(float64(1.797693134862315708e+308))
	}
	return zero
}

// scaleTicksPPQ computes delta*to/from for a Numeric delta. Float domains
// use ordinary floating-point arithmetic (no overflow concern); integer
// domains route the multiply through math/big so a delta and target PPQ
// that would overflow a u64 before the division still divide out exactly,
// per the original Rust crate's u128-intermediate scale_ppq (SPEC_FULL.md
// section 12).
func scaleTicksPPQ[T Numeric](delta T, from, to uint32) T {
	switch any(delta).(type) {
	case float32, float64:
		return delta * FromU32[T](to) / FromU32[T](from)
	default:
		d := new(big.Int).SetUint64(ToU64(delta))
		d.Mul(d, new(big.Int).SetUint64(uint64(to)))
		d.Div(d, new(big.Int).SetUint64(uint64(from)))
		return FromU64[T](d.Uint64())
	}
}

func minOf[T Numeric]() T {
	var zero T
	switch any(zero).(type) {
	case int32:
		return T(int32(-1 << 31))
	case int64:
		return T(int64(-1 << 63))
	case float32:
		return T(float32(-3.402823e+38))
	case float64:
		return T(float64(-1.797693134862315708e+308))
	default:
		// unsigned types cannot go below zero
		return zero
	}
}
