package state

import (
	"math"
	"reflect"
)

// Comparator reports whether two values should be treated as equal.
type Comparator[T any] func(a, b T) bool

// Float is the set of floating-point element types.
type Float interface {
	~float32 | ~float64
}

// DefaultEpsilon is the tolerance used by comparators built without one.
const DefaultEpsilon = 1e-6

// Equal compares with ==.
func Equal[T comparable]() Comparator[T] {
	return func(a, b T) bool { return a == b }
}

// Deep compares with reflect.DeepEqual. It is the fallback for types that
// are not comparable with ==.
func Deep[T any]() Comparator[T] {
	return func(a, b T) bool { return reflect.DeepEqual(a, b) }
}

// Approx compares floats with a combined absolute/relative tolerance.
func Approx[F Float](eps F) Comparator[F] {
	return func(a, b F) bool { return approxEqual(float64(a), float64(b), float64(eps)) }
}

// ApproxSlice compares float slices element-wise. Slices of different length
// are never equal.
func ApproxSlice[F Float](eps F) Comparator[[]F] {
	return func(a, b []F) bool {
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if !approxEqual(float64(a[i]), float64(b[i]), float64(eps)) {
				return false
			}
		}
		return true
	}
}

// ApproxArray3 compares three-component vectors (colors, positions).
func ApproxArray3[F Float](eps F) Comparator[[3]F] {
	return func(a, b [3]F) bool {
		return ApproxSlice(eps)(a[:], b[:])
	}
}

// ApproxArray4 compares four-component vectors (rotations, RGBA).
func ApproxArray4[F Float](eps F) Comparator[[4]F] {
	return func(a, b [4]F) bool {
		return ApproxSlice(eps)(a[:], b[:])
	}
}

func approxEqual(a, b, eps float64) bool {
	if a == b {
		return true
	}
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	diff := math.Abs(a - b)
	if diff <= eps {
		return true
	}
	return diff <= eps*math.Max(math.Abs(a), math.Abs(b))
}
