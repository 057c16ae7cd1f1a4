package state

// States tracks a slice element-wise across frames.
//
// Resizing is not an error: growing appends entries that report as changed,
// shrinking truncates. Either way the collection as a whole reports a change.
type States[T any] struct {
	values  []T
	flags   []bool
	cmp     Comparator[T]
	mutated bool
	resized bool
}

// NewStates creates a States using cmp to compare elements.
func NewStates[T any](cmp Comparator[T]) *States[T] {
	return &States[T]{cmp: cmp}
}

// SetComparator replaces the element equality function.
func (s *States[T]) SetComparator(cmp Comparator[T]) {
	s.cmp = cmp
}

// Update compares vs against the snapshot element by element, copies vs into
// the snapshot and returns whether anything changed.
func (s *States[T]) Update(vs []T) bool {
	prev := len(s.values)
	s.resized = prev != len(vs)

	if len(vs) < prev {
		clear(s.values[len(vs):])
		s.values = s.values[:len(vs)]
		s.flags = s.flags[:len(vs)]
	}

	s.mutated = s.resized
	for i, v := range vs {
		if i < prev {
			s.flags[i] = !s.equal(s.values[i], v)
			s.values[i] = v
		} else {
			s.values = append(s.values, v)
			s.flags = append(s.flags, true)
		}
		if s.flags[i] {
			s.mutated = true
		}
	}
	return s.mutated
}

// IsMutated returns whether the last Update changed any element or the length.
func (s *States[T]) IsMutated() bool {
	return s.mutated
}

// IsResized returns whether the last Update changed the length.
func (s *States[T]) IsResized() bool {
	return s.resized
}

// IsMutatedAt returns whether element i changed on the last Update. Indices
// past the end report false.
func (s *States[T]) IsMutatedAt(i int) bool {
	if i < 0 || i >= len(s.flags) {
		return false
	}
	return s.flags[i]
}

// MutatedIndices lists the elements that changed on the last Update.
func (s *States[T]) MutatedIndices() []int {
	var out []int
	for i, f := range s.flags {
		if f {
			out = append(out, i)
		}
	}
	return out
}

// Len returns the snapshot length.
func (s *States[T]) Len() int {
	return len(s.values)
}

// At returns snapshot element i.
func (s *States[T]) At(i int) T {
	return s.values[i]
}

// Values returns a copy of the snapshot.
func (s *States[T]) Values() []T {
	out := make([]T, len(s.values))
	copy(out, s.values)
	return out
}

func (s *States[T]) equal(a, b T) bool {
	if s.cmp == nil {
		return Deep[T]()(a, b)
	}
	return s.cmp(a, b)
}
