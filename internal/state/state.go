package state

// Mutable is implemented by State and States.
type Mutable interface {
	IsMutated() bool
}

// Any reports whether at least one of the given states changed on its last
// Update. Scene components use it to fold per-field states into one flag.
func Any(states ...Mutable) bool {
	for _, s := range states {
		if s.IsMutated() {
			return true
		}
	}
	return false
}

// State tracks a single value across frames.
//
// The zero value is ready to use and compares with reflect.DeepEqual. The
// snapshot is taken by assignment: for slice or map values use States, or
// pass copies, otherwise in-place edits alias the snapshot.
type State[T any] struct {
	value   T
	cmp     Comparator[T]
	mutated bool
	seen    bool
}

// NewState creates a State using cmp to decide equality.
func NewState[T any](cmp Comparator[T]) *State[T] {
	return &State[T]{cmp: cmp}
}

// SetComparator replaces the equality function. It does not reset the
// snapshot.
func (s *State[T]) SetComparator(cmp Comparator[T]) {
	s.cmp = cmp
}

// Update compares v with the snapshot, stores v as the new snapshot and
// returns whether it differed. The first Update always reports a change.
func (s *State[T]) Update(v T) bool {
	s.mutated = !s.seen || !s.equal(s.value, v)
	s.value = v
	s.seen = true
	return s.mutated
}

// IsMutated returns the result of the last Update.
func (s *State[T]) IsMutated() bool {
	return s.mutated
}

// Value returns the snapshot.
func (s *State[T]) Value() T {
	return s.value
}

// Reset forgets the snapshot; the next Update reports a change.
func (s *State[T]) Reset() {
	var zero T
	s.value = zero
	s.mutated = false
	s.seen = false
}

func (s *State[T]) equal(a, b T) bool {
	if s.cmp == nil {
		return Deep[T]()(a, b)
	}
	return s.cmp(a, b)
}
