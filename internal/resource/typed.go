package resource

// Emplace stores v under (ns, key) in a freshly allocated slot and marks it
// mutated. A previous value under the same key is dropped (and closed if it
// implements io.Closer), whatever its type.
func Emplace[T any](s *Store, ns, key string, v T) *T {
	p := new(T)
	*p = v
	s.put(ns, key, p)
	return p
}

// Insert assigns v to the existing slot when it already holds a T, keeping
// pointers to it valid, and otherwise behaves like Emplace. Either way the
// value is marked mutated.
func Insert[T any](s *Store, ns, key string, v T) *T {
	if e, ok := s.lookup(ns, key); ok {
		if p, ok := e.value.(*T); ok {
			*p = v
			e.stamp = s.tick
			return p
		}
	}
	return Emplace(s, ns, key, v)
}

// Get returns a pointer to the value stored under (ns, key). It does not
// mark the value mutated; use Write for that.
func Get[T any](s *Store, ns, key string) (*T, error) {
	e, ok := s.lookup(ns, key)
	if !ok {
		return nil, notFound(ns, key)
	}
	p, ok := e.value.(*T)
	if !ok {
		return nil, &Error{
			Code:      ErrCodeTypeMismatch,
			Namespace: ns,
			Key:       key,
			Want:      typeName(p),
			Got:       typeName(e.value),
		}
	}
	return p, nil
}

// Write returns a pointer to the stored value and marks it mutated.
func Write[T any](s *Store, ns, key string) (*T, error) {
	p, err := Get[T](s, ns, key)
	if err != nil {
		return nil, err
	}
	s.spaces[ns][key].stamp = s.tick
	return p, nil
}
