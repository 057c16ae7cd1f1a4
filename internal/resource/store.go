package resource

import (
	"fmt"
	"io"
	"sort"
)

// Global is the reserved namespace for resources visible to every task.
const Global = "global"

// entry is a single stored value and its mutation metadata.
type entry struct {
	value any // always a *T
	stamp uint64
}

// Store maps (namespace, key) pairs to type-erased values.
//
// INVARIANTS:
//   - a key is unique within its namespace
//   - entry.value is never nil
//   - tick >= since
type Store struct {
	spaces map[string]map[string]*entry

	tick  uint64 // stamp applied to writes
	since uint64 // first tick of the current mutation window
}

// New creates an empty store. The first mutation window starts immediately,
// so values written before the first frame read as mutated during it.
func New() *Store {
	return &Store{
		spaces: make(map[string]map[string]*entry),
		tick:   1,
		since:  1,
	}
}

// BeginFrame opens a new mutation window. Anything stamped before the
// current tick stops reading as mutated.
func (s *Store) BeginFrame() {
	s.since = s.tick
}

// EndFrame closes the frame. Writes after this point are attributed to the
// next window.
func (s *Store) EndFrame() {
	s.tick++
}

// Tick returns the stamp applied to writes right now.
func (s *Store) Tick() uint64 {
	return s.tick
}

// Has reports whether (ns, key) holds a value. It never fails.
func (s *Store) Has(ns, key string) bool {
	_, ok := s.lookup(ns, key)
	return ok
}

// IsMutated reports whether (ns, key) was written inside the current
// mutation window. Absent keys are never mutated.
func (s *Store) IsMutated(ns, key string) bool {
	e, ok := s.lookup(ns, key)
	return ok && e.stamp >= s.since
}

// Touch marks an existing value as mutated without replacing it.
func (s *Store) Touch(ns, key string) error {
	e, ok := s.lookup(ns, key)
	if !ok {
		return notFound(ns, key)
	}
	e.stamp = s.tick
	return nil
}

// TypeName returns the dynamic type of the stored value, e.g. "int".
func (s *Store) TypeName(ns, key string) (string, error) {
	e, ok := s.lookup(ns, key)
	if !ok {
		return "", notFound(ns, key)
	}
	return typeName(e.value), nil
}

// Value returns the stored value as a pointer in an interface, for callers
// that only need to inspect it (trace output, debugging).
func (s *Store) Value(ns, key string) (any, error) {
	e, ok := s.lookup(ns, key)
	if !ok {
		return nil, notFound(ns, key)
	}
	return e.value, nil
}

// Delete removes a single value immediately. Values implementing io.Closer
// are closed. Returns false if nothing was stored.
func (s *Store) Delete(ns, key string) bool {
	space, ok := s.spaces[ns]
	if !ok {
		return false
	}
	e, ok := space[key]
	if !ok {
		return false
	}
	release(e.value)
	delete(space, key)
	if len(space) == 0 {
		delete(s.spaces, ns)
	}
	return true
}

// DeleteNamespace removes every value owned by ns and returns how many
// were removed.
func (s *Store) DeleteNamespace(ns string) int {
	space, ok := s.spaces[ns]
	if !ok {
		return 0
	}
	for _, key := range sortedKeys(space) {
		release(space[key].value)
	}
	delete(s.spaces, ns)
	return len(space)
}

// Namespaces returns every namespace that owns at least one value, sorted.
func (s *Store) Namespaces() []string {
	out := make([]string, 0, len(s.spaces))
	for ns := range s.spaces {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// Keys returns the keys stored under ns, sorted.
func (s *Store) Keys(ns string) []string {
	return sortedKeys(s.spaces[ns])
}

// Len returns the total number of stored values.
func (s *Store) Len() int {
	n := 0
	for _, space := range s.spaces {
		n += len(space)
	}
	return n
}

// Ref identifies a stored value.
type Ref struct {
	Namespace string
	Key       string
	Type      string
}

// Mutated lists every value written inside the current mutation window,
// ordered by namespace then key.
func (s *Store) Mutated() []Ref {
	var out []Ref
	for _, ns := range s.Namespaces() {
		space := s.spaces[ns]
		for _, key := range sortedKeys(space) {
			e := space[key]
			if e.stamp >= s.since {
				out = append(out, Ref{Namespace: ns, Key: key, Type: typeName(e.value)})
			}
		}
	}
	return out
}

func (s *Store) lookup(ns, key string) (*entry, bool) {
	space, ok := s.spaces[ns]
	if !ok {
		return nil, false
	}
	e, ok := space[key]
	return e, ok
}

// put stores value under (ns, key), replacing and releasing any previous value.
func (s *Store) put(ns, key string, value any) {
	space, ok := s.spaces[ns]
	if !ok {
		space = make(map[string]*entry)
		s.spaces[ns] = space
	}
	if old, ok := space[key]; ok {
		release(old.value)
	}
	space[key] = &entry{value: value, stamp: s.tick}
}

func release(v any) {
	if c, ok := v.(io.Closer); ok {
		_ = c.Close()
	}
}

func typeName(v any) string {
	// Entries hold *T; report T.
	name := fmt.Sprintf("%T", v)
	if len(name) > 0 && name[0] == '*' {
		return name[1:]
	}
	return name
}

func sortedKeys(space map[string]*entry) []string {
	keys := make([]string, 0, len(space))
	for k := range space {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
