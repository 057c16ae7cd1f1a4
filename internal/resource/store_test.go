package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closer struct {
	closed *int
}

func (c *closer) Close() error {
	*c.closed++
	return nil
}

func TestStore_EmplaceAndGet(t *testing.T) {
	s := New()

	p := Emplace(s, "viewport", "size", [2]int{640, 480})
	require.NotNil(t, p)

	got, err := Get[[2]int](s, "viewport", "size")
	require.NoError(t, err)
	assert.Equal(t, [2]int{640, 480}, *got)
	assert.Same(t, p, got, "Get must return the stored slot, not a copy")
	assert.True(t, s.Has("viewport", "size"))
	assert.False(t, s.Has("viewport", "other"))
	assert.False(t, s.Has("other", "size"))
}

func TestStore_GetErrors(t *testing.T) {
	s := New()
	Emplace(s, Global, "count", 3)

	_, err := Get[int](s, Global, "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsTypeMismatch(err))

	_, err = Get[string](s, Global, "count")
	require.Error(t, err)
	assert.True(t, IsTypeMismatch(err))
	assert.Contains(t, err.Error(), "holds int, requested string")
}

func TestStore_EmplaceReplacesAnyType(t *testing.T) {
	s := New()
	Emplace(s, "t", "k", 1)
	Emplace(s, "t", "k", "one")

	v, err := Get[string](s, "t", "k")
	require.NoError(t, err)
	assert.Equal(t, "one", *v)

	name, err := s.TypeName("t", "k")
	require.NoError(t, err)
	assert.Equal(t, "string", name)
}

func TestStore_InsertKeepsSlot(t *testing.T) {
	s := New()
	p := Emplace(s, "t", "k", 1)
	q := Insert(s, "t", "k", 2)

	assert.Same(t, p, q)
	assert.Equal(t, 2, *p)

	// different type falls back to a fresh slot
	r := Insert(s, "t", "k", "x")
	assert.Equal(t, "x", *r)
}

func TestStore_MutationWindow(t *testing.T) {
	s := New()
	Emplace(s, Global, "x", 1)

	// written before the first frame: mutated during it
	s.BeginFrame()
	assert.True(t, s.IsMutated(Global, "x"))
	s.EndFrame()

	// nobody wrote during frame 2
	s.BeginFrame()
	assert.False(t, s.IsMutated(Global, "x"))

	_, err := Get[int](s, Global, "x")
	require.NoError(t, err)
	assert.False(t, s.IsMutated(Global, "x"), "reads never mark mutation")

	p, err := Write[int](s, Global, "x")
	require.NoError(t, err)
	*p = 2
	assert.True(t, s.IsMutated(Global, "x"))
	s.EndFrame()

	// still observable after the frame, until the next one starts
	assert.True(t, s.IsMutated(Global, "x"))
	s.BeginFrame()
	assert.False(t, s.IsMutated(Global, "x"))
}

func TestStore_WritesBetweenFramesBelongToNextFrame(t *testing.T) {
	s := New()
	s.BeginFrame()
	s.EndFrame()

	Emplace(s, "task", "buffer", []float32{0, 1})
	s.BeginFrame()
	assert.True(t, s.IsMutated("task", "buffer"))
}

func TestStore_Touch(t *testing.T) {
	s := New()
	Emplace(s, "t", "k", 1)
	s.BeginFrame()
	s.EndFrame()
	s.BeginFrame()

	require.NoError(t, s.Touch("t", "k"))
	assert.True(t, s.IsMutated("t", "k"))

	err := s.Touch("t", "nope")
	assert.True(t, IsNotFound(err))
}

func TestStore_DeleteReleasesClosers(t *testing.T) {
	s := New()
	var closed int
	Emplace(s, "t", "a", closer{closed: &closed})
	Emplace(s, "t", "b", closer{closed: &closed})
	Emplace(s, "u", "c", closer{closed: &closed})

	assert.True(t, s.Delete("t", "a"))
	assert.False(t, s.Delete("t", "a"))
	assert.Equal(t, 1, closed)

	assert.Equal(t, 1, s.DeleteNamespace("t"))
	assert.Equal(t, 2, closed)
	assert.Equal(t, []string{"u"}, s.Namespaces())

	// replacing also releases
	Emplace(s, "u", "c", 5)
	assert.Equal(t, 3, closed)
}

func TestStore_Listing(t *testing.T) {
	s := New()
	Emplace(s, "b", "z", 1)
	Emplace(s, "b", "a", "s")
	Emplace(s, "a", "k", true)

	assert.Equal(t, []string{"a", "b"}, s.Namespaces())
	assert.Equal(t, []string{"a", "z"}, s.Keys("b"))
	assert.Empty(t, s.Keys("missing"))
	assert.Equal(t, 3, s.Len())

	s.BeginFrame()
	assert.Equal(t, []Ref{
		{Namespace: "a", Key: "k", Type: "bool"},
		{Namespace: "b", Key: "a", Type: "string"},
		{Namespace: "b", Key: "z", Type: "int"},
	}, s.Mutated())

	s.EndFrame()
	s.BeginFrame()
	assert.Empty(t, s.Mutated())
}

func TestError_Messages(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"not found", &Error{Code: ErrCodeNotFound, Namespace: "a", Key: "b"}, "NOT_FOUND: a/b"},
		{"read only", &Error{Code: ErrCodeReadOnly, Namespace: "a", Key: "b"}, "READ_ONLY: a/b is not writable from this handle"},
		{"mismatch", &Error{Code: ErrCodeTypeMismatch, Namespace: "a", Key: "b", Want: "int", Got: "string"}, "TYPE_MISMATCH: a/b holds string, requested int"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}
