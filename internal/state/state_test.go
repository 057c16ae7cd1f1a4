package state

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestState_FirstUpdateReportsChange(t *testing.T) {
	var s State[int]
	assert.False(t, s.IsMutated())
	assert.True(t, s.Update(0), "first update always differs")
	assert.False(t, s.Update(0))
	assert.True(t, s.Update(1))
	assert.Equal(t, 1, s.Value())
}

func TestState_SnapshotFollowsLastValue(t *testing.T) {
	s := NewState(Equal[string]())
	s.Update("a")
	s.Update("b")
	assert.False(t, s.Update("b"), "compares against the previous frame, not the first")
	assert.True(t, s.Update("a"))
}

func TestState_ApproxComparator(t *testing.T) {
	s := NewState(ApproxArray3[float32](1e-4))
	s.Update([3]float32{0.5, 0.25, 1})

	assert.False(t, s.Update([3]float32{0.50001, 0.25, 1}))
	assert.True(t, s.Update([3]float32{0.6, 0.25, 1}))
}

func TestState_Reset(t *testing.T) {
	var s State[float64]
	s.Update(2)
	s.Reset()
	assert.Equal(t, 0.0, s.Value())
	assert.True(t, s.Update(2))
}

func TestStates_ElementWise(t *testing.T) {
	var s States[int]
	assert.True(t, s.Update([]int{1, 2, 3}))
	assert.Equal(t, []int{0, 1, 2}, s.MutatedIndices())

	assert.True(t, s.Update([]int{1, 5, 3}))
	assert.Equal(t, []int{1}, s.MutatedIndices())
	assert.False(t, s.IsResized())

	assert.False(t, s.Update([]int{1, 5, 3}))
	assert.Empty(t, s.MutatedIndices())
}

func TestStates_Grow(t *testing.T) {
	var s States[int]
	s.Update([]int{1, 2, 3})

	assert.True(t, s.Update([]int{1, 9, 3, 4, 5}))
	assert.True(t, s.IsResized())
	assert.False(t, s.IsMutatedAt(0))
	assert.True(t, s.IsMutatedAt(1))
	assert.False(t, s.IsMutatedAt(2))
	assert.True(t, s.IsMutatedAt(3), "appended entries report as changed")
	assert.True(t, s.IsMutatedAt(4))
	assert.Equal(t, 5, s.Len())
}

func TestStates_Shrink(t *testing.T) {
	var s States[int]
	s.Update([]int{1, 2, 3, 4, 5})

	assert.NotPanics(t, func() { s.Update([]int{1, 2, 3}) })
	assert.True(t, s.IsMutated(), "shrinking is a change")
	assert.True(t, s.IsResized())
	assert.Empty(t, s.MutatedIndices())
	assert.Equal(t, []int{1, 2, 3}, s.Values())
	assert.False(t, s.IsMutatedAt(4))

	assert.False(t, s.Update([]int{1, 2, 3}))
}

func TestStates_SnapshotIsCopied(t *testing.T) {
	var s States[float32]
	s.SetComparator(Approx[float32](1e-6))
	in := []float32{1, 2}
	s.Update(in)

	in[0] = 7
	assert.True(t, s.Update(in), "in-place edits of the input must still be detected")
	assert.Equal(t, float32(7), s.At(0))
}

func TestAny(t *testing.T) {
	var a State[int]
	var b States[int]
	a.Update(1)
	b.Update([]int{1})
	assert.True(t, Any(&a, &b))

	a.Update(1)
	b.Update([]int{1})
	assert.False(t, Any(&a, &b))
}

func TestApprox(t *testing.T) {
	tests := []struct {
		name string
		a, b float64
		eps  float64
		want bool
	}{
		{"exact", 1, 1, 0, true},
		{"absolute", 0, 1e-7, 1e-6, true},
		{"relative", 1e6, 1e6 + 0.5, 1e-6, true},
		{"different", 1, 1.1, 1e-6, false},
		{"nan", math.NaN(), math.NaN(), 1e-6, true},
		{"nan vs number", math.NaN(), 1, 1e-6, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Approx(tt.eps)(tt.a, tt.b))
		})
	}
}

func TestApproxSlice_LengthMismatch(t *testing.T) {
	assert.False(t, ApproxSlice[float64](DefaultEpsilon)([]float64{1}, []float64{1, 2}))
	assert.True(t, ApproxArray4[float64](DefaultEpsilon)([4]float64{1, 2, 3, 4}, [4]float64{1, 2, 3, 4}))
}
