package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSparseMatrixCache(t *testing.T) {
	// Duplicate accumulation, mapping capture and value reset between cycles
	{
		var c SparseMatrixCache
		c.Init(3)
		c.AddValue(0, 0, 5)
		c.AddValue(0, 0, 3)
		m := c.GetMatrix(true)
		assert.Equal(t, 8.0, m.At(0, 0))
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				if i != 0 || j != 0 {
					assert.Equal(t, 0.0, m.At(i, j))
				}
			}
		}
		assert.True(t, c.Mapped())

		// The next cycle starts from zero with the pattern retained
		c.AddValue(0, 0, 2)
		m = c.GetMatrix(true)
		assert.Equal(t, 2.0, m.At(0, 0))
	}
	// Mapped accumulation reproduces a fresh triplet accumulation
	{
		add := func(c *SparseMatrixCache) {
			c.AddValue(0, 1, 1.5)
			c.AddValue(1, 0, -2)
			c.AddValue(1, 1, 4)
			c.AddValue(1, 1, 0.5)
			c.AddValue(3, 2, 7)
		}
		var mappedC, fresh SparseMatrixCache
		mappedC.Init(4)
		add(&mappedC)
		mappedC.GetMatrix(true) // freeze the pattern, discard this cycle
		add(&mappedC)
		got := mappedC.GetMatrix(true)

		fresh.Init(4)
		add(&fresh)
		want := fresh.GetMatrix(false)
		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				assert.InDelta(t, want.At(i, j), got.At(i, j), 1.e-15)
			}
		}
	}
	// A contribution outside the frozen pattern is a programming error
	{
		var c SparseMatrixCache
		c.Init(3)
		c.AddValue(0, 0, 1)
		c.GetMatrix(true)
		assert.Panics(t, func() { c.AddValue(1, 2, 1) })
	}
	// Size change after mapping is a programming error
	{
		var c SparseMatrixCache
		c.Init(3)
		c.AddValue(2, 2, 1)
		c.GetMatrix(true)
		assert.Panics(t, func() { c.Init(4) })
		c.Init(3) // same size stays legal
	}
	// SetZero clears values, keeps the pattern
	{
		var c SparseMatrixCache
		c.Init(2)
		c.AddValue(0, 1, 3)
		c.GetMatrix(true)
		c.AddValue(0, 1, 5)
		c.SetZero()
		c.AddValue(0, 1, 1)
		assert.Equal(t, 1.0, c.GetMatrix(true).At(0, 1))
	}
}

func TestSparseMatrixCacheMerge(t *testing.T) {
	// Per-worker partial assemblies seeded from a mapped template merge to
	// the same matrix as a serial accumulation
	{
		var template SparseMatrixCache
		template.Init(3)
		template.AddValue(0, 0, 0)
		template.AddValue(1, 1, 0)
		template.AddValue(1, 2, 0)
		template.GetMatrix(true)

		var w1, w2 SparseMatrixCache
		w1.InitFrom(&template)
		w2.InitFrom(&template)
		w1.AddValue(0, 0, 1)
		w1.AddValue(1, 2, 2)
		w2.AddValue(1, 1, 3)
		w2.AddValue(1, 2, 4)

		template.AddTo(&w1)
		template.AddTo(&w2)
		m := template.GetMatrix(true)
		assert.Equal(t, 1.0, m.At(0, 0))
		assert.Equal(t, 3.0, m.At(1, 1))
		assert.Equal(t, 6.0, m.At(1, 2))
	}
	// Add of two mapped caches carries the receiver's mapping
	{
		var template, a, b SparseMatrixCache
		template.Init(2)
		template.AddValue(0, 1, 0)
		template.GetMatrix(true)
		a.InitFrom(&template)
		b.InitFrom(&template)
		a.AddValue(0, 1, 2)
		b.AddValue(0, 1, 5)
		sum := a.Add(&b)
		assert.True(t, sum.Mapped())
		assert.Equal(t, 7.0, sum.GetMatrix(true).At(0, 1))
	}
	// Fallback path: one operand still in triplet mode
	{
		var a, b SparseMatrixCache
		a.Init(2)
		b.Init(2)
		a.AddValue(0, 0, 1)
		a.AddValue(1, 1, 2)
		b.AddValue(1, 1, 10)
		sum := a.Add(&b)
		assert.False(t, sum.Mapped())
		m := sum.GetMatrix(false)
		assert.Equal(t, 1.0, m.At(0, 0))
		assert.Equal(t, 12.0, m.At(1, 1))
	}
	// Mismatched mappings are a programming error
	{
		var a, b SparseMatrixCache
		a.Init(2)
		b.Init(2)
		a.AddValue(0, 0, 1)
		b.AddValue(0, 0, 1)
		b.AddValue(1, 1, 1)
		a.GetMatrix(true)
		b.GetMatrix(true)
		assert.Panics(t, func() { a.Add(&b) })
	}
}

func TestCompressTriplets(t *testing.T) {
	m := CompressTriplets(3, []Triplet{
		{2, 0, 1},
		{0, 2, 4},
		{2, 0, 2},
		{1, 1, -1},
	})
	assert.Equal(t, 3.0, m.At(2, 0))
	assert.Equal(t, 4.0, m.At(0, 2))
	assert.Equal(t, -1.0, m.At(1, 1))
	assert.Equal(t, 0.0, m.At(0, 0))
}

func TestCSRHelpers(t *testing.T) {
	m := CompressTriplets(3, []Triplet{
		{0, 0, 2}, {0, 2, 1}, {1, 1, 3}, {2, 0, -1},
	})
	y := CSRMulVec(m, []float64{1, 2, 3})
	assert.InDeltaSlice(t, []float64{5, 6, -1}, y, 1.e-15)

	d := CSRToDense(m)
	assert.Equal(t, 2.0, d.At(0, 0))
	assert.Equal(t, 1.0, d.At(0, 2))
	assert.Equal(t, 0.0, d.At(2, 2))

	ts := CSRTriplets(m)
	assert.Len(t, ts, 4)
}
