package utils

import (
	"fmt"
	"sort"

	"github.com/james-bowman/sparse"
)

// Triplet is a single (row, col, value) contribution bound for a sparse matrix.
type Triplet struct {
	I, J int
	V    float64
}

type cacheMode uint8

const (
	// unmapped: contributions are buffered as triplets, pattern unknown
	unmapped cacheMode = iota
	// mapped: pattern is frozen, values accumulate into a flat array
	mapped
)

// slot pairs a column index with its offset into the flat values array.
type slot struct {
	col, offset int
}

// SparseMatrixCache accumulates scattered (row, col, value) contributions into
// a square sparse matrix. It starts in triplet mode, buffering raw
// contributions. The first GetMatrix(true) freezes the sparsity pattern; from
// then on the cache runs in mapped mode, where repeated assemblies reuse the
// index arrays and only refresh the values. Entering mapped mode is a one-way
// transition for the lifetime of the cache.
//
// The zero value is an empty triplet-mode cache of size 0; call Init or
// InitFrom before use.
type SparseMatrixCache struct {
	mode    cacheMode
	size    int
	entries []Triplet   // triplet mode: pending contributions
	mat     *sparse.CSR // triplet mode: compressed contributions after Prune

	outerIndex []int     // mapped: row start offsets, len size+1
	innerIndex []int     // mapped: column index per stored value
	values     []float64 // mapped: accumulated values, len nnz
	mapping    [][]slot  // mapped: per-row column -> flat offset lookup
}

// Init sizes the cache for a size x size matrix. Once a sparsity mapping has
// been computed the size is fixed; calling Init with a different size is a
// programming error.
func (c *SparseMatrixCache) Init(size int) {
	if c.mode == mapped {
		if c.size != size {
			panic(fmt.Errorf("sparse cache: size change after mapping, have %d, want %d", c.size, size))
		}
		return
	}
	c.size = size
	c.entries = c.entries[:0]
	c.mat = nil
}

// InitFrom copies another cache's size and sparsity mapping, zero-filling its
// own values. It is the seam for per-worker partial assemblies: each worker
// owns a same-shaped accumulator and the partials are merged with AddTo.
func (c *SparseMatrixCache) InitFrom(other *SparseMatrixCache) {
	c.size = other.size
	c.mode = other.mode
	c.entries = nil
	c.mat = nil
	// The index arrays are immutable once the mapping exists, so they are
	// shared rather than copied.
	c.outerIndex = other.outerIndex
	c.innerIndex = other.innerIndex
	c.mapping = other.mapping
	c.values = make([]float64, len(other.values))
}

// Size returns the matrix dimension the cache was initialized with.
func (c *SparseMatrixCache) Size() int { return c.size }

// Mapped reports whether the sparsity pattern has been frozen.
func (c *SparseMatrixCache) Mapped() bool { return c.mode == mapped }

// AddValue accumulates a scalar contribution at (i, j). In triplet mode the
// contribution is appended to the pending list. In mapped mode the fixed
// neighbor list for row i is scanned for column j and the value is added in
// place; a contribution outside the frozen pattern is a programming error.
func (c *SparseMatrixCache) AddValue(i, j int, v float64) {
	if c.mode == unmapped {
		c.entries = append(c.entries, Triplet{i, j, v})
		return
	}
	for _, s := range c.mapping[i] {
		if s.col == j {
			c.values[s.offset] += v
			return
		}
	}
	panic(fmt.Errorf("sparse cache: no slot for entry (%d,%d), pattern is frozen", i, j))
}

// SetZero resets all accumulated values without discarding the sparsity
// pattern.
func (c *SparseMatrixCache) SetZero() {
	c.entries = c.entries[:0]
	c.mat = nil
	for i := range c.values {
		c.values[i] = 0
	}
}

// Prune materializes pending triplet contributions into the compressed
// matrix, summing duplicates, and clears the triplet list. No-op in mapped
// mode.
func (c *SparseMatrixCache) Prune() {
	if c.mode == mapped {
		return
	}
	if len(c.entries) == 0 {
		if c.mat == nil {
			c.mat = emptyCSR(c.size)
		}
		return
	}
	t := CompressTriplets(c.size, c.entries)
	c.entries = c.entries[:0]
	if c.mat == nil {
		c.mat = t
	} else {
		c.mat = csrAdd(c.mat, t)
	}
}

// GetMatrix returns the accumulated matrix and leaves the cache zero-valued
// for the next accumulation cycle. In triplet mode it prunes first and, when
// computeMapping is set, derives the compressed sparsity pattern so that all
// subsequent calls run in mapped mode. In mapped mode the matrix is
// reconstructed directly from the stored index and value arrays. The returned
// matrix is the caller's to keep.
func (c *SparseMatrixCache) GetMatrix(computeMapping bool) (m *sparse.CSR) {
	if c.mode == unmapped {
		c.Prune()
		m = c.mat
		c.mat = nil
		if computeMapping {
			raw := m.RawMatrix()
			c.outerIndex = append([]int(nil), raw.Indptr...)
			c.innerIndex = append([]int(nil), raw.Ind...)
			c.values = make([]float64, len(raw.Data))
			c.mapping = make([][]slot, c.size)
			for i := 0; i < c.size; i++ {
				for off := c.outerIndex[i]; off < c.outerIndex[i+1]; off++ {
					c.mapping[i] = append(c.mapping[i], slot{c.innerIndex[off], off})
				}
			}
			c.mode = mapped
		}
		return
	}
	m = sparse.NewCSR(c.size, c.size,
		append([]int(nil), c.outerIndex...),
		append([]int(nil), c.innerIndex...),
		append([]float64(nil), c.values...))
	for i := range c.values {
		c.values[i] = 0
	}
	return
}

// Add returns a new cache holding the elementwise sum of the two caches'
// values. When both caches are mapped they must share the same sparsity
// mapping and the result carries the receiver's mapping. If either cache is
// still in triplet mode the compressed matrices are added directly and the
// result is an unmapped cache (the fallback path, more costly).
func (c *SparseMatrixCache) Add(other *SparseMatrixCache) (out *SparseMatrixCache) {
	out = &SparseMatrixCache{}
	if c.mode == mapped && other.mode == mapped {
		if c.size != other.size || len(c.values) != len(other.values) {
			panic("sparse cache: mismatched sparsity mappings in Add")
		}
		out.InitFrom(c)
		for i := range c.values {
			out.values[i] = c.values[i] + other.values[i]
		}
		return
	}
	out.size = c.size
	out.mat = csrAdd(c.compressed(), other.compressed())
	return
}

// AddTo merges another cache's values into the receiver in place. Both caches
// must either share a sparsity mapping or the receiver must still be in
// triplet mode.
func (c *SparseMatrixCache) AddTo(other *SparseMatrixCache) {
	if c.mode == mapped {
		if other.mode != mapped {
			panic("sparse cache: cannot merge an unmapped cache into a mapped cache")
		}
		if c.size != other.size || len(c.values) != len(other.values) {
			panic("sparse cache: mismatched sparsity mappings in AddTo")
		}
		for i, v := range other.values {
			c.values[i] += v
		}
		return
	}
	c.Prune()
	c.mat = csrAdd(c.mat, other.compressed())
}

// compressed returns the cache's current contents as a CSR without resetting
// any values. Read-only view in mapped mode.
func (c *SparseMatrixCache) compressed() *sparse.CSR {
	if c.mode == unmapped {
		c.Prune()
		return c.mat
	}
	return sparse.NewCSR(c.size, c.size, c.outerIndex, c.innerIndex, c.values)
}

// CompressTriplets sorts triplets row-major, sums duplicate (row, col)
// entries, and emits the compressed matrix.
func CompressTriplets(size int, entries []Triplet) (m *sparse.CSR) {
	var (
		ts           = append([]Triplet(nil), entries...)
		ia           = make([]int, size+1)
		ja           = make([]int, 0, len(ts))
		vals         = make([]float64, 0, len(ts))
		prevI, prevJ = -1, -1
	)
	sort.Slice(ts, func(a, b int) bool {
		if ts[a].I != ts[b].I {
			return ts[a].I < ts[b].I
		}
		return ts[a].J < ts[b].J
	})
	for _, t := range ts {
		if t.I < 0 || t.I >= size || t.J < 0 || t.J >= size {
			panic(fmt.Errorf("sparse cache: triplet (%d,%d) out of bounds for size %d", t.I, t.J, size))
		}
		if t.I == prevI && t.J == prevJ {
			vals[len(vals)-1] += t.V
			continue
		}
		ja = append(ja, t.J)
		vals = append(vals, t.V)
		ia[t.I+1]++
		prevI, prevJ = t.I, t.J
	}
	for i := 0; i < size; i++ {
		ia[i+1] += ia[i]
	}
	return sparse.NewCSR(size, size, ia, ja, vals)
}

func emptyCSR(size int) *sparse.CSR {
	return sparse.NewCSR(size, size, make([]int, size+1), []int{}, []float64{})
}

// csrAdd returns the elementwise sum of two CSR matrices by merging their
// sorted rows.
func csrAdd(a, b *sparse.CSR) (m *sparse.CSR) {
	var (
		ra, rb = a.RawMatrix(), b.RawMatrix()
	)
	if ra.I != rb.I || ra.J != rb.J {
		panic(fmt.Errorf("sparse cache: dimension mismatch in add, %dx%d vs %dx%d", ra.I, ra.J, rb.I, rb.J))
	}
	var (
		ia   = make([]int, ra.I+1)
		ja   = make([]int, 0, len(ra.Ind)+len(rb.Ind))
		vals = make([]float64, 0, len(ra.Data)+len(rb.Data))
	)
	for i := 0; i < ra.I; i++ {
		ka, kb := ra.Indptr[i], rb.Indptr[i]
		for ka < ra.Indptr[i+1] || kb < rb.Indptr[i+1] {
			switch {
			case kb >= rb.Indptr[i+1] || (ka < ra.Indptr[i+1] && ra.Ind[ka] < rb.Ind[kb]):
				ja = append(ja, ra.Ind[ka])
				vals = append(vals, ra.Data[ka])
				ka++
			case ka >= ra.Indptr[i+1] || rb.Ind[kb] < ra.Ind[ka]:
				ja = append(ja, rb.Ind[kb])
				vals = append(vals, rb.Data[kb])
				kb++
			default:
				ja = append(ja, ra.Ind[ka])
				vals = append(vals, ra.Data[ka]+rb.Data[kb])
				ka++
				kb++
			}
		}
		ia[i+1] = len(ja)
	}
	return sparse.NewCSR(ra.I, ra.J, ia, ja, vals)
}
