package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartitionMap(t *testing.T) {
	// Buckets tile the range with a maximum imbalance of one
	for _, tc := range [][2]int{{4, 100}, {3, 10}, {7, 5}, {1, 13}} {
		np, n := tc[0], tc[1]
		pm := NewPartitionMap(np, n)
		prev := 0
		for w := 0; w < np; w++ {
			kMin, kMax := pm.GetBucketRange(w)
			assert.Equal(t, prev, kMin)
			assert.LessOrEqual(t, kMin, kMax)
			assert.LessOrEqual(t, pm.GetBucketDimension(w), n/np+1)
			prev = kMax
		}
		assert.Equal(t, n, prev)
	}
}

func TestIndex(t *testing.T) {
	I := NewRange(2, 5)
	assert.Equal(t, Index{2, 3, 4, 5}, I)
	assert.True(t, I.IsSortedStrict())
	assert.True(t, I.Contains(4))
	assert.False(t, I.Contains(6))
	assert.False(t, Index{1, 1, 2}.IsSortedStrict())
}
