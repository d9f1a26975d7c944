package chance

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShuffleIsAPermutation(t *testing.T) {
	src := New(7)
	in := []int{1, 2, 3, 4, 5, 6, 7, 8, 9}
	out := append([]int(nil), in...)
	Shuffle(src, out)

	sorted := append([]int(nil), out...)
	sort.Ints(sorted)
	assert.Equal(t, in, sorted)
}

func TestSameSeedSameOrder(t *testing.T) {
	a := []string{"a", "b", "c", "d", "e", "f"}
	b := append([]string(nil), a...)
	Shuffle(New(42), a)
	Shuffle(New(42), b)
	assert.Equal(t, a, b)
}

func TestShuffleCanMoveLastElementToFront(t *testing.T) {
	// Every position must be reachable, including index 0 and 1.
	seen := map[int]bool{}
	for seed := int64(1); seed < 200; seed++ {
		s := []int{0, 1, 2}
		Shuffle(New(seed), s)
		seen[s[0]] = true
	}
	require.Len(t, seen, 3)
}

func TestSample(t *testing.T) {
	src := New(3)
	for i := 0; i < 50; i++ {
		v := Sample(src, []int{4, 5, 6})
		assert.Contains(t, []int{4, 5, 6}, v)
	}
}
