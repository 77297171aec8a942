package pointcloud

import (
	"math/rand"
	"sort"
	"testing"

	"go.viam.com/test"

	"go.viam.com/posematch/spatialmath"
)

func randomModel(rng *rand.Rand, n int, spread float64) *Model {
	m := NewWithPrealloc(R3, n)
	for i := 0; i < n; i++ {
		m.Add(NewKernel(spatialmath.GaussianVector(rng, spread)))
	}
	return m
}

func TestKDTreeWithinMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	m := randomModel(rng, 500, 10)

	for trial := 0; trial < 20; trial++ {
		q := spatialmath.GaussianVector(rng, 10)
		radius := 1 + rng.Float64()*5

		var brute []int
		m.Within(q, radius, func(i int) { brute = append(brute, i) })
		test.That(t, m.HasKDTree(), test.ShouldBeFalse)

		m.BuildKDTree()
		var indexed []int
		m.Within(q, radius, func(i int) { indexed = append(indexed, i) })
		m.invalidate()

		sort.Ints(brute)
		sort.Ints(indexed)
		test.That(t, len(indexed), test.ShouldEqual, len(brute))
		if len(brute) > 0 {
			test.That(t, indexed, test.ShouldResemble, brute)
		}
	}
}

func TestKDTreeNearest(t *testing.T) {
	m := makeGrid(5, 1)
	nbrs := m.Nearest(NewVector(2.1, 2, 0), 3)
	test.That(t, len(nbrs), test.ShouldEqual, 3)
	// closest first
	test.That(t, m.At(nbrs[0]).Loc, test.ShouldResemble, NewVector(2, 2, 0))
	test.That(t, m.At(nbrs[1]).Loc, test.ShouldResemble, NewVector(3, 2, 0))

	t.Run("more neighbours than points", func(t *testing.T) {
		small := makeGrid(1, 1)
		test.That(t, small.Nearest(NewVector(0, 0, 0), 4), test.ShouldResemble, []int{0})
	})
}
