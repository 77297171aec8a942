package pointcloud

import (
	"math/rand"
	"testing"

	"go.viam.com/test"
)

func TestSampleIndices(t *testing.T) {
	m := makeGrid(10, 1)
	rng := rand.New(rand.NewSource(4))

	t.Run("no duplicates", func(t *testing.T) {
		idx := m.SampleIndices(rng, 40)
		test.That(t, len(idx), test.ShouldEqual, 40)
		seen := map[int]bool{}
		for _, i := range idx {
			test.That(t, seen[i], test.ShouldBeFalse)
			test.That(t, i, test.ShouldBeGreaterThanOrEqualTo, 0)
			test.That(t, i, test.ShouldBeLessThan, 100)
			seen[i] = true
		}
	})

	t.Run("capped at model size", func(t *testing.T) {
		idx := m.SampleIndices(rng, 1000)
		test.That(t, len(idx), test.ShouldEqual, 100)
		test.That(t, m.Sample(rng, 1000).Size(), test.ShouldEqual, 100)
	})

	t.Run("empty request", func(t *testing.T) {
		test.That(t, m.SampleIndices(rng, 0), test.ShouldBeEmpty)
	})

	t.Run("weights bias the draw", func(t *testing.T) {
		weighted := makeGrid(10, 1)
		for i := range weighted.kernels {
			weighted.kernels[i].Weight = 0.01
		}
		weighted.kernels[7].Weight = 100
		hits := 0
		for trial := 0; trial < 200; trial++ {
			for _, i := range weighted.SampleIndices(rng, 1) {
				if i == 7 {
					hits++
				}
			}
		}
		test.That(t, hits, test.ShouldBeGreaterThan, 180)
	})

	t.Run("zero weight kernels come last", func(t *testing.T) {
		weighted := makeGrid(3, 1)
		for i := range weighted.kernels {
			weighted.kernels[i].Weight = 0
		}
		weighted.kernels[2].Weight = 1
		test.That(t, weighted.SampleIndices(rng, 1), test.ShouldResemble, []int{2})
	})
}
