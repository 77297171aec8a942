package pointcloud

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestComputeNormals(t *testing.T) {
	t.Run("plane", func(t *testing.T) {
		m := makeGrid(6, 1)
		test.That(t, m.ComputeNormals(DefaultNormalNeighbors), test.ShouldBeNil)
		test.That(t, m.Domain(), test.ShouldEqual, R3xS2)
		for _, k := range m.Kernels() {
			test.That(t, math.Abs(k.Dir.Z), test.ShouldAlmostEqual, 1, 1e-6)
		}
	})

	t.Run("only for r3 models", func(t *testing.T) {
		m := New(SE3)
		err := m.ComputeNormals(DefaultNormalNeighbors)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "se3")
	})

	t.Run("too few points", func(t *testing.T) {
		m := makeGrid(1, 1)
		test.That(t, m.ComputeNormals(DefaultNormalNeighbors), test.ShouldNotBeNil)
		test.That(t, m.Domain(), test.ShouldEqual, R3)
	})
}
