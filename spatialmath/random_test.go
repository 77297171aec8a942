package spatialmath

import (
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"
)

func TestUniformOrientation(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	var meanZ r3.Vector
	n := 4000
	for i := 0; i < n; i++ {
		q := UniformOrientation(rng).Quaternion()
		test.That(t, quat.Abs(q), test.ShouldAlmostEqual, 1)
		meanZ = meanZ.Add(RotateVector(q, r3.Vector{Z: 1}))
	}
	// rotated axes are spread over the whole sphere
	test.That(t, meanZ.Mul(1/float64(n)).Norm(), test.ShouldBeLessThan, 0.1)
}

func TestPerturbOrientation(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	base := UniformOrientation(rng)

	t.Run("zero deviation is identity", func(t *testing.T) {
		test.That(t, OrientationAlmostEqual(PerturbOrientation(rng, base, 0), base), test.ShouldBeTrue)
	})

	t.Run("small deviation stays close", func(t *testing.T) {
		for i := 0; i < 100; i++ {
			p := PerturbOrientation(rng, base, 0.01)
			test.That(t, QuatAngle(p.Quaternion(), base.Quaternion()), test.ShouldBeLessThan, 0.1)
		}
	})
}

func TestPerturbPose(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	p := NewPose(r3.Vector{X: 100}, NewZeroOrientation())
	var sum float64
	n := 2000
	for i := 0; i < n; i++ {
		d := PerturbPose(rng, p, 2, 0).Point().Sub(p.Point())
		sum += d.X * d.X
	}
	test.That(t, math.Sqrt(sum/float64(n)), test.ShouldAlmostEqual, 2, 0.2)
}
