package spatialmath

import (
	"math"
	"math/rand"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// UniformOrientation draws an orientation uniformly from SO(3) using Shoemake's subgroup algorithm.
func UniformOrientation(rng *rand.Rand) Orientation {
	u1, u2, u3 := rng.Float64(), rng.Float64(), rng.Float64()
	a := math.Sqrt(1 - u1)
	b := math.Sqrt(u1)
	return NewQuaternion(quat.Number{
		Real: a * math.Sin(2*math.Pi*u2),
		Imag: a * math.Cos(2*math.Pi*u2),
		Jmag: b * math.Sin(2*math.Pi*u3),
		Kmag: b * math.Cos(2*math.Pi*u3),
	})
}

// GaussianVector draws a vector whose components are independent normals with standard deviation std.
func GaussianVector(rng *rand.Rand, std float64) r3.Vector {
	return r3.Vector{X: rng.NormFloat64() * std, Y: rng.NormFloat64() * std, Z: rng.NormFloat64() * std}
}

// PerturbOrientation rotates o by a small random rotation whose rotation vector has per axis standard
// deviation std radians. The perturbation is applied in the world frame.
func PerturbOrientation(rng *rand.Rand, o Orientation, std float64) Orientation {
	delta := R3ToR4(GaussianVector(rng, std)).ToQuat()
	return NewQuaternion(quat.Mul(delta, o.Quaternion()))
}

// PerturbPose moves p by a Gaussian translation of standard deviation locStd and a rotation perturbation of
// standard deviation oriStd.
func PerturbPose(rng *rand.Rand, p Pose, locStd, oriStd float64) Pose {
	return NewPose(
		p.Point().Add(GaussianVector(rng, locStd)),
		PerturbOrientation(rng, p.Orientation(), oriStd),
	)
}
