package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

const floatEpsilon = 1e-6

// PlaneNormal returns the unit normal of the plane through three points, following the right hand rule.
// Collinear points yield the zero vector.
func PlaneNormal(p0, p1, p2 r3.Vector) r3.Vector {
	n := p1.Sub(p0).Cross(p2.Sub(p0))
	if n.Norm2() == 0 {
		return r3.Vector{}
	}
	return n.Normalize()
}

// ClosestPointSegmentPoint takes a line segment defined by two points and a third point, and returns the
// closest point on the segment to the third point.
func ClosestPointSegmentPoint(segA, segB, pt r3.Vector) r3.Vector {
	ab := segB.Sub(segA)
	denom := ab.Norm2()
	if denom == 0 {
		return segA
	}
	t := math.Max(0, math.Min(1, pt.Sub(segA).Dot(ab)/denom))
	return segA.Add(ab.Mul(t))
}

// R3VectorAlmostEqual compares two r3.Vector objects and returns if the all elementwise differences are less than epsilon.
func R3VectorAlmostEqual(a, b r3.Vector, epsilon float64) bool {
	return math.Abs(a.X-b.X) < epsilon && math.Abs(a.Y-b.Y) < epsilon && math.Abs(a.Z-b.Z) < epsilon
}

