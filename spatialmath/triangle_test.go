package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestBasicTriangleFunctions(t *testing.T) {
	expectedPts := []r3.Vector{{X: 0, Y: 0, Z: 0}, {X: 3, Y: 0, Z: 0}, {X: 0, Y: 3, Z: 0}}
	tri := NewTriangle(expectedPts[0], expectedPts[1], expectedPts[2])

	expectedNormal := r3.Vector{X: 0, Y: 0, Z: 1}
	expectedCentroid := r3.Vector{X: 1, Y: 1, Z: 0}

	t.Run("constructor", func(t *testing.T) {
		test.That(t, tri.Points(), test.ShouldResemble, expectedPts)
		// the cross product of the normal with what is expected should result in nothing
		test.That(t, tri.Normal().Cross(expectedNormal), test.ShouldResemble, r3.Vector{})
	})

	t.Run("centroid", func(t *testing.T) {
		test.That(t, tri.Centroid(), test.ShouldResemble, expectedCentroid)
	})

	t.Run("transform", func(t *testing.T) {
		tf := NewPose(r3.Vector{X: 1, Y: 1, Z: 1}, &R4AA{RZ: 1, Theta: math.Pi})
		tri2 := tri.Transform(tf)
		for i := range tri2.Points() {
			test.That(t, R3VectorAlmostEqual(tri2.Points()[i], TransformPoint(tf, expectedPts[i]), 1e-9), test.ShouldBeTrue)
		}
	})

	t.Run("closest inside point", func(t *testing.T) {
		closestPoint, isInside := tri.ClosestInsidePoint(r3.Vector{X: 1, Y: 1, Z: 1})
		test.That(t, R3VectorAlmostEqual(closestPoint, r3.Vector{X: 1, Y: 1, Z: 0}, 1e-9), test.ShouldBeTrue)
		test.That(t, isInside, test.ShouldBeTrue)

		_, isInside = tri.ClosestInsidePoint(r3.Vector{X: 1, Y: -1, Z: 1})
		test.That(t, isInside, test.ShouldBeFalse)
	})

	t.Run("closest point", func(t *testing.T) {
		test.That(t, R3VectorAlmostEqual(tri.ClosestPointToPoint(r3.Vector{X: 1, Y: -1, Z: 1}), r3.Vector{X: 1, Y: 0, Z: 0}, 1e-9), test.ShouldBeTrue)
		test.That(t, tri.ClosestPointToPoint(r3.Vector{X: -1, Y: -1, Z: 0}), test.ShouldResemble, r3.Vector{X: 0, Y: 0, Z: 0})
	})
}

func TestTriangleIntersectRay(t *testing.T) {
	tri := NewTriangle(r3.Vector{X: 0, Y: 0, Z: 0}, r3.Vector{X: 3, Y: 0, Z: 0}, r3.Vector{X: 0, Y: 3, Z: 0})

	t.Run("hit from above", func(t *testing.T) {
		dist, hit := tri.IntersectRay(r3.Vector{X: 1, Y: 1, Z: 5}, r3.Vector{X: 0, Y: 0, Z: -1})
		test.That(t, hit, test.ShouldBeTrue)
		test.That(t, dist, test.ShouldAlmostEqual, 5)
	})

	t.Run("hit from below", func(t *testing.T) {
		dist, hit := tri.IntersectRay(r3.Vector{X: 1, Y: 1, Z: -2}, r3.Vector{X: 0, Y: 0, Z: 1})
		test.That(t, hit, test.ShouldBeTrue)
		test.That(t, dist, test.ShouldAlmostEqual, 2)
	})

	t.Run("miss beside", func(t *testing.T) {
		_, hit := tri.IntersectRay(r3.Vector{X: 3, Y: 3, Z: 5}, r3.Vector{X: 0, Y: 0, Z: -1})
		test.That(t, hit, test.ShouldBeFalse)
	})

	t.Run("pointing away", func(t *testing.T) {
		_, hit := tri.IntersectRay(r3.Vector{X: 1, Y: 1, Z: 5}, r3.Vector{X: 0, Y: 0, Z: 1})
		test.That(t, hit, test.ShouldBeFalse)
	})

	t.Run("parallel", func(t *testing.T) {
		_, hit := tri.IntersectRay(r3.Vector{X: 1, Y: 1, Z: 0}, r3.Vector{X: 1, Y: 0, Z: 0})
		test.That(t, hit, test.ShouldBeFalse)
	})
}

func TestClosestPointSegmentPoint(t *testing.T) {
	a, b := r3.Vector{}, r3.Vector{X: 4}
	test.That(t, ClosestPointSegmentPoint(a, b, r3.Vector{X: 2, Y: 3}), test.ShouldResemble, r3.Vector{X: 2})
	test.That(t, ClosestPointSegmentPoint(a, b, r3.Vector{X: -2, Y: 3}), test.ShouldResemble, a)
	test.That(t, ClosestPointSegmentPoint(a, b, r3.Vector{X: 9}), test.ShouldResemble, b)
	test.That(t, ClosestPointSegmentPoint(a, a, r3.Vector{X: 9}), test.ShouldResemble, a)
}
