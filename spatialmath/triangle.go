package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

// Triangle is three points and the unit normal of the plane they span.
type Triangle struct {
	p0 r3.Vector
	p1 r3.Vector
	p2 r3.Vector

	normal r3.Vector
}

// NewTriangle returns the triangle p0, p1, p2 with its normal following the right hand rule.
func NewTriangle(p0, p1, p2 r3.Vector) *Triangle {
	return &Triangle{
		p0:     p0,
		p1:     p1,
		p2:     p2,
		normal: PlaneNormal(p0, p1, p2),
	}
}

// Points returns the vertices of the triangle.
func (t *Triangle) Points() []r3.Vector {
	return []r3.Vector{t.p0, t.p1, t.p2}
}

// Normal returns the unit normal of the triangle.
func (t *Triangle) Normal() r3.Vector {
	return t.normal
}

// Centroid returns the mean of the three vertices.
func (t *Triangle) Centroid() r3.Vector {
	return t.p0.Add(t.p1).Add(t.p2).Mul(1. / 3)
}

// Transform returns the triangle with every vertex moved by pose.
func (t *Triangle) Transform(pose Pose) *Triangle {
	return NewTriangle(TransformPoint(pose, t.p0), TransformPoint(pose, t.p1), TransformPoint(pose, t.p2))
}

// ClosestPointToPoint takes a point, and returns the closest point on the triangle to the given point.
func (t *Triangle) ClosestPointToPoint(point r3.Vector) r3.Vector {
	closestPtInside, inside := t.ClosestInsidePoint(point)
	if inside {
		return closestPtInside
	}

	// If the closest point is outside the triangle, it must be on an edge, so we
	// check each triangle edge for a closest point to the point pt.
	closestPt := ClosestPointSegmentPoint(t.p0, t.p1, point)
	bestDist := point.Sub(closestPt).Norm2()

	newPt := ClosestPointSegmentPoint(t.p1, t.p2, point)
	if newDist := point.Sub(newPt).Norm2(); newDist < bestDist {
		closestPt = newPt
		bestDist = newDist
	}

	newPt = ClosestPointSegmentPoint(t.p2, t.p0, point)
	if newDist := point.Sub(newPt).Norm2(); newDist < bestDist {
		return newPt
	}
	return closestPt
}

// ClosestInsidePoint returns the closest point on a triangle IF AND ONLY IF the query point's projection overlaps the triangle.
// Otherwise it will return the query point's projection onto the triangle's plane along with false.
func (t *Triangle) ClosestInsidePoint(point r3.Vector) (r3.Vector, bool) {
	eps := 1e-6

	// Parametrize the triangle s.t. a point inside the triangle is
	// Q = p0 + u * e0 + v * e1, when 0 <= u <= 1, 0 <= v <= 1, and
	// 0 <= u + v <= 1. Let e0 = (p1 - p0) and e1 = (p2 - p0).
	e0 := t.p1.Sub(t.p0)
	e1 := t.p2.Sub(t.p0)
	a := e0.Norm2()
	b := e0.Dot(e1)
	c := e1.Norm2()
	d := point.Sub(t.p0)
	det := (a*c - b*b)
	if det == 0 {
		return point, false
	}
	u := (c*e0.Dot(d) - b*e1.Dot(d)) / det
	v := (-b*e0.Dot(d) + a*e1.Dot(d)) / det
	inside := (0 <= u+eps) && (u <= 1+eps) && (0 <= v+eps) && (v <= 1+eps) && (u+v <= 1+eps)
	return t.p0.Add(e0.Mul(u)).Add(e1.Mul(v)), inside
}

const barycentricEpsilon = 1e-9

// IntersectRay intersects the ray origin + s*dir with the triangle using the Moller-Trumbore test.
// It returns the ray parameter s of the hit, which is a distance when dir is a unit vector.
// Rays parallel to the triangle's plane never hit.
func (t *Triangle) IntersectRay(origin, dir r3.Vector) (float64, bool) {
	e0 := t.p1.Sub(t.p0)
	e1 := t.p2.Sub(t.p0)
	h := dir.Cross(e1)
	a := e0.Dot(h)
	if math.Abs(a) < floatEpsilon*floatEpsilon {
		return 0, false
	}
	f := 1 / a
	s := origin.Sub(t.p0)
	u := f * s.Dot(h)
	// closed edges with a little slack
	if u < -barycentricEpsilon || u > 1+barycentricEpsilon {
		return 0, false
	}
	q := s.Cross(e0)
	v := f * dir.Dot(q)
	if v < -barycentricEpsilon || u+v > 1+barycentricEpsilon {
		return 0, false
	}
	dist := f * e1.Dot(q)
	if dist < 0 {
		return 0, false
	}
	return dist, true
}
