package spatialmath

import (
	"math"
	"sort"

	"github.com/golang/geo/r3"
)

const maxTrianglesPerLeaf = 4

// bvhNode is a node of a bounding volume hierarchy over triangles. Leaves hold triangles, internal nodes
// hold exactly two children.
type bvhNode struct {
	min, max  r3.Vector
	left      *bvhNode
	right     *bvhNode
	triangles []*Triangle
}

// buildBVH recursively splits triangles at the centroid median of the longest box axis.
func buildBVH(triangles []*Triangle) *bvhNode {
	if len(triangles) == 0 {
		return nil
	}
	min, max := computeTrianglesAABB(triangles)
	node := &bvhNode{min: min, max: max}
	if len(triangles) <= maxTrianglesPerLeaf {
		node.triangles = triangles
		return node
	}

	extent := max.Sub(min)
	axis := r3.XAxis
	if extent.Y > extent.X && extent.Y >= extent.Z {
		axis = r3.YAxis
	} else if extent.Z > extent.X && extent.Z > extent.Y {
		axis = r3.ZAxis
	}

	sorted := make([]*Triangle, len(triangles))
	copy(sorted, triangles)
	sort.Slice(sorted, func(i, j int) bool {
		return vectorComponent(sorted[i].Centroid(), axis) < vectorComponent(sorted[j].Centroid(), axis)
	})
	mid := len(sorted) / 2
	node.left = buildBVH(sorted[:mid])
	node.right = buildBVH(sorted[mid:])
	return node
}

func vectorComponent(v r3.Vector, axis r3.Axis) float64 {
	switch axis {
	case r3.XAxis:
		return v.X
	case r3.YAxis:
		return v.Y
	default:
		return v.Z
	}
}

// computeTrianglesAABB returns the corners of the axis aligned box bounding every triangle.
func computeTrianglesAABB(triangles []*Triangle) (r3.Vector, r3.Vector) {
	min := r3.Vector{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	max := r3.Vector{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for _, tri := range triangles {
		for _, pt := range tri.Points() {
			min = r3.Vector{X: math.Min(min.X, pt.X), Y: math.Min(min.Y, pt.Y), Z: math.Min(min.Z, pt.Z)}
			max = r3.Vector{X: math.Max(max.X, pt.X), Y: math.Max(max.Y, pt.Y), Z: math.Max(max.Z, pt.Z)}
		}
	}
	return min, max
}

// segmentIntersectsAABB is the slab test for the segment from a to b against the box [min, max].
func segmentIntersectsAABB(a, b, min, max r3.Vector) bool {
	d := b.Sub(a)
	tMin, tMax := 0., 1.
	for _, axis := range []r3.Axis{r3.XAxis, r3.YAxis, r3.ZAxis} {
		o := vectorComponent(a, axis)
		dir := vectorComponent(d, axis)
		lo := vectorComponent(min, axis)
		hi := vectorComponent(max, axis)
		if math.Abs(dir) < 1e-12 {
			if o < lo || o > hi {
				return false
			}
			continue
		}
		t1 := (lo - o) / dir
		t2 := (hi - o) / dir
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tMin = math.Max(tMin, t1)
		tMax = math.Min(tMax, t2)
		if tMin > tMax {
			return false
		}
	}
	return true
}

// firstHitWithin reports whether any triangle under node is hit by the ray origin + s*dir for s in [0, limit).
// dir must be a unit vector.
func (node *bvhNode) firstHitWithin(origin, dir r3.Vector, limit float64) bool {
	if node == nil || limit <= 0 {
		return false
	}
	if !segmentIntersectsAABB(origin, origin.Add(dir.Mul(limit)), node.min, node.max) {
		return false
	}
	if node.triangles != nil {
		for _, tri := range node.triangles {
			if s, hit := tri.IntersectRay(origin, dir); hit && s < limit {
				return true
			}
		}
		return false
	}
	return node.left.firstHitWithin(origin, dir, limit) || node.right.firstHitWithin(origin, dir, limit)
}
