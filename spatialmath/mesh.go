package spatialmath

import (
	"github.com/golang/geo/r3"
)

// Mesh is a set of triangles placed in the world by a pose. Segment queries are accelerated by a
// bounding volume hierarchy built once over the triangles in the mesh frame.
type Mesh struct {
	pose      Pose
	triangles []*Triangle
	bvh       *bvhNode
}

// NewMesh builds a mesh from triangles expressed in the frame given by pose.
func NewMesh(pose Pose, triangles []*Triangle) *Mesh {
	return &Mesh{
		pose:      pose,
		triangles: triangles,
		bvh:       buildBVH(triangles),
	}
}

// Pose returns the pose of the mesh frame.
func (m *Mesh) Pose() Pose {
	return m.pose
}

// Triangles returns the triangles of the mesh in the mesh frame.
func (m *Mesh) Triangles() []*Triangle {
	return m.triangles
}

// Transform returns the mesh moved by pose.
func (m *Mesh) Transform(pose Pose) *Mesh {
	// Triangle points are in frame of mesh, so no need to transform them
	return &Mesh{
		pose:      Compose(pose, m.pose),
		triangles: m.triangles,
		bvh:       m.bvh,
	}
}

// SegmentBlocked reports whether any triangle crosses the segment from `from` to `to`, ignoring hits within
// tolerance of `to`. Both endpoints are in world coordinates.
func (m *Mesh) SegmentBlocked(from, to r3.Vector, tolerance float64) bool {
	inv := PoseInverse(m.pose)
	a := TransformPoint(inv, from)
	b := TransformPoint(inv, to)
	d := b.Sub(a)
	length := d.Norm()
	if length == 0 {
		return false
	}
	return m.bvh.firstHitWithin(a, d.Mul(1/length), length-tolerance)
}
