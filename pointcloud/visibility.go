package pointcloud

import (
	"image/color"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/posematch/spatialmath"
)

// splatScale is the half size of a surfel splat in multiples of the mean nearest neighbour spacing.
const splatScale = 0.75

var (
	// VisibleColor marks points seen from the viewpoint.
	VisibleColor = color.NRGBA{0, 0, 255, 255}
	// OccludedColor marks points hidden from the viewpoint.
	OccludedColor = color.NRGBA{255, 0, 0, 255}
)

func rotateZ(k Kernel) r3.Vector {
	return spatialmath.RotateVector(k.Ori, r3.Vector{Z: 1})
}

// SetMesh attaches the occlusion mesh used by visibility queries. The mesh is expressed in the frame
// of the model.
func (m *Model) SetMesh(mesh *spatialmath.Mesh) {
	m.mesh = mesh
}

// Mesh returns the occlusion mesh, nil if none is attached.
func (m *Model) Mesh() *spatialmath.Mesh {
	return m.mesh
}

// BuildMesh attaches an occlusion mesh made of one square splat per kernel, centered on the kernel
// and perpendicular to its surface normal.
func (m *Model) BuildMesh() error {
	if len(m.kernels) < 3 {
		return errors.Errorf("need at least 3 points to build a mesh, have %d", len(m.kernels))
	}
	normals, err := m.surfaceNormals()
	if err != nil {
		return err
	}
	half := splatScale * m.meanSpacing()
	triangles := make([]*spatialmath.Triangle, 0, 2*len(m.kernels))
	for i, k := range m.kernels {
		n := normals[i]
		if n.Norm2() == 0 {
			continue
		}
		u := n.Ortho().Mul(half)
		v := n.Normalize().Cross(n.Ortho()).Mul(half)
		c0 := k.Loc.Sub(u).Sub(v)
		c1 := k.Loc.Add(u).Sub(v)
		c2 := k.Loc.Add(u).Add(v)
		c3 := k.Loc.Sub(u).Add(v)
		triangles = append(triangles, spatialmath.NewTriangle(c0, c1, c2), spatialmath.NewTriangle(c0, c2, c3))
	}
	m.mesh = spatialmath.NewMesh(spatialmath.NewZeroPose(), triangles)
	return nil
}

// meanSpacing is the mean distance from each kernel to its nearest neighbour.
func (m *Model) meanSpacing() float64 {
	if m.index == nil {
		m.BuildKDTree()
	}
	var sum float64
	var count int
	for _, k := range m.kernels {
		nbrs := m.index.nearest(k.Loc, 2)
		for _, j := range nbrs {
			if d := m.kernels[j].Loc.Sub(k.Loc).Norm(); d > 0 {
				sum += d
				count++
				break
			}
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// IsVisibleFrom reports whether nothing in the occlusion mesh lies between viewpoint and p, ignoring
// hits within tolerance of p. Everything is visible without a mesh.
func (m *Model) IsVisibleFrom(p, viewpoint r3.Vector, tolerance float64) bool {
	if m.mesh == nil {
		return true
	}
	return !m.mesh.SegmentBlocked(viewpoint, p, tolerance)
}

// PartialView returns, in order, the indices of the kernels visible from viewpoint.
func (m *Model) PartialView(viewpoint r3.Vector, tolerance float64) []int {
	visible := make([]int, 0, len(m.kernels))
	for i, k := range m.kernels {
		if m.IsVisibleFrom(k.Loc, viewpoint, tolerance) {
			visible = append(visible, i)
		}
	}
	return visible
}

// PartialViewModel returns the kernels visible from viewpoint. With colorize set every kernel is kept
// and colored VisibleColor or OccludedColor instead.
func (m *Model) PartialViewModel(viewpoint r3.Vector, tolerance float64, colorize bool) *Model {
	if !colorize {
		return m.Subset(m.PartialView(viewpoint, tolerance))
	}
	out := m.Clone()
	for i, k := range m.kernels {
		c := OccludedColor
		if m.IsVisibleFrom(k.Loc, viewpoint, tolerance) {
			c = VisibleColor
		}
		out.SetData(i, NewColoredData(c))
	}
	return out
}

// ValidTolerance reports whether tol can be used as a visibility tolerance.
func ValidTolerance(tol float64) bool {
	return tol >= 0 && !math.IsNaN(tol) && !math.IsInf(tol, 0)
}
