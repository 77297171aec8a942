// Package pointcloud defines weighted point models used as kernel density estimates, along with the
// spatial indexing, sampling, visibility and file formats built around them.
package pointcloud

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/posematch/spatialmath"
)

// Domain is the representation space shared by every kernel of a Model.
type Domain int

const (
	// R3 kernels carry a location only.
	R3 Domain = iota
	// R3xS2 kernels carry a location and an axial surface normal.
	R3xS2
	// SE3 kernels carry a location and an orientation.
	SE3
)

func (d Domain) String() string {
	switch d {
	case R3:
		return "r3"
	case R3xS2:
		return "r3xs2"
	case SE3:
		return "se3"
	default:
		return fmt.Sprintf("domain(%d)", int(d))
	}
}

// Kernel is one weighted sample of a model. LocH and OriH are the location and orientation
// bandwidths used when the kernel takes part in a density estimate.
type Kernel struct {
	Loc    r3.Vector
	Dir    r3.Vector
	Ori    quat.Number
	Weight float64
	LocH   float64
	OriH   float64
	Data   Data
}

// NewKernel returns a unit weight kernel at loc.
func NewKernel(loc r3.Vector) Kernel {
	return Kernel{Loc: loc, Ori: quat.Number{Real: 1}, Weight: 1}
}

// Transformed returns the kernel moved by pose. Normals and orientations are rotated along.
func (k Kernel) Transformed(pose spatialmath.Pose) Kernel {
	q := pose.Orientation().Quaternion()
	k.Loc = spatialmath.TransformPoint(pose, k.Loc)
	k.Dir = spatialmath.RotateVector(q, k.Dir)
	k.Ori = spatialmath.Normalize(quat.Mul(q, k.Ori))
	return k
}

// MetaData is data about what's stored in the model.
type MetaData struct {
	HasColor bool

	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64
}

// NewMetaData returns meta data with empty bounds.
func NewMetaData() MetaData {
	return MetaData{
		MinX: math.MaxFloat64,
		MinY: math.MaxFloat64,
		MinZ: math.MaxFloat64,
		MaxX: -math.MaxFloat64,
		MaxY: -math.MaxFloat64,
		MaxZ: -math.MaxFloat64,
	}
}

// Merge updates the meta data with the new kernel.
func (meta *MetaData) Merge(k Kernel) {
	if k.Data != nil && k.Data.HasColor() {
		meta.HasColor = true
	}

	v := k.Loc
	meta.MaxX = math.Max(meta.MaxX, v.X)
	meta.MaxY = math.Max(meta.MaxY, v.Y)
	meta.MaxZ = math.Max(meta.MaxZ, v.Z)
	meta.MinX = math.Min(meta.MinX, v.X)
	meta.MinY = math.Min(meta.MinY, v.Y)
	meta.MinZ = math.Min(meta.MinZ, v.Z)
}

// Model is an ordered collection of kernels of a single domain. A model is built single threaded and
// is safe for concurrent reads once its statistics and index have been computed.
type Model struct {
	kernels []Kernel
	domain  Domain
	meta    MetaData

	stats   *Statistics
	maxLocH float64
	index   *kdIndex
	mesh    *spatialmath.Mesh
}

// New returns an empty model of the given domain.
func New(domain Domain) *Model {
	return NewWithPrealloc(domain, 0)
}

// NewWithPrealloc returns an empty, preallocated model.
func NewWithPrealloc(domain Domain, size int) *Model {
	return &Model{
		kernels: make([]Kernel, 0, size),
		domain:  domain,
		meta:    NewMetaData(),
	}
}

// NewFromPoints returns an R3 model of unit weight kernels.
func NewFromPoints(pts []r3.Vector) *Model {
	m := NewWithPrealloc(R3, len(pts))
	for _, p := range pts {
		m.Add(NewKernel(p))
	}
	return m
}

// Add appends a kernel. Derived statistics and the spatial index are invalidated.
func (m *Model) Add(k Kernel) {
	m.kernels = append(m.kernels, k)
	m.meta.Merge(k)
	m.maxLocH = math.Max(m.maxLocH, k.LocH)
	m.invalidate()
}

func (m *Model) invalidate() {
	m.stats = nil
	m.index = nil
}

// Size returns the number of kernels.
func (m *Model) Size() int {
	return len(m.kernels)
}

// Domain returns the representation shared by every kernel.
func (m *Model) Domain() Domain {
	return m.domain
}

// MetaData returns bounds and descriptor flags.
func (m *Model) MetaData() MetaData {
	return m.meta
}

// At returns the kernel at index i.
func (m *Model) At(i int) Kernel {
	return m.kernels[i]
}

// Kernels returns the kernels in insertion order. Callers must not modify the slice.
func (m *Model) Kernels() []Kernel {
	return m.kernels
}

// Iterate calls fn for every kernel in order until fn returns false.
func (m *Model) Iterate(fn func(i int, k Kernel) bool) {
	for i, k := range m.kernels {
		if !fn(i, k) {
			return
		}
	}
}

// SetBandwidths sets the location and orientation bandwidth of every kernel.
func (m *Model) SetBandwidths(locH, oriH float64) {
	for i := range m.kernels {
		m.kernels[i].LocH = locH
		m.kernels[i].OriH = oriH
	}
	m.maxLocH = locH
}

// SetData replaces the descriptor of the kernel at index i.
func (m *Model) SetData(i int, d Data) {
	m.kernels[i].Data = d
	m.meta.Merge(m.kernels[i])
}

// Transformed returns a copy of the model with every kernel moved by pose. The occlusion mesh is
// moved along; the spatial index is not carried over.
func (m *Model) Transformed(pose spatialmath.Pose) *Model {
	out := NewWithPrealloc(m.domain, m.Size())
	for _, k := range m.kernels {
		out.Add(k.Transformed(pose))
	}
	if m.mesh != nil {
		out.mesh = m.mesh.Transform(pose)
	}
	return out
}

// Subset returns a model made of the kernels at the given indices, in the given order.
func (m *Model) Subset(indices []int) *Model {
	out := NewWithPrealloc(m.domain, len(indices))
	for _, i := range indices {
		out.Add(m.kernels[i])
	}
	return out
}

// Clone returns a deep copy of the kernels and the mesh reference.
func (m *Model) Clone() *Model {
	out := NewWithPrealloc(m.domain, m.Size())
	for _, k := range m.kernels {
		out.Add(k)
	}
	out.mesh = m.mesh
	return out
}
