package pointcloud

import (
	"sort"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// kdPoint is a kernel location tagged with its index in the model.
type kdPoint struct {
	loc   r3.Vector
	index int
}

func coord(v r3.Vector, d kdtree.Dim) float64 {
	switch d {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// Compare returns the signed distance of p from the plane passing through c and perpendicular to the dimension d.
func (p kdPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return coord(p.loc, d) - coord(c.(kdPoint).loc, d)
}

// Dims returns the number of dimensions described by the receiver.
func (p kdPoint) Dims() int { return 3 }

// Distance returns the squared Euclidean distance between c and the receiver.
func (p kdPoint) Distance(c kdtree.Comparable) float64 {
	return p.loc.Sub(c.(kdPoint).loc).Norm2()
}

type kdPoints []kdPoint

func (p kdPoints) Index(i int) kdtree.Comparable { return p[i] }
func (p kdPoints) Len() int                      { return len(p) }
func (p kdPoints) Pivot(d kdtree.Dim) int        { return kdPlane{kdPoints: p, Dim: d}.Pivot() }
func (p kdPoints) Slice(start, end int) kdtree.Interface {
	return p[start:end]
}

// kdPlane is a kdPoints sorted along a single dimension.
type kdPlane struct {
	kdtree.Dim
	kdPoints
}

func (p kdPlane) Less(i, j int) bool {
	return coord(p.kdPoints[i].loc, p.Dim) < coord(p.kdPoints[j].loc, p.Dim)
}

func (p kdPlane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }

func (p kdPlane) Slice(start, end int) kdtree.SortSlicer {
	p.kdPoints = p.kdPoints[start:end]
	return p
}

func (p kdPlane) Swap(i, j int) {
	p.kdPoints[i], p.kdPoints[j] = p.kdPoints[j], p.kdPoints[i]
}

// kdIndex answers radius and nearest neighbour queries over kernel locations. Queries are read only
// and may run concurrently.
type kdIndex struct {
	tree *kdtree.Tree
}

func newKDIndex(kernels []Kernel) *kdIndex {
	pts := make(kdPoints, len(kernels))
	for i, k := range kernels {
		pts[i] = kdPoint{loc: k.Loc, index: i}
	}
	return &kdIndex{tree: kdtree.New(pts, false)}
}

// within calls fn with the index of every kernel at most radius away from q.
func (idx *kdIndex) within(q r3.Vector, radius float64, fn func(i int)) {
	keep := kdtree.NewDistKeeper(radius * radius)
	idx.tree.NearestSet(keep, kdPoint{loc: q})
	for _, c := range keep.Heap {
		if c.Comparable == nil {
			continue
		}
		fn(c.Comparable.(kdPoint).index)
	}
}

// nearest returns the indices of the k kernels closest to q, closest first.
func (idx *kdIndex) nearest(q r3.Vector, k int) []int {
	keep := kdtree.NewNKeeper(k)
	idx.tree.NearestSet(keep, kdPoint{loc: q})
	found := make([]kdtree.ComparableDist, 0, k)
	for _, c := range keep.Heap {
		if c.Comparable != nil {
			found = append(found, c)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Dist < found[j].Dist })
	out := make([]int, len(found))
	for i, c := range found {
		out[i] = c.Comparable.(kdPoint).index
	}
	return out
}

// BuildKDTree builds the spatial index used by Evaluate and neighbour queries. It must be called
// again after kernels are added.
func (m *Model) BuildKDTree() {
	m.index = newKDIndex(m.kernels)
}

// HasKDTree reports whether a current spatial index exists.
func (m *Model) HasKDTree() bool {
	return m.index != nil
}

// Within calls fn with the index of every kernel at most radius away from q. Without an index it
// scans every kernel.
func (m *Model) Within(q r3.Vector, radius float64, fn func(i int)) {
	if m.index != nil {
		m.index.within(q, radius, fn)
		return
	}
	r2 := radius * radius
	for i, k := range m.kernels {
		if k.Loc.Sub(q).Norm2() <= r2 {
			fn(i)
		}
	}
}

// Nearest returns the indices of the k kernels closest to q, closest first.
func (m *Model) Nearest(q r3.Vector, k int) []int {
	if m.index == nil {
		m.BuildKDTree()
	}
	return m.index.nearest(q, k)
}
