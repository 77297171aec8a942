package pointcloud

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// DefaultNormalNeighbors is the neighbourhood size used to fit surface normals.
const DefaultNormalNeighbors = 8

// ComputeNormals fits a plane to the neighbors closest kernels around every kernel and stores the
// plane normal in Dir, turning an R3 model into an R3xS2 model.
func (m *Model) ComputeNormals(neighbors int) error {
	if m.domain != R3 {
		return errors.Errorf("normals can only be computed for %v models, not %v", R3, m.domain)
	}
	normals, err := m.estimateNormals(neighbors)
	if err != nil {
		return err
	}
	for i := range m.kernels {
		m.kernels[i].Dir = normals[i]
	}
	m.domain = R3xS2
	return nil
}

// estimateNormals returns one unit normal per kernel, leaving the model untouched.
func (m *Model) estimateNormals(neighbors int) ([]r3.Vector, error) {
	if neighbors < 3 {
		neighbors = 3
	}
	if len(m.kernels) < 3 {
		return nil, errors.Errorf("need at least 3 points to compute normals, have %d", len(m.kernels))
	}
	if m.index == nil {
		m.BuildKDTree()
	}

	normals := make([]r3.Vector, len(m.kernels))
	for i, k := range m.kernels {
		nbrs := m.index.nearest(k.Loc, neighbors)
		x := mat.NewDense(len(nbrs), 3, nil)
		for row, j := range nbrs {
			p := m.kernels[j].Loc
			x.SetRow(row, []float64{p.X, p.Y, p.Z})
		}
		var cov mat.SymDense
		stat.CovarianceMatrix(&cov, x, nil)

		var eig mat.EigenSym
		if ok := eig.Factorize(&cov, true); !ok {
			return nil, errors.Errorf("could not factorize neighbourhood covariance of point %d", i)
		}
		var vecs mat.Dense
		eig.VectorsTo(&vecs)
		// eigenvalues are ascending, the normal is the least spread direction
		n := r3.Vector{X: vecs.At(0, 0), Y: vecs.At(1, 0), Z: vecs.At(2, 0)}
		if n.Norm2() == 0 {
			n = r3.Vector{Z: 1}
		}
		normals[i] = n.Normalize()
	}
	return normals, nil
}

// surfaceNormals returns a normal per kernel, whatever the domain.
func (m *Model) surfaceNormals() ([]r3.Vector, error) {
	switch m.domain {
	case R3xS2:
		normals := make([]r3.Vector, len(m.kernels))
		for i, k := range m.kernels {
			normals[i] = k.Dir
		}
		return normals, nil
	case SE3:
		normals := make([]r3.Vector, len(m.kernels))
		for i, k := range m.kernels {
			normals[i] = rotateZ(k)
		}
		return normals, nil
	default:
		return m.estimateNormals(DefaultNormalNeighbors)
	}
}
