package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Statistics are the once computed moments of a model.
type Statistics struct {
	Size        int
	TotalWeight float64
	MaxWeight   float64
	Mean        r3.Vector
	// Scale is the weighted root mean square distance of the kernels to Mean.
	Scale float64
}

// ComputeStatistics computes and stores the moments of the model.
func (m *Model) ComputeStatistics() Statistics {
	n := len(m.kernels)
	s := Statistics{Size: n}
	if n == 0 {
		m.stats = &s
		return s
	}

	xs := make([]float64, n)
	ys := make([]float64, n)
	zs := make([]float64, n)
	ws := make([]float64, n)
	for i, k := range m.kernels {
		xs[i], ys[i], zs[i] = k.Loc.X, k.Loc.Y, k.Loc.Z
		ws[i] = k.Weight
	}
	s.TotalWeight = floats.Sum(ws)
	s.MaxWeight = floats.Max(ws)
	if s.TotalWeight <= 0 {
		// unweighted fallback for degenerate weights
		ws = nil
	}
	s.Mean = r3.Vector{X: stat.Mean(xs, ws), Y: stat.Mean(ys, ws), Z: stat.Mean(zs, ws)}

	sq := make([]float64, n)
	for i, k := range m.kernels {
		sq[i] = k.Loc.Sub(s.Mean).Norm2()
	}
	s.Scale = math.Sqrt(stat.Mean(sq, ws))

	m.stats = &s
	return s
}

// Statistics returns the stored moments, computing them first if needed. Call ComputeStatistics
// before sharing the model between goroutines.
func (m *Model) Statistics() Statistics {
	if m.stats == nil {
		return m.ComputeStatistics()
	}
	return *m.stats
}
