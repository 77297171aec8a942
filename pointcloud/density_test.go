package pointcloud

import (
	"math"
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/posematch/spatialmath"
)

func TestParseEvalStrategy(t *testing.T) {
	for name, want := range map[string]EvalStrategy{"": MaxEval, "max": MaxEval, "weighted_sum": WeightedSumEval} {
		got, err := ParseEvalStrategy(name)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, got, test.ShouldEqual, want)
	}
	_, err := ParseEvalStrategy("median")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, WeightedSumEval.String(), test.ShouldEqual, "weighted_sum")
}

func TestEvaluateR3(t *testing.T) {
	m := makeGrid(4, 10)
	m.SetBandwidths(2, 0.2)
	m.ComputeStatistics()
	m.BuildKDTree()

	t.Run("peak at a kernel", func(t *testing.T) {
		test.That(t, m.Evaluate(NewKernel(NewVector(10, 10, 0)), MaxEval), test.ShouldAlmostEqual, 1)
		test.That(t, m.Evaluate(NewKernel(NewVector(10, 10, 0)), WeightedSumEval), test.ShouldAlmostEqual, 1./16, 1e-6)
	})

	t.Run("gaussian falloff", func(t *testing.T) {
		got := m.Evaluate(NewKernel(NewVector(10, 10, 2)), MaxEval)
		test.That(t, got, test.ShouldAlmostEqual, math.Exp(-1))
	})

	t.Run("zero beyond the support", func(t *testing.T) {
		test.That(t, m.Evaluate(NewKernel(NewVector(10, 10, 7)), MaxEval), test.ShouldEqual, 0)
		test.That(t, m.Evaluate(NewKernel(NewVector(500, 0, 0)), WeightedSumEval), test.ShouldEqual, 0)
	})

	t.Run("indexed and brute force agree", func(t *testing.T) {
		q := NewKernel(NewVector(13, 7, 1))
		indexed := m.Evaluate(q, WeightedSumEval)
		m.index = nil
		test.That(t, m.Evaluate(q, WeightedSumEval), test.ShouldAlmostEqual, indexed)
		m.BuildKDTree()
	})
}

func TestEvaluateOrientedDomains(t *testing.T) {
	t.Run("axial normals", func(t *testing.T) {
		m := New(R3xS2)
		k := NewKernel(NewVector(0, 0, 0))
		k.Dir = NewVector(0, 0, 1)
		m.Add(k)
		m.SetBandwidths(1, 0.2)

		q := NewKernel(NewVector(0, 0, 0))
		q.Dir = NewVector(0, 0, -1)
		test.That(t, m.Evaluate(q, MaxEval), test.ShouldAlmostEqual, 1)

		q.Dir = NewVector(1, 0, 0)
		test.That(t, m.Evaluate(q, MaxEval), test.ShouldAlmostEqual, math.Exp(-(math.Pi/2)*(math.Pi/2)/0.04))
	})

	t.Run("orientations", func(t *testing.T) {
		m := New(SE3)
		m.Add(NewKernel(NewVector(0, 0, 0)))
		m.SetBandwidths(1, 0.2)

		q := NewKernel(NewVector(0, 0, 0))
		q.Ori = (&spatialmath.R4AA{Theta: 0.2, RX: 1}).ToQuat()
		test.That(t, m.Evaluate(q, MaxEval), test.ShouldAlmostEqual, math.Exp(-1))

		q.Ori = quat.Number{Real: -1}
		test.That(t, m.Evaluate(q, MaxEval), test.ShouldAlmostEqual, 1)
	})
}
