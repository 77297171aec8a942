//go:build !no_partialview

package poseestimator

import (
	"context"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/posematch/logging"
	"go.viam.com/posematch/spatialmath"
)

func TestPartialViewLoad(t *testing.T) {
	pe, err := New(Config{PartialView: true}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	err = pe.Load(planarGrid(4), planarGrid(4), LoadOptions{})
	test.That(t, errors.Is(err, ErrMissingViewpoint), test.ShouldBeTrue)

	viewpoint := r3.Vector{Z: 10}
	err = pe.Load(planarGrid(4), planarGrid(4), LoadOptions{Viewpoint: &viewpoint, MeshPath: "/nonexistent/mesh.off"})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "reading mesh")
}

func TestPartialViewScore(t *testing.T) {
	// a large occluder between z = 10 and the grid
	occluder := spatialmath.NewMesh(spatialmath.NewZeroPose(), []*spatialmath.Triangle{
		spatialmath.NewTriangle(r3.Vector{X: -100, Y: -100, Z: 5}, r3.Vector{X: 100, Y: -100, Z: 5}, r3.Vector{X: 100, Y: 100, Z: 5}),
		spatialmath.NewTriangle(r3.Vector{X: -100, Y: -100, Z: 5}, r3.Vector{X: 100, Y: 100, Z: 5}, r3.Vector{X: -100, Y: 100, Z: 5}),
	})
	object := planarGrid(5)
	object.SetMesh(occluder)
	scene := planarGrid(5)

	t.Run("nothing visible", func(t *testing.T) {
		pe := newLoadedEstimator(t, Config{PartialView: true}, object, scene, LoadOptions{Viewpoint: &r3.Vector{X: 2, Y: 2, Z: 10}})
		score, err := pe.FindMatchingScore(newHypothesis())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, score, test.ShouldEqual, 0)
	})

	t.Run("everything visible", func(t *testing.T) {
		pe := newLoadedEstimator(t, Config{PartialView: true}, object, scene, LoadOptions{Viewpoint: &r3.Vector{X: 2, Y: 2, Z: -10}})
		score, err := pe.FindMatchingScore(newHypothesis())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, score, test.ShouldAlmostEqual, 1, 1e-6)

		pe.SetCustomIntegrandFactor(FactorFuncs{TestFunc: func(spatialmath.Pose) bool { return false }})
		score, err = pe.FindMatchingScore(newHypothesis())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, score, test.ShouldEqual, 0)
	})

	t.Run("aligned model colors the visible points", func(t *testing.T) {
		pe := newLoadedEstimator(t, Config{PartialView: true}, object, scene, LoadOptions{Viewpoint: &r3.Vector{X: 2, Y: 2, Z: 10}})
		pose := spatialmath.NewPoseFromPoint(r3.Vector{Z: 1})
		aligned, err := pe.AlignedModel(pose)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, aligned.Size(), test.ShouldEqual, 25)
		test.That(t, aligned.At(0).Loc.Z, test.ShouldAlmostEqual, 1)
		r, g, b := aligned.At(0).Data.RGB255()
		test.That(t, []uint8{r, g, b}, test.ShouldResemble, []uint8{255, 0, 0})
	})
}

func TestPartialViewSearch(t *testing.T) {
	object := planarGrid(6)
	scene := planarGrid(6)
	viewpoint := r3.Vector{X: 2.5, Y: 2.5, Z: 20}
	pe := newLoadedEstimator(t, Config{PartialView: true, Chains: 2, N: 10, Seed: 1}, object, scene,
		LoadOptions{Viewpoint: &viewpoint})
	test.That(t, pe.ObjectModel().Mesh(), test.ShouldNotBeNil)

	h, err := pe.ModelToSceneTransformation(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, h.Weight, test.ShouldBeGreaterThanOrEqualTo, 0)
	test.That(t, h.Weight, test.ShouldBeLessThanOrEqualTo, 1+1e-9)
	test.That(t, pe.LastStats().Accepted, test.ShouldBeGreaterThanOrEqualTo, 2)
}

// cubeMesh returns the twelve triangles of the axis aligned cube spanning [lo, hi] on every axis.
func cubeMesh(lo, hi float64) *spatialmath.Mesh {
	corner := func(x, y, z int) r3.Vector {
		pick := func(i int) float64 {
			if i == 0 {
				return lo
			}
			return hi
		}
		return r3.Vector{X: pick(x), Y: pick(y), Z: pick(z)}
	}
	quads := [][4][3]int{
		{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}},
		{{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1}},
		{{0, 0, 0}, {1, 0, 0}, {1, 0, 1}, {0, 0, 1}},
		{{0, 1, 0}, {1, 1, 0}, {1, 1, 1}, {0, 1, 1}},
		{{0, 0, 0}, {0, 1, 0}, {0, 1, 1}, {0, 0, 1}},
		{{1, 0, 0}, {1, 1, 0}, {1, 1, 1}, {1, 0, 1}},
	}
	triangles := make([]*spatialmath.Triangle, 0, 12)
	for _, q := range quads {
		var v [4]r3.Vector
		for i, c := range q {
			v[i] = corner(c[0], c[1], c[2])
		}
		triangles = append(triangles, spatialmath.NewTriangle(v[0], v[1], v[2]), spatialmath.NewTriangle(v[0], v[2], v[3]))
	}
	return spatialmath.NewMesh(spatialmath.NewZeroPose(), triangles)
}

func TestPartialViewSearchNothingVisible(t *testing.T) {
	object := planarGrid(6)
	object.SetMesh(cubeMesh(-20, 25))
	scene := planarGrid(6)
	viewpoint := r3.Vector{X: 2.5, Y: 2.5, Z: 1000}
	pe := newLoadedEstimator(t, Config{PartialView: true, MeshTolerance: 0.5, Chains: 2, N: 5, Seed: 4}, object, scene,
		LoadOptions{Viewpoint: &viewpoint})
	test.That(t, pe.ObjectModel().PartialView(viewpoint, 0.5), test.ShouldBeEmpty)

	h, err := pe.ModelToSceneTransformation(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, h.Weight, test.ShouldEqual, 0)
	stats := pe.LastStats()
	test.That(t, stats.Accepted, test.ShouldEqual, 0)
	test.That(t, stats.ProposalAborts, test.ShouldBeGreaterThan, 0)
	test.That(t, stats.Accepted+stats.Rejected+stats.EarlyAborts+stats.ProposalAborts, test.ShouldEqual, 2*(10*5+1))
}
