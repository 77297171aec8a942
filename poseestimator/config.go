package poseestimator

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/posematch/pointcloud"
)

// default values for the search.
const (
	// Number of independent chains when none is configured.
	defaultChains = 8

	// Upper bound of the object sample evaluated per iteration when n is derived from the object.
	maxSampleBudget = 1000

	// Scenes larger than this are subsampled when loading with Light set.
	lightSceneSize = 10000

	defaultOriH          = 0.2
	defaultMeshTolerance = 4.

	// Evidence floor added to every density evaluation.
	whiteNoisePower = 1e-4
)

// Parallelization modes.
const (
	ParallelizationParallel = "parallel"
	ParallelizationSerial   = "serial"
)

// Scoring is the criterion used to rescore the winning pose.
type Scoring string

const (
	// ScoreForward averages the scene density at the transformed object points.
	ScoreForward Scoring = "forward"
	// ScoreSymmetric also evaluates the transformed object at the scene points.
	ScoreSymmetric Scoring = "symmetric"
)

// Config holds the parameters of a search. Zero values select defaults.
type Config struct {
	// Location bandwidth of the models. Defaults to a tenth of the object size.
	LocH float64 `json:"loc_h,omitempty"`
	// Orientation bandwidth of the models.
	OriH float64 `json:"ori_h,omitempty"`

	Chains int `json:"chains,omitempty"`
	// Object points evaluated per iteration. Defaults to the object size, capped at 1000.
	N int `json:"n,omitempty"`

	PartialView   bool    `json:"partial_view,omitempty"`
	MeshTolerance float64 `json:"mesh_tolerance,omitempty"`

	Progress        bool    `json:"progress,omitempty"`
	Strategy        string  `json:"strategy,omitempty"`
	Scoring         Scoring `json:"scoring,omitempty"`
	Parallelization string  `json:"parallelization,omitempty"`

	Seed int64 `json:"seed,omitempty"`
}

// withDefaults returns a copy of the config with unset fields filled in.
func (cfg Config) withDefaults() Config {
	if cfg.Chains <= 0 {
		cfg.Chains = defaultChains
	}
	if cfg.OriH <= 0 {
		cfg.OriH = defaultOriH
	}
	if cfg.MeshTolerance <= 0 {
		cfg.MeshTolerance = defaultMeshTolerance
	}
	if cfg.Scoring == "" {
		cfg.Scoring = ScoreForward
	}
	if cfg.Parallelization == "" {
		cfg.Parallelization = ParallelizationParallel
	}
	return cfg
}

// Validate reports configuration values that can not be used.
func (cfg Config) Validate() error {
	if _, err := pointcloud.ParseEvalStrategy(cfg.Strategy); err != nil {
		return err
	}
	switch cfg.Scoring {
	case "", ScoreForward, ScoreSymmetric:
	default:
		return errors.Errorf("unknown scoring %q", cfg.Scoring)
	}
	switch cfg.Parallelization {
	case "", ParallelizationParallel, ParallelizationSerial:
	default:
		return errors.Errorf("unknown parallelization %q", cfg.Parallelization)
	}
	if cfg.N < 0 {
		return errors.Errorf("n must be non negative, got %d", cfg.N)
	}
	if math.IsNaN(cfg.MeshTolerance) || math.IsInf(cfg.MeshTolerance, 0) {
		return errors.Errorf("invalid mesh tolerance %v", cfg.MeshTolerance)
	}
	if cfg.PartialView && !partialViewAvailable {
		return ErrPartialViewUnsupported
	}
	return nil
}

// LoadOptions control how models are prepared by Load.
type LoadOptions struct {
	// Occlusion mesh of the object, OFF format. A splat mesh is built when empty.
	MeshPath string
	// Camera position in scene coordinates, required in partial view.
	Viewpoint *r3.Vector
	// Subsample scenes larger than 10000 points.
	Light bool
	// Estimate surface normals of R3 models before matching.
	ComputeNormals bool
}

// FileLoadOptions are the LoadOptions of LoadFiles, with the viewpoint read from a file.
type FileLoadOptions struct {
	LoadOptions
	ViewpointPath string
}
