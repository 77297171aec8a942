// Package poseestimator estimates the rigid transformation that best aligns an object model with a
// scene model. The search runs a population of independent, annealed Metropolis-Hastings chains over
// SE(3), scoring poses by the kernel density of the scene at the transformed object points.
package poseestimator

import (
	"context"
	"math/rand"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/posematch/logging"
	"go.viam.com/posematch/pointcloud"
	"go.viam.com/posematch/spatialmath"
	"go.viam.com/posematch/utils"
)

// PoseEstimator aligns an object model with a scene model.
type PoseEstimator struct {
	cfg      Config
	strategy pointcloud.EvalStrategy
	logger   logging.Logger
	clock    clock.Clock

	object     *pointcloud.Model
	scene      *pointcloud.Model
	objectSize float64
	view       viewMode

	mu        sync.Mutex
	factor    CustomIntegrandFactor
	sink      ProgressSink
	lastStats ChainStats
}

// New returns an estimator for the given configuration. Models must be loaded before searching.
func New(cfg Config, logger logging.Logger) (*PoseEstimator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	strategy, err := pointcloud.ParseEvalStrategy(cfg.Strategy)
	if err != nil {
		return nil, err
	}
	return &PoseEstimator{
		cfg:      cfg,
		strategy: strategy,
		logger:   logger,
		clock:    clock.New(),
		factor:   NewUnitFactor(),
	}, nil
}

// Config returns the configuration in use, defaults applied.
func (pe *PoseEstimator) Config() Config {
	return pe.cfg
}

// Load prepares the object and scene models for matching. The estimator takes ownership of both
// models; bandwidths, statistics and spatial indices are set on them.
func (pe *PoseEstimator) Load(object, scene *pointcloud.Model, opts LoadOptions) error {
	if object == nil || scene == nil || object.Size() == 0 || scene.Size() == 0 {
		return ErrEmptyCloud
	}

	if opts.ComputeNormals {
		for _, m := range []*pointcloud.Model{object, scene} {
			if m.Domain() != pointcloud.R3 {
				continue
			}
			if err := m.ComputeNormals(pointcloud.DefaultNormalNeighbors); err != nil {
				return errors.Wrap(err, "computing normals")
			}
		}
	}

	if object.Domain() != scene.Domain() {
		return errors.Wrapf(ErrDomainMismatch, "object is %v, scene is %v", object.Domain(), scene.Domain())
	}

	if opts.Light && scene.Size() > lightSceneSize {
		pe.logger.Infof("subsampling scene from %d to %d points", scene.Size(), lightSceneSize)
		scene = scene.Sample(rand.New(rand.NewSource(pe.cfg.Seed)), lightSceneSize)
	}

	objectSize := object.ComputeStatistics().Scale
	if objectSize <= 0 {
		return errors.Wrap(ErrDegenerateBandwidth, "object has no spatial extent")
	}
	locH := pe.cfg.LocH
	if locH <= 0 {
		locH = objectSize / 10
	}
	object.SetBandwidths(locH, pe.cfg.OriH)
	scene.SetBandwidths(locH, pe.cfg.OriH)
	object.ComputeStatistics()
	scene.ComputeStatistics()
	scene.BuildKDTree()

	var view viewMode = fullView{object: object}
	if pe.cfg.PartialView {
		if opts.Viewpoint == nil {
			return ErrMissingViewpoint
		}
		if err := prepareMesh(object, opts.MeshPath); err != nil {
			return err
		}
		var err error
		if view, err = newPartialView(object, *opts.Viewpoint, pe.cfg.MeshTolerance); err != nil {
			return err
		}
	}

	pe.object = object
	pe.scene = scene
	pe.objectSize = objectSize
	pe.view = view
	pe.logger.Debugw("models loaded", "domain", object.Domain(), "object", object.Size(),
		"scene", scene.Size(), "object_size", objectSize, "loc_h", locH, "ori_h", pe.cfg.OriH)
	return nil
}

// prepareMesh attaches the occlusion mesh of the object, read from path or built from its points.
func prepareMesh(object *pointcloud.Model, path string) error {
	if path != "" {
		mesh, err := pointcloud.ReadOFFMesh(path)
		if err != nil {
			return errors.Wrapf(err, "reading mesh %q", path)
		}
		object.SetMesh(mesh)
		return nil
	}
	if object.Mesh() != nil {
		return nil
	}
	return errors.Wrap(object.BuildMesh(), "building mesh")
}

// LoadFiles reads the object and scene models, and the viewpoint when configured, then loads them.
func (pe *PoseEstimator) LoadFiles(objectPath, scenePath string, opts FileLoadOptions) error {
	object, err := pointcloud.NewFromFile(objectPath, pe.logger)
	if err != nil {
		return errors.Wrapf(err, "reading object %q", objectPath)
	}
	scene, err := pointcloud.NewFromFile(scenePath, pe.logger)
	if err != nil {
		return errors.Wrapf(err, "reading scene %q", scenePath)
	}
	loadOpts := opts.LoadOptions
	if loadOpts.Viewpoint == nil && opts.ViewpointPath != "" {
		vp, err := pointcloud.ReadViewpoint(opts.ViewpointPath)
		if err != nil {
			return errors.Wrapf(err, "reading viewpoint %q", opts.ViewpointPath)
		}
		loadOpts.Viewpoint = &vp
	}
	return pe.Load(object, scene, loadOpts)
}

func (pe *PoseEstimator) loaded() bool {
	return pe.object != nil && pe.scene != nil
}

// ObjectModel returns the loaded object model.
func (pe *PoseEstimator) ObjectModel() *pointcloud.Model {
	return pe.object
}

// SceneModel returns the loaded scene model.
func (pe *PoseEstimator) SceneModel() *pointcloud.Model {
	return pe.scene
}

// ObjectSize returns the characteristic scale of the object.
func (pe *PoseEstimator) ObjectSize() float64 {
	return pe.objectSize
}

// CustomIntegrandFactor returns the factor constraining the search.
func (pe *PoseEstimator) CustomIntegrandFactor() CustomIntegrandFactor {
	pe.mu.Lock()
	defer pe.mu.Unlock()
	return pe.factor
}

// SetCustomIntegrandFactor sets the factor constraining the search. A nil factor restores the unit
// factor. Runs already started keep the factor they began with.
func (pe *PoseEstimator) SetCustomIntegrandFactor(f CustomIntegrandFactor) {
	pe.mu.Lock()
	defer pe.mu.Unlock()
	if f == nil {
		f = NewUnitFactor()
	}
	pe.factor = f
}

// SetProgressSink sets where progress is reported when the Progress option is on.
func (pe *PoseEstimator) SetProgressSink(sink ProgressSink) {
	pe.mu.Lock()
	defer pe.mu.Unlock()
	pe.sink = sink
}

// LastStats returns the iteration counts summed over the chains of the last run.
func (pe *PoseEstimator) LastStats() ChainStats {
	pe.mu.Lock()
	defer pe.mu.Unlock()
	return pe.lastStats
}

// newSearch snapshots the state shared by the chains of a run.
func (pe *PoseEstimator) newSearch(n int, p *progress) *search {
	noise := whiteNoisePower
	if pe.strategy == pointcloud.WeightedSumEval {
		noise /= float64(pe.scene.Size())
	}
	return &search{
		object:     pe.object,
		scene:      pe.scene,
		objectSize: pe.objectSize,
		n:          n,
		strategy:   pe.strategy,
		noise:      noise,
		view:       pe.view,
		factor:     pe.CustomIntegrandFactor(),
		progress:   p,
		logger:     pe.logger,
	}
}

// sampleBudget is the number of object points evaluated per iteration.
func (pe *PoseEstimator) sampleBudget() int {
	if pe.cfg.N > 0 {
		return pe.cfg.N
	}
	n := pe.object.Size()
	if n > maxSampleBudget {
		pe.logger.Warnf("object has %d points, evaluating a sample of %d per iteration; set n to override",
			n, maxSampleBudget)
		n = maxSampleBudget
	}
	return n
}

type chainResult struct {
	best  Hypothesis
	stats ChainStats
}

// ModelToSceneTransformation searches for the pose of the object in the scene. Every chain runs its own
// annealed search; the heaviest result is rescored with FindMatchingScore before being returned.
func (pe *PoseEstimator) ModelToSceneTransformation(ctx context.Context) (Hypothesis, error) {
	if !pe.loaded() {
		return Hypothesis{}, ErrNotLoaded
	}
	n := pe.sampleBudget()

	var p *progress
	if pe.cfg.Progress {
		pe.mu.Lock()
		sink := pe.sink
		pe.mu.Unlock()
		if sink == nil {
			sink = nopSink{}
		}
		// one tick every 10 of the 10n steps of a chain
		p = startProgress(sink, pe.cfg.Chains*n, pe.clock)
	}
	s := pe.newSearch(n, p)

	tasks := make([]utils.Task[chainResult], pe.cfg.Chains)
	for i := range tasks {
		c := newChain(s, i, pe.cfg.Seed+int64(i))
		tasks[i] = func(ctx context.Context) (chainResult, error) {
			best, err := c.run(ctx)
			return chainResult{best: best, stats: c.stats}, err
		}
	}

	var (
		results []chainResult
		err     error
	)
	if pe.cfg.Parallelization == ParallelizationSerial || !utils.ParallelAvailable() {
		pe.logger.Warn("running chains serially, this may take a while")
		results, err = utils.RunSerial(ctx, tasks)
	} else {
		results, err = utils.RunParallel(ctx, tasks)
	}
	p.stop()
	if err != nil {
		return Hypothesis{}, err
	}

	var total ChainStats
	for _, r := range results {
		total = total.Add(r.stats)
	}
	pe.mu.Lock()
	pe.lastStats = total
	pe.mu.Unlock()

	best := lo.MaxBy(results, func(a, b chainResult) bool {
		return a.best.Weight > b.best.Weight
	}).best
	pe.logChainSummary(results, total)

	best.Weight = s.score(best.Pose, pe.cfg.Scoring)
	return best, nil
}

func (pe *PoseEstimator) logChainSummary(results []chainResult, total ChainStats) {
	weights := lo.Map(results, func(r chainResult, _ int) float64 { return r.best.Weight })
	mean, err := stats.Mean(weights)
	if err != nil {
		return
	}
	sd, err := stats.StandardDeviation(weights)
	if err != nil {
		return
	}
	median, err := stats.Median(weights)
	if err != nil {
		return
	}
	pe.logger.Debugw("chains finished", "chains", len(results), "mean_weight", mean, "median_weight", median,
		"stddev_weight", sd, "accepted", total.Accepted, "rejected", total.Rejected,
		"early_aborts", total.EarlyAborts, "proposal_aborts", total.ProposalAborts)
}

// AlignedModel returns a copy of the object moved by pose. In partial view the points visible from the
// viewpoint are colored VisibleColor and the others OccludedColor.
func (pe *PoseEstimator) AlignedModel(pose spatialmath.Pose) (*pointcloud.Model, error) {
	if !pe.loaded() {
		return nil, ErrNotLoaded
	}
	return pe.view.annotated(pose).Transformed(pose), nil
}

// WriteAlignedModel writes AlignedModel(pose) to a point cloud file.
func (pe *PoseEstimator) WriteAlignedModel(path string, pose spatialmath.Pose) error {
	model, err := pe.AlignedModel(pose)
	if err != nil {
		return err
	}
	return pointcloud.WriteToFile(model, path, pointcloud.PCDBinary)
}
