// Package cli contains the command line tools of posematch.
package cli

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/posematch/config"
	"go.viam.com/posematch/logging"
	"go.viam.com/posematch/pointcloud"
	"go.viam.com/posematch/poseestimator"
	"go.viam.com/posematch/spatialmath"
)

const (
	// Flags.
	flagConfig         = "config"
	flagDebug          = "debug"
	flagLocH           = "loc-h"
	flagOriH           = "ori-h"
	flagChains         = "chains"
	flagN              = "n"
	flagPartialView    = "partial-view"
	flagViewpoint      = "viewpoint"
	flagMesh           = "mesh"
	flagMeshTolerance  = "mesh-tolerance"
	flagLight          = "light"
	flagComputeNormals = "compute-normals"
	flagProgress       = "progress"
	flagStrategy       = "strategy"
	flagScoring        = "scoring"
	flagSerial         = "serial"
	flagSeed           = "seed"
	flagStats          = "stats"
	flagOutput         = "output"
	flagOutputType     = "output-type"
)

func debugFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    flagDebug,
		Aliases: []string{"vvv"},
		Usage:   "enable debug logging",
	}
}

func outputTypeFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  flagOutputType,
		Usage: "pcd encoding of the written cloud: ascii, binary or binary_compressed",
		Value: "binary",
	}
}

// NewPoseEstimateApp returns the poseestimate tool writing to the given writers.
func NewPoseEstimateApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:      "poseestimate",
		Usage:     "estimate the pose of an object in a scene",
		ArgsUsage: "[OBJECT SCENE]",
		Writer:    out,
		ErrWriter: errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`, flags override its values",
			},
			debugFlag(),
			&cli.Float64Flag{Name: flagLocH, Usage: "location bandwidth, a tenth of the object size when unset"},
			&cli.Float64Flag{Name: flagOriH, Usage: "orientation bandwidth"},
			&cli.IntFlag{Name: flagChains, Usage: "number of independent chains"},
			&cli.IntFlag{Name: flagN, Usage: "object points evaluated per iteration"},
			&cli.BoolFlag{Name: flagPartialView, Usage: "match only the part of the object seen from the viewpoint"},
			&cli.StringFlag{Name: flagViewpoint, Usage: "`FILE` holding the camera position"},
			&cli.StringFlag{Name: flagMesh, Usage: "OFF `FILE` holding the object occlusion mesh"},
			&cli.Float64Flag{Name: flagMeshTolerance, Usage: "distance behind the mesh at which points are still visible"},
			&cli.BoolFlag{Name: flagLight, Usage: "subsample large scenes"},
			&cli.BoolFlag{Name: flagComputeNormals, Usage: "estimate surface normals of point only clouds"},
			&cli.BoolFlag{Name: flagProgress, Usage: "show a progress bar"},
			&cli.StringFlag{Name: flagStrategy, Usage: "density evaluation: max or weighted_sum"},
			&cli.StringFlag{Name: flagScoring, Usage: "final score: forward or symmetric"},
			&cli.BoolFlag{Name: flagSerial, Usage: "run the chains one after another"},
			&cli.Int64Flag{Name: flagSeed, Usage: "random seed"},
			&cli.BoolFlag{Name: flagStats, Usage: "print the outcome counts of the chain iterations"},
			&cli.StringFlag{Name: flagOutput, Usage: "write the aligned object to `FILE`"},
			outputTypeFlag(),
		},
		Action: PoseEstimateAction,
	}
}

func newLogger(c *cli.Context, name string) logging.Logger {
	if c.Bool(flagDebug) {
		return logging.NewDebugLogger(name)
	}
	return logging.NewLogger(name)
}

// configFromContext reads the config file if any, then applies the arguments and flags set on the
// command line.
func configFromContext(c *cli.Context, logger logging.Logger) (*config.Config, error) {
	cfg := &config.Config{}
	if path := c.String(flagConfig); path != "" {
		var err error
		if cfg, err = config.Read(path, logger); err != nil {
			return nil, err
		}
	}

	switch c.NArg() {
	case 0:
	case 2:
		cfg.Object = c.Args().Get(0)
		cfg.Scene = c.Args().Get(1)
	default:
		return nil, errors.Errorf("expected OBJECT and SCENE arguments, got %d arguments", c.NArg())
	}

	est := &cfg.Estimator
	if c.IsSet(flagLocH) {
		est.LocH = c.Float64(flagLocH)
	}
	if c.IsSet(flagOriH) {
		est.OriH = c.Float64(flagOriH)
	}
	if c.IsSet(flagChains) {
		est.Chains = c.Int(flagChains)
	}
	if c.IsSet(flagN) {
		est.N = c.Int(flagN)
	}
	if c.IsSet(flagPartialView) {
		est.PartialView = c.Bool(flagPartialView)
	}
	if c.IsSet(flagMeshTolerance) {
		est.MeshTolerance = c.Float64(flagMeshTolerance)
	}
	if c.IsSet(flagProgress) {
		est.Progress = c.Bool(flagProgress)
	}
	if c.IsSet(flagStrategy) {
		est.Strategy = c.String(flagStrategy)
	}
	if c.IsSet(flagScoring) {
		est.Scoring = poseestimator.Scoring(c.String(flagScoring))
	}
	if c.Bool(flagSerial) {
		est.Parallelization = poseestimator.ParallelizationSerial
	}
	if c.IsSet(flagSeed) {
		est.Seed = c.Int64(flagSeed)
	}
	if c.IsSet(flagViewpoint) {
		cfg.Viewpoint = c.String(flagViewpoint)
	}
	if c.IsSet(flagMesh) {
		cfg.Mesh = c.String(flagMesh)
	}
	if c.IsSet(flagLight) {
		cfg.Light = c.Bool(flagLight)
	}
	if c.IsSet(flagComputeNormals) {
		cfg.ComputeNormals = c.Bool(flagComputeNormals)
	}
	if c.IsSet(flagOutput) {
		cfg.Output = c.String(flagOutput)
	}
	if c.IsSet(flagOutputType) {
		cfg.OutputType = c.String(flagOutputType)
	}

	if err := cfg.Validate("poseestimate"); err != nil {
		return nil, err
	}
	return cfg, nil
}

// PoseEstimateAction runs a search and prints the pose of the object in the scene.
func PoseEstimateAction(c *cli.Context) error {
	logger := newLogger(c, "poseestimate")
	cfg, err := configFromContext(c, logger)
	if err != nil {
		return err
	}

	pe, err := poseestimator.New(cfg.Estimator, logger)
	if err != nil {
		return err
	}
	if err := pe.LoadFiles(cfg.Object, cfg.Scene, cfg.FileLoadOptions()); err != nil {
		return err
	}
	if cfg.Estimator.Progress {
		pe.SetProgressSink(newProgressBar(c.App.ErrWriter, "Estimating pose"))
	}

	h, err := pe.ModelToSceneTransformation(c.Context)
	if err != nil {
		return err
	}
	printPose(c.App.Writer, h)
	if c.Bool(flagStats) {
		printStats(c.App.Writer, pe.LastStats())
	}

	if cfg.Output != "" {
		if err := writeAligned(pe, cfg, h.Pose); err != nil {
			return err
		}
		printf(c.App.Writer, "wrote aligned object to %s", cfg.Output)
	}
	return nil
}

func writeAligned(pe *poseestimator.PoseEstimator, cfg *config.Config, pose spatialmath.Pose) error {
	pcdType, err := cfg.PCDType()
	if err != nil {
		return err
	}
	aligned, err := pe.AlignedModel(pose)
	if err != nil {
		return err
	}
	return pointcloud.WriteToFile(aligned, cfg.Output, pcdType)
}

func printPose(w io.Writer, h poseestimator.Hypothesis) {
	p := h.Pose.Point()
	q := h.Pose.Orientation().Quaternion()
	printf(w, "translation: %.6f %.6f %.6f", p.X, p.Y, p.Z)
	printf(w, "quaternion (w x y z): %.6f %.6f %.6f %.6f", q.Real, q.Imag, q.Jmag, q.Kmag)
	printf(w, "pose: %s", spatialmath.PrettyPrint(h.Pose))
	printf(w, "score: %.6g", h.Weight)
}

// printStats prints a table of iteration outcomes summed over the chains.
func printStats(w io.Writer, s poseestimator.ChainStats) {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Outcome", "Iterations"})
	t.AppendRow(table.Row{poseestimator.Accepted, s.Accepted})
	t.AppendRow(table.Row{poseestimator.Rejected, s.Rejected})
	t.AppendRow(table.Row{poseestimator.EarlyAborted, s.EarlyAborts})
	t.AppendRow(table.Row{poseestimator.NoProposal, s.ProposalAborts})
	t.AppendFooter(table.Row{"total", s.Accepted + s.Rejected + s.EarlyAborts + s.ProposalAborts})
	printf(w, "%s", t.Render())
}

// printf prints a line to the writer.
func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}
