package cli

import (
	"io"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/posematch/pointcloud"
)

const (
	flagTolerance    = "tolerance"
	flagColorizeOnly = "colorize-only"

	defaultVisibilityTolerance = 1e-6
)

// NewPartialViewApp returns the partialview tool writing to the given writers.
func NewPartialViewApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:      "partialview",
		Usage:     "keep the points of a cloud that are visible from a viewpoint",
		ArgsUsage: "INPUT OUTPUT",
		Writer:    out,
		ErrWriter: errOut,
		Flags: []cli.Flag{
			debugFlag(),
			&cli.StringFlag{
				Name:     flagViewpoint,
				Aliases:  []string{"v"},
				Usage:    "`FILE` holding the viewpoint X Y Z coordinates",
				Required: true,
			},
			&cli.StringFlag{
				Name:    flagMesh,
				Aliases: []string{"m"},
				Usage:   "OFF `FILE` holding the occluding mesh, built from the input when omitted",
			},
			&cli.Float64Flag{
				Name:    flagTolerance,
				Aliases: []string{"t"},
				Usage:   "points up to this distance behind the mesh are still visible",
				Value:   defaultVisibilityTolerance,
			},
			&cli.BoolFlag{
				Name:    flagColorizeOnly,
				Aliases: []string{"c"},
				Usage:   "keep occluded points and color them red, visible points blue",
			},
			outputTypeFlag(),
		},
		Action: PartialViewAction,
	}
}

// PartialViewAction writes the partial view of a cloud.
func PartialViewAction(c *cli.Context) error {
	if c.NArg() != 2 {
		return errors.Errorf("expected INPUT and OUTPUT arguments, got %d arguments", c.NArg())
	}
	in, out := c.Args().Get(0), c.Args().Get(1)
	logger := newLogger(c, "partialview")

	tol := c.Float64(flagTolerance)
	if !pointcloud.ValidTolerance(tol) {
		return errors.Errorf("tolerance must be non negative, got %v", tol)
	}
	pcdType, err := pointcloud.ParsePCDType(c.String(flagOutputType))
	if err != nil {
		return err
	}

	model, err := pointcloud.NewFromFile(in, logger)
	if err != nil {
		return err
	}
	viewpoint, err := pointcloud.ReadViewpoint(c.String(flagViewpoint))
	if err != nil {
		return err
	}
	if meshPath := c.String(flagMesh); meshPath != "" {
		mesh, err := pointcloud.ReadOFFMesh(meshPath)
		if err != nil {
			return err
		}
		model.SetMesh(mesh)
	} else if err := model.BuildMesh(); err != nil {
		return err
	}

	visible := model.PartialView(viewpoint, tol)
	view := model.Subset(visible)
	if c.Bool(flagColorizeOnly) {
		view = model.PartialViewModel(viewpoint, tol, true)
	}
	if err := pointcloud.WriteToFile(view, out, pcdType); err != nil {
		return err
	}
	printf(c.App.Writer, "%d of %d points visible, wrote %d points to %s", len(visible), model.Size(), view.Size(), out)
	return nil
}
