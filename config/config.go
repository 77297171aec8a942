// Package config defines the configuration file of the pose estimation tools.
package config

import (
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/posematch/pointcloud"
	"go.viam.com/posematch/poseestimator"
)

// Config describes one pose estimation run: the search parameters and the files it reads and writes.
type Config struct {
	ConfigFilePath string `json:"-"`

	Estimator poseestimator.Config `json:"estimator"`

	Object string `json:"object"`
	Scene  string `json:"scene"`
	// OFF mesh of the object, used in partial view.
	Mesh string `json:"mesh,omitempty"`
	// File holding the camera position, used in partial view.
	Viewpoint string `json:"viewpoint,omitempty"`

	Light          bool `json:"light,omitempty"`
	ComputeNormals bool `json:"compute_normals,omitempty"`

	// Where the aligned object is written, nothing is written when empty.
	Output     string `json:"output,omitempty"`
	OutputType string `json:"output_type,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate(path string) error {
	if c.Object == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "object")
	}
	if c.Scene == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "scene")
	}
	if c.Estimator.PartialView && c.Viewpoint == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "viewpoint")
	}
	if err := c.Estimator.Validate(); err != nil {
		return goutils.NewConfigValidationError(path+".estimator", err)
	}
	if _, err := c.PCDType(); err != nil {
		return goutils.NewConfigValidationError(path, err)
	}
	return nil
}

// PCDType is the encoding of the aligned model, binary when unset.
func (c *Config) PCDType() (pointcloud.PCDType, error) {
	t, err := pointcloud.ParsePCDType(c.OutputType)
	if err != nil {
		return t, errors.Wrap(err, "output_type")
	}
	return t, nil
}

// FileLoadOptions returns the options handed to poseestimator.PoseEstimator.LoadFiles.
func (c *Config) FileLoadOptions() poseestimator.FileLoadOptions {
	return poseestimator.FileLoadOptions{
		LoadOptions: poseestimator.LoadOptions{
			MeshPath:       c.Mesh,
			Light:          c.Light,
			ComputeNormals: c.ComputeNormals,
		},
		ViewpointPath: c.Viewpoint,
	}
}
