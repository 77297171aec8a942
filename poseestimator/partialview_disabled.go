//go:build no_partialview

package poseestimator

import (
	"github.com/golang/geo/r3"

	"go.viam.com/posematch/pointcloud"
)

const partialViewAvailable = false

func newPartialView(*pointcloud.Model, r3.Vector, float64) (viewMode, error) {
	return nil, ErrPartialViewUnsupported
}
