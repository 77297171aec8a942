package poseestimator

import "github.com/pkg/errors"

var (
	// ErrEmptyCloud is returned when the object or the scene has no points.
	ErrEmptyCloud = errors.New("object and scene must both contain at least one point")
	// ErrDomainMismatch is returned when the object and the scene do not live in the same domain.
	ErrDomainMismatch = errors.New("object and scene must be in the same domain")
	// ErrDegenerateBandwidth is returned when a search bandwidth is not positive.
	ErrDegenerateBandwidth = errors.New("bandwidth must be positive")
	// ErrMissingViewpoint is returned when partial view is requested without a viewpoint.
	ErrMissingViewpoint = errors.New("partial view requires a viewpoint")
	// ErrNotLoaded is returned by operations that need models before Load succeeded.
	ErrNotLoaded = errors.New("object and scene models are not loaded")
	// ErrForbiddenState is returned when the acceptance loop ends without reaching a decision.
	ErrForbiddenState = errors.New("acceptance loop ended without a decision")
	// ErrPartialViewUnsupported is returned when partial view is requested from a build without it.
	ErrPartialViewUnsupported = errors.New("partial view requires a build with partial view support")
)
