package poseestimator

import (
	"math"

	"go.viam.com/posematch/utils"
)

const (
	startTemperature = 0.5
	finalTemperature = 0.05
)

// Temperature returns the annealing temperature of step i of a schedule spanning f steps. It decays
// geometrically from 0.5 and stays at 0.05 once i reaches f.
func Temperature(i, f int) float64 {
	if f <= 0 {
		return finalTemperature
	}
	t := startTemperature * math.Pow(finalTemperature/startTemperature, float64(i)/float64(f))
	return math.Max(t, finalTemperature)
}

// chainTemperature is the temperature of step i of a run of nSteps. The chain cools over the first
// fifth of the run and stays at the final temperature afterwards.
func chainTemperature(i, nSteps int) float64 {
	return Temperature(i, utils.MaxInt(nSteps/5, 1))
}

// bandwidthsAt interpolates the local proposal bandwidths for step i of nSteps: location shrinks
// from objectSize/10 to objectSize/40 and orientation from 0.1 to 0.02.
func bandwidthsAt(i, nSteps int, objectSize float64) (float64, float64) {
	locStart, locEnd := objectSize/10, objectSize/40
	oriStart, oriEnd := 0.1, 0.02
	e := nSteps - 1
	if e <= 0 {
		return locStart, oriStart
	}
	frac := float64(i) / float64(e)
	return utils.Lerp(locStart, locEnd, frac), utils.Lerp(oriStart, oriEnd, frac)
}
