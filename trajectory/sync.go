package trajectory

import (
	"math"

	"github.com/pkg/errors"
)

// SynchronizeParameters forces the two profiles of a move to share a total
// duration, since the robot must stop translating and rotating at the same
// instant. The shorter profile is re-solved against the longer one's duration;
// a zero distance profile needs no stretching because every lookup on it
// clamps to rest anyway.
func SynchronizeParameters(p1, p2 *SCurveParameters, solver SolverParameters) error {
	t1 := p1.Duration()
	t2 := p2.Duration()
	if math.Abs(t1-t2) <= solver.Tolerance {
		return nil
	}
	shorter, target := p1, t2
	if t2 < t1 {
		shorter, target = p2, t1
	}
	if math.Abs(shorter.Distance()) < distanceEps {
		return nil
	}
	return solveInverse(shorter, target, solver)
}

// solveInverse re-derives the limits of a profile so that its original
// distance is covered in exactly targetTime. Duration and distance are fixed
// and the limits are the unknowns, which has no closed form across limit
// regimes, so a damped multiplicative root-finder re-runs the forward solve
// with scaled limits until the duration lands within tolerance. The
// correction step decays geometrically so overshoot swings settle.
func solveInverse(params *SCurveParameters, targetTime float64, solver SolverParameters) error {
	dist := params.Distance()
	v := math.Abs(params.VelLimit)
	a := math.Abs(params.AccLimit)
	j := math.Abs(params.JerkLimit)
	if v <= 0 || a <= 0 || j <= 0 {
		return errors.New("inverse solve requires a previously solved profile")
	}
	step := 1.0
	prevDiff := 0.0
	for i := 0; i < solver.MaxIterations; i++ {
		candidate, err := GenerateSCurve(dist, DynamicLimits{MaxVel: v, MaxAcc: a, MaxJerk: j}, solver)
		if err != nil {
			return errors.Wrap(err, "inverse solve")
		}
		duration := candidate.Duration()
		diff := duration - targetTime
		if math.Abs(diff) <= solver.Tolerance {
			*params = candidate
			return nil
		}
		// A duration short of the target needs lower limits and vice versa.
		// Each overshoot past the target geometrically shrinks the step so
		// the correction settles instead of ringing.
		if i > 0 && diff*prevDiff < 0 {
			step *= solver.ExponentDecay
		}
		prevDiff = diff
		ratio := math.Pow(duration/targetTime, step)
		v *= ratio
		a *= ratio
	}
	return errors.Errorf(
		"inverse solve did not reach duration %.4f within %d iterations", targetTime, solver.MaxIterations)
}
