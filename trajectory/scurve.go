package trajectory

import (
	"math"

	"github.com/pkg/errors"
)

// distanceEps is the distance below which a move is treated as zero length and
// gets an all-zero profile.
const distanceEps = 1e-9

// regionJerkSign maps each region (the span between switch points region-1 and
// region) to the jerk direction active within it. The seven regions of the
// full S-curve are jerk-up, constant acceleration, jerk-down, cruise,
// jerk-down, constant deceleration, jerk-up.
var regionJerkSign = [numSwitchPoints]float64{0, 1, 0, -1, 0, -1, 0, 1}

// GenerateSCurve builds the minimum time jerk limited profile that starts and
// ends at rest and covers exactly the signed distance dist without exceeding
// limits. Long moves saturate the limits and solve in closed form. Moves too
// short to reach the acceleration or velocity limit have no closed form
// satisfying distance and all three limits at once, so the working limits are
// shrunk by the solver's multiplicative decay steps until the constant
// acceleration and cruise phases come out feasible; the cruise duration then
// matches the distance exactly. Exhausting the iteration budget is an error,
// never a panic.
func GenerateSCurve(dist float64, limits DynamicLimits, solver SolverParameters) (SCurveParameters, error) {
	var params SCurveParameters
	if math.Abs(dist) < distanceEps {
		// Zero length move: all eight switch points stay at the origin and
		// every lookup clamps to rest.
		return params, nil
	}
	if limits.MaxVel <= 0 || limits.MaxAcc <= 0 || limits.MaxJerk <= 0 {
		return params, errors.Errorf("dynamic limits must be positive, got %+v", limits)
	}

	sign := 1.0
	if dist < 0 {
		sign = -1
	}
	d := math.Abs(dist)

	v := limits.MaxVel
	a := limits.MaxAcc
	j := limits.MaxJerk
	for i := 0; i < solver.MaxIterations; i++ {
		dtJ := a / j
		dtA := v/a - dtJ
		if dtA < 0 {
			if dtA > -floatSlop {
				dtA = 0
			} else {
				// The velocity limit is reached before the acceleration limit
				// can be; shrink the working acceleration limit.
				a *= solver.AlphaDecay
				continue
			}
		}
		dtV := (d - 2*rampDistance(a, j, dtJ, dtA)) / v
		if dtV < 0 {
			if dtV > -floatSlop {
				dtV = 0
			} else {
				// The move is too short to cruise at the velocity limit;
				// shrink the working velocity limit.
				v *= solver.BetaDecay
				continue
			}
		}
		params.VelLimit = sign * v
		params.AccLimit = sign * a
		params.JerkLimit = sign * j
		populateSwitchTimeParameters(&params, dtJ, dtA, dtV)
		return params, nil
	}
	return params, errors.Errorf(
		"s-curve solve for distance %g did not converge after %d iterations", dist, solver.MaxIterations)
}

// floatSlop absorbs float noise when a phase duration comes out at an exact
// regime boundary.
const floatSlop = 1e-12

// rampDistance returns the distance covered while accelerating from rest to
// the working velocity limit: a jerk phase of dtJ, a constant acceleration
// phase of dtA, and a mirrored jerk phase of dtJ. The deceleration ramp covers
// the same distance by symmetry.
func rampDistance(a, j, dtJ, dtA float64) float64 {
	d1 := j * dtJ * dtJ * dtJ / 6
	v1 := 0.5 * j * dtJ * dtJ
	d2 := v1*dtA + 0.5*a*dtA*dtA
	v2 := v1 + a*dtA
	d3 := v2*dtJ + 0.5*a*dtJ*dtJ - j*dtJ*dtJ*dtJ/6
	return d1 + d2 + d3
}

// populateSwitchTimeParameters fills the eight switch points by integrating
// the piecewise constant jerk dynamics forward from rest, each phase's end
// state seeding the next. Purely closed form; the phase durations are fixed by
// the time this runs.
func populateSwitchTimeParameters(params *SCurveParameters, dtJ, dtA, dtV float64) {
	durations := [numSwitchPoints]float64{0, dtJ, dtA, dtJ, dtV, dtJ, dtA, dtJ}
	params.SwitchPoints[0] = SwitchPoint{}
	for i := 1; i < numSwitchPoints; i++ {
		prev := params.SwitchPoints[i-1]
		dt := durations[i]
		jerk := regionJerkSign[i] * params.JerkLimit
		params.SwitchPoints[i] = SwitchPoint{
			Time:         prev.Time + dt,
			Position:     prev.Position + prev.Velocity*dt + 0.5*prev.Acceleration*dt*dt + jerk*dt*dt*dt/6,
			Velocity:     prev.Velocity + prev.Acceleration*dt + 0.5*jerk*dt*dt,
			Acceleration: prev.Acceleration + jerk*dt,
		}
	}
}
