package trajectory

// Lookup1D returns the position, velocity, and acceleration of a profile at
// the given time. The eight switch points partition time into up to seven
// closed-open regions; an ordered scan finds the containing region and the
// closed form polynomial for that region kind is evaluated from the region's
// start state. Times before the first switch point clamp to the initial state
// and times past the last clamp to the final at-rest, full-distance state, so
// the trajectory is simply complete past its end.
func Lookup1D(time float64, params *SCurveParameters) (pos, vel, acc float64) {
	points := &params.SwitchPoints
	if time <= points[0].Time {
		return points[0].Position, points[0].Velocity, points[0].Acceleration
	}
	for region := 1; region < numSwitchPoints; region++ {
		if time < points[region].Time {
			return computeKinematicsBasedOnRegion(params, region, time-points[region-1].Time)
		}
	}
	last := points[numSwitchPoints-1]
	return last.Position, last.Velocity, last.Acceleration
}

// computeKinematicsBasedOnRegion evaluates the constant jerk polynomial for
// one region, dt seconds past the region's start switch point. Zero width
// regions are never selected by the lookup scan.
func computeKinematicsBasedOnRegion(params *SCurveParameters, region int, dt float64) (pos, vel, acc float64) {
	start := params.SwitchPoints[region-1]
	jerk := regionJerkSign[region] * params.JerkLimit
	pos = start.Position + start.Velocity*dt + 0.5*start.Acceleration*dt*dt + jerk*dt*dt*dt/6
	vel = start.Velocity + start.Acceleration*dt + 0.5*jerk*dt*dt
	acc = start.Acceleration + jerk*dt
	return pos, vel, acc
}
