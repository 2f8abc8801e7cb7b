// Package trajectory synthesizes jerk-limited motion profiles for a wheeled
// mobile robot and serves time-indexed lookups of the reference state so a
// control loop can track them. A trajectory couples one translational and one
// rotational S-curve profile that are synchronized to finish at the same
// instant, so the robot reaches its target position and heading together.
package trajectory

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
)

// Point is a robot pose in the plane. Equality is exact floating point
// comparison.
type Point struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Heading float64 `json:"heading"`
}

func (p Point) String() string {
	return fmt.Sprintf("[x: %.3f, y: %.3f, a: %.3f]", p.X, p.Y, p.Heading)
}

// Velocity is a robot twist in the plane, expressed as cartesian rates plus an
// angular rate.
type Velocity struct {
	VX float64 `json:"vx"`
	VY float64 `json:"vy"`
	VA float64 `json:"va"`
}

func (v Velocity) String() string {
	return fmt.Sprintf("[vx: %.3f, vy: %.3f, va: %.3f]", v.VX, v.VY, v.VA)
}

// DefaultNearZeroEps is the absolute tolerance used by NearZero when the
// caller passes a non-positive epsilon.
const DefaultNearZeroEps = 1e-6

// NearZero reports whether every component of the twist is within eps of zero.
// A non-positive eps falls back to DefaultNearZeroEps.
func (v Velocity) NearZero(eps float64) bool {
	if eps <= 0 {
		eps = DefaultNearZeroEps
	}
	return math.Abs(v.VX) < eps && math.Abs(v.VY) < eps && math.Abs(v.VA) < eps
}

// DynamicLimits is the motion envelope for a single axis.
type DynamicLimits struct {
	MaxVel  float64 `json:"max_vel"`
	MaxAcc  float64 `json:"max_acc"`
	MaxJerk float64 `json:"max_jerk"`
}

// Scale returns a copy of the limits with every value multiplied by c. Used to
// derive fine mode limits from the coarse ones.
func (l DynamicLimits) Scale(c float64) DynamicLimits {
	return DynamicLimits{
		MaxVel:  c * l.MaxVel,
		MaxAcc:  c * l.MaxAcc,
		MaxJerk: c * l.MaxJerk,
	}
}

// SwitchPoint is a fully resolved kinematic state at a phase boundary of an
// S-curve profile.
type SwitchPoint struct {
	Time         float64
	Position     float64
	Velocity     float64
	Acceleration float64
}

// numSwitchPoints is the initial state plus the seven phase boundaries of the
// classic jerk limited S-curve. The table is a fixed size array so a profile
// never allocates.
const numSwitchPoints = 8

// SCurveParameters is the complete description of one 1-D jerk limited
// profile. The recorded limits are the ones actually used after solving, which
// may be lower than the configured envelope, and carry the sign of the move.
// Switch point times are non-decreasing; the final switch point holds the
// total signed distance at zero velocity.
type SCurveParameters struct {
	VelLimit     float64
	AccLimit     float64
	JerkLimit    float64
	SwitchPoints [numSwitchPoints]SwitchPoint
}

// Duration returns the total time of the profile.
func (p *SCurveParameters) Duration() float64 {
	return p.SwitchPoints[numSwitchPoints-1].Time
}

// Distance returns the total signed distance covered by the profile.
func (p *SCurveParameters) Distance() float64 {
	return p.SwitchPoints[numSwitchPoints-1].Position
}

func (p *SCurveParameters) String() string {
	return fmt.Sprintf(
		"limits: [v: %.3f, a: %.3f, j: %.3f], switch times: [%.3f, %.3f, %.3f, %.3f, %.3f, %.3f, %.3f, %.3f]",
		p.VelLimit, p.AccLimit, p.JerkLimit,
		p.SwitchPoints[0].Time, p.SwitchPoints[1].Time, p.SwitchPoints[2].Time, p.SwitchPoints[3].Time,
		p.SwitchPoints[4].Time, p.SwitchPoints[5].Time, p.SwitchPoints[6].Time, p.SwitchPoints[7].Time)
}

// Trajectory is a fully planned point to point move: a unit translation
// direction, a rotation sign, and one synchronized S-curve profile per axis,
// anchored at the initial pose.
type Trajectory struct {
	TransDirection r3.Vector
	RotDirection   float64
	InitialPoint   Point
	TransParams    SCurveParameters
	RotParams      SCurveParameters
	Complete       bool
}

// Duration returns the synchronized total duration of the move.
func (t *Trajectory) Duration() float64 {
	return math.Max(t.TransParams.Duration(), t.RotParams.Duration())
}

// SolverParameters tunes the iterative numeric correction used where profile
// synthesis has no closed form. AlphaDecay shrinks the working acceleration
// limit when the constant-acceleration phase is infeasible, BetaDecay shrinks
// the working velocity limit when the cruise phase is infeasible, and
// ExponentDecay geometrically damps the correction step of the inverse solve.
type SolverParameters struct {
	MaxIterations int     `json:"max_iterations"`
	AlphaDecay    float64 `json:"alpha_decay"`
	BetaDecay     float64 `json:"beta_decay"`
	ExponentDecay float64 `json:"exponent_decay"`
	Tolerance     float64 `json:"tolerance"`
}

// DefaultSolverParameters returns tuning that converges for all in-envelope
// moves down to sub-micrometer distances.
func DefaultSolverParameters() SolverParameters {
	return SolverParameters{
		MaxIterations: 100,
		AlphaDecay:    0.7,
		BetaDecay:     0.7,
		ExponentDecay: 0.85,
		Tolerance:     1e-4,
	}
}

// MotionPlanningProblem is the complete, self-contained input to trajectory
// synthesis. It is built fresh per planning request and consumed immediately.
type MotionPlanningProblem struct {
	InitialPoint      Point
	TargetPoint       Point
	TranslationLimits DynamicLimits
	RotationLimits    DynamicLimits
	Solver            SolverParameters
}

// PVTPoint is the result of a trajectory lookup: the reference pose and twist
// at an elapsed time.
type PVTPoint struct {
	Position Point
	Velocity Velocity
	Time     float64
}

func (p PVTPoint) String() string {
	return fmt.Sprintf("[position: %s, velocity: %s, t: %.3f]", p.Position, p.Velocity, p.Time)
}
