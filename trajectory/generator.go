package trajectory

import (
	"math"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/openomni/navigation/utils"
)

// LimitsConfig bundles the coarse operating envelope of both axes and the
// scale used to derive the fine mode envelope from it. Fine mode trades speed
// for positioning accuracy.
type LimitsConfig struct {
	Translation DynamicLimits `json:"translation"`
	Rotation    DynamicLimits `json:"rotation"`
	FineScale   float64       `json:"fine_scale"`
}

// Validate checks that the envelope is usable.
func (c LimitsConfig) Validate() error {
	var err error
	if c.Translation.MaxVel <= 0 || c.Translation.MaxAcc <= 0 || c.Translation.MaxJerk <= 0 {
		err = multierr.Append(err, errors.New("translation limits must be positive"))
	}
	if c.Rotation.MaxVel <= 0 || c.Rotation.MaxAcc <= 0 || c.Rotation.MaxJerk <= 0 {
		err = multierr.Append(err, errors.New("rotation limits must be positive"))
	}
	if c.FineScale <= 0 || c.FineScale > 1 {
		err = multierr.Append(err, errors.New("fine_scale must be in (0, 1]"))
	}
	return err
}

// GeneratorConfig enumerates every tunable the generator needs, so it carries
// no implicit dependency on process wide initialization order.
type GeneratorConfig struct {
	Limits LimitsConfig     `json:"limits"`
	Solver SolverParameters `json:"solver"`
}

// Validate checks the config; zero solver fields pick up defaults rather than
// failing.
func (c GeneratorConfig) Validate() error {
	var err error
	if verr := c.Limits.Validate(); verr != nil {
		err = multierr.Append(err, verr)
	}
	if c.Solver.MaxIterations < 0 {
		err = multierr.Append(err, errors.New("solver max_iterations cannot be negative"))
	}
	if c.Solver.AlphaDecay < 0 || c.Solver.AlphaDecay >= 1 {
		err = multierr.Append(err, errors.New("solver alpha_decay must be in [0, 1)"))
	}
	if c.Solver.BetaDecay < 0 || c.Solver.BetaDecay >= 1 {
		err = multierr.Append(err, errors.New("solver beta_decay must be in [0, 1)"))
	}
	if c.Solver.ExponentDecay < 0 || c.Solver.ExponentDecay >= 1 {
		err = multierr.Append(err, errors.New("solver exponent_decay must be in [0, 1)"))
	}
	if c.Solver.Tolerance < 0 {
		err = multierr.Append(err, errors.New("solver tolerance cannot be negative"))
	}
	return err
}

// withDefaults fills zero solver fields from DefaultSolverParameters.
func (p SolverParameters) withDefaults() SolverParameters {
	def := DefaultSolverParameters()
	if p.MaxIterations == 0 {
		p.MaxIterations = def.MaxIterations
	}
	if p.AlphaDecay == 0 {
		p.AlphaDecay = def.AlphaDecay
	}
	if p.BetaDecay == 0 {
		p.BetaDecay = def.BetaDecay
	}
	if p.ExponentDecay == 0 {
		p.ExponentDecay = def.ExponentDecay
	}
	if p.Tolerance == 0 {
		p.Tolerance = def.Tolerance
	}
	return p
}

// BuildMotionPlanningProblem computes the displacement and angular difference
// between the two poses, selects the coarse or fine envelope, and packages
// everything into a self contained planning problem.
func BuildMotionPlanningProblem(
	initial, target Point,
	fineMode bool,
	limits LimitsConfig,
	solver SolverParameters,
) MotionPlanningProblem {
	trans := limits.Translation
	rot := limits.Rotation
	if fineMode {
		trans = trans.Scale(limits.FineScale)
		rot = rot.Scale(limits.FineScale)
	}
	return MotionPlanningProblem{
		InitialPoint:      initial,
		TargetPoint:       target,
		TranslationLimits: trans,
		RotationLimits:    rot,
		Solver:            solver,
	}
}

// GenerateTrajectory turns a planning problem into a complete trajectory: the
// displacement is normalized into a unit direction plus a distance, the
// angular difference (wrapped to (-pi, pi]) into a rotation sign plus a
// magnitude, each axis is solved independently, and the two profiles are
// synchronized to a common duration. The returned trajectory has Complete set
// only when every step succeeded.
func GenerateTrajectory(problem MotionPlanningProblem) (*Trajectory, error) {
	delta := r3.Vector{
		X: problem.TargetPoint.X - problem.InitialPoint.X,
		Y: problem.TargetPoint.Y - problem.InitialPoint.Y,
	}
	dist := delta.Norm()
	var direction r3.Vector
	if dist > distanceEps {
		direction = delta.Mul(1 / dist)
	}
	deltaAngle := utils.WrapAngleRad(problem.TargetPoint.Heading - problem.InitialPoint.Heading)

	traj := &Trajectory{
		TransDirection: direction,
		RotDirection:   utils.Sign(deltaAngle),
		InitialPoint:   problem.InitialPoint,
	}

	transParams, err := GenerateSCurve(dist, problem.TranslationLimits, problem.Solver)
	if err != nil {
		return traj, errors.Wrap(err, "translation axis")
	}
	rotParams, err := GenerateSCurve(math.Abs(deltaAngle), problem.RotationLimits, problem.Solver)
	if err != nil {
		return traj, errors.Wrap(err, "rotation axis")
	}
	if err := SynchronizeParameters(&transParams, &rotParams, problem.Solver); err != nil {
		return traj, errors.Wrap(err, "synchronizing axes")
	}
	traj.TransParams = transParams
	traj.RotParams = rotParams
	traj.Complete = true
	return traj, nil
}

// ErrNoTrajectory is returned by Lookup when no complete trajectory is held,
// either because no generate call succeeded yet or because the last one
// failed. Callers must not track a reference from an incomplete plan.
var ErrNoTrajectory = errors.New("no complete trajectory to look up")

// SmoothTrajectoryGenerator owns the currently active trajectory and serves
// reference lookups against it. Each generate call replaces the held
// trajectory wholesale; nothing is ever partially mutated. The type is not
// safe for concurrent use: the intended deployment is a single planning and
// control thread that generates once per move and looks up once per tick.
type SmoothTrajectoryGenerator struct {
	logger  golog.Logger
	limits  LimitsConfig
	solver  SolverParameters
	current *Trajectory
}

// NewSmoothTrajectoryGenerator validates the config and returns a generator
// holding no trajectory.
func NewSmoothTrajectoryGenerator(cfg GeneratorConfig, logger golog.Logger) (*SmoothTrajectoryGenerator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid trajectory generator config")
	}
	return &SmoothTrajectoryGenerator{
		logger: logger,
		limits: cfg.Limits,
		solver: cfg.Solver.withDefaults(),
	}, nil
}

// GeneratePointToPointTrajectory plans a move from the initial pose to the
// target pose and replaces the held trajectory with the result. Fine mode
// plans against the reduced envelope for a more accurate motion.
func (g *SmoothTrajectoryGenerator) GeneratePointToPointTrajectory(initial, target Point, fineMode bool) error {
	problem := BuildMotionPlanningProblem(initial, target, fineMode, g.limits, g.solver)
	traj, err := GenerateTrajectory(problem)
	// Keep the incomplete result so stale lookups fail loudly instead of
	// tracking the previous move.
	g.current = traj
	if err != nil {
		g.logger.Warnw("trajectory generation failed",
			"initial", initial.String(), "target", target.String(), "error", err)
		return err
	}
	g.logger.Debugf("planned move %s -> %s over %.3fs", initial, target, traj.Duration())
	return nil
}

// GenerateConstVelTrajectory plans a move that holds the given velocity for
// moveTime seconds by planning to the pose that velocity implies. The velocity
// itself is best effort: if the request would violate the dynamic limits of
// the selected mode, the move still covers the implied displacement but does
// not reach the requested speed.
func (g *SmoothTrajectoryGenerator) GenerateConstVelTrajectory(
	initial Point,
	velocity Velocity,
	moveTime float64,
	fineMode bool,
) error {
	if moveTime < 0 {
		return errors.Errorf("move time cannot be negative, got %f", moveTime)
	}
	target := Point{
		X:       initial.X + velocity.VX*moveTime,
		Y:       initial.Y + velocity.VY*moveTime,
		Heading: initial.Heading + velocity.VA*moveTime,
	}
	return g.GeneratePointToPointTrajectory(initial, target, fineMode)
}

// Lookup returns the reference state at the given time since the start of the
// current trajectory. Times outside the trajectory clamp to its boundary
// states; looking up with no complete trajectory returns ErrNoTrajectory.
func (g *SmoothTrajectoryGenerator) Lookup(time float64) (PVTPoint, error) {
	if g.current == nil || !g.current.Complete {
		return PVTPoint{}, ErrNoTrajectory
	}
	traj := g.current
	transPos, transVel, _ := Lookup1D(time, &traj.TransParams)
	rotPos, rotVel, _ := Lookup1D(time, &traj.RotParams)
	dir := traj.TransDirection
	return PVTPoint{
		Position: Point{
			X:       traj.InitialPoint.X + dir.X*transPos,
			Y:       traj.InitialPoint.Y + dir.Y*transPos,
			Heading: traj.InitialPoint.Heading + traj.RotDirection*rotPos,
		},
		Velocity: Velocity{
			VX: dir.X * transVel,
			VY: dir.Y * transVel,
			VA: traj.RotDirection * rotVel,
		},
		Time: time,
	}, nil
}

// Duration returns the total duration of the held trajectory, or an error if
// none is held.
func (g *SmoothTrajectoryGenerator) Duration() (float64, error) {
	if g.current == nil || !g.current.Complete {
		return 0, ErrNoTrajectory
	}
	return g.current.Duration(), nil
}
