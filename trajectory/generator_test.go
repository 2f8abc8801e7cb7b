package trajectory

import (
	"math"
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"
)

func testGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Limits: LimitsConfig{
			Translation: testLimits,
			Rotation:    testRotLimits,
			FineScale:   0.25,
		},
		Solver: DefaultSolverParameters(),
	}
}

func TestBuildMotionPlanningProblem(t *testing.T) {
	cfg := testGeneratorConfig()
	initial := Point{X: 1, Y: 2, Heading: 0.5}
	target := Point{X: 3, Y: 2, Heading: 1.0}

	coarse := BuildMotionPlanningProblem(initial, target, false, cfg.Limits, cfg.Solver)
	test.That(t, coarse.InitialPoint, test.ShouldResemble, initial)
	test.That(t, coarse.TargetPoint, test.ShouldResemble, target)
	test.That(t, coarse.TranslationLimits, test.ShouldResemble, testLimits)
	test.That(t, coarse.RotationLimits, test.ShouldResemble, testRotLimits)

	fine := BuildMotionPlanningProblem(initial, target, true, cfg.Limits, cfg.Solver)
	test.That(t, fine.TranslationLimits, test.ShouldResemble, testLimits.Scale(0.25))
	test.That(t, fine.RotationLimits, test.ShouldResemble, testRotLimits.Scale(0.25))
}

func TestGenerateTrajectoryStraightLine(t *testing.T) {
	cfg := testGeneratorConfig()
	problem := BuildMotionPlanningProblem(Point{}, Point{X: 1}, false, cfg.Limits, cfg.Solver)
	traj, err := GenerateTrajectory(problem)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, traj.Complete, test.ShouldBeTrue)
	test.That(t, traj.TransDirection.X, test.ShouldAlmostEqual, 1, 1e-12)
	test.That(t, traj.TransDirection.Y, test.ShouldAlmostEqual, 0, 1e-12)
	test.That(t, traj.RotDirection, test.ShouldEqual, 0)
	test.That(t, traj.TransParams.Distance(), test.ShouldAlmostEqual, 1.0, 1e-9)
	// The rotation axis is zero length and synchronizes trivially.
	test.That(t, traj.RotParams.Duration(), test.ShouldEqual, 0)
}

func TestGenerateTrajectoryPureRotation(t *testing.T) {
	cfg := testGeneratorConfig()
	problem := BuildMotionPlanningProblem(
		Point{X: 2, Y: 3}, Point{X: 2, Y: 3, Heading: math.Pi / 2}, false, cfg.Limits, cfg.Solver)
	traj, err := GenerateTrajectory(problem)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, traj.Complete, test.ShouldBeTrue)
	test.That(t, traj.TransParams.Duration(), test.ShouldEqual, 0)
	test.That(t, traj.RotDirection, test.ShouldEqual, 1)
	test.That(t, traj.RotParams.Distance(), test.ShouldAlmostEqual, math.Pi/2, 1e-9)
}

func TestGenerateTrajectorySynchronizedAxes(t *testing.T) {
	cfg := testGeneratorConfig()
	problem := BuildMotionPlanningProblem(
		Point{}, Point{X: 1, Heading: math.Pi / 2}, false, cfg.Limits, cfg.Solver)
	traj, err := GenerateTrajectory(problem)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, math.Abs(traj.TransParams.Duration()-traj.RotParams.Duration()),
		test.ShouldBeLessThanOrEqualTo, 2*cfg.Solver.Tolerance)
}

func TestGenerateTrajectoryHeadingWrap(t *testing.T) {
	// From heading 3 to heading -3 the short way is through pi, a positive
	// rotation of 2*pi-6, never the long way back through zero.
	cfg := testGeneratorConfig()
	problem := BuildMotionPlanningProblem(
		Point{Heading: 3}, Point{Heading: -3}, false, cfg.Limits, cfg.Solver)
	traj, err := GenerateTrajectory(problem)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, traj.RotDirection, test.ShouldEqual, 1)
	test.That(t, traj.RotParams.Distance(), test.ShouldAlmostEqual, 2*math.Pi-6, 1e-9)
}

func TestSmoothTrajectoryGeneratorLifecycle(t *testing.T) {
	logger := golog.NewTestLogger(t)
	gen, err := NewSmoothTrajectoryGenerator(testGeneratorConfig(), logger)
	test.That(t, err, test.ShouldBeNil)

	// Looking up before any successful generate call is a reported failure.
	_, err = gen.Lookup(0)
	test.That(t, err, test.ShouldBeError, ErrNoTrajectory)

	initial := Point{X: 1, Y: -1, Heading: 0.2}
	target := Point{X: 2, Y: 1, Heading: -0.4}
	err = gen.GeneratePointToPointTrajectory(initial, target, false)
	test.That(t, err, test.ShouldBeNil)

	duration, err := gen.Duration()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, duration, test.ShouldBeGreaterThan, 0)

	t.Run("start state", func(t *testing.T) {
		pvt, err := gen.Lookup(0)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, pvt.Position.X, test.ShouldAlmostEqual, initial.X, 1e-9)
		test.That(t, pvt.Position.Y, test.ShouldAlmostEqual, initial.Y, 1e-9)
		test.That(t, pvt.Position.Heading, test.ShouldAlmostEqual, initial.Heading, 1e-9)
		test.That(t, pvt.Velocity.NearZero(0), test.ShouldBeTrue)
	})

	t.Run("end state clamps to target", func(t *testing.T) {
		pvt, err := gen.Lookup(duration + 5)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, pvt.Position.X, test.ShouldAlmostEqual, target.X, 1e-6)
		test.That(t, pvt.Position.Y, test.ShouldAlmostEqual, target.Y, 1e-6)
		test.That(t, pvt.Position.Heading, test.ShouldAlmostEqual, target.Heading, 1e-6)
		test.That(t, pvt.Velocity.NearZero(0), test.ShouldBeTrue)
	})

	t.Run("mid move is in motion", func(t *testing.T) {
		pvt, err := gen.Lookup(duration / 2)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, pvt.Velocity.NearZero(0), test.ShouldBeFalse)
	})

	t.Run("lookup is idempotent", func(t *testing.T) {
		a, err := gen.Lookup(duration / 3)
		test.That(t, err, test.ShouldBeNil)
		b, err := gen.Lookup(duration / 3)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, a, test.ShouldResemble, b)
	})
}

func TestSmoothTrajectoryGeneratorFailedPlanInvalidatesLookup(t *testing.T) {
	logger := golog.NewTestLogger(t)
	cfg := testGeneratorConfig()
	// One iteration cannot plan a move that needs the decay loop, so the
	// second generate call fails and must invalidate the first plan.
	cfg.Solver.MaxIterations = 1
	gen, err := NewSmoothTrajectoryGenerator(cfg, logger)
	test.That(t, err, test.ShouldBeNil)

	err = gen.GeneratePointToPointTrajectory(Point{}, Point{X: 1}, false)
	test.That(t, err, test.ShouldBeNil)
	_, err = gen.Lookup(0)
	test.That(t, err, test.ShouldBeNil)

	err = gen.GeneratePointToPointTrajectory(Point{}, Point{X: 0.001}, false)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = gen.Lookup(0)
	test.That(t, err, test.ShouldBeError, ErrNoTrajectory)
}

func TestSmoothTrajectoryGeneratorConstVel(t *testing.T) {
	logger := golog.NewTestLogger(t)
	gen, err := NewSmoothTrajectoryGenerator(testGeneratorConfig(), logger)
	test.That(t, err, test.ShouldBeNil)

	initial := Point{X: 1}
	err = gen.GenerateConstVelTrajectory(initial, Velocity{VX: 0.1, VA: 0.05}, 5, false)
	test.That(t, err, test.ShouldBeNil)

	duration, err := gen.Duration()
	test.That(t, err, test.ShouldBeNil)
	pvt, err := gen.Lookup(duration + 1)
	test.That(t, err, test.ShouldBeNil)
	// The implied target is initial + velocity * time.
	test.That(t, pvt.Position.X, test.ShouldAlmostEqual, 1.5, 1e-6)
	test.That(t, pvt.Position.Heading, test.ShouldAlmostEqual, 0.25, 1e-6)

	err = gen.GenerateConstVelTrajectory(initial, Velocity{VX: 0.1}, -1, false)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestNewSmoothTrajectoryGeneratorInvalidConfig(t *testing.T) {
	logger := golog.NewTestLogger(t)
	cfg := testGeneratorConfig()
	cfg.Limits.Translation.MaxVel = 0
	cfg.Limits.FineScale = 2
	_, err := NewSmoothTrajectoryGenerator(cfg, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "translation limits")
	test.That(t, err.Error(), test.ShouldContainSubstring, "fine_scale")
}
