package control

import (
	"math"
	"testing"

	"go.viam.com/test"

	"github.com/openomni/navigation/config"
	"github.com/openomni/navigation/trajectory"
)

func TestCommandFeedforwardOnly(t *testing.T) {
	tracker := NewTracker(config.ControlConfig{Frequency: 50, TransGain: 2, RotGain: 3})
	ref := trajectory.PVTPoint{
		Position: trajectory.Point{X: 1},
		Velocity: trajectory.Velocity{VX: 0.5},
	}
	cmd := tracker.Command(ref, trajectory.Point{X: 1})
	test.That(t, cmd.VX, test.ShouldAlmostEqual, 0.5, 1e-9)
	test.That(t, cmd.VY, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, cmd.VA, test.ShouldAlmostEqual, 0, 1e-9)
}

func TestCommandProportionalCorrection(t *testing.T) {
	tracker := NewTracker(config.ControlConfig{Frequency: 50, TransGain: 2, RotGain: 3})
	ref := trajectory.PVTPoint{
		Position: trajectory.Point{X: 1},
		Velocity: trajectory.Velocity{VX: 0.5},
	}
	// Lagging 0.1m behind the reference adds gain*error on top of the
	// feedforward term.
	cmd := tracker.Command(ref, trajectory.Point{X: 0.9})
	test.That(t, cmd.VX, test.ShouldAlmostEqual, 0.7, 1e-9)
}

func TestCommandRotatesIntoRobotFrame(t *testing.T) {
	tracker := NewTracker(config.ControlConfig{Frequency: 50, TransGain: 2, RotGain: 3})
	// Facing +Y, a +X global reference velocity is a rightward strafe in the
	// robot frame.
	est := trajectory.Point{Heading: math.Pi / 2}
	ref := trajectory.PVTPoint{
		Position: trajectory.Point{Heading: math.Pi / 2},
		Velocity: trajectory.Velocity{VX: 0.5},
	}
	cmd := tracker.Command(ref, est)
	test.That(t, cmd.VX, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, cmd.VY, test.ShouldAlmostEqual, -0.5, 1e-9)
}

func TestCommandWrapsHeadingError(t *testing.T) {
	tracker := NewTracker(config.ControlConfig{Frequency: 50, TransGain: 2, RotGain: 3})
	ref := trajectory.PVTPoint{Position: trajectory.Point{Heading: 3}}
	cmd := tracker.Command(ref, trajectory.Point{Heading: -3})
	// The short way from -3 to 3 is backwards through pi, not forward
	// through zero.
	test.That(t, cmd.VA, test.ShouldAlmostEqual, 3*(6-2*math.Pi), 1e-9)
}
