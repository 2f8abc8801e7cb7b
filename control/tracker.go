// Package control closes the loop between the reference trajectory and the
// pose estimate: each tick it looks up the reference point for the elapsed
// time, compares it against the estimated pose, and emits a robot frame
// velocity command.
package control

import (
	"math"

	"github.com/openomni/navigation/config"
	"github.com/openomni/navigation/trajectory"
	"github.com/openomni/navigation/utils"
)

// Tracker turns a reference point and a pose estimate into a velocity
// command: the reference velocity as feedforward plus a proportional
// correction on the pose error, rotated into the robot frame.
type Tracker struct {
	transGain float64
	rotGain   float64
}

// NewTracker builds a tracker from the loop gains.
func NewTracker(cfg config.ControlConfig) *Tracker {
	return &Tracker{transGain: cfg.TransGain, rotGain: cfg.RotGain}
}

// Command computes the robot frame velocity command for one tick.
func (t *Tracker) Command(ref trajectory.PVTPoint, estimate trajectory.Point) trajectory.Velocity {
	globalVX := ref.Velocity.VX + t.transGain*(ref.Position.X-estimate.X)
	globalVY := ref.Velocity.VY + t.transGain*(ref.Position.Y-estimate.Y)
	globalVA := ref.Velocity.VA + t.rotGain*utils.WrapAngleRad(ref.Position.Heading-estimate.Heading)

	cA := math.Cos(estimate.Heading)
	sA := math.Sin(estimate.Heading)
	return trajectory.Velocity{
		VX: cA*globalVX + sA*globalVY,
		VY: -sA*globalVX + cA*globalVY,
		VA: globalVA,
	}
}
