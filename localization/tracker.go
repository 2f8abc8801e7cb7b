// Package localization maintains a running pose and velocity estimate for the
// robot by blending absolute beacon position fixes with dead reckoned local
// velocity. It neither produces nor consumes trajectories; the outer control
// loop composes it with the trajectory generator.
package localization

import (
	"math"
	"sync"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/openomni/navigation/config"
	"github.com/openomni/navigation/trajectory"
	"github.com/openomni/navigation/utils"
)

// Tracker is the pose estimator. Position fixes arrive from a beacon system
// at a low rate; velocity samples arrive from wheel odometry every control
// tick. A mutex serializes the two update paths against readers.
type Tracker struct {
	mu  sync.Mutex
	pos trajectory.Point
	vel trajectory.Velocity

	updateFractionAtZeroVel float64
	valForZeroUpdate        float64
	beaconOffset            *mat.VecDense

	logger golog.Logger
}

// NewTracker builds a tracker at the origin from its config.
func NewTracker(cfg config.LocalizationConfig, logger golog.Logger) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid localization config")
	}
	return &Tracker{
		updateFractionAtZeroVel: cfg.UpdateFractionAtZeroVel,
		valForZeroUpdate:        cfg.ValForZeroUpdate,
		beaconOffset:            mat.NewVecDense(3, []float64{cfg.BeaconXOffset, cfg.BeaconYOffset, 0}),
		logger:                  logger,
	}, nil
}

// Reset forces the estimate to a known pose at rest, for move start
// registration.
func (t *Tracker) Reset(pos trajectory.Point) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pos = pos
	t.vel = trajectory.Velocity{}
}

// UpdatePosition blends an absolute position fix into the estimate. The fix
// is measured at the beacon pair's center, so it is first transformed to the
// robot's center of rotation. The blend weight is full trust at rest and
// decays linearly with measured speed, hitting zero at valForZeroUpdate, on
// the observation that the beacons get less accurate while moving.
func (t *Tracker) UpdatePosition(measured trajectory.Point) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cA := math.Cos(measured.Heading)
	sA := math.Sin(measured.Heading)
	rotation := mat.NewDense(3, 3, []float64{
		cA, -sA, 0,
		sA, cA, 0,
		0, 0, 1,
	})
	var globalOffset mat.VecDense
	globalOffset.MulVec(rotation, t.beaconOffset)

	adjusted := trajectory.Point{
		X:       measured.X - globalOffset.AtVec(0),
		Y:       measured.Y - globalOffset.AtVec(1),
		Heading: measured.Heading - globalOffset.AtVec(2),
	}

	totalSpeed := floats.Norm([]float64{t.vel.VX, t.vel.VY, t.vel.VA}, 2)
	slope := t.updateFractionAtZeroVel / -t.valForZeroUpdate
	fraction := utils.Clamp(t.updateFractionAtZeroVel+slope*totalSpeed, 0, t.updateFractionAtZeroVel)

	t.pos.X += fraction * (adjusted.X - t.pos.X)
	t.pos.Y += fraction * (adjusted.Y - t.pos.Y)
	t.pos.Heading += fraction * utils.WrapAngleRad(adjusted.Heading-t.pos.Heading)
	t.logger.Debugw("position fix blended", "fraction", fraction, "pose", t.pos.String())
}

// UpdateVelocity takes a robot frame velocity sample and the elapsed time
// since the previous sample, rotates it into the global frame using the
// current heading estimate, and dead reckons the pose forward.
func (t *Tracker) UpdateVelocity(local trajectory.Velocity, dt float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cA := math.Cos(t.pos.Heading)
	sA := math.Sin(t.pos.Heading)
	t.vel = trajectory.Velocity{
		VX: cA*local.VX - sA*local.VY,
		VY: sA*local.VX + cA*local.VY,
		VA: local.VA,
	}

	t.pos.X += t.vel.VX * dt
	t.pos.Y += t.vel.VY * dt
	t.pos.Heading += t.vel.VA * dt
}

// Position returns the current pose estimate.
func (t *Tracker) Position() trajectory.Point {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pos
}

// Velocity returns the current global frame velocity estimate.
func (t *Tracker) Velocity() trajectory.Velocity {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.vel
}
