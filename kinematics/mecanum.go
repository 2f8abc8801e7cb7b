// Package kinematics maps robot frame twists to wheel speeds and back for a
// four wheel mecanum base. The trajectory core never calls into it; it sits
// at the actuation boundary and is the source of the dynamic limit values the
// planner is configured with.
package kinematics

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/openomni/navigation/config"
	"github.com/openomni/navigation/trajectory"
)

// wheel order throughout: front left, front right, back left, back right.
const numWheels = 4

// MecanumDrive holds the kinematic matrix of the base. The inverse map
// (twist to wheel speeds) is exact; the forward map solves the overdetermined
// system in the least squares sense, which rejects the wheel speed component
// that no planar twist can produce.
type MecanumDrive struct {
	wheelRadius   float64
	maxWheelSpeed float64
	maxTransSpeed float64
	maxRotSpeed   float64
	inverse       *mat.Dense
}

// NewMecanumDrive builds the kinematic maps from the drive geometry.
func NewMecanumDrive(cfg config.DriveConfig) (*MecanumDrive, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid drive config")
	}
	k := cfg.WheelOffsetFromCenter
	return &MecanumDrive{
		wheelRadius:   cfg.WheelDiameter / 2,
		maxWheelSpeed: cfg.MaxWheelSpeed,
		maxTransSpeed: cfg.MaxTransSpeed,
		maxRotSpeed:   cfg.MaxRotSpeed,
		inverse: mat.NewDense(numWheels, 3, []float64{
			1, -1, -k,
			1, 1, k,
			1, 1, -k,
			1, -1, k,
		}),
	}, nil
}

// WheelSpeeds returns the wheel speeds in rad/s realizing the given robot
// frame twist. If any wheel would exceed its cap, all four are scaled down
// together so the twist direction is preserved.
func (d *MecanumDrive) WheelSpeeds(v trajectory.Velocity) [numWheels]float64 {
	twist := mat.NewVecDense(3, []float64{v.VX, v.VY, v.VA})
	var w mat.VecDense
	w.MulVec(d.inverse, twist)

	var speeds [numWheels]float64
	peak := 0.0
	for i := range speeds {
		speeds[i] = w.AtVec(i) / d.wheelRadius
		peak = math.Max(peak, math.Abs(speeds[i]))
	}
	if peak > d.maxWheelSpeed {
		scale := d.maxWheelSpeed / peak
		for i := range speeds {
			speeds[i] *= scale
		}
	}
	return speeds
}

// Twist returns the robot frame twist produced by the given wheel speeds.
func (d *MecanumDrive) Twist(speeds [numWheels]float64) (trajectory.Velocity, error) {
	rim := make([]float64, numWheels)
	for i, s := range speeds {
		rim[i] = s * d.wheelRadius
	}
	var twist mat.VecDense
	if err := twist.SolveVec(d.inverse, mat.NewVecDense(numWheels, rim)); err != nil {
		return trajectory.Velocity{}, errors.Wrap(err, "solving forward kinematics")
	}
	return trajectory.Velocity{
		VX: twist.AtVec(0),
		VY: twist.AtVec(1),
		VA: twist.AtVec(2),
	}, nil
}

// ClampTwist bounds a commanded twist to the robot level safety caps,
// scaling the translational components together so their direction holds.
func (d *MecanumDrive) ClampTwist(v trajectory.Velocity) trajectory.Velocity {
	speed := math.Hypot(v.VX, v.VY)
	if speed > d.maxTransSpeed {
		scale := d.maxTransSpeed / speed
		v.VX *= scale
		v.VY *= scale
	}
	if math.Abs(v.VA) > d.maxRotSpeed {
		v.VA = math.Copysign(d.maxRotSpeed, v.VA)
	}
	return v
}
