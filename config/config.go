// Package config enumerates every runtime tunable of the navigation stack as
// explicit structs handed to constructors. Nothing in the module reads
// process wide state; a component gets its configuration at construction time
// and keeps it for life.
package config

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/openomni/navigation/trajectory"
)

// Config is the root configuration for one robot.
type Config struct {
	Trajectory   trajectory.GeneratorConfig `json:"trajectory"`
	Localization LocalizationConfig         `json:"localization"`
	Drive        DriveConfig                `json:"drive"`
	Control      ControlConfig              `json:"control"`
}

// Validate checks every section and aggregates the failures.
func (c *Config) Validate() error {
	var err error
	if verr := c.Trajectory.Validate(); verr != nil {
		err = multierr.Append(err, errors.Wrap(verr, "trajectory"))
	}
	if verr := c.Localization.Validate(); verr != nil {
		err = multierr.Append(err, errors.Wrap(verr, "localization"))
	}
	if verr := c.Drive.Validate(); verr != nil {
		err = multierr.Append(err, errors.Wrap(verr, "drive"))
	}
	if verr := c.Control.Validate(); verr != nil {
		err = multierr.Append(err, errors.Wrap(verr, "control"))
	}
	return err
}

// LocalizationConfig tunes the pose estimator: how much an absolute beacon
// fix is trusted as a function of speed, and where the beacon pair sits
// relative to the robot's center of rotation.
type LocalizationConfig struct {
	// UpdateFractionAtZeroVel is the blend weight applied to a position fix
	// while the robot is at rest.
	UpdateFractionAtZeroVel float64 `json:"update_fraction_at_zero_vel"`
	// ValForZeroUpdate is the total speed at which a fix stops being trusted
	// at all.
	ValForZeroUpdate float64 `json:"val_for_zero_update"`
	// BeaconXOffset and BeaconYOffset place the beacon center relative to the
	// robot center, in meters, in the robot frame.
	BeaconXOffset float64 `json:"beacon_x_offset"`
	BeaconYOffset float64 `json:"beacon_y_offset"`
}

// Validate checks the estimator tuning.
func (c LocalizationConfig) Validate() error {
	var err error
	if c.UpdateFractionAtZeroVel < 0 || c.UpdateFractionAtZeroVel > 1 {
		err = multierr.Append(err, errors.New("update_fraction_at_zero_vel must be in [0, 1]"))
	}
	if c.ValForZeroUpdate <= 0 {
		err = multierr.Append(err, errors.New("val_for_zero_update must be positive"))
	}
	return err
}

// WheelPins is the pin assignment for one wheel: quadrature encoder channels,
// direction line, and PWM line. The navigation stack never touches hardware;
// the assignments ride along so the whole robot is described in one place.
type WheelPins struct {
	EncoderA  int `json:"encoder_a"`
	EncoderB  int `json:"encoder_b"`
	Direction int `json:"direction"`
	PWM       int `json:"pwm"`
}

// DriveConfig is the physical description of the mecanum drive base.
type DriveConfig struct {
	// WheelDiameter is the wheel diameter in meters.
	WheelDiameter float64 `json:"wheel_diameter"`
	// WheelOffsetFromCenter is the combined wheel offset from the robot
	// center in meters, the lever arm the rotation rate acts on.
	WheelOffsetFromCenter float64 `json:"wheel_offset_from_center"`
	// MaxWheelSpeed caps each wheel in rad/s.
	MaxWheelSpeed float64 `json:"max_wheel_speed"`
	// MaxTransSpeed and MaxRotSpeed are the robot level safety caps in m/s
	// and rad/s.
	MaxTransSpeed float64 `json:"max_trans_speed"`
	MaxRotSpeed   float64 `json:"max_rot_speed"`

	EnablePin int          `json:"enable_pin"`
	Wheels    [4]WheelPins `json:"wheels"`
}

// Validate checks the geometry and caps.
func (c DriveConfig) Validate() error {
	var err error
	if c.WheelDiameter <= 0 {
		err = multierr.Append(err, errors.New("wheel_diameter must be positive"))
	}
	if c.WheelOffsetFromCenter <= 0 {
		err = multierr.Append(err, errors.New("wheel_offset_from_center must be positive"))
	}
	if c.MaxWheelSpeed <= 0 || c.MaxTransSpeed <= 0 || c.MaxRotSpeed <= 0 {
		err = multierr.Append(err, errors.New("speed caps must be positive"))
	}
	return err
}

// ControlConfig tunes the outer tracking loop.
type ControlConfig struct {
	// Frequency is the loop tick rate in Hz.
	Frequency float64 `json:"frequency"`
	// TransGain and RotGain are the proportional gains applied to the pose
	// error on top of the reference feedforward velocity.
	TransGain float64 `json:"trans_gain"`
	RotGain   float64 `json:"rot_gain"`
}

// Validate checks the loop tuning.
func (c ControlConfig) Validate() error {
	var err error
	if c.Frequency <= 0 || c.Frequency > 200 {
		err = multierr.Append(err, errors.New("frequency must be in (0, 200] Hz"))
	}
	if c.TransGain < 0 || c.RotGain < 0 {
		err = multierr.Append(err, errors.New("gains cannot be negative"))
	}
	return err
}

// Read loads and validates a config from a JSON file.
func Read(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read config file %q", path)
	}
	return FromBytes(data, path)
}

// FromBytes parses and validates raw JSON config data. The path only labels
// errors.
func FromBytes(data []byte, path string) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "cannot parse config %q", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %q", path)
	}
	return &cfg, nil
}

// Default returns the stock configuration for the reference robot.
func Default() *Config {
	return &Config{
		Trajectory: trajectory.GeneratorConfig{
			Limits: trajectory.LimitsConfig{
				Translation: trajectory.DynamicLimits{MaxVel: 0.5, MaxAcc: 0.5, MaxJerk: 1.0},
				Rotation:    trajectory.DynamicLimits{MaxVel: 1.0, MaxAcc: 1.0, MaxJerk: 2.0},
				FineScale:   0.25,
			},
			Solver: trajectory.DefaultSolverParameters(),
		},
		Localization: LocalizationConfig{
			UpdateFractionAtZeroVel: 0.9,
			ValForZeroUpdate:        0.5,
			BeaconXOffset:           0.2969,
			BeaconYOffset:           0,
		},
		Drive: DriveConfig{
			WheelDiameter:         0.1016,
			WheelOffsetFromCenter: 0.3548,
			MaxWheelSpeed:         10,
			MaxTransSpeed:         0.5,
			MaxRotSpeed:           1,
			EnablePin:             52,
			Wheels: [4]WheelPins{
				{EncoderA: 21, EncoderB: 25, Direction: 39, PWM: 5},
				{EncoderA: 20, EncoderB: 24, Direction: 13, PWM: 6},
				{EncoderA: 18, EncoderB: 22, Direction: 12, PWM: 7},
				{EncoderA: 19, EncoderB: 23, Direction: 37, PWM: 4},
			},
		},
		Control: ControlConfig{
			Frequency: 50,
			TransGain: 2.0,
			RotGain:   3.0,
		},
	}
}
