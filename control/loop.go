package control

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/openomni/navigation/config"
	"github.com/openomni/navigation/localization"
	"github.com/openomni/navigation/trajectory"
)

// CommandFunc receives the velocity command computed each tick. It is the
// loop's only output; wiring it to the motor drivers is the caller's problem.
type CommandFunc func(trajectory.Velocity)

// Loop runs the tracking controller at a fixed rate against the trajectory
// generator's reference and the localization estimate. The loop keeps ticking
// through reference lookup failures and commands a stop instead, so a failed
// plan holds position rather than killing the process.
type Loop struct {
	logger  golog.Logger
	clock   clock.Clock
	dt      time.Duration
	gen     *trajectory.SmoothTrajectoryGenerator
	est     *localization.Tracker
	tracker *Tracker
	command CommandFunc

	mu                      sync.Mutex
	running                 bool
	cancel                  context.CancelFunc
	activeBackgroundWorkers sync.WaitGroup
}

// NewLoop validates the config and wires the loop together. A nil clk uses
// the wall clock; tests inject a mock.
func NewLoop(
	cfg config.ControlConfig,
	gen *trajectory.SmoothTrajectoryGenerator,
	est *localization.Tracker,
	command CommandFunc,
	clk clock.Clock,
	logger golog.Logger,
) (*Loop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid control config")
	}
	if gen == nil || est == nil || command == nil {
		return nil, errors.New("loop needs a generator, an estimator, and a command sink")
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Loop{
		logger:  logger,
		clock:   clk,
		dt:      time.Duration(float64(time.Second) / cfg.Frequency),
		gen:     gen,
		est:     est,
		tracker: NewTracker(cfg),
		command: command,
	}, nil
}

// Start begins ticking. The elapsed time fed to the reference lookup is
// measured from this call, so start the loop when the move starts.
func (l *Loop) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return errors.New("control loop already running")
	}
	cancelCtx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.running = true
	l.activeBackgroundWorkers.Add(1)
	utils.ManagedGo(func() {
		l.run(cancelCtx)
	}, l.activeBackgroundWorkers.Done)
	return nil
}

func (l *Loop) run(ctx context.Context) {
	ticker := l.clock.Ticker(l.dt)
	defer ticker.Stop()
	start := l.clock.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			elapsed := now.Sub(start).Seconds()
			ref, err := l.gen.Lookup(elapsed)
			if err != nil {
				l.logger.Debugw("no reference available, holding position", "error", err)
				l.command(trajectory.Velocity{})
				continue
			}
			l.command(l.tracker.Command(ref, l.est.Position()))
		}
	}
}

// Stop halts the loop and waits for the worker to exit. Safe to call twice.
func (l *Loop) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	l.cancel()
	l.mu.Unlock()
	l.activeBackgroundWorkers.Wait()
}
