package hardware

import (
	"time"

	"trial-service/internal/logger"
)

// Stepper positions the stimulus arm. The function index selects a target
// position; the motor only moves when the target differs from where the
// arm already is, so position is sticky across trials.
type Stepper struct {
	logger     *logger.Logger
	io         *RigIO
	position   int64 // current position in steps
	stepsPerFn int64
	stepPulse  time.Duration
}

func NewStepper(io *RigIO, l *logger.Logger, stepsPerFn int64) *Stepper {
	return &Stepper{
		logger:     l.WithTag("stepper"),
		io:         io,
		stepsPerFn: stepsPerFn,
		stepPulse:  500 * time.Microsecond,
	}
}

// Act moves the arm to the position selected by fn. Idempotent within a
// stimulus period: once in position, later ticks do nothing.
func (s *Stepper) Act(fn int64, now int64) error {
	target := fn * s.stepsPerFn
	if target == s.position {
		return nil
	}

	if err := s.io.WriteDigitalOutput("stepper_enable", true); err != nil {
		return err
	}
	if err := s.rotate(target - s.position); err != nil {
		return err
	}

	s.logger.Debugf("Moved %d -> %d steps", s.position, target)
	s.position = target
	return nil
}

// Finish releases the motor. The arm holds its position mechanically, so
// the position bookkeeping persists into the next trial.
func (s *Stepper) Finish() error {
	return s.io.WriteDigitalOutput("stepper_enable", false)
}

func (s *Stepper) rotate(steps int64) error {
	forward := steps > 0
	if !forward {
		steps = -steps
	}

	if err := s.io.WriteDigitalOutput("stepper_dir", forward); err != nil {
		return err
	}
	for i := int64(0); i < steps; i++ {
		if err := s.io.WriteDigitalOutput("stepper_step", true); err != nil {
			return err
		}
		time.Sleep(s.stepPulse)
		if err := s.io.WriteDigitalOutput("stepper_step", false); err != nil {
			return err
		}
		time.Sleep(s.stepPulse)
	}
	return nil
}
