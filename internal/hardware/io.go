package hardware

import (
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"trial-service/internal/logger"
)

// RigIO drives the behavior rig's digital lines through the GPIO
// character device and reads the lick electrode through the IIO ADC.
type RigIO struct {
	logger *logger.Logger
	chips  map[int]*gpiocdev.Chip
	lines  map[string]*gpiocdev.Line
	mu     sync.RWMutex

	adcDevice  string
	adcChannel int
	lickThresh int
}

func NewRigIO(l *logger.Logger) *RigIO {
	return &RigIO{
		logger:     l.WithTag("rig-io"),
		chips:      make(map[int]*gpiocdev.Chip),
		lines:      make(map[string]*gpiocdev.Line),
		adcDevice:  LickAdcDevice,
		adcChannel: LickAdcChannel,
		lickThresh: LickThresh,
	}
}

// Initialize requests every configured output line, all driven low.
func (io *RigIO) Initialize() error {
	io.logger.Infof("Initializing rig IO")

	io.mu.Lock()
	defer io.mu.Unlock()

	for name, mapping := range DoMappings {
		chip, ok := io.chips[mapping.Chip]
		if !ok {
			var err error
			chip, err = gpiocdev.NewChip(fmt.Sprintf("gpiochip%d", mapping.Chip))
			if err != nil {
				return fmt.Errorf("failed to open GPIO chip %d: %w", mapping.Chip, err)
			}
			io.chips[mapping.Chip] = chip
		}

		line, err := chip.RequestLine(mapping.Line,
			gpiocdev.AsOutput(0),
			gpiocdev.WithConsumer("trial-service"))
		if err != nil {
			return fmt.Errorf("failed to request GPIO line %d: %w", mapping.Line, err)
		}

		io.lines[name] = line
		io.logger.Debugf("Configured DO %s: chip=%d, line=%d", name, mapping.Chip, mapping.Line)
	}

	return nil
}

// ReadLickDetector samples the lick electrode once and thresholds it.
func (io *RigIO) ReadLickDetector() (bool, error) {
	v, err := ReadAdcValue(io.adcDevice, io.adcChannel)
	if err != nil {
		return false, err
	}
	return v > io.lickThresh, nil
}

func (io *RigIO) WriteDigitalOutput(channel string, value bool) error {
	io.mu.RLock()
	line, ok := io.lines[channel]
	io.mu.RUnlock()

	if !ok {
		return fmt.Errorf("unknown digital output channel: %s", channel)
	}

	val := 0
	if value {
		val = 1
	}

	if err := line.SetValue(val); err != nil {
		return fmt.Errorf("failed to set DO %s=%v: %w", channel, value, err)
	}

	io.logger.Debugf("Set DO %s=%v", channel, value)
	return nil
}

// PulseOutput holds a digital output high for the given duration, then
// releases it. Blocks the caller for the whole pulse.
func (io *RigIO) PulseOutput(channel string, d time.Duration) error {
	if err := io.WriteDigitalOutput(channel, true); err != nil {
		return err
	}
	time.Sleep(d)
	if err := io.WriteDigitalOutput(channel, false); err != nil {
		return err
	}
	io.logger.Debugf("Pulsed %s for %v", channel, d)
	return nil
}

func (io *RigIO) Cleanup() {
	io.mu.Lock()
	defer io.mu.Unlock()

	io.logger.Infof("Cleaning up rig IO")

	for name, line := range io.lines {
		// Leave every line low before releasing it.
		if err := line.SetValue(0); err != nil {
			io.logger.Warnf("Failed to clear DO %s: %v", name, err)
		}
		line.Close()
		io.logger.Debugf("Closed GPIO line for %s", name)
	}

	for id, chip := range io.chips {
		chip.Close()
		io.logger.Debugf("Closed GPIO chip %d", id)
	}
}
