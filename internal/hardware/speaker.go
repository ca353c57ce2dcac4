package hardware

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"trial-service/internal/logger"
)

// Default tone table: function index -> frequency in Hz. Index 0 is
// silence.
var DefaultTones = []int{0, 4000, 8000, 12000}

// Speaker generates auditory stimuli through a sysfs PWM channel. The
// function index selects a tone from the table; 0 or out-of-range keeps
// the speaker silent.
type Speaker struct {
	logger  *logger.Logger
	chipDir string
	channel int
	tones   []int
	curFreq int
}

func NewSpeaker(l *logger.Logger, tones []int) *Speaker {
	if tones == nil {
		tones = DefaultTones
	}
	return &Speaker{
		logger:  l.WithTag("speaker"),
		chipDir: PwmChipDir,
		channel: PwmChannel,
		tones:   tones,
	}
}

// Initialize exports the PWM channel if the kernel has not already.
func (s *Speaker) Initialize() error {
	if _, err := os.Stat(s.pwmDir()); err == nil {
		return nil
	}
	exportPath := filepath.Join(s.chipDir, "export")
	if err := os.WriteFile(exportPath, []byte(strconv.Itoa(s.channel)), 0o644); err != nil {
		return fmt.Errorf("failed to export PWM channel %d: %w", s.channel, err)
	}
	return nil
}

// Act plays the tone selected by fn, reprogramming the PWM only when the
// frequency changes.
func (s *Speaker) Act(fn int64, now int64) error {
	freq := 0
	if fn > 0 && fn < int64(len(s.tones)) {
		freq = s.tones[fn]
	}

	if freq == s.curFreq {
		return nil
	}

	if freq == 0 {
		return s.silence()
	}

	period := int64(1e9) / int64(freq)
	if err := s.writeAttr("period", period); err != nil {
		return err
	}
	if err := s.writeAttr("duty_cycle", period/2); err != nil {
		return err
	}
	if err := s.writeAttr("enable", 1); err != nil {
		return err
	}

	s.logger.Debugf("Tone %d Hz on", freq)
	s.curFreq = freq
	return nil
}

// Finish stops whatever tone is playing.
func (s *Speaker) Finish() error {
	return s.silence()
}

func (s *Speaker) silence() error {
	if err := s.writeAttr("enable", 0); err != nil {
		return err
	}
	s.curFreq = 0
	return nil
}

func (s *Speaker) pwmDir() string {
	return filepath.Join(s.chipDir, fmt.Sprintf("pwm%d", s.channel))
}

func (s *Speaker) writeAttr(attr string, value int64) error {
	path := filepath.Join(s.pwmDir(), attr)
	if err := os.WriteFile(path, []byte(strconv.FormatInt(value, 10)), 0o644); err != nil {
		return fmt.Errorf("failed writing %s: %w", path, err)
	}
	return nil
}
