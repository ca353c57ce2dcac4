package core

import (
	"fmt"
	"sync"
	"time"

	"trial-service/internal/fsm"
	"trial-service/internal/logger"
	"trial-service/internal/messaging"
	"trial-service/internal/params"
)

// Config carries the run options from the command line.
type Config struct {
	TickPeriod    time.Duration
	FakeResponder bool
	Seed          int64

	// Parameter-store policy knobs.
	ReportLatchedEveryTrial bool
	EnforceRequired         bool
}

// TrialSystem wires the trial FSM to the rig hardware and the host link
// and drives it from a single tick loop.
type TrialSystem struct {
	cfg    Config
	logger *logger.Logger
	io     HardwareIO
	redis  MessagingClient

	store  *params.Store
	ctx    *fsm.TrialContext
	driver *fsm.Driver

	// Command lines cross from the Redis listener goroutine to the tick
	// loop through this buffered channel; the tick polls at most one.
	cmdChan  chan string
	stopChan chan struct{}
	wg       sync.WaitGroup
	epoch    time.Time
}

func NewTrialSystem(io HardwareIO, redis MessagingClient, devices []fsm.Device, cfg Config, l *logger.Logger) *TrialSystem {
	s := &TrialSystem{
		cfg:      cfg,
		logger:   l,
		io:       io,
		redis:    redis,
		cmdChan:  make(chan string, 64),
		stopChan: make(chan struct{}),
	}

	s.store = params.New(params.Policy{
		ReportLatchedEveryTrial: cfg.ReportLatchedEveryTrial,
		EnforceRequired:         cfg.EnforceRequired,
	})
	s.ctx = &fsm.TrialContext{
		Params:   s.store,
		Devices:  devices,
		Sensor:   lickSensor{io: io},
		Valve:    rewardValve{io: io},
		Reporter: &reporter{redis: redis, log: l.WithTag("report")},
		Log:      l.WithTag("fsm"),
	}
	s.driver = fsm.NewDriver(s.ctx, fsm.Options{
		FakeResponder: cfg.FakeResponder,
		Seed:          cfg.Seed,
	})

	return s
}

func (s *TrialSystem) Start() error {
	s.logger.Infof("Starting trial system")

	s.redis.SetCallbacks(messaging.Callbacks{
		CommandCallback: s.enqueueCommand,
	})
	if err := s.redis.Connect(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if err := s.io.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize hardware: %w", err)
	}
	if err := s.io.WriteDigitalOutput("house_light", true); err != nil {
		s.logger.Warnf("Failed to switch on house light: %v", err)
	}

	if err := s.redis.PublishState(s.driver.State()); err != nil {
		s.logger.Warnf("Failed to publish initial state: %v", err)
	}

	s.epoch = time.Now()
	s.wg.Add(1)
	go s.tickLoop()

	if err := s.redis.StartListening(); err != nil {
		return fmt.Errorf("failed to start Redis listeners: %w", err)
	}

	s.logger.Infof("Trial system started, tick period %v", s.cfg.TickPeriod)
	return nil
}

func (s *TrialSystem) tickLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.TickPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.tick(time.Since(s.epoch).Milliseconds())
		}
	}
}

// tick runs one scheduler pass: at most one pending host command, then
// one FSM dispatch.
func (s *TrialSystem) tick(now int64) {
	select {
	case line := <-s.cmdChan:
		s.applyCommand(now, line)
	default:
	}

	s.driver.Tick(now)
}

// enqueueCommand hands a command line from the Redis listener to the tick
// loop. Lines beyond the buffer are dropped with a diagnostic rather than
// blocking the listener.
func (s *TrialSystem) enqueueCommand(line string) error {
	select {
	case s.cmdChan <- line:
		return nil
	default:
		s.logger.Warnf("Command buffer full, dropping %q", line)
		return fmt.Errorf("command buffer full")
	}
}

func (s *TrialSystem) Shutdown() {
	s.logger.Infof("Shutting down trial system")

	close(s.stopChan)
	s.wg.Wait()

	if err := s.redis.Close(); err != nil {
		s.logger.Warnf("Error closing Redis client: %v", err)
	}
	s.io.Cleanup()

	s.logger.Infof("Shutdown complete")
}
