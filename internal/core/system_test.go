package core

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"trial-service/internal/fsm"
	"trial-service/internal/logger"
	"trial-service/internal/messaging"
	"trial-service/internal/params"
	"trial-service/internal/types"
)

type mockMessaging struct {
	mu        sync.Mutex
	callbacks messaging.Callbacks
	connected bool
	listening bool
	closed    bool
	states    []types.State
	lines     []string
}

func (m *mockMessaging) SetCallbacks(callbacks messaging.Callbacks) {
	m.callbacks = callbacks
}

func (m *mockMessaging) Connect() error {
	m.connected = true
	return nil
}

func (m *mockMessaging) StartListening() error {
	m.listening = true
	return nil
}

func (m *mockMessaging) Close() error {
	m.closed = true
	return nil
}

func (m *mockMessaging) PublishState(state types.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = append(m.states, state)
	return nil
}

func (m *mockMessaging) PublishReportLine(line string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = append(m.lines, line)
	return nil
}

func (m *mockMessaging) allLines() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return strings.Join(m.lines, "\n")
}

type pulseCall struct {
	channel string
	d       time.Duration
}

type mockHardware struct {
	initialized bool
	cleaned     bool
	lick        bool
	lickErr     error
	writes      []string
	pulses      []pulseCall
}

func (m *mockHardware) Initialize() error {
	m.initialized = true
	return nil
}

func (m *mockHardware) Cleanup() {
	m.cleaned = true
}

func (m *mockHardware) ReadLickDetector() (bool, error) {
	return m.lick, m.lickErr
}

func (m *mockHardware) WriteDigitalOutput(channel string, value bool) error {
	m.writes = append(m.writes, fmt.Sprintf("%s=%v", channel, value))
	return nil
}

func (m *mockHardware) PulseOutput(channel string, d time.Duration) error {
	m.pulses = append(m.pulses, pulseCall{channel: channel, d: d})
	return nil
}

func newTestSystem() (*TrialSystem, *mockMessaging, *mockHardware) {
	hw := &mockHardware{}
	msg := &mockMessaging{}
	l := logger.NewLogger(nil, logger.LogLevelNone)
	s := NewTrialSystem(hw, msg, nil, Config{TickPeriod: time.Millisecond}, l)
	return s, msg, hw
}

func TestStartAndShutdown(t *testing.T) {
	s, msg, hw := newTestSystem()

	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !msg.connected || !msg.listening {
		t.Error("Start did not bring up the host link")
	}
	if !hw.initialized {
		t.Error("Start did not initialize hardware")
	}
	if msg.callbacks.CommandCallback == nil {
		t.Error("Command callback not registered")
	}

	msg.mu.Lock()
	gotInitial := len(msg.states) > 0 && msg.states[0] == types.StateWaitToStartTrial
	msg.mu.Unlock()
	if !gotInitial {
		t.Error("Initial state not published")
	}

	s.Shutdown()
	if !msg.closed {
		t.Error("Shutdown did not close the host link")
	}
	if !hw.cleaned {
		t.Error("Shutdown did not clean up hardware")
	}
}

func TestApplyCommandSet(t *testing.T) {
	s, _, _ := newTestSystem()

	s.applyCommand(5, "SET STIMDUR 1500")
	if got := s.store.Get(params.StimDur); got != 1500 {
		t.Errorf("STIMDUR = %d after SET, want 1500", got)
	}
}

func TestApplyCommandBadInputReportsDiagnostic(t *testing.T) {
	s, msg, _ := newTestSystem()

	cases := []string{
		"SET STIMDUR zero",
		"SET NOPE 5",
		"SET STIMDUR 0",
		"FROB",
	}
	for _, line := range cases {
		s.applyCommand(7, line)
	}

	if got := s.store.Get(params.StimDur); got != 2000 {
		t.Errorf("Bad commands mutated STIMDUR to %d", got)
	}
	for i, line := range msg.lines {
		if !strings.HasPrefix(line, "7 DBG ") {
			t.Errorf("Line %d = %q, want a DBG diagnostic", i, line)
		}
	}
	if len(msg.lines) != len(cases) {
		t.Errorf("Expected %d diagnostics, got %d", len(cases), len(msg.lines))
	}
}

func TestApplyCommandReleaseTrial(t *testing.T) {
	s, _, _ := newTestSystem()

	s.applyCommand(5, "RELEASE_TRL")
	if !s.ctx.ReleaseRequested {
		t.Error("RELEASE_TRL did not set the release request")
	}
}

func TestTickDrainsOneCommandPerPass(t *testing.T) {
	s, _, _ := newTestSystem()

	if err := s.enqueueCommand("SET STIMDUR 100"); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if err := s.enqueueCommand("SET RWIN 200"); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	s.tick(1)
	if s.store.Get(params.StimDur) != 100 {
		t.Error("First command not applied on first tick")
	}
	if s.store.Get(params.RespWinDur) != 45000 {
		t.Error("Second command applied on the same tick")
	}

	s.tick(2)
	if s.store.Get(params.RespWinDur) != 200 {
		t.Error("Second command not applied on second tick")
	}
}

func TestTickWithoutCommandsIsIdempotent(t *testing.T) {
	s, msg, _ := newTestSystem()

	before := s.store.Results()
	s.tick(1)
	s.tick(2)

	if s.driver.State() != types.StateWaitToStartTrial {
		t.Errorf("Empty ticks moved the state to %s", s.driver.State())
	}
	if s.store.Get(params.StimDur) != 2000 {
		t.Error("Empty ticks mutated the parameter table")
	}
	after := s.store.Results()
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("Empty ticks mutated result %s", before[i].Name)
		}
	}
	if len(msg.lines) != 0 {
		t.Errorf("Empty ticks emitted report lines: %v", msg.lines)
	}
}

func TestEnqueueCommandOverflowDrops(t *testing.T) {
	s, _, _ := newTestSystem()

	for i := 0; i < cap(s.cmdChan); i++ {
		if err := s.enqueueCommand("RELEASE_TRL"); err != nil {
			t.Fatalf("enqueue %d failed: %v", i, err)
		}
	}
	if err := s.enqueueCommand("RELEASE_TRL"); err == nil {
		t.Error("Overflowing enqueue did not report the drop")
	}
}

// Drives a whole unrewarded trial through the command channel and checks
// the report stream end to end.
func TestSystemRunsTrial(t *testing.T) {
	s, msg, hw := newTestSystem()

	for _, line := range []string{
		"SET STIMDUR 5",
		"SET RWIN 5",
		"SET ITI 5",
		"RELEASE_TRL",
	} {
		if err := s.enqueueCommand(line); err != nil {
			t.Fatalf("enqueue %q failed: %v", line, err)
		}
	}

	for now := int64(1); now <= 40; now++ {
		s.tick(now)
	}

	if got := s.driver.State(); got != types.StateWaitToStartTrial {
		t.Fatalf("Trial did not complete, state %s", got)
	}

	all := msg.allLines()
	for _, want := range []string{
		"TRL_RELEASED",
		"TRL_START",
		"TRLP STIMDUR 5",
		"ST_CHG trial-start stim-period",
		"TRLR RESP 2",
		"TRLR OUTC 3",
	} {
		if !strings.Contains(all, want) {
			t.Errorf("Report stream missing %q:\n%s", want, all)
		}
	}

	// State hash updated along the way.
	found := false
	msg.mu.Lock()
	for _, st := range msg.states {
		if st == types.StateResponseWindow {
			found = true
		}
	}
	msg.mu.Unlock()
	if !found {
		t.Error("Response window state never published")
	}

	if len(hw.pulses) != 0 {
		t.Errorf("Unrewarded trial pulsed the valve: %v", hw.pulses)
	}
}

func TestRewardValveAdapter(t *testing.T) {
	hw := &mockHardware{}
	v := rewardValve{io: hw}

	if err := v.Set(true); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if len(hw.writes) != 1 || hw.writes[0] != "reward_valve=true" {
		t.Errorf("Set wrote %v", hw.writes)
	}

	if err := v.Pulse(50); err != nil {
		t.Fatalf("Pulse failed: %v", err)
	}
	want := pulseCall{channel: "reward_valve", d: 50 * time.Millisecond}
	if len(hw.pulses) != 1 || hw.pulses[0] != want {
		t.Errorf("Pulse called %v, want %v", hw.pulses, want)
	}
}

func TestLickSensorAdapter(t *testing.T) {
	hw := &mockHardware{lick: true}
	sensor := lickSensor{io: hw}

	sensing, err := sensor.Sensing()
	if err != nil {
		t.Fatalf("Sensing failed: %v", err)
	}
	if !sensing {
		t.Error("Lick level not passed through")
	}
}

var _ fsm.Reporter = (*reporter)(nil)
