package fsm

// Hooks are the lifecycle callbacks of a timed state. Setup runs once when
// the state activates, Loop runs on every tick in between, Finish runs once
// when the duration elapses or the state stops itself early.
type Hooks interface {
	Setup(ctx *TrialContext, now int64)
	Loop(ctx *TrialContext, now int64)
	Finish(ctx *TrialContext, now int64)
}

// NopHooks provides safe no-op defaults so a state only overrides the
// callbacks it needs.
type NopHooks struct{}

func (NopHooks) Setup(*TrialContext, int64)  {}
func (NopHooks) Loop(*TrialContext, int64)   {}
func (NopHooks) Finish(*TrialContext, int64) {}

// TimedState executes one FSM state with temporal extent across scheduler
// ticks. A zero deadline marks the state inactive; the first Run after
// activation runs Setup and arms the deadline. Time is int64 milliseconds.
type TimedState struct {
	hooks    Hooks
	duration int64
	deadline int64 // 0 while inactive
	lastTick int64
	stop     bool
}

func NewTimedState(duration int64, hooks Hooks) *TimedState {
	return &TimedState{hooks: hooks, duration: duration}
}

// Run advances the state by one tick. The deadline is armed after Setup so
// a Setup that updates the duration takes effect for this activation.
func (s *TimedState) Run(ctx *TrialContext, now int64) {
	s.lastTick = now

	if s.deadline == 0 {
		s.hooks.Setup(ctx, now)
		s.stop = false
		s.deadline = now + s.duration
	}

	if s.stop || now >= s.deadline {
		s.hooks.Finish(ctx, now)
		s.deadline = 0
		return
	}

	s.hooks.Loop(ctx, now)
	if s.stop {
		// Loop requested an early stop; close out on the same tick so the
		// sentinel never leaks into the next activation.
		s.hooks.Finish(ctx, now)
		s.deadline = 0
	}
}

// SetDuration updates the configured duration. Takes effect the next time
// the deadline is armed.
func (s *TimedState) SetDuration(d int64) {
	s.duration = d
}

// Stop ends the state before its duration elapses. Only Loop and Finish
// may call it.
func (s *TimedState) Stop() {
	s.stop = true
}

// Deactivate clears the deadline sentinel without running Finish. Used
// when Loop transitions away permanently and Finish's bookkeeping must not
// run.
func (s *TimedState) Deactivate() {
	s.deadline = 0
}

// Active reports whether the deadline is armed.
func (s *TimedState) Active() bool {
	return s.deadline != 0
}

// Remaining returns the time left until the deadline. Meaningful only
// while the state is active.
func (s *TimedState) Remaining(now int64) int64 {
	return s.deadline - now
}
