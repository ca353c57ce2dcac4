package fsm

import (
	"trial-service/internal/logger"
	"trial-service/internal/params"
	"trial-service/internal/types"
)

// Reporter receives the (tag, fields) tuples the trial emits on the host
// link. Formatting and transport are the collaborator's concern.
type Reporter interface {
	TrialStart(now int64)
	TrialReleased(now int64)
	Param(now int64, name string, value int64)
	Result(now int64, name string, value int64)
	StateChange(now int64, prev, next types.State)
	Event(now int64, event string)
	Debug(now int64, msg string)
}

// Device is one stimulus device (stepper, speaker). The stim period calls
// Act once per tick with the function index snapshotted at state entry,
// and Finish once when the period ends.
type Device interface {
	Act(fn int64, now int64) error
	Finish() error
}

// ResponseSensor answers whether the subject's response (a lick) is
// currently active. Polled once per tick by the driver.
type ResponseSensor interface {
	Sensing() (bool, error)
}

// RewardValve controls the reward solenoid. Pulse blocks for the given
// number of milliseconds with the valve held open.
type RewardValve interface {
	Set(open bool) error
	Pulse(dur int64) error
}

// TrialContext carries all state shared between the driver and the state
// handlers: the parameter/result tables, the current and next state tags,
// per-trial counters, and the hardware collaborators. The driver owns it
// for the lifetime of the run.
type TrialContext struct {
	Params *params.Store

	State types.State // owned by the driver
	Next  types.State // written by state handlers

	Licked           bool // response sensor level sampled this tick
	RewardsThisTrial int64
	ReleaseRequested bool // set by the command channel, consumed by wait-to-start

	Devices  []Device
	Sensor   ResponseSensor
	Valve    RewardValve
	Reporter Reporter
	Log      *logger.Logger
}
