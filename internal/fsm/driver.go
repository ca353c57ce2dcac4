package fsm

import (
	"strings"

	"trial-service/internal/params"
	"trial-service/internal/types"
)

// RewardEvent is the event tag emitted when the reward valve dispenses.
const RewardEvent = "R_L"

// Options selects the driver's behavioral variants.
type Options struct {
	// FakeResponder replaces the lick sensor with a random draw.
	FakeResponder bool
	// Seed feeds the fake responder's RNG.
	Seed int64
}

// Driver is the per-tick dispatcher. It owns the current-state tag,
// invokes exactly one state handler per tick, and commits the handler's
// next-state output. All state entry and exit happens here.
type Driver struct {
	ctx *TrialContext

	stimPeriod   *TimedState
	respWindow   *TimedState
	rewardPause  *TimedState
	errorTimeout *TimedState
	interTrial   *TimedState
}

func NewDriver(ctx *TrialContext, opts Options) *Driver {
	ctx.State = types.StateWaitToStartTrial

	var rw *responseWindow
	if opts.FakeResponder {
		rw = newFakeResponseWindow(opts.Seed)
	} else {
		rw = newResponseWindow()
	}

	return &Driver{
		ctx:          ctx,
		stimPeriod:   newStimPeriod(len(ctx.Devices)).ts,
		respWindow:   rw.ts,
		rewardPause:  newPostRewardPause().ts,
		errorTimeout: newErrorTimeout().ts,
		interTrial:   newInterTrialInterval().ts,
	}
}

// State returns the current-state tag.
func (d *Driver) State() types.State {
	return d.ctx.State
}

// Tick runs one scheduler pass: sample the response sensor, dispatch to
// the active state, then commit the next-state output.
func (d *Driver) Tick(now int64) {
	ctx := d.ctx

	if sensing, err := ctx.Sensor.Sensing(); err != nil {
		ctx.Log.Warnf("response sensor read failed: %v", err)
	} else {
		ctx.Licked = sensing
	}

	prev := ctx.State
	ctx.Next = prev

	switch prev {
	case types.StateWaitToStartTrial:
		d.waitToStartTrial(now)
	case types.StateTrialStart:
		d.trialStart(now)
	case types.StateStimPeriod:
		d.stimPeriod.Run(ctx, now)
	case types.StateResponseWindow:
		d.respWindow.Run(ctx, now)
	case types.StateReward:
		d.reward(now)
	case types.StatePostRewardPause:
		d.rewardPause.Run(ctx, now)
	case types.StateErrorTimeout:
		d.errorTimeout.Run(ctx, now)
	case types.StateInterTrialInterval:
		d.interTrial.Run(ctx, now)
	default:
		ctx.Log.Errorf("tick in unknown state %q, recovering to wait", prev)
		ctx.Next = types.StateWaitToStartTrial
	}

	if ctx.Next != prev {
		ctx.Reporter.StateChange(now, prev, ctx.Next)
	}
	ctx.State = ctx.Next
}

// waitToStartTrial blocks trial progress until the host releases the
// trial. Under the enforce-required policy a release with unset required
// parameters is refused with a diagnostic.
func (d *Driver) waitToStartTrial(now int64) {
	ctx := d.ctx
	if !ctx.ReleaseRequested {
		return
	}

	if missing := ctx.Params.MissingRequired(); len(missing) > 0 {
		ctx.Reporter.Debug(now, "release refused, unset params: "+strings.Join(missing, ","))
		ctx.ReleaseRequested = false
		return
	}

	ctx.Reporter.TrialReleased(now)
	ctx.ReleaseRequested = false
	ctx.Next = types.StateTrialStart
}

// trialStart reports the trial's parameters, resets the result table to
// defaults, and moves straight on to the stimulus.
func (d *Driver) trialStart(now int64) {
	ctx := d.ctx

	ctx.Reporter.TrialStart(now)
	for _, p := range ctx.Params.ReportableParams() {
		ctx.Reporter.Param(now, p.Name, p.Value)
	}

	ctx.Params.ResetResults()
	ctx.Params.BeginTrial()
	ctx.RewardsThisTrial = 0

	ctx.Next = types.StateStimPeriod
}

// reward dispenses one reward. The valve pulse deliberately blocks the
// tick: nothing else needs the CPU while the solenoid is held, and the
// pulse width stays exact. Command and sensor polling resume next tick.
func (d *Driver) reward(now int64) {
	ctx := d.ctx

	ctx.Reporter.Event(now, RewardEvent)
	if err := ctx.Valve.Pulse(ctx.Params.Get(params.RewardDur)); err != nil {
		ctx.Log.Errorf("reward pulse failed: %v", err)
	}

	ctx.Next = types.StatePostRewardPause
}
