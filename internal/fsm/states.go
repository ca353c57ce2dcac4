package fsm

import (
	"math/rand"

	"trial-service/internal/params"
	"trial-service/internal/types"
)

// deviceParams maps each configured device, by position, to the parameter
// holding its function index for the trial.
var deviceParams = []int{params.StepperFn, params.SpeakerFn}

// stimPeriod presents the stimulus: each device runs its per-tick action
// for the function index snapshotted at entry. Licks during the period
// spoil the trial. On rewarded trials the valve opens so the reward pulse
// ends together with the stimulus.
type stimPeriod struct {
	NopHooks
	ts     *TimedState
	devFns []int64
	licked bool
}

func newStimPeriod(n int) *stimPeriod {
	s := &stimPeriod{devFns: make([]int64, n)}
	s.ts = NewTimedState(0, s)
	return s
}

func (s *stimPeriod) Setup(ctx *TrialContext, now int64) {
	s.ts.SetDuration(ctx.Params.Get(params.StimDur))
	s.licked = false
	for i := range ctx.Devices {
		if i < len(deviceParams) {
			s.devFns[i] = ctx.Params.Get(deviceParams[i])
		}
	}
}

func (s *stimPeriod) Loop(ctx *TrialContext, now int64) {
	for i, dev := range ctx.Devices {
		if err := dev.Act(s.devFns[i], now); err != nil {
			ctx.Log.Warnf("device %d act failed: %v", i, err)
		}
	}

	if ctx.Licked {
		s.licked = true
	}

	// Make the reward coterminous with the stimulus on rewarded trials.
	if ctx.Params.Get(params.Rewarded) == 1 &&
		s.ts.Remaining(now) < ctx.Params.Get(params.RewardDur) {
		if err := ctx.Valve.Set(true); err != nil {
			ctx.Log.Warnf("reward valve open failed: %v", err)
		}
	}
}

func (s *stimPeriod) Finish(ctx *TrialContext, now int64) {
	for i, dev := range ctx.Devices {
		if err := dev.Finish(); err != nil {
			ctx.Log.Warnf("device %d finish failed: %v", i, err)
		}
	}
	if err := ctx.Valve.Set(false); err != nil {
		ctx.Log.Warnf("reward valve close failed: %v", err)
	}

	if s.licked {
		ctx.Next = types.StateErrorTimeout
	} else {
		ctx.Next = types.StateResponseWindow
	}
}

// responseWindow waits for the subject's response. The sense function is
// swapped out by the fake responder variant.
type responseWindow struct {
	NopHooks
	ts    *TimedState
	sense func(ctx *TrialContext) bool
}

func newResponseWindow() *responseWindow {
	w := &responseWindow{}
	w.sense = func(ctx *TrialContext) bool { return ctx.Licked }
	w.ts = NewTimedState(0, w)
	return w
}

// newFakeResponseWindow replaces the sensor sample with a low-probability
// random draw, for bench runs without an animal.
func newFakeResponseWindow(seed int64) *responseWindow {
	rng := rand.New(rand.NewSource(seed))
	w := &responseWindow{}
	w.sense = func(*TrialContext) bool { return rng.Intn(10000) < 3 }
	w.ts = NewTimedState(0, w)
	return w
}

func (w *responseWindow) Setup(ctx *TrialContext, now int64) {
	w.ts.SetDuration(ctx.Params.Get(params.RespWinDur))
}

func (w *responseWindow) Loop(ctx *TrialContext, now int64) {
	if ctx.RewardsThisTrial >= ctx.Params.Get(params.MaxRewardsPerTrial) {
		w.ts.Stop()
		return
	}

	if !w.sense(ctx) {
		return
	}

	// Only the first response is latched.
	if ctx.Params.Result(params.Response) == 0 {
		ctx.Params.SetResult(params.Response, types.ResponseGo)
	}

	switch {
	case ctx.Params.Get(params.Rewarded) == 1:
		ctx.RewardsThisTrial++
		ctx.Params.SetResult(params.Outcome, types.OutcomeHit)
		ctx.Next = types.StateReward
	case ctx.Params.Get(params.TerminateOnError) == types.SpeakNo:
		// No action is defined for a response on an unrewarded trial while
		// TOE is off; the window keeps running.
	default:
		ctx.Params.SetResult(params.Outcome, types.OutcomeFalseAlarm)
		ctx.Next = types.StateErrorTimeout
		// Leaving for good: clear the sentinel so the next activation
		// starts a fresh window instead of inheriting this deadline.
		w.ts.Deactivate()
	}
}

func (w *responseWindow) Finish(ctx *TrialContext, now int64) {
	if ctx.Params.Result(params.Response) == 0 {
		ctx.Params.SetResult(params.Response, types.ResponseNogo)
		if ctx.Params.Get(params.Rewarded) == 1 {
			ctx.Params.SetResult(params.Outcome, types.OutcomeMiss)
		} else {
			ctx.Params.SetResult(params.Outcome, types.OutcomeCorrectReject)
		}
	}
	ctx.Next = types.StateInterTrialInterval
}

// postRewardPause idles between rewards, then re-enters the response
// window so the subject can earn up to MRT rewards.
type postRewardPause struct {
	NopHooks
	ts *TimedState
}

func newPostRewardPause() *postRewardPause {
	p := &postRewardPause{}
	p.ts = NewTimedState(0, p)
	return p
}

func (p *postRewardPause) Setup(ctx *TrialContext, now int64) {
	p.ts.SetDuration(ctx.Params.Get(params.InterRewardInterval))
}

func (p *postRewardPause) Finish(ctx *TrialContext, now int64) {
	ctx.Next = types.StateResponseWindow
}

// errorTimeout punishes spoiled trials with a dead period.
type errorTimeout struct {
	NopHooks
	ts *TimedState
}

func newErrorTimeout() *errorTimeout {
	e := &errorTimeout{}
	e.ts = NewTimedState(0, e)
	return e
}

func (e *errorTimeout) Setup(ctx *TrialContext, now int64) {
	e.ts.SetDuration(ctx.Params.Get(params.ErrorTimeout))
}

func (e *errorTimeout) Finish(ctx *TrialContext, now int64) {
	ctx.Next = types.StateInterTrialInterval
}

// interTrialInterval reports the trial's results once on entry, idles for
// the configured interval, then returns to the wait state.
type interTrialInterval struct {
	NopHooks
	ts *TimedState
}

func newInterTrialInterval() *interTrialInterval {
	i := &interTrialInterval{}
	i.ts = NewTimedState(0, i)
	return i
}

func (i *interTrialInterval) Setup(ctx *TrialContext, now int64) {
	i.ts.SetDuration(ctx.Params.Get(params.InterTrialInterval))
	for _, r := range ctx.Params.Results() {
		ctx.Reporter.Result(now, r.Name, r.Value)
	}
}

func (i *interTrialInterval) Finish(ctx *TrialContext, now int64) {
	ctx.Next = types.StateWaitToStartTrial
}
