package core

import (
	"time"

	"trial-service/internal/logger"
	"trial-service/internal/trialspeak"
	"trial-service/internal/types"
)

// reporter turns the FSM's report tuples into trialspeak lines on the
// host link. State changes additionally update the published state hash.
type reporter struct {
	redis MessagingClient
	log   *logger.Logger
}

func (r *reporter) send(line string) {
	r.log.Debugf("report: %s", line)
	if err := r.redis.PublishReportLine(line); err != nil {
		r.log.Warnf("Failed to send report line %q: %v", line, err)
	}
}

func (r *reporter) TrialStart(now int64) {
	r.send(trialspeak.TrialStartLine(now))
}

func (r *reporter) TrialReleased(now int64) {
	r.send(trialspeak.TrialReleasedLine(now))
}

func (r *reporter) Param(now int64, name string, value int64) {
	r.send(trialspeak.ParamLine(now, name, value))
}

func (r *reporter) Result(now int64, name string, value int64) {
	r.send(trialspeak.ResultLine(now, name, value))
}

func (r *reporter) StateChange(now int64, prev, next types.State) {
	r.log.Infof("State transition: %s -> %s", prev, next)
	r.send(trialspeak.StateChangeLine(now, string(prev), string(next)))
	if err := r.redis.PublishState(next); err != nil {
		r.log.Warnf("Failed to publish state: %v", err)
	}
}

func (r *reporter) Event(now int64, event string) {
	r.send(trialspeak.EventLine(now, event))
}

func (r *reporter) Debug(now int64, msg string) {
	r.send(trialspeak.DebugLine(now, msg))
}

// lickSensor adapts the rig's ADC lick read to the FSM's sensor query.
type lickSensor struct {
	io HardwareIO
}

func (s lickSensor) Sensing() (bool, error) {
	return s.io.ReadLickDetector()
}

// rewardValve adapts the reward solenoid line to the FSM's valve
// interface. Pulse durations are in milliseconds, matching trial time.
type rewardValve struct {
	io HardwareIO
}

func (v rewardValve) Set(open bool) error {
	return v.io.WriteDigitalOutput("reward_valve", open)
}

func (v rewardValve) Pulse(dur int64) error {
	return v.io.PulseOutput("reward_valve", time.Duration(dur)*time.Millisecond)
}
