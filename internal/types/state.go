package types

// State identifies which handler owns the current scheduler tick.
type State string

const (
	StateWaitToStartTrial   State = "wait-to-start-trial"
	StateTrialStart         State = "trial-start"
	StateStimPeriod         State = "stim-period"
	StateResponseWindow     State = "response-window"
	StateReward             State = "reward"
	StatePostRewardPause    State = "post-reward-pause"
	StateErrorTimeout       State = "error-timeout"
	StateInterTrialInterval State = "inter-trial-interval"
)

// Response codes latched into the RESP result slot. 0 means "no response yet".
const (
	ResponseGo   int64 = 1
	ResponseNogo int64 = 2
)

// Outcome codes latched into the OUTC result slot. 0 means "no outcome yet".
const (
	OutcomeHit           int64 = 1
	OutcomeMiss          int64 = 2
	OutcomeCorrectReject int64 = 3
	OutcomeFalseAlarm    int64 = 4
)

// Boolean parameter encoding on the host link. 0 is the reserved error
// value, so yes/no get distinct nonzero codes.
const (
	SpeakYes int64 = 3
	SpeakNo  int64 = 2
)
