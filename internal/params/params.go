package params

import (
	"errors"
	"fmt"
	"strconv"
)

// Trial parameter indices. Order matches the reporting order on the host link.
const (
	StepperFn = iota // STPRIDX: stepper function index for the stim period
	SpeakerFn        // SPKRIDX: speaker function index for the stim period
	StimDur          // STIMDUR: stimulus period duration (ms)
	Rewarded         // REW: 1 if a response during the window is rewarded
	RewardDur        // REW_DUR: reward valve pulse duration (ms)
	InterRewardInterval
	ErrorTimeout
	InterTrialInterval
	RespWinDur
	MaxRewardsPerTrial
	TerminateOnError
	numParams
)

// Trial result indices.
const (
	Response = iota // RESP: latched response code
	Outcome         // OUTC: trial outcome code
	numResults
)

var (
	ErrUnknownParameter = errors.New("unknown parameter")
	ErrBadValue         = errors.New("bad parameter value")
)

// Category classifies how a parameter is expected to vary across a session.
type Category int

const (
	// CategoryRequired parameters must be set by the host on every trial.
	CategoryRequired Category = iota
	// CategoryLatched parameters persist across trials but often vary
	// within a session.
	CategoryLatched
	// CategoryInitUsually parameters could vary later but rarely do.
	CategoryInitUsually
	// CategoryInitOnly parameters are consumed once at startup.
	CategoryInitOnly
)

type paramSlot struct {
	name     string
	value    int64
	def      int64
	category Category
	reportET bool // report on every trial regardless of policy
	setThisTrial bool
}

type resultSlot struct {
	name  string
	value int64
	def   int64
}

// Entry is one (name, value) pair of a reporting snapshot.
type Entry struct {
	Name  string
	Value int64
}

// Policy selects between the reporting/enforcement variants the protocol
// leaves open: whether latched parameters are reported on every trial, and
// whether trial release should be refused while required parameters are
// still unset.
type Policy struct {
	ReportLatchedEveryTrial bool
	EnforceRequired         bool
}

// Store holds the fixed tables of trial parameters and trial results.
// Value 0 is reserved as "unset/error": a failed SET is indistinguishable
// from an intentional 0, so required parameters never legitimately use it.
type Store struct {
	params  [numParams]paramSlot
	results [numResults]resultSlot
	byName  map[string]int
	policy  Policy
}

func New(policy Policy) *Store {
	s := &Store{policy: policy}
	s.params = [numParams]paramSlot{
		StepperFn:           {name: "STPRIDX", def: 0, category: CategoryRequired, reportET: true},
		SpeakerFn:           {name: "SPKRIDX", def: 0, category: CategoryRequired, reportET: true},
		StimDur:             {name: "STIMDUR", def: 2000, category: CategoryLatched, reportET: true},
		Rewarded:            {name: "REW", def: 0, category: CategoryRequired, reportET: true},
		RewardDur:           {name: "REW_DUR", def: 50, category: CategoryInitUsually},
		InterRewardInterval: {name: "IRI", def: 500, category: CategoryInitUsually},
		ErrorTimeout:        {name: "TO", def: 6000, category: CategoryLatched},
		InterTrialInterval:  {name: "ITI", def: 3000, category: CategoryInitUsually},
		RespWinDur:          {name: "RWIN", def: 45000, category: CategoryInitUsually},
		MaxRewardsPerTrial:  {name: "MRT", def: 1, category: CategoryLatched},
		TerminateOnError:    {name: "TOE", def: 1, category: CategoryLatched},
	}
	s.results = [numResults]resultSlot{
		Response: {name: "RESP", def: 0},
		Outcome:  {name: "OUTC", def: 0},
	}
	s.byName = make(map[string]int, numParams)
	for i := range s.params {
		s.params[i].value = s.params[i].def
		s.byName[s.params[i].name] = i
	}
	for i := range s.results {
		s.results[i].value = s.results[i].def
	}
	return s
}

// Set parses rawValue and stores it into the named parameter. On any
// failure the previous value is kept. A parsed value of 0 is rejected as
// ErrBadValue because 0 is the reserved error value.
func (s *Store) Set(name, rawValue string) error {
	idx, ok := s.byName[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownParameter, name)
	}
	v, err := strconv.ParseInt(rawValue, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %s=%q", ErrBadValue, name, rawValue)
	}
	if v == 0 {
		return fmt.Errorf("%w: %s=0 (0 is the reserved error value)", ErrBadValue, name)
	}
	s.params[idx].value = v
	s.params[idx].setThisTrial = true
	return nil
}

// Get returns the live value of a parameter by index.
func (s *Store) Get(idx int) int64 {
	return s.params[idx].value
}

// Name returns the wire abbreviation of a parameter by index.
func (s *Store) Name(idx int) string {
	return s.params[idx].name
}

// ReportableParams enumerates the parameters to report at trial start, in
// table order. Under Policy.ReportLatchedEveryTrial, latched parameters
// join the always-reported set.
func (s *Store) ReportableParams() []Entry {
	var out []Entry
	for i := range s.params {
		p := &s.params[i]
		if p.reportET || (s.policy.ReportLatchedEveryTrial && p.category == CategoryLatched) {
			out = append(out, Entry{Name: p.name, Value: p.value})
		}
	}
	return out
}

// MissingRequired lists required parameters that have not been set since
// the last trial start. Empty unless Policy.EnforceRequired is on.
func (s *Store) MissingRequired() []string {
	if !s.policy.EnforceRequired {
		return nil
	}
	var out []string
	for i := range s.params {
		p := &s.params[i]
		if p.category == CategoryRequired && !p.setThisTrial {
			out = append(out, p.name)
		}
	}
	return out
}

// BeginTrial clears the per-trial set-marks used by MissingRequired.
func (s *Store) BeginTrial() {
	for i := range s.params {
		s.params[i].setThisTrial = false
	}
}

// Result returns the current value of a result slot.
func (s *Store) Result(idx int) int64 {
	return s.results[idx].value
}

// SetResult overwrites a result slot. Latch-on-first-write is the caller's
// concern: states only write when the slot still holds its default.
func (s *Store) SetResult(idx int, v int64) {
	s.results[idx].value = v
}

// ResultName returns the wire abbreviation of a result slot.
func (s *Store) ResultName(idx int) string {
	return s.results[idx].name
}

// ResetResults restores every result slot to its default.
func (s *Store) ResetResults() {
	for i := range s.results {
		s.results[i].value = s.results[i].def
	}
}

// Results enumerates all result slots in table order, for the inter-trial
// report.
func (s *Store) Results() []Entry {
	out := make([]Entry, 0, len(s.results))
	for i := range s.results {
		out = append(out, Entry{Name: s.results[i].name, Value: s.results[i].value})
	}
	return out
}
