package params

import (
	"errors"
	"testing"
)

func TestSetUnknownParameter(t *testing.T) {
	s := New(Policy{})

	err := s.Set("NOPE", "5")
	if !errors.Is(err, ErrUnknownParameter) {
		t.Errorf("Expected ErrUnknownParameter, got %v", err)
	}
}

func TestSetBadValueKeepsPrevious(t *testing.T) {
	s := New(Policy{})
	if err := s.Set("STIMDUR", "1500"); err != nil {
		t.Fatalf("Valid set failed: %v", err)
	}

	cases := []string{"abc", "", "1.5", "0"}
	for _, raw := range cases {
		err := s.Set("STIMDUR", raw)
		if !errors.Is(err, ErrBadValue) {
			t.Errorf("Set STIMDUR=%q: expected ErrBadValue, got %v", raw, err)
		}
		if got := s.Get(StimDur); got != 1500 {
			t.Errorf("Set STIMDUR=%q mutated value to %d", raw, got)
		}
	}
}

func TestSetNegativeAccepted(t *testing.T) {
	// The wire format is signed; only 0 is reserved.
	s := New(Policy{})
	if err := s.Set("STPRIDX", "-1"); err != nil {
		t.Fatalf("Set STPRIDX=-1 failed: %v", err)
	}
	if got := s.Get(StepperFn); got != -1 {
		t.Errorf("STPRIDX = %d, want -1", got)
	}
}

func TestDefaults(t *testing.T) {
	s := New(Policy{})

	cases := []struct {
		idx  int
		name string
		def  int64
	}{
		{StepperFn, "STPRIDX", 0},
		{SpeakerFn, "SPKRIDX", 0},
		{StimDur, "STIMDUR", 2000},
		{Rewarded, "REW", 0},
		{RewardDur, "REW_DUR", 50},
		{InterRewardInterval, "IRI", 500},
		{ErrorTimeout, "TO", 6000},
		{InterTrialInterval, "ITI", 3000},
		{RespWinDur, "RWIN", 45000},
		{MaxRewardsPerTrial, "MRT", 1},
		{TerminateOnError, "TOE", 1},
	}
	for _, c := range cases {
		if s.Name(c.idx) != c.name {
			t.Errorf("Name(%d) = %s, want %s", c.idx, s.Name(c.idx), c.name)
		}
		if s.Get(c.idx) != c.def {
			t.Errorf("%s default = %d, want %d", c.name, s.Get(c.idx), c.def)
		}
	}
}

func TestReportableParams(t *testing.T) {
	s := New(Policy{})

	got := s.ReportableParams()
	want := []string{"STPRIDX", "SPKRIDX", "STIMDUR", "REW"}
	if len(got) != len(want) {
		t.Fatalf("ReportableParams returned %d entries, want %d: %v", len(got), len(want), got)
	}
	for i, name := range want {
		if got[i].Name != name {
			t.Errorf("ReportableParams[%d] = %s, want %s", i, got[i].Name, name)
		}
	}
}

func TestReportableParamsLatchedPolicy(t *testing.T) {
	s := New(Policy{ReportLatchedEveryTrial: true})

	got := s.ReportableParams()
	want := []string{"STPRIDX", "SPKRIDX", "STIMDUR", "REW", "TO", "MRT", "TOE"}
	if len(got) != len(want) {
		t.Fatalf("ReportableParams returned %d entries, want %d: %v", len(got), len(want), got)
	}
	for i, name := range want {
		if got[i].Name != name {
			t.Errorf("ReportableParams[%d] = %s, want %s", i, got[i].Name, name)
		}
	}
}

func TestMissingRequired(t *testing.T) {
	s := New(Policy{EnforceRequired: true})

	got := s.MissingRequired()
	want := []string{"STPRIDX", "SPKRIDX", "REW"}
	if len(got) != len(want) {
		t.Fatalf("MissingRequired = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("MissingRequired[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	for _, name := range want {
		if err := s.Set(name, "1"); err != nil {
			t.Fatalf("Set %s failed: %v", name, err)
		}
	}
	if missing := s.MissingRequired(); len(missing) != 0 {
		t.Errorf("All required set, still missing %v", missing)
	}

	// The next trial consumes the set-marks.
	s.BeginTrial()
	if missing := s.MissingRequired(); len(missing) != len(want) {
		t.Errorf("BeginTrial did not clear set-marks, missing %v", missing)
	}
}

func TestMissingRequiredOffByDefault(t *testing.T) {
	s := New(Policy{})
	if missing := s.MissingRequired(); missing != nil {
		t.Errorf("Enforcement off but MissingRequired = %v", missing)
	}
}

func TestResults(t *testing.T) {
	s := New(Policy{})

	if s.ResultName(Response) != "RESP" || s.ResultName(Outcome) != "OUTC" {
		t.Errorf("Result names = %s/%s", s.ResultName(Response), s.ResultName(Outcome))
	}
	if s.Result(Response) != 0 || s.Result(Outcome) != 0 {
		t.Errorf("Results not defaulted: %v", s.Results())
	}

	s.SetResult(Response, 1)
	s.SetResult(Outcome, 4)
	got := s.Results()
	if got[0].Value != 1 || got[1].Value != 4 {
		t.Errorf("Results = %v, want RESP=1 OUTC=4", got)
	}

	s.ResetResults()
	if s.Result(Response) != 0 || s.Result(Outcome) != 0 {
		t.Errorf("ResetResults left %v", s.Results())
	}
}
