package core

import (
	"trial-service/internal/trialspeak"
)

// applyCommand parses and executes one host command line inside the tick.
// Malformed input degrades to a diagnostic line; the FSM is never
// affected by a bad command.
func (s *TrialSystem) applyCommand(now int64, line string) {
	cmd, err := trialspeak.ParseCommand(line)
	if err != nil {
		s.logger.Warnf("Rejected command %q: %v", line, err)
		s.ctx.Reporter.Debug(now, err.Error())
		return
	}

	switch cmd.Verb {
	case trialspeak.VerbSet:
		if err := s.store.Set(cmd.Arg1, cmd.Arg2); err != nil {
			s.logger.Warnf("Rejected SET %s %s: %v", cmd.Arg1, cmd.Arg2, err)
			s.ctx.Reporter.Debug(now, err.Error())
			return
		}
		s.logger.Debugf("Set %s=%s", cmd.Arg1, cmd.Arg2)

	case trialspeak.VerbReleaseTrial:
		s.ctx.ReleaseRequested = true
		s.logger.Debugf("Trial release requested")
	}
}
