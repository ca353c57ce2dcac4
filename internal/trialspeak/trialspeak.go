// Package trialspeak implements the line protocol spoken with the
// experiment host: single-line commands inbound, timestamped report lines
// outbound. Transport is someone else's problem.
package trialspeak

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Report line tags.
const (
	TagTrialStart    = "TRL_START"
	TagTrialReleased = "TRL_RELEASED"
	TagParam         = "TRLP"
	TagResult        = "TRLR"
	TagStateChange   = "ST_CHG"
	TagEvent         = "EV"
	TagDebug         = "DBG"
)

// Command verbs accepted from the host.
const (
	VerbSet          = "SET"
	VerbReleaseTrial = "RELEASE_TRL"
)

var ErrUnknownCommand = errors.New("unknown command")

// Command is one parsed host command: a verb and up to two arguments.
type Command struct {
	Verb string
	Arg1 string
	Arg2 string
}

// ParseCommand parses a single command line. SET takes exactly two
// arguments, RELEASE_TRL takes none; anything else is ErrUnknownCommand.
func ParseCommand(line string) (Command, error) {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return Command{}, fmt.Errorf("%w: empty line", ErrUnknownCommand)
	}
	switch tokens[0] {
	case VerbSet:
		if len(tokens) != 3 {
			return Command{}, fmt.Errorf("%w: SET takes 2 arguments, got %d", ErrUnknownCommand, len(tokens)-1)
		}
		return Command{Verb: VerbSet, Arg1: tokens[1], Arg2: tokens[2]}, nil
	case VerbReleaseTrial:
		if len(tokens) != 1 {
			return Command{}, fmt.Errorf("%w: RELEASE_TRL takes no arguments", ErrUnknownCommand)
		}
		return Command{Verb: VerbReleaseTrial}, nil
	default:
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, tokens[0])
	}
}

// Line formats one report line: "<now> <tag> [fields...]".
func Line(now int64, tag string, fields ...string) string {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(now, 10))
	b.WriteByte(' ')
	b.WriteString(tag)
	for _, f := range fields {
		b.WriteByte(' ')
		b.WriteString(f)
	}
	return b.String()
}

func TrialStartLine(now int64) string {
	return Line(now, TagTrialStart)
}

func TrialReleasedLine(now int64) string {
	return Line(now, TagTrialReleased)
}

func ParamLine(now int64, name string, value int64) string {
	return Line(now, TagParam, name, strconv.FormatInt(value, 10))
}

func ResultLine(now int64, name string, value int64) string {
	return Line(now, TagResult, name, strconv.FormatInt(value, 10))
}

func StateChangeLine(now int64, prev, next string) string {
	return Line(now, TagStateChange, prev, next)
}

func EventLine(now int64, event string) string {
	return Line(now, TagEvent, event)
}

func DebugLine(now int64, msg string) string {
	return Line(now, TagDebug, msg)
}
