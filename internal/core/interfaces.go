package core

import (
	"time"

	"trial-service/internal/messaging"
	"trial-service/internal/types"
)

// MessagingClient is the host-link interface TrialSystem needs from the
// Redis layer.
type MessagingClient interface {
	SetCallbacks(callbacks messaging.Callbacks)
	Connect() error
	StartListening() error
	Close() error

	PublishState(state types.State) error
	PublishReportLine(line string) error
}

// HardwareIO is the rig interface TrialSystem needs from the hardware
// layer.
type HardwareIO interface {
	Initialize() error
	Cleanup()

	ReadLickDetector() (bool, error)
	WriteDigitalOutput(channel string, value bool) error
	PulseOutput(channel string, d time.Duration) error
}
