package device

import (
	"github.com/rs/zerolog/log"
)

// Signal is a user-visible status shown on the device LEDs.
type Signal uint8

const (
	SignalOK Signal = iota
	SignalBusy
	SignalFailure
	SignalStorageError
)

func (s Signal) String() string {
	switch s {
	case SignalOK:
		return "ok"
	case SignalBusy:
		return "busy"
	case SignalFailure:
		return "failure"
	case SignalStorageError:
		return "storage-error"
	default:
		return "unknown"
	}
}

// Indicator shows signals to the participant.
type Indicator interface {
	Signal(s Signal)
}

// LogIndicator writes signals to the log; used when no LEDs are attached.
type LogIndicator struct{}

func (LogIndicator) Signal(s Signal) {
	switch s {
	case SignalFailure, SignalStorageError:
		log.Warn().Str("signal", s.String()).Msg("indicator")
	default:
		log.Debug().Str("signal", s.String()).Msg("indicator")
	}
}
