package store

import (
	"errors"
	"fmt"
)

// Mode selects how store operations are persisted.
type Mode int

const (
	// ModePack batches entries into the shared in-memory pack, persisted
	// as one archive at idle-drain or shutdown.
	ModePack Mode = iota

	// ModeIdle defers per-entry file writes into the pending queue.
	ModeIdle

	// ModeBackground starts per-entry file writes immediately and queues
	// their completion.
	ModeBackground

	// ModeInstant performs per-entry file writes synchronously.
	ModeInstant
)

// ErrUnknownMode indicates an unrecognized store mode name.
var ErrUnknownMode = errors.New("store: unknown mode")

// ParseMode parses a configured store mode name.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "pack", "":
		return ModePack, nil
	case "idle":
		return ModeIdle, nil
	case "background":
		return ModeBackground, nil
	case "instant":
		return ModeInstant, nil
	default:
		return ModePack, fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

func (m Mode) String() string {
	switch m {
	case ModePack:
		return "pack"
	case ModeIdle:
		return "idle"
	case ModeBackground:
		return "background"
	case ModeInstant:
		return "instant"
	default:
		return "pack"
	}
}

// PerFile reports whether the mode stores one file per entry.
func (m Mode) PerFile() bool {
	return m != ModePack
}
