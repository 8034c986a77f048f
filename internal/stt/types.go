package stt

import (
	"context"
	"errors"
)

var (
	// ErrUnsupported means no recognition backend is available in this deployment
	ErrUnsupported = errors.New("speech recognition not supported")

	// ErrNotActive is returned when audio is sent outside a recognition session
	ErrNotActive = errors.New("recognizer is not active")
)

// EventType identifies what a recognizer reports
type EventType int

const (
	EventStart EventType = iota
	EventResult
	EventError
	EventEnd
)

func (t EventType) String() string {
	switch t {
	case EventStart:
		return "start"
	case EventResult:
		return "result"
	case EventError:
		return "error"
	case EventEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Event is a single notification from a recognition session.
// Final and Interim are set for EventResult, Err for EventError.
type Event struct {
	Type    EventType
	Final   []string
	Interim []string
	Err     *RecognitionError
}

// Recognizer is a streaming speech recognition backend.
//
// Events() is a lifetime channel shared by every session the recognizer runs;
// a session that ends for any reason emits EventEnd.
type Recognizer interface {
	// Start opens a new recognition session
	Start(ctx context.Context) error

	// Stop ends the current session. Stopping an idle recognizer is a no-op.
	Stop() error

	// SendAudio sends linear16 PCM at the configured rate and channel count
	SendAudio(pcm []byte) error

	// Events returns the channel results, errors and session boundaries are delivered on
	Events() <-chan Event

	// Close releases the recognizer
	Close() error
}

const eventBuffer = 256
