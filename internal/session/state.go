package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Phase is the controller's coarse state
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRunning
	PhasePaused
)

func (p Phase) String() string {
	switch p {
	case PhaseRunning:
		return "running"
	case PhasePaused:
		return "paused"
	default:
		return "idle"
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*p = PhaseIdle
	case "running":
		*p = PhaseRunning
	case "paused":
		*p = PhasePaused
	default:
		return fmt.Errorf("unknown phase %q", text)
	}
	return nil
}

// State is the snapshot published to UI clients
type State struct {
	SessionID       string `json:"session_id"`
	Phase           Phase  `json:"phase"`
	Running         bool   `json:"running"`
	ErrorCount      int    `json:"error_count"`
	MaxErrors       int    `json:"max_errors"`
	HasNetworkError bool   `json:"has_network_error"`
	Transcript      string `json:"transcript"`
	Interim         string `json:"interim"`
	WordCount       int    `json:"word_count"`
	Elapsed         string `json:"elapsed"`
	Progress        int    `json:"progress"`
	ProgressText    string `json:"progress_text"`
	Source          string `json:"source,omitempty"`
	SourceReady     bool   `json:"source_ready"`
	CanStart        bool   `json:"can_start"`
	CanPause        bool   `json:"can_pause"`
}

// Level is a notification severity
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is a transient message for the user
type Notification struct {
	ID             string    `json:"id"`
	Level          Level     `json:"level"`
	Message        string    `json:"message"`
	DismissAfterMS int64     `json:"dismiss_after_ms"`
	At             time.Time `json:"at"`
}

// NewNotification stamps a notification with a fresh id
func NewNotification(level Level, message string, dismiss time.Duration, at time.Time) Notification {
	return Notification{
		ID:             uuid.NewString(),
		Level:          level,
		Message:        message,
		DismissAfterMS: dismiss.Milliseconds(),
		At:             at,
	}
}

// Observer receives everything the UI needs to render
type Observer interface {
	PublishState(State)
	Notify(Notification)
}

type nopObserver struct{}

func (nopObserver) PublishState(State)  {}
func (nopObserver) Notify(Notification) {}
