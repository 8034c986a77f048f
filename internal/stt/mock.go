package stt

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// MockRecognizer emits a synthetic segment for every fixed amount of audio.
// It needs no network and is used for demos and tests.
type MockRecognizer struct {
	logger       zerolog.Logger
	segmentBytes int
	events       chan Event

	mu       sync.Mutex
	active   bool
	closed   bool
	pending  int
	segments int
}

// NewMockRecognizer creates a mock recognizer that finalizes a segment every segmentBytes bytes
func NewMockRecognizer(segmentBytes int, logger zerolog.Logger) *MockRecognizer {
	if segmentBytes <= 0 {
		segmentBytes = 64000
	}
	return &MockRecognizer{
		logger:       logger.With().Str("recognizer", "mock").Logger(),
		segmentBytes: segmentBytes,
		events:       make(chan Event, eventBuffer),
	}
}

func (m *MockRecognizer) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return fmt.Errorf("mock recognizer is closed")
	}
	m.active = true
	m.pending = 0
	m.mu.Unlock()

	m.emit(Event{Type: EventStart})
	return nil
}

func (m *MockRecognizer) SendAudio(pcm []byte) error {
	m.mu.Lock()
	if !m.active {
		m.mu.Unlock()
		return ErrNotActive
	}
	m.pending += len(pcm)
	var texts []string
	for m.pending >= m.segmentBytes {
		m.pending -= m.segmentBytes
		m.segments++
		texts = append(texts, fmt.Sprintf("[segment %d: %d bytes] ", m.segments, m.segmentBytes))
	}
	m.mu.Unlock()

	for _, text := range texts {
		m.emit(Event{Type: EventResult, Interim: []string{text}})
		m.emit(Event{Type: EventResult, Final: []string{text}})
	}
	return nil
}

func (m *MockRecognizer) Events() <-chan Event {
	return m.events
}

func (m *MockRecognizer) Stop() error {
	m.mu.Lock()
	if !m.active {
		m.mu.Unlock()
		return nil
	}
	m.active = false
	m.pending = 0
	m.mu.Unlock()

	m.emit(Event{Type: EventEnd})
	return nil
}

func (m *MockRecognizer) Close() error {
	err := m.Stop()
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return err
}

func (m *MockRecognizer) emit(ev Event) {
	select {
	case m.events <- ev:
	default:
		m.logger.Warn().Str("event", ev.Type.String()).Msg("Event channel full, dropping event")
	}
}
