package stt

import (
	"context"
	"fmt"
	"sync"

	websocketv1api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket"
	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listenClient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
	"github.com/rs/zerolog"

	"github.com/lexiqai/media-transcriber/internal/config"
)

// messageCallbackHandler implements the LiveMessageCallback interface.
// It embeds the default handler and overrides only the methods we need,
// tagging every callback with the session generation it belongs to.
type messageCallbackHandler struct {
	*websocketv1api.DefaultCallbackHandler
	gen   uint64
	owner *DeepgramRecognizer
}

func (m *messageCallbackHandler) Message(message *msginterfaces.MessageResponse) error {
	m.owner.handleMessage(m.gen, message)
	return nil
}

func (m *messageCallbackHandler) Error(errorResponse *msginterfaces.ErrorResponse) error {
	m.owner.handleError(m.gen, fmt.Errorf("deepgram: %+v", errorResponse))
	return nil
}

func (m *messageCallbackHandler) Close(*msginterfaces.CloseResponse) error {
	m.owner.handleClose(m.gen)
	return nil
}

// DeepgramRecognizer implements Recognizer using Deepgram's streaming API.
// Each Start opens a fresh websocket; callbacks from earlier connections are ignored.
type DeepgramRecognizer struct {
	config *config.Config
	logger zerolog.Logger
	events chan Event

	mu     sync.Mutex
	client *listenClient.WSCallback
	gen    uint64
	active bool
	closed bool
}

// NewDeepgramRecognizer creates a Deepgram streaming recognizer
func NewDeepgramRecognizer(cfg *config.Config, logger zerolog.Logger) *DeepgramRecognizer {
	return &DeepgramRecognizer{
		config: cfg,
		logger: logger.With().Str("recognizer", "deepgram").Logger(),
		events: make(chan Event, eventBuffer),
	}
}

func (d *DeepgramRecognizer) transcriptionOptions() *interfaces.LiveTranscriptionOptions {
	return &interfaces.LiveTranscriptionOptions{
		Model:          d.config.DeepgramModel,
		Language:       d.config.DeepgramLanguage,
		Punctuate:      true,
		InterimResults: true,
		Encoding:       "linear16",
		Channels:       d.config.Channels,
		SampleRate:     d.config.SampleRate,
	}
}

// Start opens a new Deepgram live transcription session
func (d *DeepgramRecognizer) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return fmt.Errorf("deepgram recognizer is closed")
	}
	previous := d.client
	d.gen++
	gen := d.gen
	d.client = nil
	d.active = false
	d.mu.Unlock()

	if previous != nil {
		previous.Finish()
	}

	callback := &messageCallbackHandler{
		DefaultCallbackHandler: websocketv1api.NewDefaultCallbackHandler(),
		gen:                    gen,
		owner:                  d,
	}

	client, err := listenClient.NewWSUsingCallback(ctx, d.config.DeepgramAPIKey, nil, d.transcriptionOptions(), callback)
	if err != nil {
		return fmt.Errorf("failed to create Deepgram client: %w", err)
	}
	if !client.Connect() {
		return fmt.Errorf("failed to connect to Deepgram")
	}

	d.mu.Lock()
	if d.gen != gen || d.closed {
		// superseded while connecting
		d.mu.Unlock()
		client.Finish()
		return fmt.Errorf("deepgram session superseded")
	}
	d.client = client
	d.active = true
	d.mu.Unlock()

	d.logger.Info().
		Str("model", d.config.DeepgramModel).
		Str("language", d.config.DeepgramLanguage).
		Uint64("generation", gen).
		Msg("Deepgram streaming session started")
	d.emit(Event{Type: EventStart})
	return nil
}

func (d *DeepgramRecognizer) isCurrent(gen uint64, requireActive bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.gen {
		return false
	}
	return !requireActive || d.active
}

// handleMessage turns transcription results into events. Results flushed after
// Stop still belong to the current generation and are delivered.
func (d *DeepgramRecognizer) handleMessage(gen uint64, msg *msginterfaces.MessageResponse) {
	if msg == nil || !d.isCurrent(gen, false) {
		return
	}

	switch msg.Type {
	case "Results", "Message":
		if len(msg.Channel.Alternatives) == 0 {
			return
		}
		text := msg.Channel.Alternatives[0].Transcript
		if text == "" {
			return
		}
		if msg.IsFinal {
			d.logger.Debug().Str("text", text).Msg("Deepgram final transcription")
			d.emit(Event{Type: EventResult, Final: []string{text}})
		} else {
			d.emit(Event{Type: EventResult, Interim: []string{text}})
		}
	default:
		d.logger.Debug().Str("type", msg.Type).Msg("Deepgram message ignored")
	}
}

func (d *DeepgramRecognizer) handleError(gen uint64, err error) {
	d.mu.Lock()
	if gen != d.gen || !d.active {
		d.mu.Unlock()
		return
	}
	d.active = false
	d.mu.Unlock()

	rerr := ClassifyError(err)
	d.logger.Error().Err(err).Str("kind", string(rerr.Kind)).Msg("Deepgram error")
	d.emit(Event{Type: EventError, Err: rerr})
	d.emit(Event{Type: EventEnd})
}

func (d *DeepgramRecognizer) handleClose(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || !d.active {
		d.mu.Unlock()
		return
	}
	d.active = false
	d.mu.Unlock()

	d.logger.Info().Uint64("generation", gen).Msg("Deepgram connection closed")
	d.emit(Event{Type: EventEnd})
}

// SendAudio streams a PCM chunk to Deepgram
func (d *DeepgramRecognizer) SendAudio(pcm []byte) error {
	d.mu.Lock()
	active := d.active
	client := d.client
	d.mu.Unlock()

	if !active || client == nil {
		return ErrNotActive
	}
	if _, err := client.Write(pcm); err != nil {
		return fmt.Errorf("failed to send audio to Deepgram: %w", err)
	}
	return nil
}

// Events returns the recognizer's event channel
func (d *DeepgramRecognizer) Events() <-chan Event {
	return d.events
}

// Stop sends the finish frame and ends the session
func (d *DeepgramRecognizer) Stop() error {
	d.mu.Lock()
	if !d.active {
		d.mu.Unlock()
		return nil
	}
	d.active = false
	client := d.client
	d.mu.Unlock()

	// Finish can run the close callback synchronously, so it must not hold mu.
	if client != nil {
		client.Finish()
	}
	d.logger.Info().Msg("Deepgram streaming session stopped")
	d.emit(Event{Type: EventEnd})
	return nil
}

// Close stops any running session and rejects further starts
func (d *DeepgramRecognizer) Close() error {
	err := d.Stop()
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return err
}

func (d *DeepgramRecognizer) emit(ev Event) {
	select {
	case d.events <- ev:
	default:
		d.logger.Warn().Str("event", ev.Type.String()).Msg("Event channel full, dropping event")
	}
}
