package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexiqai/media-transcriber/internal/audio"
	"github.com/lexiqai/media-transcriber/internal/media"
	"github.com/lexiqai/media-transcriber/internal/observability"
)

var (
	ErrNotRecording     = errors.New("capture is not recording")
	ErrAlreadyRecording = errors.New("capture is already recording")
)

// SourceName is how a live capture appears in the UI
const SourceName = "Live capture"

const frameBuffer = 64

// Recorder accumulates PCM frames pushed by the browser and finalizes them
// into a WAV recording. While recording it is also a live media.Source.
type Recorder struct {
	format audio.Format
	logger zerolog.Logger
	now    func() time.Time

	mu        sync.Mutex
	recording bool
	pcm       []byte
	frames    chan []byte
	last      []byte
	lastAt    time.Time
}

var (
	_ media.Source  = (*Recorder)(nil)
	_ media.Readier = (*Recorder)(nil)
)

// NewRecorder creates an idle recorder for the given PCM format
func NewRecorder(format audio.Format, logger zerolog.Logger) *Recorder {
	return &Recorder{
		format: format,
		logger: logger,
		now:    time.Now,
	}
}

// Start begins a new recording. The last finalized recording stays downloadable.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recording {
		return ErrAlreadyRecording
	}
	r.recording = true
	r.pcm = r.pcm[:0]
	r.frames = make(chan []byte, frameBuffer)
	r.logger.Info().Msg("Live capture started")
	return nil
}

// Write appends one PCM frame and forwards it to an active playback
func (r *Recorder) Write(frame []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return ErrNotRecording
	}
	if len(frame) == 0 {
		return nil
	}
	r.pcm = append(r.pcm, frame...)
	observability.RecordAudioBytes("capture", len(frame))

	forward := make([]byte, len(frame))
	copy(forward, frame)
	select {
	case r.frames <- forward:
	default:
		r.logger.Warn().Int("bytes", len(frame)).Msg("Capture frame buffer full, dropping frame")
	}
	return nil
}

// Stop ends the recording and returns it as a WAV blob
func (r *Recorder) Stop() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return nil, ErrNotRecording
	}
	r.recording = false
	close(r.frames)

	pcm := r.pcm
	if rem := len(pcm) % (r.format.Channels * 2); rem != 0 {
		pcm = pcm[:len(pcm)-rem]
	}
	blob, err := audio.EncodeWAV(pcm, r.format)
	if err != nil {
		return nil, fmt.Errorf("finalize recording: %w", err)
	}
	r.last = blob
	r.lastAt = r.now()
	r.logger.Info().
		Dur("duration", r.format.Duration(len(pcm))).
		Int("bytes", len(blob)).
		Msg("Live capture finalized")
	return blob, nil
}

// IsRecording reports whether frames are currently accepted
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Ready reports whether Play has frames to forward
func (r *Recorder) Ready() bool {
	return r.IsRecording()
}

// Recording returns the last finalized WAV blob and when it was finalized
func (r *Recorder) Recording() ([]byte, time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return nil, time.Time{}, false
	}
	return r.last, r.lastAt, true
}

func (r *Recorder) Name() string {
	return SourceName
}

// Play forwards captured frames to sink until the recording stops or ctx is cancelled
func (r *Recorder) Play(ctx context.Context, sink media.Sink) error {
	r.mu.Lock()
	frames := r.frames
	recording := r.recording
	r.mu.Unlock()
	if !recording || frames == nil {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame, ok := <-frames:
			if !ok {
				return nil
			}
			_ = sink(frame)
		}
	}
}

// Rewind is a no-op; live audio cannot be replayed
func (r *Recorder) Rewind() {}

func (r *Recorder) Close() error {
	if _, err := r.Stop(); err != nil && !errors.Is(err, ErrNotRecording) {
		return err
	}
	return nil
}
