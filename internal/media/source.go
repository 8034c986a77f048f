package media

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lexiqai/media-transcriber/internal/audio"
	"github.com/lexiqai/media-transcriber/internal/observability"
)

var (
	// ErrUnsupportedMedia is returned for files that are neither audio nor video
	ErrUnsupportedMedia = errors.New("unsupported media type")

	// ErrDecode is returned when audio could not be extracted from a file
	ErrDecode = errors.New("audio extraction failed")
)

// Sink receives one frame of PCM during playback
type Sink func(pcm []byte) error

// Source is something that can be played, muted, into a recognizer
type Source interface {
	Name() string

	// Play delivers paced PCM frames to sink until the source is exhausted
	// (returns nil) or ctx is cancelled (returns ctx.Err()).
	Play(ctx context.Context, sink Sink) error

	// Rewind moves playback back to the beginning
	Rewind()

	Close() error
}

// Readier is implemented by sources that can only play while something feeds them
type Readier interface {
	Ready() bool
}

// FileSource plays decoded PCM in real time. The read position survives
// cancelled playback, so playing again resumes where it stopped.
type FileSource struct {
	name   string
	pcm    []byte
	format audio.Format
	frame  time.Duration

	mu  sync.Mutex
	pos int
}

// NewFileSource wraps decoded PCM as a playable source
func NewFileSource(name string, pcm []byte, format audio.Format, frame time.Duration) *FileSource {
	align := format.Channels * 2
	if align > 0 {
		pcm = pcm[:len(pcm)-len(pcm)%align]
	}
	return &FileSource{name: name, pcm: pcm, format: format, frame: frame}
}

func (s *FileSource) Name() string {
	return s.name
}

// Duration is the total playback length
func (s *FileSource) Duration() time.Duration {
	return s.format.Duration(len(s.pcm))
}

// Position is the current playback offset
func (s *FileSource) Position() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.format.Duration(s.pos)
}

func (s *FileSource) next(n int) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos >= len(s.pcm) {
		return nil
	}
	end := s.pos + n
	if end > len(s.pcm) {
		end = len(s.pcm)
	}
	chunk := s.pcm[s.pos:end]
	s.pos = end
	return chunk
}

func (s *FileSource) Play(ctx context.Context, sink Sink) error {
	frameBytes := s.format.FrameBytes(s.frame)
	ticker := time.NewTicker(s.frame)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			chunk := s.next(frameBytes)
			if chunk == nil {
				return nil
			}
			observability.RecordAudioBytes("file", len(chunk))
			// recognizer between sessions; the frame is dropped
			_ = sink(chunk)
		}
	}
}

func (s *FileSource) Rewind() {
	s.mu.Lock()
	s.pos = 0
	s.mu.Unlock()
}

func (s *FileSource) Close() error {
	s.mu.Lock()
	s.pcm = nil
	s.pos = 0
	s.mu.Unlock()
	return nil
}
