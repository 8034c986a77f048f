package media

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/lexiqai/media-transcriber/internal/audio"
	"github.com/lexiqai/media-transcriber/internal/config"
	"github.com/lexiqai/media-transcriber/internal/observability"
)

// Loader detects a file's type and decodes it into a playable source
type Loader struct {
	wav    Decoder
	exec   Decoder
	format audio.Format
	frame  time.Duration
	logger zerolog.Logger
}

// NewLoader builds a loader from configuration
func NewLoader(cfg *config.Config, logger zerolog.Logger) (*Loader, error) {
	format := audio.Format{SampleRate: cfg.SampleRate, Channels: cfg.Channels}
	execDecoder, err := NewExecDecoder(cfg.DecoderCommand, format)
	if err != nil {
		return nil, err
	}
	return NewLoaderWithDecoders(NewWAVDecoder(format), execDecoder, format, cfg.PlaybackFrame(), logger), nil
}

// NewLoaderWithDecoders builds a loader around explicit decoders
func NewLoaderWithDecoders(wav, exec Decoder, format audio.Format, frame time.Duration, logger zerolog.Logger) *Loader {
	return &Loader{
		wav:    wav,
		exec:   exec,
		format: format,
		frame:  frame,
		logger: logger,
	}
}

// Format is the PCM format produced by the loader
func (l *Loader) Format() audio.Format {
	return l.format
}

// Load decodes the file at path into a FileSource named name
func (l *Loader) Load(ctx context.Context, name, path string) (*FileSource, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("detect media type: %w", err)
	}

	decoder, err := l.decoderFor(mtype)
	if err != nil {
		l.logger.Warn().Str("file", name).Str("mime", mtype.String()).Msg("Rejected media file")
		return nil, err
	}

	started := time.Now()
	pcm, err := decoder.Decode(ctx, path)
	observability.ObserveDecode(time.Since(started).Seconds())
	if err != nil {
		return nil, err
	}

	src := NewFileSource(name, pcm, l.format, l.frame)
	l.logger.Info().
		Str("file", name).
		Str("mime", mtype.String()).
		Dur("duration", src.Duration()).
		Msg("Media file decoded")
	return src, nil
}

func (l *Loader) decoderFor(mtype *mimetype.MIME) (Decoder, error) {
	if mtype.Is("audio/wav") || mtype.Extension() == ".wav" {
		return l.wav, nil
	}
	for m := mtype; m != nil; m = m.Parent() {
		s := m.String()
		if strings.HasPrefix(s, "audio/") || strings.HasPrefix(s, "video/") {
			return l.exec, nil
		}
	}
	return nil, ErrUnsupportedMedia
}
