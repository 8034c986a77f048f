package stt

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/lexiqai/media-transcriber/internal/config"
)

// New builds the recognizer selected by RECOGNIZER_PROVIDER.
// It returns ErrUnsupported when recognition is disabled or cannot be configured.
func New(cfg *config.Config, logger zerolog.Logger) (Recognizer, error) {
	switch strings.ToLower(cfg.RecognizerProvider) {
	case "mock":
		return NewMockRecognizer(cfg.MockSegmentBytes, logger), nil
	case "deepgram":
		if cfg.DeepgramAPIKey == "" {
			logger.Warn().Msg("DEEPGRAM_API_KEY not set, speech recognition unavailable")
			return nil, ErrUnsupported
		}
		return NewDeepgramRecognizer(cfg, logger), nil
	default:
		return nil, ErrUnsupported
	}
}
