package artifact

import (
	"errors"
	"strings"
	"time"
)

// ErrEmptyTranscript is returned when there is no text worth exporting
var ErrEmptyTranscript = errors.New("no text to download")

const (
	TranscriptContentType = "text/plain; charset=utf-8"
	RecordingContentType  = "audio/wav"

	// ISO 8601 to seconds with ':' replaced by '-' so the name is filesystem safe
	timestampLayout = "2006-01-02T15-04-05"
)

// Timestamp formats t in UTC for use in a filename
func Timestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// TranscriptFilename names a transcript download
func TranscriptFilename(t time.Time) string {
	return "transcript_" + Timestamp(t) + ".txt"
}

// RecordingFilename names a live capture download
func RecordingFilename(t time.Time) string {
	return "recording_" + Timestamp(t) + ".wav"
}

// Transcript returns the download payload for text
func Transcript(text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyTranscript
	}
	return []byte(text), nil
}
