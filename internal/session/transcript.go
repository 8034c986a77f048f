package session

import (
	"fmt"
	"strings"
	"time"
)

// Transcript is the ordered list of finalized segments. Each segment is stored
// with a trailing newline.
type Transcript struct {
	segments []string
}

// Append adds one final segment. Empty segments are skipped.
func (t *Transcript) Append(segment string) bool {
	if segment == "" {
		return false
	}
	t.segments = append(t.segments, segment+"\n")
	return true
}

func (t *Transcript) Text() string {
	return strings.Join(t.segments, "")
}

func (t *Transcript) Len() int {
	return len(t.segments)
}

func (t *Transcript) WordCount() int {
	return WordCount(t.Text())
}

func (t *Transcript) Clear() {
	t.segments = nil
}

// WordCount counts whitespace-separated non-empty tokens
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// FormatElapsed renders d as MM:SS. Minutes are not capped at 59.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
