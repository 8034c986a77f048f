package session

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestWordCount(t *testing.T) {
	cases := map[string]int{
		"":                       0,
		"   \n\t ":               0,
		"hello":                  1,
		"hello \nworld \nfoo \n": 3,
		"  spaced   out\twords ": 3,
	}
	for text, want := range cases {
		if got := WordCount(text); got != want {
			t.Errorf("%q: expected %d, got %d", text, want, got)
		}
	}
}

func TestFormatElapsed(t *testing.T) {
	cases := map[time.Duration]string{
		0:                               "00:00",
		999 * time.Millisecond:          "00:00",
		65 * time.Second:                "01:05",
		59*time.Minute + 59*time.Second: "59:59",
		61*time.Minute + 1*time.Second:  "61:01",
		-5 * time.Second:                "00:00",
	}
	for d, want := range cases {
		if got := FormatElapsed(d); got != want {
			t.Errorf("%v: expected %s, got %s", d, want, got)
		}
	}
}

func TestTranscript_Append(t *testing.T) {
	var tr Transcript
	tr.Append("hello ")
	if tr.Append("") {
		t.Error("Expected empty segment to be skipped")
	}
	tr.Append("world")

	if tr.Text() != "hello \nworld\n" {
		t.Errorf("Unexpected text %q", tr.Text())
	}
	if tr.Len() != 2 || tr.WordCount() != 2 {
		t.Errorf("Expected 2 segments and 2 words, got %d/%d", tr.Len(), tr.WordCount())
	}

	tr.Clear()
	if tr.Text() != "" || tr.WordCount() != 0 {
		t.Error("Expected empty transcript after clear")
	}
}

func TestState_JSONPhase(t *testing.T) {
	for _, phase := range []Phase{PhaseIdle, PhaseRunning, PhasePaused} {
		data, err := json.Marshal(State{Phase: phase, ProgressText: msgReady})
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		if !strings.Contains(string(data), `"phase":"`+phase.String()+`"`) {
			t.Errorf("Expected phase as text, got %s", data)
		}

		var st State
		if err := json.Unmarshal(data, &st); err != nil {
			t.Fatalf("Unmarshal failed: %v", err)
		}
		if st.Phase != phase || st.ProgressText != msgReady {
			t.Errorf("Expected %v after decode, got %+v", phase, st)
		}
	}
}

func TestPhase_UnmarshalRejectsUnknown(t *testing.T) {
	var st State
	if err := json.Unmarshal([]byte(`{"phase":"stopped"}`), &st); err == nil {
		t.Error("Expected unknown phase to be rejected")
	}
}
