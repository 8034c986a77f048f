package capture

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexiqai/media-transcriber/internal/audio"
)

var testFormat = audio.Format{SampleRate: 16000, Channels: 1}

func TestRecorder_Lifecycle(t *testing.T) {
	r := NewRecorder(testFormat, zerolog.Nop())
	r.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	if err := r.Write([]byte{1, 2}); !errors.Is(err, ErrNotRecording) {
		t.Errorf("Expected ErrNotRecording, got %v", err)
	}
	if _, err := r.Stop(); !errors.Is(err, ErrNotRecording) {
		t.Errorf("Expected ErrNotRecording on stop, got %v", err)
	}
	if _, _, ok := r.Recording(); ok {
		t.Error("Expected no recording yet")
	}

	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := r.Start(); !errors.Is(err, ErrAlreadyRecording) {
		t.Errorf("Expected ErrAlreadyRecording, got %v", err)
	}

	pcm := audio.SamplesToBytes([]int16{10, 20, 30, 40})
	if err := r.Write(pcm[:4]); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := r.Write(pcm[4:]); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	blob, err := r.Stop()
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if !bytes.HasPrefix(blob, []byte("RIFF")) {
		t.Error("Expected a WAV blob")
	}

	decoded, err := audio.DecodeWAVBytes(blob, testFormat)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !bytes.Equal(decoded, pcm) {
		t.Errorf("Expected recorded PCM to round trip")
	}

	last, at, ok := r.Recording()
	if !ok || !bytes.Equal(last, blob) {
		t.Error("Expected last recording to be retained")
	}
	if !at.Equal(r.now()) {
		t.Errorf("Unexpected recording time %v", at)
	}
	if r.IsRecording() {
		t.Error("Expected recorder idle after stop")
	}
}

func TestRecorder_PlayForwardsFrames(t *testing.T) {
	r := NewRecorder(testFormat, zerolog.Nop())
	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	got := make(chan []byte, 4)
	done := make(chan error, 1)
	go func() {
		done <- r.Play(context.Background(), func(pcm []byte) error {
			got <- pcm
			return nil
		})
	}()

	_ = r.Write([]byte{1, 0, 2, 0})
	select {
	case frame := <-got:
		if len(frame) != 4 {
			t.Errorf("Expected 4-byte frame, got %d", len(frame))
		}
	case <-time.After(time.Second):
		t.Fatal("Expected frame to be forwarded")
	}

	if _, err := r.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected Play to end cleanly, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Expected Play to return after Stop")
	}
}

func TestRecorder_PlayCancelled(t *testing.T) {
	r := NewRecorder(testFormat, zerolog.Nop())
	_ = r.Start()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.Play(ctx, func([]byte) error { return nil }); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("Expected idempotent Close, got %v", err)
	}
}

func TestRecorder_Ready(t *testing.T) {
	r := NewRecorder(testFormat, zerolog.Nop())
	if r.Ready() {
		t.Error("Expected idle recorder not to be ready")
	}
	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !r.Ready() {
		t.Error("Expected recording recorder to be ready")
	}
	if _, err := r.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if r.Ready() {
		t.Error("Expected stopped recorder not to be ready")
	}
}
