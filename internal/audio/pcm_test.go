package audio

import (
	"testing"
	"time"
)

func TestSamplesRoundTrip(t *testing.T) {
	in := []int16{0, 1, -1, 32767, -32768, 1234}
	out, err := BytesToSamples(SamplesToBytes(in))
	if err != nil {
		t.Fatalf("BytesToSamples failed: %v", err)
	}
	for i := range in {
		if in[i] != out[i] {
			t.Errorf("sample %d: expected %d, got %d", i, in[i], out[i])
		}
	}
}

func TestBytesToSamples_OddLength(t *testing.T) {
	if _, err := BytesToSamples([]byte{1, 2, 3}); err == nil {
		t.Error("Expected error for odd-length PCM")
	}
}

func TestFormat_FrameBytes(t *testing.T) {
	f := Format{SampleRate: 16000, Channels: 1}

	if got := f.FrameBytes(100 * time.Millisecond); got != 3200 {
		t.Errorf("Expected 3200 bytes per 100ms, got %d", got)
	}
	if got := f.BytesPerSecond(); got != 32000 {
		t.Errorf("Expected 32000 bytes/s, got %d", got)
	}
	if got := f.Duration(64000); got != 2*time.Second {
		t.Errorf("Expected 2s, got %v", got)
	}

	stereo := Format{SampleRate: 8000, Channels: 2}
	if got := stereo.FrameBytes(time.Nanosecond); got != 4 {
		t.Errorf("Expected at least one stereo frame (4 bytes), got %d", got)
	}
}

func TestDownmix(t *testing.T) {
	got := Downmix([]int16{100, 300, -200, 200}, 2)
	if len(got) != 2 || got[0] != 200 || got[1] != 0 {
		t.Errorf("Unexpected downmix result: %v", got)
	}
}

func TestResample(t *testing.T) {
	samples := make([]int16, 480)
	for i := range samples {
		samples[i] = int16(i)
	}

	up := Resample(samples, 8000, 16000)
	if len(up) != 960 {
		t.Errorf("Expected 960 samples after upsampling, got %d", len(up))
	}

	down := Resample(samples, 48000, 16000)
	if len(down) != 160 {
		t.Errorf("Expected 160 samples after downsampling, got %d", len(down))
	}

	same := Resample(samples, 16000, 16000)
	if len(same) != len(samples) {
		t.Error("Expected identity for equal rates")
	}
}
