package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrInvalidWAV is returned when a reader does not hold a RIFF/WAVE stream
var ErrInvalidWAV = errors.New("not a valid wav file")

// seekBuffer adapts an in-memory buffer to io.WriteSeeker for the wav encoder
type seekBuffer struct {
	buf []byte
	pos int
}

func (s *seekBuffer) Write(p []byte) (int, error) {
	end := s.pos + len(p)
	if end > len(s.buf) {
		s.buf = append(s.buf, make([]byte, end-len(s.buf))...)
	}
	copy(s.buf[s.pos:], p)
	s.pos = end
	return len(p), nil
}

func (s *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var base int
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = s.pos
	case io.SeekEnd:
		base = len(s.buf)
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	next := base + int(offset)
	if next < 0 {
		return 0, fmt.Errorf("negative seek position")
	}
	s.pos = next
	return int64(next), nil
}

// EncodeWAV wraps linear16 PCM in a WAV container
func EncodeWAV(pcm []byte, format Format) ([]byte, error) {
	samples, err := BytesToSamples(pcm)
	if err != nil {
		return nil, err
	}
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}
	buffer := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: format.Channels, SampleRate: format.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}

	out := &seekBuffer{}
	enc := wav.NewEncoder(out, format.SampleRate, 16, format.Channels, 1)
	if err := enc.Write(buffer); err != nil {
		return nil, fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("close wav encoder: %w", err)
	}
	return out.buf, nil
}

// DecodeWAV reads a WAV stream and returns mono linear16 PCM at target's sample rate
func DecodeWAV(r io.ReadSeeker, target Format) ([]byte, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrInvalidWAV
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read wav samples: %w", err)
	}
	if buf == nil || buf.Format == nil {
		return nil, ErrInvalidWAV
	}

	shift := int(dec.BitDepth) - 16
	samples := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		switch {
		case shift > 0:
			v >>= uint(shift)
		case shift < 0:
			// 8-bit wav is unsigned
			v = (v - 128) << uint(-shift)
		}
		samples[i] = int16(v)
	}

	samples = Downmix(samples, buf.Format.NumChannels)
	samples = Resample(samples, buf.Format.SampleRate, target.SampleRate)
	if target.Channels > 1 {
		samples = upmix(samples, target.Channels)
	}
	return SamplesToBytes(samples), nil
}

func upmix(mono []int16, channels int) []int16 {
	out := make([]int16, 0, len(mono)*channels)
	for _, s := range mono {
		for c := 0; c < channels; c++ {
			out = append(out, s)
		}
	}
	return out
}

// DecodeWAVBytes is DecodeWAV over an in-memory blob
func DecodeWAVBytes(blob []byte, target Format) ([]byte, error) {
	return DecodeWAV(bytes.NewReader(blob), target)
}
