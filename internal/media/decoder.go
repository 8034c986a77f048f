package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/mattn/go-shellwords"

	"github.com/lexiqai/media-transcriber/internal/audio"
)

// Decoder extracts linear16 PCM from a media file
type Decoder interface {
	Decode(ctx context.Context, path string) ([]byte, error)
}

// ExecDecoder runs an external command (ffmpeg by default) that writes raw
// s16le PCM to stdout. {input}, {rate} and {channels} are substituted per call.
type ExecDecoder struct {
	cmd    []string
	format audio.Format
}

// NewExecDecoder parses the command template
func NewExecDecoder(command string, format audio.Format) (*ExecDecoder, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse decoder command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("decoder command is empty")
	}
	return &ExecDecoder{cmd: args, format: format}, nil
}

// Args returns the command line used to decode path
func (d *ExecDecoder) Args(path string) []string {
	replacer := strings.NewReplacer(
		"{input}", path,
		"{rate}", strconv.Itoa(d.format.SampleRate),
		"{channels}", strconv.Itoa(d.format.Channels),
	)
	args := make([]string, len(d.cmd))
	for i, arg := range d.cmd {
		args[i] = replacer.Replace(arg)
	}
	return args
}

func (d *ExecDecoder) Decode(ctx context.Context, path string) ([]byte, error) {
	args := d.Args(path)
	command := exec.CommandContext(ctx, args[0], args[1:]...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return nil, fmt.Errorf("%w: decoder command failed: %v: %s", ErrDecode, err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("%w: no audio stream", ErrDecode)
	}
	return stdout.Bytes(), nil
}

// WAVDecoder decodes RIFF/WAVE files natively
type WAVDecoder struct {
	format audio.Format
}

func NewWAVDecoder(format audio.Format) *WAVDecoder {
	return &WAVDecoder{format: format}
}

func (d *WAVDecoder) Decode(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	pcm, err := audio.DecodeWAV(f, d.format)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("%w: empty wav", ErrDecode)
	}
	return pcm, nil
}
