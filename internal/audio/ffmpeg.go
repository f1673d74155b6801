package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// commandContext is swapped out by tests to stub the external binaries.
var commandContext = exec.CommandContext

// StreamInfo describes the first audio stream of a media file.
type StreamInfo struct {
	CodecName  string
	SampleRate int
	Channels   int
	Duration   float64
}

// Transcoder probes, decodes, and encodes audio containers. Formats are
// detected from content; the object key's suffix is never trusted.
type Transcoder interface {
	Probe(ctx context.Context, path string) (StreamInfo, error)
	Decode(ctx context.Context, path string, sampleRate, channels int) (*Buffer, error)
	EncodeMP3(ctx context.Context, buf *Buffer, path string) error
}

// Option configures the FFmpeg transcoder.
type Option func(*FFmpeg)

// WithFFmpegBinary overrides the ffmpeg binary name or path.
func WithFFmpegBinary(binary string) Option {
	return func(f *FFmpeg) {
		if binary != "" {
			f.ffmpeg = binary
		}
	}
}

// WithFFprobeBinary overrides the ffprobe binary name or path.
func WithFFprobeBinary(binary string) Option {
	return func(f *FFmpeg) {
		if binary != "" {
			f.ffprobe = binary
		}
	}
}

// FFmpeg implements Transcoder by shelling out to the ffmpeg and ffprobe
// binaries, the same backend pydub-style audio stacks sit on.
type FFmpeg struct {
	ffmpeg  string
	ffprobe string
}

// NewFFmpeg constructs a transcoder resolving binaries from PATH by default.
func NewFFmpeg(opts ...Option) *FFmpeg {
	f := &FFmpeg{ffmpeg: "ffmpeg", ffprobe: "ffprobe"}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Verify reports whether both binaries can be resolved. Called once at
// startup so a missing toolchain surfaces before the first request does.
func (f *FFmpeg) Verify() error {
	if _, err := exec.LookPath(f.ffmpeg); err != nil {
		return fmt.Errorf("ffmpeg binary: %w", err)
	}
	if _, err := exec.LookPath(f.ffprobe); err != nil {
		return fmt.Errorf("ffprobe binary: %w", err)
	}
	return nil
}

// Probe runs ffprobe against path and returns the layout of its first audio
// stream.
func (f *FFmpeg) Probe(ctx context.Context, path string) (StreamInfo, error) {
	cmd := commandContext(ctx, f.ffprobe,
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=codec_name,sample_rate,channels,duration",
		"-of", "json",
		"--", path)
	output, err := cmd.Output()
	if err != nil {
		return StreamInfo{}, fmt.Errorf("probe %s: %w: %s", path, err, stderrOf(err))
	}

	var probed struct {
		Streams []struct {
			CodecName  string `json:"codec_name"`
			SampleRate string `json:"sample_rate"`
			Channels   int    `json:"channels"`
			Duration   string `json:"duration"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(output, &probed); err != nil {
		return StreamInfo{}, fmt.Errorf("probe parse: %w", err)
	}
	if len(probed.Streams) == 0 {
		return StreamInfo{}, fmt.Errorf("probe %s: no audio stream found", path)
	}

	s := probed.Streams[0]
	rate, err := strconv.Atoi(s.SampleRate)
	if err != nil || rate <= 0 {
		return StreamInfo{}, fmt.Errorf("probe %s: bad sample rate %q", path, s.SampleRate)
	}
	if s.Channels <= 0 {
		return StreamInfo{}, fmt.Errorf("probe %s: bad channel count %d", path, s.Channels)
	}

	info := StreamInfo{CodecName: s.CodecName, SampleRate: rate, Channels: s.Channels}
	if d, err := strconv.ParseFloat(s.Duration, 64); err == nil {
		info.Duration = d
	}
	return info, nil
}

// Decode decodes any container/codec into signed 16-bit little-endian PCM at
// the requested sample rate and channel count; ffmpeg performs whatever
// resampling and channel conversion the source needs.
func (f *FFmpeg) Decode(ctx context.Context, path string, sampleRate, channels int) (*Buffer, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("decode %s: invalid target layout %dHz/%dch", path, sampleRate, channels)
	}
	cmd := commandContext(ctx, f.ffmpeg,
		"-hide_banner", "-loglevel", "error",
		"-i", path,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(channels),
		"pipe:1")
	raw, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w: %s", path, err, stderrOf(err))
	}
	if len(raw) < 2 {
		return nil, fmt.Errorf("decode %s: no audio data", path)
	}

	samples := make([]int16, len(raw)/2)
	if err := binary.Read(bytes.NewReader(raw[:len(samples)*2]), binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("decode %s: read samples: %w", path, err)
	}
	return &Buffer{Samples: samples, SampleRate: sampleRate, Channels: channels}, nil
}

// EncodeMP3 writes the buffer to path as an MP3 file via libmp3lame. The
// destination is overwritten: the pipeline hands in a pre-created scratch
// file.
func (f *FFmpeg) EncodeMP3(ctx context.Context, buf *Buffer, path string) error {
	if buf == nil || len(buf.Samples) == 0 {
		return errors.New("encode: empty buffer")
	}

	pcm := bytes.NewBuffer(make([]byte, 0, len(buf.Samples)*2))
	if err := binary.Write(pcm, binary.LittleEndian, buf.Samples); err != nil {
		return fmt.Errorf("encode: serialize samples: %w", err)
	}

	cmd := commandContext(ctx, f.ffmpeg,
		"-hide_banner", "-loglevel", "error",
		"-y",
		"-f", "s16le",
		"-ar", strconv.Itoa(buf.SampleRate),
		"-ac", strconv.Itoa(buf.Channels),
		"-i", "pipe:0",
		"-codec:a", "libmp3lame",
		"-f", "mp3",
		path)
	cmd.Stdin = pcm
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("encode %s: %w: %s", path, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// stderrOf pulls captured stderr out of an exec.ExitError so command
// failures carry the tool's own diagnostic.
func stderrOf(err error) string {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return strings.TrimSpace(string(exitErr.Stderr))
	}
	return ""
}
