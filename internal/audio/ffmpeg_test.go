package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCommand replaces commandContext with a stub that records the requested
// command line and runs the test binary's helper process instead.
func stubCommand(t *testing.T, mode string) *[][]string {
	t.Helper()
	var calls [][]string
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		calls = append(calls, append([]string{name}, args...))
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "FFMPEG_HELPER_MODE="+mode)
		return cmd
	}
	t.Cleanup(func() {
		commandContext = original
	})
	return &calls
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	defer os.Exit(0)

	switch os.Getenv("FFMPEG_HELPER_MODE") {
	case "probe":
		fmt.Print(`{"streams":[{"codec_name":"mp3","sample_rate":"44100","channels":2,"duration":"12.480000"}]}`)
	case "probe-no-stream":
		fmt.Print(`{"streams":[]}`)
	case "pcm":
		_ = binary.Write(os.Stdout, binary.LittleEndian, []int16{100, -100, 2000, -2000})
	case "encode":
		_, _ = io.Copy(io.Discard, os.Stdin)
	case "fail":
		fmt.Fprint(os.Stderr, "Invalid data found when processing input")
		os.Exit(1)
	}
}

func TestNewFFmpegDefaultsAndOptions(t *testing.T) {
	t.Parallel()

	f := NewFFmpeg()
	assert.Equal(t, "ffmpeg", f.ffmpeg)
	assert.Equal(t, "ffprobe", f.ffprobe)

	f = NewFFmpeg(WithFFmpegBinary("/opt/ffmpeg/bin/ffmpeg"), WithFFprobeBinary("/opt/ffmpeg/bin/ffprobe"))
	assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", f.ffmpeg)
	assert.Equal(t, "/opt/ffmpeg/bin/ffprobe", f.ffprobe)

	// Empty overrides keep the defaults.
	f = NewFFmpeg(WithFFmpegBinary(""), WithFFprobeBinary(""))
	assert.Equal(t, "ffmpeg", f.ffmpeg)
	assert.Equal(t, "ffprobe", f.ffprobe)
}

func TestVerify(t *testing.T) {
	// The test binary itself is a guaranteed-present executable path.
	self := os.Args[0]

	ok := NewFFmpeg(WithFFmpegBinary(self), WithFFprobeBinary(self))
	assert.NoError(t, ok.Verify())

	missing := NewFFmpeg(WithFFmpegBinary("definitely-not-ffmpeg-xyz"), WithFFprobeBinary(self))
	assert.Error(t, missing.Verify())
}

func TestProbeParsesStreamInfo(t *testing.T) {
	calls := stubCommand(t, "probe")

	f := NewFFmpeg()
	info, err := f.Probe(context.Background(), "/tmp/music.mp3")
	require.NoError(t, err)

	assert.Equal(t, "mp3", info.CodecName)
	assert.Equal(t, 44100, info.SampleRate)
	assert.Equal(t, 2, info.Channels)
	assert.InDelta(t, 12.48, info.Duration, 0.001)

	require.Len(t, *calls, 1)
	args := (*calls)[0]
	assert.Equal(t, "ffprobe", args[0])
	assert.Contains(t, args, "-select_streams")
	assert.Contains(t, args, "a:0")
	assert.Equal(t, "/tmp/music.mp3", args[len(args)-1])
}

func TestProbeRejectsFilesWithoutAudio(t *testing.T) {
	stubCommand(t, "probe-no-stream")

	f := NewFFmpeg()
	_, err := f.Probe(context.Background(), "/tmp/image.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no audio stream")
}

func TestDecodeReadsLittleEndianPCM(t *testing.T) {
	calls := stubCommand(t, "pcm")

	f := NewFFmpeg()
	buf, err := f.Decode(context.Background(), "/tmp/voice.mp3", 44100, 2)
	require.NoError(t, err)

	assert.Equal(t, []int16{100, -100, 2000, -2000}, buf.Samples)
	assert.Equal(t, 44100, buf.SampleRate)
	assert.Equal(t, 2, buf.Channels)

	require.Len(t, *calls, 1)
	args := (*calls)[0]
	assert.Equal(t, "ffmpeg", args[0])
	assert.Subset(t, args, []string{"-f", "s16le", "-ar", "44100", "-ac", "2", "pipe:1"})
}

func TestDecodeRejectsInvalidLayout(t *testing.T) {
	calls := stubCommand(t, "pcm")

	f := NewFFmpeg()
	_, err := f.Decode(context.Background(), "/tmp/voice.mp3", 0, 2)
	assert.Error(t, err)
	assert.Empty(t, *calls)
}

func TestDecodeSurfacesToolDiagnostics(t *testing.T) {
	stubCommand(t, "fail")

	f := NewFFmpeg()
	_, err := f.Decode(context.Background(), "/tmp/garbage.bin", 44100, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid data found")
}

func TestEncodeMP3BuildsEncoderCommand(t *testing.T) {
	calls := stubCommand(t, "encode")

	out := filepath.Join(t.TempDir(), "merged.mp3")
	buf := &Buffer{Samples: []int16{1, 2, 3, 4}, SampleRate: 48000, Channels: 2}

	f := NewFFmpeg()
	require.NoError(t, f.EncodeMP3(context.Background(), buf, out))

	require.Len(t, *calls, 1)
	args := (*calls)[0]
	assert.Equal(t, "ffmpeg", args[0])
	assert.Subset(t, args, []string{"-y", "-codec:a", "libmp3lame", "-f", "mp3", "-ar", "48000", "-ac", "2"})
	assert.Equal(t, out, args[len(args)-1])
}

func TestEncodeMP3RejectsEmptyBuffer(t *testing.T) {
	calls := stubCommand(t, "encode")

	f := NewFFmpeg()
	err := f.EncodeMP3(context.Background(), &Buffer{SampleRate: 44100, Channels: 2}, "/tmp/out.mp3")
	assert.Error(t, err)
	assert.Empty(t, *calls)
}
