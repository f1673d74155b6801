// Package audio provides the sample buffer the merge pipeline mixes in
// process, and a Transcoder that delegates container probing, decoding, and
// encoding to the ffmpeg toolchain.
package audio

import (
	"fmt"
	"math"
	"time"
)

// Buffer holds interleaved signed 16-bit PCM samples.
type Buffer struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// Duration returns the playing time of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 || b.Channels <= 0 {
		return 0
	}
	frames := len(b.Samples) / b.Channels
	return time.Duration(float64(frames) / float64(b.SampleRate) * float64(time.Second))
}

// Gain returns a copy of the buffer with every sample scaled by db decibels
// (negative attenuates, positive amplifies). A db of -15 multiplies linear
// amplitude by 10^(-15/20). Samples saturate at the int16 range instead of
// wrapping.
func (b *Buffer) Gain(db float64) *Buffer {
	factor := math.Pow(10, db/20)
	out := &Buffer{
		Samples:    make([]int16, len(b.Samples)),
		SampleRate: b.SampleRate,
		Channels:   b.Channels,
	}
	for i, s := range b.Samples {
		out.Samples[i] = clampSample(float64(s) * factor)
	}
	return out
}

// Overlay sums over onto base sample-for-sample starting at time zero. The
// base buffer defines the result's duration and layout: a shorter overlay
// leaves the base tail untouched, a longer one is truncated to the base
// length. Both buffers must already share a sample rate and channel count.
func Overlay(base, over *Buffer) (*Buffer, error) {
	if base.SampleRate != over.SampleRate || base.Channels != over.Channels {
		return nil, fmt.Errorf("overlay layout mismatch: base %dHz/%dch, overlay %dHz/%dch",
			base.SampleRate, base.Channels, over.SampleRate, over.Channels)
	}
	out := &Buffer{
		Samples:    make([]int16, len(base.Samples)),
		SampleRate: base.SampleRate,
		Channels:   base.Channels,
	}
	copy(out.Samples, base.Samples)
	n := min(len(over.Samples), len(base.Samples))
	for i := 0; i < n; i++ {
		out.Samples[i] = clampSample(float64(base.Samples[i]) + float64(over.Samples[i]))
	}
	return out, nil
}

func clampSample(v float64) int16 {
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	}
	return int16(math.Round(v))
}
