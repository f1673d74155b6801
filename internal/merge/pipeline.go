// Package merge implements the voice-over-music merge pipeline and its HTTP
// handler: fetch both inputs from object storage, attenuate the music,
// overlay the voice, encode the mix as MP3, and publish it next to the voice
// input.
package merge

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/overdub/service/internal/audio"
	"github.com/overdub/service/internal/metrics"
	"github.com/overdub/service/internal/storage"
)

const (
	// musicAttenuationDB is how far the background music is pulled down
	// before the voice is overlaid. Fixed policy, not per-request.
	musicAttenuationDB = -15

	// Published objects live in the voice input's bucket under
	// merged_audio/<32 hex chars>.mp3.
	outputPrefix = "merged_audio/"
	outputExt    = ".mp3"

	outputContentType = "audio/mpeg"
)

// FailureKind classifies a pipeline failure by the stage that caused it.
type FailureKind string

const (
	KindValidation FailureKind = "validation"
	KindFetch      FailureKind = "fetch"
	KindMerge      FailureKind = "merge"
	KindUpload     FailureKind = "upload"
)

// PipelineError tags an underlying failure with the stage it happened in.
// Callers branch on Kind, never on message text.
type PipelineError struct {
	Kind FailureKind
	Err  error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// Request is an immutable pair of input locators, validated by the handler
// before the pipeline ever runs.
type Request struct {
	Voice storage.Locator
	Music storage.Locator
}

// Result carries the locator of the published merged object.
type Result struct {
	Output storage.Locator
}

// Pipeline performs the fetch → mix → publish sequence for one Request.
// It holds no per-request state; one instance serves concurrent invocations.
type Pipeline struct {
	store      storage.ObjectStore
	codec      audio.Transcoder
	log        *zap.Logger
	metrics    *metrics.Metrics
	scratchDir string
}

// NewPipeline wires the pipeline to its collaborators. Store and codec are
// shared, stateless clients constructed once at process start.
func NewPipeline(store storage.ObjectStore, codec audio.Transcoder, log *zap.Logger, m *metrics.Metrics, scratchDir string) *Pipeline {
	return &Pipeline{store: store, codec: codec, log: log, metrics: m, scratchDir: scratchDir}
}

// Run executes one merge invocation: fetch both inputs, mix, publish, and
// return the new locator. The three scratch files are removed on every exit
// path — success, fetch error, merge error, and upload error alike. No step
// is retried; the first failure aborts the invocation.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	p.metrics.RecordMergeStarted()

	files, err := newScratchSet(p.scratchDir)
	if err != nil {
		return nil, fmt.Errorf("allocate scratch files: %w", err)
	}
	defer files.cleanup()

	if err := p.store.Fetch(ctx, req.Voice, files.voice); err != nil {
		return nil, p.fail(KindFetch, fmt.Errorf("fetch voice %s: %w", req.Voice, err))
	}
	p.log.Info("fetched voice input", zap.String("locator", req.Voice.String()))

	if err := p.store.Fetch(ctx, req.Music, files.music); err != nil {
		return nil, p.fail(KindFetch, fmt.Errorf("fetch music %s: %w", req.Music, err))
	}
	p.log.Info("fetched music input", zap.String("locator", req.Music.String()))

	if err := p.mix(ctx, files); err != nil {
		return nil, p.fail(KindMerge, err)
	}

	output := storage.Locator{
		Bucket: req.Voice.Bucket,
		Key:    outputPrefix + newObjectID() + outputExt,
	}
	if err := p.store.Publish(ctx, files.merged, output, outputContentType); err != nil {
		return nil, p.fail(KindUpload, fmt.Errorf("publish %s: %w", output, err))
	}

	elapsed := time.Since(start)
	p.metrics.RecordMergeCompleted(elapsed.Seconds(), fileSize(files.merged))
	p.log.Info("merged audio published",
		zap.String("output", output.String()),
		zap.Duration("took", elapsed),
	)
	return &Result{Output: output}, nil
}

// mix decodes both inputs, attenuates the music, overlays the voice, and
// encodes the result into the merged scratch file. The music track defines
// the output's duration, sample rate, and channel layout: the voice is
// resampled and channel-converted to match, a shorter voice leaves the music
// tail un-overlaid, a longer one is truncated.
func (p *Pipeline) mix(ctx context.Context, files *scratchSet) error {
	info, err := p.codec.Probe(ctx, files.music)
	if err != nil {
		return err
	}

	music, err := p.codec.Decode(ctx, files.music, info.SampleRate, info.Channels)
	if err != nil {
		return err
	}
	voice, err := p.codec.Decode(ctx, files.voice, info.SampleRate, info.Channels)
	if err != nil {
		return err
	}

	mixed, err := audio.Overlay(music.Gain(musicAttenuationDB), voice)
	if err != nil {
		return err
	}
	p.log.Debug("mixed buffers",
		zap.Duration("music", music.Duration()),
		zap.Duration("voice", voice.Duration()),
		zap.Duration("output", mixed.Duration()),
	)

	return p.codec.EncodeMP3(ctx, mixed, files.merged)
}

func (p *Pipeline) fail(kind FailureKind, err error) error {
	p.metrics.RecordMergeFailure(string(kind))
	p.log.Warn("merge pipeline failed",
		zap.String("stage", string(kind)),
		zap.Error(err),
	)
	return &PipelineError{Kind: kind, Err: err}
}

// newObjectID returns a 128-bit random identifier as 32 hex characters.
func newObjectID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

func fileSize(path string) float64 {
	if fi, err := os.Stat(path); err == nil {
		return float64(fi.Size())
	}
	return 0
}
