package transcode

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/coursecast/coursecast-backend/pkg/config"
	"github.com/coursecast/coursecast-backend/pkg/encoding"
	"github.com/coursecast/coursecast-backend/pkg/enums"
	pkgerrors "github.com/coursecast/coursecast-backend/pkg/errors"
	"github.com/coursecast/coursecast-backend/pkg/logger"
)

const (
	segmentNamingTS      = "segment_%number%.ts"
	streamSelectionAuto  = "AUTO"
	defaultSegmentLength = 4
)

// rendition ties one codec configuration to the stream and muxing created
// for it, plus the output path prefix the manifest assembler references.
type rendition struct {
	config     encoding.CodecConfiguration
	stream     encoding.Stream
	muxing     encoding.Muxing
	pathPrefix string
}

func (r rendition) isVideo() bool {
	return r.config.IsVideo()
}

// qualitySegment is the last non-empty segment of the output path prefix,
// e.g. "720" for video/720/ or "128000" for audio/128000/.
func (r rendition) qualitySegment() string {
	parts := strings.Split(strings.Trim(r.pathPrefix, "/"), "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] != "" {
			return parts[i]
		}
	}
	return ""
}

// buildResult carries everything one job-builder pass produced.
type buildResult struct {
	job        *encoding.Job
	input      *encoding.Input
	output     *encoding.Output
	renditions []rendition
}

func (b *buildResult) audio() []rendition {
	out := []rendition{}
	for _, r := range b.renditions {
		if !r.isVideo() {
			out = append(out, r)
		}
	}
	return out
}

func (b *buildResult) video() []rendition {
	out := []rendition{}
	for _, r := range b.renditions {
		if r.isVideo() {
			out = append(out, r)
		}
	}
	return out
}

// primaryVideoStreamID returns the stream the thumbnail job runs against.
func (b *buildResult) primaryVideoStreamID() string {
	for _, r := range b.renditions {
		if r.isVideo() {
			return r.stream.ID
		}
	}
	return ""
}

// Builder assembles one encoding job: resolves the provider resources,
// creates the job, then attaches a stream and a TS muxing per codec.
type Builder struct {
	provider      encodingProvider
	cfg           config.EncodingConfig
	segmentLength float64
	container     enums.ContainerFormat
	logg          *logger.Logger
}

// NewBuilder validates the provider wiring. Only the transport-stream
// container is accepted; fMP4 is rejected up front.
func NewBuilder(provider encodingProvider, cfg config.EncodingConfig, transcodeCfg config.TranscodeConfig, logg *logger.Logger) (*Builder, error) {
	if provider == nil {
		return nil, fmt.Errorf("encoding provider required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.InputID == "" || cfg.OutputID == "" {
		return nil, fmt.Errorf("encoding input and output resource ids required")
	}
	if cfg.VideoConfigID == "" {
		return nil, fmt.Errorf("encoding video codec configuration id required")
	}

	segmentLength := transcodeCfg.SegmentLength
	if segmentLength <= 0 {
		segmentLength = defaultSegmentLength
	}

	container := enums.ContainerFormatTS
	if !container.Supported() {
		return nil, fmt.Errorf("container format %s not supported", container)
	}

	return &Builder{
		provider:      provider,
		cfg:           cfg,
		segmentLength: segmentLength,
		container:     container,
		logg:          logg,
	}, nil
}

// Build resolves input, output, both codec configurations and creates the job
// in parallel, then attaches streams and muxings per codec concurrently. Any
// failure aborts the run; already-created provider resources are left behind
// for the out-of-band reconciliation sweep.
func (b *Builder) Build(ctx context.Context, objectKey, basePath string) (*buildResult, error) {
	var (
		input    *encoding.Input
		output   *encoding.Output
		videoCfg *encoding.CodecConfiguration
		audioCfg *encoding.CodecConfiguration
		job      *encoding.Job
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		input, err = b.provider.GetInput(gctx, b.cfg.InputID)
		return err
	})
	g.Go(func() error {
		var err error
		output, err = b.provider.GetOutput(gctx, b.cfg.OutputID)
		return err
	})
	g.Go(func() error {
		var err error
		videoCfg, err = b.provider.GetCodecConfiguration(gctx, enums.CodecKindVideo, b.cfg.VideoConfigID)
		return err
	})
	if b.cfg.AudioConfigID != "" {
		g.Go(func() error {
			var err error
			audioCfg, err = b.provider.GetCodecConfiguration(gctx, enums.CodecKindAudio, b.cfg.AudioConfigID)
			return err
		})
	}
	g.Go(func() error {
		var err error
		job, err = b.provider.CreateJob(gctx, encoding.JobSpec{Name: objectKey})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve encoding resources")
	}

	configs := []encoding.CodecConfiguration{*videoCfg}
	if audioCfg != nil {
		configs = append(configs, *audioCfg)
	}

	renditions := make([]rendition, len(configs))
	sg, sctx := errgroup.WithContext(ctx)
	for i, codecCfg := range configs {
		sg.Go(func() error {
			built, err := b.attach(sctx, job.ID, input.ID, output.ID, objectKey, basePath, codecCfg)
			if err != nil {
				return err
			}
			renditions[i] = *built
			return nil
		})
	}
	if err := sg.Wait(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach streams")
	}

	b.logg.Info(b.logg.WithField(ctx, "job_id", job.ID), "encoding job assembled")

	return &buildResult{
		job:        job,
		input:      input,
		output:     output,
		renditions: renditions,
	}, nil
}

func (b *Builder) attach(ctx context.Context, jobID, inputID, outputID, objectKey, basePath string, codecCfg encoding.CodecConfiguration) (*rendition, error) {
	prefix := basePath + renditionPrefix(codecCfg)

	stream, err := b.provider.AddStream(ctx, jobID, encoding.StreamSpec{
		CodecConfigID: codecCfg.ID,
		InputStreams: []encoding.StreamInput{{
			InputID:       inputID,
			InputPath:     objectKey,
			SelectionMode: streamSelectionAuto,
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("add stream for codec %s: %w", codecCfg.ID, err)
	}

	muxing, err := b.provider.AddTSMuxing(ctx, jobID, encoding.TSMuxingSpec{
		SegmentLength: b.segmentLength,
		SegmentNaming: segmentNamingTS,
		Streams:       []encoding.MuxingStream{{StreamID: stream.ID}},
		Outputs: []encoding.EncodingOutput{{
			OutputID:   outputID,
			OutputPath: prefix,
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("add ts muxing for stream %s: %w", stream.ID, err)
	}

	return &rendition{
		config:     codecCfg,
		stream:     *stream,
		muxing:     *muxing,
		pathPrefix: prefix,
	}, nil
}

// renditionPrefix derives the per-rendition output folder: video renditions
// key on their dimension, audio renditions on their bitrate.
func renditionPrefix(cfg encoding.CodecConfiguration) string {
	if cfg.IsVideo() {
		return fmt.Sprintf("video/%d/", cfg.Dimension())
	}
	return fmt.Sprintf("audio/%d/", cfg.Bitrate)
}
