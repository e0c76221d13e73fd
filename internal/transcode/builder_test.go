package transcode

import (
	"context"
	"strings"
	"testing"

	"github.com/coursecast/coursecast-backend/pkg/config"
)

func testEncodingConfig() config.EncodingConfig {
	return config.EncodingConfig{
		BaseURL:       "https://encoder.example",
		APIKey:        "key",
		InputID:       "input-1",
		OutputID:      "output-1",
		VideoConfigID: "codec-video",
		AudioConfigID: "codec-audio",
	}
}

func newTestBuilder(t *testing.T, provider *stubProvider, cfg config.EncodingConfig) *Builder {
	t.Helper()
	builder, err := NewBuilder(provider, cfg, config.TranscodeConfig{SegmentLength: 4}, testLogger())
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	return builder
}

func TestBuildCreatesStreamAndMuxingPerCodec(t *testing.T) {
	t.Parallel()

	provider := newStubProvider()
	builder := newTestBuilder(t, provider, testEncodingConfig())

	build, err := builder.Build(context.Background(), "abc.mp4", "2026-03-01/")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(build.renditions) != 2 {
		t.Fatalf("expected 2 renditions, got %d", len(build.renditions))
	}
	if got := provider.callCount("AddStream"); got != 2 {
		t.Fatalf("expected 2 streams, got %d", got)
	}
	if got := provider.callCount("AddTSMuxing"); got != 2 {
		t.Fatalf("expected 2 muxings, got %d", got)
	}

	video := build.video()
	audio := build.audio()
	if len(video) != 1 || len(audio) != 1 {
		t.Fatalf("expected 1 video + 1 audio rendition, got %d/%d", len(video), len(audio))
	}
	if video[0].pathPrefix != "2026-03-01/video/720/" {
		t.Fatalf("unexpected video prefix %q", video[0].pathPrefix)
	}
	if audio[0].pathPrefix != "2026-03-01/audio/128000/" {
		t.Fatalf("unexpected audio prefix %q", audio[0].pathPrefix)
	}
	if video[0].qualitySegment() != "720" {
		t.Fatalf("unexpected quality segment %q", video[0].qualitySegment())
	}

	for _, spec := range provider.muxingSpecs {
		if spec.SegmentLength != 4 {
			t.Fatalf("expected 4s segments, got %v", spec.SegmentLength)
		}
		if spec.SegmentNaming != segmentNamingTS {
			t.Fatalf("unexpected segment naming %q", spec.SegmentNaming)
		}
	}
	for _, spec := range provider.streamSpecs {
		if len(spec.InputStreams) != 1 || spec.InputStreams[0].InputPath != "abc.mp4" {
			t.Fatalf("stream input not bound to the object key: %+v", spec)
		}
	}
}

func TestBuildWithoutAudioCodec(t *testing.T) {
	t.Parallel()

	cfg := testEncodingConfig()
	cfg.AudioConfigID = ""

	provider := newStubProvider()
	builder := newTestBuilder(t, provider, cfg)

	build, err := builder.Build(context.Background(), "abc.mp4", "2026-03-01/")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(build.renditions) != 1 {
		t.Fatalf("expected 1 rendition, got %d", len(build.renditions))
	}
	if len(build.audio()) != 0 {
		t.Fatal("expected no audio renditions")
	}
}

func TestBuildAbortsWhenResolutionFails(t *testing.T) {
	t.Parallel()

	provider := newStubProvider()
	provider.failAudioConfig = true
	builder := newTestBuilder(t, provider, testEncodingConfig())

	if _, err := builder.Build(context.Background(), "abc.mp4", "2026-03-01/"); err == nil {
		t.Fatal("expected resolution failure to abort the build")
	}
	if got := provider.callCount("AddStream"); got != 0 {
		t.Fatalf("expected no streams after a failed resolve, got %d", got)
	}
	if got := provider.callCount("AddTSMuxing"); got != 0 {
		t.Fatalf("expected no muxings after a failed resolve, got %d", got)
	}
}

func TestAssembleRegistersRenditions(t *testing.T) {
	t.Parallel()

	provider := newStubProvider()
	builder := newTestBuilder(t, provider, testEncodingConfig())
	assembler, err := NewAssembler(provider, testLogger())
	if err != nil {
		t.Fatalf("NewAssembler: %v", err)
	}

	build, err := builder.Build(context.Background(), "abc.mp4", "2026-03-01/")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	manifest, err := assembler.Assemble(context.Background(), build, "2026-03-01/")
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if manifest.ID == "" {
		t.Fatal("expected a manifest id")
	}

	if len(provider.manifestSpecs) != 1 {
		t.Fatalf("expected 1 manifest, got %d", len(provider.manifestSpecs))
	}
	spec := provider.manifestSpecs[0]
	if spec.ManifestName != manifestFileName {
		t.Fatalf("unexpected manifest name %q", spec.ManifestName)
	}
	if len(spec.Outputs) != 1 || len(spec.Outputs[0].ACL) != 1 || spec.Outputs[0].ACL[0].Permission != aclPublicRead {
		t.Fatalf("expected a public-read manifest output, got %+v", spec.Outputs)
	}

	if len(provider.audioSpecs) != 1 {
		t.Fatalf("expected 1 audio entry, got %d", len(provider.audioSpecs))
	}
	audioSpec := provider.audioSpecs[0]
	if audioSpec.GroupID != audioGroupID || audioSpec.URI != audioMediaURI {
		t.Fatalf("unexpected audio entry %+v", audioSpec)
	}
	if audioSpec.SegmentPath != "audio/128000/" {
		t.Fatalf("expected a manifest-relative audio segment path, got %q", audioSpec.SegmentPath)
	}

	if len(provider.variantSpecs) != 1 {
		t.Fatalf("expected 1 video entry, got %d", len(provider.variantSpecs))
	}
	variant := provider.variantSpecs[0]
	if variant.Audio != audioGroupID {
		t.Fatalf("expected the audio group reference, got %q", variant.Audio)
	}
	if variant.URI != "video_720.m3u8" {
		t.Fatalf("unexpected variant uri %q", variant.URI)
	}
	if variant.SegmentPath != "video/720/" {
		t.Fatalf("expected a manifest-relative video segment path, got %q", variant.SegmentPath)
	}
}

func TestAssembleOrdersAudioBeforeVideo(t *testing.T) {
	t.Parallel()

	provider := newStubProvider()
	builder := newTestBuilder(t, provider, testEncodingConfig())
	assembler, err := NewAssembler(provider, testLogger())
	if err != nil {
		t.Fatalf("NewAssembler: %v", err)
	}

	build, err := builder.Build(context.Background(), "abc.mp4", "2026-03-01/")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := assembler.Assemble(context.Background(), build, "2026-03-01/"); err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	sequence := strings.Join(provider.calls, ",")
	audioIdx := strings.Index(sequence, "AddAudioMedia")
	videoIdx := strings.Index(sequence, "AddVariantStream")
	if audioIdx == -1 || videoIdx == -1 || audioIdx > videoIdx {
		t.Fatalf("expected audio registration before video, call order: %s", sequence)
	}
}

func TestAssembleOmitsAudioGroupWithoutAudio(t *testing.T) {
	t.Parallel()

	cfg := testEncodingConfig()
	cfg.AudioConfigID = ""

	provider := newStubProvider()
	builder := newTestBuilder(t, provider, cfg)
	assembler, err := NewAssembler(provider, testLogger())
	if err != nil {
		t.Fatalf("NewAssembler: %v", err)
	}

	build, err := builder.Build(context.Background(), "abc.mp4", "2026-03-01/")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := assembler.Assemble(context.Background(), build, "2026-03-01/"); err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	if len(provider.audioSpecs) != 0 {
		t.Fatalf("expected no audio entries, got %d", len(provider.audioSpecs))
	}
	if len(provider.variantSpecs) != 1 {
		t.Fatalf("expected 1 video entry, got %d", len(provider.variantSpecs))
	}
	if provider.variantSpecs[0].Audio != "" {
		t.Fatalf("expected an empty audio group reference, got %q", provider.variantSpecs[0].Audio)
	}
}
