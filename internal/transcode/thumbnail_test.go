package transcode

import (
	"context"
	"testing"
	"time"

	"github.com/coursecast/coursecast-backend/pkg/encoding"
)

func builtResult(t *testing.T, provider *stubProvider) *buildResult {
	t.Helper()
	builder := newTestBuilder(t, provider, testEncodingConfig())
	build, err := builder.Build(context.Background(), "abc.mp4", "2026-03-01/")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return build
}

func TestExtractFireAndFetch(t *testing.T) {
	t.Parallel()

	provider := newStubProvider()
	build := builtResult(t, provider)

	extractor, err := NewExtractor(provider, defaultTranscodeConfig(), testLogger())
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}

	path, err := extractor.Extract(context.Background(), build, "2026-03-01/")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if path == nil || *path != "2026-03-01/thumbnails/thumbnail-10.png" {
		t.Fatalf("unexpected thumbnail path %v", path)
	}

	if got := provider.callCount("GetThumbnail"); got != 1 {
		t.Fatalf("expected a single fetch, got %d", got)
	}
	if len(provider.thumbSpecs) != 1 {
		t.Fatalf("expected 1 thumbnail job, got %d", len(provider.thumbSpecs))
	}
	spec := provider.thumbSpecs[0]
	if len(spec.Positions) != 3 || spec.Positions[0] != 10 {
		t.Fatalf("unexpected offsets %v", spec.Positions)
	}
	if len(spec.Outputs) != 1 || spec.Outputs[0].OutputPath != "2026-03-01/thumbnails/" {
		t.Fatalf("unexpected thumbnail output %+v", spec.Outputs)
	}
}

func TestExtractWaitsWhenConfigured(t *testing.T) {
	t.Parallel()

	provider := newStubProvider()
	provider.thumbnailStatuses = []encoding.Status{
		encoding.StatusRunning,
		encoding.StatusFinished,
	}
	build := builtResult(t, provider)

	cfg := defaultTranscodeConfig()
	cfg.WaitForThumbnails = true
	cfg.PollInterval = time.Millisecond

	extractor, err := NewExtractor(provider, cfg, testLogger())
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}

	path, err := extractor.Extract(context.Background(), build, "2026-03-01/")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if path == nil {
		t.Fatal("expected a thumbnail path")
	}
	if got := provider.callCount("GetThumbnail"); got != 2 {
		t.Fatalf("expected polling until finished, got %d fetches", got)
	}
}

func TestExtractSkipsWithoutOffsets(t *testing.T) {
	t.Parallel()

	provider := newStubProvider()
	build := builtResult(t, provider)

	cfg := defaultTranscodeConfig()
	cfg.ThumbnailOffsets = nil

	extractor, err := NewExtractor(provider, cfg, testLogger())
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}

	path, err := extractor.Extract(context.Background(), build, "2026-03-01/")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if path != nil {
		t.Fatalf("expected no thumbnail path, got %q", *path)
	}
	if got := provider.callCount("AddThumbnail"); got != 0 {
		t.Fatalf("expected no thumbnail job, got %d", got)
	}
}
