package transcode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/coursecast/coursecast-backend/pkg/encoding"
	"github.com/coursecast/coursecast-backend/pkg/enums"
	"github.com/coursecast/coursecast-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

// stubProvider records every provider call and serves configurable statuses.
// Safe for the pipeline's concurrent stages.
type stubProvider struct {
	mu    sync.Mutex
	calls []string

	failAudioConfig   bool
	failVideoConfig   bool
	failAddStream     bool
	videoHeight       int
	audioBitrate      int64
	jobStatuses       []encoding.Status
	manifestStatuses  []encoding.Status
	thumbnailStatuses []encoding.Status

	streamSpecs   []encoding.StreamSpec
	muxingSpecs   []encoding.TSMuxingSpec
	manifestSpecs []encoding.ManifestSpec
	audioSpecs    []encoding.AudioMediaSpec
	variantSpecs  []encoding.VariantStreamSpec
	thumbSpecs    []encoding.ThumbnailSpec

	jobPolls      int
	manifestPolls int
}

func newStubProvider() *stubProvider {
	return &stubProvider{
		videoHeight:      720,
		audioBitrate:     128000,
		jobStatuses:      []encoding.Status{encoding.StatusFinished},
		manifestStatuses: []encoding.Status{encoding.StatusFinished},
	}
}

func (s *stubProvider) record(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, name)
}

func (s *stubProvider) callCount(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, c := range s.calls {
		if c == name {
			count++
		}
	}
	return count
}

func (s *stubProvider) GetInput(context.Context, string) (*encoding.Input, error) {
	s.record("GetInput")
	return &encoding.Input{ID: "input-1"}, nil
}

func (s *stubProvider) GetOutput(context.Context, string) (*encoding.Output, error) {
	s.record("GetOutput")
	return &encoding.Output{ID: "output-1"}, nil
}

func (s *stubProvider) GetCodecConfiguration(_ context.Context, kind enums.CodecKind, id string) (*encoding.CodecConfiguration, error) {
	s.record("GetCodecConfiguration")
	if kind == enums.CodecKindVideo {
		if s.failVideoConfig {
			return nil, errors.New("video config unavailable")
		}
		height := s.videoHeight
		return &encoding.CodecConfiguration{ID: id, Height: &height}, nil
	}
	if s.failAudioConfig {
		return nil, errors.New("audio config unavailable")
	}
	return &encoding.CodecConfiguration{ID: id, Bitrate: s.audioBitrate}, nil
}

func (s *stubProvider) CreateJob(_ context.Context, spec encoding.JobSpec) (*encoding.Job, error) {
	s.record("CreateJob")
	return &encoding.Job{ID: "job-1", Name: spec.Name}, nil
}

func (s *stubProvider) AddStream(_ context.Context, _ string, spec encoding.StreamSpec) (*encoding.Stream, error) {
	s.record("AddStream")
	if s.failAddStream {
		return nil, errors.New("add stream rejected")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streamSpecs = append(s.streamSpecs, spec)
	id := fmt.Sprintf("stream-%d", len(s.streamSpecs))
	return &encoding.Stream{ID: id, CodecConfigID: spec.CodecConfigID}, nil
}

func (s *stubProvider) AddTSMuxing(_ context.Context, _ string, spec encoding.TSMuxingSpec) (*encoding.Muxing, error) {
	s.record("AddTSMuxing")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muxingSpecs = append(s.muxingSpecs, spec)
	id := fmt.Sprintf("muxing-%d", len(s.muxingSpecs))
	return &encoding.Muxing{ID: id, SegmentLength: spec.SegmentLength}, nil
}

func (s *stubProvider) CreateManifest(_ context.Context, spec encoding.ManifestSpec) (*encoding.Manifest, error) {
	s.record("CreateManifest")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manifestSpecs = append(s.manifestSpecs, spec)
	return &encoding.Manifest{ID: "manifest-1", Name: spec.Name}, nil
}

func (s *stubProvider) AddAudioMedia(_ context.Context, _ string, spec encoding.AudioMediaSpec) error {
	s.record("AddAudioMedia")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audioSpecs = append(s.audioSpecs, spec)
	return nil
}

func (s *stubProvider) AddVariantStream(_ context.Context, _ string, spec encoding.VariantStreamSpec) error {
	s.record("AddVariantStream")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.variantSpecs = append(s.variantSpecs, spec)
	return nil
}

func (s *stubProvider) StartJob(context.Context, string) error {
	s.record("StartJob")
	return nil
}

func (s *stubProvider) StartManifest(context.Context, string) error {
	s.record("StartManifest")
	return nil
}

func (s *stubProvider) JobStatus(context.Context, string) (*encoding.StatusResult, error) {
	s.record("JobStatus")
	s.mu.Lock()
	defer s.mu.Unlock()
	status := popStatus(s.jobStatuses, s.jobPolls)
	s.jobPolls++
	return &encoding.StatusResult{Status: status}, nil
}

func (s *stubProvider) ManifestStatus(context.Context, string) (*encoding.StatusResult, error) {
	s.record("ManifestStatus")
	s.mu.Lock()
	defer s.mu.Unlock()
	status := popStatus(s.manifestStatuses, s.manifestPolls)
	s.manifestPolls++
	return &encoding.StatusResult{Status: status}, nil
}

func (s *stubProvider) AddThumbnail(_ context.Context, _, _ string, spec encoding.ThumbnailSpec) (*encoding.Thumbnail, error) {
	s.record("AddThumbnail")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.thumbSpecs = append(s.thumbSpecs, spec)
	return &encoding.Thumbnail{ID: "thumb-1", Pattern: spec.Pattern, Positions: spec.Positions}, nil
}

func (s *stubProvider) GetThumbnail(context.Context, string, string, string) (*encoding.Thumbnail, error) {
	s.record("GetThumbnail")
	s.mu.Lock()
	defer s.mu.Unlock()
	status := encoding.StatusFinished
	if len(s.thumbnailStatuses) > 0 {
		status = popStatus(s.thumbnailStatuses, 0)
		s.thumbnailStatuses = s.thumbnailStatuses[1:]
	}
	return &encoding.Thumbnail{ID: "thumb-1", Status: status}, nil
}

// popStatus serves the status at index, repeating the last entry afterwards.
func popStatus(statuses []encoding.Status, index int) encoding.Status {
	if len(statuses) == 0 {
		return encoding.StatusFinished
	}
	if index >= len(statuses) {
		return statuses[len(statuses)-1]
	}
	return statuses[index]
}
