package transcode

import (
	"context"

	"github.com/coursecast/coursecast-backend/pkg/encoding"
	"github.com/coursecast/coursecast-backend/pkg/enums"
)

// encodingProvider is the slice of the provider API the pipeline drives.
type encodingProvider interface {
	GetInput(ctx context.Context, id string) (*encoding.Input, error)
	GetOutput(ctx context.Context, id string) (*encoding.Output, error)
	GetCodecConfiguration(ctx context.Context, kind enums.CodecKind, id string) (*encoding.CodecConfiguration, error)
	CreateJob(ctx context.Context, spec encoding.JobSpec) (*encoding.Job, error)
	AddStream(ctx context.Context, jobID string, spec encoding.StreamSpec) (*encoding.Stream, error)
	AddTSMuxing(ctx context.Context, jobID string, spec encoding.TSMuxingSpec) (*encoding.Muxing, error)
	CreateManifest(ctx context.Context, spec encoding.ManifestSpec) (*encoding.Manifest, error)
	AddAudioMedia(ctx context.Context, manifestID string, spec encoding.AudioMediaSpec) error
	AddVariantStream(ctx context.Context, manifestID string, spec encoding.VariantStreamSpec) error
	StartJob(ctx context.Context, jobID string) error
	StartManifest(ctx context.Context, manifestID string) error
	JobStatus(ctx context.Context, jobID string) (*encoding.StatusResult, error)
	ManifestStatus(ctx context.Context, manifestID string) (*encoding.StatusResult, error)
	AddThumbnail(ctx context.Context, jobID, streamID string, spec encoding.ThumbnailSpec) (*encoding.Thumbnail, error)
	GetThumbnail(ctx context.Context, jobID, streamID, thumbnailID string) (*encoding.Thumbnail, error)
}
