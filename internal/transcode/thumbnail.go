package transcode

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/coursecast/coursecast-backend/pkg/config"
	"github.com/coursecast/coursecast-backend/pkg/encoding"
	pkgerrors "github.com/coursecast/coursecast-backend/pkg/errors"
	"github.com/coursecast/coursecast-backend/pkg/logger"
)

const (
	thumbnailFolder  = "thumbnails/"
	thumbnailPattern = "thumbnail-%number%.png"
)

// Extractor requests preview images at fixed offsets against the primary
// video stream. The default mode submits the job and fetches the stored
// resource immediately; WaitForThumbnails polls the job to a terminal state
// first, closing the submit/fetch race.
type Extractor struct {
	provider    encodingProvider
	offsets     []int
	wait        bool
	interval    time.Duration
	maxDuration time.Duration
	logg        *logger.Logger
}

// NewExtractor constructs a thumbnail extractor.
func NewExtractor(provider encodingProvider, cfg config.TranscodeConfig, logg *logger.Logger) (*Extractor, error) {
	if provider == nil {
		return nil, fmt.Errorf("encoding provider required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}

	interval := cfg.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	return &Extractor{
		provider:    provider,
		offsets:     cfg.ThumbnailOffsets,
		wait:        cfg.WaitForThumbnails,
		interval:    interval,
		maxDuration: cfg.MaxPollDuration,
		logg:        logg,
	}, nil
}

// Extract submits one thumbnail job and returns the storage path of the
// image at the first configured offset. Returns nil without error when no
// offsets are configured or the build produced no video stream.
func (e *Extractor) Extract(ctx context.Context, build *buildResult, basePath string) (*string, error) {
	if len(e.offsets) == 0 {
		return nil, nil
	}
	streamID := build.primaryVideoStreamID()
	if streamID == "" {
		return nil, nil
	}

	outputPath := basePath + thumbnailFolder
	thumb, err := e.provider.AddThumbnail(ctx, build.job.ID, streamID, encoding.ThumbnailSpec{
		Positions: e.offsets,
		Pattern:   thumbnailPattern,
		Outputs: []encoding.EncodingOutput{{
			OutputID:   build.output.ID,
			OutputPath: outputPath,
		}},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "submit thumbnail job")
	}

	if e.wait {
		if err := e.awaitThumbnail(ctx, build.job.ID, streamID, thumb.ID); err != nil {
			return nil, err
		}
	} else if _, err := e.provider.GetThumbnail(ctx, build.job.ID, streamID, thumb.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch thumbnail")
	}

	path := fmt.Sprintf("%sthumbnail-%d.png", outputPath, e.offsets[0])
	return &path, nil
}

func (e *Extractor) awaitThumbnail(ctx context.Context, jobID, streamID, thumbnailID string) error {
	backoff := retry.NewConstant(e.interval)
	if e.maxDuration > 0 {
		backoff = retry.WithMaxDuration(e.maxDuration, backoff)
	}
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		thumb, err := e.provider.GetThumbnail(ctx, jobID, streamID, thumbnailID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch thumbnail")
		}
		switch thumb.Status {
		case encoding.StatusError:
			return pkgerrors.New(pkgerrors.CodeDependency, string(thumb.Status))
		case encoding.StatusFinished, "":
			// Providers omit the status once the resource is stored.
			return nil
		default:
			return retry.RetryableError(fmt.Errorf("thumbnail status %s", thumb.Status))
		}
	})
}
