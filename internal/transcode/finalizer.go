package transcode

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/coursecast/coursecast-backend/pkg/errors"
	"github.com/coursecast/coursecast-backend/pkg/logger"
)

type finalizerRepository interface {
	FinalizeReady(ctx context.Context, id uuid.UUID, manifestPath string, thumbnailPath *string) (int64, error)
}

// Finalizer persists the playable output paths and flips the asset to ready.
type Finalizer struct {
	repo finalizerRepository
	logg *logger.Logger
}

// NewFinalizer constructs a publish finalizer.
func NewFinalizer(repo finalizerRepository, logg *logger.Logger) (*Finalizer, error) {
	if repo == nil {
		return nil, fmt.Errorf("asset repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Finalizer{repo: repo, logg: logg}, nil
}

// Publish runs the single finalizing UPDATE. Zero affected rows means the
// asset was deleted or already finalized; that is a soft no-op, not an error.
func (f *Finalizer) Publish(ctx context.Context, assetID uuid.UUID, manifestPath string, thumbnailPath *string) error {
	rows, err := f.repo.FinalizeReady(ctx, assetID, manifestPath, thumbnailPath)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "finalize media asset")
	}
	if rows == 0 {
		f.logg.Warn(ctx, "asset already finalized or deleted, skipping publish")
		return nil
	}
	f.logg.Info(ctx, "media asset published")
	return nil
}
