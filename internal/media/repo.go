package media

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coursecast/coursecast-backend/pkg/db/models"
	"github.com/coursecast/coursecast-backend/pkg/enums"
)

// Repository exposes media-asset persistence operations. Status transitions
// are guarded in the WHERE clause so they stay monotonic under concurrency.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a media-asset repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a media-asset record.
func (r *Repository) Create(ctx context.Context, asset *models.MediaAsset) (*models.MediaAsset, error) {
	if err := r.db.WithContext(ctx).Create(asset).Error; err != nil {
		return nil, err
	}
	return asset, nil
}

// FindByID retrieves an asset by primary key.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.MediaAsset, error) {
	var asset models.MediaAsset
	if err := r.db.WithContext(ctx).First(&asset, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &asset, nil
}

// FindByContentID retrieves an asset by the content UUID embedded in its
// storage object key.
func (r *Repository) FindByContentID(ctx context.Context, contentID uuid.UUID) (*models.MediaAsset, error) {
	var asset models.MediaAsset
	if err := r.db.WithContext(ctx).First(&asset, "content_id = ?", contentID).Error; err != nil {
		return nil, err
	}
	return &asset, nil
}

// MarkUploaded flips status create -> uploaded. Returns the affected row
// count; zero means the asset was missing or not in the create state.
func (r *Repository) MarkUploaded(ctx context.Context, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.MediaAsset{}).
		Where("id = ? AND status = ?", id, enums.MediaStatusCreate).
		Update("status", enums.MediaStatusUploaded)
	return result.RowsAffected, result.Error
}

// FinalizeReady writes the output paths and flips status uploaded -> ready in
// a single UPDATE. Returns the affected row count; zero means the asset was
// deleted or already finalized.
func (r *Repository) FinalizeReady(ctx context.Context, id uuid.UUID, manifestPath string, thumbnailPath *string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.MediaAsset{}).
		Where("id = ? AND status = ?", id, enums.MediaStatusUploaded).
		Updates(map[string]any{
			"status":        enums.MediaStatusReady,
			"manifest_path": manifestPath,
			"thumbnail_url": thumbnailPath,
		})
	return result.RowsAffected, result.Error
}
