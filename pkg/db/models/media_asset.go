package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coursecast/coursecast-backend/pkg/enums"
)

// MediaAsset is one uploaded audio/video file and its processing lifecycle.
// Rows are soft-deleted only; playback state is derived from Status plus the
// output paths written by the publish step.
type MediaAsset struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CompanyID    uuid.UUID         `gorm:"column:company_id;type:uuid;not null;index"`
	ContentID    uuid.UUID         `gorm:"column:content_id;type:uuid;not null;unique"`
	FileName     string            `gorm:"column:file_name;not null"`
	MimeType     string            `gorm:"column:mime_type;not null"`
	SizeBytes    int64             `gorm:"column:size_bytes;not null"`
	Status       enums.MediaStatus `gorm:"column:status;type:media_status;not null;default:'create'"`
	Public       bool              `gorm:"column:public;not null;default:false"`
	InputBucket  string            `gorm:"column:input_bucket;not null"`
	OutputBucket string            `gorm:"column:output_bucket;not null"`
	ManifestPath *string           `gorm:"column:manifest_path"`
	ThumbnailURL *string           `gorm:"column:thumbnail_url"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt    gorm.DeletedAt    `gorm:"column:deleted_at;index"`
}

// ObjectKey is the storage key the upload URL was signed for.
func (m MediaAsset) ObjectKey(ext string) string {
	return m.ContentID.String() + ext
}
