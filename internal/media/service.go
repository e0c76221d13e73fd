package media

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coursecast/coursecast-backend/pkg/config"
	"github.com/coursecast/coursecast-backend/pkg/db/models"
	"github.com/coursecast/coursecast-backend/pkg/enums"
	pkgerrors "github.com/coursecast/coursecast-backend/pkg/errors"
	"github.com/coursecast/coursecast-backend/pkg/logger"
)

type assetRepository interface {
	Create(ctx context.Context, asset *models.MediaAsset) (*models.MediaAsset, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.MediaAsset, error)
}

type urlSigner interface {
	SignedURL(bucket, object, method, contentType string, expires time.Duration) (string, error)
}

// Service exposes the upload-presign and asset-read semantics.
type Service interface {
	PresignUpload(ctx context.Context, companyID uuid.UUID, input PresignInput) (*PresignOutput, error)
	GetAsset(ctx context.Context, companyID, assetID uuid.UUID) (*models.MediaAsset, error)
}

type service struct {
	repo           assetRepository
	signer         urlSigner
	logg           *logger.Logger
	inputBucket    string
	outputBucket   string
	uploadTTL      time.Duration
	maxUploadBytes int64
}

// NewService constructs the media service. Bucket configuration is validated
// per request, not here: an asset row is still written when storage is
// unconfigured and the caller sees a StorageNotConfigured-style failure.
func NewService(repo assetRepository, signer urlSigner, gcsCfg config.GCSConfig, mediaCfg config.MediaConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("media repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	uploadTTL := gcsCfg.UploadURLExpiry
	if uploadTTL <= 0 {
		uploadTTL = time.Hour
	}
	maxUploadBytes := int64(mediaCfg.MaxUploadMB) * 1024 * 1024
	if maxUploadBytes <= 0 {
		maxUploadBytes = 2048 * 1024 * 1024
	}
	return &service{
		repo:           repo,
		signer:         signer,
		logg:           logg,
		inputBucket:    gcsCfg.InputBucket,
		outputBucket:   gcsCfg.OutputBucket,
		uploadTTL:      uploadTTL,
		maxUploadBytes: maxUploadBytes,
	}, nil
}

// PresignInput models the payload required to request an upload URL.
type PresignInput struct {
	FileName  string
	MimeType  string
	SizeBytes int64
	Public    bool
}

// PresignOutput contains the data returned after creating the asset record.
type PresignOutput struct {
	AssetID   uuid.UUID `json:"asset_id"`
	ContentID uuid.UUID `json:"uuid"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

var allowedMimePrefixes = []string{"video/", "audio/"}

func (s *service) PresignUpload(ctx context.Context, companyID uuid.UUID, input PresignInput) (*PresignOutput, error) {
	if companyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "company identity missing")
	}

	fileName := strings.TrimSpace(input.FileName)
	if fileName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file_name is required")
	}

	if input.SizeBytes <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "size_bytes must be positive")
	}
	if input.SizeBytes > s.maxUploadBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("size_bytes must be at most %d bytes", s.maxUploadBytes))
	}

	mimeType := strings.TrimSpace(input.MimeType)
	if mimeType == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "mime_type is required")
	}
	if !isAllowedMime(mimeType) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "mime_type must be an audio or video type")
	}

	contentID := uuid.New()
	asset := &models.MediaAsset{
		CompanyID:    companyID,
		ContentID:    contentID,
		FileName:     fileName,
		MimeType:     mimeType,
		SizeBytes:    input.SizeBytes,
		Status:       enums.MediaStatusCreate,
		Public:       input.Public,
		InputBucket:  s.inputBucket,
		OutputBucket: s.outputBucket,
	}

	if _, err := s.repo.Create(ctx, asset); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist media asset")
	}

	// The row above is intentionally kept when signing cannot proceed; the
	// asset stays at status create and is never picked up by the pipeline.
	if s.inputBucket == "" || s.signer == nil {
		s.logg.Warn(ctx, "media asset created without a configured storage backend")
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "storage backend not configured")
	}

	objectKey := asset.ObjectKey(fileExtension(fileName))
	signedURL, err := s.signer.SignedURL(s.inputBucket, objectKey, http.MethodPut, mimeType, s.uploadTTL)
	if err != nil {
		s.logg.Error(ctx, "signing upload url failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign upload url")
	}

	return &PresignOutput{
		AssetID:   asset.ID,
		ContentID: contentID,
		Name:      objectKey,
		URL:       signedURL,
		ExpiresAt: time.Now().Add(s.uploadTTL),
	}, nil
}

func (s *service) GetAsset(ctx context.Context, companyID, assetID uuid.UUID) (*models.MediaAsset, error) {
	if companyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "company identity missing")
	}
	if assetID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "asset id is required")
	}

	asset, err := s.repo.FindByID(ctx, assetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "media asset not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load media asset")
	}

	// Cross-tenant reads behave like missing rows.
	if asset.CompanyID != companyID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "media asset not found")
	}

	return asset, nil
}

func isAllowedMime(mimeType string) bool {
	for _, prefix := range allowedMimePrefixes {
		if strings.HasPrefix(strings.ToLower(mimeType), prefix) {
			return true
		}
	}
	return false
}

// fileExtension extracts a lowercased extension including the dot, or empty
// when the name carries none.
func fileExtension(name string) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.TrimSpace(name))))
	if ext == "." {
		return ""
	}
	return ext
}
