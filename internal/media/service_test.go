package media

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coursecast/coursecast-backend/pkg/config"
	"github.com/coursecast/coursecast-backend/pkg/db/models"
	"github.com/coursecast/coursecast-backend/pkg/enums"
	pkgerrors "github.com/coursecast/coursecast-backend/pkg/errors"
	"github.com/coursecast/coursecast-backend/pkg/logger"
)

type stubRepo struct {
	createFn   func(ctx context.Context, asset *models.MediaAsset) (*models.MediaAsset, error)
	findByIDFn func(ctx context.Context, id uuid.UUID) (*models.MediaAsset, error)
}

func (s *stubRepo) Create(ctx context.Context, asset *models.MediaAsset) (*models.MediaAsset, error) {
	if s.createFn == nil {
		return asset, nil
	}
	return s.createFn(ctx, asset)
}

func (s *stubRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.MediaAsset, error) {
	if s.findByIDFn == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.findByIDFn(ctx, id)
}

type stubSigner struct {
	signFn func(bucket, object, method, contentType string, expires time.Duration) (string, error)
}

func (s *stubSigner) SignedURL(bucket, object, method, contentType string, expires time.Duration) (string, error) {
	if s.signFn == nil {
		return "https://storage.example/" + bucket + "/" + object, nil
	}
	return s.signFn(bucket, object, method, contentType, expires)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func testGCSConfig() config.GCSConfig {
	return config.GCSConfig{
		InputBucket:     "uploads",
		OutputBucket:    "streams",
		UploadURLExpiry: time.Hour,
	}
}

func validInput() PresignInput {
	return PresignInput{
		FileName:  "lecture-01.mp4",
		MimeType:  "video/mp4",
		SizeBytes: 50 * 1024 * 1024,
	}
}

func TestPresignUploadSuccess(t *testing.T) {
	t.Parallel()

	var created *models.MediaAsset
	repo := &stubRepo{
		createFn: func(_ context.Context, asset *models.MediaAsset) (*models.MediaAsset, error) {
			asset.ID = uuid.New()
			created = asset
			return asset, nil
		},
	}

	svc, err := NewService(repo, &stubSigner{}, testGCSConfig(), config.MediaConfig{MaxUploadMB: 2048}, testLogger())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	companyID := uuid.New()
	out, err := svc.PresignUpload(context.Background(), companyID, validInput())
	if err != nil {
		t.Fatalf("PresignUpload: %v", err)
	}

	if created == nil {
		t.Fatal("expected asset row to be created")
	}
	if created.Status != enums.MediaStatusCreate {
		t.Fatalf("expected status create, got %s", created.Status)
	}
	if created.CompanyID != companyID {
		t.Fatalf("expected company %s, got %s", companyID, created.CompanyID)
	}
	if created.InputBucket != "uploads" || created.OutputBucket != "streams" {
		t.Fatalf("unexpected bucket refs: %s / %s", created.InputBucket, created.OutputBucket)
	}

	wantKey := created.ContentID.String() + ".mp4"
	if out.Name != wantKey {
		t.Fatalf("expected object key %q, got %q", wantKey, out.Name)
	}
	if out.ContentID != created.ContentID {
		t.Fatalf("expected content id %s, got %s", created.ContentID, out.ContentID)
	}
	if out.URL == "" {
		t.Fatal("expected a signed url")
	}
}

func TestPresignUploadValidation(t *testing.T) {
	t.Parallel()

	svc, err := NewService(&stubRepo{}, &stubSigner{}, testGCSConfig(), config.MediaConfig{MaxUploadMB: 1}, testLogger())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	cases := []struct {
		name    string
		company uuid.UUID
		mutate  func(*PresignInput)
	}{
		{name: "missing company", company: uuid.Nil, mutate: func(*PresignInput) {}},
		{name: "missing file name", company: uuid.New(), mutate: func(in *PresignInput) { in.FileName = "  " }},
		{name: "zero size", company: uuid.New(), mutate: func(in *PresignInput) { in.SizeBytes = 0 }},
		{name: "oversized", company: uuid.New(), mutate: func(in *PresignInput) { in.SizeBytes = 10 * 1024 * 1024 }},
		{name: "missing mime", company: uuid.New(), mutate: func(in *PresignInput) { in.MimeType = "" }},
		{name: "non media mime", company: uuid.New(), mutate: func(in *PresignInput) { in.MimeType = "application/pdf" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validInput()
			tc.mutate(&input)

			_, err := svc.PresignUpload(context.Background(), tc.company, input)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestPresignUploadStorageNotConfigured(t *testing.T) {
	t.Parallel()

	createCalls := 0
	repo := &stubRepo{
		createFn: func(_ context.Context, asset *models.MediaAsset) (*models.MediaAsset, error) {
			createCalls++
			return asset, nil
		},
	}

	cfg := testGCSConfig()
	cfg.InputBucket = ""

	svc, err := NewService(repo, &stubSigner{}, cfg, config.MediaConfig{MaxUploadMB: 2048}, testLogger())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	_, err = svc.PresignUpload(context.Background(), uuid.New(), validInput())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state-conflict error, got %v", err)
	}
	if createCalls != 1 {
		t.Fatalf("expected the asset row to be written before the failure, got %d creates", createCalls)
	}
}

func TestPresignUploadSignerFailure(t *testing.T) {
	t.Parallel()

	repo := &stubRepo{}
	signer := &stubSigner{
		signFn: func(string, string, string, string, time.Duration) (string, error) {
			return "", errors.New("boom")
		},
	}

	svc, err := NewService(repo, signer, testGCSConfig(), config.MediaConfig{MaxUploadMB: 2048}, testLogger())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	_, err = svc.PresignUpload(context.Background(), uuid.New(), validInput())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestGetAsset(t *testing.T) {
	t.Parallel()

	companyID := uuid.New()
	assetID := uuid.New()
	stored := &models.MediaAsset{ID: assetID, CompanyID: companyID, Status: enums.MediaStatusReady}

	repo := &stubRepo{
		findByIDFn: func(_ context.Context, id uuid.UUID) (*models.MediaAsset, error) {
			if id == assetID {
				return stored, nil
			}
			return nil, gorm.ErrRecordNotFound
		},
	}

	svc, err := NewService(repo, &stubSigner{}, testGCSConfig(), config.MediaConfig{MaxUploadMB: 2048}, testLogger())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	asset, err := svc.GetAsset(context.Background(), companyID, assetID)
	if err != nil {
		t.Fatalf("GetAsset: %v", err)
	}
	if asset.ID != assetID {
		t.Fatalf("expected asset %s, got %s", assetID, asset.ID)
	}

	if _, err := svc.GetAsset(context.Background(), companyID, uuid.New()); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not-found for unknown id, got %v", err)
	}

	if _, err := svc.GetAsset(context.Background(), uuid.New(), assetID); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not-found for foreign company, got %v", err)
	}
}
