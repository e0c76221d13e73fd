package consumer

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/coursecast/coursecast-backend/internal/transcode"
	"github.com/coursecast/coursecast-backend/pkg/db/models"
	"github.com/coursecast/coursecast-backend/pkg/enums"
	"github.com/coursecast/coursecast-backend/pkg/logger"
)

type stubRepo struct {
	asset         *models.MediaAsset
	markCalls     int
	markRows      int64
	markErr       error
	uploadedAfter bool
}

func (s *stubRepo) FindByContentID(_ context.Context, contentID uuid.UUID) (*models.MediaAsset, error) {
	if s.asset == nil || s.asset.ContentID != contentID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.asset, nil
}

func (s *stubRepo) MarkUploaded(_ context.Context, _ uuid.UUID) (int64, error) {
	s.markCalls++
	if s.markErr != nil {
		return 0, s.markErr
	}
	if s.uploadedAfter {
		s.asset.Status = enums.MediaStatusUploaded
	}
	return s.markRows, nil
}

type stubPipeline struct {
	runs    int
	err     error
	lastExt string
}

func (s *stubPipeline) Run(_ context.Context, _, _ uuid.UUID, ext string) (*transcode.Result, error) {
	s.runs++
	s.lastExt = ext
	if s.err != nil {
		return nil, s.err
	}
	return &transcode.Result{ManifestPath: "2026-03-01/manifest.m3u8"}, nil
}

type stubLockStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newStubLockStore() *stubLockStore {
	return &stubLockStore{values: map[string]string{}}
}

func (s *stubLockStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.values[key]; exists {
		return false, nil
	}
	s.values[key] = value.(string)
	return true, nil
}

func (s *stubLockStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, exists := s.values[key]
	if !exists {
		return "", goredis.Nil
	}
	return value, nil
}

func (s *stubLockStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

func (s *stubLockStore) PipelineLockKey(assetID string) string {
	return "cc:pipeline:lock:" + assetID
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newTestConsumer(repo *stubRepo, pipeline *stubPipeline, locks *stubLockStore) *Consumer {
	return &Consumer{
		repo:     repo,
		pipeline: pipeline,
		locks:    locks,
		lockTTL:  time.Hour,
		logg:     testLogger(),
	}
}

func finalizeMessage(objectID string) *pubsub.Message {
	return &pubsub.Message{
		ID: "msg-1",
		Attributes: map[string]string{
			"eventType":     objectFinalizeEvent,
			"bucketId":      "uploads",
			"objectId":      objectID,
			"payloadFormat": payloadFormatJSONAPI,
		},
	}
}

func pendingAsset() *models.MediaAsset {
	return &models.MediaAsset{
		ID:        uuid.New(),
		CompanyID: uuid.New(),
		ContentID: uuid.New(),
		Status:    enums.MediaStatusCreate,
	}
}

func TestProcessRunsPipelineOnFinalize(t *testing.T) {
	t.Parallel()

	asset := pendingAsset()
	repo := &stubRepo{asset: asset, markRows: 1, uploadedAfter: true}
	pipeline := &stubPipeline{}
	locks := newStubLockStore()
	c := newTestConsumer(repo, pipeline, locks)

	result := c.process(context.Background(), finalizeMessage(asset.ContentID.String()+".mp4"))
	if !result.ack || result.nack {
		t.Fatalf("expected ack, got %+v", result)
	}
	if repo.markCalls != 1 {
		t.Fatalf("expected the asset to be marked uploaded, got %d calls", repo.markCalls)
	}
	if pipeline.runs != 1 {
		t.Fatalf("expected 1 pipeline run, got %d", pipeline.runs)
	}
	if pipeline.lastExt != ".mp4" {
		t.Fatalf("expected extension .mp4, got %q", pipeline.lastExt)
	}

	// The run lock must be released after the pipeline completes.
	locks.mu.Lock()
	held := len(locks.values)
	locks.mu.Unlock()
	if held != 0 {
		t.Fatalf("expected the run lock to be released, %d keys held", held)
	}
}

func TestProcessIgnoresNonFinalizeEvents(t *testing.T) {
	t.Parallel()

	pipeline := &stubPipeline{}
	c := newTestConsumer(&stubRepo{}, pipeline, newStubLockStore())

	msg := finalizeMessage("ignored")
	msg.Attributes["eventType"] = "OBJECT_DELETE"

	result := c.process(context.Background(), msg)
	if !result.ack {
		t.Fatalf("expected ack, got %+v", result)
	}
	if pipeline.runs != 0 {
		t.Fatalf("expected no pipeline runs, got %d", pipeline.runs)
	}
}

func TestProcessAcksUnknownObjectKeys(t *testing.T) {
	t.Parallel()

	pipeline := &stubPipeline{}
	c := newTestConsumer(&stubRepo{}, pipeline, newStubLockStore())

	result := c.process(context.Background(), finalizeMessage("not-a-uuid.mp4"))
	if !result.ack {
		t.Fatalf("expected ack for an unparseable key, got %+v", result)
	}

	result = c.process(context.Background(), finalizeMessage(uuid.NewString()+".mp4"))
	if !result.ack {
		t.Fatalf("expected ack for a missing asset row, got %+v", result)
	}
	if pipeline.runs != 0 {
		t.Fatalf("expected no pipeline runs, got %d", pipeline.runs)
	}
}

func TestProcessSkipsWhenLockHeld(t *testing.T) {
	t.Parallel()

	asset := pendingAsset()
	asset.Status = enums.MediaStatusUploaded
	repo := &stubRepo{asset: asset}
	pipeline := &stubPipeline{}
	locks := newStubLockStore()
	locks.values[locks.PipelineLockKey(asset.ID.String())] = "other-worker"
	c := newTestConsumer(repo, pipeline, locks)

	result := c.process(context.Background(), finalizeMessage(asset.ContentID.String()+".mp4"))
	if !result.ack {
		t.Fatalf("expected ack while another run holds the lock, got %+v", result)
	}
	if pipeline.runs != 0 {
		t.Fatalf("expected no pipeline runs, got %d", pipeline.runs)
	}
}

func TestProcessAcksPipelineFailure(t *testing.T) {
	t.Parallel()

	asset := pendingAsset()
	repo := &stubRepo{asset: asset, markRows: 1, uploadedAfter: true}
	pipeline := &stubPipeline{err: errors.New("provider exploded")}
	locks := newStubLockStore()
	c := newTestConsumer(repo, pipeline, locks)

	result := c.process(context.Background(), finalizeMessage(asset.ContentID.String()+".mp4"))
	if !result.ack || result.nack {
		t.Fatalf("failed runs are not retried via redelivery, got %+v", result)
	}
	if pipeline.runs != 1 {
		t.Fatalf("expected 1 pipeline attempt, got %d", pipeline.runs)
	}
}

func TestProcessAcksAlreadyPublishedAssets(t *testing.T) {
	t.Parallel()

	asset := pendingAsset()
	asset.Status = enums.MediaStatusReady
	repo := &stubRepo{asset: asset}
	pipeline := &stubPipeline{}
	c := newTestConsumer(repo, pipeline, newStubLockStore())

	result := c.process(context.Background(), finalizeMessage(asset.ContentID.String()+".mp4"))
	if !result.ack {
		t.Fatalf("expected ack, got %+v", result)
	}
	if repo.markCalls != 0 || pipeline.runs != 0 {
		t.Fatalf("expected no transition or run for a published asset, got %d/%d", repo.markCalls, pipeline.runs)
	}
}
