package consumer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coursecast/coursecast-backend/internal/transcode"
	"github.com/coursecast/coursecast-backend/pkg/db/models"
	"github.com/coursecast/coursecast-backend/pkg/enums"
	"github.com/coursecast/coursecast-backend/pkg/logger"
	"github.com/coursecast/coursecast-backend/pkg/metrics"
)

const (
	objectFinalizeEvent  = "OBJECT_FINALIZE"
	payloadFormatJSONAPI = "JSON_API_V1"
	triggerLabel         = "pubsub"
)

type repository interface {
	FindByContentID(ctx context.Context, contentID uuid.UUID) (*models.MediaAsset, error)
	MarkUploaded(ctx context.Context, id uuid.UUID) (int64, error)
}

type pipelineRunner interface {
	Run(ctx context.Context, companyID, assetID uuid.UUID, ext string) (*transcode.Result, error)
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	PipelineLockKey(assetID string) string
}

// Consumer turns storage OBJECT_FINALIZE notifications into transcode
// pipeline runs: the upload completing is the status-change trigger that
// flips the asset to uploaded and starts the pipeline.
type Consumer struct {
	repo         repository
	pipeline     pipelineRunner
	locks        lockStore
	lockTTL      time.Duration
	subscription *pubsub.Subscriber
	metrics      *metrics.PipelineMetrics
	logg         *logger.Logger
}

// NewConsumer constructs a consumer that watches the provided subscription.
func NewConsumer(
	repo repository,
	pipeline pipelineRunner,
	locks lockStore,
	lockTTL time.Duration,
	subscription *pubsub.Subscriber,
	pipelineMetrics *metrics.PipelineMetrics,
	logg *logger.Logger,
) (*Consumer, error) {
	if repo == nil {
		return nil, errors.New("asset repository is required")
	}
	if pipeline == nil {
		return nil, errors.New("pipeline is required")
	}
	if locks == nil {
		return nil, errors.New("lock store is required")
	}
	if subscription == nil {
		return nil, errors.New("upload subscription is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Consumer{
		repo:         repo,
		pipeline:     pipeline,
		locks:        locks,
		lockTTL:      lockTTL,
		subscription: subscription,
		metrics:      pipelineMetrics,
		logg:         logg,
	}, nil
}

// Run processes messages until the context is canceled or the subscription errors.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	attrs := parseAttributes(msg.Attributes)
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": attrs.EventType,
		"bucket":     attrs.BucketID,
	})

	if attrs.EventType != objectFinalizeEvent {
		c.logg.Info(logCtx, "skipping non-finalize event")
		return processResult{ack: true}
	}
	if attrs.PayloadFormat != "" && attrs.PayloadFormat != payloadFormatJSONAPI {
		c.logg.Warn(logCtx, "unsupported payload format")
		return processResult{ack: true}
	}

	objectName := attrs.ObjectID
	if objectName == "" {
		payload, err := decodePayload(msg.Data)
		if err != nil {
			c.logg.Error(logCtx, "failed to decode payload", err)
			return processResult{ack: true}
		}
		var gcs gcsPayload
		if err := json.Unmarshal(payload, &gcs); err != nil {
			c.logg.Error(logCtx, "failed to unmarshal payload", err)
			return processResult{ack: true}
		}
		objectName = gcs.Name
	}
	if strings.TrimSpace(objectName) == "" {
		c.logg.Error(logCtx, "notification missing object name", fmt.Errorf("empty name"))
		return processResult{ack: true}
	}

	contentID, ext, err := splitObjectKey(objectName)
	if err != nil {
		c.logg.Warn(c.logg.WithField(logCtx, "object", objectName), "object key is not a media content key")
		return processResult{ack: true}
	}

	asset, err := c.repo.FindByContentID(logCtx, contentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.logg.Warn(c.logg.WithField(logCtx, "content_id", contentID.String()), "no asset row for uploaded object")
			return processResult{ack: true}
		}
		return c.handleDBError(logCtx, err)
	}

	logCtx = c.logg.WithAssetID(logCtx, asset.ID.String())

	switch asset.Status {
	case enums.MediaStatusReady:
		c.logg.Info(logCtx, "asset already published")
		return processResult{ack: true}
	case enums.MediaStatusCreate:
		rows, err := c.repo.MarkUploaded(logCtx, asset.ID)
		if err != nil {
			return c.handleDBError(logCtx, err)
		}
		if rows == 0 {
			// Another consumer won the transition and runs the pipeline.
			c.logg.Info(logCtx, "asset transition raced, skipping")
			return processResult{ack: true}
		}
		c.logg.Info(logCtx, "asset marked as uploaded")
	case enums.MediaStatusUploaded:
		// Redelivery after a failed or interrupted run; try again.
		c.logg.Info(logCtx, "asset already uploaded, retrying pipeline")
	}

	lock, err := transcode.NewRunLock(c.locks, c.locks.PipelineLockKey(asset.ID.String()), c.lockTTL)
	if err != nil {
		c.logg.Error(logCtx, "building run lock failed", err)
		return processResult{ack: true}
	}
	acquired, err := lock.Acquire(logCtx)
	if err != nil {
		c.logg.Error(logCtx, "acquiring run lock failed", err)
		return processResult{nack: true}
	}
	if !acquired {
		c.logg.Info(logCtx, "pipeline already running for asset")
		return processResult{ack: true}
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(logCtx)); err != nil {
			c.logg.Warn(logCtx, "releasing run lock failed")
		}
	}()

	result, err := c.pipeline.Run(logCtx, asset.CompanyID, asset.ID, ext)
	if err != nil {
		// No automatic retry: the asset stays at uploaded and the failure
		// surfaces on the operator dashboard via the failure counter.
		c.metrics.IncFailure(triggerLabel)
		c.logg.Error(logCtx, "transcode pipeline failed", err)
		return processResult{ack: true}
	}

	c.metrics.IncSuccess(triggerLabel)
	c.logg.Info(c.logg.WithField(logCtx, "manifest_path", result.ManifestPath), "transcode pipeline completed")
	return processResult{ack: true}
}

func (c *Consumer) handleDBError(ctx context.Context, err error) processResult {
	c.logg.Error(ctx, "asset persistence error", err)
	if isTransientDBError(err) {
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

// splitObjectKey parses "<content-uuid><ext>" storage keys.
func splitObjectKey(name string) (uuid.UUID, string, error) {
	base := path.Base(strings.TrimSpace(name))
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	contentID, err := uuid.Parse(stem)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("parse content id from %q: %w", name, err)
	}
	return contentID, ext, nil
}

func parseAttributes(attrs map[string]string) gcsAttributes {
	return gcsAttributes{
		EventType:     attrs["eventType"],
		BucketID:      attrs["bucketId"],
		ObjectID:      attrs["objectId"],
		PayloadFormat: attrs["payloadFormat"],
	}
}

type gcsAttributes struct {
	EventType     string
	BucketID      string
	ObjectID      string
	PayloadFormat string
}

type gcsPayload struct {
	Name        string `json:"name"`
	Bucket      string `json:"bucket"`
	Generation  string `json:"generation"`
	ContentType string `json:"contentType"`
	Size        string `json:"size"`
}

func decodePayload(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("payload empty")
	}
	if decoded, err := base64.StdEncoding.DecodeString(string(data)); err == nil {
		return decoded, nil
	}
	return data, nil
}

func isTransientDBError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
