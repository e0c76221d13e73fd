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
	"github.com/coursecast/coursecast-backend/pkg/metrics"
)

const defaultPollInterval = 10 * time.Second

// Monitor drives a provider resource from start through a terminal status by
// polling on a constant interval. Context cancellation is honored between
// polls, and the optional max-duration guard bounds otherwise-stuck jobs.
type Monitor struct {
	interval    time.Duration
	maxDuration time.Duration
	metrics     *metrics.PipelineMetrics
	logg        *logger.Logger

	// newBackoff is the poll schedule seam; tests swap in a zero-delay backoff.
	newBackoff func() retry.Backoff
}

// NewMonitor constructs a monitor with the configured poll cadence.
func NewMonitor(cfg config.TranscodeConfig, pipelineMetrics *metrics.PipelineMetrics, logg *logger.Logger) (*Monitor, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}

	interval := cfg.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	m := &Monitor{
		interval:    interval,
		maxDuration: cfg.MaxPollDuration,
		metrics:     pipelineMetrics,
		logg:        logg,
	}
	m.newBackoff = m.defaultBackoff
	return m, nil
}

func (m *Monitor) defaultBackoff() retry.Backoff {
	backoff := retry.NewConstant(m.interval)
	if m.maxDuration > 0 {
		backoff = retry.WithMaxDuration(m.maxDuration, backoff)
	}
	return backoff
}

// Await starts the resource and polls its status until FINISHED or ERROR. A
// FINISHED observation resolves; ERROR rejects with the reported status as
// the reason; any other status keeps polling.
func (m *Monitor) Await(
	ctx context.Context,
	resource string,
	start func(context.Context) error,
	poll func(context.Context) (*encoding.StatusResult, error),
) error {
	if err := start(ctx); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("start %s", resource))
	}

	logCtx := m.logg.WithField(ctx, "resource", resource)
	m.logg.Info(logCtx, "awaiting terminal status")

	err := retry.Do(ctx, m.newBackoff(), func(ctx context.Context) error {
		m.metrics.IncPoll(resource)

		result, err := poll(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("poll %s status", resource))
		}

		switch result.Status {
		case encoding.StatusFinished:
			return nil
		case encoding.StatusError:
			return pkgerrors.New(pkgerrors.CodeDependency, string(result.Status))
		default:
			return retry.RetryableError(fmt.Errorf("%s status %s", resource, result.Status))
		}
	})
	if err != nil {
		return err
	}

	m.logg.Info(logCtx, "resource finished")
	return nil
}
