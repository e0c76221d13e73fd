package transcode

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coursecast/coursecast-backend/pkg/config"
	"github.com/coursecast/coursecast-backend/pkg/db/models"
	"github.com/coursecast/coursecast-backend/pkg/encoding"
	"github.com/coursecast/coursecast-backend/pkg/enums"
	pkgerrors "github.com/coursecast/coursecast-backend/pkg/errors"
	"github.com/coursecast/coursecast-backend/pkg/logger"
	"github.com/coursecast/coursecast-backend/pkg/metrics"
)

type assetRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.MediaAsset, error)
	FinalizeReady(ctx context.Context, id uuid.UUID, manifestPath string, thumbnailPath *string) (int64, error)
}

// Result is the outcome of one successful pipeline run.
type Result struct {
	ManifestPath  string
	ThumbnailPath *string
}

// Pipeline orchestrates one asset's path from uploaded to ready: build the
// encoding job, assemble the manifest, await both to finish, extract
// thumbnails, then finalize. The first fatal error stops the run and leaves
// the asset at uploaded; provider-side resources are never rolled back.
type Pipeline struct {
	provider  encodingProvider
	assets    assetRepository
	builder   *Builder
	assembler *Assembler
	monitor   *Monitor
	extractor *Extractor
	finalizer *Finalizer
	metrics   *metrics.PipelineMetrics
	logg      *logger.Logger
	now       func() time.Time
}

// NewPipeline wires the pipeline stages from configuration.
func NewPipeline(
	provider encodingProvider,
	assets assetRepository,
	encodingCfg config.EncodingConfig,
	transcodeCfg config.TranscodeConfig,
	pipelineMetrics *metrics.PipelineMetrics,
	logg *logger.Logger,
) (*Pipeline, error) {
	if provider == nil {
		return nil, fmt.Errorf("encoding provider required")
	}
	if assets == nil {
		return nil, fmt.Errorf("asset repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}

	builder, err := NewBuilder(provider, encodingCfg, transcodeCfg, logg)
	if err != nil {
		return nil, err
	}
	assembler, err := NewAssembler(provider, logg)
	if err != nil {
		return nil, err
	}
	monitor, err := NewMonitor(transcodeCfg, pipelineMetrics, logg)
	if err != nil {
		return nil, err
	}
	extractor, err := NewExtractor(provider, transcodeCfg, logg)
	if err != nil {
		return nil, err
	}
	finalizer, err := NewFinalizer(assets, logg)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		provider:  provider,
		assets:    assets,
		builder:   builder,
		assembler: assembler,
		monitor:   monitor,
		extractor: extractor,
		finalizer: finalizer,
		metrics:   pipelineMetrics,
		logg:      logg,
		now:       time.Now,
	}, nil
}

// Run executes the full pipeline for one uploaded asset and returns the
// output paths on success.
func (p *Pipeline) Run(ctx context.Context, companyID, assetID uuid.UUID, ext string) (*Result, error) {
	ctx = p.logg.WithFields(ctx, map[string]any{
		"company_id": companyID.String(),
		"asset_id":   assetID.String(),
	})

	asset, err := p.assets.FindByID(ctx, assetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "media asset not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load media asset")
	}
	if asset.CompanyID != companyID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "media asset not found")
	}
	if asset.Status != enums.MediaStatusUploaded {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("asset status is %s, expected uploaded", asset.Status))
	}

	objectKey := asset.ObjectKey(ext)
	basePath := p.now().UTC().Format("2006-01-02") + "/"

	started := time.Now()
	build, err := p.builder.Build(ctx, objectKey, basePath)
	p.metrics.ObserveStage("build", time.Since(started))
	if err != nil {
		return nil, p.fail(ctx, "build", err)
	}

	started = time.Now()
	manifest, err := p.assembler.Assemble(ctx, build, basePath)
	p.metrics.ObserveStage("manifest_assemble", time.Since(started))
	if err != nil {
		return nil, p.fail(ctx, "manifest_assemble", err)
	}

	started = time.Now()
	err = p.monitor.Await(ctx, "job",
		func(ctx context.Context) error { return p.provider.StartJob(ctx, build.job.ID) },
		func(ctx context.Context) (*encoding.StatusResult, error) { return p.provider.JobStatus(ctx, build.job.ID) },
	)
	p.metrics.ObserveStage("encode", time.Since(started))
	if err != nil {
		return nil, p.fail(ctx, "encode", err)
	}

	started = time.Now()
	err = p.monitor.Await(ctx, "manifest",
		func(ctx context.Context) error { return p.provider.StartManifest(ctx, manifest.ID) },
		func(ctx context.Context) (*encoding.StatusResult, error) {
			return p.provider.ManifestStatus(ctx, manifest.ID)
		},
	)
	p.metrics.ObserveStage("manifest_generate", time.Since(started))
	if err != nil {
		return nil, p.fail(ctx, "manifest_generate", err)
	}

	started = time.Now()
	thumbnailPath, err := p.extractor.Extract(ctx, build, basePath)
	p.metrics.ObserveStage("thumbnails", time.Since(started))
	if err != nil {
		return nil, p.fail(ctx, "thumbnails", err)
	}

	manifestPath := basePath + manifestFileName
	started = time.Now()
	err = p.finalizer.Publish(ctx, asset.ID, manifestPath, thumbnailPath)
	p.metrics.ObserveStage("finalize", time.Since(started))
	if err != nil {
		return nil, p.fail(ctx, "finalize", err)
	}

	p.logg.Info(p.logg.WithField(ctx, "manifest_path", manifestPath), "pipeline run completed")

	return &Result{
		ManifestPath:  manifestPath,
		ThumbnailPath: thumbnailPath,
	}, nil
}

func (p *Pipeline) fail(ctx context.Context, stage string, err error) error {
	p.logg.Error(ctx, fmt.Sprintf("pipeline stage %s failed", stage), err)
	return err
}
