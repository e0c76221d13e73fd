package transcode

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/coursecast/coursecast-backend/pkg/encoding"
	pkgerrors "github.com/coursecast/coursecast-backend/pkg/errors"
	"github.com/coursecast/coursecast-backend/pkg/logger"
)

const (
	manifestFileName = "manifest.m3u8"
	audioGroupID     = "audio_group"
	audioMediaURI    = "videomedia.m3u8"
	audioMediaName   = "audio"
	audioLanguage    = "en"
	aclPublicRead    = "PUBLIC_READ"
)

// Assembler builds the HLS manifest referencing the muxings a builder pass
// produced. Audio renditions register fully before any video rendition, since
// each video entry's audio-group reference depends on whether audio exists.
type Assembler struct {
	provider encodingProvider
	logg     *logger.Logger
}

// NewAssembler constructs a manifest assembler.
func NewAssembler(provider encodingProvider, logg *logger.Logger) (*Assembler, error) {
	if provider == nil {
		return nil, fmt.Errorf("encoding provider required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Assembler{provider: provider, logg: logg}, nil
}

// Assemble creates the manifest resource with public-read access and
// registers every rendition on it.
func (a *Assembler) Assemble(ctx context.Context, build *buildResult, basePath string) (*encoding.Manifest, error) {
	if build == nil || build.job == nil || build.output == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "incomplete build result")
	}

	manifest, err := a.provider.CreateManifest(ctx, encoding.ManifestSpec{
		Name:         build.job.Name,
		ManifestName: manifestFileName,
		Outputs: []encoding.EncodingOutput{{
			OutputID:   build.output.ID,
			OutputPath: basePath,
			ACL:        []encoding.ACLEntry{{Permission: aclPublicRead}},
		}},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create manifest")
	}

	audio := build.audio()
	ag, actx := errgroup.WithContext(ctx)
	for _, r := range audio {
		ag.Go(func() error {
			return a.provider.AddAudioMedia(actx, manifest.ID, encoding.AudioMediaSpec{
				GroupID:     audioGroupID,
				Name:        audioMediaName,
				URI:         audioMediaURI,
				SegmentPath: relativePrefix(r.pathPrefix, basePath),
				Language:    audioLanguage,
				EncodingID:  build.job.ID,
				StreamID:    r.stream.ID,
				MuxingID:    r.muxing.ID,
			})
		})
	}
	if err := ag.Wait(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "register audio renditions")
	}

	// Empty group reference when the encode carries no audio track.
	audioGroup := ""
	if len(audio) > 0 {
		audioGroup = audioGroupID
	}

	vg, vctx := errgroup.WithContext(ctx)
	for _, r := range build.video() {
		vg.Go(func() error {
			return a.provider.AddVariantStream(vctx, manifest.ID, encoding.VariantStreamSpec{
				Audio:       audioGroup,
				URI:         fmt.Sprintf("video_%s.m3u8", r.qualitySegment()),
				SegmentPath: relativePrefix(r.pathPrefix, basePath),
				EncodingID:  build.job.ID,
				StreamID:    r.stream.ID,
				MuxingID:    r.muxing.ID,
			})
		})
	}
	if err := vg.Wait(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "register video renditions")
	}

	a.logg.Info(a.logg.WithField(ctx, "manifest_id", manifest.ID), "manifest assembled")

	return manifest, nil
}

// relativePrefix strips the manifest base path so segment paths resolve
// relative to the playlist location.
func relativePrefix(prefix, basePath string) string {
	return strings.TrimPrefix(prefix, basePath)
}
