package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/coursecast/coursecast-backend/api/middleware"
	"github.com/coursecast/coursecast-backend/api/responses"
	"github.com/coursecast/coursecast-backend/api/validators"
	"github.com/coursecast/coursecast-backend/internal/media"
	pkgerrors "github.com/coursecast/coursecast-backend/pkg/errors"
	"github.com/coursecast/coursecast-backend/pkg/logger"
)

type presignRequest struct {
	FileName  string `json:"file_name" validate:"required,max=512"`
	MimeType  string `json:"mime_type" validate:"required,max=128"`
	SizeBytes int64  `json:"size_bytes" validate:"required,min=1"`
	Public    bool   `json:"public"`
}

// MediaPresign creates the asset record and hands back a signed upload URL.
func MediaPresign(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		companyID, err := uuid.Parse(middleware.CompanyIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing company scope"))
			return
		}

		var req presignRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		out, err := svc.PresignUpload(ctx, companyID, media.PresignInput{
			FileName:  req.FileName,
			MimeType:  req.MimeType,
			SizeBytes: req.SizeBytes,
			Public:    req.Public,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, out)
	}
}

// MediaGet returns a single asset scoped to the caller's company.
func MediaGet(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		companyID, err := uuid.Parse(middleware.CompanyIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing company scope"))
			return
		}

		assetID, err := uuid.Parse(chi.URLParam(r, "mediaId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid media id"))
			return
		}

		asset, err := svc.GetAsset(ctx, companyID, assetID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, asset)
	}
}
