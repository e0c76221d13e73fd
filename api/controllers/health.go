package controllers

import (
	"context"
	"net/http"

	"github.com/coursecast/coursecast-backend/api/responses"
	pkgerrors "github.com/coursecast/coursecast-backend/pkg/errors"
	"github.com/coursecast/coursecast-backend/pkg/logger"
)

// Pinger verifies that a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

// HealthReady reports whether the process can reach its dependencies.
// Nil entries are skipped so binaries only check what they actually use.
func HealthReady(logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
