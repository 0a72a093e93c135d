package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"deptdocs/internal/domain"
	models "deptdocs/internal/domain/models/docsystem"
	"deptdocs/internal/httputil"
)

// handleError converts domain errors to RFC 7807 responses.
// Conflict-like errors carry machine-readable fields next to the detail.
func handleError(w http.ResponseWriter, err error) {
	var (
		conflictErr   *domain.ConflictError
		transitionErr *domain.InvalidTransitionError
		authzErr      *domain.AuthorizationError
		storageErr    *domain.StorageError
	)

	switch {
	case errors.As(err, &conflictErr):
		httputil.RespondErrorWithExtras(w, http.StatusConflict, conflictErr.Error(), map[string]interface{}{
			"reason":        conflictErr.Reason,
			"resource_type": conflictErr.ResourceType,
			"resource_id":   conflictErr.ResourceID,
		})
	case errors.As(err, &transitionErr):
		httputil.RespondErrorWithExtras(w, http.StatusConflict, transitionErr.Error(), map[string]interface{}{
			"reason": "invalid_transition",
			"from":   transitionErr.From,
			"to":     transitionErr.To,
		})
	case errors.Is(err, domain.ErrImmutableState):
		httputil.RespondErrorWithExtras(w, http.StatusConflict, err.Error(), map[string]interface{}{"reason": "immutable"})
	case errors.Is(err, domain.ErrConcurrency):
		httputil.RespondErrorWithExtras(w, http.StatusConflict, err.Error(), map[string]interface{}{"reason": "concurrent_modification"})
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &authzErr):
		httputil.RespondErrorWithExtras(w, http.StatusForbidden, authzErr.Error(), map[string]interface{}{"operation": authzErr.Operation})
	case errors.Is(err, domain.ErrForbidden):
		httputil.RespondError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &storageErr):
		slog.Error("storage failure", "op", storageErr.Op, "path", storageErr.Path, "error", storageErr.Err)
		httputil.RespondError(w, http.StatusInternalServerError, "storage failure")
	default:
		slog.Error("unhandled error", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// badRequest reports a malformed request that never reached a service
func badRequest(w http.ResponseWriter, err error) {
	httputil.RespondError(w, http.StatusBadRequest, err.Error())
}

// principalOrAbort returns the authenticated principal, writing 401 when missing
func principalOrAbort(w http.ResponseWriter, r *http.Request) (*models.Principal, bool) {
	p := httputil.GetPrincipal(r)
	if p == nil {
		httputil.RespondError(w, http.StatusUnauthorized, "authentication required")
		return nil, false
	}
	return p, true
}
