package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"mediafolders/internal/domain"
	models "mediafolders/internal/domain/models/explorer"
	"mediafolders/internal/httputil"
)

// handleError converts domain errors to HTTP responses
func handleError(w http.ResponseWriter, err error) {
	var conflictErr *domain.ConflictError

	switch {
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrTampered):
		httputil.RespondError(w, http.StatusBadRequest, "widget state is invalid or has been tampered with")
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		httputil.RespondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrInvalidMove):
		httputil.RespondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &conflictErr):
		extras := map[string]interface{}{"resource_type": conflictErr.ResourceType}
		if conflictErr.ResourceID != "" {
			extras["resource_id"] = conflictErr.ResourceID
		}
		httputil.RespondErrorWithExtras(w, http.StatusConflict, conflictErr.Error(), extras)
	default:
		slog.Error("unhandled error", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// folderParam reads an optional folder id from the query. The empty string and
// the root sentinel both select the root.
func folderParam(r *http.Request, key string) *string {
	return models.NormalizeFolderID(optionalQuery(r, key))
}

func optionalQuery(r *http.Request, key string) *string {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return nil
	}
	return &v
}

// orderParam parses the order query parameter; empty means the configured default.
func orderParam(r *http.Request) (models.OrderSpec, error) {
	order, err := models.ParseOrderSpec(r.URL.Query().Get("order"))
	if err != nil {
		return "", &domain.ValidationError{Message: err.Error()}
	}
	return order, nil
}

// bundlesParam accepts both repeated (?bundle=a&bundle=b) and comma separated (?bundles=a,b) forms.
func bundlesParam(r *http.Request) models.FilterSpec {
	q := r.URL.Query()
	bundles := append([]string(nil), q["bundle"]...)
	for _, raw := range q["bundles"] {
		bundles = append(bundles, strings.Split(raw, ",")...)
	}
	return models.NewFilterSpec(bundles...)
}

// cursorParam reads offset and limit; a zero limit means the configured page size.
func cursorParam(r *http.Request) (models.PageCursor, error) {
	offset, err := httputil.QueryInt(r, "offset", 0)
	if err != nil {
		return models.PageCursor{}, &domain.ValidationError{Message: err.Error()}
	}
	limit, err := httputil.QueryInt(r, "limit", 0)
	if err != nil {
		return models.PageCursor{}, &domain.ValidationError{Message: err.Error()}
	}
	return models.PageCursor{Offset: offset, Limit: limit}, nil
}
