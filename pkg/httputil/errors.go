package httputil

import (
	"net/http"

	"github.com/platinummonkey/hubcap/pkg/apperr"
	"github.com/platinummonkey/hubcap/pkg/observability"
)

// StatusForKind maps an error kind to its HTTP status code
func StatusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindDependency:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteAppError maps a domain error to its HTTP status and writes it.
// Unclassified and fatal errors are logged loudly and hidden behind a
// generic 500 so internals never leak to clients.
func WriteAppError(w http.ResponseWriter, logger *observability.Logger, err error) {
	kind := apperr.KindOf(err)
	status := StatusForKind(kind)

	switch kind {
	case apperr.KindFatal:
		logger.WithError(err).Error("invariant violation")
	case apperr.KindDependency:
		logger.WithError(err).Warn("dependency failure")
	case 0:
		logger.WithError(err).Error("unclassified error")
	}

	if status == http.StatusInternalServerError {
		WriteErrorMessage(w, status, "internal server error")
		return
	}
	WriteErrorMessage(w, status, err.Error())
}
