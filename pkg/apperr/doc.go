// Package apperr defines the error taxonomy shared by every service layer.
//
// Handlers map each kind to an HTTP status, so lower layers never import
// net/http to signal outcomes. Soft-deleted entities are always reported as
// not-found, never forbidden, so callers cannot probe deletion status.
package apperr
