// Package httputil provides HTTP utilities for standardized request/response
// handling.
//
// Handlers return domain errors from pkg/apperr; WriteAppError maps each kind
// to its HTTP status (not-found 404, forbidden 403, conflict 409, validation
// 400, dependency failure 503, anything else 500) so the mapping lives in one
// place:
//
//	if err := svc.Publish(ctx, id, caller, msg); err != nil {
//		httputil.WriteAppError(w, logger, err)
//		return
//	}
//
// The package also carries JSON helpers, path/query parameter parsing for
// gorilla/mux routes, and the request middleware chain (request id, logging,
// panic recovery, body size limits).
package httputil
