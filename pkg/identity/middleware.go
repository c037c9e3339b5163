package identity

import (
	"net/http"
	"strconv"

	"github.com/platinummonkey/hubcap/pkg/observability"
)

const (
	// HeaderUserID carries the authenticated user id set by the gateway
	HeaderUserID = "X-User-ID"
	// HeaderUserRoles carries the comma-separated role grants
	HeaderUserRoles = "X-User-Roles"
)

// Middleware extracts the caller identity from gateway headers and places it
// on the request context. Requests without credentials stay anonymous.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := Identity{
			UserID: ParseUserID(r.Header.Get(HeaderUserID)),
			Roles:  ParseRoles(r.Header.Get(HeaderUserRoles)),
		}

		// Role grants without an authenticated user are meaningless.
		if id.UserID == 0 {
			id.Roles = nil
		}

		ctx := WithIdentity(r.Context(), id)
		if id.UserID != 0 {
			ctx = observability.WithUserID(ctx, strconv.FormatInt(id.UserID, 10))
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
