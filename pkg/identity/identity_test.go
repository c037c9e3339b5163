package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAnonymous(t *testing.T) {
	assert.True(t, Anonymous.IsAnonymous())
	assert.False(t, Identity{UserID: 7}.IsAnonymous())
}

func TestRoleChecks(t *testing.T) {
	tests := []struct {
		name     string
		id       Identity
		reviewer bool
		admin    bool
	}{
		{"anonymous", Anonymous, false, false},
		{"plain user", Identity{UserID: 1}, false, false},
		{"reviewer", Identity{UserID: 2, Roles: []Role{RoleReviewer}}, true, false},
		{"admin", Identity{UserID: 3, Roles: []Role{RoleAdmin}}, true, true},
		{"both", Identity{UserID: 4, Roles: []Role{RoleReviewer, RoleAdmin}}, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.reviewer, tt.id.IsReviewer())
			assert.Equal(t, tt.admin, tt.id.IsAdmin())
		})
	}
}

func TestParseRoles(t *testing.T) {
	assert.Nil(t, ParseRoles(""))
	assert.Equal(t, []Role{RoleReviewer}, ParseRoles("reviewer"))
	assert.Equal(t, []Role{RoleReviewer, RoleAdmin}, ParseRoles("Reviewer, ADMIN"))
	assert.Nil(t, ParseRoles("superuser,owner"))
}

func TestParseUserID(t *testing.T) {
	assert.Equal(t, int64(42), ParseUserID("42"))
	assert.Equal(t, int64(0), ParseUserID(""))
	assert.Equal(t, int64(0), ParseUserID("abc"))
	assert.Equal(t, int64(0), ParseUserID("-5"))
}

func TestFromContextDefault(t *testing.T) {
	assert.Equal(t, Anonymous, FromContext(context.Background()))
}

func TestMiddleware(t *testing.T) {
	var seen Identity
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderUserID, "9")
	req.Header.Set(HeaderUserRoles, "reviewer")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, int64(9), seen.UserID)
	assert.True(t, seen.IsReviewer())
}

func TestMiddlewareAnonymousDropsRoles(t *testing.T) {
	var seen Identity
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderUserRoles, "admin")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.True(t, seen.IsAnonymous())
	assert.False(t, seen.IsAdmin())
}
