package identity

import (
	"context"
	"strconv"
	"strings"
)

// Role is a marketplace-wide grant attached to a user
type Role string

const (
	// RoleReviewer may inspect pending versions and publish or reject them
	RoleReviewer Role = "reviewer"
	// RoleAdmin may do everything a reviewer can, plus block and unblock
	RoleAdmin Role = "admin"
)

// Identity describes the caller of an operation. The zero value is the
// anonymous caller.
type Identity struct {
	UserID int64
	Roles  []Role
}

// Anonymous is the unauthenticated caller
var Anonymous = Identity{}

// IsAnonymous reports whether the caller is unauthenticated
func (i Identity) IsAnonymous() bool {
	return i.UserID == 0
}

// HasRole reports whether the caller holds the given role
func (i Identity) HasRole(role Role) bool {
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsReviewer reports whether the caller may review versions. Admins review too.
func (i Identity) IsReviewer() bool {
	return i.HasRole(RoleReviewer) || i.HasRole(RoleAdmin)
}

// IsAdmin reports whether the caller holds the admin role
func (i Identity) IsAdmin() bool {
	return i.HasRole(RoleAdmin)
}

// ParseRoles parses a comma-separated role list, dropping unknown entries
func ParseRoles(raw string) []Role {
	if raw == "" {
		return nil
	}

	var roles []Role
	for _, part := range strings.Split(raw, ",") {
		switch Role(strings.TrimSpace(strings.ToLower(part))) {
		case RoleReviewer:
			roles = append(roles, RoleReviewer)
		case RoleAdmin:
			roles = append(roles, RoleAdmin)
		}
	}
	return roles
}

// ParseUserID parses a user id header value. Anything unparsable is anonymous.
func ParseUserID(raw string) int64 {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}

type contextKey string

const identityKey contextKey = "identity"

// WithIdentity places the identity on the context
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext retrieves the caller identity, defaulting to anonymous
func FromContext(ctx context.Context) Identity {
	if id, ok := ctx.Value(identityKey).(Identity); ok {
		return id
	}
	return Anonymous
}
