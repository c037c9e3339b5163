// Package identity carries the caller classification used by visibility and
// permission checks.
//
// The identity provider itself is external: an upstream gateway authenticates
// requests and forwards the user id and role grants in headers. This package
// parses those headers into an Identity, places it on the request context, and
// answers role questions (IsReviewer, IsAdmin). An absent or unparsable header
// yields the anonymous identity rather than an error.
package identity
