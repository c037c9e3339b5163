// Package extensions implements the publication lifecycle of marketplace
// extensions and their versions.
//
// An Extension owns an ordered list of Versions. Versions move through a
// small state machine (pending, then public or rejected; public versions can
// become obsolete) and the extension's own status is always a pure projection
// of its non-deleted versions: the most recent public version wins, otherwise
// the most recent version's status, otherwise null. Deletion is a soft flag
// orthogonal to status, and blocking is an administrative override that
// suppresses the projection until an admin unblocks.
//
// The Service orchestrates every transition: it consults the visibility
// policy, signs artifacts before any publish commit, stores blobs, projects
// status inside the same transaction as the version mutation, and emits one
// lifecycle event per successful transition after commit.
package extensions
