package extensions

import (
	"context"
)

// ExtensionPatch carries the author-editable fields of an extension. Nil
// pointers leave the field untouched; anything else the caller sends is
// ignored rather than rejected.
type ExtensionPatch struct {
	Slug     *string
	Disabled *bool
}

// QueueEntry is one pending version awaiting review
type QueueEntry struct {
	Extension *Extension `json:"extension"`
	Version   *Version   `json:"version"`
}

// BlobRef identifies the stored artifacts of one version for the cleanup
// sweeper
type BlobRef struct {
	VersionID     int64
	ExtensionUUID string
}

// AttachArtifact copies a submission's archive into a freshly inserted
// version's unsigned slot and returns the stored size. It runs inside the
// creating transaction once the version id is assigned; an error rolls the
// insert back, so a committed pending version always has its artifact. A
// commit failure after the copy merely orphans an unreferenced blob.
type AttachArtifact func(ctx context.Context, versionID int64) (int64, error)

// MutationResult reports the post-commit state of a lifecycle mutation.
// NoOp marks idempotent re-applications (publishing an already-public
// version, rejecting an already-rejected one) so callers skip event emission.
type MutationResult struct {
	Version   *Version
	Extension *Extension
	NoOp      bool
}

// Store persists extensions, versions and uploads.
//
// Every lifecycle mutation runs in one transaction that locks the version row
// (SELECT ... FOR UPDATE), re-checks its preconditions under the lock, applies
// the mutation, recomputes the extension's projected status, and commits.
// Concurrent mutations of the same version therefore serialize, and exactly
// one of two racing transitions wins.
type Store interface {
	// CreateExtension inserts an extension together with its first version.
	// Conflict on duplicate name or slug. attach may be nil.
	CreateExtension(ctx context.Context, ext *Extension, first *Version, attach AttachArtifact) error

	// GetExtension loads an extension by id, including soft-deleted rows
	GetExtension(ctx context.Context, id int64) (*Extension, error)

	// GetExtensionBySlug loads an extension by slug, including soft-deleted rows
	GetExtensionBySlug(ctx context.Context, slug string) (*Extension, error)

	// UpdateExtension applies a metadata patch. Conflict on slug collision.
	UpdateExtension(ctx context.Context, id int64, patch ExtensionPatch) (*Extension, error)

	// DeleteExtension soft-deletes an extension
	DeleteExtension(ctx context.Context, id int64) (*Extension, error)

	// SetExtensionStatus applies an administrative status override
	// (block sets Blocked, unblock resets to Null)
	SetExtensionStatus(ctx context.Context, id int64, status Status) (*Extension, error)

	// AddVersion inserts a pending version and reprojects the extension.
	// Conflict when the version string already exists non-deleted. attach
	// may be nil.
	AddVersion(ctx context.Context, v *Version, attach AttachArtifact) (*MutationResult, error)

	// GetVersion loads a version by id, including soft-deleted rows
	GetVersion(ctx context.Context, id int64) (*Version, error)

	// ListVersions returns all versions of an extension, deleted included,
	// newest first
	ListVersions(ctx context.Context, extensionID int64) ([]*Version, error)

	// PublishVersion transitions a version to public with the signed
	// artifact size, reprojects, and sets last_updated on first publish
	PublishVersion(ctx context.Context, versionID, size int64) (*MutationResult, error)

	// RejectVersion transitions a version to rejected. removeArtifact runs
	// inside the transaction after the precondition re-check and returns
	// the bytes reclaimed from the signed artifact, recorded as the
	// version's size.
	RejectVersion(ctx context.Context, versionID int64, removeArtifact func(context.Context) (int64, error)) (*MutationResult, error)

	// DeleteVersion soft-deletes a version and reprojects
	DeleteVersion(ctx context.Context, versionID int64) (*MutationResult, error)

	// ListReviewQueue returns pending versions awaiting review, oldest
	// first. includeDeleted adds soft-deleted entries for audit.
	ListReviewQueue(ctx context.Context, includeDeleted bool) ([]*QueueEntry, error)

	// CreateUpload records a validated upload
	CreateUpload(ctx context.Context, u *Upload) error

	// GetUpload loads an upload by id
	GetUpload(ctx context.Context, id string) (*Upload, error)

	// ListSweepableBlobs returns blob references of soft-deleted versions
	// whose artifacts have not been purged yet
	ListSweepableBlobs(ctx context.Context, limit int) ([]BlobRef, error)

	// MarkBlobsSwept records that a version's artifacts were purged
	MarkBlobsSwept(ctx context.Context, versionID int64) error
}
