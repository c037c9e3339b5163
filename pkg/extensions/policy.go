package extensions

import (
	"github.com/platinummonkey/hubcap/pkg/apperr"
	"github.com/platinummonkey/hubcap/pkg/identity"
)

// Policy centralizes every visibility and permission decision. All checks
// return nil when allowed, or an apperr error that maps directly to the HTTP
// response.
//
// Two rules shape everything: soft-deleted entities surface as not-found to
// everyone so deletion status cannot be probed, and anonymous callers get
// not-found rather than forbidden for non-public content so unlisted
// extensions cannot be enumerated.

// privileged reports whether the caller is an author of ext, a reviewer, or
// an admin
func privileged(caller identity.Identity, ext *Extension) bool {
	return ext.IsAuthor(caller.UserID) || caller.IsReviewer()
}

// CanViewExtension decides whether the caller may see the extension at all
func CanViewExtension(caller identity.Identity, ext *Extension) error {
	if ext.Deleted {
		return apperr.NotFound("extension not found")
	}
	if privileged(caller, ext) {
		return nil
	}
	if ext.Disabled {
		return apperr.Forbidden("extension is disabled")
	}
	if ext.Status == StatusBlocked {
		return apperr.Forbidden("extension is blocked")
	}
	if ext.Status != StatusPublic {
		return apperr.NotFound("extension not found")
	}
	return nil
}

// CanViewVersion decides whether the caller may see a specific version
func CanViewVersion(caller identity.Identity, ext *Extension, v *Version) error {
	if err := CanViewExtension(caller, ext); err != nil {
		return err
	}
	if v.Deleted {
		return apperr.NotFound("version not found")
	}
	if v.Status != StatusPublic && !privileged(caller, ext) {
		return apperr.NotFound("version not found")
	}
	return nil
}

// CanEditExtension decides whether the caller may mutate the extension
// (new versions, deletes, metadata patches)
func CanEditExtension(caller identity.Identity, ext *Extension) error {
	if ext.Deleted {
		return apperr.NotFound("extension not found")
	}
	if !ext.IsAuthor(caller.UserID) && !caller.IsAdmin() {
		// Hide existence from callers who could not see it anyway.
		if err := CanViewExtension(caller, ext); err != nil {
			return err
		}
		return apperr.Forbidden("not an author of this extension")
	}
	if ext.Status == StatusBlocked && !caller.IsAdmin() {
		return apperr.Forbidden("extension is blocked")
	}
	return nil
}

// CanMutateContent gates content mutations (new versions, review decisions,
// version deletes) on the disabled flag. Disabling pauses an extension:
// everything except re-enabling and deletion waits until it is enabled again.
func CanMutateContent(ext *Extension) error {
	if ext.Disabled {
		return apperr.Forbidden("extension is disabled")
	}
	return nil
}

// CanReview decides whether the caller may publish or reject versions
func CanReview(caller identity.Identity, ext *Extension) error {
	if ext.Deleted {
		return apperr.NotFound("extension not found")
	}
	if !caller.IsReviewer() {
		if err := CanViewExtension(caller, ext); err != nil {
			return err
		}
		return apperr.Forbidden("review requires the reviewer role")
	}
	return nil
}

// CanBlock decides whether the caller may block or unblock the extension.
// Administrative overrides apply even to deleted extensions' metadata, but
// blocking a deleted extension is meaningless, so it stays not-found.
func CanBlock(caller identity.Identity, ext *Extension) error {
	if ext.Deleted {
		return apperr.NotFound("extension not found")
	}
	if !caller.IsAdmin() {
		if err := CanViewExtension(caller, ext); err != nil {
			return err
		}
		return apperr.Forbidden("blocking requires the admin role")
	}
	return nil
}

// CanViewReviewQueue decides whether the caller may list pending versions
func CanViewReviewQueue(caller identity.Identity) error {
	if !caller.IsReviewer() {
		return apperr.Forbidden("review queue requires the reviewer role")
	}
	return nil
}
