package extensions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/hubcap/pkg/apperr"
	"github.com/platinummonkey/hubcap/pkg/blobstore"
	"github.com/platinummonkey/hubcap/pkg/events"
	"github.com/platinummonkey/hubcap/pkg/identity"
	"github.com/platinummonkey/hubcap/pkg/observability"
	"github.com/platinummonkey/hubcap/pkg/search"
	"github.com/platinummonkey/hubcap/pkg/signing"
)

// Service orchestrates the publication lifecycle: uploads, submission,
// review, serving and administrative overrides. Persistence decides who wins
// a race; the service sequences the side effects (signing, blob moves, event
// emission, cache invalidation, index updates) around each committed
// mutation.
type Service struct {
	store   Store
	private blobstore.Store
	public  blobstore.Store
	signer  signing.Signer
	emitter events.Emitter
	indexer search.Indexer
	tokens  *TokenCache
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewService wires the lifecycle service. emitter, indexer, tokens and
// metrics may be nil; the service degrades to skipping those side effects.
func NewService(store Store, private, public blobstore.Store, signer signing.Signer,
	emitter events.Emitter, indexer search.Indexer, tokens *TokenCache,
	logger *observability.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		store:   store,
		private: private,
		public:  public,
		signer:  signer,
		emitter: emitter,
		indexer: indexer,
		tokens:  tokens,
		logger:  logger,
		metrics: metrics,
	}
}

// CreateExtensionRequest carries the submission form. Name and Slug default
// from the upload's manifest when empty. Message is an optional note carried
// on the emitted lifecycle event.
type CreateExtensionRequest struct {
	UploadID    string `json:"upload_id"`
	Name        string `json:"name,omitempty"`
	Slug        string `json:"slug,omitempty"`
	Author      string `json:"author,omitempty"`
	Description string `json:"description,omitempty"`
	Message     string `json:"message,omitempty"`
}

// CreateUpload validates and records an uploaded archive. Invalid archives
// are recorded with Valid=false so the client can inspect the outcome; only
// valid uploads can later be attached to an extension. Anonymous uploads are
// allowed, ownership is enforced at attach time.
func (s *Service) CreateUpload(ctx context.Context, caller identity.Identity, filename string, r io.Reader) (*Upload, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperr.Validation("failed to read upload")
	}
	if len(data) == 0 {
		return nil, apperr.Validation("upload is empty")
	}

	u := &Upload{
		ID:       uuid.NewString(),
		OwnerID:  caller.UserID,
		Filename: filename,
		Hash:     HashArchive(data),
	}

	manifest, _, err := ValidateArchive(data)
	if err == nil {
		u.Valid = true
		u.Manifest = manifest
		u.BlobPath = UploadBlobPath(u.ID)
		if _, err := s.private.Put(ctx, u.BlobPath, bytes.NewReader(data)); err != nil {
			return nil, apperr.Dependency(err, "failed to store upload")
		}
	} else if !apperr.IsValidation(err) {
		return nil, err
	}

	if err := s.store.CreateUpload(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// GetUpload returns an upload to its owner. Anyone else gets not-found so
// upload ids cannot be probed.
func (s *Service) GetUpload(ctx context.Context, caller identity.Identity, id string) (*Upload, error) {
	u, err := s.store.GetUpload(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.OwnerID != caller.UserID {
		return nil, apperr.NotFound("upload not found")
	}
	return u, nil
}

// claimUpload loads an upload on behalf of caller and checks it can back a
// new version. Uploads owned by someone else surface as not-found.
func (s *Service) claimUpload(ctx context.Context, caller identity.Identity, uploadID string) (*Upload, error) {
	u, err := s.store.GetUpload(ctx, uploadID)
	if err != nil {
		return nil, err
	}
	if u.OwnerID != caller.UserID {
		return nil, apperr.NotFound("upload not found")
	}
	if !u.Valid {
		return nil, apperr.Validation("upload did not pass validation")
	}
	return u, nil
}

// attachUploadBlob copies the upload's archive to the version's unsigned slot
func (s *Service) attachUploadBlob(ctx context.Context, u *Upload, extensionUUID string, versionID int64) (int64, error) {
	rc, err := s.private.Get(ctx, u.BlobPath)
	if err != nil {
		return 0, apperr.Dependency(err, "failed to read upload blob")
	}
	defer rc.Close()

	size, err := s.private.Put(ctx, UnsignedBlobPath(extensionUUID, versionID), rc)
	if err != nil {
		return 0, apperr.Dependency(err, "failed to store version blob")
	}
	return size, nil
}

// CreateExtension registers a new extension from a validated upload. The
// upload's manifest supplies defaults for name and slug. The first version
// enters the review queue immediately.
func (s *Service) CreateExtension(ctx context.Context, caller identity.Identity, req CreateExtensionRequest) (*Extension, *Version, error) {
	if caller.IsAnonymous() {
		return nil, nil, apperr.Forbidden("authentication required")
	}

	u, err := s.claimUpload(ctx, caller, req.UploadID)
	if err != nil {
		return nil, nil, err
	}

	var m uploadManifest
	parseManifest(u.Manifest, &m)

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = m.Name
	}
	if name == "" {
		return nil, nil, apperr.Validation("extension name is required")
	}
	slug := strings.TrimSpace(req.Slug)
	if slug == "" {
		slug = Slugify(name)
	}
	if slug == "" {
		return nil, nil, apperr.Validation("extension slug is required")
	}

	ext := &Extension{
		UUID:        uuid.NewString(),
		Slug:        slug,
		Name:        name,
		Author:      req.Author,
		Description: req.Description,
		AuthorIDs:   []int64{caller.UserID},
	}
	first := &Version{
		Version:  m.Version,
		Manifest: u.Manifest,
	}

	// The blob copy runs inside the creating transaction so a committed
	// pending version always has its unsigned artifact.
	err = s.store.CreateExtension(ctx, ext, first, func(ctx context.Context, versionID int64) (int64, error) {
		return s.attachUploadBlob(ctx, u, ext.UUID, versionID)
	})
	if err != nil {
		s.countTransition("create", err)
		return nil, nil, err
	}
	s.countTransition("create", nil)

	s.emit(ctx, events.New(events.KindSubmitted, ext.ID, first.ID, caller.UserID, req.Message))
	s.reindex(ctx, ext)
	return ext, first, nil
}

// AddVersion submits a new version of an existing extension from a validated
// upload. message is an optional note carried on the submitted event.
func (s *Service) AddVersion(ctx context.Context, caller identity.Identity, extensionID int64, uploadID, message string) (*Version, error) {
	ext, err := s.store.GetExtension(ctx, extensionID)
	if err != nil {
		return nil, err
	}
	if err := CanEditExtension(caller, ext); err != nil {
		return nil, err
	}
	if err := CanMutateContent(ext); err != nil {
		return nil, err
	}

	u, err := s.claimUpload(ctx, caller, uploadID)
	if err != nil {
		return nil, err
	}
	var m uploadManifest
	parseManifest(u.Manifest, &m)

	v := &Version{
		ExtensionID: ext.ID,
		Version:     m.Version,
		Manifest:    u.Manifest,
	}
	res, err := s.store.AddVersion(ctx, v, func(ctx context.Context, versionID int64) (int64, error) {
		return s.attachUploadBlob(ctx, u, ext.UUID, versionID)
	})
	if err != nil {
		s.countTransition("submit", err)
		return nil, err
	}
	s.countTransition("submit", nil)

	s.invalidate(ctx, ext.ID)
	s.emit(ctx, events.New(events.KindSubmitted, ext.ID, res.Version.ID, caller.UserID, message))
	s.reindex(ctx, res.Extension)
	return res.Version, nil
}

// GetExtension loads an extension by slug subject to visibility rules
func (s *Service) GetExtension(ctx context.Context, caller identity.Identity, slug string) (*Extension, error) {
	ext, err := s.store.GetExtensionBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := CanViewExtension(caller, ext); err != nil {
		return nil, err
	}
	return ext, nil
}

// UpdateExtension applies an author metadata patch
func (s *Service) UpdateExtension(ctx context.Context, caller identity.Identity, extensionID int64, patch ExtensionPatch) (*Extension, error) {
	ext, err := s.store.GetExtension(ctx, extensionID)
	if err != nil {
		return nil, err
	}
	if err := CanEditExtension(caller, ext); err != nil {
		return nil, err
	}
	reenabling := patch.Disabled != nil && !*patch.Disabled
	if ext.Disabled && !reenabling {
		return nil, apperr.Forbidden("extension is disabled")
	}
	if patch.Slug != nil {
		slug := Slugify(*patch.Slug)
		if slug == "" {
			return nil, apperr.Validation("slug must not be empty")
		}
		patch.Slug = &slug
	}

	updated, err := s.store.UpdateExtension(ctx, extensionID, patch)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, ext.ID)
	s.reindex(ctx, updated)
	return updated, nil
}

// DeleteExtension soft-deletes an extension. The artifacts are purged later
// by the cleanup sweeper; the index entry goes away immediately.
func (s *Service) DeleteExtension(ctx context.Context, caller identity.Identity, extensionID int64) error {
	ext, err := s.store.GetExtension(ctx, extensionID)
	if err != nil {
		return err
	}
	if err := CanEditExtension(caller, ext); err != nil {
		return err
	}

	deleted, err := s.store.DeleteExtension(ctx, extensionID)
	if err != nil {
		return err
	}

	s.invalidate(ctx, ext.ID)
	s.emit(ctx, events.New(events.KindDeleted, deleted.ID, 0, caller.UserID, ""))
	if s.indexer != nil {
		if err := s.indexer.Remove(ctx, deleted.ID); err != nil {
			s.logger.WithError(err).WithField("extension_id", deleted.ID).Warn("failed to remove index entry")
		}
	}
	return nil
}

// GetVersion loads a version subject to visibility rules
func (s *Service) GetVersion(ctx context.Context, caller identity.Identity, versionID int64) (*Version, *Extension, error) {
	v, err := s.store.GetVersion(ctx, versionID)
	if err != nil {
		return nil, nil, err
	}
	ext, err := s.store.GetExtension(ctx, v.ExtensionID)
	if err != nil {
		return nil, nil, err
	}
	if err := CanViewVersion(caller, ext, v); err != nil {
		return nil, nil, err
	}
	return v, ext, nil
}

// ListVersions returns the versions of an extension the caller may see.
// Privileged callers see everything non-deleted; everyone else sees only
// public versions.
func (s *Service) ListVersions(ctx context.Context, caller identity.Identity, extensionID int64) ([]*Version, error) {
	ext, err := s.store.GetExtension(ctx, extensionID)
	if err != nil {
		return nil, err
	}
	if err := CanViewExtension(caller, ext); err != nil {
		return nil, err
	}

	all, err := s.store.ListVersions(ctx, extensionID)
	if err != nil {
		return nil, err
	}

	priv := privileged(caller, ext)
	out := make([]*Version, 0, len(all))
	for _, v := range all {
		if v.Deleted {
			continue
		}
		if !priv && v.Status != StatusPublic {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// Publish signs a pending version and makes it public. Signing happens before
// the status commit so the artifact's final size is known and a signing
// failure leaves the version untouched. If the commit then fails its
// precondition, the freshly written signed blob is removed again. message is
// an optional reviewer note carried on the published event.
func (s *Service) Publish(ctx context.Context, caller identity.Identity, versionID int64, message string) (*Version, error) {
	v, err := s.store.GetVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	ext, err := s.store.GetExtension(ctx, v.ExtensionID)
	if err != nil {
		return nil, err
	}
	if err := CanReview(caller, ext); err != nil {
		return nil, err
	}
	if err := CanMutateContent(ext); err != nil {
		return nil, err
	}
	if v.Deleted {
		return nil, apperr.NotFound("version not found")
	}

	// Re-publishing is a no-op; skip the signer entirely.
	if v.Status == StatusPublic {
		res, err := s.store.PublishVersion(ctx, versionID, v.Size)
		if err != nil {
			return nil, err
		}
		return res.Version, nil
	}
	if !CanTransition(v.Status, StatusPublic) {
		s.countTransition("publish", apperr.Conflict(""))
		return nil, apperr.Conflict("cannot publish a %s version", v.Status)
	}

	signedPath := SignedBlobPath(ext.UUID, v.ID)
	size, err := s.signArtifact(ctx, ext.UUID, v.ID, signedPath)
	if err != nil {
		s.countTransition("publish", err)
		return nil, err
	}

	res, err := s.store.PublishVersion(ctx, versionID, size)
	if err != nil {
		// The commit lost its race; take the signed artifact back out.
		if _, delErr := s.public.Delete(ctx, signedPath); delErr != nil {
			s.logger.WithError(delErr).WithField("path", signedPath).Warn("failed to remove orphaned signed artifact")
		}
		s.countTransition("publish", err)
		return nil, err
	}
	s.countTransition("publish", nil)

	if !res.NoOp {
		s.invalidate(ctx, ext.ID)
		s.emit(ctx, events.New(events.KindPublished, ext.ID, res.Version.ID, caller.UserID, message))
		s.reindex(ctx, res.Extension)
	}
	return res.Version, nil
}

// signArtifact streams the unsigned archive through the signer and stores the
// result in the public store, returning the signed size
func (s *Service) signArtifact(ctx context.Context, extensionUUID string, versionID int64, signedPath string) (int64, error) {
	unsigned, err := s.private.Get(ctx, UnsignedBlobPath(extensionUUID, versionID))
	if err != nil {
		return 0, apperr.Dependency(err, "failed to read unsigned artifact")
	}
	defer unsigned.Close()

	start := time.Now()
	signed, _, err := s.signer.Sign(ctx, unsigned)
	s.observeSigning(start, err)
	if err != nil {
		return 0, err
	}
	defer signed.Close()

	size, err := s.public.Put(ctx, signedPath, signed)
	if err != nil {
		return 0, apperr.Dependency(err, "failed to store signed artifact")
	}
	return size, nil
}

// Reject turns down a pending version. The signed artifact, if any earlier
// attempt left one behind, is removed inside the same transaction and the
// reclaimed byte count is recorded on the version. message is an optional
// reviewer note carried on the rejected event.
func (s *Service) Reject(ctx context.Context, caller identity.Identity, versionID int64, message string) (*Version, error) {
	v, err := s.store.GetVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	ext, err := s.store.GetExtension(ctx, v.ExtensionID)
	if err != nil {
		return nil, err
	}
	if err := CanReview(caller, ext); err != nil {
		return nil, err
	}
	if err := CanMutateContent(ext); err != nil {
		return nil, err
	}
	if v.Deleted {
		return nil, apperr.NotFound("version not found")
	}

	signedPath := SignedBlobPath(ext.UUID, v.ID)
	res, err := s.store.RejectVersion(ctx, versionID, func(ctx context.Context) (int64, error) {
		removed, err := s.public.Delete(ctx, signedPath)
		if err != nil {
			return 0, apperr.Dependency(err, "failed to remove signed artifact")
		}
		return removed, nil
	})
	if err != nil {
		s.countTransition("reject", err)
		return nil, err
	}
	s.countTransition("reject", nil)

	if !res.NoOp {
		s.invalidate(ctx, ext.ID)
		s.emit(ctx, events.New(events.KindRejected, ext.ID, res.Version.ID, caller.UserID, message))
		s.reindex(ctx, res.Extension)
	}
	return res.Version, nil
}

// DeleteVersion soft-deletes one version. Artifacts stay on disk until the
// cleanup sweeper collects them.
func (s *Service) DeleteVersion(ctx context.Context, caller identity.Identity, versionID int64) error {
	v, err := s.store.GetVersion(ctx, versionID)
	if err != nil {
		return err
	}
	ext, err := s.store.GetExtension(ctx, v.ExtensionID)
	if err != nil {
		return err
	}
	if err := CanEditExtension(caller, ext); err != nil {
		return err
	}
	if err := CanMutateContent(ext); err != nil {
		return err
	}
	if v.Deleted {
		return apperr.NotFound("version not found")
	}

	res, err := s.store.DeleteVersion(ctx, versionID)
	if err != nil {
		s.countTransition("delete", err)
		return err
	}
	s.countTransition("delete", nil)

	s.invalidate(ctx, ext.ID)
	s.emit(ctx, events.New(events.KindDeleted, ext.ID, versionID, caller.UserID, ""))
	s.reindex(ctx, res.Extension)
	return nil
}

// Block applies the administrative kill switch. While blocked the extension
// serves nothing to the public and projection is frozen.
func (s *Service) Block(ctx context.Context, caller identity.Identity, extensionID int64) (*Extension, error) {
	ext, err := s.store.GetExtension(ctx, extensionID)
	if err != nil {
		return nil, err
	}
	if err := CanBlock(caller, ext); err != nil {
		return nil, err
	}
	if ext.Status == StatusBlocked {
		return ext, nil
	}

	updated, err := s.store.SetExtensionStatus(ctx, extensionID, StatusBlocked)
	if err != nil {
		s.countTransition("block", err)
		return nil, err
	}
	s.countTransition("block", nil)

	s.invalidate(ctx, ext.ID)
	if s.indexer != nil {
		if err := s.indexer.Remove(ctx, updated.ID); err != nil {
			s.logger.WithError(err).WithField("extension_id", updated.ID).Warn("failed to remove index entry")
		}
	}
	return updated, nil
}

// Unblock lifts the kill switch. The status resets to Null rather than the
// pre-block value; the next version mutation reprojects it.
func (s *Service) Unblock(ctx context.Context, caller identity.Identity, extensionID int64) (*Extension, error) {
	ext, err := s.store.GetExtension(ctx, extensionID)
	if err != nil {
		return nil, err
	}
	if err := CanBlock(caller, ext); err != nil {
		return nil, err
	}
	if ext.Status != StatusBlocked {
		return ext, nil
	}

	updated, err := s.store.SetExtensionStatus(ctx, extensionID, StatusNull)
	if err != nil {
		s.countTransition("unblock", err)
		return nil, err
	}
	s.countTransition("unblock", nil)

	s.invalidate(ctx, ext.ID)
	s.reindex(ctx, updated)
	return updated, nil
}

// GetManifest serves the public manifest: the latest public version of a
// visible extension, with its cache token. Blocked extensions serve nothing,
// to anyone.
func (s *Service) GetManifest(ctx context.Context, caller identity.Identity, slug string) (*Manifest, string, error) {
	ext, err := s.store.GetExtensionBySlug(ctx, slug)
	if err != nil {
		return nil, "", err
	}
	if err := CanViewExtension(caller, ext); err != nil {
		return nil, "", err
	}
	if ext.Status == StatusBlocked {
		return nil, "", apperr.Forbidden("extension is blocked")
	}

	versions, err := s.store.ListVersions(ctx, ext.ID)
	if err != nil {
		return nil, "", err
	}
	v := latestWithStatus(versions, StatusPublic)
	if v == nil {
		return nil, "", apperr.NotFound("no public version")
	}

	return s.manifestWithToken(ctx, ext, v, VariantPublic)
}

// GetReviewerManifest serves the latest pending version to reviewers
func (s *Service) GetReviewerManifest(ctx context.Context, caller identity.Identity, slug string) (*Manifest, string, error) {
	ext, err := s.store.GetExtensionBySlug(ctx, slug)
	if err != nil {
		return nil, "", err
	}
	if err := CanReview(caller, ext); err != nil {
		return nil, "", err
	}

	versions, err := s.store.ListVersions(ctx, ext.ID)
	if err != nil {
		return nil, "", err
	}
	v := latestWithStatus(versions, StatusPending)
	if v == nil {
		return nil, "", apperr.NotFound("no pending version")
	}

	return s.manifestWithToken(ctx, ext, v, VariantReviewer)
}

func (s *Service) manifestWithToken(ctx context.Context, ext *Extension, v *Version, variant string) (*Manifest, string, error) {
	var token string
	if s.tokens != nil {
		if cached, ok := s.tokens.Get(ctx, ext.ID, variant); ok {
			token = cached
		}
	}
	if token == "" {
		token = ComputeToken(ext.UUID, v.ID, v.Manifest)
		if s.tokens != nil {
			s.tokens.Set(ctx, ext.ID, variant, token)
		}
	}
	return BuildManifest(ext, v), token, nil
}

// DownloadSigned streams the signed artifact of a public version. The second
// return value is the manifest cache token, served as the download's ETag.
func (s *Service) DownloadSigned(ctx context.Context, caller identity.Identity, versionID int64) (io.ReadCloser, string, error) {
	v, ext, err := s.GetVersion(ctx, caller, versionID)
	if err != nil {
		return nil, "", err
	}
	if v.Status != StatusPublic {
		return nil, "", apperr.NotFound("version has no signed artifact")
	}

	rc, err := s.public.Get(ctx, SignedBlobPath(ext.UUID, v.ID))
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil, "", apperr.NotFound("artifact not found")
	}
	if err != nil {
		return nil, "", apperr.Dependency(err, "failed to read signed artifact")
	}
	return rc, ComputeToken(ext.UUID, v.ID, v.Manifest), nil
}

// DownloadUnsigned streams the original upload to authors and reviewers
func (s *Service) DownloadUnsigned(ctx context.Context, caller identity.Identity, versionID int64) (io.ReadCloser, error) {
	v, ext, err := s.GetVersion(ctx, caller, versionID)
	if err != nil {
		return nil, err
	}
	if !privileged(caller, ext) {
		return nil, apperr.Forbidden("unsigned artifacts are restricted")
	}

	rc, err := s.private.Get(ctx, UnsignedBlobPath(ext.UUID, v.ID))
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil, apperr.NotFound("artifact not found")
	}
	if err != nil {
		return nil, apperr.Dependency(err, "failed to read unsigned artifact")
	}
	return rc, nil
}

// ReviewQueue lists pending versions for reviewers, oldest first
func (s *Service) ReviewQueue(ctx context.Context, caller identity.Identity, includeDeleted bool) ([]*QueueEntry, error) {
	if err := CanViewReviewQueue(caller); err != nil {
		return nil, err
	}
	if includeDeleted && !caller.IsAdmin() {
		includeDeleted = false
	}
	return s.store.ListReviewQueue(ctx, includeDeleted)
}

// BuildDocument denormalizes an extension and its versions into the search
// index document
func BuildDocument(ext *Extension, versions []*Version) search.Document {
	doc := search.Document{
		ID:          ext.ID,
		UUID:        ext.UUID,
		Slug:        ext.Slug,
		Name:        ext.Name,
		Author:      ext.Author,
		Description: ext.Description,
		Status:      ext.Status.String(),
		IsDisabled:  ext.Disabled,
		IsDeleted:   ext.Deleted,
		LastUpdated: ext.LastUpdated,
		IconHash:    ext.IconHash,
	}
	if v := latestWithStatus(versions, StatusPublic); v != nil {
		doc.LatestPublicVersion = &search.VersionRef{ID: v.ID, Version: v.Version}
	}
	return doc
}

// latestWithStatus returns the newest non-deleted version with the given
// status. Versions are expected newest first, as ListVersions returns them.
func latestWithStatus(versions []*Version, status Status) *Version {
	for _, v := range versions {
		if !v.Deleted && v.Status == status {
			return v
		}
	}
	return nil
}

// Slugify lowercases s and collapses anything that is not a letter or digit
// into single dashes
func Slugify(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func parseManifest(raw []byte, into *uploadManifest) {
	if len(raw) == 0 {
		return
	}
	// Uploads only persist manifests that already parsed during validation.
	_ = json.Unmarshal(raw, into)
}

// reindex rebuilds and upserts the extension's search document, best-effort
func (s *Service) reindex(ctx context.Context, ext *Extension) {
	if s.indexer == nil {
		return
	}
	versions, err := s.store.ListVersions(ctx, ext.ID)
	if err != nil {
		s.logger.WithError(err).WithField("extension_id", ext.ID).Warn("failed to load versions for indexing")
		return
	}
	if err := s.indexer.Index(ctx, BuildDocument(ext, versions)); err != nil {
		s.logger.WithError(err).WithField("extension_id", ext.ID).Warn("failed to index extension")
	}
}

func (s *Service) invalidate(ctx context.Context, extensionID int64) {
	if s.tokens != nil {
		s.tokens.Invalidate(ctx, extensionID)
	}
}

func (s *Service) emit(ctx context.Context, event events.Event) {
	if s.emitter == nil {
		return
	}
	s.emitter.Emit(ctx, event)
	if s.metrics != nil {
		s.metrics.LifecycleEventsTotal.WithLabelValues(string(event.Kind)).Inc()
	}
}

func (s *Service) countTransition(operation string, err error) {
	if s.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = apperr.KindOf(err).String()
	}
	s.metrics.LifecycleTransitionsTotal.WithLabelValues(operation, status).Inc()
}

func (s *Service) observeSigning(start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	s.metrics.SigningRequestsTotal.WithLabelValues(status).Inc()
	s.metrics.SigningDuration.Observe(time.Since(start).Seconds())
}
