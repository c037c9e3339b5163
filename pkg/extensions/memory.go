package extensions

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/platinummonkey/hubcap/pkg/apperr"
)

// MemoryStore is an in-memory Store used in tests. It honors the same
// semantics as the postgres store: one lock per mutation, precondition
// re-checks, projection in the same critical section.
type MemoryStore struct {
	mu sync.Mutex

	extensions map[int64]*Extension
	versions   map[int64]*Version
	uploads    map[string]*Upload
	swept      map[int64]bool

	nextExtensionID int64
	nextVersionID   int64
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		extensions: make(map[int64]*Extension),
		versions:   make(map[int64]*Version),
		uploads:    make(map[string]*Upload),
		swept:      make(map[int64]bool),
	}
}

func cloneExtension(e *Extension) *Extension {
	out := *e
	out.AuthorIDs = append([]int64(nil), e.AuthorIDs...)
	if e.LastUpdated != nil {
		t := *e.LastUpdated
		out.LastUpdated = &t
	}
	return &out
}

func cloneVersion(v *Version) *Version {
	out := *v
	out.Manifest = append([]byte(nil), v.Manifest...)
	return &out
}

// CreateExtension inserts an extension together with its first version
func (s *MemoryStore) CreateExtension(ctx context.Context, ext *Extension, first *Version, attach AttachArtifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.extensions {
		if existing.Deleted {
			continue
		}
		if strings.EqualFold(existing.Slug, ext.Slug) {
			return apperr.Conflict("slug %q already exists", ext.Slug)
		}
		if strings.EqualFold(existing.Name, ext.Name) {
			return apperr.Conflict("name %q already exists", ext.Name)
		}
	}

	now := time.Now().UTC()
	s.nextExtensionID++
	ext.ID = s.nextExtensionID
	ext.CreatedAt = now
	ext.UpdatedAt = now

	s.nextVersionID++
	first.ID = s.nextVersionID
	first.ExtensionID = ext.ID
	first.Status = StatusPending
	first.CreatedAt = now
	first.UpdatedAt = now

	ext.Status = DeriveStatus([]*Version{first})

	// Nothing is visible until attach succeeds, like the tx rollback.
	if attach != nil {
		size, err := attach(ctx, first.ID)
		if err != nil {
			return err
		}
		first.Size = size
	}

	s.extensions[ext.ID] = cloneExtension(ext)
	s.versions[first.ID] = cloneVersion(first)
	return nil
}

// GetExtension loads an extension by id
func (s *MemoryStore) GetExtension(ctx context.Context, id int64) (*Extension, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ext, ok := s.extensions[id]
	if !ok {
		return nil, apperr.NotFound("extension not found")
	}
	return cloneExtension(ext), nil
}

// GetExtensionBySlug loads an extension by slug
func (s *MemoryStore) GetExtensionBySlug(ctx context.Context, slug string) (*Extension, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ext := range s.extensions {
		if strings.EqualFold(ext.Slug, slug) {
			return cloneExtension(ext), nil
		}
	}
	return nil, apperr.NotFound("extension not found")
}

// UpdateExtension applies a metadata patch
func (s *MemoryStore) UpdateExtension(ctx context.Context, id int64, patch ExtensionPatch) (*Extension, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ext, ok := s.extensions[id]
	if !ok || ext.Deleted {
		return nil, apperr.NotFound("extension not found")
	}

	if patch.Slug != nil && !strings.EqualFold(*patch.Slug, ext.Slug) {
		for _, other := range s.extensions {
			if other.ID != id && !other.Deleted && strings.EqualFold(other.Slug, *patch.Slug) {
				return nil, apperr.Conflict("slug %q already exists", *patch.Slug)
			}
		}
		ext.Slug = *patch.Slug
	}
	if patch.Disabled != nil {
		ext.Disabled = *patch.Disabled
	}
	ext.UpdatedAt = time.Now().UTC()
	return cloneExtension(ext), nil
}

// DeleteExtension soft-deletes an extension
func (s *MemoryStore) DeleteExtension(ctx context.Context, id int64) (*Extension, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ext, ok := s.extensions[id]
	if !ok || ext.Deleted {
		return nil, apperr.NotFound("extension not found")
	}
	ext.Deleted = true
	ext.UpdatedAt = time.Now().UTC()
	return cloneExtension(ext), nil
}

// SetExtensionStatus applies an administrative status override
func (s *MemoryStore) SetExtensionStatus(ctx context.Context, id int64, status Status) (*Extension, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ext, ok := s.extensions[id]
	if !ok || ext.Deleted {
		return nil, apperr.NotFound("extension not found")
	}
	ext.Status = status
	ext.UpdatedAt = time.Now().UTC()
	return cloneExtension(ext), nil
}

func (s *MemoryStore) versionsOf(extensionID int64) []*Version {
	var out []*Version
	for _, v := range s.versions {
		if v.ExtensionID == extensionID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

// project recomputes the owner's status unless an administrative block is in
// force
func (s *MemoryStore) project(ext *Extension) {
	if ext.Status == StatusBlocked {
		return
	}
	ext.Status = DeriveStatus(s.versionsOf(ext.ID))
}

// AddVersion inserts a pending version and reprojects
func (s *MemoryStore) AddVersion(ctx context.Context, v *Version, attach AttachArtifact) (*MutationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ext, ok := s.extensions[v.ExtensionID]
	if !ok || ext.Deleted {
		return nil, apperr.NotFound("extension not found")
	}

	for _, existing := range s.versionsOf(v.ExtensionID) {
		if !existing.Deleted && existing.Version == v.Version {
			return nil, apperr.Conflict("version %q already exists", v.Version)
		}
	}

	now := time.Now().UTC()
	s.nextVersionID++
	v.ID = s.nextVersionID
	v.Status = StatusPending
	v.CreatedAt = now
	v.UpdatedAt = now

	if attach != nil {
		size, err := attach(ctx, v.ID)
		if err != nil {
			return nil, err
		}
		v.Size = size
	}
	s.versions[v.ID] = cloneVersion(v)

	s.project(ext)
	ext.UpdatedAt = now

	return &MutationResult{Version: cloneVersion(v), Extension: cloneExtension(ext)}, nil
}

// GetVersion loads a version by id
func (s *MemoryStore) GetVersion(ctx context.Context, id int64) (*Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.versions[id]
	if !ok {
		return nil, apperr.NotFound("version not found")
	}
	return cloneVersion(v), nil
}

// ListVersions returns all versions of an extension, newest first
func (s *MemoryStore) ListVersions(ctx context.Context, extensionID int64) ([]*Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Version
	for _, v := range s.versionsOf(extensionID) {
		out = append(out, cloneVersion(v))
	}
	return out, nil
}

// PublishVersion transitions a version to public
func (s *MemoryStore) PublishVersion(ctx context.Context, versionID, size int64) (*MutationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.versions[versionID]
	if !ok || v.Deleted {
		return nil, apperr.NotFound("version not found")
	}
	ext, ok := s.extensions[v.ExtensionID]
	if !ok || ext.Deleted {
		return nil, apperr.NotFound("extension not found")
	}

	if v.Status == StatusPublic {
		return &MutationResult{Version: cloneVersion(v), Extension: cloneExtension(ext), NoOp: true}, nil
	}
	if !CanTransition(v.Status, StatusPublic) {
		return nil, apperr.Conflict("cannot publish a %s version", v.Status)
	}

	now := time.Now().UTC()
	v.Status = StatusPublic
	v.Size = size
	v.UpdatedAt = now

	s.project(ext)
	if ext.LastUpdated == nil {
		t := now
		ext.LastUpdated = &t
	}
	ext.UpdatedAt = now

	return &MutationResult{Version: cloneVersion(v), Extension: cloneExtension(ext)}, nil
}

// RejectVersion transitions a version to rejected
func (s *MemoryStore) RejectVersion(ctx context.Context, versionID int64, removeArtifact func(context.Context) (int64, error)) (*MutationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.versions[versionID]
	if !ok || v.Deleted {
		return nil, apperr.NotFound("version not found")
	}
	ext, ok := s.extensions[v.ExtensionID]
	if !ok || ext.Deleted {
		return nil, apperr.NotFound("extension not found")
	}

	if v.Status == StatusRejected {
		return &MutationResult{Version: cloneVersion(v), Extension: cloneExtension(ext), NoOp: true}, nil
	}
	if !CanTransition(v.Status, StatusRejected) {
		return nil, apperr.Conflict("cannot reject a %s version", v.Status)
	}

	removed, err := removeArtifact(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	v.Status = StatusRejected
	v.Size = removed
	v.UpdatedAt = now

	s.project(ext)
	ext.UpdatedAt = now

	return &MutationResult{Version: cloneVersion(v), Extension: cloneExtension(ext)}, nil
}

// DeleteVersion soft-deletes a version and reprojects
func (s *MemoryStore) DeleteVersion(ctx context.Context, versionID int64) (*MutationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.versions[versionID]
	if !ok || v.Deleted {
		return nil, apperr.NotFound("version not found")
	}
	ext, ok := s.extensions[v.ExtensionID]
	if !ok || ext.Deleted {
		return nil, apperr.NotFound("extension not found")
	}

	now := time.Now().UTC()
	v.Deleted = true
	v.UpdatedAt = now

	s.project(ext)
	ext.UpdatedAt = now

	return &MutationResult{Version: cloneVersion(v), Extension: cloneExtension(ext)}, nil
}

// ListReviewQueue returns pending versions, oldest first
func (s *MemoryStore) ListReviewQueue(ctx context.Context, includeDeleted bool) ([]*QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*QueueEntry
	for _, v := range s.versions {
		if v.Status != StatusPending {
			continue
		}
		ext, ok := s.extensions[v.ExtensionID]
		if !ok {
			continue
		}
		if (v.Deleted || ext.Deleted) && !includeDeleted {
			continue
		}
		out = append(out, &QueueEntry{Extension: cloneExtension(ext), Version: cloneVersion(v)})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version.ID < out[j].Version.ID })
	return out, nil
}

// CreateUpload records a validated upload
func (s *MemoryStore) CreateUpload(ctx context.Context, u *Upload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u.CreatedAt = time.Now().UTC()
	stored := *u
	s.uploads[u.ID] = &stored
	return nil
}

// GetUpload loads an upload by id
func (s *MemoryStore) GetUpload(ctx context.Context, id string) (*Upload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.uploads[id]
	if !ok {
		return nil, apperr.NotFound("upload not found")
	}
	out := *u
	return &out, nil
}

// ListSweepableBlobs returns blob references of unswept deleted versions
func (s *MemoryStore) ListSweepableBlobs(ctx context.Context, limit int) ([]BlobRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []BlobRef
	for _, v := range s.versions {
		if !v.Deleted || s.swept[v.ID] {
			continue
		}
		ext, ok := s.extensions[v.ExtensionID]
		if !ok {
			continue
		}
		out = append(out, BlobRef{VersionID: v.ID, ExtensionUUID: ext.UUID})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// MarkBlobsSwept records that a version's artifacts were purged
func (s *MemoryStore) MarkBlobsSwept(ctx context.Context, versionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.swept[versionID] = true
	return nil
}
