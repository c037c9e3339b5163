package extensions

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/hubcap/pkg/apperr"
	"github.com/platinummonkey/hubcap/pkg/blobstore"
	"github.com/platinummonkey/hubcap/pkg/events"
	"github.com/platinummonkey/hubcap/pkg/search"
	"github.com/platinummonkey/hubcap/pkg/signing"
)

type serviceFixture struct {
	service *Service
	store   *MemoryStore
	private *blobstore.MemoryStore
	public  *blobstore.MemoryStore
	signer  *signing.FakeSigner
	emitted *events.Recorder
	indexer *search.MemoryIndexer
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		store:   NewMemoryStore(),
		private: blobstore.NewMemoryStore(),
		public:  blobstore.NewMemoryStore(),
		signer:  signing.NewFakeSigner(),
		emitted: events.NewRecorder(),
		indexer: search.NewMemoryIndexer(),
	}
	tokens, err := NewTokenCache(16, nil, time.Minute, testLogger(), nil)
	require.NoError(t, err)
	f.service = NewService(f.store, f.private, f.public, f.signer,
		f.emitted, f.indexer, tokens, testLogger(), nil)
	return f
}

func (f *serviceFixture) uploadArchive(t *testing.T, data []byte) *Upload {
	t.Helper()
	u, err := f.service.CreateUpload(context.Background(), author, "ext.zip", bytes.NewReader(data))
	require.NoError(t, err)
	return u
}

func (f *serviceFixture) createExtension(t *testing.T) (*Extension, *Version) {
	t.Helper()
	u := f.uploadArchive(t, validArchive(t))
	ext, v, err := f.service.CreateExtension(context.Background(), author, CreateExtensionRequest{
		UploadID: u.ID,
	})
	require.NoError(t, err)
	return ext, v
}

func (f *serviceFixture) addVersion(t *testing.T, extensionID int64, version string) *Version {
	t.Helper()
	data := buildArchive(t, map[string]string{
		"manifest.json": `{"name":"Tab Sync","version":"` + version + `"}`,
	})
	u := f.uploadArchive(t, data)
	v, err := f.service.AddVersion(context.Background(), author, extensionID, u.ID, "")
	require.NoError(t, err)
	return v
}

func TestCreateUploadValid(t *testing.T) {
	f := newServiceFixture(t)
	u := f.uploadArchive(t, validArchive(t))

	assert.True(t, u.Valid)
	assert.NotEmpty(t, u.ID)
	assert.Contains(t, u.Hash, "sha256:")
	assert.NotEmpty(t, u.Manifest)

	exists, err := f.private.Exists(context.Background(), u.BlobPath)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCreateUploadInvalidArchiveRecorded(t *testing.T) {
	f := newServiceFixture(t)
	u, err := f.service.CreateUpload(context.Background(), author, "bad.zip", bytes.NewReader([]byte("not a zip")))
	require.NoError(t, err)
	assert.False(t, u.Valid)
	assert.Empty(t, u.BlobPath)

	// Invalid uploads cannot back an extension.
	_, _, err = f.service.CreateExtension(context.Background(), author, CreateExtensionRequest{UploadID: u.ID})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestCreateExtension(t *testing.T) {
	f := newServiceFixture(t)
	ext, v := f.createExtension(t)

	assert.Equal(t, "Tab Sync", ext.Name)
	assert.Equal(t, "tab-sync", ext.Slug)
	assert.Equal(t, StatusPending, ext.Status)
	assert.Nil(t, ext.LastUpdated)
	assert.Equal(t, []int64{author.UserID}, ext.AuthorIDs)

	assert.Equal(t, StatusPending, v.Status)
	assert.Equal(t, "1.0.0", v.Version)

	exists, err := f.private.Exists(context.Background(), UnsignedBlobPath(ext.UUID, v.ID))
	require.NoError(t, err)
	assert.True(t, exists)

	assert.Equal(t, []events.Kind{events.KindSubmitted}, f.emitted.Kinds())

	doc, ok := f.indexer.Get(ext.ID)
	require.True(t, ok)
	assert.Equal(t, "pending", doc.Status)
	assert.Nil(t, doc.LatestPublicVersion)
}

func TestCreateExtensionRequiresAuth(t *testing.T) {
	f := newServiceFixture(t)
	u := f.uploadArchive(t, validArchive(t))
	_, _, err := f.service.CreateExtension(context.Background(), anonymous, CreateExtensionRequest{UploadID: u.ID})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestCreateExtensionForeignUploadHidden(t *testing.T) {
	f := newServiceFixture(t)
	u := f.uploadArchive(t, validArchive(t))
	_, _, err := f.service.CreateExtension(context.Background(), visitor, CreateExtensionRequest{UploadID: u.ID})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestCreateExtensionDuplicateName(t *testing.T) {
	f := newServiceFixture(t)
	f.createExtension(t)

	u := f.uploadArchive(t, validArchive(t))
	_, _, err := f.service.CreateExtension(context.Background(), author, CreateExtensionRequest{UploadID: u.ID})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestPublish(t *testing.T) {
	f := newServiceFixture(t)
	ext, v := f.createExtension(t)
	ctx := context.Background()

	published, err := f.service.Publish(ctx, reviewer, v.ID, "")
	require.NoError(t, err)
	assert.Equal(t, StatusPublic, published.Status)
	assert.Greater(t, published.Size, int64(0))

	got, err := f.store.GetExtension(ctx, ext.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPublic, got.Status)
	require.NotNil(t, got.LastUpdated)

	exists, err := f.public.Exists(ctx, SignedBlobPath(ext.UUID, v.ID))
	require.NoError(t, err)
	assert.True(t, exists)

	assert.Equal(t, []events.Kind{events.KindSubmitted, events.KindPublished}, f.emitted.Kinds())

	doc, ok := f.indexer.Get(ext.ID)
	require.True(t, ok)
	require.NotNil(t, doc.LatestPublicVersion)
	assert.Equal(t, v.ID, doc.LatestPublicVersion.ID)
}

func TestPublishIdempotent(t *testing.T) {
	f := newServiceFixture(t)
	_, v := f.createExtension(t)
	ctx := context.Background()

	_, err := f.service.Publish(ctx, reviewer, v.ID, "")
	require.NoError(t, err)
	signCalls := f.signer.Calls

	again, err := f.service.Publish(ctx, reviewer, v.ID, "")
	require.NoError(t, err)
	assert.Equal(t, StatusPublic, again.Status)

	// No second signing round and no duplicate event.
	assert.Equal(t, signCalls, f.signer.Calls)
	assert.Equal(t, []events.Kind{events.KindSubmitted, events.KindPublished}, f.emitted.Kinds())
}

func TestPublishRequiresReviewer(t *testing.T) {
	f := newServiceFixture(t)
	_, v := f.createExtension(t)

	_, err := f.service.Publish(context.Background(), author, v.ID, "")
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = f.service.Publish(context.Background(), visitor, v.ID, "")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestPublishSigningFailureLeavesPending(t *testing.T) {
	f := newServiceFixture(t)
	ext, v := f.createExtension(t)
	ctx := context.Background()

	f.signer.Err = errors.New("signer down")
	_, err := f.service.Publish(ctx, reviewer, v.ID, "")
	require.Error(t, err)

	got, err := f.store.GetVersion(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)

	gotExt, err := f.store.GetExtension(ctx, ext.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, gotExt.Status)
	assert.Nil(t, gotExt.LastUpdated)

	exists, err := f.public.Exists(ctx, SignedBlobPath(ext.UUID, v.ID))
	require.NoError(t, err)
	assert.False(t, exists)

	assert.Equal(t, []events.Kind{events.KindSubmitted}, f.emitted.Kinds())
}

func TestReject(t *testing.T) {
	f := newServiceFixture(t)
	ext, v := f.createExtension(t)
	ctx := context.Background()

	rejected, err := f.service.Reject(ctx, reviewer, v.ID, "")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)
	// Nothing was signed yet, so nothing was reclaimed.
	assert.Equal(t, int64(0), rejected.Size)

	gotExt, err := f.store.GetExtension(ctx, ext.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, gotExt.Status)

	assert.Equal(t, []events.Kind{events.KindSubmitted, events.KindRejected}, f.emitted.Kinds())
}

func TestRejectIdempotent(t *testing.T) {
	f := newServiceFixture(t)
	_, v := f.createExtension(t)
	ctx := context.Background()

	_, err := f.service.Reject(ctx, reviewer, v.ID, "")
	require.NoError(t, err)

	again, err := f.service.Reject(ctx, reviewer, v.ID, "")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, again.Status)
	assert.Equal(t, []events.Kind{events.KindSubmitted, events.KindRejected}, f.emitted.Kinds())
}

func TestRejectPublicConflicts(t *testing.T) {
	f := newServiceFixture(t)
	_, v := f.createExtension(t)
	ctx := context.Background()

	_, err := f.service.Publish(ctx, reviewer, v.ID, "")
	require.NoError(t, err)

	_, err = f.service.Reject(ctx, reviewer, v.ID, "")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestNewPendingVersionKeepsPublicStatus(t *testing.T) {
	f := newServiceFixture(t)
	ext, v := f.createExtension(t)
	ctx := context.Background()

	_, err := f.service.Publish(ctx, reviewer, v.ID, "")
	require.NoError(t, err)

	v2 := f.addVersion(t, ext.ID, "1.1.0")
	assert.Equal(t, StatusPending, v2.Status)

	got, err := f.store.GetExtension(ctx, ext.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPublic, got.Status)
}

func TestLastUpdatedSetOnce(t *testing.T) {
	f := newServiceFixture(t)
	ext, v := f.createExtension(t)
	ctx := context.Background()

	_, err := f.service.Publish(ctx, reviewer, v.ID, "")
	require.NoError(t, err)
	first, err := f.store.GetExtension(ctx, ext.ID)
	require.NoError(t, err)
	require.NotNil(t, first.LastUpdated)

	v2 := f.addVersion(t, ext.ID, "1.1.0")
	_, err = f.service.Publish(ctx, reviewer, v2.ID, "")
	require.NoError(t, err)

	second, err := f.store.GetExtension(ctx, ext.ID)
	require.NoError(t, err)
	require.NotNil(t, second.LastUpdated)
	assert.True(t, first.LastUpdated.Equal(*second.LastUpdated))
}

func TestDeletePublicVersionFallsBack(t *testing.T) {
	f := newServiceFixture(t)
	ext, v := f.createExtension(t)
	ctx := context.Background()

	_, err := f.service.Publish(ctx, reviewer, v.ID, "")
	require.NoError(t, err)
	v2 := f.addVersion(t, ext.ID, "1.1.0")

	require.NoError(t, f.service.DeleteVersion(ctx, author, v.ID))

	got, err := f.store.GetExtension(ctx, ext.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)

	// Deleting the remaining version empties the projection entirely.
	require.NoError(t, f.service.DeleteVersion(ctx, author, v2.ID))
	got, err = f.store.GetExtension(ctx, ext.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusNull, got.Status)
}

func TestBlockAndUnblock(t *testing.T) {
	f := newServiceFixture(t)
	ext, v := f.createExtension(t)
	ctx := context.Background()

	_, err := f.service.Publish(ctx, reviewer, v.ID, "")
	require.NoError(t, err)

	_, err = f.service.Block(ctx, reviewer, ext.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	blocked, err := f.service.Block(ctx, admin, ext.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusBlocked, blocked.Status)

	// Blocked extensions serve nothing, even to their authors.
	_, _, err = f.service.GetManifest(ctx, author, ext.Slug)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	_, err = f.service.GetExtension(ctx, visitor, ext.Slug)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	// Projection is frozen while blocked.
	res, err := f.store.AddVersion(ctx, &Version{ExtensionID: ext.ID, Version: "1.1.0"}, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusBlocked, res.Extension.Status)

	unblocked, err := f.service.Unblock(ctx, admin, ext.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusNull, unblocked.Status)
}

func TestBlockedEditRequiresAdmin(t *testing.T) {
	f := newServiceFixture(t)
	ext, _ := f.createExtension(t)
	ctx := context.Background()

	_, err := f.service.Block(ctx, admin, ext.ID)
	require.NoError(t, err)

	u := f.uploadArchive(t, buildArchive(t, map[string]string{
		"manifest.json": `{"name":"Tab Sync","version":"2.0.0"}`,
	}))
	_, err = f.service.AddVersion(ctx, author, ext.ID, u.ID, "")
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestDisabledPausesMutations(t *testing.T) {
	f := newServiceFixture(t)
	ext, v := f.createExtension(t)
	ctx := context.Background()

	disabled := true
	_, err := f.service.UpdateExtension(ctx, author, ext.ID, ExtensionPatch{Disabled: &disabled})
	require.NoError(t, err)

	// Everything but re-enabling waits.
	u := f.uploadArchive(t, buildArchive(t, map[string]string{
		"manifest.json": `{"name":"Tab Sync","version":"2.0.0"}`,
	}))
	_, err = f.service.AddVersion(ctx, author, ext.ID, u.ID, "")
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = f.service.Publish(ctx, reviewer, v.ID, "")
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	slug := "new-slug"
	_, err = f.service.UpdateExtension(ctx, author, ext.ID, ExtensionPatch{Slug: &slug})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	enabled := false
	updated, err := f.service.UpdateExtension(ctx, author, ext.ID, ExtensionPatch{Disabled: &enabled})
	require.NoError(t, err)
	assert.False(t, updated.Disabled)

	_, err = f.service.Publish(ctx, reviewer, v.ID, "")
	require.NoError(t, err)
}

func TestBlockRemovesFromIndex(t *testing.T) {
	f := newServiceFixture(t)
	ext, v := f.createExtension(t)
	ctx := context.Background()

	_, err := f.service.Publish(ctx, reviewer, v.ID, "")
	require.NoError(t, err)
	_, ok := f.indexer.Get(ext.ID)
	require.True(t, ok)

	_, err = f.service.Block(ctx, admin, ext.ID)
	require.NoError(t, err)
	_, ok = f.indexer.Get(ext.ID)
	assert.False(t, ok)

	// Unblocking reindexes with the reset status.
	_, err = f.service.Unblock(ctx, admin, ext.ID)
	require.NoError(t, err)
	doc, ok := f.indexer.Get(ext.ID)
	require.True(t, ok)
	assert.Equal(t, "", doc.Status)
}

func TestDeleteExtension(t *testing.T) {
	f := newServiceFixture(t)
	ext, _ := f.createExtension(t)
	ctx := context.Background()

	require.NoError(t, f.service.DeleteExtension(ctx, author, ext.ID))

	// Deletion hides the extension from everyone, owner included.
	_, err := f.service.GetExtension(ctx, author, ext.Slug)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, ok := f.indexer.Get(ext.ID)
	assert.False(t, ok)

	kinds := f.emitted.Kinds()
	assert.Equal(t, events.KindDeleted, kinds[len(kinds)-1])
}

func TestGetManifestAndToken(t *testing.T) {
	f := newServiceFixture(t)
	ext, v := f.createExtension(t)
	ctx := context.Background()

	// No public version yet.
	_, _, err := f.service.GetManifest(ctx, author, ext.Slug)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = f.service.Publish(ctx, reviewer, v.ID, "")
	require.NoError(t, err)

	m, token, err := f.service.GetManifest(ctx, anonymous, ext.Slug)
	require.NoError(t, err)
	assert.Equal(t, v.ID, m.VersionID)
	assert.Len(t, token, 64)

	// Stable across reads.
	_, token2, err := f.service.GetManifest(ctx, anonymous, ext.Slug)
	require.NoError(t, err)
	assert.Equal(t, token, token2)

	// A new published version changes the token.
	v2 := f.addVersion(t, ext.ID, "1.1.0")
	_, err = f.service.Publish(ctx, reviewer, v2.ID, "")
	require.NoError(t, err)

	m3, token3, err := f.service.GetManifest(ctx, anonymous, ext.Slug)
	require.NoError(t, err)
	assert.Equal(t, v2.ID, m3.VersionID)
	assert.NotEqual(t, token, token3)
}

func TestGetReviewerManifest(t *testing.T) {
	f := newServiceFixture(t)
	ext, v := f.createExtension(t)
	ctx := context.Background()

	m, _, err := f.service.GetReviewerManifest(ctx, reviewer, ext.Slug)
	require.NoError(t, err)
	assert.Equal(t, v.ID, m.VersionID)

	_, _, err = f.service.GetReviewerManifest(ctx, author, ext.Slug)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = f.service.Publish(ctx, reviewer, v.ID, "")
	require.NoError(t, err)
	_, _, err = f.service.GetReviewerManifest(ctx, reviewer, ext.Slug)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestDownloads(t *testing.T) {
	f := newServiceFixture(t)
	_, v := f.createExtension(t)
	ctx := context.Background()

	// Pending versions have no signed artifact and are invisible anyway.
	_, _, err := f.service.DownloadSigned(ctx, anonymous, v.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = f.service.Publish(ctx, reviewer, v.ID, "")
	require.NoError(t, err)

	rc, etag, err := f.service.DownloadSigned(ctx, anonymous, v.ID)
	require.NoError(t, err)
	assert.Len(t, etag, 64)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	rc.Close()
	assert.True(t, bytes.HasPrefix(data, []byte("signed:")))

	// Unsigned artifacts stay restricted.
	_, err = f.service.DownloadUnsigned(ctx, visitor, v.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	rc, err = f.service.DownloadUnsigned(ctx, author, v.ID)
	require.NoError(t, err)
	rc.Close()
}

func TestReviewQueueOrdering(t *testing.T) {
	f := newServiceFixture(t)
	ext, v1 := f.createExtension(t)
	v2 := f.addVersion(t, ext.ID, "1.1.0")
	ctx := context.Background()

	_, err := f.service.ReviewQueue(ctx, author, false)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	queue, err := f.service.ReviewQueue(ctx, reviewer, false)
	require.NoError(t, err)
	require.Len(t, queue, 2)
	assert.Equal(t, v1.ID, queue[0].Version.ID)
	assert.Equal(t, v2.ID, queue[1].Version.ID)

	// Published versions leave the queue.
	_, err = f.service.Publish(ctx, reviewer, v1.ID, "")
	require.NoError(t, err)
	queue, err = f.service.ReviewQueue(ctx, reviewer, false)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, v2.ID, queue[0].Version.ID)
}

func TestListVersionsVisibility(t *testing.T) {
	f := newServiceFixture(t)
	ext, v1 := f.createExtension(t)
	f.addVersion(t, ext.ID, "1.1.0")
	ctx := context.Background()

	_, err := f.service.Publish(ctx, reviewer, v1.ID, "")
	require.NoError(t, err)

	mine, err := f.service.ListVersions(ctx, author, ext.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	theirs, err := f.service.ListVersions(ctx, visitor, ext.ID)
	require.NoError(t, err)
	require.Len(t, theirs, 1)
	assert.Equal(t, v1.ID, theirs[0].ID)
}

func TestUpdateExtensionSlug(t *testing.T) {
	f := newServiceFixture(t)
	ext, _ := f.createExtension(t)
	ctx := context.Background()

	newSlug := "Tab Sync Pro"
	updated, err := f.service.UpdateExtension(ctx, author, ext.ID, ExtensionPatch{Slug: &newSlug})
	require.NoError(t, err)
	assert.Equal(t, "tab-sync-pro", updated.Slug)

	_, err = f.service.UpdateExtension(ctx, visitor, ext.ID, ExtensionPatch{Slug: &newSlug})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

// failingBlobStore refuses writes to paths containing deny until cleared
type failingBlobStore struct {
	blobstore.Store
	deny string
}

func (s *failingBlobStore) Put(ctx context.Context, path string, r io.Reader) (int64, error) {
	if s.deny != "" && strings.Contains(path, s.deny) {
		return 0, errors.New("blobstore unavailable")
	}
	return s.Store.Put(ctx, path, r)
}

func TestCreateExtensionBlobFailureLeavesNothing(t *testing.T) {
	f := newServiceFixture(t)
	flaky := &failingBlobStore{Store: f.private, deny: "/unsigned/"}
	f.service = NewService(f.store, flaky, f.public, f.signer, f.emitted, f.indexer, nil, testLogger(), nil)
	ctx := context.Background()

	u := f.uploadArchive(t, validArchive(t))
	_, _, err := f.service.CreateExtension(ctx, author, CreateExtensionRequest{UploadID: u.ID})
	require.Error(t, err)

	// The failed copy rolled the whole submission back.
	_, err = f.store.GetExtensionBySlug(ctx, "tab-sync")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Empty(t, f.emitted.Kinds())

	// After the store recovers the same upload submits and publishes cleanly.
	flaky.deny = ""
	_, v, err := f.service.CreateExtension(ctx, author, CreateExtensionRequest{UploadID: u.ID})
	require.NoError(t, err)
	published, err := f.service.Publish(ctx, reviewer, v.ID, "")
	require.NoError(t, err)
	assert.Equal(t, StatusPublic, published.Status)
}

func TestAddVersionBlobFailureKeepsVersionReusable(t *testing.T) {
	f := newServiceFixture(t)
	ext, _ := f.createExtension(t)
	ctx := context.Background()

	flaky := &failingBlobStore{Store: f.private, deny: "/unsigned/"}
	svc := NewService(f.store, flaky, f.public, f.signer, f.emitted, f.indexer, nil, testLogger(), nil)

	u := f.uploadArchive(t, buildArchive(t, map[string]string{
		"manifest.json": `{"name":"Tab Sync","version":"1.1.0"}`,
	}))
	_, err := svc.AddVersion(ctx, author, ext.ID, u.ID, "")
	require.Error(t, err)

	// The version row did not commit, so the string is still free.
	versions, err := f.store.ListVersions(ctx, ext.ID)
	require.NoError(t, err)
	assert.Len(t, versions, 1)

	flaky.deny = ""
	v2, err := svc.AddVersion(ctx, author, ext.ID, u.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "1.1.0", v2.Version)

	exists, err := f.private.Exists(ctx, UnsignedBlobPath(ext.UUID, v2.ID))
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestEventMessages(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	u := f.uploadArchive(t, validArchive(t))
	ext, v, err := f.service.CreateExtension(ctx, author, CreateExtensionRequest{
		UploadID: u.ID,
		Message:  "first release",
	})
	require.NoError(t, err)

	_, err = f.service.Publish(ctx, reviewer, v.ID, "looks good")
	require.NoError(t, err)

	u2 := f.uploadArchive(t, buildArchive(t, map[string]string{
		"manifest.json": `{"name":"Tab Sync","version":"1.1.0"}`,
	}))
	v2, err := f.service.AddVersion(ctx, author, ext.ID, u2.ID, "fixes tab ordering")
	require.NoError(t, err)
	_, err = f.service.Reject(ctx, reviewer, v2.ID, "breaks tab ordering further")
	require.NoError(t, err)

	require.Len(t, f.emitted.Events, 4)
	assert.Equal(t, "first release", f.emitted.Events[0].Message)
	assert.Equal(t, "looks good", f.emitted.Events[1].Message)
	assert.Equal(t, "fixes tab ordering", f.emitted.Events[2].Message)
	assert.Equal(t, "breaks tab ordering further", f.emitted.Events[3].Message)
}
