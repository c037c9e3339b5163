package cleanup

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/hubcap/pkg/blobstore"
	"github.com/platinummonkey/hubcap/pkg/extensions"
	"github.com/platinummonkey/hubcap/pkg/observability"
)

func testLogger() *observability.Logger {
	return observability.NewLogger(observability.ErrorLevel, io.Discard)
}

type sweepFixture struct {
	store   *extensions.MemoryStore
	private *blobstore.MemoryStore
	public  *blobstore.MemoryStore
	sweeper *Sweeper
}

func newSweepFixture(t *testing.T) *sweepFixture {
	t.Helper()
	f := &sweepFixture{
		store:   extensions.NewMemoryStore(),
		private: blobstore.NewMemoryStore(),
		public:  blobstore.NewMemoryStore(),
	}
	f.sweeper = NewSweeper(f.store, f.private, f.public, testLogger(), nil)
	return f
}

// seedDeletedVersion creates an extension with a soft-deleted version whose
// blobs still exist
func (f *sweepFixture) seedDeletedVersion(t *testing.T, slug string, withSigned bool) (string, int64) {
	t.Helper()
	ctx := context.Background()

	ext := &extensions.Extension{UUID: "uuid-" + slug, Slug: slug, Name: slug, AuthorIDs: []int64{1}}
	first := &extensions.Version{Version: "1.0.0"}
	require.NoError(t, f.store.CreateExtension(ctx, ext, first, nil))

	_, err := f.private.Put(ctx, extensions.UnsignedBlobPath(ext.UUID, first.ID), strings.NewReader("unsigned bytes"))
	require.NoError(t, err)
	if withSigned {
		_, err = f.public.Put(ctx, extensions.SignedBlobPath(ext.UUID, first.ID), strings.NewReader("signed bytes!"))
		require.NoError(t, err)
	}

	_, err = f.store.DeleteVersion(ctx, first.ID)
	require.NoError(t, err)
	return ext.UUID, first.ID
}

func TestSweepRemovesBlobs(t *testing.T) {
	f := newSweepFixture(t)
	uuid, versionID := f.seedDeletedVersion(t, "tab-sync", true)
	ctx := context.Background()

	result, err := f.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.VersionsSwept)
	assert.Equal(t, 2, result.BlobsRemoved)
	assert.Equal(t, int64(len("unsigned bytes")+len("signed bytes!")), result.BytesRemoved)

	exists, err := f.private.Exists(ctx, extensions.UnsignedBlobPath(uuid, versionID))
	require.NoError(t, err)
	assert.False(t, exists)
	exists, err = f.public.Exists(ctx, extensions.SignedBlobPath(uuid, versionID))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSweepIdempotent(t *testing.T) {
	f := newSweepFixture(t)
	f.seedDeletedVersion(t, "tab-sync", true)
	ctx := context.Background()

	_, err := f.sweeper.Sweep(ctx)
	require.NoError(t, err)

	// Swept versions are not revisited.
	result, err := f.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.VersionsSwept)
	assert.Equal(t, 0, result.BlobsRemoved)
}

func TestSweepHandlesMissingSignedBlob(t *testing.T) {
	f := newSweepFixture(t)
	f.seedDeletedVersion(t, "tab-sync", false)

	result, err := f.sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.VersionsSwept)
	assert.Equal(t, 1, result.BlobsRemoved)
}

func TestSweepNothingToDo(t *testing.T) {
	f := newSweepFixture(t)
	result, err := f.sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SweepResult{}, result)
}
