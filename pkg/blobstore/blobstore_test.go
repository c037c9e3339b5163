package blobstore

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreContract exercises the behavior every Store implementation shares
func runStoreContract(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("put and get round trip", func(t *testing.T) {
		n, err := store.Put(ctx, "extensions/u1/unsigned/1.zip", strings.NewReader("payload"))
		require.NoError(t, err)
		assert.Equal(t, int64(7), n)

		rc, err := store.Get(ctx, "extensions/u1/unsigned/1.zip")
		require.NoError(t, err)
		defer rc.Close()

		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "payload", string(data))
	})

	t.Run("get absent", func(t *testing.T) {
		_, err := store.Get(ctx, "extensions/none/signed/9.zip")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("exists", func(t *testing.T) {
		_, err := store.Put(ctx, "extensions/u2/signed/2.zip", strings.NewReader("abc"))
		require.NoError(t, err)

		ok, err := store.Exists(ctx, "extensions/u2/signed/2.zip")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.Exists(ctx, "extensions/u2/signed/3.zip")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("delete reports bytes removed", func(t *testing.T) {
		_, err := store.Put(ctx, "extensions/u3/signed/4.zip", strings.NewReader("12345"))
		require.NoError(t, err)

		removed, err := store.Delete(ctx, "extensions/u3/signed/4.zip")
		require.NoError(t, err)
		assert.Equal(t, int64(5), removed)

		ok, err := store.Exists(ctx, "extensions/u3/signed/4.zip")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("delete absent is a no-op", func(t *testing.T) {
		removed, err := store.Delete(ctx, "extensions/u3/signed/4.zip")
		require.NoError(t, err)
		assert.Zero(t, removed)
	})

	t.Run("overwrite replaces content", func(t *testing.T) {
		_, err := store.Put(ctx, "extensions/u4/unsigned/5.zip", strings.NewReader("old"))
		require.NoError(t, err)
		_, err = store.Put(ctx, "extensions/u4/unsigned/5.zip", strings.NewReader("newer"))
		require.NoError(t, err)

		rc, err := store.Get(ctx, "extensions/u4/unsigned/5.zip")
		require.NoError(t, err)
		defer rc.Close()

		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "newer", string(data))
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, NewMemoryStore())
}

func TestFilesystemStore(t *testing.T) {
	store, err := NewFilesystemStore(t.TempDir())
	require.NoError(t, err)
	runStoreContract(t, store)
}

func TestFilesystemStoreRejectsEscape(t *testing.T) {
	root := t.TempDir()
	store, err := NewFilesystemStore(root)
	require.NoError(t, err)

	// Traversal components collapse inside the root instead of escaping it.
	n, err := store.Put(context.Background(), "../../etc/passwd", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	ok, err := store.Exists(context.Background(), "etc/passwd")
	require.NoError(t, err)
	assert.True(t, ok)
}
