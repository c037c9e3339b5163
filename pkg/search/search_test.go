package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedIndex(t *testing.T) *MemoryIndexer {
	t.Helper()
	idx := NewMemoryIndexer()
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, Document{ID: 1, Slug: "dark-mode", Name: "Dark Mode", Status: "public"}))
	require.NoError(t, idx.Index(ctx, Document{ID: 2, Slug: "ad-shield", Name: "Ad Shield", Description: "blocks ads", Status: "public"}))
	require.NoError(t, idx.Index(ctx, Document{ID: 3, Slug: "beta-tool", Name: "Beta Tool", Status: "pending"}))
	require.NoError(t, idx.Index(ctx, Document{ID: 4, Slug: "gone", Name: "Gone", Status: "public", IsDeleted: true}))
	return idx
}

func TestMemoryIndexerUpsert(t *testing.T) {
	idx := NewMemoryIndexer()
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, Document{ID: 1, Slug: "one", Status: "pending"}))
	require.NoError(t, idx.Index(ctx, Document{ID: 1, Slug: "one", Status: "public"}))

	doc, ok := idx.Get(1)
	require.True(t, ok)
	assert.Equal(t, "public", doc.Status)
}

func TestMemoryIndexerRemove(t *testing.T) {
	idx := seedIndex(t)

	require.NoError(t, idx.Remove(context.Background(), 1))
	_, ok := idx.Get(1)
	assert.False(t, ok)

	// Removing an absent document is a no-op.
	assert.NoError(t, idx.Remove(context.Background(), 99))
}

func TestSearchByTerm(t *testing.T) {
	idx := seedIndex(t)

	docs := idx.Search(context.Background(), Query{Term: "ads"})
	require.Len(t, docs, 1)
	assert.Equal(t, "ad-shield", docs[0].Slug)

	docs = idx.Search(context.Background(), Query{Term: "dark"})
	require.Len(t, docs, 1)
	assert.Equal(t, "dark-mode", docs[0].Slug)
}

func TestSearchByStatus(t *testing.T) {
	idx := seedIndex(t)

	docs := idx.Search(context.Background(), Query{Status: "pending"})
	require.Len(t, docs, 1)
	assert.Equal(t, "beta-tool", docs[0].Slug)
}

func TestSearchExcludesDeletedByDefault(t *testing.T) {
	idx := seedIndex(t)

	for _, doc := range idx.Search(context.Background(), Query{}) {
		assert.NotEqual(t, "gone", doc.Slug)
	}

	docs := idx.Search(context.Background(), Query{IncludeDeleted: true})
	slugs := make([]string, len(docs))
	for i, d := range docs {
		slugs[i] = d.Slug
	}
	assert.Contains(t, slugs, "gone")
}

func TestSearchOrderAndLimit(t *testing.T) {
	idx := seedIndex(t)

	docs := idx.Search(context.Background(), Query{Limit: 2})
	require.Len(t, docs, 2)
	assert.Greater(t, docs[0].ID, docs[1].ID)
}
