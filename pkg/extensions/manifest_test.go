package extensions

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/hubcap/pkg/observability"
)

func testLogger() *observability.Logger {
	return observability.NewLogger(observability.ErrorLevel, io.Discard)
}

func TestComputeTokenStable(t *testing.T) {
	manifest := json.RawMessage(`{"name":"tab-sync","version":"1.2.0"}`)

	a := ComputeToken("uuid-1", 5, manifest)
	b := ComputeToken("uuid-1", 5, manifest)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestComputeTokenIgnoresFormatting(t *testing.T) {
	compact := json.RawMessage(`{"name":"tab-sync","version":"1.2.0"}`)
	spaced := json.RawMessage("{\n  \"name\": \"tab-sync\",\n  \"version\": \"1.2.0\"\n}")

	assert.Equal(t, ComputeToken("uuid-1", 5, compact), ComputeToken("uuid-1", 5, spaced))
}

func TestComputeTokenChanges(t *testing.T) {
	manifest := json.RawMessage(`{"name":"tab-sync"}`)
	base := ComputeToken("uuid-1", 5, manifest)

	assert.NotEqual(t, base, ComputeToken("uuid-2", 5, manifest))
	assert.NotEqual(t, base, ComputeToken("uuid-1", 6, manifest))
	assert.NotEqual(t, base, ComputeToken("uuid-1", 5, json.RawMessage(`{"name":"other"}`)))
}

func TestTokenCacheL1Only(t *testing.T) {
	cache, err := NewTokenCache(16, nil, time.Minute, testLogger(), nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, ok := cache.Get(ctx, 1, VariantPublic)
	assert.False(t, ok)

	cache.Set(ctx, 1, VariantPublic, "token-a")
	got, ok := cache.Get(ctx, 1, VariantPublic)
	require.True(t, ok)
	assert.Equal(t, "token-a", got)

	// Variants are independent.
	_, ok = cache.Get(ctx, 1, VariantReviewer)
	assert.False(t, ok)

	cache.Invalidate(ctx, 1)
	_, ok = cache.Get(ctx, 1, VariantPublic)
	assert.False(t, ok)
}

func TestTokenCacheRedisTier(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	cache, err := NewTokenCache(16, client, time.Minute, testLogger(), nil)
	require.NoError(t, err)
	ctx := context.Background()

	cache.Set(ctx, 7, VariantPublic, "token-b")

	// A fresh cache with an empty L1 falls through to redis.
	fresh, err := NewTokenCache(16, client, time.Minute, testLogger(), nil)
	require.NoError(t, err)
	got, ok := fresh.Get(ctx, 7, VariantPublic)
	require.True(t, ok)
	assert.Equal(t, "token-b", got)

	fresh.Invalidate(ctx, 7)
	_, ok = fresh.Get(ctx, 7, VariantPublic)
	assert.False(t, ok)

	again, err := NewTokenCache(16, client, time.Minute, testLogger(), nil)
	require.NoError(t, err)
	_, ok = again.Get(ctx, 7, VariantPublic)
	assert.False(t, ok)
}

func TestTokenCacheSurvivesRedisOutage(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	mr.Close()

	cache, err := NewTokenCache(16, client, time.Minute, testLogger(), nil)
	require.NoError(t, err)
	ctx := context.Background()

	cache.Set(ctx, 3, VariantPublic, "token-c")
	got, ok := cache.Get(ctx, 3, VariantPublic)
	require.True(t, ok)
	assert.Equal(t, "token-c", got)
	cache.Invalidate(ctx, 3)
}

func TestBuildManifest(t *testing.T) {
	ext := &Extension{
		ID:          1,
		UUID:        "uuid-1",
		Slug:        "tab-sync",
		Name:        "Tab Sync",
		Author:      "jo",
		Description: "sync tabs",
		IconHash:    "abc123",
	}
	v := &Version{ID: 5, Version: "1.2.0", Manifest: json.RawMessage(`{"name":"Tab Sync"}`)}

	m := BuildManifest(ext, v)
	assert.Equal(t, int64(1), m.ID)
	assert.Equal(t, "uuid-1", m.UUID)
	assert.Equal(t, "tab-sync", m.Slug)
	assert.Equal(t, "1.2.0", m.Version)
	assert.Equal(t, int64(5), m.VersionID)
	assert.JSONEq(t, `{"name":"Tab Sync"}`, string(m.Manifest))
}
