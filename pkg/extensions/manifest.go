package extensions

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/platinummonkey/hubcap/pkg/observability"
)

// Manifest is the serving document for an extension, derived from the
// extension row and one of its versions
type Manifest struct {
	ID          int64           `json:"id"`
	UUID        string          `json:"uuid"`
	Slug        string          `json:"slug"`
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	VersionID   int64           `json:"version_id"`
	Author      string          `json:"author,omitempty"`
	Description string          `json:"description,omitempty"`
	IconHash    string          `json:"icon_hash,omitempty"`
	Manifest    json.RawMessage `json:"manifest"`
}

// BuildManifest assembles the serving document from an extension and the
// version that backs it
func BuildManifest(ext *Extension, v *Version) *Manifest {
	return &Manifest{
		ID:          ext.ID,
		UUID:        ext.UUID,
		Slug:        ext.Slug,
		Name:        ext.Name,
		Version:     v.Version,
		VersionID:   v.ID,
		Author:      ext.Author,
		Description: ext.Description,
		IconHash:    ext.IconHash,
		Manifest:    v.Manifest,
	}
}

// ComputeToken derives the cache token for a manifest. The token folds in the
// extension uuid, the backing version id, and a digest of the manifest
// content, so it is stable across no-op re-saves and changes exactly when
// identity or content changes.
func ComputeToken(extensionUUID string, versionID int64, manifest json.RawMessage) string {
	content := canonicalize(manifest)
	contentDigest := sha256.Sum256(content)

	h := sha256.New()
	fmt.Fprintf(h, "%s:%d:%s", extensionUUID, versionID, hex.EncodeToString(contentDigest[:]))
	return hex.EncodeToString(h.Sum(nil))
}

// canonicalize re-encodes JSON so formatting differences do not change the
// digest. Unparsable input digests as-is.
func canonicalize(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return raw
	}
	out, err := json.Marshal(v)
	if err != nil {
		return raw
	}
	return out
}

// TokenCache memoizes manifest tokens through an in-process LRU in front of
// Redis. Every layer is optional and every failure is soft: a cache problem
// means recomputing the token, never an error.
type TokenCache struct {
	l1     *lru.Cache[string, string]
	redis  *redis.Client
	ttl    time.Duration
	logger *observability.Logger

	metrics *observability.Metrics
}

// NewTokenCache creates a two-tier token cache. redisClient may be nil.
func NewTokenCache(l1Size int, redisClient *redis.Client, ttl time.Duration, logger *observability.Logger, metrics *observability.Metrics) (*TokenCache, error) {
	if l1Size <= 0 {
		l1Size = 1024
	}
	l1, err := lru.New[string, string](l1Size)
	if err != nil {
		return nil, fmt.Errorf("failed to create L1 cache: %w", err)
	}
	return &TokenCache{
		l1:      l1,
		redis:   redisClient,
		ttl:     ttl,
		logger:  logger,
		metrics: metrics,
	}, nil
}

func tokenKey(extensionID int64, variant string) string {
	return fmt.Sprintf("hubcap:manifest-token:%d:%s", extensionID, variant)
}

// Get returns the memoized token for an extension's manifest variant
func (c *TokenCache) Get(ctx context.Context, extensionID int64, variant string) (string, bool) {
	key := tokenKey(extensionID, variant)

	if token, ok := c.l1.Get(key); ok {
		c.hit("lru")
		return token, true
	}
	c.miss("lru")

	if c.redis == nil {
		return "", false
	}

	token, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.WithError(err).Debug("redis token read failed")
		}
		c.miss("redis")
		return "", false
	}

	c.hit("redis")
	c.l1.Add(key, token)
	return token, true
}

// Set memoizes a token
func (c *TokenCache) Set(ctx context.Context, extensionID int64, variant, token string) {
	key := tokenKey(extensionID, variant)
	c.l1.Add(key, token)

	if c.redis == nil {
		return
	}
	if err := c.redis.Set(ctx, key, token, c.ttl).Err(); err != nil {
		c.logger.WithError(err).Debug("redis token write failed")
	}
}

// Invalidate drops every memoized variant for an extension. Called on any
// version mutation or administrative manifest edit.
func (c *TokenCache) Invalidate(ctx context.Context, extensionID int64) {
	for _, variant := range []string{VariantPublic, VariantReviewer} {
		key := tokenKey(extensionID, variant)
		c.l1.Remove(key)
		if c.redis != nil {
			if err := c.redis.Del(ctx, key).Err(); err != nil {
				c.logger.WithError(err).Debug("redis token invalidation failed")
			}
		}
	}
}

func (c *TokenCache) hit(tier string) {
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.WithLabelValues(tier).Inc()
	}
}

func (c *TokenCache) miss(tier string) {
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.WithLabelValues(tier).Inc()
	}
}

// Manifest variants
const (
	// VariantPublic serves the latest public version
	VariantPublic = "public"
	// VariantReviewer serves the latest pending version to reviewers
	VariantReviewer = "reviewer"
)
