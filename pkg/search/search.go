package search

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/platinummonkey/hubcap/pkg/observability"
)

// VersionRef identifies the newest public version inside a document
type VersionRef struct {
	ID      int64  `json:"id"`
	Version string `json:"version"`
}

// Document is the denormalized projection of one extension
type Document struct {
	ID                  int64       `json:"id"`
	UUID                string      `json:"uuid"`
	Slug                string      `json:"slug"`
	Name                string      `json:"name"`
	Author              string      `json:"author"`
	Description         string      `json:"description"`
	Status              string      `json:"status"`
	IsDisabled          bool        `json:"is_disabled"`
	IsDeleted           bool        `json:"is_deleted"`
	LatestPublicVersion *VersionRef `json:"latest_public_version,omitempty"`
	LastUpdated         *time.Time  `json:"last_updated,omitempty"`
	IconHash            string      `json:"icon_hash,omitempty"`
}

// Query filters the index. Zero values match everything.
type Query struct {
	Term           string
	Status         string
	IncludeDeleted bool
	Limit          int
}

// Indexer maintains the extension index
type Indexer interface {
	// Index upserts the document for an extension
	Index(ctx context.Context, doc Document) error

	// Remove drops an extension from the index
	Remove(ctx context.Context, extensionID int64) error
}

// Searcher answers queries against the index. Not every Indexer can search;
// the log-backed one only records writes.
type Searcher interface {
	Search(ctx context.Context, q Query) []Document
}

// MemoryIndexer is an in-process index used in development and tests
type MemoryIndexer struct {
	mu   sync.RWMutex
	docs map[int64]Document
}

// NewMemoryIndexer creates an empty index
func NewMemoryIndexer() *MemoryIndexer {
	return &MemoryIndexer{docs: make(map[int64]Document)}
}

// Index upserts the document
func (m *MemoryIndexer) Index(ctx context.Context, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID] = doc
	return nil
}

// Remove drops the document
func (m *MemoryIndexer) Remove(ctx context.Context, extensionID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, extensionID)
	return nil
}

// Get returns the indexed document for an extension, if any
func (m *MemoryIndexer) Get(extensionID int64) (Document, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[extensionID]
	return doc, ok
}

// Search returns documents matching the query, newest first by id
func (m *MemoryIndexer) Search(ctx context.Context, q Query) []Document {
	m.mu.RLock()
	defer m.mu.RUnlock()

	term := strings.ToLower(q.Term)
	var out []Document
	for _, doc := range m.docs {
		if doc.IsDeleted && !q.IncludeDeleted {
			continue
		}
		if q.Status != "" && doc.Status != q.Status {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(doc.Name), term) &&
			!strings.Contains(strings.ToLower(doc.Slug), term) &&
			!strings.Contains(strings.ToLower(doc.Description), term) {
			continue
		}
		out = append(out, doc)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// LogIndexer records index operations to the structured log. Used when no
// external engine is wired.
type LogIndexer struct {
	logger *observability.Logger
}

// NewLogIndexer creates a log-backed indexer
func NewLogIndexer(logger *observability.Logger) *LogIndexer {
	return &LogIndexer{logger: logger}
}

// Index logs the upsert
func (l *LogIndexer) Index(ctx context.Context, doc Document) error {
	l.logger.WithField("extension_id", doc.ID).WithField("slug", doc.Slug).Debug("index document")
	return nil
}

// Remove logs the removal
func (l *LogIndexer) Remove(ctx context.Context, extensionID int64) error {
	l.logger.WithField("extension_id", extensionID).Debug("remove document")
	return nil
}
