package blobstore

import (
	"context"
	"io"
	"time"

	"github.com/platinummonkey/hubcap/pkg/observability"
)

// InstrumentedStore wraps a Store with operation counters and latency
// histograms. name labels the metrics, e.g. "private" or "public".
type InstrumentedStore struct {
	inner   Store
	name    string
	metrics *observability.Metrics
}

// Instrument wraps store with metrics. A nil metrics returns store unchanged.
func Instrument(store Store, name string, metrics *observability.Metrics) Store {
	if metrics == nil {
		return store
	}
	return &InstrumentedStore{inner: store, name: name, metrics: metrics}
}

func (s *InstrumentedStore) observe(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.BlobOperationsTotal.WithLabelValues(operation, s.name, status).Inc()
	s.metrics.BlobOperationDuration.WithLabelValues(operation, s.name).Observe(time.Since(start).Seconds())
}

// Put stores the blob and records the operation
func (s *InstrumentedStore) Put(ctx context.Context, path string, r io.Reader) (int64, error) {
	start := time.Now()
	n, err := s.inner.Put(ctx, path, r)
	s.observe("put", start, err)
	return n, err
}

// Get opens the blob and records the operation. ErrNotFound counts as an
// error; absent blobs on the read path are unexpected.
func (s *InstrumentedStore) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	start := time.Now()
	rc, err := s.inner.Get(ctx, path)
	s.observe("get", start, err)
	return rc, err
}

// Delete removes the blob and records the operation
func (s *InstrumentedStore) Delete(ctx context.Context, path string) (int64, error) {
	start := time.Now()
	n, err := s.inner.Delete(ctx, path)
	s.observe("delete", start, err)
	return n, err
}

// Exists reports blob presence and records the operation
func (s *InstrumentedStore) Exists(ctx context.Context, path string) (bool, error) {
	start := time.Now()
	ok, err := s.inner.Exists(ctx, path)
	s.observe("exists", start, err)
	return ok, err
}
