package cleanup

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/platinummonkey/hubcap/pkg/blobstore"
	"github.com/platinummonkey/hubcap/pkg/extensions"
	"github.com/platinummonkey/hubcap/pkg/observability"
)

// defaultBatchSize bounds how many versions one sweep touches
const defaultBatchSize = 500

// Sweeper purges the unsigned and signed artifacts of soft-deleted versions
type Sweeper struct {
	store     extensions.Store
	private   blobstore.Store
	public    blobstore.Store
	logger    *observability.Logger
	metrics   *observability.Metrics
	batchSize int

	cron *cron.Cron
}

// NewSweeper creates a sweeper. metrics may be nil.
func NewSweeper(store extensions.Store, private, public blobstore.Store,
	logger *observability.Logger, metrics *observability.Metrics) *Sweeper {
	return &Sweeper{
		store:     store,
		private:   private,
		public:    public,
		logger:    logger,
		metrics:   metrics,
		batchSize: defaultBatchSize,
	}
}

// SweepResult summarizes one sweep pass
type SweepResult struct {
	VersionsSwept int
	BlobsRemoved  int
	BytesRemoved  int64
}

// Sweep removes the artifacts of every unswept deleted version, then marks
// them swept. A failure on one version skips it and moves on; it stays
// unswept and the next run retries.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	refs, err := s.store.ListSweepableBlobs(ctx, s.batchSize)
	if err != nil {
		return result, err
	}

	for _, ref := range refs {
		removed, bytes, err := s.sweepOne(ctx, ref)
		if err != nil {
			s.logger.WithError(err).WithField("version_id", ref.VersionID).Warn("sweep failed for version")
			continue
		}
		result.VersionsSwept++
		result.BlobsRemoved += removed
		result.BytesRemoved += bytes
	}

	if s.metrics != nil {
		s.metrics.CleanupSweepsTotal.Inc()
		s.metrics.CleanupBlobsRemovedTotal.Add(float64(result.BlobsRemoved))
	}
	if result.VersionsSwept > 0 {
		s.logger.WithFields(map[string]interface{}{
			"versions": result.VersionsSwept,
			"blobs":    result.BlobsRemoved,
			"bytes":    result.BytesRemoved,
		}).Info("cleanup sweep completed")
	}
	return result, nil
}

func (s *Sweeper) sweepOne(ctx context.Context, ref extensions.BlobRef) (int, int64, error) {
	var removed int
	var bytes int64

	n, err := s.private.Delete(ctx, extensions.UnsignedBlobPath(ref.ExtensionUUID, ref.VersionID))
	if err != nil {
		return 0, 0, err
	}
	if n > 0 {
		removed++
		bytes += n
	}

	n, err = s.public.Delete(ctx, extensions.SignedBlobPath(ref.ExtensionUUID, ref.VersionID))
	if err != nil {
		return 0, 0, err
	}
	if n > 0 {
		removed++
		bytes += n
	}

	if err := s.store.MarkBlobsSwept(ctx, ref.VersionID); err != nil {
		return 0, 0, err
	}
	return removed, bytes, nil
}

// Start schedules recurring sweeps. schedule is a cron expression such as
// "@hourly".
func (s *Sweeper) Start(schedule string) error {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.WithError(err).Error("scheduled sweep failed")
		}
	})
	if err != nil {
		return err
	}
	c.Start()
	s.cron = c
	s.logger.WithField("schedule", schedule).Info("cleanup sweeper started")
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}
