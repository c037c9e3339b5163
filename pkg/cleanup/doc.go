// Package cleanup reclaims the blob storage of soft-deleted versions.
//
// Deletion in the API is a soft flag; the archives stay on disk until the
// sweeper collects them on a cron schedule. Sweeps are idempotent: removing
// an already-absent blob is a no-op, so a crash between deleting blobs and
// recording the sweep just means the next run does the same work again.
package cleanup
