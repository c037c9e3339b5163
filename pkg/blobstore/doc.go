// Package blobstore provides artifact blob storage behind a small interface.
//
// Two stores exist at runtime: the private store holds unsigned uploads and
// the public store holds signed artifacts. Delete reports the number of bytes
// removed and treats an absent blob as a successful no-op, which lets callers
// account for reclaimed space without a prior existence check.
//
// Implementations: S3 (aws-sdk-go-v2, also serves MinIO via path-style
// addressing), local filesystem for development, and an in-memory store for
// tests.
package blobstore
