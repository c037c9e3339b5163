// Package signing wraps the external artifact signing service.
//
// Publishing a version sends the unsigned artifact to the signer and stores
// the returned signed artifact before any status change is committed, so a
// signing failure leaves nothing published. Signer failures are retryable
// dependency failures, never fatal.
package signing
