// Package events emits lifecycle events to downstream consumers.
//
// Every successful lifecycle transition produces exactly one event, emitted
// after the transaction commits. Delivery is best-effort at-least-once:
// consumers must dedupe on the event id. The webhook emitter signs payloads
// with HMAC-SHA256 so receivers can verify origin; the log emitter just
// records events for environments without a consumer.
package events
