// Package search maintains the denormalized extension index.
//
// The search engine itself is external; this package defines the document
// shape it consumes and the Indexer interface the lifecycle orchestrator
// drives: publish indexes a fresh document, delete and block remove it.
// Indexing is best-effort and never fails a lifecycle operation.
//
// The in-memory indexer backs the catalog listing endpoints in deployments
// without an external engine, and doubles as the test double.
package search
