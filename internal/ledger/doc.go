// Package ledger persists the per-episode record of the last successful
// card build: fingerprint, artifact path, status, and timestamps, backed
// by SQLite. Mutation is keyed by episode id through transactional
// upserts, so writes for distinct episodes never contend on application
// state.
package ledger
