// Package builder coordinates card builds for a batch of episodes. Plan
// resolves configuration, fingerprints every episode against the ledger,
// and decides what needs work; Execute dispatches the resulting tasks
// onto a bounded worker pool with per-episode single-flight, bounded
// retries for transient renderer failures, and partial-failure isolation
// so every planned episode yields exactly one outcome.
package builder
