// Package fingerprint derives the deterministic content hash that decides
// whether an episode's card must be rebuilt. The hash covers the resolved
// configuration, the resolved font bundle, the identity of every source
// asset the render depends on, and a schema version bumped whenever the
// renderer's visual semantics change for equivalent inputs.
package fingerprint
