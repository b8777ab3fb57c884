// Package cards defines the registry of supported card types. Each type
// carries a capability descriptor (supported styles, required extras,
// logo usage) that the settings resolver validates against, so a bad
// card type or missing extra is caught during resolution rather than at
// render time.
package cards
