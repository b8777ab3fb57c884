// Package assets resolves the external files a render depends on (source
// images, font files, logos) and reports their identity for
// fingerprinting. A missing required asset is classified so the build
// coordinator can short-circuit before charging a renderer attempt.
package assets
