// Package render wraps the external image-compositing tool behind a small
// client interface. The tool is an opaque black box: the engine hands it
// a resolved configuration plus source-asset paths and receives an
// artifact path or an error.
package render
