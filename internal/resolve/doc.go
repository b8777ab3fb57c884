// Package resolve flattens the layered card settings (global, series,
// template, episode) into the resolved configuration for one episode.
// Every overridable field is an explicit Optional so "unset inherits"
// and "explicitly blank" stay distinct, and extras maps merge key-wise
// under the same priority order.
package resolve
