// Package templates selects the first fully-matching template from an
// ordered assignment list.
package templates
