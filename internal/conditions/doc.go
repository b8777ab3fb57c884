// Package conditions evaluates template filter conditions against an
// episode's typed attribute set. Attribute values are a tagged variant
// (string, number, bool) with typed dispatch per operator; any missing
// attribute, type mismatch, or bad pattern fails closed to false and is
// logged rather than surfaced as an error.
package conditions
