// Package library holds the entity read model the engine consumes:
// series, episodes, templates, and fonts, loaded from a declarative TOML
// file maintained outside the engine. It also derives the typed
// attribute set the condition evaluator matches templates against.
package library
