// Package services holds cross-cutting helpers shared by the engine
// components: sentinel error markers with classification helpers and
// context plumbing for correlation fields.
package services
