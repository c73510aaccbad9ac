// Package validation provides centralized input validation logic.
// This includes run configuration checks, blob name checks and concurrency bounds.
//
// A run configuration is validated before any upload I/O happens so that a
// rejected run has no side effects.
package validation
