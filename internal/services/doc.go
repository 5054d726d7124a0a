// Package services defines shared utilities consumed by the generation
// pipeline, the workflow actor, and the external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp episode IDs, pipeline step names, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that tag failures with a
//     stable kind (not_found, precondition, conflict, decode, storage, ...)
//     so the API and event consumers can classify them without string matching.
//
// Use these helpers when wiring new collaborators so operational behaviour
// (error handling, observability) stays uniform across the service.
package services
