// Package store persists episodes, guests, transcripts, audio artifacts, and
// workflow state in a single SQLite database.
//
// Transcript and audio-artifact rows are append-only. A UNIQUE(episode_id,
// version) constraint backs the version arithmetic the pipeline performs, so
// a collision surfaces as a storage error rather than a silent duplicate.
// Writes retry briefly on SQLITE_BUSY; every other failure is wrapped with
// services.ErrStorage.
package store
