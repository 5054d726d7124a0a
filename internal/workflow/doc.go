// Package workflow owns the per-episode generation lifecycle.
//
// The Actor is the single authority on whether a generation run may start and
// how far it has progressed. Every episode id maps to one partition whose
// operations are strictly serialized; different episodes never contend. State
// is read from and written to a StateStore (SQLite or Redis) before each
// operation returns, so a restarted process sees exactly what the previous one
// persisted.
//
// The Runner composes the Actor with the generation pipeline: it admits a run
// via Start, forwards pipeline progress as Updates, and records the outcome
// with Complete or Fail. The Sweeper fails runs that exceed the configured
// ceiling, covering pipelines that crashed without reporting back.
package workflow
