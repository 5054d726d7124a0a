// Package pipeline implements the generation orchestrator: the fixed
// sequence of steps that turns an episode record into a persisted transcript
// and a published audio artifact.
//
// Steps run in order and the first failure aborts the run. The transcript
// row and the audio artifact row are written independently, so a failure
// between them leaves a transcript without audio. Callers record the
// outcome through the workflow actor.
package pipeline
