// Package daemon coordinates the long-running podstudio process.
//
// It wires the workflow actor, the timeout sweeper and the HTTP API into a
// single lifecycle with flock-based locking so only one instance serves a data
// directory. On start it fails runs orphaned by a previous process; on stop it
// stops accepting requests, cancels in-flight runs and waits for them to
// record their outcome.
//
// Keep orchestration logic here: the generation steps live in pipeline and
// the state rules in workflow.
package daemon
