// Package daemonrun assembles podstudio's components from configuration.
//
// Build opens the workflow state backend and wires the actor, listeners,
// orchestrator and runner; the CLI uses it for one-shot commands. Run is the
// serve entrypoint: it adds signal handling, the pid file and file logging
// around a daemon.Daemon.
package daemonrun
