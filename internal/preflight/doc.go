// Package preflight checks that a configuration can actually run: directories
// are writable, the state stores answer, and the agent, speech and Kafka
// endpoints accept connections.
package preflight
