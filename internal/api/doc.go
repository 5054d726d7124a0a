// Package api exposes the episode workflow over HTTP.
//
// Routes:
//
//	POST /api/episodes/:id/generate  start a run, 202 with the new state
//	GET  /api/episodes/:id/status    current workflow state
//	POST /api/episodes/:id/reset     return the record to idle
//	GET  /api/health                 liveness and in-flight run count
//
// When a token is configured every route except health requires
// "Authorization: Bearer <token>". Errors are rendered as
// {"error": "...", "kind": "..."} with the HTTP status derived from the
// services error kind.
package api
