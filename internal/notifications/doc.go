// Package notifications delivers generation outcomes via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. Listener adapts a Service to workflow transitions so completed and
// failed runs are announced without the pipeline knowing about ntfy.
package notifications
