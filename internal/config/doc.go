// Package config loads, normalizes, and validates podstudio configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads adjacent .env files, and honours
// environment fallbacks such as PODSTUDIO_AGENT_API_KEY. The Config type
// centralizes every knob the daemon and CLI need, from the workflow state
// backend to the object storage bucket, so credentials and directories are
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
