// Package config loads, normalizes, and validates ytqueue configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads an optional .env file beside the config,
// and honours environment fallbacks such as YTQUEUE_NTFY_TOPIC. The Config type
// centralizes every knob the daemon and CLI need: destination directories, the
// format catalog, pacing bounds, and post-processing flags.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, a validated format catalog, and clear validation errors.
package config
