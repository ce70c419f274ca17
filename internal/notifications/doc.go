// Package notifications delivers queue events to ntfy.
//
// The default implementation posts plain-text messages to the topic URL
// configured in config.toml and degrades to a no-op when no topic is set.
// Per-event toggles in the [notifications] section silence individual
// message kinds without touching callers, which depend only on Service.
package notifications
