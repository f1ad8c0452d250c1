// Package notifications delivers pipeline events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when no topic is set.
// Per-event toggles let users silence noisy categories (routine ingests)
// while keeping alerts for sync failures and errors.
package notifications
