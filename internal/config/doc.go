// Package config loads, normalizes, and validates Quill configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// QUILL_API_KEY and OPEN_WEBUI_URL. The Config type centralizes every knob
// the daemon and CLI need: watched directories, knowledge-store credentials,
// content-type declarations, and workflow timing.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, normalized content types, and clear validation errors.
package config
