// Package config loads, normalizes, and validates podcaster configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OPENROUTER_API_KEY and PODCASTER_DATABASE_URL. The Config type centralizes
// every knob the CLI, HTTP server, and MCP server need, so the workspace, its
// store, the completion provider, and feed defaults are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical language tags, and clear validation errors.
package config
