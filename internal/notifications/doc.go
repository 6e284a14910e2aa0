// Package notifications pushes producer events to ntfy.
//
// The topic comes from [notifications] in config.toml. With no topic the
// service is a no-op, so callers publish unconditionally.
package notifications
