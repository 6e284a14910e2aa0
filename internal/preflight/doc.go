// Package preflight runs readiness checks that do not need an open store:
// workspace directories and the completion provider.
package preflight
