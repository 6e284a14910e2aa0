// Package gencache stores generation results keyed by a content hash of the
// stage input, so an identical request replays the same output instead of
// calling the completion service again.
//
// Entries live in the workspace key-value area under the namespace
// "ToolCache-<stage>", so two stages never collide even on identical input.
// A stored value that cannot be decoded is reported as a miss; storage
// failures are returned to the caller instead.
package gencache
