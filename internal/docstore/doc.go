// Package docstore persists workspace-scoped documents, their tags, and a
// small key-value area used by the generation cache.
//
// A document is an ordered list of text blocks plus kind/name/value tags that
// may be attached to the document or to a single block. Callers discover
// documents by tag (kind, optionally name) within one workspace; there is no
// cross-workspace query. Tags are append-only, which is how feed replacement
// and the episode audio marker are expressed.
//
// Two backends share the same schema shape: SQLite (modernc driver through
// sqlx) for single-host installs and Postgres (pgx pool) for shared ones.
// Both apply embedded migrations on open.
package docstore
