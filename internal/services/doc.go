// Package services defines shared utilities consumed by the generation stages,
// repositories and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp workspace names, stage names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures so
//     the CLI and HTTP layer can report them consistently.
//
// Use these helpers when wiring new stage logic so operational behaviour (error
// handling, observability) stays uniform across the pipeline.
package services
