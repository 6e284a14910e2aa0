// Package generation turns a completion service into typed, cacheable
// pipeline stages.
//
// A Stage declares an ordered schema and a set of worked examples. Each call
// renders a prompt ending in a partial JSON object whose leading fields are
// the values forwarded from upstream, asks the completer for the remainder,
// and parses the reconstructed object against the schema. A Pipeline chains
// stages so every upstream field is carried into the next stage verbatim.
package generation
