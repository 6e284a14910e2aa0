// Package main hosts the podcaster CLI entrypoint and command graph.
//
// Commands load configuration once, open the workspace document store, and
// call the producer directly. `serve` runs the HTTP API and feed endpoints and
// `mcp` exposes the same operations to agents over stdio.
package main
