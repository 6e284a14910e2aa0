// Package server exposes the workspace feed over HTTP: the RSS document,
// episode audio, episode pages, and generation endpoints.
package server
