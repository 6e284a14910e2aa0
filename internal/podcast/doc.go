// Package podcast declares the three podcast generation stages (podcast
// premise, episode premise, episode script) and their typed outputs.
package podcast
