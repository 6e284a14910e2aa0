package podcast

import (
	"fmt"

	"podcaster/internal/generation"
)

// Field names shared by every stage schema.
const (
	FieldPodcastName        = "podcast_name"
	FieldPodcastDescription = "podcast_description"
	FieldEpisodeName        = "episode_name"
	FieldEpisodeDescription = "episode_description"
	FieldScriptText         = "script_text"
)

// PodcastPremise names and describes a podcast.
type PodcastPremise struct {
	PodcastName        string `json:"podcast_name"`
	PodcastDescription string `json:"podcast_description"`
}

// EpisodePremise carries its podcast's premise plus the episode's own.
type EpisodePremise struct {
	PodcastPremise
	EpisodeName        string `json:"episode_name"`
	EpisodeDescription string `json:"episode_description"`
}

// Script carries the episode premise plus its transcript.
type Script struct {
	EpisodePremise
	ScriptText string `json:"script_text"`
}

// PremiseFrom converts a premise stage output.
func PremiseFrom(obj generation.Object) (PodcastPremise, error) {
	var out PodcastPremise
	if err := obj.Decode(&out); err != nil {
		return PodcastPremise{}, fmt.Errorf("decode podcast premise: %w", err)
	}
	return out, nil
}

// EpisodePremiseFrom converts an episode premise stage output.
func EpisodePremiseFrom(obj generation.Object) (EpisodePremise, error) {
	var out EpisodePremise
	if err := obj.Decode(&out); err != nil {
		return EpisodePremise{}, fmt.Errorf("decode episode premise: %w", err)
	}
	return out, nil
}

// ScriptFrom converts a script stage output.
func ScriptFrom(obj generation.Object) (Script, error) {
	var out Script
	if err := obj.Decode(&out); err != nil {
		return Script{}, fmt.Errorf("decode script: %w", err)
	}
	return out, nil
}
