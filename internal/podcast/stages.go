package podcast

import (
	"podcaster/internal/generation"
	"podcaster/internal/llm"
)

// Stage names. They also name each stage's cache namespace.
const (
	StagePremise        = "PodcastPremiseTool"
	StageEpisodePremise = "PodcastEpisodePremiseTool"
	StageScript         = "PodcastScriptTool"
)

const scriptInstructions = "Generate a JSON object describing a two minute long podcast episode. " +
	"The script_text field holds the complete spoken transcript and ends with the capitalized phrase: THE END."

var (
	premiseSchema = generation.Schema{
		generation.String(FieldPodcastName),
		generation.String(FieldPodcastDescription),
	}
	episodeSchema = append(append(generation.Schema(nil), premiseSchema...),
		generation.String(FieldEpisodeName),
		generation.String(FieldEpisodeDescription),
	)
	scriptSchema = append(append(generation.Schema(nil), episodeSchema...),
		generation.String(FieldScriptText),
	)
)

// PremiseConfig declares the podcast premise stage.
func PremiseConfig() generation.StageConfig {
	return generation.StageConfig{
		Name:        StagePremise,
		Description: "podcasts",
		Schema:      append(generation.Schema(nil), premiseSchema...),
		Examples:    premiseExamples,
	}
}

// EpisodePremiseConfig declares the episode premise stage.
func EpisodePremiseConfig() generation.StageConfig {
	return generation.StageConfig{
		Name:        StageEpisodePremise,
		Description: "podcast episodes",
		Schema:      append(generation.Schema(nil), episodeSchema...),
		Forwarded:   premiseSchema.Names(),
		Examples:    episodeExamples,
	}
}

// ScriptConfig declares the episode script stage.
func ScriptConfig() generation.StageConfig {
	return generation.StageConfig{
		Name:         StageScript,
		Instructions: scriptInstructions,
		Schema:       append(generation.Schema(nil), scriptSchema...),
		Forwarded:    episodeSchema.Names(),
		Examples:     scriptExamples,
	}
}

// Stages holds the three podcast stages.
type Stages struct {
	Premise        *generation.Stage
	EpisodePremise *generation.Stage
	Script         *generation.Stage
}

// NewStages builds every stage against completer with shared options.
func NewStages(completer llm.Completer, opts ...generation.Option) (*Stages, error) {
	premise, err := generation.NewStage(PremiseConfig(), completer, opts...)
	if err != nil {
		return nil, err
	}
	episode, err := generation.NewStage(EpisodePremiseConfig(), completer, opts...)
	if err != nil {
		return nil, err
	}
	script, err := generation.NewStage(ScriptConfig(), completer, opts...)
	if err != nil {
		return nil, err
	}
	return &Stages{Premise: premise, EpisodePremise: episode, Script: script}, nil
}

// Pipeline chains premise, episode premise and script in that order.
func (s *Stages) Pipeline() (*generation.Pipeline, error) {
	return generation.NewPipeline(s.Premise, s.EpisodePremise, s.Script)
}
