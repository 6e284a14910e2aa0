package generation

import (
	"context"
	"fmt"
	"time"

	"podcaster/internal/logging"
	"podcaster/internal/services"
)

// Pipeline runs stages in order, forwarding each output into the next stage.
type Pipeline struct {
	stages []*Stage
}

// NewPipeline checks that every stage's required forwarded fields are
// produced by the stage before it.
func NewPipeline(stages ...*Stage) (*Pipeline, error) {
	if len(stages) == 0 {
		return nil, services.Wrap(services.ErrValidation, "pipeline", "new", "at least one stage is required", nil)
	}
	for i, st := range stages {
		if st == nil {
			return nil, services.Wrap(services.ErrValidation, "pipeline", "new", fmt.Sprintf("stage %d is nil", i), nil)
		}
		if i == 0 {
			continue
		}
		produced := make(map[string]struct{}, len(stages[i-1].cfg.Schema))
		for _, f := range stages[i-1].cfg.Schema {
			produced[f.Name] = struct{}{}
		}
		for _, name := range st.cfg.Forwarded {
			if _, ok := produced[name]; !ok {
				return nil, services.Wrap(services.ErrValidation, "pipeline", "new",
					fmt.Sprintf("stage %s needs %q which stage %s does not produce", st.Name(), name, stages[i-1].Name()), nil)
			}
		}
	}
	return &Pipeline{stages: append([]*Stage(nil), stages...)}, nil
}

// StageError identifies the pipeline stage a failure came from.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return "stage " + e.Stage + ": " + e.Err.Error() }

func (e *StageError) Unwrap() error { return e.Err }

// Stages returns the stages in run order.
func (p *Pipeline) Stages() []*Stage {
	return append([]*Stage(nil), p.stages...)
}

// Len returns the number of stages.
func (p *Pipeline) Len() int { return len(p.stages) }

// Run executes every stage and returns the final output.
func (p *Pipeline) Run(ctx context.Context, raw string) (Object, error) {
	return p.RunThrough(ctx, raw, len(p.stages))
}

// RunThrough executes the first n stages and returns the last output.
func (p *Pipeline) RunThrough(ctx context.Context, raw string, n int) (Object, error) {
	outputs, err := p.Outputs(ctx, raw, n)
	if err != nil {
		return nil, err
	}
	return outputs[len(outputs)-1], nil
}

// Outputs executes the first n stages and returns each stage's output.
func (p *Pipeline) Outputs(ctx context.Context, raw string, n int) ([]Object, error) {
	return p.OutputsFrom(ctx, raw, nil, n)
}

// OutputsFrom is Outputs with the first len(seeded) stage outputs already
// known. Seeded stages are not run; the last seeded object is forwarded into
// the first stage that is.
func (p *Pipeline) OutputsFrom(ctx context.Context, raw string, seeded []Object, n int) ([]Object, error) {
	if n < 1 || n > len(p.stages) {
		return nil, services.Wrap(services.ErrValidation, "pipeline", "run",
			fmt.Sprintf("stage count %d out of range 1..%d", n, len(p.stages)), nil)
	}
	if len(seeded) > n {
		return nil, services.Wrap(services.ErrValidation, "pipeline", "run",
			fmt.Sprintf("%d seeded outputs exceed stage count %d", len(seeded), n), nil)
	}
	outputs := make([]Object, 0, n)
	var forwarded Object
	for _, obj := range seeded {
		out := obj.Clone()
		outputs = append(outputs, out)
		forwarded = out
	}
	for _, st := range p.stages[len(seeded):n] {
		out, err := p.runStage(ctx, st, Input{Raw: raw, Forwarded: forwarded})
		if err != nil {
			return nil, &StageError{Stage: st.Name(), Err: err}
		}
		outputs = append(outputs, out)
		forwarded = out
	}
	return outputs, nil
}

func (p *Pipeline) runStage(ctx context.Context, st *Stage, in Input) (Object, error) {
	stageCtx := services.WithStage(ctx, st.Name())
	logger := logging.WithContext(stageCtx, st.logger)
	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.Int("forwarded_fields", len(in.Forwarded)),
	)
	started := time.Now()
	out, hit, err := st.generate(stageCtx, in)
	if err != nil {
		logger.Error("stage failed",
			logging.String(logging.FieldEventType, "stage_failure"),
			logging.Error(err),
		)
		return nil, err
	}
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Bool("cache_hit", hit),
		logging.Duration("elapsed", time.Since(started)),
	)
	return out, nil
}
