package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"podcaster/internal/gencache"
	"podcaster/internal/llm"
	"podcaster/internal/logging"
	"podcaster/internal/services"
	"podcaster/internal/telemetry"
)

// StopToken ends every generated object.
const StopToken = "}"

var (
	// ErrInvalidGenerationOutput reports a completion that does not parse
	// against the stage schema. It is not retried here.
	ErrInvalidGenerationOutput = fmt.Errorf("invalid generation output: %w", services.ErrExternalTool)
	// ErrMalformedServiceResponse reports a completion with other than exactly
	// one text unit.
	ErrMalformedServiceResponse = fmt.Errorf("malformed service response: %w", services.ErrExternalTool)
)

// Example is one worked example, values in schema order.
type Example []any

// Input is what a caller hands a stage.
type Input struct {
	// Raw is the caller's request text. It keys the cache.
	Raw string
	// Forwarded holds upstream values. Schema fields present here form the
	// prefix of the generated object and are never asked of the generator.
	Forwarded Object
}

// StageConfig declares a stage.
type StageConfig struct {
	Name string
	// Description completes "Generate a JSON object describing ...".
	Description string
	// Instructions replaces the default instruction line when set.
	Instructions string
	Schema       Schema
	// Forwarded names the leading schema fields every call must supply.
	Forwarded []string
	Examples  []Example
}

// Option customizes a Stage.
type Option func(*Stage)

// WithCache enables result caching through cache.
func WithCache(cache *gencache.Cache) Option {
	return func(s *Stage) { s.cache = cache }
}

// WithLogger sets the stage logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Stage) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithShuffle overrides how examples are reordered before each prompt.
func WithShuffle(shuffle func(n int, swap func(i, j int))) Option {
	return func(s *Stage) {
		if shuffle != nil {
			s.shuffle = shuffle
		}
	}
}

// Stage is one generation step.
type Stage struct {
	cfg       StageConfig
	examples  [][]any
	completer llm.Completer
	cache     *gencache.Cache
	logger    *slog.Logger
	shuffle   func(n int, swap func(i, j int))
	flight    singleflight.Group
}

// NewStage validates cfg and returns a stage bound to completer.
func NewStage(cfg StageConfig, completer llm.Completer, opts ...Option) (*Stage, error) {
	cfg.Name = strings.TrimSpace(cfg.Name)
	if cfg.Name == "" {
		return nil, services.Wrap(services.ErrValidation, "generation", "new stage", "stage name is required", nil)
	}
	if completer == nil {
		return nil, services.Wrap(services.ErrValidation, cfg.Name, "new stage", "completer is required", nil)
	}
	if err := cfg.Schema.validate(); err != nil {
		return nil, services.Wrap(services.ErrValidation, cfg.Name, "new stage", "invalid schema", err)
	}
	if len(cfg.Forwarded) >= len(cfg.Schema) {
		return nil, services.Wrap(services.ErrValidation, cfg.Name, "new stage", "stage must generate at least one field", nil)
	}
	for i, name := range cfg.Forwarded {
		if cfg.Schema[i].Name != name {
			return nil, services.Wrap(services.ErrValidation, cfg.Name, "new stage",
				fmt.Sprintf("forwarded field %q is not schema field %d", name, i), nil)
		}
	}
	examples := make([][]any, 0, len(cfg.Examples))
	for i, ex := range cfg.Examples {
		if len(ex) != len(cfg.Schema) {
			return nil, services.Wrap(services.ErrValidation, cfg.Name, "new stage",
				fmt.Sprintf("example %d has %d values, schema has %d fields", i, len(ex), len(cfg.Schema)), nil)
		}
		row := make([]any, len(ex))
		for j, v := range ex {
			coerced, err := cfg.Schema[j].coerce(v)
			if err != nil {
				return nil, services.Wrap(services.ErrValidation, cfg.Name, "new stage", fmt.Sprintf("example %d", i), err)
			}
			row[j] = coerced
		}
		examples = append(examples, row)
	}

	s := &Stage{
		cfg:       cfg,
		examples:  examples,
		completer: completer,
		logger:    logging.NewNop(),
		shuffle:   rand.Shuffle,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "generation")
	return s, nil
}

// Name returns the stage name.
func (s *Stage) Name() string { return s.cfg.Name }

// Schema returns the declared schema.
func (s *Stage) Schema() Schema { return append(Schema(nil), s.cfg.Schema...) }

// Cached reports whether the stage consults the generation cache.
func (s *Stage) Cached() bool { return s.cache != nil }

// Generate produces one object for in.
func (s *Stage) Generate(ctx context.Context, in Input) (Object, error) {
	obj, _, err := s.generate(ctx, in)
	return obj, err
}

func (s *Stage) generate(ctx context.Context, in Input) (Object, bool, error) {
	prefixLen, err := s.prefixLength(in.Forwarded)
	if err != nil {
		return nil, false, err
	}

	ctx, span := telemetry.Tracer("podcaster/generation").Start(ctx, "generation.stage")
	defer span.End()
	span.SetAttributes(attribute.String("stage", s.cfg.Name), attribute.Bool("cache_enabled", s.cache != nil))

	var (
		obj Object
		hit bool
	)
	if s.cache == nil {
		obj, err = s.complete(ctx, in, prefixLen)
	} else {
		obj, hit, err = s.generateCached(ctx, in, prefixLen)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	span.SetAttributes(attribute.Bool("cache_hit", hit))

	out := obj.Clone()
	for k, v := range in.Forwarded {
		out[k] = v
	}
	return out, hit, nil
}

type flightResult struct {
	obj Object
	hit bool
}

func (s *Stage) generateCached(ctx context.Context, in Input, prefixLen int) (Object, bool, error) {
	key := gencache.KeyFor(s.cfg.Name, []byte(in.Raw))
	// The shared call outlives any single caller; each caller stops waiting
	// when its own context ends.
	work := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(key.Digest, func() (any, error) {
		ctx := work
		cached, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			obj, derr := s.cfg.Schema.decodeObject(cached.Fields)
			if derr == nil {
				return flightResult{obj: obj, hit: true}, nil
			}
			logging.WarnWithContext(logging.WithContext(ctx, s.logger), "cached result does not match schema; regenerating", "cache_schema_mismatch",
				logging.String("key", key.Digest),
				logging.Error(derr),
			)
		}

		obj, text, err := s.completeText(ctx, in, prefixLen)
		if err != nil {
			return nil, err
		}
		fields, err := json.Marshal(obj)
		if err != nil {
			return nil, fmt.Errorf("stage %s: encode result: %w", s.cfg.Name, err)
		}
		if err := s.cache.Put(ctx, key, gencache.Result{Text: text, Fields: fields}); err != nil {
			return nil, err
		}
		return flightResult{obj: obj}, nil
	})
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, false, r.Err
		}
		res := r.Val.(flightResult)
		return res.obj, res.hit, nil
	}
}

func (s *Stage) complete(ctx context.Context, in Input, prefixLen int) (Object, error) {
	obj, _, err := s.completeText(ctx, in, prefixLen)
	return obj, err
}

// completeText asks the completer for the fields after the prefix and returns
// the parsed object along with the reconstructed text.
func (s *Stage) completeText(ctx context.Context, in Input, prefixLen int) (Object, string, error) {
	prefixValues := make([]any, prefixLen)
	for i := range prefixLen {
		prefixValues[i] = in.Forwarded[s.cfg.Schema[i].Name]
	}
	if prefixLen == len(s.cfg.Schema) {
		obj := make(Object, prefixLen)
		for i, f := range s.cfg.Schema {
			obj[f.Name] = prefixValues[i]
		}
		text, err := s.cfg.Schema.encodeOrdered(prefixValues)
		return obj, text, err
	}

	prefix, err := s.objectPrefix(prefixValues)
	if err != nil {
		return nil, "", services.Wrap(services.ErrValidation, s.cfg.Name, "build prompt", "encode forwarded fields", err)
	}
	prompt, err := s.prompt(in.Raw, prefix)
	if err != nil {
		return nil, "", services.Wrap(services.ErrValidation, s.cfg.Name, "build prompt", "encode examples", err)
	}

	started := time.Now()
	units, err := s.completer.Complete(ctx, prompt, StopToken)
	if err != nil {
		return nil, "", fmt.Errorf("stage %s: %w", s.cfg.Name, err)
	}
	if len(units) != 1 {
		return nil, "", fmt.Errorf("%w: stage %s: %d units returned, want 1", ErrMalformedServiceResponse, s.cfg.Name, len(units))
	}
	fragment := units[0].Text

	obj, text, err := s.parse(prefix, fragment, prefixValues)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "generation output rejected", "generation_invalid",
			logging.String(logging.FieldStage, s.cfg.Name),
			logging.Int("fragment_bytes", len(fragment)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "retry the request; outputs are not cached until they parse"),
		)
		return nil, "", fmt.Errorf("%w: stage %s: %v", ErrInvalidGenerationOutput, s.cfg.Name, err)
	}
	s.logger.Debug("generation parsed",
		logging.String(logging.FieldStage, s.cfg.Name),
		logging.Duration("elapsed", time.Since(started)),
	)
	return obj, text, nil
}

// parse rebuilds prefix+fragment+"}" and decodes it. A fragment that carries
// its own closing brace, or one made of bare row values, is also accepted.
func (s *Stage) parse(prefix, fragment string, prefixValues []any) (Object, string, error) {
	full := prefix + fragment + StopToken
	obj, err := s.cfg.Schema.decodeObject([]byte(full))
	if err == nil {
		return obj, full, nil
	}
	firstErr := err

	if strings.HasSuffix(strings.TrimSpace(fragment), StopToken) {
		alt := prefix + fragment
		if obj, err := s.cfg.Schema.decodeObject([]byte(alt)); err == nil {
			return obj, alt, nil
		}
	}

	rest := s.cfg.Schema[len(prefixValues):]
	row, err := decodeRow(rest, fragment)
	if err != nil {
		return nil, "", firstErr
	}
	values := append(append([]any(nil), prefixValues...), make([]any, len(rest))...)
	for i, f := range rest {
		values[len(prefixValues)+i] = row[f.Name]
	}
	for i, f := range s.cfg.Schema[:len(prefixValues)] {
		row[f.Name] = prefixValues[i]
	}
	text, err := s.cfg.Schema.encodeOrdered(values)
	if err != nil {
		return nil, "", err
	}
	return row, text, nil
}

// prefixLength counts the leading schema fields present in forwarded and
// checks the required ones are among them.
func (s *Stage) prefixLength(forwarded Object) (int, error) {
	n := 0
	for n < len(s.cfg.Schema) {
		if _, ok := forwarded[s.cfg.Schema[n].Name]; !ok {
			break
		}
		n++
	}
	if n < len(s.cfg.Forwarded) {
		return 0, services.Wrap(services.ErrValidation, s.cfg.Name, "generate",
			fmt.Sprintf("forwarded field %q is required", s.cfg.Forwarded[n]), nil)
	}
	for _, f := range s.cfg.Schema[n:] {
		if _, ok := forwarded[f.Name]; ok {
			return 0, services.Wrap(services.ErrValidation, s.cfg.Name, "generate",
				fmt.Sprintf("forwarded field %q does not extend the schema prefix", f.Name), nil)
		}
	}
	for _, f := range s.cfg.Schema[:n] {
		if _, err := f.coerce(forwarded[f.Name]); err != nil {
			return 0, services.Wrap(services.ErrValidation, s.cfg.Name, "generate", "forwarded value", err)
		}
	}
	return n, nil
}

// HealthCheck reports whether the stage's completer is reachable.
func (s *Stage) HealthCheck(ctx context.Context) Health {
	checker, ok := s.completer.(llm.HealthChecker)
	if !ok {
		return Healthy(s.cfg.Name)
	}
	if err := checker.HealthCheck(ctx); err != nil {
		var detail string
		if errors.Is(err, services.ErrConfiguration) {
			detail = "completion provider misconfigured: " + err.Error()
		} else {
			detail = err.Error()
		}
		return Unhealthy(s.cfg.Name, detail)
	}
	return Healthy(s.cfg.Name)
}
