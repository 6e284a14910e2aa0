package gencache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"podcaster/internal/logging"
	"podcaster/internal/telemetry"
)

// StorePrefix prefixes every stage namespace in the key-value backend.
const StorePrefix = "ToolCache-"

// Backend is the key-value surface the cache persists through.
// docstore.Workspace satisfies it.
type Backend interface {
	Get(ctx context.Context, storeID, key string) ([]byte, bool, error)
	Set(ctx context.Context, storeID, key string, value []byte) error
}

// Key addresses one cache slot.
type Key struct {
	Stage  string
	Digest string
}

// KeyFor hashes payload with MD5. No normalization is applied, so case and
// whitespace changes produce a different key.
func KeyFor(stage string, payload []byte) Key {
	sum := md5.Sum(payload)
	return Key{Stage: stage, Digest: hex.EncodeToString(sum[:])}
}

// StoreID returns the key-value namespace of the key's stage.
func (k Key) StoreID() string {
	return StorePrefix + k.Stage
}

func (k Key) String() string {
	return k.Stage + ":" + k.Digest
}

// Result is a cached generation. Fields holds the parsed object as JSON.
type Result struct {
	Text   string          `json:"text"`
	Fields json.RawMessage `json:"fields,omitempty"`
}

type envelope struct {
	Value *Result `json:"value"`
}

// Cache reads and writes Results through a Backend.
type Cache struct {
	backend Backend
	logger  *slog.Logger

	hits      metric.Int64Counter
	misses    metric.Int64Counter
	puts      metric.Int64Counter
	malformed metric.Int64Counter
}

// New returns a cache over backend.
func New(backend Backend, logger *slog.Logger) (*Cache, error) {
	if backend == nil {
		return nil, errors.New("gencache: backend is required")
	}
	meter := telemetry.Meter("podcaster/gencache")
	hits, _ := meter.Int64Counter("podcaster.gencache.hits", metric.WithDescription("Generation cache hits"))
	misses, _ := meter.Int64Counter("podcaster.gencache.misses", metric.WithDescription("Generation cache misses"))
	puts, _ := meter.Int64Counter("podcaster.gencache.puts", metric.WithDescription("Generation cache writes"))
	malformed, _ := meter.Int64Counter("podcaster.gencache.malformed", metric.WithDescription("Stored values that could not be decoded"))
	return &Cache{
		backend:   backend,
		logger:    logging.NewComponentLogger(logger, "gencache"),
		hits:      hits,
		misses:    misses,
		puts:      puts,
		malformed: malformed,
	}, nil
}

// Get returns the cached result. A miss and an undecodable value both return
// false with a nil error; backend errors are returned as-is.
func (c *Cache) Get(ctx context.Context, key Key) (Result, bool, error) {
	if err := validateKey(key); err != nil {
		return Result{}, false, err
	}
	attrs := metric.WithAttributes(attribute.String("stage", key.Stage))

	raw, ok, err := c.backend.Get(ctx, key.StoreID(), key.Digest)
	if err != nil {
		return Result{}, false, fmt.Errorf("gencache get %s: %w", key, err)
	}
	if !ok {
		c.misses.Add(ctx, 1, attrs)
		c.logger.Debug("cache miss", logging.String(logging.FieldStage, key.Stage), logging.String("key", key.Digest))
		return Result{}, false, nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Value == nil {
		c.malformed.Add(ctx, 1, attrs)
		c.misses.Add(ctx, 1, attrs)
		logging.WarnWithContext(c.logger, "cached value unreadable; treating as miss", "cache_malformed",
			logging.String(logging.FieldStage, key.Stage),
			logging.String("key", key.Digest),
			logging.String(logging.FieldImpact, "generation will run again and overwrite the entry"),
		)
		return Result{}, false, nil
	}
	c.hits.Add(ctx, 1, attrs)
	c.logger.Debug("cache hit", logging.String(logging.FieldStage, key.Stage), logging.String("key", key.Digest))
	return *env.Value, true, nil
}

// Put overwrites the slot. Concurrent writers race; the last one wins.
func (c *Cache) Put(ctx context.Context, key Key, result Result) error {
	if err := validateKey(key); err != nil {
		return err
	}
	data, err := json.Marshal(envelope{Value: &result})
	if err != nil {
		return fmt.Errorf("gencache encode %s: %w", key, err)
	}
	if err := c.backend.Set(ctx, key.StoreID(), key.Digest, data); err != nil {
		return fmt.Errorf("gencache put %s: %w", key, err)
	}
	c.puts.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", key.Stage)))
	return nil
}

func validateKey(key Key) error {
	if strings.TrimSpace(key.Stage) == "" || key.Digest == "" {
		return fmt.Errorf("gencache: invalid key %q", key.String())
	}
	return nil
}
