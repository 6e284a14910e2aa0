package gencache_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podcaster/internal/docstore"
	"podcaster/internal/gencache"
	"podcaster/internal/logging"
	"podcaster/internal/testsupport"
)

type memoryBackend struct {
	data   map[string][]byte
	getErr error
	setErr error
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{data: map[string][]byte{}}
}

func (m *memoryBackend) Get(_ context.Context, storeID, key string) ([]byte, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	v, ok := m.data[storeID+"/"+key]
	return v, ok, nil
}

func (m *memoryBackend) Set(_ context.Context, storeID, key string, value []byte) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[storeID+"/"+key] = value
	return nil
}

func TestKeyForIsDeterministicAndSensitive(t *testing.T) {
	a := gencache.KeyFor("podcast_premise", []byte("a podcast about old cars"))
	b := gencache.KeyFor("podcast_premise", []byte("a podcast about old cars"))
	assert.Equal(t, a, b)
	assert.Len(t, a.Digest, 32)

	assert.NotEqual(t, a.Digest, gencache.KeyFor("podcast_premise", []byte("a podcast about old cars ")).Digest)
	assert.NotEqual(t, a.Digest, gencache.KeyFor("podcast_premise", []byte("A podcast about old cars")).Digest)
	assert.NotEqual(t, a.Digest, gencache.KeyFor("podcast_premise", []byte("a podcast about old carz")).Digest)

	other := gencache.KeyFor("podcast_script", []byte("a podcast about old cars"))
	assert.Equal(t, a.Digest, other.Digest, "digest covers the payload only")
	assert.NotEqual(t, a.StoreID(), other.StoreID())
	assert.Equal(t, "ToolCache-podcast_premise", a.StoreID())
}

func TestPutThenGetRoundTrips(t *testing.T) {
	cache, err := gencache.New(newMemoryBackend(), logging.NewNop())
	require.NoError(t, err)
	ctx := context.Background()
	key := gencache.KeyFor("podcast_premise", []byte("input"))

	_, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	want := gencache.Result{
		Text:   `"Car Talk", "podcast_description": "Call-in show about car mysteries."`,
		Fields: json.RawMessage(`{"podcast_name":"Car Talk","podcast_description":"Call-in show about car mysteries."}`),
	}
	require.NoError(t, cache.Put(ctx, key, want))

	got, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want.Text, got.Text)
	assert.JSONEq(t, string(want.Fields), string(got.Fields))
}

func TestPutOverwrites(t *testing.T) {
	cache, err := gencache.New(newMemoryBackend(), nil)
	require.NoError(t, err)
	ctx := context.Background()
	key := gencache.KeyFor("stage", []byte("input"))

	require.NoError(t, cache.Put(ctx, key, gencache.Result{Text: "first"}))
	require.NoError(t, cache.Put(ctx, key, gencache.Result{Text: "second"}))

	got, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "second", got.Text)
}

func TestStoredValueIsWrapped(t *testing.T) {
	backend := newMemoryBackend()
	cache, err := gencache.New(backend, nil)
	require.NoError(t, err)
	key := gencache.KeyFor("stage", []byte("input"))
	require.NoError(t, cache.Put(context.Background(), key, gencache.Result{Text: "x"}))

	raw := backend.data[key.StoreID()+"/"+key.Digest]
	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Contains(t, decoded, "value")
}

func TestMalformedValueIsMiss(t *testing.T) {
	backend := newMemoryBackend()
	cache, err := gencache.New(backend, nil)
	require.NoError(t, err)
	key := gencache.KeyFor("stage", []byte("input"))

	for _, raw := range []string{`not json`, `{"other":1}`, `{"value":null}`, `{"value":"text"}`} {
		backend.data[key.StoreID()+"/"+key.Digest] = []byte(raw)
		_, ok, err := cache.Get(context.Background(), key)
		require.NoError(t, err, raw)
		assert.False(t, ok, raw)
	}
}

func TestBackendErrorsPropagate(t *testing.T) {
	boom := errors.New("disk on fire")
	backend := newMemoryBackend()
	cache, err := gencache.New(backend, nil)
	require.NoError(t, err)
	key := gencache.KeyFor("stage", []byte("input"))

	backend.getErr = boom
	_, _, err = cache.Get(context.Background(), key)
	assert.ErrorIs(t, err, boom)

	backend.setErr = boom
	assert.ErrorIs(t, cache.Put(context.Background(), key, gencache.Result{Text: "x"}), boom)
}

func TestInvalidKeyRejected(t *testing.T) {
	cache, err := gencache.New(newMemoryBackend(), nil)
	require.NoError(t, err)
	_, _, err = cache.Get(context.Background(), gencache.Key{})
	assert.Error(t, err)

	_, err = gencache.New(nil, nil)
	assert.Error(t, err)
}

func TestCacheOverWorkspaceStore(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ws, err := docstore.NewWorkspace(store, "cars")
	require.NoError(t, err)

	cache, err := gencache.New(ws, nil)
	require.NoError(t, err)
	ctx := context.Background()
	key := gencache.KeyFor("podcast_premise", []byte("a podcast about old cars"))
	require.NoError(t, cache.Put(ctx, key, gencache.Result{Text: "cached"}))

	got, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "cached", got.Text)

	stats, err := ws.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "ToolCache-podcast_premise", stats[0].StoreID)
}
