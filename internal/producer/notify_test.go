package producer_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podcaster/internal/logging"
	"podcaster/internal/notifications"
	"podcaster/internal/podcast"
	"podcaster/internal/producer"
	"podcaster/internal/testsupport"
)

type published struct {
	event   notifications.Event
	payload notifications.Payload
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (r *recordingNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, published{event: event, payload: payload})
	return r.err
}

func (r *recordingNotifier) names() []notifications.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notifications.Event, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.event)
	}
	return out
}

func newNotifiedService(t *testing.T, n notifications.Service, replies ...string) *producer.Service {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	svc, err := producer.New(cfg, testsupport.MustWorkspace(t, cfg), testsupport.NewStubCompleter(replies...), logging.NewNop(),
		producer.WithNotifier(n))
	require.NoError(t, err)
	return svc
}

func TestNotifiesFeedEpisodeAndPublish(t *testing.T) {
	rec := &recordingNotifier{}
	svc := newNotifiedService(t, rec,
		`"Car Talk", "Cars."`,
		`"Sedan", "Stalls."`,
		`"script_text": "Hello. THE END."`,
	)
	ctx := context.Background()

	res, err := svc.Script(ctx, "cars")
	require.NoError(t, err)
	_, err = svc.MarkAudioComplete(ctx, res.Episode.ID)
	require.NoError(t, err)

	assert.Equal(t, []notifications.Event{
		notifications.EventFeedCreated,
		notifications.EventEpisodeCreated,
		notifications.EventEpisodePublished,
	}, rec.names())
	assert.Equal(t, "https://pods.example.com/audio?id="+res.Episode.ID, rec.events[2].payload["audioUrl"])
}

func TestNotifiesGenerationFailure(t *testing.T) {
	rec := &recordingNotifier{}
	svc := newNotifiedService(t, rec, `not an object`)

	_, err := svc.Premise(context.Background(), "cars")
	require.Error(t, err)
	require.Equal(t, []notifications.Event{notifications.EventGenerationFailed}, rec.names())
	assert.Equal(t, podcast.StagePremise, rec.events[0].payload["stage"])
}

func TestNotificationFailureDoesNotFailOperation(t *testing.T) {
	rec := &recordingNotifier{err: errors.New("ntfy down")}
	svc := newNotifiedService(t, rec, `"Car Talk", "Cars."`)

	res, err := svc.Premise(context.Background(), "cars")
	require.NoError(t, err)
	assert.True(t, res.FeedCreated)
}
