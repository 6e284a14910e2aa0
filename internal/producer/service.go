// Package producer runs the podcast pipeline end to end: premise generation
// resolves the workspace feed, and a script becomes a stored episode.
package producer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"podcaster/internal/config"
	"podcaster/internal/docstore"
	"podcaster/internal/feeds"
	"podcaster/internal/gencache"
	"podcaster/internal/generation"
	"podcaster/internal/llm"
	"podcaster/internal/logging"
	"podcaster/internal/notifications"
	"podcaster/internal/podcast"
	"podcaster/internal/rss"
	"podcaster/internal/services"
)

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source used for episode publish dates.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithNotifier replaces the notifier built from config.
func WithNotifier(n notifications.Service) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithStageOptions passes extra options to every generation stage.
func WithStageOptions(opts ...generation.Option) Option {
	return func(s *Service) { s.stageOpts = append(s.stageOpts, opts...) }
}

// Service is the podcast producer for one workspace.
type Service struct {
	cfg       *config.Config
	ws        *docstore.Workspace
	logger    *slog.Logger
	cache     *gencache.Cache
	stages    *podcast.Stages
	pipeline  *generation.Pipeline
	feeds     *feeds.FeedRepository
	episodes  *feeds.EpisodeRepository
	notifier  notifications.Service
	now       func() time.Time
	stageOpts []generation.Option
}

// PremiseResult is a generated podcast premise and the feed it resolved to.
type PremiseResult struct {
	Premise     podcast.PodcastPremise `json:"premise"`
	Feed        *feeds.FeedRecord      `json:"feed"`
	FeedCreated bool                   `json:"feedCreated"`
}

// EpisodePremiseResult is a generated episode premise and its feed.
type EpisodePremiseResult struct {
	Premise     podcast.EpisodePremise `json:"premise"`
	Feed        *feeds.FeedRecord      `json:"feed"`
	FeedCreated bool                   `json:"feedCreated"`
}

// ScriptResult is a generated script and the episode stored for it.
type ScriptResult struct {
	Script      podcast.Script       `json:"script"`
	Feed        *feeds.FeedRecord    `json:"feed"`
	FeedCreated bool                 `json:"feedCreated"`
	Episode     *feeds.EpisodeRecord `json:"episode"`
}

// New wires the cache, stages and repositories for ws. completer may be nil
// for read-only use; generation calls then fail with a configuration error.
func New(cfg *config.Config, ws *docstore.Workspace, completer llm.Completer, logger *slog.Logger, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("producer: config is required")
	}
	if ws == nil {
		return nil, errors.New("producer: workspace is required")
	}
	s := &Service{
		cfg:      cfg,
		ws:       ws,
		logger:   logging.NewComponentLogger(logger, "producer"),
		feeds:    feeds.NewFeedRepository(ws, logger),
		episodes: feeds.NewEpisodeRepository(ws, logger),
		notifier: notifications.NewService(cfg),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	cache, err := gencache.New(ws, logger)
	if err != nil {
		return nil, err
	}
	s.cache = cache
	if completer != nil {
		stageOpts := append([]generation.Option{generation.WithLogger(logger)}, s.stageOpts...)
		if cfg.Generation.CacheEnabled {
			stageOpts = append(stageOpts, generation.WithCache(cache))
		}
		stages, err := podcast.NewStages(completer, stageOpts...)
		if err != nil {
			return nil, err
		}
		pipeline, err := stages.Pipeline()
		if err != nil {
			return nil, err
		}
		s.stages = stages
		s.pipeline = pipeline
	}
	return s, nil
}

// Workspace returns the workspace name.
func (s *Service) Workspace() string { return s.ws.Name() }

// BaseURL returns the public base URL used for audio links.
func (s *Service) BaseURL() string { return s.cfg.Feed.BaseURL }

// Premise generates a podcast premise for request and resolves the feed.
func (s *Service) Premise(ctx context.Context, request string) (*PremiseResult, error) {
	ctx, outputs, err := s.run(ctx, request, nil, 1)
	if err != nil {
		return nil, err
	}
	premise, err := podcast.PremiseFrom(outputs[0])
	if err != nil {
		return nil, err
	}
	feed, created, err := s.resolveFeed(ctx, premise)
	if err != nil {
		return nil, err
	}
	return &PremiseResult{Premise: premise, Feed: feed, FeedCreated: created}, nil
}

// EpisodePremise generates an episode premise for request.
func (s *Service) EpisodePremise(ctx context.Context, request string) (*EpisodePremiseResult, error) {
	ctx, outputs, feed, created, err := s.runFromFeed(ctx, request, 2)
	if err != nil {
		return nil, err
	}
	episode, err := podcast.EpisodePremiseFrom(outputs[1])
	if err != nil {
		return nil, err
	}
	return &EpisodePremiseResult{Premise: episode, Feed: feed, FeedCreated: created}, nil
}

// Script generates a script for request and stores it as an episode.
func (s *Service) Script(ctx context.Context, request string) (*ScriptResult, error) {
	ctx, outputs, feed, created, err := s.runFromFeed(ctx, request, 3)
	if err != nil {
		return nil, err
	}
	script, err := podcast.ScriptFrom(outputs[2])
	if err != nil {
		return nil, err
	}

	episode := feeds.Episode{
		Title:    script.EpisodeName,
		Summary:  script.EpisodeDescription,
		Author:   feed.Feed.Author,
		Explicit: feed.Feed.Explicit,
		PubDate:  s.now().UTC().Format(time.RFC1123Z),
	}
	record, err := s.episodes.Create(ctx, episode, Paragraphs(script.ScriptText)...)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, notifications.EventEpisodeCreated, notifications.Payload{
		"episode": record.Episode.Title,
		"podcast": feed.Feed.Title,
	})
	return &ScriptResult{Script: script, Feed: feed, FeedCreated: created, Episode: record}, nil
}

// Feed returns the workspace feed.
func (s *Service) Feed(ctx context.Context) (*feeds.FeedRecord, error) {
	return s.feeds.Get(services.WithWorkspace(ctx, s.ws.Name()))
}

// ReplaceFeed swaps the stored feed metadata.
func (s *Service) ReplaceFeed(ctx context.Context, feed feeds.Feed) (*feeds.FeedRecord, error) {
	ctx = services.WithWorkspace(ctx, s.ws.Name())
	record, err := s.feeds.Get(ctx)
	if err != nil {
		return nil, err
	}
	return s.feeds.Replace(ctx, record, feed)
}

// Episodes lists episodes, optionally only those with audio.
func (s *Service) Episodes(ctx context.Context, withAudio bool) ([]feeds.EpisodeRecord, error) {
	return s.episodes.List(services.WithWorkspace(ctx, s.ws.Name()), withAudio)
}

// Episode returns one episode.
func (s *Service) Episode(ctx context.Context, id string) (*feeds.EpisodeRecord, error) {
	return s.episodes.Get(services.WithWorkspace(ctx, s.ws.Name()), id)
}

// MarkAudioComplete flags an episode as having audio, publishing it to the feed.
func (s *Service) MarkAudioComplete(ctx context.Context, id string) (*feeds.EpisodeRecord, error) {
	ctx = services.WithWorkspace(ctx, s.ws.Name())
	record, err := s.episodes.MarkAudioComplete(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, notifications.EventEpisodePublished, notifications.Payload{
		"episode":  record.Episode.Title,
		"audioUrl": rss.AudioURL(record.Episode, s.cfg.Feed.BaseURL),
	})
	return record, nil
}

// RSS renders the feed with every episode whose audio is complete.
func (s *Service) RSS(ctx context.Context) (string, error) {
	ctx = services.WithWorkspace(ctx, s.ws.Name())
	feed, err := s.feeds.Get(ctx)
	if err != nil {
		return "", err
	}
	records, err := s.episodes.List(ctx, true)
	if err != nil {
		return "", err
	}
	episodes := make([]feeds.Episode, len(records))
	for i, record := range records {
		episodes[i] = record.Episode
	}
	return rss.Render(feed.Feed, episodes, s.cfg.Feed.BaseURL), nil
}

// CacheStats returns entry counts for the generation cache namespaces.
func (s *Service) CacheStats(ctx context.Context) ([]docstore.NamespaceStats, error) {
	all, err := s.ws.Stats(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]docstore.NamespaceStats, 0, len(all))
	for _, ns := range all {
		if strings.HasPrefix(ns.StoreID, gencache.StorePrefix) {
			out = append(out, ns)
		}
	}
	return out, nil
}

// Health checks the store and each generation stage.
func (s *Service) Health(ctx context.Context) []generation.Health {
	checks := make([]generation.Health, 0, 4)
	if err := s.ws.Store().Ping(ctx); err != nil {
		checks = append(checks, generation.Unhealthy("store", err.Error()))
	} else {
		checks = append(checks, generation.Healthy("store"))
	}
	if s.stages == nil {
		return append(checks, generation.Unhealthy("llm", "no completion provider configured"))
	}
	// Every stage shares one completer, so one probe covers them all.
	checks = append(checks, s.stages.Premise.HealthCheck(ctx))
	return checks
}

// runFromFeed runs the first n stages for an episode request. When the
// workspace feed already exists its title and summary stand in for the
// premise stage, so episodes always carry the feed's podcast name.
func (s *Service) runFromFeed(ctx context.Context, request string, n int) (context.Context, []generation.Object, *feeds.FeedRecord, bool, error) {
	ctx = services.WithWorkspace(ctx, s.ws.Name())
	existing, err := s.existingFeed(ctx)
	if err != nil {
		return ctx, nil, nil, false, err
	}
	var seeded []generation.Object
	if existing != nil {
		seeded = []generation.Object{{
			podcast.FieldPodcastName:        existing.Feed.Title,
			podcast.FieldPodcastDescription: existing.Feed.Summary,
		}}
	}
	ctx, outputs, err := s.run(ctx, request, seeded, n)
	if err != nil {
		return ctx, nil, nil, false, err
	}
	if existing != nil {
		return ctx, outputs, existing, false, nil
	}
	premise, err := podcast.PremiseFrom(outputs[0])
	if err != nil {
		return ctx, nil, nil, false, err
	}
	feed, created, err := s.resolveFeed(ctx, premise)
	if err != nil {
		return ctx, nil, nil, false, err
	}
	return ctx, outputs, feed, created, nil
}

// existingFeed returns the feed every request in the workspace resolves to,
// or nil when there is none yet. Premise identity keys feeds by the generated
// name, so no feed is known before the premise stage runs.
func (s *Service) existingFeed(ctx context.Context) (*feeds.FeedRecord, error) {
	if s.cfg.Feed.Identity == config.IdentityPremise {
		return nil, nil
	}
	var (
		record *feeds.FeedRecord
		err    error
	)
	if guid := feeds.DeriveGUID(s.cfg.Feed.Identity, s.ws.Name(), ""); guid == "" {
		record, err = s.feeds.Get(ctx)
	} else {
		record, err = s.feeds.GetByGUID(ctx, guid)
	}
	if errors.Is(err, feeds.ErrFeedNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve feed: %w", err)
	}
	return record, nil
}

func (s *Service) run(ctx context.Context, request string, seeded []generation.Object, n int) (context.Context, []generation.Object, error) {
	ctx = services.WithWorkspace(ctx, s.ws.Name())
	if s.pipeline == nil {
		return ctx, nil, services.Wrap(services.ErrConfiguration, "producer", "generate", "no completion provider configured", nil)
	}
	request = strings.TrimSpace(request)
	if request == "" {
		return ctx, nil, services.Wrap(services.ErrValidation, "producer", "generate", "request text is required", nil)
	}
	outputs, err := s.pipeline.OutputsFrom(ctx, request, seeded, n)
	if err != nil {
		if !errors.Is(err, services.ErrValidation) {
			payload := notifications.Payload{"error": err.Error()}
			var stageErr *generation.StageError
			if errors.As(err, &stageErr) {
				payload["stage"] = stageErr.Stage
				payload["error"] = stageErr.Err.Error()
			}
			s.notify(ctx, notifications.EventGenerationFailed, payload)
		}
		return ctx, nil, err
	}
	return ctx, outputs, nil
}

func (s *Service) resolveFeed(ctx context.Context, premise podcast.PodcastPremise) (*feeds.FeedRecord, bool, error) {
	candidate := s.feedFromPremise(premise)
	record, created, err := s.feeds.GetOrCreate(ctx, candidate)
	if err != nil {
		return nil, false, fmt.Errorf("resolve feed: %w", err)
	}
	logging.WithContext(ctx, s.logger).Debug("feed resolved",
		logging.String("feed_id", record.ID),
		logging.String("feed_guid", record.Feed.GUID),
		logging.Bool("created", created),
	)
	if created {
		s.notify(ctx, notifications.EventFeedCreated, notifications.Payload{"title": record.Feed.Title})
	}
	return record, created, nil
}

// notify publishes best-effort; delivery failures are logged only.
func (s *Service) notify(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if err := s.notifier.Publish(ctx, event, payload); err != nil {
		logging.WithContext(ctx, s.logger).Warn("notification failed",
			logging.String("event", string(event)),
			logging.Error(err),
		)
	}
}

func (s *Service) feedFromPremise(premise podcast.PodcastPremise) feeds.Feed {
	fc := s.cfg.Feed
	webURL := fc.WebURL
	if webURL == "" {
		webURL = fc.BaseURL
	}
	return feeds.Feed{
		GUID:      feeds.DeriveGUID(fc.Identity, s.ws.Name(), premise.PodcastName),
		Title:     premise.PodcastName,
		Summary:   premise.PodcastDescription,
		WebURL:    webURL,
		Language:  fc.Language,
		Copyright: fc.Copyright,
		Author:    fc.Author,
		ImageURL:  fc.ImageURL,
		Category:  fc.Category,
		Explicit:  feeds.Bool(fc.Explicit),
	}
}

// Paragraphs splits a script on blank lines, dropping empty paragraphs.
func Paragraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, part := range strings.Split(text, "\n\n") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
