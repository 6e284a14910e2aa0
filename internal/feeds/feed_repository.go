package feeds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"podcaster/internal/docstore"
	"podcaster/internal/logging"
	"podcaster/internal/services"
)

// TagKindFeed marks a feed document. The tag name is the feed GUID and the
// value the feed JSON; the newest such tag is authoritative.
const TagKindFeed = "feed"

const feedBlockText = "This file represents a podcast feed."

var (
	// ErrDuplicateFeed reports an un-keyed create in a workspace that already
	// has a feed. Callers recover by querying again.
	ErrDuplicateFeed = fmt.Errorf("feed already exists in workspace: %w", services.ErrConflict)
	// ErrFeedNotFound reports a workspace with no feed.
	ErrFeedNotFound = fmt.Errorf("feed %w", services.ErrNotFound)
)

// FeedRepository stores feeds in one workspace.
type FeedRepository struct {
	ws     *docstore.Workspace
	logger *slog.Logger
}

// NewFeedRepository returns a repository over ws.
func NewFeedRepository(ws *docstore.Workspace, logger *slog.Logger) *FeedRepository {
	return &FeedRepository{ws: ws, logger: logging.NewComponentLogger(logger, "feeds")}
}

// Create stores feed. Without a GUID it fails with ErrDuplicateFeed when any
// feed already exists in the workspace.
func (r *FeedRepository) Create(ctx context.Context, feed Feed) (*FeedRecord, error) {
	feed.GUID = strings.TrimSpace(feed.GUID)
	if feed.GUID == "" {
		existing, err := r.ws.QueryByTag(ctx, docstore.TagFilter{Kind: TagKindFeed})
		if err != nil {
			return nil, fmt.Errorf("check existing feed: %w", err)
		}
		if len(existing) > 0 {
			return nil, ErrDuplicateFeed
		}
	}
	value, err := json.Marshal(feed)
	if err != nil {
		return nil, fmt.Errorf("encode feed: %w", err)
	}
	doc, err := r.ws.CreateDocument(ctx, docstore.NewDocument{
		Blocks: []docstore.NewBlock{{Text: feedBlockText}},
		Tags:   []docstore.NewTag{{Kind: TagKindFeed, Name: feed.GUID, Value: string(value)}},
	})
	if err != nil {
		return nil, fmt.Errorf("create feed: %w", err)
	}
	r.logger.Info("feed created",
		logging.String(logging.FieldEventType, "feed_created"),
		logging.String(logging.FieldWorkspace, r.ws.Name()),
		logging.String("feed_id", doc.ID),
		logging.String("feed_guid", feed.GUID),
		logging.String("title", feed.Title),
	)
	return feedRecordFrom(*doc)
}

// GetOrCreate returns the feed with candidate's GUID (or, without a GUID, any
// feed in the workspace), creating it from candidate on a miss. A concurrent
// creator winning the race is resolved by one re-query.
func (r *FeedRepository) GetOrCreate(ctx context.Context, candidate Feed) (*FeedRecord, bool, error) {
	candidate.GUID = strings.TrimSpace(candidate.GUID)
	if record, err := r.lookup(ctx, candidate.GUID); err == nil {
		return record, false, nil
	} else if !errors.Is(err, ErrFeedNotFound) {
		return nil, false, err
	}

	record, err := r.Create(ctx, candidate)
	if err == nil {
		return record, true, nil
	}
	if !errors.Is(err, ErrDuplicateFeed) {
		return nil, false, err
	}
	r.logger.Debug("feed created concurrently; re-querying",
		logging.String(logging.FieldEventType, "feed_create_race"),
		logging.String(logging.FieldWorkspace, r.ws.Name()),
	)
	record, err = r.lookup(ctx, candidate.GUID)
	if err != nil {
		return nil, false, err
	}
	return record, false, nil
}

// Get returns the first feed created in the workspace.
func (r *FeedRepository) Get(ctx context.Context) (*FeedRecord, error) {
	return r.lookup(ctx, "")
}

// GetByGUID returns the feed keyed by guid.
func (r *FeedRepository) GetByGUID(ctx context.Context, guid string) (*FeedRecord, error) {
	guid = strings.TrimSpace(guid)
	if guid == "" {
		return nil, services.Wrap(services.ErrValidation, "feeds", "get", "guid is required", nil)
	}
	return r.lookup(ctx, guid)
}

// Replace swaps the whole feed record for feed. The GUID cannot change.
func (r *FeedRepository) Replace(ctx context.Context, record *FeedRecord, feed Feed) (*FeedRecord, error) {
	if record == nil {
		return nil, services.Wrap(services.ErrValidation, "feeds", "replace", "record is required", nil)
	}
	feed.GUID = strings.TrimSpace(feed.GUID)
	if feed.GUID == "" {
		feed.GUID = record.Feed.GUID
	}
	if feed.GUID != record.Feed.GUID {
		return nil, services.Wrap(services.ErrValidation, "feeds", "replace",
			fmt.Sprintf("guid %q cannot replace %q", feed.GUID, record.Feed.GUID), nil)
	}
	value, err := json.Marshal(feed)
	if err != nil {
		return nil, fmt.Errorf("encode feed: %w", err)
	}
	if _, err := r.ws.AddTag(ctx, record.ID, docstore.NewTag{Kind: TagKindFeed, Name: feed.GUID, Value: string(value)}); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return nil, ErrFeedNotFound
		}
		return nil, fmt.Errorf("replace feed: %w", err)
	}
	doc, err := r.ws.GetDocument(ctx, record.ID)
	if err != nil {
		return nil, fmt.Errorf("reload feed: %w", err)
	}
	return feedRecordFrom(*doc)
}

func (r *FeedRepository) lookup(ctx context.Context, guid string) (*FeedRecord, error) {
	docs, err := r.ws.QueryByTag(ctx, docstore.TagFilter{Kind: TagKindFeed, Name: guid})
	if err != nil {
		return nil, fmt.Errorf("query feed: %w", err)
	}
	if len(docs) == 0 {
		return nil, ErrFeedNotFound
	}
	return feedRecordFrom(docs[0])
}

func feedRecordFrom(doc docstore.Document) (*FeedRecord, error) {
	tags := doc.TagsOfKind(TagKindFeed)
	if len(tags) == 0 {
		return nil, fmt.Errorf("document %s carries no feed tag", doc.ID)
	}
	latest := tags[len(tags)-1]
	var feed Feed
	if latest.Value != "" {
		if err := json.Unmarshal([]byte(latest.Value), &feed); err != nil {
			return nil, fmt.Errorf("decode feed %s: %w", doc.ID, err)
		}
	}
	feed.GUID = latest.Name
	return &FeedRecord{ID: doc.ID, Feed: feed, CreatedAt: doc.CreatedAt}, nil
}
