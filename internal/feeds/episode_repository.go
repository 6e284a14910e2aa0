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

// Episode document tags.
const (
	TagKindEpisode   = "episode"
	TagNameData      = "data"
	TagNameHasAudio  = "has_audio"
	TagKindDocument  = "doc"
	DocTagTitle      = "title"
	DocTagH2         = "h2"
	DocTagText       = "text"
	DefaultContent   = "Episode Content"
	authorLinePrefix = "By "
)

// ErrEpisodeNotFound reports an ID that is not an episode in the workspace.
var ErrEpisodeNotFound = fmt.Errorf("episode %w", services.ErrNotFound)

// EpisodeRepository stores episodes in one workspace.
type EpisodeRepository struct {
	ws     *docstore.Workspace
	logger *slog.Logger
}

// NewEpisodeRepository returns a repository over ws.
func NewEpisodeRepository(ws *docstore.Workspace, logger *slog.Logger) *EpisodeRepository {
	return &EpisodeRepository{ws: ws, logger: logging.NewComponentLogger(logger, "feeds")}
}

// Create stores episode with a title block, an author line and one block per
// content segment. No content stores DefaultContent.
func (r *EpisodeRepository) Create(ctx context.Context, episode Episode, content ...string) (*EpisodeRecord, error) {
	value, err := json.Marshal(episode)
	if err != nil {
		return nil, fmt.Errorf("encode episode: %w", err)
	}
	if len(content) == 0 {
		content = []string{DefaultContent}
	}

	blocks := make([]docstore.NewBlock, 0, len(content)+2)
	if episode.Title != "" {
		blocks = append(blocks, docBlock(episode.Title, DocTagTitle))
	}
	if episode.Author != "" {
		blocks = append(blocks, docBlock(authorLinePrefix+episode.Author, DocTagH2))
	}
	for _, text := range content {
		blocks = append(blocks, docBlock(text, DocTagText))
	}

	doc, err := r.ws.CreateDocument(ctx, docstore.NewDocument{
		Blocks: blocks,
		Tags:   []docstore.NewTag{{Kind: TagKindEpisode, Name: TagNameData, Value: string(value)}},
	})
	if err != nil {
		return nil, fmt.Errorf("create episode: %w", err)
	}
	r.logger.Info("episode created",
		logging.String(logging.FieldEventType, "episode_created"),
		logging.String(logging.FieldWorkspace, r.ws.Name()),
		logging.String("episode_id", doc.ID),
		logging.String("title", episode.Title),
		logging.Int("segments", len(content)),
	)
	return episodeRecordFrom(*doc)
}

// List returns episodes in creation order: those with completed audio when
// withAudio is true, every episode otherwise.
func (r *EpisodeRepository) List(ctx context.Context, withAudio bool) ([]EpisodeRecord, error) {
	name := TagNameData
	if withAudio {
		name = TagNameHasAudio
	}
	docs, err := r.ws.QueryByTag(ctx, docstore.TagFilter{Kind: TagKindEpisode, Name: name})
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	records := make([]EpisodeRecord, 0, len(docs))
	for _, doc := range docs {
		record, err := episodeRecordFrom(doc)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, nil
}

// Get returns the episode stored under id.
func (r *EpisodeRepository) Get(ctx context.Context, id string) (*EpisodeRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, services.Wrap(services.ErrValidation, "feeds", "get episode", "id is required", nil)
	}
	doc, err := r.ws.GetDocument(ctx, id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return nil, ErrEpisodeNotFound
		}
		return nil, fmt.Errorf("get episode: %w", err)
	}
	if !hasTag(*doc, TagKindEpisode, TagNameData) {
		return nil, ErrEpisodeNotFound
	}
	return episodeRecordFrom(*doc)
}

// MarkAudioComplete appends the has_audio marker. Repeated calls add repeated
// markers; listing still returns the episode once.
func (r *EpisodeRepository) MarkAudioComplete(ctx context.Context, id string) (*EpisodeRecord, error) {
	record, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := r.ws.AddTag(ctx, record.ID, docstore.NewTag{Kind: TagKindEpisode, Name: TagNameHasAudio}); err != nil {
		return nil, fmt.Errorf("mark audio complete: %w", err)
	}
	r.logger.Info("episode audio complete",
		logging.String(logging.FieldEventType, "episode_audio_complete"),
		logging.String(logging.FieldWorkspace, r.ws.Name()),
		logging.String("episode_id", record.ID),
	)
	record.HasAudio = true
	return record, nil
}

func docBlock(text, name string) docstore.NewBlock {
	return docstore.NewBlock{Text: text, Tags: []docstore.NewTag{{Kind: TagKindDocument, Name: name}}}
}

func hasTag(doc docstore.Document, kind, name string) bool {
	for _, tag := range doc.Tags {
		if tag.Kind == kind && tag.Name == name {
			return true
		}
	}
	return false
}

func episodeRecordFrom(doc docstore.Document) (*EpisodeRecord, error) {
	var episode Episode
	for _, tag := range doc.TagsOfKind(TagKindEpisode) {
		if tag.Name != TagNameData {
			continue
		}
		if tag.Value != "" {
			if err := json.Unmarshal([]byte(tag.Value), &episode); err != nil {
				return nil, fmt.Errorf("decode episode %s: %w", doc.ID, err)
			}
		}
		break
	}
	episode.GUID = doc.ID

	segments := make([]Segment, 0, len(doc.Blocks))
	for _, block := range doc.Blocks {
		kind := DocTagText
		for _, tag := range block.Tags {
			if tag.Kind == TagKindDocument && tag.Name != "" {
				kind = tag.Name
				break
			}
		}
		segments = append(segments, Segment{Kind: kind, Text: block.Text})
	}
	return &EpisodeRecord{
		ID:        doc.ID,
		Episode:   episode,
		HasAudio:  hasTag(doc, TagKindEpisode, TagNameHasAudio),
		Segments:  segments,
		CreatedAt: doc.CreatedAt,
	}, nil
}
