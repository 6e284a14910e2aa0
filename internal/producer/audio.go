package producer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"podcaster/internal/feeds"
	"podcaster/internal/logging"
	"podcaster/internal/services"
)

// ErrEmptyAudio reports an audio upload with no bytes.
var ErrEmptyAudio = fmt.Errorf("audio body is empty: %w", services.ErrValidation)

// AudioPath returns where the audio for episode id is kept.
func (s *Service) AudioPath(id string) string {
	return filepath.Join(s.cfg.Paths.AudioDir, s.ws.Name(), id+".mp3")
}

// StoreAudio writes body as the episode's audio and marks the episode
// audio-complete. The file is written to a temp name and renamed into place.
func (s *Service) StoreAudio(ctx context.Context, id string, body io.Reader) (*feeds.EpisodeRecord, int64, error) {
	if _, err := s.Episode(ctx, id); err != nil {
		return nil, 0, err
	}

	dest := s.AudioPath(id)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, 0, fmt.Errorf("create audio dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), id+".*.part")
	if err != nil {
		return nil, 0, fmt.Errorf("create audio temp file: %w", err)
	}
	written, copyErr := io.Copy(tmp, body)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil || written == 0 {
		_ = os.Remove(tmp.Name())
		switch {
		case copyErr != nil:
			return nil, 0, fmt.Errorf("write audio: %w", copyErr)
		case closeErr != nil:
			return nil, 0, fmt.Errorf("close audio temp file: %w", closeErr)
		default:
			return nil, 0, ErrEmptyAudio
		}
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		_ = os.Remove(tmp.Name())
		return nil, 0, fmt.Errorf("store audio: %w", err)
	}

	record, err := s.MarkAudioComplete(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	logging.WithContext(services.WithWorkspace(ctx, s.ws.Name()), s.logger).Info("episode audio stored",
		logging.String("episode_id", id),
		logging.Int64("bytes", written),
	)
	return record, written, nil
}
