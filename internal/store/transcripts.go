package store

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"podstudio/internal/podcast"
	"podstudio/internal/services"
)

// MaxTranscriptVersion returns the highest stored version, or 0 when none exist.
func (s *Store) MaxTranscriptVersion(ctx context.Context, episodeID string) (int, error) {
	var version int
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT COALESCE(MAX(version), 0) FROM transcripts WHERE episode_id = ?`,
		strings.TrimSpace(episodeID),
	).Scan(&version)
	if err != nil {
		return 0, storageError("max transcript version", err)
	}
	return version, nil
}

// InsertTranscript appends a transcript row. ID and CreatedAt are assigned
// when empty.
func (s *Store) InsertTranscript(ctx context.Context, transcript podcast.Transcript) (podcast.Transcript, error) {
	if strings.TrimSpace(transcript.EpisodeID) == "" || transcript.Version <= 0 {
		return transcript, services.Wrap(services.ErrValidation, "store", "insert transcript", "episode id and positive version required", nil)
	}
	if transcript.ID == "" {
		transcript.ID = uuid.NewString()
	}
	if transcript.CreatedAt.IsZero() {
		transcript.CreatedAt = s.now().UTC()
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO transcripts (id, episode_id, version, body, word_count, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		transcript.ID, transcript.EpisodeID, transcript.Version, transcript.Body, transcript.WordCount,
		formatTime(transcript.CreatedAt),
	)
	if err != nil {
		return transcript, storageError("insert transcript", err)
	}
	return transcript, nil
}

// ListTranscripts returns every transcript of an episode by ascending version.
func (s *Store) ListTranscripts(ctx context.Context, episodeID string) ([]podcast.Transcript, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT id, episode_id, version, body, word_count, created_at
         FROM transcripts WHERE episode_id = ? ORDER BY version`,
		strings.TrimSpace(episodeID),
	)
	if err != nil {
		return nil, storageError("list transcripts", err)
	}
	defer rows.Close()

	var transcripts []podcast.Transcript
	for rows.Next() {
		var (
			t          podcast.Transcript
			createdRaw string
		)
		if err := rows.Scan(&t.ID, &t.EpisodeID, &t.Version, &t.Body, &t.WordCount, &createdRaw); err != nil {
			return nil, storageError("list transcripts", err)
		}
		t.CreatedAt = parseTime(createdRaw)
		transcripts = append(transcripts, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list transcripts", err)
	}
	return transcripts, nil
}

// InsertAudioArtifact appends an audio artifact row. ID and CreatedAt are
// assigned when empty.
func (s *Store) InsertAudioArtifact(ctx context.Context, artifact podcast.AudioArtifact) (podcast.AudioArtifact, error) {
	if strings.TrimSpace(artifact.EpisodeID) == "" || strings.TrimSpace(artifact.TranscriptID) == "" {
		return artifact, services.Wrap(services.ErrValidation, "store", "insert audio artifact", "episode and transcript ids required", nil)
	}
	if artifact.ID == "" {
		artifact.ID = uuid.NewString()
	}
	if artifact.CreatedAt.IsZero() {
		artifact.CreatedAt = s.now().UTC()
	}
	if artifact.Status == "" {
		artifact.Status = podcast.ArtifactReady
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO audio_artifacts
         (id, episode_id, transcript_id, version, object_key, url, duration_seconds, size_bytes, status, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		artifact.ID, artifact.EpisodeID, artifact.TranscriptID, artifact.Version, artifact.Key, artifact.URL,
		artifact.DurationSeconds, artifact.SizeBytes, artifact.Status, formatTime(artifact.CreatedAt),
	)
	if err != nil {
		return artifact, storageError("insert audio artifact", err)
	}
	return artifact, nil
}

// ListAudioArtifacts returns every artifact of an episode by ascending version.
func (s *Store) ListAudioArtifacts(ctx context.Context, episodeID string) ([]podcast.AudioArtifact, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT id, episode_id, transcript_id, version, object_key, url, duration_seconds, size_bytes, status, created_at
         FROM audio_artifacts WHERE episode_id = ? ORDER BY version, created_at`,
		strings.TrimSpace(episodeID),
	)
	if err != nil {
		return nil, storageError("list audio artifacts", err)
	}
	defer rows.Close()

	var artifacts []podcast.AudioArtifact
	for rows.Next() {
		var (
			a          podcast.AudioArtifact
			createdRaw string
		)
		if err := rows.Scan(&a.ID, &a.EpisodeID, &a.TranscriptID, &a.Version, &a.Key, &a.URL,
			&a.DurationSeconds, &a.SizeBytes, &a.Status, &createdRaw); err != nil {
			return nil, storageError("list audio artifacts", err)
		}
		a.CreatedAt = parseTime(createdRaw)
		artifacts = append(artifacts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list audio artifacts", err)
	}
	return artifacts, nil
}
