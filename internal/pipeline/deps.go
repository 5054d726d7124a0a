package pipeline

import (
	"context"

	"podstudio/internal/audio"
	"podstudio/internal/podcast"
)

// EpisodeSource reads episode metadata and guest assignments.
type EpisodeSource interface {
	GetEpisode(ctx context.Context, id string) (*podcast.Episode, error)
	ListGuestsForEpisode(ctx context.Context, episodeID string) ([]podcast.Guest, error)
}

// TranscriptAgent writes the conversation for an episode.
type TranscriptAgent interface {
	GenerateTranscript(ctx context.Context, title, description string, guests []podcast.Guest) (podcast.GeneratedTranscript, error)
}

// Repository appends transcript and audio artifact rows.
type Repository interface {
	MaxTranscriptVersion(ctx context.Context, episodeID string) (int, error)
	InsertTranscript(ctx context.Context, transcript podcast.Transcript) (podcast.Transcript, error)
	InsertAudioArtifact(ctx context.Context, artifact podcast.AudioArtifact) (podcast.AudioArtifact, error)
}

// Synthesizer renders transcript segments into a WAV container.
type Synthesizer interface {
	Synthesize(ctx context.Context, segments []podcast.TranscriptSegment, opts audio.Options) ([]byte, error)
}

// ObjectStore publishes a blob and returns its URL.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}
