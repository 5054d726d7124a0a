package podcast

import (
	"context"
	"strings"
	"time"
)

// Episode is the top-level content unit a generation run produces a
// transcript and audio artifact for.
type Episode struct {
	ID          string
	Title       string
	Description string
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Guest is a person assigned to an episode.
type Guest struct {
	ID   string
	Name string
	Bio  string
}

// TranscriptSegment is one speaker's turn within a generated transcript.
type TranscriptSegment struct {
	Speaker string `json:"speaker"`
	Content string `json:"content"`
}

// GeneratedTranscript is what the transcript agent hands back.
type GeneratedTranscript struct {
	Text      string
	Segments  []TranscriptSegment
	WordCount int
}

// Transcript is a persisted transcript row.
type Transcript struct {
	ID        string
	EpisodeID string
	Version   int
	Body      string
	WordCount int
	CreatedAt time.Time
}

// Audio artifact statuses.
const (
	ArtifactReady = "ready"
)

// AudioArtifact is a persisted audio artifact row.
type AudioArtifact struct {
	ID              string
	EpisodeID       string
	TranscriptID    string
	Version         int
	Key             string
	URL             string
	DurationSeconds float64
	SizeBytes       int64
	Status          string
	CreatedAt       time.Time
}

// AudioRef references the published audio container.
type AudioRef struct {
	Key             string  `json:"key"`
	URL             string  `json:"url"`
	DurationSeconds float64 `json:"duration_seconds"`
	SizeBytes       int64   `json:"size_bytes"`
}

// GenerationResult is the durable outcome of a successful run.
type GenerationResult struct {
	TranscriptID      string   `json:"transcript_id"`
	TranscriptVersion int      `json:"transcript_version"`
	Audio             AudioRef `json:"audio"`
}

// Phase identifies which half of the pipeline a progress report belongs to.
type Phase string

const (
	PhaseTranscript Phase = "transcript"
	PhaseAudio      Phase = "audio"
)

// Progress is a single progress notification emitted by the pipeline.
type Progress struct {
	Step    string
	Percent int
	Phase   Phase
}

// CountWords returns the number of whitespace separated words in text.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// ProgressFunc receives progress notifications. Returned errors are reported
// but never abort the work being observed.
type ProgressFunc func(ctx context.Context, progress Progress) error
