package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"podstudio/internal/audio"
	"podstudio/internal/logging"
	"podstudio/internal/podcast"
	"podstudio/internal/services"
)

// Step names reported through progress callbacks.
const (
	StepFetchEpisode        = "fetch_episode"
	StepResolveGuests       = "resolve_guests"
	StepGenerateTranscript  = "generate_transcript"
	StepTranscriptGenerated = "transcript_generated"
	StepAssignVersion       = "assign_version"
	StepPersistTranscript   = "persist_transcript"
	StepSynthesizeAudio     = "synthesize_audio"
	StepUploadAudio         = "upload_audio"
	StepPersistArtifact     = "persist_artifact"
	StepDone                = "done"
)

// Progress percents for each step boundary.
const (
	percentFetch         = 5
	percentGuests        = 10
	percentTranscript    = 15
	percentTranscriptEnd = 40
	percentVersion       = 45
	percentPersistText   = 50
	percentSynthesis     = 55
	percentSynthesisEnd  = 80
	percentUpload        = 85
	percentArtifact      = 95
	percentDone          = 100
)

// AudioContentType is the media type of published containers.
const AudioContentType = "audio/wav"

// Dependencies groups the orchestrator's collaborators.
type Dependencies struct {
	Episodes    EpisodeSource
	Agent       TranscriptAgent
	Repository  Repository
	Synthesizer Synthesizer
	Objects     ObjectStore
}

// Orchestrator runs the generation steps for one episode at a time. It is
// safe for concurrent use across episodes.
type Orchestrator struct {
	deps   Dependencies
	audio  audio.Options
	logger *slog.Logger
}

// NewOrchestrator validates deps and returns an Orchestrator. audioOpts is
// passed to every synthesis call; its OnSegment hook is replaced per run.
func NewOrchestrator(deps Dependencies, audioOpts audio.Options, logger *slog.Logger) (*Orchestrator, error) {
	var missing []string
	if deps.Episodes == nil {
		missing = append(missing, "episodes")
	}
	if deps.Agent == nil {
		missing = append(missing, "agent")
	}
	if deps.Repository == nil {
		missing = append(missing, "repository")
	}
	if deps.Synthesizer == nil {
		missing = append(missing, "synthesizer")
	}
	if deps.Objects == nil {
		missing = append(missing, "object store")
	}
	if len(missing) > 0 {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init",
			"missing dependencies: "+strings.Join(missing, ", "), nil)
	}
	return &Orchestrator{
		deps:   deps,
		audio:  audioOpts,
		logger: logging.NewComponentLogger(logger, "pipeline"),
	}, nil
}

// ArtifactKey returns the object key for an episode's audio at version.
func ArtifactKey(episodeID string, version int) string {
	return fmt.Sprintf("episodes/%s/audio/v%d.wav", episodeID, version)
}

// Run executes every step for episodeID. onProgress may be nil; its errors
// and panics are logged and never abort the run.
func (o *Orchestrator) Run(ctx context.Context, episodeID string, onProgress podcast.ProgressFunc) (podcast.GenerationResult, error) {
	episodeID = strings.TrimSpace(episodeID)
	if episodeID == "" {
		return podcast.GenerationResult{}, services.Wrap(services.ErrValidation, "pipeline", "run", "episode id is required", nil)
	}
	ctx = services.WithEpisodeID(ctx, episodeID)
	logger := logging.WithContext(ctx, o.logger)
	reporter := &progressReporter{fn: onProgress, logger: logger}
	started := time.Now()

	logger.Info("generation started", logging.String(logging.FieldEventType, "generation_start"))

	// 1. Episode record.
	episode, err := o.deps.Episodes.GetEpisode(ctx, episodeID)
	if err != nil {
		return o.abort(ctx, logger, StepFetchEpisode, err)
	}
	if episode == nil {
		return o.abort(ctx, logger, StepFetchEpisode,
			services.Wrap(services.ErrNotFound, "pipeline", StepFetchEpisode, fmt.Sprintf("episode %q not found", episodeID), nil))
	}
	reporter.report(ctx, StepFetchEpisode, percentFetch, podcast.PhaseTranscript)

	// 2. Guests.
	guests, err := o.deps.Episodes.ListGuestsForEpisode(ctx, episodeID)
	if err != nil {
		return o.abort(ctx, logger, StepResolveGuests, err)
	}
	if len(guests) == 0 {
		return o.abort(ctx, logger, StepResolveGuests,
			services.Wrap(services.ErrPrecondition, "pipeline", StepResolveGuests,
				fmt.Sprintf("episode %q has no guests assigned; add guests before generating", episodeID), nil))
	}
	reporter.report(ctx, StepResolveGuests, percentGuests, podcast.PhaseTranscript)

	// 3. Transcript.
	reporter.report(ctx, StepGenerateTranscript, percentTranscript, podcast.PhaseTranscript)
	generated, err := o.deps.Agent.GenerateTranscript(ctx, episode.Title, episode.Description, guests)
	if err != nil {
		return o.abort(ctx, logger, StepGenerateTranscript, err)
	}
	if len(generated.Segments) == 0 {
		return o.abort(ctx, logger, StepGenerateTranscript,
			services.Wrap(services.ErrExternal, "pipeline", StepGenerateTranscript, "agent returned no transcript segments", nil))
	}
	if generated.WordCount <= 0 {
		generated.WordCount = podcast.CountWords(generated.Text)
	}
	reporter.report(ctx, StepTranscriptGenerated, percentTranscriptEnd, podcast.PhaseTranscript)

	// 4. Version, read fresh right before the insert.
	latest, err := o.deps.Repository.MaxTranscriptVersion(ctx, episodeID)
	if err != nil {
		return o.abort(ctx, logger, StepAssignVersion, err)
	}
	version := latest + 1
	reporter.report(ctx, StepAssignVersion, percentVersion, podcast.PhaseTranscript)

	// 5. Transcript row.
	transcript, err := o.deps.Repository.InsertTranscript(ctx, podcast.Transcript{
		EpisodeID: episodeID,
		Version:   version,
		Body:      generated.Text,
		WordCount: generated.WordCount,
	})
	if err != nil {
		return o.abort(ctx, logger, StepPersistTranscript, err)
	}
	logger.Info("transcript persisted",
		logging.String("transcript_id", transcript.ID),
		logging.Int("version", version),
		logging.Int("word_count", generated.WordCount),
		logging.Int("segments", len(generated.Segments)),
	)
	reporter.report(ctx, StepPersistTranscript, percentPersistText, podcast.PhaseTranscript)

	// 6. Audio.
	reporter.report(ctx, StepSynthesizeAudio, percentSynthesis, podcast.PhaseAudio)
	opts := o.audio
	opts.OnSegment = func(done, total int) {
		span := percentSynthesisEnd - percentSynthesis
		reporter.report(ctx, StepSynthesizeAudio, percentSynthesis+span*done/total, podcast.PhaseAudio)
	}
	container, err := o.deps.Synthesizer.Synthesize(ctx, generated.Segments, opts)
	if err != nil {
		return o.abort(ctx, logger, StepSynthesizeAudio, err)
	}
	header, err := audio.ProbeWAV(container)
	if err != nil {
		return o.abort(ctx, logger, StepSynthesizeAudio, err)
	}

	key := ArtifactKey(episodeID, version)
	url, err := o.deps.Objects.Put(ctx, key, container, AudioContentType)
	if err != nil {
		return o.abort(ctx, logger, StepUploadAudio, err)
	}
	reporter.report(ctx, StepUploadAudio, percentUpload, podcast.PhaseAudio)

	// 7. Artifact row.
	artifact, err := o.deps.Repository.InsertAudioArtifact(ctx, podcast.AudioArtifact{
		EpisodeID:       episodeID,
		TranscriptID:    transcript.ID,
		Version:         version,
		Key:             key,
		URL:             url,
		DurationSeconds: header.Duration().Seconds(),
		SizeBytes:       int64(len(container)),
		Status:          podcast.ArtifactReady,
	})
	if err != nil {
		logger.Warn("transcript persisted without audio artifact",
			logging.String("transcript_id", transcript.ID),
			logging.Int("version", version),
			logging.String(logging.FieldEventType, "artifact_persist_failed"),
			logging.String(logging.FieldErrorHint, "the uploaded audio is orphaned; rerun generation to produce a consistent pair"),
		)
		return o.abort(ctx, logger, StepPersistArtifact, err)
	}
	reporter.report(ctx, StepPersistArtifact, percentArtifact, podcast.PhaseAudio)

	// 8. Result.
	result := podcast.GenerationResult{
		TranscriptID:      transcript.ID,
		TranscriptVersion: version,
		Audio: podcast.AudioRef{
			Key:             artifact.Key,
			URL:             artifact.URL,
			DurationSeconds: artifact.DurationSeconds,
			SizeBytes:       artifact.SizeBytes,
		},
	}
	reporter.report(ctx, StepDone, percentDone, podcast.PhaseAudio)
	logger.Info("generation finished",
		logging.String(logging.FieldEventType, "generation_complete"),
		logging.Int("version", version),
		logging.String("audio_key", key),
		logging.Float64("duration_seconds", artifact.DurationSeconds),
		logging.Int64("size_bytes", artifact.SizeBytes),
		logging.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}

func (o *Orchestrator) abort(ctx context.Context, logger *slog.Logger, step string, err error) (podcast.GenerationResult, error) {
	stepLogger := logging.WithContext(services.WithStage(ctx, step), logger)
	stepLogger.Error("generation step failed",
		logging.String(logging.FieldEventType, "generation_step_failed"),
		logging.String("error_kind", services.Kind(err)),
		logging.Error(err),
	)
	return podcast.GenerationResult{}, err
}
