package workflow

import (
	"context"
	"errors"
	"time"

	"podstudio/internal/podcast"
)

// Status represents the lifecycle position of an episode's generation run.
type Status string

const (
	StatusIdle                 Status = "idle"
	StatusGeneratingTranscript Status = "generating_transcript"
	StatusGeneratingAudio      Status = "generating_audio"
	StatusCompleted            Status = "completed"
	StatusFailed               Status = "failed"
)

var knownStatuses = map[Status]struct{}{
	StatusIdle:                 {},
	StatusGeneratingTranscript: {},
	StatusGeneratingAudio:      {},
	StatusCompleted:            {},
	StatusFailed:               {},
}

// ParseStatus converts a persisted value back into a Status.
func ParseStatus(value string) (Status, bool) {
	status := Status(value)
	_, ok := knownStatuses[status]
	return status, ok
}

// ActiveStatuses lists statuses that represent an in-flight run.
func ActiveStatuses() []Status {
	return []Status{StatusGeneratingTranscript, StatusGeneratingAudio}
}

// IsActive reports whether a run is in flight.
func (s Status) IsActive() bool {
	return s == StatusGeneratingTranscript || s == StatusGeneratingAudio
}

// IsTerminal reports whether the run reached an outcome.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// State is the durable workflow record for one episode.
type State struct {
	EpisodeID   string                    `json:"episode_id"`
	RunID       string                    `json:"run_id,omitempty"`
	Status      Status                    `json:"status"`
	CurrentStep string                    `json:"current_step,omitempty"`
	Progress    int                       `json:"progress"`
	StartedAt   *time.Time                `json:"started_at,omitempty"`
	CompletedAt *time.Time                `json:"completed_at,omitempty"`
	Error       string                    `json:"error,omitempty"`
	Result      *podcast.GenerationResult `json:"result,omitempty"`
	UpdatedAt   time.Time                 `json:"updated_at"`
}

// IdleState returns the state of an episode that never ran.
func IdleState(episodeID string) State {
	return State{EpisodeID: episodeID, Status: StatusIdle}
}

// Update is a partial merge applied by Actor.Update. Nil fields are left
// untouched.
type Update struct {
	// RunID, when set, must match the active run.
	RunID    string
	Step     *string
	Progress *int
	Status   *Status
}

// ErrStateChanged is returned by ReplaceWorkflowState when the stored record
// no longer matches the expected one.
var ErrStateChanged = errors.New("workflow state changed concurrently")

// StateStore persists workflow state. Load returns IdleState for unknown
// episodes.
//
// ReplaceWorkflowState writes next only while the stored record still has
// expected's Status and RunID; an absent record matches an idle expectation.
// The check and the write are one atomic step so actors in different
// processes sharing a store cannot both admit a run.
type StateStore interface {
	LoadWorkflowState(ctx context.Context, episodeID string) (State, error)
	SaveWorkflowState(ctx context.Context, state State) error
	ReplaceWorkflowState(ctx context.Context, expected, next State) error
	ListActiveWorkflowStates(ctx context.Context) ([]State, error)
}

// Matches reports whether stored carries the same run identity as expected.
func Matches(stored, expected State) bool {
	return normalizedStatus(stored.Status) == normalizedStatus(expected.Status) && stored.RunID == expected.RunID
}

func normalizedStatus(status Status) Status {
	if status == "" {
		return StatusIdle
	}
	return status
}

// Listener observes persisted transitions. Implementations must not block for
// long; failures are theirs to log.
type Listener interface {
	OnTransition(ctx context.Context, prev, next State)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, prev, next State)

// OnTransition calls f.
func (f ListenerFunc) OnTransition(ctx context.Context, prev, next State) {
	f(ctx, prev, next)
}
