package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"podstudio/internal/podcast"
	"podstudio/internal/workflow"
)

const workflowStateColumns = "episode_id, run_id, status, current_step, progress, started_at, completed_at, error_message, result_json, updated_at"

func scanWorkflowState(row scanner) (workflow.State, error) {
	var (
		state        workflow.State
		runID        sql.NullString
		statusRaw    string
		currentStep  sql.NullString
		startedRaw   sql.NullString
		completedRaw sql.NullString
		errorMessage sql.NullString
		resultJSON   sql.NullString
		updatedRaw   string
	)
	if err := row.Scan(&state.EpisodeID, &runID, &statusRaw, &currentStep, &state.Progress,
		&startedRaw, &completedRaw, &errorMessage, &resultJSON, &updatedRaw); err != nil {
		return workflow.State{}, err
	}
	status, ok := workflow.ParseStatus(statusRaw)
	if !ok {
		return workflow.State{}, fmt.Errorf("unknown workflow status %q for episode %s", statusRaw, state.EpisodeID)
	}
	state.Status = status
	state.RunID = runID.String
	state.CurrentStep = currentStep.String
	state.StartedAt = parseNullTime(startedRaw)
	state.CompletedAt = parseNullTime(completedRaw)
	state.Error = errorMessage.String
	state.UpdatedAt = parseTime(updatedRaw)
	if resultJSON.Valid && strings.TrimSpace(resultJSON.String) != "" {
		var result podcast.GenerationResult
		if err := json.Unmarshal([]byte(resultJSON.String), &result); err != nil {
			return workflow.State{}, fmt.Errorf("decode result for episode %s: %w", state.EpisodeID, err)
		}
		state.Result = &result
	}
	return state, nil
}

// LoadWorkflowState returns the stored state, or an idle state when absent.
func (s *Store) LoadWorkflowState(ctx context.Context, episodeID string) (workflow.State, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+workflowStateColumns+` FROM workflow_states WHERE episode_id = ?`, episodeID)
	state, err := scanWorkflowState(row)
	if errors.Is(err, sql.ErrNoRows) {
		return workflow.IdleState(episodeID), nil
	}
	if err != nil {
		return workflow.State{}, storageError("load workflow state", err)
	}
	return state, nil
}

const upsertWorkflowState = `INSERT INTO workflow_states (` + workflowStateColumns + `)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(episode_id) DO UPDATE SET
             run_id = excluded.run_id,
             status = excluded.status,
             current_step = excluded.current_step,
             progress = excluded.progress,
             started_at = excluded.started_at,
             completed_at = excluded.completed_at,
             error_message = excluded.error_message,
             result_json = excluded.result_json,
             updated_at = excluded.updated_at`

// SaveWorkflowState replaces the stored state for state.EpisodeID.
func (s *Store) SaveWorkflowState(ctx context.Context, state workflow.State) error {
	args, err := s.workflowStateArgs(state)
	if err != nil {
		return storageError("save workflow state", err)
	}
	if _, err := s.execWithRetry(ctx, upsertWorkflowState, args...); err != nil {
		return storageError("save workflow state", err)
	}
	return nil
}

// ReplaceWorkflowState writes next only while the stored row still has
// expected's status and run id. A missing row matches an idle expectation.
func (s *Store) ReplaceWorkflowState(ctx context.Context, expected, next workflow.State) error {
	args, err := s.workflowStateArgs(next)
	if err != nil {
		return storageError("replace workflow state", err)
	}
	expectedStatus := expected.Status
	if expectedStatus == "" {
		expectedStatus = workflow.StatusIdle
	}
	query := upsertWorkflowState + `
         WHERE workflow_states.status = ? AND IFNULL(workflow_states.run_id, '') = ?`
	if expectedStatus != workflow.StatusIdle {
		query = `UPDATE workflow_states SET
             run_id = ?, status = ?, current_step = ?, progress = ?, started_at = ?,
             completed_at = ?, error_message = ?, result_json = ?, updated_at = ?
         WHERE episode_id = ? AND status = ? AND IFNULL(run_id, '') = ?`
		args = append(args[1:], next.EpisodeID)
	}
	args = append(args, string(expectedStatus), expected.RunID)

	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return storageError("replace workflow state", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storageError("replace workflow state", err)
	}
	if affected == 0 {
		return workflow.ErrStateChanged
	}
	return nil
}

func (s *Store) workflowStateArgs(state workflow.State) ([]any, error) {
	var resultJSON any
	if state.Result != nil {
		encoded, err := json.Marshal(state.Result)
		if err != nil {
			return nil, fmt.Errorf("encode result: %w", err)
		}
		resultJSON = string(encoded)
	}
	updatedAt := state.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = s.now()
	}
	return []any{
		state.EpisodeID,
		nullableString(state.RunID),
		string(state.Status),
		nullableString(state.CurrentStep),
		state.Progress,
		nullableTime(state.StartedAt),
		nullableTime(state.CompletedAt),
		nullableString(state.Error),
		resultJSON,
		formatTime(updatedAt),
	}, nil
}

// ListActiveWorkflowStates returns every state with an in-flight run.
func (s *Store) ListActiveWorkflowStates(ctx context.Context) ([]workflow.State, error) {
	active := workflow.ActiveStatuses()
	args := make([]any, len(active))
	for i, status := range active {
		args[i] = string(status)
	}
	return s.queryWorkflowStates(ctx, "list active workflow states",
		`SELECT `+workflowStateColumns+` FROM workflow_states
         WHERE status IN (`+makePlaceholders(len(args))+`) ORDER BY episode_id`, args...)
}

// ListWorkflowStates returns every stored state.
func (s *Store) ListWorkflowStates(ctx context.Context) ([]workflow.State, error) {
	return s.queryWorkflowStates(ctx, "list workflow states",
		`SELECT `+workflowStateColumns+` FROM workflow_states ORDER BY episode_id`)
}

func (s *Store) queryWorkflowStates(ctx context.Context, operation, query string, args ...any) ([]workflow.State, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, storageError(operation, err)
	}
	defer rows.Close()

	var states []workflow.State
	for rows.Next() {
		state, err := scanWorkflowState(rows)
		if err != nil {
			return nil, storageError(operation, err)
		}
		states = append(states, state)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError(operation, err)
	}
	return states, nil
}

var _ workflow.StateStore = (*Store)(nil)
