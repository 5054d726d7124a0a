// Package redisstate persists workflow state in Redis for deployments that
// share actor state between hosts.
package redisstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"podstudio/internal/config"
	"podstudio/internal/services"
	"podstudio/internal/workflow"
)

// Store keeps one JSON document per episode plus a set of active episode ids.
type Store struct {
	client *redis.Client
	prefix string
}

var _ workflow.StateStore = (*Store)(nil)

// Open connects using the state section of cfg and verifies the server
// answers.
func Open(ctx context.Context, cfg config.State) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	st := New(client, cfg.RedisPrefix)
	if err := st.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return st, nil
}

// New wraps an existing client.
func New(client *redis.Client, prefix string) *Store {
	prefix = strings.Trim(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = "podstudio"
	}
	return &Store{client: client, prefix: prefix}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return storageError("ping", err)
	}
	return nil
}

// Close releases the client.
func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *Store) stateKey(episodeID string) string {
	return fmt.Sprintf("%s:state:%s", s.prefix, episodeID)
}

func (s *Store) activeKey() string {
	return s.prefix + ":active"
}

// LoadWorkflowState returns the stored state or the idle state when the
// episode never ran.
func (s *Store) LoadWorkflowState(ctx context.Context, episodeID string) (workflow.State, error) {
	raw, err := s.client.Get(ctx, s.stateKey(episodeID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return workflow.IdleState(episodeID), nil
	}
	if err != nil {
		return workflow.State{}, storageError("load workflow state", err)
	}
	return decodeState(raw)
}

// SaveWorkflowState writes the document and maintains the active set in one
// transaction.
func (s *Store) SaveWorkflowState(ctx context.Context, state workflow.State) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return storageError("encode workflow state", err)
	}
	_, err = s.client.TxPipelined(ctx, s.writeState(ctx, state, payload))
	if err != nil {
		return storageError("save workflow state", err)
	}
	return nil
}

// ReplaceWorkflowState writes next under WATCH on the episode key, so the
// MULTI block aborts when another client touched the document after it was
// compared with expected.
func (s *Store) ReplaceWorkflowState(ctx context.Context, expected, next workflow.State) error {
	payload, err := json.Marshal(next)
	if err != nil {
		return storageError("encode workflow state", err)
	}
	key := s.stateKey(next.EpisodeID)
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		stored := workflow.IdleState(next.EpisodeID)
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			if stored, err = decodeState(raw); err != nil {
				return err
			}
		}
		if !workflow.Matches(stored, expected) {
			return workflow.ErrStateChanged
		}
		_, err = tx.TxPipelined(ctx, s.writeState(ctx, next, payload))
		return err
	}, key)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, workflow.ErrStateChanged), errors.Is(err, redis.TxFailedErr):
		return workflow.ErrStateChanged
	default:
		return storageError("replace workflow state", err)
	}
}

func (s *Store) writeState(ctx context.Context, state workflow.State, payload []byte) func(redis.Pipeliner) error {
	return func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.stateKey(state.EpisodeID), payload, 0)
		if state.Status.IsActive() {
			pipe.SAdd(ctx, s.activeKey(), state.EpisodeID)
		} else {
			pipe.SRem(ctx, s.activeKey(), state.EpisodeID)
		}
		return nil
	}
}

// ListActiveWorkflowStates returns every in-flight state ordered by episode id.
// Members whose document is gone or no longer active are skipped.
func (s *Store) ListActiveWorkflowStates(ctx context.Context) ([]workflow.State, error) {
	ids, err := s.client.SMembers(ctx, s.activeKey()).Result()
	if err != nil {
		return nil, storageError("list active workflow states", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	sort.Strings(ids)
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.stateKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, storageError("list active workflow states", err)
	}
	states := make([]workflow.State, 0, len(values))
	for _, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}
		state, err := decodeState([]byte(raw))
		if err != nil {
			return nil, err
		}
		if state.Status.IsActive() {
			states = append(states, state)
		}
	}
	return states, nil
}

func decodeState(raw []byte) (workflow.State, error) {
	var state workflow.State
	if err := json.Unmarshal(raw, &state); err != nil {
		return workflow.State{}, storageError("decode workflow state", err)
	}
	if _, ok := workflow.ParseStatus(string(state.Status)); !ok {
		return workflow.State{}, storageError("decode workflow state", fmt.Errorf("unknown status %q", state.Status))
	}
	return state, nil
}

func storageError(operation string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return services.Wrap(services.ErrStorage, "redisstate", operation, "", err)
}
