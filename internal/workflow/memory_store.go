package workflow

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is a process-local StateStore. It backs one-shot CLI runs that
// do not need durability and the package tests.
type MemoryStore struct {
	mu     sync.Mutex
	states map[string]State
	// FailSave, when set, is returned by every write.
	FailSave error
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]State)}
}

func (m *MemoryStore) LoadWorkflowState(_ context.Context, episodeID string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state, ok := m.states[episodeID]; ok {
		return cloneState(state), nil
	}
	return IdleState(episodeID), nil
}

func (m *MemoryStore) SaveWorkflowState(_ context.Context, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSave != nil {
		return m.FailSave
	}
	m.states[state.EpisodeID] = cloneState(state)
	return nil
}

func (m *MemoryStore) ReplaceWorkflowState(_ context.Context, expected, next State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSave != nil {
		return m.FailSave
	}
	stored, ok := m.states[next.EpisodeID]
	if !ok {
		stored = IdleState(next.EpisodeID)
	}
	if !Matches(stored, expected) {
		return ErrStateChanged
	}
	m.states[next.EpisodeID] = cloneState(next)
	return nil
}

func (m *MemoryStore) ListActiveWorkflowStates(_ context.Context) ([]State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var active []State
	for _, state := range m.states {
		if state.Status.IsActive() {
			active = append(active, cloneState(state))
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].EpisodeID < active[j].EpisodeID })
	return active, nil
}

func cloneState(state State) State {
	if state.StartedAt != nil {
		v := *state.StartedAt
		state.StartedAt = &v
	}
	if state.CompletedAt != nil {
		v := *state.CompletedAt
		state.CompletedAt = &v
	}
	if state.Result != nil {
		v := *state.Result
		state.Result = &v
	}
	return state
}
