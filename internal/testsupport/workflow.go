package testsupport

import (
	"context"
	"sync"

	"podstudio/internal/workflow"
)

// LoadBarrier wraps a StateStore and holds the first LoadWorkflowState call
// until every store sharing the same WaitGroup has loaded. Actors built on
// barrier stores therefore decide from the same snapshot.
type LoadBarrier struct {
	workflow.StateStore
	loaded *sync.WaitGroup
	once   sync.Once
}

// NewLoadBarriers wraps each store with a barrier shared by all of them.
func NewLoadBarriers(stores ...workflow.StateStore) []*LoadBarrier {
	var loaded sync.WaitGroup
	loaded.Add(len(stores))
	barriers := make([]*LoadBarrier, len(stores))
	for i, st := range stores {
		barriers[i] = &LoadBarrier{StateStore: st, loaded: &loaded}
	}
	return barriers
}

func (b *LoadBarrier) LoadWorkflowState(ctx context.Context, episodeID string) (workflow.State, error) {
	state, err := b.StateStore.LoadWorkflowState(ctx, episodeID)
	b.once.Do(func() {
		b.loaded.Done()
		b.loaded.Wait()
	})
	return state, err
}

// StartConcurrently calls Start on every actor at once and returns the
// per-actor results in order.
func StartConcurrently(ctx context.Context, episodeID string, actors ...*workflow.Actor) ([]workflow.State, []error) {
	states := make([]workflow.State, len(actors))
	errs := make([]error, len(actors))
	var wg sync.WaitGroup
	for i, actor := range actors {
		wg.Add(1)
		go func() {
			defer wg.Done()
			states[i], errs[i] = actor.Start(ctx, episodeID)
		}()
	}
	wg.Wait()
	return states, errs
}
