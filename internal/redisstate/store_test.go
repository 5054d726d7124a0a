package redisstate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"podstudio/internal/config"
	"podstudio/internal/podcast"
	"podstudio/internal/services"
	"podstudio/internal/testsupport"
	"podstudio/internal/workflow"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	st := New(client, "test")
	t.Cleanup(func() { _ = st.Close() })
	return st, server
}

func TestLoadUnknownEpisodeIsIdle(t *testing.T) {
	st, _ := newTestStore(t)
	state, err := st.LoadWorkflowState(context.Background(), "E1")
	if err != nil {
		t.Fatalf("LoadWorkflowState: %v", err)
	}
	if state.Status != workflow.StatusIdle || state.EpisodeID != "E1" {
		t.Fatalf("unexpected state %+v", state)
	}
}

func TestSaveMaintainsActiveSet(t *testing.T) {
	st, server := newTestStore(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	active := workflow.State{EpisodeID: "E1", RunID: "r1", Status: workflow.StatusGeneratingTranscript, Progress: 15, StartedAt: &started}
	if err := st.SaveWorkflowState(ctx, active); err != nil {
		t.Fatalf("SaveWorkflowState: %v", err)
	}
	if ok, _ := server.SIsMember("test:active", "E1"); !ok {
		t.Fatalf("E1 should be in the active set")
	}
	if !server.Exists("test:state:E1") {
		t.Fatalf("state document missing")
	}

	states, err := st.ListActiveWorkflowStates(ctx)
	if err != nil || len(states) != 1 || states[0].RunID != "r1" {
		t.Fatalf("unexpected active states %+v %v", states, err)
	}

	result := podcast.GenerationResult{TranscriptID: "t1", TranscriptVersion: 1}
	done := started.Add(time.Minute)
	active.Status = workflow.StatusCompleted
	active.Progress = 100
	active.CompletedAt = &done
	active.Result = &result
	if err := st.SaveWorkflowState(ctx, active); err != nil {
		t.Fatalf("SaveWorkflowState: %v", err)
	}
	if ok, _ := server.SIsMember("test:active", "E1"); ok {
		t.Fatalf("E1 should have left the active set")
	}
	states, _ = st.ListActiveWorkflowStates(ctx)
	if len(states) != 0 {
		t.Fatalf("expected no active states, got %+v", states)
	}

	loaded, err := st.LoadWorkflowState(ctx, "E1")
	if err != nil {
		t.Fatalf("LoadWorkflowState: %v", err)
	}
	if loaded.Result == nil || loaded.Result.TranscriptID != "t1" || !loaded.StartedAt.Equal(started) {
		t.Fatalf("unexpected loaded state %+v", loaded)
	}
}

func TestListSkipsVanishedDocuments(t *testing.T) {
	st, server := newTestStore(t)
	ctx := context.Background()
	if _, err := server.SAdd("test:active", "ghost"); err != nil {
		t.Fatalf("SAdd: %v", err)
	}
	states, err := st.ListActiveWorkflowStates(ctx)
	if err != nil || len(states) != 0 {
		t.Fatalf("expected no states, got %+v %v", states, err)
	}
}

func TestCorruptDocumentIsStorageError(t *testing.T) {
	st, server := newTestStore(t)
	if err := server.Set("test:state:E1", "{not json"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	_, err := st.LoadWorkflowState(context.Background(), "E1")
	if !errors.Is(err, services.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestActorOverRedis(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()
	actor := workflow.NewActor(st, nil)

	state, err := actor.Start(ctx, "E1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := workflow.NewActor(st, nil).Start(ctx, "E1"); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("second actor over the same redis must see the active run, got %v", err)
	}
	if _, err := actor.Fail(ctx, "E1", state.RunID, "boom"); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	states, _ := st.ListActiveWorkflowStates(ctx)
	if len(states) != 0 {
		t.Fatalf("expected no active states, got %+v", states)
	}
}

func TestOpenUnreachable(t *testing.T) {
	server := miniredis.RunT(t)
	addr := server.Addr()
	server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := Open(ctx, config.State{RedisAddr: addr, RedisPrefix: "test"})
	if err == nil {
		t.Fatal("expected error for unreachable redis")
	}
}

func TestActorsOnSeparateClientsAdmitOneRun(t *testing.T) {
	server := miniredis.RunT(t)
	ctx := context.Background()
	stores := make([]workflow.StateStore, 2)
	for i := range stores {
		st := New(redis.NewClient(&redis.Options{Addr: server.Addr()}), "test")
		t.Cleanup(func() { _ = st.Close() })
		stores[i] = st
	}
	barriers := testsupport.NewLoadBarriers(stores...)
	first := workflow.NewActor(barriers[0], nil)
	second := workflow.NewActor(barriers[1], nil)

	states, errs := testsupport.StartConcurrently(ctx, "E1", first, second)
	admitted := 0
	var winner workflow.State
	for i, err := range errs {
		if err == nil {
			admitted++
			winner = states[i]
			continue
		}
		if !errors.Is(err, services.ErrConflict) {
			t.Fatalf("actor %d: expected conflict, got %v", i, err)
		}
	}
	if admitted != 1 {
		t.Fatalf("expected exactly one admitted run, got %d (%v)", admitted, errs)
	}
	stored, err := stores[0].LoadWorkflowState(ctx, "E1")
	if err != nil || stored.RunID != winner.RunID {
		t.Fatalf("stored %+v does not match admitted run %+v (%v)", stored, winner, err)
	}
	if !server.Exists("test:active") {
		t.Fatalf("admitted run missing from active set")
	}
}

func TestReplaceRejectsMismatchedRun(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()
	running := workflow.State{EpisodeID: "E1", RunID: "run-1", Status: workflow.StatusGeneratingAudio, Progress: 60}
	if err := st.ReplaceWorkflowState(ctx, workflow.IdleState("E1"), running); err != nil {
		t.Fatalf("ReplaceWorkflowState: %v", err)
	}
	stale := workflow.State{EpisodeID: "E1", RunID: "run-0", Status: workflow.StatusGeneratingAudio}
	if err := st.ReplaceWorkflowState(ctx, stale, workflow.IdleState("E1")); !errors.Is(err, workflow.ErrStateChanged) {
		t.Fatalf("expected ErrStateChanged, got %v", err)
	}
	loaded, err := st.LoadWorkflowState(ctx, "E1")
	if err != nil || loaded.RunID != "run-1" {
		t.Fatalf("stale write must not land: %+v %v", loaded, err)
	}
}
