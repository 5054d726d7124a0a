package workflow_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"podstudio/internal/workflow"
)

func TestSweepFailsExpiredRuns(t *testing.T) {
	actor, store, clock := newActor(t)
	ctx := context.Background()

	if _, err := actor.Start(ctx, "old"); err != nil {
		t.Fatalf("Start old: %v", err)
	}
	clock.Advance(50 * time.Minute)
	if _, err := actor.Start(ctx, "fresh"); err != nil {
		t.Fatalf("Start fresh: %v", err)
	}
	if _, err := actor.Start(ctx, "done"); err != nil {
		t.Fatalf("Start done: %v", err)
	}
	doneState, _ := actor.Status(ctx, "done")
	if _, err := actor.Complete(ctx, "done", doneState.RunID, sampleResult(1)); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	sweeper := workflow.NewSweeper(actor, store, time.Hour, nil)
	clock.Advance(15 * time.Minute)
	expired, err := sweeper.Sweep(ctx, clock.Now())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(expired) != 1 || expired[0] != "old" {
		t.Fatalf("expected only the old run to expire, got %v", expired)
	}

	old, _ := actor.Status(ctx, "old")
	if old.Status != workflow.StatusFailed || !strings.HasPrefix(old.Error, "timeout") {
		t.Fatalf("expected timeout failure, got %+v", old)
	}
	fresh, _ := actor.Status(ctx, "fresh")
	if fresh.Status != workflow.StatusGeneratingTranscript {
		t.Fatalf("fresh run must be untouched, got %+v", fresh)
	}

	again, err := sweeper.Sweep(ctx, clock.Now())
	if err != nil || len(again) != 0 {
		t.Fatalf("second sweep should be a no-op, got %v %v", again, err)
	}
}

func TestSweeperRejectsInvalidSchedule(t *testing.T) {
	actor, store, _ := newActor(t)
	sweeper := workflow.NewSweeper(actor, store, time.Hour, nil)
	if err := sweeper.Start(context.Background(), "not a schedule"); err == nil {
		sweeper.Stop()
		t.Fatal("expected schedule error")
	}
	if err := sweeper.Start(context.Background(), "@every 1h"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	sweeper.Stop()
	sweeper.Stop()
}

func TestRecoverOrphans(t *testing.T) {
	actor, store, _ := newActor(t)
	ctx := context.Background()
	for _, id := range []string{"E1", "E2"} {
		if _, err := actor.Start(ctx, id); err != nil {
			t.Fatalf("Start %s: %v", id, err)
		}
	}

	// A new actor over the same store stands in for a restarted process.
	restarted := workflow.NewActor(store, nil)
	recovered, err := workflow.RecoverOrphans(ctx, restarted, store)
	if err != nil {
		t.Fatalf("RecoverOrphans: %v", err)
	}
	if len(recovered) != 2 {
		t.Fatalf("expected 2 recovered runs, got %v", recovered)
	}
	state, _ := restarted.Status(ctx, "E1")
	if state.Status != workflow.StatusFailed || state.Error != workflow.OrphanMessage {
		t.Fatalf("unexpected recovered state %+v", state)
	}
	if _, err := restarted.Start(ctx, "E1"); err != nil {
		t.Fatalf("recovered episodes must be restartable: %v", err)
	}
}
