package daemon_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"podstudio/internal/config"
	"podstudio/internal/daemon"
	"podstudio/internal/podcast"
	"podstudio/internal/store"
	"podstudio/internal/testsupport"
	"podstudio/internal/workflow"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type blockingPipeline struct {
	started chan string
}

func (p *blockingPipeline) Run(ctx context.Context, episodeID string, onProgress podcast.ProgressFunc) (podcast.GenerationResult, error) {
	_ = onProgress(ctx, podcast.Progress{Step: "fetch_episode", Percent: 5, Phase: podcast.PhaseTranscript})
	p.started <- episodeID
	<-ctx.Done()
	return podcast.GenerationResult{}, ctx.Err()
}

type harness struct {
	cfg      *config.Config
	store    *store.Store
	actor    *workflow.Actor
	runner   *workflow.Runner
	pipeline *blockingPipeline
	base     context.CancelFunc
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	cfg.Workflow.ShutdownTimeoutSeconds = 5
	st := testsupport.MustOpenStore(t, cfg)
	base, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	actor := workflow.NewActor(st, nil)
	pipeline := &blockingPipeline{started: make(chan string, 1)}
	runner := workflow.NewRunner(base, actor, pipeline, 0, nil)
	return &harness{cfg: cfg, store: st, actor: actor, runner: runner, pipeline: pipeline, base: cancel}
}

func (h *harness) daemon(t *testing.T) *daemon.Daemon {
	t.Helper()
	d, err := daemon.New(h.cfg, daemon.Components{
		Actor:    h.actor,
		States:   h.store,
		Runner:   h.runner,
		Episodes: h.store,
	}, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestDaemonStartStop(t *testing.T) {
	h := newHarness(t)
	d := h.daemon(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.APIAddress == "" {
		t.Fatal("expected api address once started")
	}

	resp, err := http.Get("http://" + status.APIAddress + "/api/health")
	if err != nil {
		t.Fatalf("health request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", resp.StatusCode)
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	status = d.Status(ctx)
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestAPIRequiresConfiguredToken(t *testing.T) {
	h := newHarness(t, testsupport.WithAPIToken("s3cret"))
	testsupport.SeedEpisode(t, h.store, "E1", "Pilot")
	d := h.daemon(t)

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()
	base := "http://" + d.Status(ctx).APIAddress

	resp, err := http.Get(base + "/api/health")
	if err != nil {
		t.Fatalf("health request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health should stay open, got %d", resp.StatusCode)
	}

	resp, err = http.Get(base + "/api/episodes/E1/status")
	if err != nil {
		t.Fatalf("status request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, base+"/api/episodes/E1/status", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("authorized status request: %v", err)
	}
	defer resp.Body.Close()
	var state workflow.State
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if resp.StatusCode != http.StatusOK || state.Status != workflow.StatusIdle {
		t.Fatalf("expected idle state, got %d %+v", resp.StatusCode, state)
	}
}

func TestSecondInstanceIsRejected(t *testing.T) {
	h := newHarness(t)
	first := h.daemon(t)
	second := h.daemon(t)

	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	err := second.Start(ctx)
	if !errors.Is(err, daemon.ErrLocked) {
		t.Fatalf("expected lock contention error, got %v", err)
	}
	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("start after release: %v", err)
	}
	second.Stop()
}

func TestStartFailsOrphanedRuns(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// A run left active by a process that died.
	previous := workflow.NewActor(h.store, nil)
	if _, err := previous.Start(ctx, "E1"); err != nil {
		t.Fatalf("seed active run: %v", err)
	}

	d := h.daemon(t)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	state, err := h.actor.Status(ctx, "E1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if state.Status != workflow.StatusFailed || state.Error != workflow.OrphanMessage {
		t.Fatalf("expected orphan failure, got %+v", state)
	}
}

func TestStopInterruptsActiveRuns(t *testing.T) {
	h := newHarness(t)
	testsupport.SeedEpisode(t, h.store, "E1", "Pilot", "Ada")
	d := h.daemon(t)

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	addr := d.Status(ctx).APIAddress
	resp, err := http.Post("http://"+addr+"/api/episodes/E1/generate", "application/json", nil)
	if err != nil {
		t.Fatalf("generate request: %v", err)
	}
	var accepted workflow.State
	_ = json.NewDecoder(resp.Body).Decode(&accepted)
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("generate status = %d", resp.StatusCode)
	}

	select {
	case <-h.pipeline.started:
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline never started")
	}

	h.base()
	d.Stop()

	state, err := h.actor.Status(ctx, "E1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if state.Status != workflow.StatusFailed || state.Error != workflow.ShutdownMessage {
		t.Fatalf("expected shutdown failure, got %+v", state)
	}
	if state.RunID != accepted.RunID {
		t.Fatalf("run id changed: %q vs %q", state.RunID, accepted.RunID)
	}
}

func TestSendTestNotificationWithoutTopic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	sent, message, err := daemon.SendTestNotification(context.Background(), cfg)
	if err != nil || sent || message != "ntfy topic not configured" {
		t.Fatalf("unexpected result sent=%v message=%q err=%v", sent, message, err)
	}
}
