package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"

	"podstudio/internal/api"
	"podstudio/internal/podcast"
	"podstudio/internal/services"
	"podstudio/internal/workflow"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type episodeMap map[string]*podcast.Episode

func (m episodeMap) GetEpisode(_ context.Context, id string) (*podcast.Episode, error) {
	return m[id], nil
}

type gatedPipeline struct {
	release chan struct{}
}

func (p *gatedPipeline) Run(ctx context.Context, episodeID string, onProgress podcast.ProgressFunc) (podcast.GenerationResult, error) {
	_ = onProgress(ctx, podcast.Progress{Step: "fetch_episode", Percent: 5, Phase: podcast.PhaseTranscript})
	select {
	case <-p.release:
	case <-ctx.Done():
		return podcast.GenerationResult{}, ctx.Err()
	}
	return podcast.GenerationResult{
		TranscriptID:      "t-1",
		TranscriptVersion: 1,
		Audio:             podcast.AudioRef{Key: "episodes/" + episodeID + "/audio/v1.wav", DurationSeconds: 2.1, SizeBytes: 67244},
	}, nil
}

type fixture struct {
	router   *gin.Engine
	runner   *workflow.Runner
	pipeline *gatedPipeline
}

func newFixture(t *testing.T, token string) *fixture {
	t.Helper()
	actor := workflow.NewActor(workflow.NewMemoryStore(), nil)
	pipeline := &gatedPipeline{release: make(chan struct{})}
	runner := workflow.NewRunner(context.Background(), actor, pipeline, 0, nil)
	t.Cleanup(func() {
		runner.CancelAll()
		runner.Wait()
	})
	router := api.NewRouter(api.Dependencies{
		Runs:     runner,
		States:   actor,
		Episodes: episodeMap{"E1": {ID: "E1", Title: "Pilot"}},
		Token:    token,
	}, nil)
	return &fixture{router: router, runner: runner, pipeline: pipeline}
}

func (f *fixture) do(t *testing.T, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) workflow.State {
	t.Helper()
	var state workflow.State
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode state: %v body=%s", err, rec.Body.String())
	}
	return state
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v body=%s", err, rec.Body.String())
	}
	return body
}

func TestGenerateLifecycle(t *testing.T) {
	f := newFixture(t, "")

	rec := f.do(t, http.MethodPost, "/api/episodes/E1/generate", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("generate status = %d body=%s", rec.Code, rec.Body.String())
	}
	started := decodeState(t, rec)
	if started.Status != workflow.StatusGeneratingTranscript || started.RunID == "" {
		t.Fatalf("unexpected started state %+v", started)
	}
	if rec.Header().Get(api.RequestIDHeader) == "" {
		t.Fatal("expected a request id header")
	}

	rec = f.do(t, http.MethodPost, "/api/episodes/E1/generate", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("second generate status = %d, want 409", rec.Code)
	}
	if kind := decodeError(t, rec)["kind"]; kind != services.KindConflict {
		t.Fatalf("error kind = %q", kind)
	}

	close(f.pipeline.release)
	f.runner.Wait()

	rec = f.do(t, http.MethodGet, "/api/episodes/E1/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d", rec.Code)
	}
	done := decodeState(t, rec)
	if done.Status != workflow.StatusCompleted || done.Progress != 100 || done.Result == nil {
		t.Fatalf("unexpected final state %+v", done)
	}
	if done.Result.Audio.Key != "episodes/E1/audio/v1.wav" {
		t.Fatalf("result key = %q", done.Result.Audio.Key)
	}
}

func TestGenerateUnknownEpisode(t *testing.T) {
	f := newFixture(t, "")
	rec := f.do(t, http.MethodPost, "/api/episodes/missing/generate", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	rec = f.do(t, http.MethodGet, "/api/episodes/missing/status", "")
	if got := decodeState(t, rec); got.Status != workflow.StatusIdle {
		t.Fatalf("unknown episode should read as idle, got %+v", got)
	}
}

func TestResetReturnsIdle(t *testing.T) {
	f := newFixture(t, "")
	if rec := f.do(t, http.MethodPost, "/api/episodes/E1/generate", ""); rec.Code != http.StatusAccepted {
		t.Fatalf("generate status = %d", rec.Code)
	}
	rec := f.do(t, http.MethodPost, "/api/episodes/E1/reset", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("reset status = %d", rec.Code)
	}
	if got := decodeState(t, rec); got.Status != workflow.StatusIdle || got.RunID != "" {
		t.Fatalf("unexpected reset state %+v", got)
	}
	f.runner.Wait()
	if got := decodeState(t, f.do(t, http.MethodGet, "/api/episodes/E1/status", "")); got.Status != workflow.StatusIdle {
		t.Fatalf("canceled run must not overwrite the reset, got %+v", got)
	}
}

func TestBearerTokenRequired(t *testing.T) {
	f := newFixture(t, "secret")

	if rec := f.do(t, http.MethodGet, "/api/episodes/E1/status", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token status = %d", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/api/episodes/E1/status", "wrong"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token status = %d", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/api/episodes/E1/status", "secret"); rec.Code != http.StatusOK {
		t.Fatalf("valid token status = %d", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/api/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("health should not require a token, got %d", rec.Code)
	}
}

func TestStatusForError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{services.Wrap(services.ErrNotFound, "s", "op", "m", nil), http.StatusNotFound},
		{services.Wrap(services.ErrConflict, "s", "op", "m", nil), http.StatusConflict},
		{services.Wrap(services.ErrPrecondition, "s", "op", "m", nil), http.StatusUnprocessableEntity},
		{services.Wrap(services.ErrValidation, "s", "op", "m", nil), http.StatusBadRequest},
		{services.Wrap(services.ErrExternal, "s", "op", "m", nil), http.StatusBadGateway},
		{services.Wrap(services.ErrStorage, "s", "op", "m", nil), http.StatusInternalServerError},
		{context.Canceled, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		if got := api.StatusForError(tc.err); got != tc.want {
			t.Errorf("StatusForError(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
