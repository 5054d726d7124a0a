package preflight

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"podstudio/internal/config"
	"podstudio/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	defer srv.Close()

	if result := CheckEndpoint(context.Background(), "agent", srv.URL+"/v1/chat", "key"); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if result := CheckEndpoint(context.Background(), "agent", srv.URL, ""); result.Passed || result.Detail != "API key missing" {
		t.Fatalf("expected missing key failure, got %+v", result)
	}
	if result := CheckEndpoint(context.Background(), "agent", "not a url", "key"); result.Passed {
		t.Fatal("expected invalid url failure")
	}
}

func TestCheckBrokers(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()

	closed, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	deadAddr := closed.Addr().String()
	closed.Close()

	if result := CheckBrokers(context.Background(), []string{deadAddr, listener.Addr().String()}); !result.Passed {
		t.Fatalf("expected one reachable broker to pass, got: %s", result.Detail)
	}
	if result := CheckBrokers(context.Background(), []string{deadAddr}); result.Passed {
		t.Fatal("expected failure when no broker answers")
	}
}

func TestRunAllWithRedisBackend(t *testing.T) {
	server := miniredis.RunT(t)
	agent := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	defer agent.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithServiceURLs(agent.URL, agent.URL))
	cfg.State.Backend = config.StateRedis
	cfg.State.RedisAddr = server.Addr()
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := RunAll(context.Background(), cfg)
	if !Passed(results) {
		t.Fatalf("expected every check to pass: %+v", results)
	}
	names := map[string]bool{}
	for _, r := range results {
		names[r.Name] = true
	}
	for _, want := range []string{"Data directory", "Audio directory", "Database", "Redis state", "Transcript agent", "Text-to-speech"} {
		if !names[want] {
			t.Errorf("missing check %q in %+v", want, results)
		}
	}
}
