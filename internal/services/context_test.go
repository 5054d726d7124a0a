package services_test

import (
	"context"
	"testing"

	"podstudio/internal/services"
)

func TestContextTags(t *testing.T) {
	ctx := services.WithEpisodeID(context.Background(), "E42")
	ctx = services.WithStage(ctx, "synthesizing audio")
	ctx = services.WithRequestID(ctx, "req-123")

	tags := []struct {
		name string
		get  func(context.Context) (string, bool)
		want string
	}{
		{"episode", services.EpisodeIDFromContext, "E42"},
		{"stage", services.StageFromContext, "synthesizing audio"},
		{"request", services.RequestIDFromContext, "req-123"},
	}
	for _, tag := range tags {
		if got, ok := tag.get(ctx); !ok || got != tag.want {
			t.Errorf("%s: got %q, %v want %q", tag.name, got, ok, tag.want)
		}
		if _, ok := tag.get(context.Background()); ok {
			t.Errorf("%s: expected no value on a bare context", tag.name)
		}
	}
}

func TestBlankTagsLeaveContextUntouched(t *testing.T) {
	base := context.Background()
	if services.WithEpisodeID(base, "") != base || services.WithStage(base, "") != base || services.WithRequestID(base, "") != base {
		t.Fatal("blank values should return the parent context")
	}
}

func TestInnerTagWins(t *testing.T) {
	ctx := services.WithStage(context.Background(), "loading episode")
	ctx = services.WithStage(ctx, "generating transcript")
	if stage, _ := services.StageFromContext(ctx); stage != "generating transcript" {
		t.Fatalf("expected innermost stage, got %q", stage)
	}
}
