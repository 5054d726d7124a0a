package logging

import "testing"

func TestNewProgressSamplerDefaults(t *testing.T) {
	for _, size := range []int{0, -5} {
		if s := NewProgressSampler(size); s.bucketSize != defaultProgressBucket {
			t.Fatalf("bucket size %d: expected default, got %d", size, s.bucketSize)
		}
	}
	if s := NewProgressSampler(25); s.bucketSize != 25 {
		t.Fatalf("expected custom bucket size, got %d", s.bucketSize)
	}
}

func TestProgressSamplerNil(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(50, "synthesizing audio") {
		t.Fatal("nil sampler should always log")
	}
}

func TestProgressSamplerBucketsAndSteps(t *testing.T) {
	s := NewProgressSampler(10)
	events := []struct {
		percent int
		step    string
		want    bool
	}{
		{5, "loading episode", true},
		{8, "loading episode", false},
		{10, "loading guests", true},
		{25, "generating transcript", true},
		{61, "synthesizing segment 1/4", true},
		{64, "synthesizing segment 1/4", false},
		{68, "synthesizing segment 1/4", false},
		{71, "synthesizing segment 1/4", true},
		{100, "completed", true},
		{120, "completed", false},
	}
	for i, tc := range events {
		if got := s.ShouldLog(tc.percent, tc.step); got != tc.want {
			t.Fatalf("event %d (%d%% %q): got %v want %v", i, tc.percent, tc.step, got, tc.want)
		}
	}
}
