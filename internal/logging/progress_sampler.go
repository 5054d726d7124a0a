package logging

import (
	"strings"
	"sync"
)

const defaultProgressBucket = 10

// ProgressSampler thins generation progress logs. An event is emitted when
// the step changes or the percent enters a new bucket.
type ProgressSampler struct {
	mu         sync.Mutex
	bucketSize int
	lastStep   string
	lastBucket int
}

// NewProgressSampler returns a sampler with the given bucket width in percent.
func NewProgressSampler(bucketSize int) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = defaultProgressBucket
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether the event is worth a log line. Safe for
// concurrent use; a nil sampler logs everything.
func (s *ProgressSampler) ShouldLog(percent int, step string) bool {
	if s == nil {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	emit := false
	if step = strings.TrimSpace(step); step != "" && step != s.lastStep {
		s.lastStep = step
		emit = true
	}
	percent = min(percent, 100)
	if percent >= 0 {
		if bucket := percent / s.bucketSize; bucket > s.lastBucket {
			s.lastBucket = bucket
			emit = true
		}
	}
	return emit
}
