package audio

import (
	"fmt"

	"podstudio/internal/services"
)

// SegmentError identifies the transcript segment that aborted a synthesis call.
type SegmentError struct {
	Index   int
	Speaker string
	Err     error
}

func (e *SegmentError) Error() string {
	if e.Speaker != "" {
		return fmt.Sprintf("segment %d (%s): %v", e.Index, e.Speaker, e.Err)
	}
	return fmt.Sprintf("segment %d: %v", e.Index, e.Err)
}

func (e *SegmentError) Unwrap() error {
	return e.Err
}

func decodeError(format string, args ...any) error {
	return services.Wrap(services.ErrDecode, "wav", "decode", fmt.Sprintf(format, args...), nil)
}

func formatError(operation string, format string, args ...any) error {
	return services.Wrap(services.ErrDecode, "audio", operation, fmt.Sprintf(format, args...), nil)
}
