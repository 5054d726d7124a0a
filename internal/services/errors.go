package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrPrecondition  = errors.New("precondition failed")
	ErrConflict      = errors.New("conflict")
	ErrDecode        = errors.New("decode error")
	ErrStorage       = errors.New("storage error")
	ErrTimeout       = errors.New("timeout")
	ErrExternal      = errors.New("external service error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
)

// Error kinds reported by Kind.
const (
	KindNotFound      = "not_found"
	KindPrecondition  = "precondition"
	KindConflict      = "conflict"
	KindDecode        = "decode"
	KindStorage       = "storage"
	KindTimeout       = "timeout"
	KindExternal      = "external"
	KindValidation    = "validation"
	KindConfiguration = "configuration"
	KindCanceled      = "canceled"
	KindInternal      = "internal"
)

var kindMarkers = []struct {
	marker error
	kind   string
}{
	{ErrNotFound, KindNotFound},
	{ErrPrecondition, KindPrecondition},
	{ErrConflict, KindConflict},
	{ErrDecode, KindDecode},
	{ErrStorage, KindStorage},
	{ErrTimeout, KindTimeout},
	{ErrExternal, KindExternal},
	{ErrValidation, KindValidation},
	{ErrConfiguration, KindConfiguration},
}

// Wrap builds an error message that includes step context while tagging it with
// the provided marker for later classification. The marker should be one of
// the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternal
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind classifies err by the first marker it carries. Context cancellation is
// reported separately so shutdowns are not mistaken for service failures.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, km := range kindMarkers {
		if errors.Is(err, km.marker) {
			return km.kind
		}
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindInternal
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
