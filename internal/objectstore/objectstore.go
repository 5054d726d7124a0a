// Package objectstore publishes synthesized audio containers and returns the
// URL listeners can fetch them from.
package objectstore

import (
	"context"
	"fmt"
	"strings"

	"podstudio/internal/config"
	"podstudio/internal/services"
)

// Store publishes a blob under key.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// New builds the backend selected by cfg.Backend.
func New(ctx context.Context, cfg config.Storage) (Store, error) {
	switch cfg.Backend {
	case config.StorageLocal, "":
		return NewLocal(cfg.LocalDir, cfg.PublicBaseURL), nil
	case config.StorageS3:
		s3Store, err := NewS3(ctx, S3Config{
			Bucket:        cfg.Bucket,
			Prefix:        cfg.Prefix,
			Region:        cfg.Region,
			Profile:       cfg.Profile,
			Endpoint:      cfg.Endpoint,
			UsePathStyle:  cfg.UsePathStyle,
			PublicBaseURL: cfg.PublicBaseURL,
		})
		if err != nil {
			return nil, err
		}
		return s3Store, nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "objectstore", "init",
			fmt.Sprintf("unsupported backend %q", cfg.Backend), nil)
	}
}

// cleanKey rejects empty keys and keys that escape their root.
func cleanKey(key string) (string, error) {
	key = strings.Trim(strings.TrimSpace(key), "/")
	if key == "" {
		return "", services.Wrap(services.ErrValidation, "objectstore", "put", "key required", nil)
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return "", services.Wrap(services.ErrValidation, "objectstore", "put", fmt.Sprintf("invalid key %q", key), nil)
		}
	}
	return key, nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
