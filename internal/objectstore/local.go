package objectstore

import (
	"context"
	"net/url"
	"path/filepath"

	"podstudio/internal/fileutil"
	"podstudio/internal/services"
)

// Local writes objects beneath a directory.
type Local struct {
	Dir     string
	BaseURL string
}

// NewLocal returns a Local store rooted at dir. When baseURL is empty the
// returned URLs use the file scheme.
func NewLocal(dir, baseURL string) *Local {
	return &Local{Dir: dir, BaseURL: baseURL}
}

// Put writes data atomically to Dir/key.
func (l *Local) Put(ctx context.Context, key string, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	path := filepath.Join(l.Dir, filepath.FromSlash(key))
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return "", services.Wrap(services.ErrStorage, "objectstore", "put", key, err)
	}
	if err := fileutil.VerifyFile(path, data); err != nil {
		return "", services.Wrap(services.ErrStorage, "objectstore", "verify", key, err)
	}
	if l.BaseURL != "" {
		return joinURL(l.BaseURL, key), nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}
