package daemon

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"
)

// ErrLocked reports that another podstudio process holds the instance lock.
var ErrLocked = errors.New("another podstudio process holds the instance lock")

// AcquireLock takes the instance lock at path without blocking. The daemon
// holds it while serving and the generate command holds it for one run, so
// a run started outside the daemon is never mistaken for an orphan.
func AcquireLock(path string) (*flock.Flock, error) {
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return lock, nil
}
