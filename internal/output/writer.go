// Package output writes rendered GIFs into the output directory.
package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/gofrs/flock"
)

const (
	fileMode = 0o644
	lockName = ".pgn2gif.lock"
)

var ErrLocked = errors.New("output directory is in use by another run")

// Writer maps a filtered position to <dir>/<index>.gif. Distinct indices never
// share a path, so concurrent writes need no coordination.
type Writer struct {
	dir string

	mu   sync.Mutex
	lock *flock.Flock
}

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

func (w *Writer) Dir() string { return w.dir }

func (w *Writer) Path(index int) string {
	return filepath.Join(w.dir, strconv.Itoa(index)+".gif")
}

// Write creates or truncates the file for index and returns its path.
func (w *Writer) Write(index int, data []byte) (string, error) {
	path := w.Path(index)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, fileMode)
	if err != nil {
		return path, fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return path, fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return path, fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}

// Lock takes an advisory lock on the directory for the life of the run.
func (w *Writer) Lock() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.lock != nil {
		return nil
	}
	lock := flock.New(filepath.Join(w.dir, lockName))
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrLocked, w.dir)
	}
	w.lock = lock
	return nil
}

func (w *Writer) Unlock() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.lock == nil {
		return nil
	}
	err := w.lock.Unlock()
	w.lock = nil
	return err
}
