package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/starford/jotter/internal/apperr"
	"github.com/starford/jotter/internal/models"
)

// EmptyCollection is the content of a freshly initialised collection file.
const EmptyCollection = "[]"

// File implements Store backed by a single JSON array file.
//
// Every operation reads the whole file and, for mutations, rewrites it.
// All operations on one File are serialised by mu, so id assignment and the
// rewrite happen in the same critical section. Other processes writing the
// same file are not coordinated with.
type File struct {
	path string // absolute path to the collection file

	mu sync.Mutex

	// lastWrite is the models.Sum of the bytes this store last wrote.
	lastWrite atomic.Value
}

var _ Store = (*File)(nil)

// NewFile creates a File store for the collection at path.
// The parent directory must exist; the file itself is not created.
func NewFile(path string) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve path: %w", err)
	}
	info, err := os.Stat(filepath.Dir(abs))
	if err != nil {
		return nil, fmt.Errorf("storage: stat dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: not a directory: %s", filepath.Dir(abs))
	}
	return &File{path: abs}, nil
}

// Path returns the absolute path of the collection file.
func (f *File) Path() string {
	return f.path
}

// List reads and parses the collection.
func (f *File) List(_ context.Context) (models.Collection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load()
}

// Create appends payload with the next id and rewrites the file.
func (f *File) Create(_ context.Context, payload *models.Note) (*models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	notes, err := f.load()
	if err != nil {
		return nil, err
	}
	id, err := notes.NextID()
	if err != nil {
		return nil, apperr.Exhausted("storage: create in "+f.path, err)
	}
	note := payload.Clone()
	note.SetID(id)
	notes = append(notes, note)

	if err := f.save(notes); err != nil {
		return nil, err
	}
	return note, nil
}

// Remove filters out notes with id and rewrites the file.
// The file is rewritten even when nothing matched.
func (f *File) Remove(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	notes, err := f.load()
	if err != nil {
		return err
	}
	return f.save(notes.Without(id))
}

// Close is a no-op; File holds no open handles between calls.
func (f *File) Close() error {
	return nil
}

func (f *File) load() (models.Collection, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, apperr.IO("storage: read "+f.path, err)
	}
	notes, err := models.ParseCollection(data)
	if err != nil {
		return nil, apperr.Parse("storage: parse "+f.path, err)
	}
	return notes, nil
}

func (f *File) save(notes models.Collection) error {
	data, err := notes.Encode()
	if err != nil {
		return apperr.IO("storage: encode", err)
	}
	if err := writeAtomic(f.path, data); err != nil {
		return apperr.IO("storage: write "+f.path, err)
	}
	f.lastWrite.Store(models.Sum(data))
	return nil
}

// WroteCurrent reports whether the file on disk still holds exactly the
// bytes of this store's last write.
func (f *File) WroteCurrent() bool {
	want, _ := f.lastWrite.Load().(string)
	if want == "" {
		return false
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return false
	}
	return models.Sum(data) == want
}

// Watch runs the collection watcher for this store. Changes that leave the
// file equal to the store's own last write are not reported.
func (f *File) Watch(ctx context.Context, logger *slog.Logger, cb ChangeCallback) error {
	return Watch(ctx, f.path, logger, func(op string) {
		if f.WroteCurrent() {
			logger.Debug("watcher: own write skipped", slog.String("op", op))
			return
		}
		if cb != nil {
			cb(op)
		}
	})
}

// writeAtomic writes content via tmp file, fsync, rename.
// The target keeps its permission bits when it already exists.
func writeAtomic(path string, content []byte) error {
	mode := fs.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".jotter-tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Chmod(mode); err != nil {
		return fmt.Errorf("chmod temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	success = true
	return nil
}

// InitFile creates an empty collection at path, including missing parent
// directories. An existing file is left untouched and reported via created.
func InitFile(path string) (created bool, err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("storage: mkdir: %w", err)
	}
	fh, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("storage: create %s: %w", path, err)
	}
	if _, err := fh.WriteString(EmptyCollection); err != nil {
		_ = fh.Close()
		return false, fmt.Errorf("storage: write %s: %w", path, err)
	}
	if err := fh.Close(); err != nil {
		return false, fmt.Errorf("storage: close %s: %w", path, err)
	}
	return true, nil
}
