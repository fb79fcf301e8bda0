package store

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/studydesk/storedoctor/pkg/errclass"
	"github.com/studydesk/storedoctor/pkg/fsutil"
)

// File is a Store persisted as one JSON object file. Every mutation rewrites
// the file atomically, so a crash never leaves a half-written key.
type File struct {
	path string
	mu   sync.RWMutex
	data map[string]string
}

// OpenFile loads the store at path. A missing file is an empty store.
func OpenFile(path string) (*File, error) {
	if path == "" {
		return nil, errclass.ErrStoreUnavailable.WithMessage("file store path is empty")
	}
	f := &File{path: path, data: make(map[string]string)}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return f, nil
	}
	if err != nil {
		return nil, errclass.ErrStoreUnavailable.WithMessagef("read %s: %v", path, err)
	}
	if len(raw) == 0 {
		return f, nil
	}
	if err := json.Unmarshal(raw, &f.data); err != nil {
		return nil, errclass.ErrStoreCorrupt.WithMessagef("%s: %v", path, err)
	}
	if f.data == nil {
		f.data = make(map[string]string)
	}
	return f, nil
}

// Path returns the backing file.
func (f *File) Path() string { return f.path }

func (f *File) Get(key string) (string, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *File) Set(key, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	prev, had := f.data[key]
	f.data[key] = value
	if err := f.flushLocked(); err != nil {
		if had {
			f.data[key] = prev
		} else {
			delete(f.data, key)
		}
		return err
	}
	return nil
}

func (f *File) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev, had := f.data[key]
	if !had {
		return nil
	}
	delete(f.data, key)
	if err := f.flushLocked(); err != nil {
		f.data[key] = prev
		return err
	}
	return nil
}

func (f *File) Keys() ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return sortedKeys(f.data), nil
}

func (f *File) Len() (int, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.data), nil
}

// Close is a no-op; every mutation is already durable.
func (f *File) Close() error { return nil }

func (f *File) flushLocked() error {
	data, err := json.MarshalIndent(f.data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}
	if err := fsutil.AtomicWrite(f.path, append(data, '\n'), 0600); err != nil {
		return errclass.ErrStoreUnavailable.WithMessage(err.Error())
	}
	return nil
}
