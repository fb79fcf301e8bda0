// Package store defines the flat string-keyed store the sweep engine
// operates on, and its backends.
//
// Values are untyped text, conventionally JSON. Stores are not
// transactional: every Set and Delete is immediately visible to later reads.
package store

import (
	"fmt"
	"io"

	"github.com/studydesk/storedoctor/pkg/errclass"
)

// Store is the key-value interface consumed by the sweep engine.
type Store interface {
	// Get returns the value for key and whether it exists.
	Get(key string) (string, bool, error)
	Set(key, value string) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error
	// Keys returns every key in lexicographic order.
	Keys() ([]string, error)
	Len() (int, error)
}

// Backend is a Store that holds resources.
type Backend interface {
	Store
	io.Closer
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Open opens the named backend at path.
func Open(backend, path string) (Backend, error) {
	switch backend {
	case BackendFile:
		return OpenFile(path)
	case BackendSQLite:
		return OpenSQLite(path)
	case BackendMemory:
		return NewMemory(nil), nil
	}
	return nil, errclass.ErrStoreUnavailable.WithMessagef("unknown backend %q", backend)
}

func validateKey(key string) error {
	if key == "" {
		return errclass.ErrKeyInvalid.WithMessage("empty key")
	}
	return nil
}

// Snapshot copies every entry of s into a map.
func Snapshot(s Store) (map[string]string, error) {
	keys, err := s.Keys()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		v, ok, err := s.Get(k)
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", k, err)
		}
		if ok {
			out[k] = v
		}
	}
	return out, nil
}
