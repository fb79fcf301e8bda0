// Package lock provides a lease file that keeps two processes from
// sweeping the same store at once.
package lock

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/studydesk/storedoctor/pkg/errclass"
	"github.com/studydesk/storedoctor/pkg/fsutil"
	"github.com/studydesk/storedoctor/pkg/model"
)

// DefaultTTL is the lease lifetime when none is configured.
const DefaultTTL = 2 * time.Minute

// Suffix is appended to the store path to name its lease file.
const Suffix = ".sweep.lock"

// Manager handles the sweep lease of one store.
type Manager struct {
	storePath string
	ttl       time.Duration
	now       func() time.Time
	mu        sync.Mutex
}

// NewManager creates a lease manager for the store at storePath.
func NewManager(storePath string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{storePath: storePath, ttl: ttl, now: time.Now}
}

// Path returns the lease file.
func (m *Manager) Path() string {
	return m.storePath + Suffix
}

// Acquire takes the lease. A live lease held by someone else yields
// E_LOCK_CONFLICT; an expired one is taken over.
func (m *Manager) Acquire(purpose string) (*model.LockRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lockPath := m.Path()
	if err := os.MkdirAll(filepath.Dir(lockPath), 0755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	rec := m.newRecord(purpose)

	// O_CREATE|O_EXCL makes the common path atomic.
	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if !os.IsExist(err) {
			return nil, fmt.Errorf("create lock: %w", err)
		}
		existing, readErr := readLock(lockPath)
		if readErr != nil {
			return nil, fmt.Errorf("read existing lock: %w", readErr)
		}
		if !existing.IsExpired(m.now()) {
			return nil, errclass.ErrLockConflict.WithMessagef(
				"store is being swept by pid %d (%s) until %s",
				existing.PID, existing.Purpose, existing.ExpiresAt.Format(time.RFC3339))
		}
		if err := writeLockAtomic(lockPath, rec); err != nil {
			return nil, fmt.Errorf("steal lock: %w", err)
		}
		return rec, nil
	}
	defer file.Close()

	if err := writeLock(file, rec); err != nil {
		os.Remove(lockPath)
		return nil, err
	}
	return rec, nil
}

// Release frees the lease if holderNonce still owns it.
func (m *Manager) Release(holderNonce string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lockPath := m.Path()
	rec, err := readLock(lockPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // already released
		}
		return fmt.Errorf("read lock: %w", err)
	}
	if rec.HolderNonce != holderNonce {
		return errclass.ErrLockNotHeld.WithMessage("cannot release: nonce mismatch")
	}
	if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove lock: %w", err)
	}
	return nil
}

// Status returns the current lease state.
func (m *Manager) Status() (model.LockState, *model.LockRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := readLock(m.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return model.LockStateFree, nil, nil
		}
		return model.LockStateFree, nil, fmt.Errorf("read lock: %w", err)
	}
	if rec.IsExpired(m.now()) {
		return model.LockStateExpired, rec, nil
	}
	return model.LockStateHeld, rec, nil
}

func (m *Manager) newRecord(purpose string) *model.LockRecord {
	now := m.now().UTC()
	return &model.LockRecord{
		Store:       m.storePath,
		HolderNonce: uuid.NewString(),
		PID:         os.Getpid(),
		AcquiredAt:  now,
		ExpiresAt:   now.Add(m.ttl),
		Purpose:     purpose,
	}
}

func readLock(path string) (*model.LockRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rec model.LockRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse lock: %w", err)
	}
	return &rec, nil
}

func writeLock(file *os.File, rec *model.LockRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal lock: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("write lock: %w", err)
	}
	return file.Sync()
}

func writeLockAtomic(path string, rec *model.LockRecord) error {
	return fsutil.WriteJSON(path, rec, 0644)
}
