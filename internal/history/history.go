// Package history persists the bounded list of recent sweep summaries in
// the store itself, newest first.
package history

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/studydesk/storedoctor/internal/store"
	"github.com/studydesk/storedoctor/pkg/model"
)

// DefaultLimit is the number of records kept.
const DefaultLimit = 5

// Load reads the history under key. Absent or unreadable data yields an
// empty history; the structure phase repairs the key itself.
func Load(s store.Store, key string) ([]model.SweepRecord, error) {
	raw, ok, err := s.Get(key)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var records []model.SweepRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, nil
	}
	return records, nil
}

// Append stores rec at the front of the history and drops the oldest
// entries beyond limit.
func Append(s store.Store, key string, rec model.SweepRecord, limit int) ([]model.SweepRecord, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	existing, err := Load(s, key)
	if err != nil {
		return nil, err
	}

	records := make([]model.SweepRecord, 0, limit)
	records = append(records, rec)
	records = append(records, existing...)
	if len(records) > limit {
		records = records[:limit]
	}

	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("marshal history: %w", err)
	}
	if err := s.Set(key, string(data)); err != nil {
		return nil, fmt.Errorf("write history: %w", err)
	}
	return records, nil
}

// Latest returns the newest record, if any.
func Latest(s store.Store, key string) (model.SweepRecord, bool, error) {
	records, err := Load(s, key)
	if err != nil || len(records) == 0 {
		return model.SweepRecord{}, false, err
	}
	return records[0], true, nil
}

// SetLastSweep records t as a JSON-encoded RFC 3339 string.
func SetLastSweep(s store.Store, key string, t time.Time) error {
	data, err := json.Marshal(t.UTC().Format(time.RFC3339))
	if err != nil {
		return err
	}
	if err := s.Set(key, string(data)); err != nil {
		return fmt.Errorf("write last sweep: %w", err)
	}
	return nil
}

// LastSweep returns the time written by SetLastSweep.
func LastSweep(s store.Store, key string) (time.Time, bool, error) {
	raw, ok, err := s.Get(key)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	var text string
	if err := json.Unmarshal([]byte(raw), &text); err != nil {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(time.RFC3339, text)
	if err != nil {
		return time.Time{}, false, nil
	}
	return t, true, nil
}
