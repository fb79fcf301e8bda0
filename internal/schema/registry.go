// Package schema holds the static tables the sweep engine repairs against:
// known keys and their shapes, legacy key migrations, recognized prefixes,
// retired keys, config field rules and monitored services.
package schema

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/studydesk/storedoctor/pkg/errclass"
)

// KeySpec is the expected shape and default JSON literal of a known key.
type KeySpec struct {
	Kind    Kind   `json:"kind"`
	Default string `json:"default"`
}

// Migration renames Old to New.
type Migration struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// FieldType is the JSON type a config field must hold.
type FieldType string

const (
	FieldString FieldType = "string"
	FieldNumber FieldType = "number"
)

// FieldRule is one required field of the mentor config object.
type FieldRule struct {
	Name    string    `json:"name"`
	Type    FieldType `json:"type"`
	Default any       `json:"default"`
}

// Matches reports whether v satisfies the rule's type.
func (r FieldRule) Matches(v any) bool {
	switch r.Type {
	case FieldString:
		_, ok := v.(string)
		return ok
	case FieldNumber:
		switch v.(type) {
		case float64, json.Number:
			return true
		}
	}
	return false
}

// ObjectConfig is a config object key with required fields.
type ObjectConfig struct {
	Key    string      `json:"key"`
	Fields []FieldRule `json:"fields"`
}

// BoundedSetting is an optional integer setting stored as a JSON string.
type BoundedSetting struct {
	Key      string `json:"key"`
	Min      int    `json:"min"`
	Max      int    `json:"max"`
	Fallback string `json:"fallback"`
}

// Service is a remote dependency probed by the health phase.
type Service struct {
	Name           string          `json:"name"`
	Endpoint       string          `json:"endpoint"`
	Payload        json.RawMessage `json:"payload"`
	OfflineFlag    string          `json:"offline_flag"`
	DefaultBaseURL string          `json:"default_base_url"`
}

// Registry is immutable during a sweep.
type Registry struct {
	Known           map[string]KeySpec `json:"known"`
	Migrations      []Migration        `json:"migrations"`
	Prefixes        []string           `json:"prefixes"`
	StaleKeys       []string           `json:"stale_keys"`
	RecordArrays    []string           `json:"record_arrays"`
	MentorConfig    ObjectConfig       `json:"mentor_config"`
	BoundedSettings []BoundedSetting   `json:"bounded_settings"`
	Services        []Service          `json:"services"`
	HistoryKey      string             `json:"history_key"`
	LastSweepKey    string             `json:"last_sweep_key"`
}

// IsRecognized reports whether key matches a known prefix or a known key.
func (r *Registry) IsRecognized(key string) bool {
	if _, ok := r.Known[key]; ok {
		return true
	}
	for _, p := range r.Prefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

// Service returns the service named name.
func (r *Registry) Service(name string) (Service, error) {
	for _, s := range r.Services {
		if s.Name == name {
			return s, nil
		}
	}
	return Service{}, errclass.ErrServiceUnknown.WithMessagef("service %q is not registered", name)
}

// Validate checks internal consistency: defaults conform to their kinds,
// no key is both migrated and migrated to, and settings ranges are sane.
func (r *Registry) Validate() error {
	for key, spec := range r.Known {
		if _, err := spec.Kind.Check(spec.Default); err != nil {
			return errclass.ErrConfigInvalid.WithMessagef("default for %s: %v", key, err)
		}
	}

	targets := make(map[string]bool, len(r.Migrations))
	for _, m := range r.Migrations {
		if m.Old == "" || m.New == "" || m.Old == m.New {
			return errclass.ErrConfigInvalid.WithMessagef("invalid migration %q -> %q", m.Old, m.New)
		}
		targets[m.New] = true
	}
	for _, m := range r.Migrations {
		if targets[m.Old] {
			return errclass.ErrConfigInvalid.WithMessagef("migration source %s is also a target", m.Old)
		}
	}

	for _, b := range r.BoundedSettings {
		if b.Min > b.Max {
			return errclass.ErrConfigInvalid.WithMessagef("setting %s: min %d > max %d", b.Key, b.Min, b.Max)
		}
	}

	names := make(map[string]bool, len(r.Services))
	for _, s := range r.Services {
		if s.Name == "" || s.OfflineFlag == "" {
			return errclass.ErrConfigInvalid.WithMessagef("service %q needs a name and offline flag", s.Name)
		}
		if names[s.Name] {
			return errclass.ErrConfigInvalid.WithMessagef("duplicate service %s", s.Name)
		}
		names[s.Name] = true
		if !json.Valid(s.Payload) {
			return errclass.ErrConfigInvalid.WithMessagef("service %s payload is not JSON", s.Name)
		}
	}
	return nil
}

// KnownKeys returns the known key names in a stable order.
func (r *Registry) KnownKeys() []string {
	keys := make([]string, 0, len(r.Known))
	for k := range r.Known {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m Migration) String() string {
	return fmt.Sprintf("%s -> %s", m.Old, m.New)
}
