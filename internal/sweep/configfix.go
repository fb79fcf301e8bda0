package sweep

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/studydesk/storedoctor/internal/schema"
	"github.com/studydesk/storedoctor/pkg/model"
)

func repairConfig(_ context.Context, env *Env) ([]model.RepairAction, error) {
	var actions []model.RepairAction

	a, err := repairObjectConfig(env, env.Registry.MentorConfig)
	if err != nil {
		return actions, err
	}
	if a != nil {
		actions = append(actions, *a)
	}

	for _, setting := range env.Registry.BoundedSettings {
		a, err := repairBoundedSetting(env, setting)
		if err != nil {
			return actions, err
		}
		if a != nil {
			actions = append(actions, *a)
		}
	}
	return actions, nil
}

// repairObjectConfig fills missing or wrong-typed fields with their defaults
// and writes the object back once. An absent key is left alone.
func repairObjectConfig(env *Env, cfg schema.ObjectConfig) (*model.RepairAction, error) {
	if cfg.Key == "" || len(cfg.Fields) == 0 {
		return nil, nil
	}
	raw, ok, err := env.Store.Get(cfg.Key)
	if err != nil || !ok {
		return nil, err
	}

	obj := decodeObject(raw)
	var restored []string
	for _, f := range cfg.Fields {
		if v, ok := obj[f.Name]; ok && f.Matches(v) {
			continue
		}
		obj[f.Name] = f.Default
		restored = append(restored, f.Name)
	}
	if len(restored) == 0 {
		return nil, nil
	}

	data, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", cfg.Key, err)
	}
	if err := env.Store.Set(cfg.Key, string(data)); err != nil {
		return nil, err
	}
	a := newAction(PhaseConfig, model.CategoryConfig, cfg.Key, model.SeverityFixed,
		"Restored config fields",
		fmt.Sprintf("%s: restored %s", cfg.Key, strings.Join(restored, ", ")))
	return &a, nil
}

// decodeObject returns raw as an object, or an empty one when raw is not a
// JSON object. Numbers stay json.Number so unrelated fields survive intact.
func decodeObject(raw string) map[string]any {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return map[string]any{}
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return obj
}

func repairBoundedSetting(env *Env, s schema.BoundedSetting) (*model.RepairAction, error) {
	raw, ok, err := env.Store.Get(s.Key)
	if err != nil || !ok {
		return nil, err
	}

	n, valid := parseSettingInt(raw)
	if valid && n >= float64(s.Min) && n <= float64(s.Max) {
		return nil, nil
	}

	fallback, err := json.Marshal(s.Fallback)
	if err != nil {
		return nil, err
	}
	if err := env.Store.Set(s.Key, string(fallback)); err != nil {
		return nil, err
	}

	var detail string
	if valid {
		detail = fmt.Sprintf("%s=%s is outside [%d, %d]; reset to %s",
			s.Key, strconv.FormatFloat(n, 'f', -1, 64), s.Min, s.Max, s.Fallback)
	} else {
		detail = fmt.Sprintf("%s is not an integer; reset to %s", s.Key, s.Fallback)
	}
	a := newAction(PhaseConfig, model.CategoryConfig, s.Key, model.SeverityFixed, "Reset invalid setting", detail)
	return &a, nil
}

// parseSettingInt accepts a JSON string holding an integer, or an integral
// JSON number. The value stays a float64 so that range checks happen before
// any conversion to int.
func parseSettingInt(raw string) (float64, bool) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return 0, false
	}
	switch t := v.(type) {
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return float64(n), err == nil
	case float64:
		if math.IsInf(t, 0) || math.Trunc(t) != t {
			return 0, false
		}
		return t, true
	}
	return 0, false
}
